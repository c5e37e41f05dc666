package tiercache

import (
	"fmt"
	"strings"
)

// InvalidKeyInputError reports parameters that could not be reduced to a
// canonical cache key (non-serializable values). Nothing is cached on this
// path; the caller must treat the request as uncacheable.
type InvalidKeyInputError struct {
	Namespace string
	Err       error
}

func (e *InvalidKeyInputError) Error() string {
	return fmt.Sprintf("tiercache: invalid key input for %q: %v", e.Namespace, e.Err)
}

func (e *InvalidKeyInputError) Unwrap() error { return e.Err }

// DeserializationError describes a stored entry that failed envelope or
// payload decoding. It is never returned to callers: the coordinator
// deletes the entry, reports a miss and surfaces the detail through Hooks
// and the Logger only.
type DeserializationError struct {
	Tier string
	Key  string
	Err  error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("tiercache: undecodable entry %q in tier %s: %v", e.Key, e.Tier, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// PersistenceWarning reports a write-through that failed on every tier it
// was attempted on. It is non-fatal by design: the freshly produced value
// has already been handed to the caller, the cache just could not retain
// it. Partial failures are logged, not reported.
type PersistenceWarning struct {
	Key  string
	Errs []error
}

func (e *PersistenceWarning) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("tiercache: write-through of %q failed on all tiers: %s",
		e.Key, strings.Join(msgs, "; "))
}

func (e *PersistenceWarning) Unwrap() []error { return e.Errs }

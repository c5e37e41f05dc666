package tiercache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the coordinator calls
// them on hot paths. Wrap with hooks/async for anything heavier.
type Hooks interface {
	// An entry was deleted by the coordinator on read.
	// reason ∈ {"corrupt", "expired", "value_decode"}
	SelfHeal(tier, storageKey, reason string)

	// A tier was skipped during get/set.
	// reason ∈ {"not_ready", "get_error"}
	TierSkipped(tier, reason string)

	// A single tier write failed (partial write-through failure).
	WriteFailed(tier, storageKey string, err error)

	// Every attempted tier failed during a write-through
	// (the PersistenceWarning case).
	AllWritesFailed(storageKey string, attempted int)

	// A hit in a slower tier was copied into faster tiers.
	Promoted(storageKey, fromTier string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string, string)   {}
func (NopHooks) TierSkipped(string, string)        {}
func (NopHooks) WriteFailed(string, string, error) {}
func (NopHooks) AllWritesFailed(string, int)       {}
func (NopHooks) Promoted(string, string)           {}

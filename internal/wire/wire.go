// Package wire defines the binary envelope tiercache stores in every tier.
//
// Tiers are byte stores; the envelope carries the entry metadata the
// coordinator needs for TTL checks and LRU bookkeeping alongside the
// codec-encoded payload. Framing is strict: trailing bytes, bad magic and
// violated metadata invariants are all ErrCorrupt, and the coordinator
// treats ErrCorrupt as a miss plus a best-effort delete.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("tiercache: corrupt entry")
	magic4     = [...]byte{'T', 'C', 'H', 'E'}
)

// Entry is the decoded envelope. Timestamps are unix nanoseconds.
type Entry struct {
	CachedAt       int64
	ExpiresAt      int64
	LastAccessedAt int64
	AccessCount    uint32
	Payload        []byte
}

// NewEntry builds a fresh envelope for a payload written at now with ttl.
func NewEntry(payload []byte, now time.Time, ttl time.Duration) Entry {
	n := now.UnixNano()
	return Entry{
		CachedAt:       n,
		ExpiresAt:      now.Add(ttl).UnixNano(),
		LastAccessedAt: n,
		AccessCount:    1,
		Payload:        payload,
	}
}

// Expired reports whether the entry is stale at now.
func (e Entry) Expired(now time.Time) bool {
	return now.UnixNano() >= e.ExpiresAt
}

// Touch returns a copy with access metadata bumped for a read hit at now.
func (e Entry) Touch(now time.Time) Entry {
	e.LastAccessedAt = now.UnixNano()
	e.AccessCount++
	return e
}

func (e Entry) valid() bool {
	return e.ExpiresAt > e.CachedAt &&
		e.LastAccessedAt >= e.CachedAt &&
		e.AccessCount >= 1
}

// magic(4) | ver(1) | cachedAt(i64 be) | expiresAt(i64 be) |
// lastAccessedAt(i64 be) | accessCount(u32 be) | vlen(u32 be) | payload(vlen)
const header = 4 + 1 + 8 + 8 + 8 + 4 + 4

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode serializes an envelope. Panics on metadata invariant violations;
// callers construct entries via NewEntry/Touch, so a violation is a bug.
func Encode(e Entry) []byte {
	if !e.valid() {
		panic("tiercache: encoding invalid entry")
	}

	buf := make([]byte, 0, header+len(e.Payload))
	buf = append(buf, magic4[:]...)
	buf = append(buf, version)
	buf = binary.BigEndian.AppendUint64(buf, uint64(e.CachedAt))
	buf = binary.BigEndian.AppendUint64(buf, uint64(e.ExpiresAt))
	buf = binary.BigEndian.AppendUint64(buf, uint64(e.LastAccessedAt))
	buf = binary.BigEndian.AppendUint32(buf, e.AccessCount)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(e.Payload)))
	buf = append(buf, e.Payload...)
	return buf
}

// Decode parses an envelope, enforcing strict framing and the metadata
// invariants (expiresAt > cachedAt, lastAccessedAt >= cachedAt).
func Decode(b []byte) (Entry, error) {
	if len(b) < header || !hasMagic(b) || b[4] != version {
		return Entry{}, ErrCorrupt
	}

	off := 5
	e := Entry{
		CachedAt:       int64(binary.BigEndian.Uint64(b[off : off+8])),
		ExpiresAt:      int64(binary.BigEndian.Uint64(b[off+8 : off+16])),
		LastAccessedAt: int64(binary.BigEndian.Uint64(b[off+16 : off+24])),
		AccessCount:    binary.BigEndian.Uint32(b[off+24 : off+28]),
	}
	off += 28

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // strict: no trailing bytes
		return Entry{}, ErrCorrupt
	}
	e.Payload = b[off : off+vlen]

	if !e.valid() {
		return Entry{}, ErrCorrupt
	}
	return e, nil
}

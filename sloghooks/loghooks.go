package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/tiercache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery    uint64
	TierSkippedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	skippedCtr  atomic.Uint64
}

var _ tiercache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(tier, storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("tiercache.self_heal",
		"tier", tier,
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) TierSkipped(tier, reason string) {
	if h.l == nil || !sample(h.opts.TierSkippedEvery, &h.skippedCtr) {
		return
	}
	h.l.Debug("tiercache.tier_skipped",
		"tier", tier,
		"reason", reason)
}

func (h *Hooks) WriteFailed(tier, storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("tiercache.write_failed",
		"tier", tier,
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) AllWritesFailed(storageKey string, attempted int) {
	if h.l == nil {
		return
	}
	h.l.Error("tiercache.all_writes_failed",
		"key", h.redact(storageKey),
		"attempted", attempted)
}

func (h *Hooks) Promoted(storageKey, fromTier string) {
	if h.l == nil {
		return
	}
	h.l.Debug("tiercache.promoted",
		"key", h.redact(storageKey),
		"from", fromTier)
}

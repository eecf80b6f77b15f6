package sweeper

import (
	"context"
	"time"

	"authgate/internal/store"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically reclaims expired revocation-ledger rows. One
// instance runs for the lifetime of the process. Sweeping is pure garbage
// collection: authentication checks expiry independently, so a delayed or
// failed sweep only costs storage, never correctness.
type Sweeper struct {
	store    *store.Store
	interval time.Duration
	log      *logrus.Logger

	// observe is called after each cycle with rows swept and any error.
	observe func(swept int64, err error)
}

// New builds a sweeper. The interval should equal the token TTL so no
// revoked token outlives two cycles.
func New(s *store.Store, interval time.Duration, log *logrus.Logger) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Sweeper{store: s, interval: interval, log: log}
}

// WithObserver sets a per-cycle callback (used for metrics).
func (sw *Sweeper) WithObserver(fn func(swept int64, err error)) *Sweeper {
	sw.observe = fn
	return sw
}

// Run loops until ctx is cancelled: sweep, sleep one interval, repeat.
// Cancellation is observed only at the tick boundary; each cycle's deletion
// is a single atomic statement, so shutdown can never leave a sweep half
// applied. Store failures are logged and the loop continues — a missed
// cycle just delays garbage collection.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			sw.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			sw.sweep(ctx)
		}
	}
}

func (sw *Sweeper) sweep(ctx context.Context) {
	swept, err := sw.store.SweepRevoked(ctx, time.Now())
	if sw.observe != nil {
		sw.observe(swept, err)
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		sw.log.WithError(err).Warn("revocation sweep failed; will retry next cycle")
		return
	}
	if swept > 0 {
		sw.log.WithField("rows", swept).Debug("reclaimed expired revoked tokens")
	}
}

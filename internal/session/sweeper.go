package session

import (
	"context"
	"log/slog"
	"time"
)

const defaultSweepInterval = time.Hour

// Sweeper periodically deletes each user's oldest sessions beyond the
// retention count. Manual pruning via the API remains available; the sweeper
// only keeps the store from growing without bound.
type Sweeper struct {
	mgr      *Manager
	keep     int
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper retaining keep sessions per user. If interval
// is <= 0, it defaults to one hour.
func NewSweeper(mgr *Manager, keep int, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		mgr:      mgr,
		keep:     keep,
		interval: interval,
		logger:   slog.Default(),
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(sw.interval):
		}

		if err := sw.RunOnce(); err != nil {
			sw.logger.Error("retention sweep failed", "error", err)
		}
	}
}

// RunOnce prunes every known user down to the retention count.
func (sw *Sweeper) RunOnce() error {
	users, err := sw.mgr.deps.Store.ListSessionUsers()
	if err != nil {
		return err
	}

	for _, user := range users {
		deleted, err := sw.mgr.Prune(user, sw.keep)
		if err != nil {
			sw.logger.Warn("pruning user sessions failed", "user", user, "error", err)
			continue
		}
		if deleted > 0 {
			sw.logger.Info("pruned old sessions", "user", user, "deleted", deleted)
		}
	}
	return nil
}

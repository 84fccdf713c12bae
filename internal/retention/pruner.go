// Package retention prunes old heartbeat-log rows in the background.
package retention

import (
	"context"
	"time"

	"armbian-monitor-backend/internal/logs"
	"armbian-monitor-backend/internal/store"
)

// Pruner periodically deletes heartbeat-log entries older than the
// retention window. The device rows themselves are untouched.
type Pruner struct {
	store    store.Store
	window   time.Duration
	interval time.Duration

	// Now is the clock used for the cutoff; replaced in tests.
	Now func() time.Time
}

// NewPruner creates a pruner keeping retentionDays of history and running
// every interval.
func NewPruner(s store.Store, retentionDays int, interval time.Duration) *Pruner {
	return &Pruner{
		store:    s,
		window:   time.Duration(retentionDays) * 24 * time.Hour,
		interval: interval,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run prunes once immediately, then on every tick until ctx is cancelled.
func (p *Pruner) Run(ctx context.Context) {
	logs.Logger.Infof("starting retention pruner: window=%s interval=%s", p.window, p.interval)

	p.PruneOnce(ctx)

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logs.Logger.Info("retention pruner shutting down")
			return
		case <-timer.C:
			p.PruneOnce(ctx)
			timer.Reset(p.interval)
		}
	}
}

// PruneOnce performs a single pruning pass.
func (p *Pruner) PruneOnce(ctx context.Context) {
	cutoff := p.Now().Add(-p.window)
	removed, err := p.store.PruneHeartbeatLogs(ctx, cutoff)
	if err != nil {
		logs.Logger.Errorf("retention prune failed: %v", err)
		return
	}
	if removed > 0 {
		logs.Logger.Infof("retention prune removed %d heartbeat log rows", removed)
	}
}

package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
	"github.com/gyaneshwarpardhi/imposter/internal/metrics"
	"github.com/gyaneshwarpardhi/imposter/internal/store"
)

// Poller periodically syncs every active resource of one kind. Provider
// errors are logged and retried on the next cycle, never within one.
type Poller struct {
	store    store.Store
	sync     *Syncer
	kind     identity.Kind
	interval time.Duration
	timeout  time.Duration
}

// NewPoller creates a Poller ticking at interval with a per-resource
// request timeout.
func NewPoller(st store.Store, sy *Syncer, kind identity.Kind, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Poller{store: st, sync: sy, kind: kind, interval: interval, timeout: timeout}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	resources, err := p.store.ListActive(ctx, p.kind)
	if err != nil {
		slog.Error("poller: list active failed", "kind", p.kind, "err", err)
		return
	}
	for _, res := range resources {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		n, err := p.sync.Sync(callCtx, res)
		cancel()
		if err != nil {
			metrics.SyncFailures.Inc()
			slog.Warn("poller: sync failed", "kind", p.kind, "key", res.Key, "err", err)
			continue
		}
		if n > 0 {
			slog.Info("poller: new events", "kind", p.kind, "key", res.Key, "count", n)
		}
	}
}

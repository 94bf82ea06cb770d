// Package syncer reconciles a resource's local event list against its
// provider, inserting only events whose provider id has not been seen.
package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/gyaneshwarpardhi/imposter/internal/broadcast"
	"github.com/gyaneshwarpardhi/imposter/internal/identity"
	"github.com/gyaneshwarpardhi/imposter/internal/metrics"
	"github.com/gyaneshwarpardhi/imposter/internal/provider"
	"github.com/gyaneshwarpardhi/imposter/internal/store"
)

// Syncer runs the dedup/sync cycle for resources of one kind.
type Syncer struct {
	store  store.Store
	source provider.EventSource
	broker *broadcast.Broker
}

// New creates a Syncer over the given event source.
func New(st store.Store, src provider.EventSource, br *broadcast.Broker) *Syncer {
	return &Syncer{store: st, source: src, broker: br}
}

// Sync fetches the remote event listing for res, inserts every event not
// yet present locally, broadcasts each insert in arrival order, and
// returns the inserted count. An empty remote listing short-circuits
// before any detail fetch.
func (s *Syncer) Sync(ctx context.Context, res *identity.Resource) (int, error) {
	start := time.Now()
	defer func() {
		metrics.SyncDuration.Observe(float64(time.Since(start).Milliseconds()))
	}()

	summaries, err := s.source.FetchEvents(ctx, res)
	if err != nil {
		return 0, err
	}
	if len(summaries) == 0 {
		return 0, nil
	}

	local, err := s.store.Events(ctx, res.Kind, res.Key)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(local))
	for i := range local {
		seen[local[i].DedupKey()] = struct{}{}
	}

	inserted := 0
	for _, sum := range summaries {
		if sum.RemoteID == "" {
			continue
		}
		if _, ok := seen[sum.RemoteID]; ok {
			continue
		}
		ev, err := s.source.FetchEventDetail(ctx, res, sum.RemoteID)
		if err != nil {
			return inserted, err
		}
		if err := s.store.AppendEvent(ctx, res.Kind, res.Key, ev); err != nil {
			if errors.Is(err, identity.ErrDuplicateEvent) {
				continue
			}
			return inserted, err
		}
		seen[sum.RemoteID] = struct{}{}
		s.broker.Publish(res.Room(), identity.EventName(res.Kind), *ev)
		metrics.EventsSynced.WithLabelValues(string(res.Kind)).Inc()
		inserted++
	}
	return inserted, nil
}

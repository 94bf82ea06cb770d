package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
)

// ClearAll soft-deletes every active resource of every kind. Pending
// expiry timers are left armed; their soft deletes are idempotent no-ops.
func (s *Service) ClearAll(ctx context.Context) error {
	for _, kind := range identity.Kinds {
		n, err := s.store.ClearAll(ctx, kind)
		if err != nil {
			return err
		}
		if n > 0 {
			slog.Info("settings: cleared", "kind", kind, "count", n)
		}
	}
	return nil
}

// PurgeExpired hard-removes soft-deleted and expired resources. Exposed to
// the authenticated cleanup endpoint for scheduled invocation.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	return s.store.PurgeExpired(ctx, time.Now())
}

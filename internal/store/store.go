package store

import (
	"context"
	"time"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
)

// Store is the registry of disposable resources and their event lists.
// All mutations of a resource go through these operations; nothing else
// touches the underlying state.
type Store interface {
	// Create registers a new resource. The key must be unused among
	// non-deleted resources of the same kind.
	Create(ctx context.Context, res *identity.Resource) error

	// Get returns a resource by key, excluding soft-deleted ones.
	Get(ctx context.Context, kind identity.Kind, key string) (*identity.Resource, error)

	// ListActive enumerates resources of a kind that are neither deleted
	// nor past their expiry.
	ListActive(ctx context.Context, kind identity.Kind) ([]*identity.Resource, error)

	// SoftDelete marks a resource deleted. Idempotent; unknown keys are a
	// no-op.
	SoftDelete(ctx context.Context, kind identity.Kind, key string) error

	// ClearAll soft-deletes every active resource of a kind and returns
	// how many were affected.
	ClearAll(ctx context.Context, kind identity.Kind) (int, error)

	// SetLocked updates the lock flag on a card resource.
	SetLocked(ctx context.Context, kind identity.Kind, key string, locked bool) error

	// AppendEvent attaches an event to a resource. Returns ErrLocked for
	// transactions on locked cards and ErrDuplicateEvent when the event's
	// remote id is already present.
	AppendEvent(ctx context.Context, kind identity.Kind, key string, ev *identity.Event) error

	// Events returns the resource's events sorted newest-first.
	Events(ctx context.Context, kind identity.Kind, key string) ([]identity.Event, error)

	// PurgeExpired hard-removes resources (and their events) that are
	// soft-deleted or past expiry. Returns the number of resources removed.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)

	// HealthCheck verifies the backing storage is reachable.
	HealthCheck(ctx context.Context) error
}

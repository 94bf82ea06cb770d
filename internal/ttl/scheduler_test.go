package ttl

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
)

type expiryRecorder struct {
	mu    sync.Mutex
	fired []string
}

func (r *expiryRecorder) expire(kind identity.Kind, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, identity.Room(kind, key))
}

func (r *expiryRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fired...)
}

func TestSchedulerFiresDueEntries(t *testing.T) {
	rec := &expiryRecorder{}
	s := New(rec.expire, time.Second)

	now := time.Now()
	s.Schedule(identity.KindEmail, "a@x.dev", now.Add(-time.Second))
	s.Schedule(identity.KindPhone, "+94711234567", now.Add(time.Hour))

	n := s.ExpireDue(now)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"email:a@x.dev"}, rec.seen())
	assert.Equal(t, 1, s.Pending())

	// Nothing further is due; no double-fire.
	assert.Zero(t, s.ExpireDue(now))
}

func TestSchedulerRescheduleReplacesEntry(t *testing.T) {
	rec := &expiryRecorder{}
	s := New(rec.expire, time.Second)

	now := time.Now()
	s.Schedule(identity.KindEmail, "a@x.dev", now.Add(time.Minute))
	s.Schedule(identity.KindEmail, "a@x.dev", now.Add(-time.Second))

	require.Equal(t, 1, s.Pending())
	assert.Equal(t, 1, s.ExpireDue(now))
	assert.Equal(t, []string{"email:a@x.dev"}, rec.seen())
	assert.Zero(t, s.Pending())
}

func TestSchedulerCancel(t *testing.T) {
	rec := &expiryRecorder{}
	s := New(rec.expire, time.Second)

	now := time.Now()
	s.Schedule(identity.KindCard, "card-1", now.Add(-time.Second))
	s.Cancel(identity.KindCard, "card-1")

	assert.Zero(t, s.Pending())
	assert.Zero(t, s.ExpireDue(now))
	assert.Empty(t, rec.seen())

	// Cancelling something never scheduled is a no-op.
	s.Cancel(identity.KindCard, "card-2")
}

func TestSchedulerFiresInDeadlineOrder(t *testing.T) {
	rec := &expiryRecorder{}
	s := New(rec.expire, time.Second)

	now := time.Now()
	s.Schedule(identity.KindEmail, "late@x.dev", now.Add(-time.Second))
	s.Schedule(identity.KindEmail, "early@x.dev", now.Add(-time.Minute))

	assert.Equal(t, 2, s.ExpireDue(now))
	assert.Equal(t, []string{"email:early@x.dev", "email:late@x.dev"}, rec.seen())
}

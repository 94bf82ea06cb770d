package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
)

type recordKey struct {
	kind identity.Kind
	key  string
}

type record struct {
	res    identity.Resource
	events []identity.Event
}

// Memory is the in-process Store used when no database is configured.
type Memory struct {
	mu      sync.RWMutex
	records map[recordKey]*record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[recordKey]*record)}
}

func (m *Memory) Create(_ context.Context, res *identity.Resource) error {
	if res.Key == "" || !res.Kind.Valid() {
		return identity.ErrValidation
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	k := recordKey{res.Kind, res.Key}
	if existing, ok := m.records[k]; ok && !existing.res.Deleted {
		return identity.ErrValidation
	}
	m.records[k] = &record{res: *res}
	return nil
}

func (m *Memory) Get(_ context.Context, kind identity.Kind, key string) (*identity.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[recordKey{kind, key}]
	if !ok || rec.res.Deleted {
		return nil, identity.ErrNotFound
	}
	res := rec.res
	return &res, nil
}

func (m *Memory) ListActive(_ context.Context, kind identity.Kind) ([]*identity.Resource, error) {
	now := time.Now()
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*identity.Resource, 0)
	for k, rec := range m.records {
		if k.kind != kind || rec.res.Deleted || rec.res.Expired(now) {
			continue
		}
		res := rec.res
		out = append(out, &res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) SoftDelete(_ context.Context, kind identity.Kind, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[recordKey{kind, key}]; ok {
		rec.res.Deleted = true
	}
	return nil
}

func (m *Memory) ClearAll(_ context.Context, kind identity.Kind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, rec := range m.records {
		if k.kind == kind && !rec.res.Deleted {
			rec.res.Deleted = true
			n++
		}
	}
	return n, nil
}

func (m *Memory) SetLocked(_ context.Context, kind identity.Kind, key string, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[recordKey{kind, key}]
	if !ok || rec.res.Deleted {
		return identity.ErrNotFound
	}
	rec.res.Locked = locked
	return nil
}

func (m *Memory) AppendEvent(_ context.Context, kind identity.Kind, key string, ev *identity.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[recordKey{kind, key}]
	if !ok || rec.res.Deleted {
		return identity.ErrNotFound
	}
	if kind == identity.KindCard && rec.res.Locked && ev.Transaction != nil {
		return identity.ErrLocked
	}
	if ev.RemoteID != "" {
		for i := range rec.events {
			if rec.events[i].RemoteID == ev.RemoteID {
				return identity.ErrDuplicateEvent
			}
		}
	}
	e := *ev
	e.ResourceKey = key
	rec.events = append(rec.events, e)
	return nil
}

func (m *Memory) Events(_ context.Context, kind identity.Kind, key string) ([]identity.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[recordKey{kind, key}]
	if !ok || rec.res.Deleted {
		return nil, identity.ErrNotFound
	}
	out := make([]identity.Event, len(rec.events))
	copy(out, rec.events)
	// Read contract is newest-first regardless of insertion order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, rec := range m.records {
		if rec.res.Deleted || rec.res.Expired(now) {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) HealthCheck(context.Context) error {
	return nil
}

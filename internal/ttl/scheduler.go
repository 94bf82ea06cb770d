// Package ttl arms one-shot expiry actions for disposable resources.
//
// Instead of one native timer per resource, a single goroutine polls a
// min-heap of (expiry time, key) pairs on a fixed tick. Rescheduling a key
// lazily cancels the prior heap entry, so at most one entry per key is live.
package ttl

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
)

// ExpireFunc is invoked outside the scheduler lock when a key's TTL elapses.
type ExpireFunc func(kind identity.Kind, key string)

type entry struct {
	kind      identity.Kind
	key       string
	at        time.Time
	cancelled bool
	index     int
}

// Scheduler holds pending expiries and fires them from Run.
type Scheduler struct {
	mu      sync.Mutex
	heap    entryHeap
	entries map[string]*entry
	expire  ExpireFunc
	tick    time.Duration
}

// New creates a Scheduler firing expire for each elapsed key. The heap is
// polled once per tick; a zero tick defaults to one second.
func New(expire ExpireFunc, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = time.Second
	}
	return &Scheduler{
		entries: make(map[string]*entry),
		expire:  expire,
		tick:    tick,
	}
}

// Schedule arms (or re-arms) expiry of a key at the given time.
func (s *Scheduler) Schedule(kind identity.Kind, key string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := identity.Room(kind, key)
	if prev, ok := s.entries[room]; ok {
		prev.cancelled = true
	}
	e := &entry{kind: kind, key: key, at: at}
	s.entries[room] = e
	heap.Push(&s.heap, e)
}

// Cancel disarms a pending expiry, if any.
func (s *Scheduler) Cancel(kind identity.Kind, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := identity.Room(kind, key)
	if e, ok := s.entries[room]; ok {
		e.cancelled = true
		delete(s.entries, room)
	}
}

// Pending returns the number of armed (non-cancelled) expiries.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ExpireDue fires every entry due at or before now and returns how many
// fired. Run calls this on each tick; tests may call it directly.
func (s *Scheduler) ExpireDue(now time.Time) int {
	s.mu.Lock()
	var due []*entry
	for s.heap.Len() > 0 {
		top := s.heap[0]
		if top.cancelled {
			heap.Pop(&s.heap)
			continue
		}
		if top.at.After(now) {
			break
		}
		heap.Pop(&s.heap)
		delete(s.entries, identity.Room(top.kind, top.key))
		due = append(due, top)
	}
	s.mu.Unlock()

	for _, e := range due {
		s.expire(e.kind, e.key)
	}
	return len(due)
}

// Run polls the heap until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.ExpireDue(now)
		}
	}
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x interface{}) { e := x.(*entry); e.index = len(*h); *h = append(*h, e) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

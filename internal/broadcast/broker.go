// Package broadcast fans out new events to realtime subscribers.
//
// Rooms are named "{kind}:{key}". Delivery is best-effort: only subscribers
// connected at publish time receive the frame, and a subscriber whose buffer
// is full has the frame dropped rather than blocking the publisher.
package broadcast

import (
	"sync"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
	"github.com/gyaneshwarpardhi/imposter/internal/metrics"
)

// Envelope is one frame on a subscriber channel.
type Envelope struct {
	Event string         `json:"event"`
	Data  identity.Event `json:"data"`
}

// Subscriber receives frames for a single room on C until unsubscribed.
type Subscriber struct {
	C    chan Envelope
	room string
}

// Room returns the room this subscriber joined.
func (s *Subscriber) Room() string { return s.room }

// Broker routes published events to room subscribers.
type Broker struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Subscriber]struct{}
	buffer int
}

// New creates a Broker whose subscriber channels buffer up to buffer frames.
func New(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broker{
		rooms:  make(map[string]map[*Subscriber]struct{}),
		buffer: buffer,
	}
}

// Subscribe joins a room. The caller must Unsubscribe when done.
func (b *Broker) Subscribe(room string) *Subscriber {
	sub := &Subscriber{C: make(chan Envelope, b.buffer), room: room}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rooms[room] == nil {
		b.rooms[room] = make(map[*Subscriber]struct{})
	}
	b.rooms[room][sub] = struct{}{}
	metrics.ActiveSubscribers.Inc()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call once.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.rooms[sub.room]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.rooms, sub.room)
	}
	close(sub.C)
	metrics.ActiveSubscribers.Dec()
}

// Publish delivers an event to every current subscriber of the room and
// returns how many received it.
func (b *Broker) Publish(room, event string, ev identity.Event) int {
	env := Envelope{Event: event, Data: ev}

	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for sub := range b.rooms[room] {
		select {
		case sub.C <- env:
			delivered++
		default:
			metrics.BroadcastDropped.Inc()
		}
	}
	if delivered > 0 {
		metrics.EventsBroadcast.WithLabelValues(event).Add(float64(delivered))
	}
	return delivered
}

// Subscribers returns the current subscriber count for a room.
func (b *Broker) Subscribers(room string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[room])
}

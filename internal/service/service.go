// Package service orchestrates the resource stores, providers, TTL
// scheduler, and broadcaster behind the HTTP surface and the simulation
// generator. All resource mutations flow through here.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/imposter/internal/broadcast"
	"github.com/gyaneshwarpardhi/imposter/internal/identity"
	"github.com/gyaneshwarpardhi/imposter/internal/metrics"
	"github.com/gyaneshwarpardhi/imposter/internal/provider"
	"github.com/gyaneshwarpardhi/imposter/internal/store"
	"github.com/gyaneshwarpardhi/imposter/internal/syncer"
	"github.com/gyaneshwarpardhi/imposter/internal/ttl"
)

// Default TTLs, overridable via config or the settings endpoint.
const (
	DefaultEmailTTL = 10 * time.Minute
	DefaultPhoneTTL = 10 * time.Minute
	DefaultCardTTL  = 24 * time.Hour
)

// Service exposes the per-kind operations of the disposable identity
// system. Providers are fixed at construction; there is no runtime
// fallback between external and simulated variants.
type Service struct {
	store  store.Store
	sched  *ttl.Scheduler
	broker *broadcast.Broker
	mail   provider.MailProvider
	phones provider.PhoneProvider
	cards  provider.CardProvider
	inbox  *syncer.Syncer

	mu   sync.RWMutex
	ttls map[identity.Kind]time.Duration
}

// New wires a Service. inbox is the sync engine for email resources.
func New(
	st store.Store,
	sched *ttl.Scheduler,
	br *broadcast.Broker,
	mail provider.MailProvider,
	phones provider.PhoneProvider,
	cards provider.CardProvider,
	inbox *syncer.Syncer,
) *Service {
	return &Service{
		store:  st,
		sched:  sched,
		broker: br,
		mail:   mail,
		phones: phones,
		cards:  cards,
		inbox:  inbox,
		ttls: map[identity.Kind]time.Duration{
			identity.KindEmail: DefaultEmailTTL,
			identity.KindPhone: DefaultPhoneTTL,
			identity.KindCard:  DefaultCardTTL,
		},
	}
}

// TTL returns the current lifetime applied to new resources of a kind.
func (s *Service) TTL(kind identity.Kind) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ttls[kind]
}

// SetTTL changes the lifetime for resources created from now on. Already
// scheduled expiries are untouched.
func (s *Service) SetTTL(kind identity.Kind, d time.Duration) error {
	if !kind.Valid() || d <= 0 {
		return identity.ErrValidation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttls[kind] = d
	return nil
}

// ApplyTTLs installs per-kind lifetimes in bulk; zero values keep the
// current setting. Used on startup and config hot reload.
func (s *Service) ApplyTTLs(email, phone, card time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if email > 0 {
		s.ttls[identity.KindEmail] = email
	}
	if phone > 0 {
		s.ttls[identity.KindPhone] = phone
	}
	if card > 0 {
		s.ttls[identity.KindCard] = card
	}
}

// register stores a freshly created resource and arms its expiry.
func (s *Service) register(ctx context.Context, res *identity.Resource) error {
	if err := s.store.Create(ctx, res); err != nil {
		return err
	}
	s.sched.Schedule(res.Kind, res.Key, res.ExpiresAt)
	metrics.ResourcesCreated.WithLabelValues(string(res.Kind)).Inc()
	return nil
}

// appendAndBroadcast routes an event through the store invariants and, on
// success, publishes it to the resource's room.
func (s *Service) appendAndBroadcast(ctx context.Context, kind identity.Kind, key string, ev *identity.Event) error {
	if err := s.store.AppendEvent(ctx, kind, key, ev); err != nil {
		return err
	}
	s.broker.Publish(identity.Room(kind, key), identity.EventName(kind), *ev)
	return nil
}

// remove soft-deletes a resource and disarms its timer so a reused key
// cannot be expired by a stale entry.
func (s *Service) remove(ctx context.Context, kind identity.Kind, key string) error {
	if err := s.store.SoftDelete(ctx, kind, key); err != nil {
		return err
	}
	s.sched.Cancel(kind, key)
	return nil
}

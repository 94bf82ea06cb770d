package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
	"github.com/gyaneshwarpardhi/imposter/internal/metrics"
)

// NewCard issues a virtual card through the card provider and registers it
// locally. The provider reference doubles as the resource key.
func (s *Service) NewCard(ctx context.Context) (*identity.Resource, error) {
	ref, details, err := s.cards.CreateCard(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res := &identity.Resource{
		Kind:        identity.KindCard,
		Key:         ref,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.TTL(identity.KindCard)),
		ProviderRef: ref,
		Card:        details,
	}
	if err := s.register(ctx, res); err != nil {
		slog.Error("card: local persist failed after remote create, remote card orphaned",
			"id", ref, "err", err)
		return nil, err
	}
	slog.Info("card: created", "id", res.Key, "real", details.Real, "expiresAt", res.ExpiresAt)
	return res, nil
}

// GetCard returns a card resource by id.
func (s *Service) GetCard(ctx context.Context, id string) (*identity.Resource, error) {
	return s.store.Get(ctx, identity.KindCard, id)
}

// ToggleLock flips the lock flag, synchronizing the provider first. When
// the provider update fails, local state is left unchanged and the error
// is surfaced.
func (s *Service) ToggleLock(ctx context.Context, id string) (*identity.Resource, error) {
	res, err := s.store.Get(ctx, identity.KindCard, id)
	if err != nil {
		return nil, err
	}
	target := !res.Locked
	if err := s.cards.SetLocked(ctx, res.ProviderRef, target); err != nil {
		return nil, err
	}
	if err := s.store.SetLocked(ctx, identity.KindCard, id, target); err != nil {
		return nil, err
	}
	res.Locked = target
	slog.Info("card: lock toggled", "id", id, "locked", target)
	return res, nil
}

// Transactions returns a card's transactions, newest first.
func (s *Service) Transactions(ctx context.Context, id string) ([]identity.Event, error) {
	return s.store.Events(ctx, identity.KindCard, id)
}

// AddTransaction appends an approved transaction to a card and broadcasts
// it. Locked cards reject the append with ErrLocked.
func (s *Service) AddTransaction(ctx context.Context, id, merchant string, amount float64, currency string) (*identity.Event, error) {
	if currency == "" {
		currency = "USD"
	}
	ev := &identity.Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Transaction: &identity.Transaction{
			Merchant: merchant,
			Amount:   amount,
			Currency: currency,
			Status:   "approved",
		},
	}
	if err := s.appendAndBroadcast(ctx, identity.KindCard, id, ev); err != nil {
		return nil, err
	}
	metrics.EventsSimulated.WithLabelValues(string(identity.KindCard)).Inc()
	return ev, nil
}

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
	"github.com/gyaneshwarpardhi/imposter/internal/metrics"
)

// NewPhone allocates a disposable phone number.
func (s *Service) NewPhone(ctx context.Context) (*identity.Resource, error) {
	number, err := s.phones.CreateNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res := &identity.Resource{
		Kind:      identity.KindPhone,
		Key:       number,
		CreatedAt: now,
		ExpiresAt: now.Add(s.TTL(identity.KindPhone)),
	}
	if err := s.register(ctx, res); err != nil {
		return nil, err
	}
	slog.Info("phone: created", "number", res.Key, "expiresAt", res.ExpiresAt)
	return res, nil
}

// PhoneMessages returns a number's messages, newest first.
func (s *Service) PhoneMessages(ctx context.Context, number string) ([]identity.Event, error) {
	return s.store.Events(ctx, identity.KindPhone, number)
}

// DeletePhone soft-deletes a number and cancels its expiry timer.
func (s *Service) DeletePhone(ctx context.Context, number string) error {
	return s.remove(ctx, identity.KindPhone, number)
}

// AddSMS appends one inbound SMS to a number and broadcasts it to the
// number's room. Empty from/body fall back to placeholder values.
func (s *Service) AddSMS(ctx context.Context, number, from, body string) (*identity.Event, error) {
	if from == "" {
		from = "System"
	}
	if body == "" {
		body = "Test message"
	}
	ev := &identity.Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Message:   &identity.Message{From: from, Body: body},
	}
	if err := s.appendAndBroadcast(ctx, identity.KindPhone, number, ev); err != nil {
		return nil, err
	}
	metrics.EventsSimulated.WithLabelValues(string(identity.KindPhone)).Inc()
	return ev, nil
}

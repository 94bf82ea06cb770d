package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
)

// NewEmail creates a disposable inbox through the mail provider and
// registers it locally. A provider failure surfaces as a ProviderError;
// if the local persist fails after the remote account exists, the orphaned
// remote account is logged (Mail.tm accounts expire on their own).
func (s *Service) NewEmail(ctx context.Context) (*identity.Resource, error) {
	acct, err := s.mail.CreateAddress(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res := &identity.Resource{
		Kind:          identity.KindEmail,
		Key:           acct.Address,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.TTL(identity.KindEmail)),
		ProviderRef:   acct.AccountID,
		ProviderToken: acct.Token,
	}
	if err := s.register(ctx, res); err != nil {
		slog.Error("email: local persist failed after remote create, remote account orphaned",
			"address", acct.Address, "err", err)
		return nil, err
	}
	slog.Info("email: created", "address", res.Key, "expiresAt", res.ExpiresAt)
	return res, nil
}

// SyncInbox runs one dedup/sync cycle for an address and returns the
// number of newly inserted messages.
func (s *Service) SyncInbox(ctx context.Context, address string) (int, error) {
	res, err := s.store.Get(ctx, identity.KindEmail, address)
	if err != nil {
		return 0, err
	}
	return s.inbox.Sync(ctx, res)
}

// Messages returns an inbox's messages, newest first.
func (s *Service) Messages(ctx context.Context, address string) ([]identity.Event, error) {
	return s.store.Events(ctx, identity.KindEmail, address)
}

// DeleteEmail soft-deletes an inbox and cancels its expiry timer.
func (s *Service) DeleteEmail(ctx context.Context, address string) error {
	return s.remove(ctx, identity.KindEmail, address)
}

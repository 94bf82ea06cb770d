// Package provider defines the capability interfaces that back each
// resource kind. The concrete variant (external or simulated) is chosen
// once at startup from configuration and injected; callers never fall back
// between variants at runtime.
package provider

import (
	"context"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
)

// MailAccount is the providerRef bundle for an email resource.
type MailAccount struct {
	Address   string
	AccountID string
	Token     string
}

// MailProvider allocates inbox addresses.
type MailProvider interface {
	CreateAddress(ctx context.Context) (*MailAccount, error)
}

// PhoneProvider allocates phone numbers.
type PhoneProvider interface {
	CreateNumber(ctx context.Context) (string, error)
}

// CardProvider issues virtual cards and mirrors lock state remotely.
type CardProvider interface {
	// CreateCard returns the provider reference (the resource key for
	// external cards) and the displayable details.
	CreateCard(ctx context.Context) (ref string, details *identity.CardDetails, err error)

	// SetLocked synchronizes the lock flag with the provider. Callers must
	// not change local state when this fails.
	SetLocked(ctx context.Context, ref string, locked bool) error
}

// EventSummary is one entry of a provider's event listing. List endpoints
// return summaries only; the full payload needs a detail fetch.
type EventSummary struct {
	RemoteID string
}

// EventSource exposes a resource's remote events for the sync engine.
type EventSource interface {
	FetchEvents(ctx context.Context, res *identity.Resource) ([]EventSummary, error)
	FetchEventDetail(ctx context.Context, res *identity.Resource, remoteID string) (*identity.Event, error)
}

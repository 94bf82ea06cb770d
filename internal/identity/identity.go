package identity

import "time"

// Kind discriminates the three disposable identity types.
type Kind string

const (
	KindEmail Kind = "email"
	KindPhone Kind = "phone"
	KindCard  Kind = "card"
)

// Kinds lists every valid kind, in a stable order.
var Kinds = []Kind{KindEmail, KindPhone, KindCard}

func (k Kind) Valid() bool {
	switch k {
	case KindEmail, KindPhone, KindCard:
		return true
	}
	return false
}

// EventName returns the push event name used on the realtime channel.
func EventName(k Kind) string {
	switch k {
	case KindPhone:
		return "new-sms"
	case KindCard:
		return "new-transaction"
	default:
		return "new-email"
	}
}

// Room returns the subscription scope for a resource, e.g. "email:a@b.c".
func Room(k Kind, key string) string {
	return string(k) + ":" + key
}

// Resource is a disposable identity instance: an email address, a phone
// number, or a virtual card. The key is the primary lookup handle (the
// address, the number, or the card id).
type Resource struct {
	Kind          Kind         `json:"kind"`
	Key           string       `json:"key"`
	CreatedAt     time.Time    `json:"createdAt"`
	ExpiresAt     time.Time    `json:"expiresAt"`
	ProviderRef   string       `json:"-"`
	ProviderToken string       `json:"-"`
	Locked        bool         `json:"locked"`
	Deleted       bool         `json:"-"`
	Card          *CardDetails `json:"card,omitempty"`
}

// Room returns the broadcast room for this resource.
func (r *Resource) Room() string {
	return Room(r.Kind, r.Key)
}

// Expired reports whether the resource's TTL has elapsed at now.
func (r *Resource) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// CardDetails holds the displayable card attributes. Real provider cards
// carry masked number and CVV; only simulated cards expose full values.
type CardDetails struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
	Holder string `json:"holder"`
	Limit  int    `json:"limit"`
	Real   bool   `json:"isReal"`
}

// Event is a message or transaction attached to a resource. Exactly one of
// Message or Transaction is set, matching the resource kind.
type Event struct {
	ID          string       `json:"id"`
	RemoteID    string       `json:"remoteId,omitempty"`
	ResourceKey string       `json:"-"`
	Timestamp   time.Time    `json:"timestamp"`
	Message     *Message     `json:"message,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// DedupKey is the identifier used to reject duplicate inserts: the
// provider-assigned id when present, the local id otherwise.
func (e *Event) DedupKey() string {
	if e.RemoteID != "" {
		return e.RemoteID
	}
	return e.ID
}

// Message is the payload of an inbound email or SMS.
type Message struct {
	From    string `json:"from"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
	Text    string `json:"text,omitempty"`
	Read    bool   `json:"read"`
}

// Transaction is the payload of a card authorization.
type Transaction struct {
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
}

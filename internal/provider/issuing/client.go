// Package issuing is the external card provider adapter. It speaks a
// Stripe-compatible issuing API: cardholder plus virtual card creation,
// status updates for lock mirroring, and authorization listings as the
// card's event source. Card numbers and CVVs from this variant are always
// masked; the full PAN is never requested.
package issuing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
	"github.com/gyaneshwarpardhi/imposter/internal/metrics"
	"github.com/gyaneshwarpardhi/imposter/internal/provider"
)

const DefaultBaseURL = "https://api.stripe.com"

// Client talks to the issuing API with a fixed secret key.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

// New creates a Client with a bounded request timeout.
func New(baseURL, secretKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
	}
}

type cardholderResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type cardResponse struct {
	ID       string `json:"id"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	Status   string `json:"status"`
}

type authorization struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	Created      int64  `json:"created"`
	MerchantData struct {
		Name string `json:"name"`
	} `json:"merchant_data"`
}

type authorizationList struct {
	Data []authorization `json:"data"`
}

// CreateCard provisions a cardholder and an active virtual card. The
// returned details carry only the masked number and CVV.
func (c *Client) CreateCard(ctx context.Context) (string, *identity.CardDetails, error) {
	holder := url.Values{}
	holder.Set("name", "One ID User")
	holder.Set("email", "user@oneid.lab")
	holder.Set("status", "active")
	holder.Set("type", "individual")
	holder.Set("billing[address][line1]", "123 Fake St")
	holder.Set("billing[address][city]", "San Francisco")
	holder.Set("billing[address][state]", "CA")
	holder.Set("billing[address][postal_code]", "94111")
	holder.Set("billing[address][country]", "US")

	var ch cardholderResponse
	if err := c.do(ctx, http.MethodPost, "/v1/issuing/cardholders", holder, &ch, "create_cardholder"); err != nil {
		return "", nil, err
	}

	form := url.Values{}
	form.Set("cardholder", ch.ID)
	form.Set("currency", "usd")
	form.Set("type", "virtual")
	form.Set("status", "active")

	var card cardResponse
	if err := c.do(ctx, http.MethodPost, "/v1/issuing/cards", form, &card, "create_card"); err != nil {
		return "", nil, err
	}

	details := &identity.CardDetails{
		Number: "**** **** **** " + card.Last4,
		Expiry: fmt.Sprintf("%02d/%02d", card.ExpMonth, card.ExpYear%100),
		CVV:    "***",
		Holder: ch.Name,
		Limit:  5000,
		Real:   true,
	}
	return card.ID, details, nil
}

// SetLocked mirrors the lock flag as card status active/inactive.
func (c *Client) SetLocked(ctx context.Context, ref string, locked bool) error {
	status := "active"
	if locked {
		status = "inactive"
	}
	form := url.Values{}
	form.Set("status", status)
	return c.do(ctx, http.MethodPost, "/v1/issuing/cards/"+ref, form, nil, "set_status")
}

// FetchEvents lists the most recent authorizations for a card.
func (c *Client) FetchEvents(ctx context.Context, res *identity.Resource) ([]provider.EventSummary, error) {
	path := "/v1/issuing/authorizations?card=" + url.QueryEscape(res.ProviderRef) + "&limit=10"
	var list authorizationList
	if err := c.do(ctx, http.MethodGet, path, nil, &list, "list_authorizations"); err != nil {
		return nil, err
	}
	out := make([]provider.EventSummary, 0, len(list.Data))
	for _, a := range list.Data {
		out = append(out, provider.EventSummary{RemoteID: a.ID})
	}
	return out, nil
}

// FetchEventDetail retrieves a single authorization as a transaction event.
// Amounts arrive in the minor unit and are converted to major units.
func (c *Client) FetchEventDetail(ctx context.Context, _ *identity.Resource, remoteID string) (*identity.Event, error) {
	var a authorization
	if err := c.do(ctx, http.MethodGet, "/v1/issuing/authorizations/"+remoteID, nil, &a, "get_authorization"); err != nil {
		return nil, err
	}
	merchant := a.MerchantData.Name
	if merchant == "" {
		merchant = "Unknown"
	}
	return &identity.Event{
		ID:        uuid.New().String(),
		RemoteID:  a.ID,
		Timestamp: time.Unix(a.Created, 0),
		Transaction: &identity.Transaction{
			Merchant: merchant,
			Amount:   float64(a.Amount) / 100,
			Currency: strings.ToUpper(a.Currency),
			Status:   a.Status,
		},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}, op string) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &identity.ProviderError{Op: "issuing." + op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ProviderRequestDuration.WithLabelValues("issuing", op).Observe(time.Since(start).Seconds())
	if err != nil {
		return &identity.ProviderError{Op: "issuing." + op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &identity.ProviderError{
			Op:  "issuing." + op,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &identity.ProviderError{Op: "issuing." + op, Err: err}
		}
	}
	return nil
}

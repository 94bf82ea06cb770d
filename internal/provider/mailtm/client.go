// Package mailtm is the external mail provider adapter, speaking the
// Mail.tm REST API: pick a domain, create an account plus JWT, then list
// and fetch messages on behalf of each inbox.
package mailtm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
	"github.com/gyaneshwarpardhi/imposter/internal/metrics"
	"github.com/gyaneshwarpardhi/imposter/internal/provider"
)

const DefaultBaseURL = "https://api.mail.tm"

const usernameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Client talks to one Mail.tm deployment. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu     sync.Mutex
	domain string
}

// New creates a Client with a bounded request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type domainsResponse struct {
	Members []struct {
		Domain string `json:"domain"`
	} `json:"hydra:member"`
}

type accountResponse struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type messageSummary struct {
	ID string `json:"id"`
}

type messagesResponse struct {
	Members []messageSummary `json:"hydra:member"`
}

type messageDetail struct {
	ID   string `json:"id"`
	From struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"from"`
	Subject   string    `json:"subject"`
	HTML      []string  `json:"html"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateAddress registers a random account under the provider's first
// advertised domain and obtains its JWT.
func (c *Client) CreateAddress(ctx context.Context) (*provider.MailAccount, error) {
	domain, err := c.ensureDomain(ctx)
	if err != nil {
		return nil, err
	}

	username := randUsername(10)
	address := username + "@" + domain
	password := uuid.New().String()

	body := map[string]string{"address": address, "password": password}
	var acct accountResponse
	if err := c.do(ctx, http.MethodPost, "/accounts", "", body, &acct, "create_account"); err != nil {
		return nil, err
	}

	var tok tokenResponse
	if err := c.do(ctx, http.MethodPost, "/token", "", body, &tok, "token"); err != nil {
		return nil, err
	}

	return &provider.MailAccount{Address: address, AccountID: acct.ID, Token: tok.Token}, nil
}

// FetchEvents lists message summaries for an inbox.
func (c *Client) FetchEvents(ctx context.Context, res *identity.Resource) ([]provider.EventSummary, error) {
	var msgs messagesResponse
	if err := c.do(ctx, http.MethodGet, "/messages", res.ProviderToken, nil, &msgs, "list_messages"); err != nil {
		return nil, err
	}
	out := make([]provider.EventSummary, 0, len(msgs.Members))
	for _, m := range msgs.Members {
		out = append(out, provider.EventSummary{RemoteID: m.ID})
	}
	return out, nil
}

// FetchEventDetail retrieves a full message and maps it into an Event.
// Body preference is HTML, then text, then a literal fallback.
func (c *Client) FetchEventDetail(ctx context.Context, res *identity.Resource, remoteID string) (*identity.Event, error) {
	var detail messageDetail
	path := "/messages/" + remoteID
	if err := c.do(ctx, http.MethodGet, path, res.ProviderToken, nil, &detail, "get_message"); err != nil {
		return nil, err
	}

	body := strings.Join(detail.HTML, "")
	if body == "" {
		body = detail.Text
	}
	if body == "" {
		body = "No content"
	}

	from := "Unknown"
	switch {
	case detail.From.Name != "":
		from = fmt.Sprintf("%s <%s>", detail.From.Name, detail.From.Address)
	case detail.From.Address != "":
		from = detail.From.Address
	}

	subject := detail.Subject
	if subject == "" {
		subject = "(No subject)"
	}

	ts := detail.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	return &identity.Event{
		ID:        uuid.New().String(),
		RemoteID:  detail.ID,
		Timestamp: ts,
		Message: &identity.Message{
			From:    from,
			Subject: subject,
			Body:    body,
			Text:    detail.Text,
		},
	}, nil
}

func (c *Client) ensureDomain(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.domain != "" {
		return c.domain, nil
	}
	var domains domainsResponse
	if err := c.do(ctx, http.MethodGet, "/domains", "", nil, &domains, "domains"); err != nil {
		return "", err
	}
	if len(domains.Members) == 0 {
		return "", &identity.ProviderError{Op: "mailtm.domains", Err: fmt.Errorf("no domains advertised")}
	}
	c.domain = domains.Members[0].Domain
	return c.domain, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}, op string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return &identity.ProviderError{Op: "mailtm." + op, Err: err}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &identity.ProviderError{Op: "mailtm." + op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ProviderRequestDuration.WithLabelValues("mailtm", op).Observe(time.Since(start).Seconds())
	if err != nil {
		return &identity.ProviderError{Op: "mailtm." + op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &identity.ProviderError{
			Op:  "mailtm." + op,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &identity.ProviderError{Op: "mailtm." + op, Err: err}
		}
	}
	return nil
}

func randUsername(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(usernameAlphabet[rand.Intn(len(usernameAlphabet))])
	}
	return b.String()
}

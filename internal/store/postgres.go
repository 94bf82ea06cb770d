package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
)

const schema = `
CREATE TABLE IF NOT EXISTS resources (
	kind           TEXT        NOT NULL,
	key            TEXT        NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	expires_at     TIMESTAMPTZ NOT NULL,
	provider_ref   TEXT        NOT NULL DEFAULT '',
	provider_token TEXT        NOT NULL DEFAULT '',
	locked         BOOLEAN     NOT NULL DEFAULT FALSE,
	deleted        BOOLEAN     NOT NULL DEFAULT FALSE,
	card           JSONB,
	PRIMARY KEY (kind, key)
);

CREATE TABLE IF NOT EXISTS events (
	id           TEXT        PRIMARY KEY,
	kind         TEXT        NOT NULL,
	resource_key TEXT        NOT NULL,
	remote_id    TEXT        NOT NULL DEFAULT '',
	ts           TIMESTAMPTZ NOT NULL,
	payload      JSONB       NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS events_remote_dedup
	ON events (kind, resource_key, remote_id) WHERE remote_id <> '';

CREATE INDEX IF NOT EXISTS events_resource_ts
	ON events (kind, resource_key, ts DESC);
`

// Postgres is the durable Store variant backed by pgx.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// InitSchema creates the tables and indexes if they do not exist.
func (p *Postgres) InitSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

type eventPayload struct {
	Message     *identity.Message     `json:"message,omitempty"`
	Transaction *identity.Transaction `json:"transaction,omitempty"`
}

func (p *Postgres) Create(ctx context.Context, res *identity.Resource) error {
	if res.Key == "" || !res.Kind.Valid() {
		return identity.ErrValidation
	}
	var card []byte
	if res.Card != nil {
		var err error
		card, err = json.Marshal(res.Card)
		if err != nil {
			return fmt.Errorf("marshal card: %w", err)
		}
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO resources (kind, key, created_at, expires_at, provider_ref, provider_token, locked, card)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		res.Kind, res.Key, res.CreatedAt, res.ExpiresAt, res.ProviderRef, res.ProviderToken, res.Locked, card)
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, kind identity.Kind, key string) (*identity.Resource, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT kind, key, created_at, expires_at, provider_ref, provider_token, locked, card
		FROM resources WHERE kind = $1 AND key = $2 AND NOT deleted`, kind, key)
	return scanResource(row)
}

func (p *Postgres) ListActive(ctx context.Context, kind identity.Kind) ([]*identity.Resource, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT kind, key, created_at, expires_at, provider_ref, provider_token, locked, card
		FROM resources
		WHERE kind = $1 AND NOT deleted AND expires_at > now()
		ORDER BY created_at`, kind)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	out := make([]*identity.Resource, 0)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (p *Postgres) SoftDelete(ctx context.Context, kind identity.Kind, key string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE resources SET deleted = TRUE WHERE kind = $1 AND key = $2`, kind, key)
	if err != nil {
		return fmt.Errorf("soft delete: %w", err)
	}
	return nil
}

func (p *Postgres) ClearAll(ctx context.Context, kind identity.Kind) (int, error) {
	tag, err := p.pool.Exec(ctx,
		`UPDATE resources SET deleted = TRUE WHERE kind = $1 AND NOT deleted`, kind)
	if err != nil {
		return 0, fmt.Errorf("clear all: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) SetLocked(ctx context.Context, kind identity.Kind, key string, locked bool) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE resources SET locked = $3 WHERE kind = $1 AND key = $2 AND NOT deleted`, kind, key, locked)
	if err != nil {
		return fmt.Errorf("set locked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (p *Postgres) AppendEvent(ctx context.Context, kind identity.Kind, key string, ev *identity.Event) error {
	res, err := p.Get(ctx, kind, key)
	if err != nil {
		return err
	}
	if kind == identity.KindCard && res.Locked && ev.Transaction != nil {
		return identity.ErrLocked
	}
	payload, err := json.Marshal(eventPayload{Message: ev.Message, Transaction: ev.Transaction})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO events (id, kind, resource_key, remote_id, ts, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING`,
		ev.ID, kind, key, ev.RemoteID, ev.Timestamp, payload)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrDuplicateEvent
	}
	return nil
}

func (p *Postgres) Events(ctx context.Context, kind identity.Kind, key string) ([]identity.Event, error) {
	if _, err := p.Get(ctx, kind, key); err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, remote_id, ts, payload
		FROM events WHERE kind = $1 AND resource_key = $2
		ORDER BY ts DESC`, kind, key)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]identity.Event, 0)
	for rows.Next() {
		var ev identity.Event
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.RemoteID, &ev.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var p eventPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		ev.ResourceKey = key
		ev.Message = p.Message
		ev.Transaction = p.Transaction
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (p *Postgres) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	if _, err := p.pool.Exec(ctx, `
		DELETE FROM events e USING resources r
		WHERE e.kind = r.kind AND e.resource_key = r.key
		  AND (r.deleted OR r.expires_at <= $1)`, now); err != nil {
		return 0, fmt.Errorf("purge events: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM resources WHERE deleted OR expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge resources: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) HealthCheck(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*identity.Resource, error) {
	var res identity.Resource
	var card []byte
	err := row.Scan(&res.Kind, &res.Key, &res.CreatedAt, &res.ExpiresAt,
		&res.ProviderRef, &res.ProviderToken, &res.Locked, &card)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan resource: %w", err)
	}
	if len(card) > 0 {
		res.Card = &identity.CardDetails{}
		if err := json.Unmarshal(card, res.Card); err != nil {
			return nil, fmt.Errorf("unmarshal card: %w", err)
		}
	}
	return &res, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tutorlink/tutorlink/internal/core"
	"github.com/tutorlink/tutorlink/internal/core/normalize"
)

// ResultCache persists normalized payloads in the result_cache table.
type ResultCache struct {
	store *Store
	now   func() time.Time
}

// NewResultCache wraps s as an engine result cache.
func NewResultCache(s *Store) *ResultCache {
	return &ResultCache{store: s, now: time.Now}
}

// Backend names the cache in metrics.
func (c *ResultCache) Backend() string { return "store" }

// Lookup returns the cached payload for env if present and not expired.
func (c *ResultCache) Lookup(ctx context.Context, env core.Envelope) (core.Payload, bool, error) {
	if c == nil || c.store == nil || c.store.DB == nil {
		return nil, false, errors.New("store is not initialized")
	}

	var (
		shape   string
		payload string
	)
	row := c.store.DB.QueryRowContext(ctx,
		`SELECT shape, payload_json FROM result_cache WHERE cache_key = ? AND expires_at > ?`,
		core.EnvelopeKey(env), c.now().UTC().UnixMilli(),
	)
	if err := row.Scan(&shape, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if core.Shape(shape) != env.Shape {
		return nil, false, nil
	}

	decoded, err := core.DecodePayload(env.Shape, []byte(payload))
	if err != nil {
		return nil, false, fmt.Errorf("decode cached %s: %w", shape, err)
	}
	return decoded, true, nil
}

// Store upserts payload with ttl. A non-positive ttl stores nothing.
func (c *ResultCache) Store(ctx context.Context, env core.Envelope, payload core.Payload, ttl time.Duration) error {
	if c == nil || c.store == nil || c.store.DB == nil {
		return errors.New("store is not initialized")
	}
	if ttl <= 0 || payload == nil {
		return nil
	}

	encoded, err := normalize.Canonical(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", payload.Shape(), err)
	}

	now := c.now().UTC()
	_, err = c.store.DB.ExecContext(ctx,
		`INSERT INTO result_cache (cache_key, shape, payload_json, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key)
		 DO UPDATE SET shape = excluded.shape,
		               payload_json = excluded.payload_json,
		               created_at = excluded.created_at,
		               expires_at = excluded.expires_at`,
		core.EnvelopeKey(env), string(env.Shape), encoded, now.UnixMilli(), now.Add(ttl).UnixMilli(),
	)
	return err
}

// Purge deletes expired entries and reports how many were removed.
func (c *ResultCache) Purge(ctx context.Context) (int64, error) {
	if c == nil || c.store == nil || c.store.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	res, err := c.store.DB.ExecContext(ctx,
		`DELETE FROM result_cache WHERE expires_at <= ?`, c.now().UTC().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

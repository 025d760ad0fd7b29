package promotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"booking-engine/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultCacheKey is where the active promotion set is cached.
const DefaultCacheKey = "cache:promotions:active"

// CachedSource serves the active promotion set from Redis, reading through
// to the backing Lister on a miss. Redis failures degrade to direct reads.
type CachedSource struct {
	client  redis.Cmdable
	backing Lister
	key     string
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewCachedSource creates a Redis-backed promotion source.
func NewCachedSource(client redis.Cmdable, backing Lister, ttl time.Duration, logger zerolog.Logger) *CachedSource {
	return &CachedSource{
		client:  client,
		backing: backing,
		key:     DefaultCacheKey,
		ttl:     ttl,
		logger:  logger.With().Str("component", "promotion-cache").Logger(),
	}
}

// ListActive returns the cached set, filling the cache on a miss.
func (c *CachedSource) ListActive(ctx context.Context) ([]model.Promotion, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var promotions []model.Promotion
		jsonErr := json.Unmarshal(data, &promotions)
		if jsonErr == nil {
			return promotions, nil
		}
		c.logger.Warn().Err(jsonErr).Msg("discarding unreadable cached promotions")
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn().Err(err).Msg("promotion cache read failed")
	}

	promotions, err := c.backing.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active promotions: %w", err)
	}

	payload, err := json.Marshal(promotions)
	if err != nil {
		return promotions, nil
	}
	if err := c.client.Set(ctx, c.key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("promotion cache write failed")
	}
	return promotions, nil
}

// Invalidate drops the cached set so the next read goes to the backing store.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate promotion cache: %w", err)
	}
	return nil
}

// directSource is a Source with no cache in front of it.
type directSource struct {
	Lister
}

// NewDirectSource wraps a Lister as an uncached Source.
func NewDirectSource(l Lister) Source {
	return directSource{Lister: l}
}

func (directSource) Invalidate(context.Context) error { return nil }

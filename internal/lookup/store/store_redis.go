package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"solarintake/internal/geodesy"
	"solarintake/internal/intake/models"
	"solarintake/internal/lookup/metrics"
	"solarintake/pkg/platform/sentinel"
)

const redisKeyPrefix = "solarintake:lookup:"

// RedisCache stores lookup results as JSON with Redis-side expiry.
type RedisCache struct {
	client  redis.UniversalClient
	ttl     TTLs
	metrics *metrics.Metrics
}

func NewRedisCache(client redis.UniversalClient, ttl TTLs, m *metrics.Metrics) *RedisCache {
	return &RedisCache{client: client, ttl: ttl.withDefaults(), metrics: m}
}

func postalKey(code string) string   { return redisKeyPrefix + kindPostal + ":" + code }
func geocodeKey(query string) string { return redisKeyPrefix + kindGeocode + ":" + NormalizeQuery(query) }

func (c *RedisCache) FindAddress(ctx context.Context, code string) (*models.AddressFragment, error) {
	var frag models.AddressFragment
	if err := c.get(ctx, kindPostal, postalKey(code), &frag); err != nil {
		return nil, err
	}
	return &frag, nil
}

func (c *RedisCache) SaveAddress(ctx context.Context, code string, frag models.AddressFragment) error {
	return c.set(ctx, postalKey(code), frag, c.ttl.Postal)
}

func (c *RedisCache) FindCoordinate(ctx context.Context, query string) (*geodesy.Coordinate, error) {
	var coord geodesy.Coordinate
	if err := c.get(ctx, kindGeocode, geocodeKey(query), &coord); err != nil {
		return nil, err
	}
	return &coord, nil
}

func (c *RedisCache) SaveCoordinate(ctx context.Context, query string, coord geodesy.Coordinate) error {
	return c.set(ctx, geocodeKey(query), coord, c.ttl.Geocode)
}

func (c *RedisCache) get(ctx context.Context, kind, key string, out any) error {
	start := time.Now()
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			recordMiss(c.metrics, kind, start)
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("redis get %s: %w", kind, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode cached %s: %w", kind, err)
	}
	recordHit(c.metrics, kind, start)
	return nil
}

func (c *RedisCache) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

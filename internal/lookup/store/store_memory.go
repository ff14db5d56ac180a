package store

import (
	"context"
	"sync"
	"time"

	"solarintake/internal/geodesy"
	"solarintake/internal/intake/models"
	"solarintake/internal/lookup/metrics"
	"solarintake/pkg/platform/sentinel"
)

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// InMemoryCache is a process-local TTL cache. When maxEntries is reached the
// oldest entry of that kind is evicted.
type InMemoryCache struct {
	mu         sync.RWMutex
	addresses  map[string]entry[models.AddressFragment]
	coords     map[string]entry[geodesy.Coordinate]
	ttl        TTLs
	maxEntries int
	now        func() time.Time
	metrics    *metrics.Metrics
}

type MemoryOption func(*InMemoryCache)

func WithClock(now func() time.Time) MemoryOption {
	return func(c *InMemoryCache) { c.now = now }
}

func WithMaxEntries(n int) MemoryOption {
	return func(c *InMemoryCache) { c.maxEntries = n }
}

func WithMetrics(m *metrics.Metrics) MemoryOption {
	return func(c *InMemoryCache) { c.metrics = m }
}

func NewInMemoryCache(ttl TTLs, opts ...MemoryOption) *InMemoryCache {
	c := &InMemoryCache{
		addresses: make(map[string]entry[models.AddressFragment]),
		coords:    make(map[string]entry[geodesy.Coordinate]),
		ttl:       ttl.withDefaults(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *InMemoryCache) FindAddress(_ context.Context, code string) (*models.AddressFragment, error) {
	start := time.Now()
	c.mu.RLock()
	e, ok := c.addresses[code]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.storedAt) >= c.ttl.Postal {
		recordMiss(c.metrics, kindPostal, start)
		return nil, sentinel.ErrNotFound
	}
	recordHit(c.metrics, kindPostal, start)
	v := e.value
	return &v, nil
}

func (c *InMemoryCache) SaveAddress(_ context.Context, code string, frag models.AddressFragment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	evictOldest(c.addresses, c.maxEntries, code)
	c.addresses[code] = entry[models.AddressFragment]{value: frag, storedAt: c.now()}
	return nil
}

func (c *InMemoryCache) FindCoordinate(_ context.Context, query string) (*geodesy.Coordinate, error) {
	start := time.Now()
	key := NormalizeQuery(query)
	c.mu.RLock()
	e, ok := c.coords[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.storedAt) >= c.ttl.Geocode {
		recordMiss(c.metrics, kindGeocode, start)
		return nil, sentinel.ErrNotFound
	}
	recordHit(c.metrics, kindGeocode, start)
	v := e.value
	return &v, nil
}

func (c *InMemoryCache) SaveCoordinate(_ context.Context, query string, coord geodesy.Coordinate) error {
	key := NormalizeQuery(query)
	c.mu.Lock()
	defer c.mu.Unlock()
	evictOldest(c.coords, c.maxEntries, key)
	c.coords[key] = entry[geodesy.Coordinate]{value: coord, storedAt: c.now()}
	return nil
}

// Len returns the number of stored entries of both kinds, expired included.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.addresses) + len(c.coords)
}

// evictOldest makes room for key when the map is full. Must hold the lock.
func evictOldest[T any](m map[string]entry[T], max int, key string) {
	if max <= 0 || len(m) < max {
		return
	}
	if _, exists := m[key]; exists {
		return
	}
	var oldestKey string
	var oldest time.Time
	for k, e := range m {
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
		}
	}
	delete(m, oldestKey)
}

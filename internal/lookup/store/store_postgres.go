package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"solarintake/internal/geodesy"
	"solarintake/internal/intake/models"
	"solarintake/internal/lookup/metrics"
	"solarintake/pkg/platform/sentinel"
	"solarintake/pkg/requestcontext"
)

const schema = `
CREATE TABLE IF NOT EXISTS postal_cache (
	postal_code  TEXT PRIMARY KEY,
	street       TEXT NOT NULL,
	neighborhood TEXT NOT NULL,
	city         TEXT NOT NULL,
	region       TEXT NOT NULL,
	checked_at   TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS geocode_cache (
	query      TEXT PRIMARY KEY,
	latitude   DOUBLE PRECISION NOT NULL,
	longitude  DOUBLE PRECISION NOT NULL,
	checked_at TIMESTAMPTZ NOT NULL
);`

// PostgresCache persists lookup results in PostgreSQL through lib/pq.
type PostgresCache struct {
	db      *sql.DB
	ttl     TTLs
	metrics *metrics.Metrics
}

func NewPostgresCache(db *sql.DB, ttl TTLs, m *metrics.Metrics) *PostgresCache {
	return &PostgresCache{db: db, ttl: ttl.withDefaults(), metrics: m}
}

// EnsureSchema creates the cache tables if they are missing.
func (c *PostgresCache) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure lookup cache schema: %w", err)
	}
	return nil
}

func (c *PostgresCache) FindAddress(ctx context.Context, code string) (*models.AddressFragment, error) {
	start := time.Now()
	cutoff := requestcontext.Now(ctx).Add(-c.ttl.Postal)
	var frag models.AddressFragment
	err := c.db.QueryRowContext(ctx,
		`SELECT street, neighborhood, city, region FROM postal_cache
		 WHERE postal_code = $1 AND checked_at > $2`,
		code, cutoff,
	).Scan(&frag.Street, &frag.Neighborhood, &frag.City, &frag.Region)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			recordMiss(c.metrics, kindPostal, start)
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find postal cache: %w", err)
	}
	recordHit(c.metrics, kindPostal, start)
	return &frag, nil
}

func (c *PostgresCache) SaveAddress(ctx context.Context, code string, frag models.AddressFragment) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO postal_cache (postal_code, street, neighborhood, city, region, checked_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (postal_code) DO UPDATE SET
		   street = EXCLUDED.street,
		   neighborhood = EXCLUDED.neighborhood,
		   city = EXCLUDED.city,
		   region = EXCLUDED.region,
		   checked_at = EXCLUDED.checked_at`,
		code, frag.Street, frag.Neighborhood, frag.City, frag.Region, requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("save postal cache: %w", err)
	}
	return nil
}

func (c *PostgresCache) FindCoordinate(ctx context.Context, query string) (*geodesy.Coordinate, error) {
	start := time.Now()
	cutoff := requestcontext.Now(ctx).Add(-c.ttl.Geocode)
	var coord geodesy.Coordinate
	err := c.db.QueryRowContext(ctx,
		`SELECT latitude, longitude FROM geocode_cache
		 WHERE query = $1 AND checked_at > $2`,
		NormalizeQuery(query), cutoff,
	).Scan(&coord.Latitude, &coord.Longitude)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			recordMiss(c.metrics, kindGeocode, start)
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find geocode cache: %w", err)
	}
	recordHit(c.metrics, kindGeocode, start)
	return &coord, nil
}

func (c *PostgresCache) SaveCoordinate(ctx context.Context, query string, coord geodesy.Coordinate) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (query, latitude, longitude, checked_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (query) DO UPDATE SET
		   latitude = EXCLUDED.latitude,
		   longitude = EXCLUDED.longitude,
		   checked_at = EXCLUDED.checked_at`,
		NormalizeQuery(query), coord.Latitude, coord.Longitude, requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("save geocode cache: %w", err)
	}
	return nil
}

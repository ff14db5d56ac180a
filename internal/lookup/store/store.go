// Package store caches postal and geocoding lookup results. All backends
// return sentinel.ErrNotFound on a miss or an expired entry.
package store

import (
	"strings"
	"time"

	"solarintake/internal/lookup/metrics"
)

const (
	kindPostal  = "postal"
	kindGeocode = "geocode"
)

// TTLs bounds how long each record kind stays fresh.
type TTLs struct {
	Postal  time.Duration
	Geocode time.Duration
}

func (t TTLs) withDefaults() TTLs {
	if t.Postal <= 0 {
		t.Postal = 24 * time.Hour
	}
	if t.Geocode <= 0 {
		t.Geocode = 6 * time.Hour
	}
	return t
}

// NormalizeQuery folds case and whitespace so equivalent geocoding queries
// share a cache entry.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

func recordHit(m *metrics.Metrics, kind string, start time.Time) {
	m.RecordCacheHit(kind)
	m.ObserveLookupDuration(kind+"_cache", time.Since(start).Seconds())
}

func recordMiss(m *metrics.Metrics, kind string, start time.Time) {
	m.RecordCacheMiss(kind)
	m.ObserveLookupDuration(kind+"_cache", time.Since(start).Seconds())
}

// Package geocoding turns a free-text address query into a WGS84 coordinate.
package geocoding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"solarintake/internal/geodesy"
	"solarintake/internal/lookup/metrics"
	"solarintake/internal/lookup/providers"
	"solarintake/pkg/platform/circuit"
	"solarintake/pkg/platform/sentinel"
)

// Client searches the upstream geocoder.
type Client interface {
	Search(ctx context.Context, query string) (geodesy.Coordinate, error)
}

type Cache interface {
	FindCoordinate(ctx context.Context, query string) (*geodesy.Coordinate, error)
	SaveCoordinate(ctx context.Context, query string, coord geodesy.Coordinate) error
}

// Resolver propagates caller cancellation to the upstream request so a
// superseded query stops promptly.
type Resolver struct {
	client  Client
	cache   Cache
	breaker *circuit.Breaker
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Resolver)

func WithCache(c Cache) Option { return func(r *Resolver) { r.cache = c } }

func WithBreaker(b *circuit.Breaker) Option { return func(r *Resolver) { r.breaker = b } }

func WithMetrics(m *metrics.Metrics) Option { return func(r *Resolver) { r.metrics = m } }

func WithLogger(l *slog.Logger) Option { return func(r *Resolver) { r.logger = l } }

func WithTimeout(d time.Duration) Option { return func(r *Resolver) { r.timeout = d } }

func NewResolver(client Client, opts ...Option) *Resolver {
	r := &Resolver{
		client:  client,
		timeout: 10 * time.Second,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer("solarintake/lookup/geocoding"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = circuit.New(ProviderID)
	}
	return r
}

// Resolve geocodes query. A no-match answer is a not_found ProviderError.
func (r *Resolver) Resolve(ctx context.Context, query string) (geodesy.Coordinate, error) {
	ctx, span := r.tracer.Start(ctx, "geocoding.Resolve", trace.WithAttributes(attribute.String("query", query)))
	defer span.End()

	if r.cache != nil {
		coord, err := r.cache.FindCoordinate(ctx, query)
		if err == nil {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return *coord, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			r.logger.WarnContext(ctx, "geocode cache read failed", "error", err)
		}
	}

	coord, err := r.search(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(providers.GetCategory(err)))
		return geodesy.Coordinate{}, err
	}

	if r.cache != nil {
		if err := r.cache.SaveCoordinate(ctx, query, coord); err != nil {
			r.logger.WarnContext(ctx, "geocode cache write failed", "error", err)
		}
	}
	return coord, nil
}

func (r *Resolver) search(ctx context.Context, query string) (geodesy.Coordinate, error) {
	if !r.breaker.Allow() {
		r.metrics.RecordProviderCall(ProviderID, "circuit_open")
		return geodesy.Coordinate{}, providers.NewProviderError(
			providers.ErrorProviderOutage, ProviderID, "circuit open", sentinel.ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	coord, err := r.client.Search(ctx, query)
	r.metrics.ObserveLookupDuration("geocode_provider", time.Since(start).Seconds())

	if err != nil {
		category := providers.GetCategory(err)
		r.metrics.RecordProviderCall(ProviderID, string(category))
		switch {
		case category == providers.ErrorCanceled:
			// superseded by a newer query; says nothing about provider health
		case providers.IsTransport(err):
			_, change := r.breaker.RecordFailure()
			r.noteStateChange(ctx, change)
			r.logger.WarnContext(ctx, "geocoding failed", "category", category, "error", err)
		default:
			_, change := r.breaker.RecordSuccess()
			r.noteStateChange(ctx, change)
		}
		return geodesy.Coordinate{}, err
	}

	r.metrics.RecordProviderCall(ProviderID, "ok")
	_, change := r.breaker.RecordSuccess()
	r.noteStateChange(ctx, change)
	return coord, nil
}

func (r *Resolver) noteStateChange(ctx context.Context, change circuit.StateChange) {
	switch {
	case change.Opened:
		r.metrics.SetBreakerOpen(ProviderID, true)
		r.logger.WarnContext(ctx, "geocoding circuit opened", "breaker", r.breaker.Name())
	case change.Closed:
		r.metrics.SetBreakerOpen(ProviderID, false)
		r.logger.InfoContext(ctx, "geocoding circuit closed", "breaker", r.breaker.Name())
	}
}

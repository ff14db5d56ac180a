// Package postal resolves complete postal codes into address fragments
// through a cache, a circuit breaker, and a ViaCEP-compatible client.
package postal

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
	"golang.org/x/sync/singleflight"

	"solarintake/internal/intake/masking"
	"solarintake/internal/intake/models"
	"solarintake/internal/lookup/metrics"
	"solarintake/internal/lookup/providers"
	dErrors "solarintake/pkg/domain-errors"
	"solarintake/pkg/platform/circuit"
	"solarintake/pkg/platform/sentinel"
)

// CodeLength is the digit count of a complete postal code.
const CodeLength = 8

// Client fetches one postal code from the upstream service.
type Client interface {
	Lookup(ctx context.Context, code string) (*models.AddressFragment, error)
}

// Cache stores successful lookups.
type Cache interface {
	FindAddress(ctx context.Context, code string) (*models.AddressFragment, error)
	SaveAddress(ctx context.Context, code string, frag models.AddressFragment) error
}

// Resolver is safe for concurrent use. Concurrent lookups of one code share a
// single upstream call.
type Resolver struct {
	client  Client
	cache   Cache
	breaker *circuit.Breaker
	timeout time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Resolver)

func WithCache(c Cache) Option { return func(r *Resolver) { r.cache = c } }

func WithBreaker(b *circuit.Breaker) Option { return func(r *Resolver) { r.breaker = b } }

func WithMetrics(m *metrics.Metrics) Option { return func(r *Resolver) { r.metrics = m } }

func WithLogger(l *slog.Logger) Option { return func(r *Resolver) { r.logger = l } }

// WithTimeout bounds the shared upstream call.
func WithTimeout(d time.Duration) Option { return func(r *Resolver) { r.timeout = d } }

func NewResolver(client Client, opts ...Option) *Resolver {
	r := &Resolver{
		client:  client,
		timeout: 10 * time.Second,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer("solarintake/lookup/postal"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = circuit.New(ProviderID)
	}
	return r
}

// Resolve returns the address for code, which may be masked. Errors are
// ProviderErrors (not_found, timeout, provider_outage, ...) or a bad_request
// domain error for incomplete codes.
func (r *Resolver) Resolve(ctx context.Context, code string) (*models.AddressFragment, error) {
	digits := masking.Digits(code, 0)
	if len(digits) != CodeLength {
		return nil, dErrors.New(dErrors.CodeBadRequest, "postal code must have 8 digits")
	}

	ctx, span := r.tracer.Start(ctx, "postal.Resolve", trace.WithAttributes(attribute.String("postal_code", digits)))
	defer span.End()

	if r.cache != nil {
		frag, err := r.cache.FindAddress(ctx, digits)
		if err == nil {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return frag, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			r.logger.WarnContext(ctx, "postal cache read failed", "postal_code", digits, "error", err)
		}
	}

	ch := r.group.DoChan(digits, func() (any, error) {
		return r.fetch(context.WithoutCancel(ctx), digits)
	})

	select {
	case <-ctx.Done():
		err := providers.ClassifyTransport(ProviderID, ctx.Err())
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	case res := <-ch:
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, string(providers.GetCategory(res.Err)))
			return nil, res.Err
		}
		frag := res.Val.(models.AddressFragment)
		return &frag, nil
	}
}

// fetch runs once per code across concurrent callers.
func (r *Resolver) fetch(ctx context.Context, code string) (models.AddressFragment, error) {
	if !r.breaker.Allow() {
		r.metrics.RecordProviderCall(ProviderID, "circuit_open")
		return models.AddressFragment{}, providers.NewProviderError(
			providers.ErrorProviderOutage, ProviderID, "circuit open", sentinel.ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	frag, err := r.client.Lookup(ctx, code)
	r.metrics.ObserveLookupDuration("postal_provider", time.Since(start).Seconds())

	if err != nil {
		category := providers.GetCategory(err)
		r.metrics.RecordProviderCall(ProviderID, string(category))
		if providers.IsTransport(err) {
			_, change := r.breaker.RecordFailure()
			r.noteStateChange(ctx, change)
			r.logger.WarnContext(ctx, "postal lookup failed", "postal_code", code, "category", category, "error", err)
		} else {
			_, change := r.breaker.RecordSuccess()
			r.noteStateChange(ctx, change)
		}
		return models.AddressFragment{}, err
	}

	r.metrics.RecordProviderCall(ProviderID, "ok")
	_, change := r.breaker.RecordSuccess()
	r.noteStateChange(ctx, change)

	if r.cache != nil {
		if err := r.cache.SaveAddress(ctx, code, *frag); err != nil {
			r.logger.WarnContext(ctx, "postal cache write failed", "postal_code", code, "error", err)
		}
	}
	return *frag, nil
}

func (r *Resolver) noteStateChange(ctx context.Context, change circuit.StateChange) {
	switch {
	case change.Opened:
		r.metrics.SetBreakerOpen(ProviderID, true)
		r.logger.WarnContext(ctx, "postal circuit opened", "breaker", r.breaker.Name())
	case change.Closed:
		r.metrics.SetBreakerOpen(ProviderID, false)
		r.logger.InfoContext(ctx, "postal circuit closed", "breaker", r.breaker.Name())
	}
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"solarintake/internal/intake/events"
	"solarintake/internal/intake/handler"
	"solarintake/internal/intake/orchestrator"
	"solarintake/internal/intake/service"
	"solarintake/internal/lookup/geocoding"
	lookupmetrics "solarintake/internal/lookup/metrics"
	"solarintake/internal/lookup/postal"
	"solarintake/internal/lookup/store"
	"solarintake/internal/platform/config"
	"solarintake/internal/platform/httpserver"
	"solarintake/internal/platform/kafka"
	"solarintake/internal/platform/logger"
	"solarintake/internal/platform/metrics"
	"solarintake/internal/platform/postgres"
	platformredis "solarintake/internal/platform/redis"
	"solarintake/internal/proposal"
	"solarintake/pkg/platform/circuit"
	"solarintake/pkg/platform/httputil"
)

const eventLogLimit = 10000

func newServeCmd(v *viper.Viper, cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the intake HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, *cfgFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("cache-backend", "memory", "lookup cache backend: memory, redis or postgres")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("cache.backend", cmd.Flags().Lookup("cache-backend"))
	return cmd
}

// backends holds the optional infrastructure clients. Any of them may be nil.
type backends struct {
	redis *platformredis.Client
	db    *sql.DB
	kafka *kgo.Client
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	var err error
	if cfg.Cache.Backend == "redis" {
		if b.redis, err = platformredis.New(ctx, cfg.Redis); err != nil {
			return nil, err
		}
	}
	if cfg.Cache.Backend == "postgres" {
		if b.db, err = postgres.Open(ctx, cfg.Postgres); err != nil {
			b.close()
			return nil, err
		}
	}
	if b.kafka, err = kafka.NewClient(ctx, cfg.Kafka); err != nil {
		b.close()
		return nil, err
	}
	return b, nil
}

func (b *backends) close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
	if b.kafka != nil {
		b.kafka.Close()
	}
}

func (b *backends) health(ctx context.Context) error {
	if b.redis != nil {
		if err := b.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if b.db != nil {
		if err := b.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if b.kafka != nil {
		if err := b.kafka.Ping(ctx); err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
	}
	return nil
}

type lookupCache interface {
	postal.Cache
	geocoding.Cache
}

func newLookupCache(ctx context.Context, cfg config.Config, b *backends, m *lookupmetrics.Metrics) (lookupCache, error) {
	ttl := store.TTLs{Postal: cfg.Cache.PostalTTL, Geocode: cfg.Cache.GeocodeTTL}
	switch {
	case b.redis != nil:
		return store.NewRedisCache(b.redis.Client, ttl, m), nil
	case b.db != nil:
		c := store.NewPostgresCache(b.db, ttl, m)
		if err := c.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return store.NewInMemoryCache(ttl, store.WithMaxEntries(cfg.Cache.MaxEntries), store.WithMetrics(m)), nil
	}
}

func newBreaker(name string, cfg config.LookupService) *circuit.Breaker {
	return circuit.New(name,
		circuit.WithFailureThreshold(cfg.FailureThreshold),
		circuit.WithSuccessThreshold(cfg.SuccessThreshold),
		circuit.WithCooldown(cfg.Cooldown),
	)
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logger.New(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.New(reg)
	lookupMetrics := lookupmetrics.New(reg)

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	cache, err := newLookupCache(ctx, cfg, b, lookupMetrics)
	if err != nil {
		return err
	}

	postalResolver := postal.NewResolver(
		postal.NewViaCEPClient(cfg.Postal.BaseURL, cfg.Postal.UserAgent, cfg.Postal.Timeout),
		postal.WithCache(cache),
		postal.WithBreaker(newBreaker(postal.ProviderID, cfg.Postal)),
		postal.WithMetrics(lookupMetrics),
		postal.WithLogger(log),
		postal.WithTimeout(cfg.Postal.Timeout),
	)
	geocoder := geocoding.NewResolver(
		geocoding.NewNominatimClient(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, cfg.Geocoder.CountryCodes, cfg.Geocoder.Timeout),
		geocoding.WithCache(cache),
		geocoding.WithBreaker(newBreaker(geocoding.ProviderID, cfg.Geocoder)),
		geocoding.WithMetrics(lookupMetrics),
		geocoding.WithLogger(log),
		geocoding.WithTimeout(cfg.Geocoder.Timeout),
	)

	eventLog := events.NewMemoryStore(eventLogLimit)
	publisherOpts := []events.Option{events.WithLogger(log), events.WithAsyncBuffer(1024)}
	if b.kafka != nil {
		if err := kafka.EnsureTopic(ctx, b.kafka, cfg.Kafka.Topic, 1, 1); err != nil {
			log.WarnContext(ctx, "kafka topic provisioning failed", "topic", cfg.Kafka.Topic, "error", err)
		}
		publisherOpts = append(publisherOpts, events.WithSink(events.NewKafkaSink(b.kafka, cfg.Kafka.Topic)))
	}
	publisher := events.NewPublisher(eventLog, publisherOpts...)
	defer func() { _ = publisher.Close() }()

	genaiGen, err := proposal.NewGenAIGenerator(ctx, cfg.Proposal.APIKey, cfg.Proposal.Model)
	if err != nil {
		return err
	}
	var generator proposal.Generator
	if genaiGen != nil {
		generator = genaiGen
	} else {
		log.InfoContext(ctx, "proposal generation disabled: no API key configured")
	}
	proposals := proposal.NewService(generator, log)

	manager := service.NewManager(func(id uuid.UUID) *orchestrator.Session {
		return orchestrator.NewSession(id, postalResolver, geocoder,
			orchestrator.WithDebounce(cfg.Intake.DebounceWindow),
			orchestrator.WithCountryQualifier(cfg.Intake.CountryQualifier),
			orchestrator.WithEmitter(publisher),
			orchestrator.WithMetrics(lookupMetrics),
			orchestrator.WithLogger(log),
			orchestrator.WithProposals(proposals),
		)
	},
		service.WithIdleTTL(cfg.Intake.SessionIdleTTL),
		service.WithMetrics(httpMetrics),
		service.WithLogger(log),
		service.WithOnClose(eventLog.Forget),
	)
	defer manager.Close()

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", healthHandler(b, log))
	handler.New(manager, log, httpMetrics, cfg.Server.RequestTimeout,
		handler.WithEventLog(eventLog),
	).Register(r)

	srv := httpserver.New(cfg.Server, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(ctx, "starting solarintake",
			"addr", cfg.Server.Addr,
			"environment", cfg.Server.Environment,
			"cache_backend", cfg.Cache.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := manager.StartCleanup(gctx, cfg.Intake.SweepInterval); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.InfoContext(shutdownCtx, "shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func healthHandler(b *backends, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := b.health(r.Context()); err != nil {
			log.WarnContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Command validationhub runs the action validation hub: agents submit
// actions over HTTP, humans review them, and webhook subscribers get
// notified of lifecycle events.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Strob0t/ValidationHub/internal/adapter/cached"
	vhhttp "github.com/Strob0t/ValidationHub/internal/adapter/http"
	"github.com/Strob0t/ValidationHub/internal/adapter/memstore"
	vhnats "github.com/Strob0t/ValidationHub/internal/adapter/nats"
	"github.com/Strob0t/ValidationHub/internal/adapter/natskv"
	"github.com/Strob0t/ValidationHub/internal/adapter/otel"
	"github.com/Strob0t/ValidationHub/internal/adapter/postgres"
	"github.com/Strob0t/ValidationHub/internal/adapter/webhook"
	"github.com/Strob0t/ValidationHub/internal/adapter/ws"
	"github.com/Strob0t/ValidationHub/internal/config"
	"github.com/Strob0t/ValidationHub/internal/logger"
	"github.com/Strob0t/ValidationHub/internal/port/registry"
	"github.com/Strob0t/ValidationHub/internal/port/store"
	"github.com/Strob0t/ValidationHub/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"backend", cfg.Store.Backend,
		"log_level", cfg.Logging.Level,
		"cache", cfg.Cache.Enabled,
	)

	ctx := context.Background()

	// --- Tracing ---
	shutdownTracer, err := otel.InitTracer(ctx, cfg.Otel, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	shutdownMeter, err := otel.InitMeter(ctx, cfg.Otel, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownMeter(sctx)
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel instruments: %w", err)
	}

	// --- Storage backend ---
	recordStore, subscriberRegistry, publisher, closeBackend, err := buildBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	if cfg.Cache.Enabled {
		cachedStore, err := cached.New(recordStore, cfg.Cache.MaxBytes, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		defer cachedStore.Close()
		recordStore = cachedStore
		slog.Info("record cache enabled", "max_bytes", cfg.Cache.MaxBytes, "ttl", cfg.Cache.TTL)
	}

	// --- Services ---
	feed := ws.NewFeed()
	sender := webhook.NewSender(cfg.Webhook.Timeout, cfg.Webhook.SigningSecret)
	dispatcher := service.NewDispatcher(sender, publisher, feed, cfg.Webhook.Timeout, cfg.Webhook.MaxConcurrent).
		WithMetrics(metrics)

	handlers := vhhttp.NewHandlers(
		service.NewLifecycleService(recordStore, subscriberRegistry, dispatcher),
		service.NewSubscriberService(subscriberRegistry),
		feed,
	)

	// --- HTTP ---
	r := chi.NewRouter()
	r.Use(vhhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(vhhttp.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", healthHandler(cfg, dispatcher, feed))
	vhhttp.MountRoutes(r, handlers)

	var handler http.Handler = r
	if cfg.Otel.Enabled {
		handler = otelhttp.NewHandler(r, "validationhub")
	}

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Let in-flight webhook deliveries finish before the process exits.
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		slog.Warn("shutdown with deliveries still in flight", "in_flight", dispatcher.InFlight())
	}
	return nil
}

// buildBackend constructs the record store, subscriber registry, and the
// optional JetStream event publisher for the configured backend.
func buildBackend(ctx context.Context, cfg *config.Config) (store.RecordStore, registry.SubscriberRegistry, service.EventPublisher, func(), error) {
	switch cfg.Store.Backend {
	case "memory":
		slog.Info("using in-memory backend")
		return memstore.NewStore(), memstore.NewRegistry(), nil, func() {}, nil

	case "nats":
		nc, js, err := natskv.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("nats: %w", err)
		}
		closer := func() { nc.Close() }

		records, err := natskv.EnsureBucket(ctx, js, natskv.BucketRecords)
		if err != nil {
			closer()
			return nil, nil, nil, nil, fmt.Errorf("nats bucket %s: %w", natskv.BucketRecords, err)
		}
		agents, err := natskv.EnsureBucket(ctx, js, natskv.BucketAgents)
		if err != nil {
			closer()
			return nil, nil, nil, nil, fmt.Errorf("nats bucket %s: %w", natskv.BucketAgents, err)
		}
		reviewers, err := natskv.EnsureBucket(ctx, js, natskv.BucketReviewers)
		if err != nil {
			closer()
			return nil, nil, nil, nil, fmt.Errorf("nats bucket %s: %w", natskv.BucketReviewers, err)
		}

		var publisher service.EventPublisher
		if cfg.NATS.PublishEvents {
			p, err := vhnats.NewPublisher(ctx, js)
			if err != nil {
				closer()
				return nil, nil, nil, nil, fmt.Errorf("nats publisher: %w", err)
			}
			publisher = p
		}

		slog.Info("using nats jetstream backend", "url", cfg.NATS.URL, "publish_events", cfg.NATS.PublishEvents)
		return natskv.NewStore(records), natskv.NewRegistry(agents, reviewers), publisher, closer, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			pool.Close()
			return nil, nil, nil, nil, fmt.Errorf("migrations: %w", err)
		}
		slog.Info("using postgres backend")
		return postgres.NewStore(pool), postgres.NewRegistry(pool), nil, pool.Close, nil

	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// healthHandler reports process health and delivery pressure.
func healthHandler(cfg *config.Config, d *service.Dispatcher, feed *ws.Feed) http.HandlerFunc {
	type healthStatus struct {
		Status        string `json:"status"`
		Backend       string `json:"backend"`
		InFlight      int64  `json:"deliveries_in_flight"`
		WSConnections int    `json:"ws_connections"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status:        "ok",
			Backend:       cfg.Store.Backend,
			InFlight:      d.InFlight(),
			WSConnections: feed.ConnectionCount(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}

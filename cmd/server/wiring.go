package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cardshare/internal/cards/handler"
	"cardshare/internal/cards/service"
	"cardshare/internal/cards/store"
	jwttoken "cardshare/internal/jwt_token"
	"cardshare/internal/notify"
	"cardshare/internal/platform/config"
	"cardshare/internal/platform/kafka"
	"cardshare/internal/platform/metrics"
	"cardshare/internal/platform/middleware"
	"cardshare/internal/platform/redis"
	"cardshare/pkg/platform/httputil"
)

type application struct {
	router    http.Handler
	publisher *notify.AsyncPublisher
	storeKind string
	sinkKind  string
	closers   []func() error
}

func (a *application) close(log *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("closing dependency", "error", err)
		}
	}
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (app *application, err error) {
	app = &application{}
	defer func() {
		if err != nil {
			app.close(log)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	cardStore, err := buildStore(ctx, cfg, log, app)
	if err != nil {
		return nil, err
	}

	sink, err := buildSink(ctx, cfg, log, app)
	if err != nil {
		return nil, err
	}
	app.publisher = notify.NewAsyncPublisher(sink,
		notify.WithBufferSize(cfg.Notify.BufferSize),
		notify.WithRetry(cfg.Notify.RetryAttempts, cfg.Notify.RetryBackoff),
		notify.WithCircuitBreaker(notify.NewCircuitBreaker(cfg.Notify.BreakerThreshold, cfg.Notify.BreakerCooldown)),
		notify.WithLogger(log),
		notify.WithMetrics(notify.NewMetrics(reg)),
	)

	svc, err := service.New(cardStore, app.publisher,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithShareBaseURL(cfg.ShareBaseURL),
	)
	if err != nil {
		return nil, err
	}

	var validator middleware.TokenValidator
	if cfg.JWTSecret != "" {
		validator = jwttoken.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer)
	} else {
		log.Warn("JWT_SECRET not set, card mutations are unauthenticated")
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger(log, m))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handler.New(svc, log, validator).Register(r)

	app.router = r
	return app, nil
}

func buildStore(ctx context.Context, cfg config.Server, log *slog.Logger, app *application) (service.Store, error) {
	var backend store.Backend
	if cfg.DatabaseURL == "" {
		backend = store.NewInMemoryStore()
		app.storeKind = "memory"
	} else {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.closers = append(app.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		backend = pg
		app.storeKind = "postgres"
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return backend, nil
	}
	app.closers = append(app.closers, rc.Close)
	app.storeKind += "+redis"
	return store.NewCachedStore(backend, rc.Client,
		store.WithCacheTTL(cfg.Redis.CacheTTL),
		store.WithCacheLogger(log),
	), nil
}

func buildSink(ctx context.Context, cfg config.Server, log *slog.Logger, app *application) (notify.Sink, error) {
	client, err := kafka.New(ctx, cfg.Kafka, log)
	if err != nil {
		return nil, err
	}
	if client == nil {
		app.sinkKind = "log"
		return notify.NewLogSink(log), nil
	}
	app.closers = append(app.closers, func() error {
		client.Close()
		return nil
	})

	sink := notify.NewKafkaSink(client, notify.WithTopicPrefix(cfg.Kafka.TopicPrefix))
	if err := sink.EnsureTopics(ctx, cfg.Kafka.Partitions, cfg.Kafka.Replication); err != nil {
		return nil, err
	}
	app.sinkKind = "kafka"
	return sink, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"

	phttp "github.com/Strob0t/PropExtract/internal/adapter/http"
	pnats "github.com/Strob0t/PropExtract/internal/adapter/nats"
	"github.com/Strob0t/PropExtract/internal/adapter/natsobj"
	peotel "github.com/Strob0t/PropExtract/internal/adapter/otel"
	"github.com/Strob0t/PropExtract/internal/adapter/postgres"
	"github.com/Strob0t/PropExtract/internal/adapter/ws"
	"github.com/Strob0t/PropExtract/internal/config"
	"github.com/Strob0t/PropExtract/internal/logger"
	"github.com/Strob0t/PropExtract/internal/middleware"
	"github.com/Strob0t/PropExtract/internal/port/broadcast"
	"github.com/Strob0t/PropExtract/internal/secrets"
	"github.com/Strob0t/PropExtract/internal/service"
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

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	vault, err := secrets.NewVault(secrets.EnvLoader(secrets.DocAPIKey, secrets.RedisPassword))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	if pw := vault.Get(secrets.RedisPassword); pw != "" {
		cfg.Redis.Password = pw
	}

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"dispatch", cfg.Processing.Dispatch,
		"cache_backend", cfg.Cache.Backend,
		"docapi_key", vault.Redacted(secrets.DocAPIKey),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---

	shutdownOTel, err := peotel.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := peotel.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	version, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	slog.Info("migrations applied", "version", version)

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	store := postgres.NewStore(pool)
	feed := postgres.NewFeed(pool)
	go func() {
		if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("change feed stopped", "error", err)
		}
	}()

	queue, err := pnats.Connect(ctx, cfg.NATS)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	objects, err := natsobj.Open(ctx, queue.JetStream(), cfg.Storage.Bucket, cfg.Server.PublicURL)
	if err != nil {
		return fmt.Errorf("object store: %w", err)
	}

	backends, err := openBackends(ctx, cfg, queue.JetStream())
	if err != nil {
		return err
	}
	defer backends.Close()

	ext := newExtractor(cfg, backends)
	docs := newDocAPI(cfg, vault)

	// --- Services ---

	runner := service.NewRunner(store, backends.guard, metrics, cfg.Processing.Timeout)
	reports := service.NewReportService(docs, objects, cfg.DocAPI, metrics)
	handlers := service.NewHandlers(runner, store, ext, reports, cfg.Processing.MaxParallel)

	stopCancel, err := runner.ListenCancel(ctx, queue)
	if err != nil {
		return fmt.Errorf("cancel listener: %w", err)
	}
	defer stopCancel()

	invoker, waitInvoker := newInvoker(cfg, queue)
	defer waitInvoker()
	if cfg.Processing.Dispatch != "http" {
		stopHandlers, err := handlers.Listen(ctx, queue)
		if err != nil {
			return fmt.Errorf("handler subscriptions: %w", err)
		}
		defer stopHandlers()
	}

	tasks := service.NewTaskClient(store, feed, invoker, queue, metrics)

	hub := ws.NewHub(cfg.Server.CORSOrigin, func(ctx context.Context) (ws.Message, bool) {
		views := tasks.Snapshot()
		if len(views) == 0 {
			return ws.Message{}, false
		}
		msg, err := ws.NewMessage(broadcast.EventTasksSnapshot, broadcast.SnapshotEvent{
			Tasks: views,
			Stats: tasks.Stats(),
		})
		if err != nil {
			slog.WarnContext(ctx, "welcome snapshot", "error", err)
			return ws.Message{}, false
		}
		return msg, true
	})
	defer hub.Close()

	unsubscribe, err := tasks.Subscribe(ctx, service.BroadcastSnapshots(ctx, hub))
	if err != nil {
		return fmt.Errorf("task subscription: %w", err)
	}
	defer unsubscribe()

	// --- HTTP ---

	limiter := middleware.NewSubmitLimiter(cfg.Server.SubmitRate, cfg.Server.SubmitBurst)
	go pruneLoop(ctx, limiter, time.Minute)
	go reloadSecretsOnHUP(ctx, vault)

	api := &phttp.Handlers{
		Tasks:     tasks,
		Functions: handlers,
		Objects:   objects,
		Bucket:    cfg.Storage.Bucket,
		Health: func(ctx context.Context) map[string]bool {
			return map[string]bool{
				"postgres": pool.Ping(ctx) == nil,
				"nats":     queue.IsConnected(),
			}
		},
	}

	r := chi.NewRouter()
	r.Use(phttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(phttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(peotel.HTTPMiddleware(cfg.OTel.ServiceName))
	phttp.MountRoutes(r, api, hub, limiter.Handler)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Synchronous function calls can run up to the handler timeout.
		WriteTimeout: cfg.Processing.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("shutting down server", "in_flight", runner.InFlight())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := queue.Drain(); err != nil {
		slog.Warn("nats drain", "error", err)
	}
	return nil
}

func pruneLoop(ctx context.Context, l *middleware.SubmitLimiter, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Prune()
		}
	}
}

func reloadSecretsOnHUP(ctx context.Context, v *secrets.Vault) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := v.Reload(); err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded", "docapi_key", v.Redacted(secrets.DocAPIKey))
		}
	}
}

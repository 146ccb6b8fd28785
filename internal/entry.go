// Package internal provides the main application initialization and runtime logic.
package internal

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
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/ecowise/idftab/internal/api"
	"github.com/ecowise/idftab/internal/artifact"
	"github.com/ecowise/idftab/internal/convert"
	"github.com/ecowise/idftab/internal/idd"
	"github.com/ecowise/idftab/internal/jobstore"
	"github.com/ecowise/idftab/internal/jobstore/postgres"
	"github.com/ecowise/idftab/internal/jobstore/sqlite"
	"github.com/ecowise/idftab/internal/metrics"
	"github.com/ecowise/idftab/internal/sse"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("schema_dir", cfg.Schemas.Dir),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("artifact_driver", cfg.Artifacts.Driver),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Load the schema catalog.
	sources, err := idd.ReadDir(cfg.Schemas.Dir)
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	versions, bad, err := idd.Load(sources)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}
	for _, srcErr := range bad {
		logger.Warn("schema source rejected", slog.String("error", srcErr.Error()))
	}
	catalog := idd.NewCatalog(versions)
	logger.Info("Schema catalog loaded", slog.Int("versions", catalog.Len()))

	// Job store.
	jobs, err := openJobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init job store: %w", err)
	}
	defer jobs.Close()

	// Artifact store.
	artifacts, err := openArtifactStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init artifact store: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Metrics.
	m := metrics.New()

	// Build service and API router.
	svc := convert.NewService(catalog, jobs, artifacts, broker, m)
	apiRouter := api.NewRouter(svc, jobs, artifacts, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if catalog.Len() == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no schemas loaded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus metrics (unauthenticated).
	r.Handle("/metrics", m.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the schema directory for catalog reloads.
	if cfg.Schemas.Watch {
		g.Go(func() error {
			err := idd.Watch(gCtx, catalog, cfg.Schemas.Dir, logger, func(tags []string) {
				m.CatalogReloads.Inc()
				broker.PublishCatalogReloaded(tags)
			})
			if err != nil {
				logger.Warn("schema watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func openJobStore(ctx context.Context, cfg *Config) (jobstore.Store, error) {
	switch cfg.Store.Driver {
	case StoreDriverPostgres:
		return postgres.Open(ctx, cfg.Store.PostgresDSN)
	default:
		return sqlite.Open(cfg.Store.SQLitePath)
	}
}

func openArtifactStore(ctx context.Context, cfg *Config) (artifact.Store, error) {
	switch cfg.Artifacts.Driver {
	case ArtifactDriverS3:
		return artifact.NewS3(ctx, artifact.S3Config{
			Bucket:    cfg.Artifacts.S3.Bucket,
			Region:    cfg.Artifacts.S3.Region,
			Endpoint:  cfg.Artifacts.S3.Endpoint,
			PathStyle: cfg.Artifacts.S3.PathStyle,
		})
	case ArtifactDriverMemory:
		return artifact.NewMemory(), nil
	default:
		return artifact.NewFS(cfg.Artifacts.FSRoot)
	}
}

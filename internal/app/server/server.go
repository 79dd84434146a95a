package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"leaveledger/internal/domain/audit"
	"leaveledger/internal/domain/auth"
	"leaveledger/internal/domain/core"
	"leaveledger/internal/domain/leave"
	"leaveledger/internal/domain/notifications"
	"leaveledger/internal/platform/clock"
	"leaveledger/internal/platform/config"
	"leaveledger/internal/platform/db"
	"leaveledger/internal/platform/email"
	"leaveledger/internal/platform/jobs"
	"leaveledger/internal/platform/metrics"
	audithandler "leaveledger/internal/transport/http/handlers/audit"
	leavehandler "leaveledger/internal/transport/http/handlers/leave"
	notificationshandler "leaveledger/internal/transport/http/handlers/notifications"
	"leaveledger/internal/transport/http/middleware"
	"leaveledger/migrations"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators the router is assembled from.
type Deps struct {
	Config        config.Config
	Leave         *leave.Service
	Audit         *audit.Service
	Notifications notificationshandler.Inbox
	Jobs          *jobs.Service
	Metrics       *metrics.Collector
	Ready         func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	perms := auth.StaticPermissions{}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(chimw.Recoverer)
	if d.Metrics != nil {
		router.Use(middleware.Metrics(d.Metrics))
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(maxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled && d.Metrics != nil {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			writeMetrics(w, d.Metrics.Snapshot())
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		var auditor leavehandler.Auditor
		if d.Audit != nil {
			auditor = d.Audit
			audithandler.NewHandler(d.Audit, perms).RegisterRoutes(r)
		}
		var runner leavehandler.JobRunner
		if d.Jobs != nil {
			runner = d.Jobs
		}
		leavehandler.NewHandler(d.Leave, perms, auditor, runner).RegisterRoutes(r)
		if d.Notifications != nil {
			notificationshandler.NewHandler(d.Notifications).RegisterRoutes(r)
		}
	})

	return router
}

// Run wires the Postgres-backed service and serves until SIGINT/SIGTERM.
func Run() error {
	cfg := config.Load()
	configureLogging(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect failed: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, migrationSource(cfg.MigrationsDir)); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
	}

	clk := clock.System{Location: cfg.Location()}
	collector := metrics.New()
	directory := core.NewStore(pool)

	notifier := notifications.New(notifications.NewStore(pool), directory, email.New(cfg))
	notifier.DefaultFrom = cfg.EmailFrom

	leaveSvc := leave.NewService(leave.NewStore(pool), directory, clk)
	leaveSvc.Notify = notifier
	leaveSvc.Metrics = collector

	jobSvc := jobs.New(pool, leaveSvc, clk, cfg.YearRolloverInterval)
	jobSvc.Start(ctx)

	router := NewRouter(Deps{
		Config:        cfg,
		Leave:         leaveSvc,
		Audit:         audit.New(pool),
		Notifications: notifier,
		Jobs:          jobSvc,
		Metrics:       collector,
		Ready:         pool.Ping,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("leave ledger listening", "addr", cfg.Addr, "env", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func configureLogging(cfg config.Config) {
	level := slog.LevelInfo
	if cfg.Environment != "production" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// migrationSource prefers an on-disk directory so SQL can be patched
// without a rebuild, and falls back to the embedded files.
func migrationSource(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	return migrations.FS
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"study-organizer-backend/internal/alerts"
	"study-organizer-backend/internal/analytics"
	"study-organizer-backend/internal/auth"
	"study-organizer-backend/internal/config"
	"study-organizer-backend/internal/db"
	"study-organizer-backend/internal/focus"
	"study-organizer-backend/internal/logging"
	"study-organizer-backend/internal/tasks"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)
	if slices.Contains(cfg.AllowedOrigins, "*") {
		logger.Warn("CORS_ALLOWED_ORIGINS=* cannot carry the session cookie; list the web app origin instead")
	}

	database, err := db.Connect(cfg.ConnString())
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer database.Close()
	logger.Info("connected to postgres", "host", cfg.DBHost, "db", cfg.DBName)

	if cfg.AutoMigrate {
		if err := db.Migrate(database); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := analytics.NewSQLRecorder(database, logger)
	taskStore := tasks.NewSQLStore(database)
	stats := analytics.NewStatsRepo(database)

	go tasks.NewRefresher(taskStore, cfg.PriorityRefreshInterval, logger.WithPrefix("refresher")).Run(ctx)

	handler := newRouter(routes{
		cfg: cfg,
		log: logger,
		auth: &auth.Handler{
			Provider:     auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
			Users:        auth.NewUserStore(database),
			Secret:       []byte(cfg.SessionSecret),
			TTL:          cfg.SessionTTL,
			CookieSecure: cfg.CookieSecure,
			Log:          logger,
			Now:          time.Now,
		},
		tasks:  tasks.New(taskStore, events, logger),
		focus:  focus.New(focus.NewSQLStore(database), taskStore, events, logger),
		alerts: alerts.NewHandler(taskStore, stats, logger),
		stats:  stats,
		events: events,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grc-isms/internal/config"
	"grc-isms/internal/database"
	"grc-isms/internal/ident"
	"grc-isms/internal/logging"
	"grc-isms/internal/metrics"
	"grc-isms/internal/server"
	"grc-isms/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	root := &cobra.Command{
		Use:           "grc-isms",
		Short:         "ISO 27001 risk and compliance API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), runServer)
		},
	}
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				a.log.Info("schema is up to date")
				return nil
			})
		},
	}
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and demo data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				a.cfg.SeedDemo = true
				return a.seed(ctx)
			})
		},
	}
	root.AddCommand(serve, migrate, seed)
	// без подкоманды запускаем сервер
	root.RunE = serve.RunE

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg *config.Config
	log *zap.Logger
	st  *database.Store
}

// withApp loads config, connects and migrates the database, then runs fn.
func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(ctx, cfg.DBDSN, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return fn(ctx, &app{cfg: cfg, log: log, st: database.NewStore(db)})
}

func (a *app) seed(ctx context.Context) error {
	seeder := database.NewSeeder(a.st, ident.NewAllocator(a.st, store.LatestFuncs(a.st)), a.log)
	admin, err := seeder.Admin(ctx, a.cfg.AdminEmail, a.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if !a.cfg.SeedDemo {
		return nil
	}
	if err := seeder.Demo(ctx, admin); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	return nil
}

func runServer(ctx context.Context, a *app) error {
	if err := a.seed(ctx); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	r := server.NewRouter(a.cfg, a.st, a.log, metrics.New())

	srv := &http.Server{
		Addr:              ":" + a.cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

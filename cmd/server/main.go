// Package main is the entry point for the Discord Medals server.
// It serves the medal pages and award API, and can apply the Postgres schema migrations.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/discordmedals/internal/auth"
	"github.com/parsascontentcorner/discordmedals/internal/config"
	"github.com/parsascontentcorner/discordmedals/internal/database"
	"github.com/parsascontentcorner/discordmedals/internal/medals"
	"github.com/parsascontentcorner/discordmedals/internal/metrics"
	"github.com/parsascontentcorner/discordmedals/internal/ratelimit"
	"github.com/parsascontentcorner/discordmedals/internal/repository"
	"github.com/parsascontentcorner/discordmedals/internal/session"
	"github.com/parsascontentcorner/discordmedals/internal/sqlite"
	"github.com/parsascontentcorner/discordmedals/internal/web"
	"github.com/parsascontentcorner/discordmedals/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:   "discordmedals",
		Usage:  "award Discord server members with medals",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the web server",
				Action: serve,
			},
			newMigrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads the configuration and builds the logger
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

// openStore connects the configured backend and brings its schema up to date
func openStore(cfg *config.Config, log *zap.Logger) (repository.Repository, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.NewDB(&cfg.Database, logger.Component(log, "postgres"))
		if err != nil {
			return nil, err
		}
		log.Info("running database migrations", zap.String("path", cfg.Database.MigrationsPath))
		if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		return db, nil
	default:
		store, err := sqlite.Open(sqlite.FileDSN(cfg.Database.SQLitePath), logger.Component(log, "sqlite"))
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func serve(c *cli.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() {
		// Sync errors on stdout/stderr are expected and can be safely ignored
		// for non-syncable file descriptors (pipes, terminals, etc.)
		_ = log.Sync()
	}()

	log.Info("starting Discord Medals",
		zap.String("environment", cfg.Server.Env),
		zap.String("http_port", cfg.Server.HTTPPort),
		zap.String("db_driver", cfg.Database.Driver),
	)

	store, err := openStore(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close store", zap.Error(err))
		}
	}()

	// Initialize auth components
	discordClient := auth.NewDiscordClient(cfg, logger.Component(log, "discord"))
	discordClient.SetRateLimiter(ratelimit.NewRateLimiter(log))

	cipher, err := auth.NewTokenCipher(cfg.Security.TokenEncryptionKey)
	if err != nil {
		return err
	}
	sessions := session.NewManager(
		cfg.Security.SessionSecret,
		cipher,
		time.Duration(cfg.Security.SessionExpiryHours)*time.Hour,
		cfg.Security.SecureCookies,
		log,
	)

	handlers, err := web.NewHandlers(web.Deps{
		Medals:   medals.NewManager(store, logger.Component(log, "medals")),
		Login:    auth.NewLoginService(discordClient, store, logger.Component(log, "login")),
		AuthURL:  discordClient,
		Sessions: sessions,
		Store:    store,
		Metrics:  metrics.New(),
		Limiter:  ratelimit.NewClientLimiter(cfg.API.RateLimitPerMinute),
		BaseURL:  cfg.Server.BaseDomain,
		Logger:   logger.Component(log, "http"),

		TrustProxy: cfg.API.TrustProxyHeaders,
	})
	if err != nil {
		return err
	}

	httpServer := web.NewServer(handlers.Router(), cfg.Server.Host, cfg.Server.HTTPPort, log)

	httpErrChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(); err != nil {
			httpErrChan <- err
		}
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-httpErrChan:
		return fmt.Errorf("HTTP server error: %w", err)
	case sig := <-sigChan:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-c.Context.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server gracefully", zap.Error(err))
	}

	log.Info("server shut down successfully")
	return nil
}

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "postgres schema migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(*cli.Context) error {
					return withPostgres(func(db *database.DB, cfg *config.Config) error {
						return db.RunMigrations(cfg.Database.MigrationsPath)
					})
				},
			},
			{
				Name:  "down",
				Usage: "roll back the last migration",
				Action: func(*cli.Context) error {
					return withPostgres(func(db *database.DB, cfg *config.Config) error {
						return db.RollbackMigration(cfg.Database.MigrationsPath)
					})
				},
			},
		},
	}
}

// withPostgres runs fn against the configured Postgres database
func withPostgres(fn func(db *database.DB, cfg *config.Config) error) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Database.Driver != config.DriverPostgres {
		return errors.New("migrate only applies to DB_DRIVER=postgres; the sqlite store migrates itself on startup")
	}

	db, err := database.NewDB(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	if err := fn(db, cfg); err != nil {
		return err
	}
	log.Info("migration command completed", zap.String("path", cfg.Database.MigrationsPath))
	return nil
}

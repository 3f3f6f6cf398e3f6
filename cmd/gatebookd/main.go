// Package main provides the gatebookd daemon: the HTTP surface over the
// session/request bookkeeping core.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	gormlogger "gorm.io/gorm/logger"

	"github.com/thebtf/gatebook/internal/app"
	"github.com/thebtf/gatebook/internal/config"
	gormdb "github.com/thebtf/gatebook/internal/db/gorm"
	"github.com/thebtf/gatebook/internal/db/memory"
	"github.com/thebtf/gatebook/internal/server"
	"github.com/thebtf/gatebook/internal/tokens"
	"github.com/thebtf/gatebook/internal/watcher"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", config.ConfigPath(), "Config file path")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	zerolog.SetGlobalLevel(logLevel(cfg.LogLevel, *debug))

	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}

	provider, cleanup, guard, err := buildProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer cleanup()

	estimator, err := tokens.NewEstimator()
	if err != nil {
		log.Warn().Err(err).Msg("Token estimator unavailable")
		estimator = nil
	}

	svc := server.New(Version, provider, estimator)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Str("driver", cfg.Driver).Msg("gatebookd listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("Shutting down")
		case <-ctx.Done():
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if guard != nil {
		if err := guard.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start database file guard")
		}
		defer guard.Stop()
	}

	if err := group.Wait(); err != nil {
		log.Fatal().Err(err).Msg("gatebookd exited with error")
	}
}

// logLevel resolves the effective log level: the --debug flag wins, then any
// level zerolog knows from config, then info.
func logLevel(configured string, debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	if level, err := zerolog.ParseLevel(configured); err == nil && level != zerolog.NoLevel {
		return level
	}
	return zerolog.InfoLevel
}

// buildProvider wires the configured storage engine. For SQLite it also
// returns a file guard that reopens the store if the database file is removed.
func buildProvider(cfg *config.Config) (app.UnitOfWorkProvider, func(), *watcher.Guard, error) {
	switch cfg.Driver {
	case "memory":
		return memory.NewStore(), func() {}, nil, nil

	case gormdb.DriverSQLite, gormdb.DriverPostgres:
		store, err := gormdb.NewStore(gormdb.Config{
			Driver:   cfg.Driver,
			Path:     cfg.DBPath,
			DSN:      cfg.DSN,
			MaxConns: cfg.MaxConns,
			LogLevel: gormlogger.Silent,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		provider := gormdb.NewProvider(store)
		cleanup := func() {
			if current := provider.Reset(nil); current != nil {
				_ = current.Close()
			}
		}

		var guard *watcher.Guard
		if cfg.Driver == gormdb.DriverSQLite {
			guard, err = watcher.New(cfg.DBPath, func() {
				fresh, openErr := gormdb.NewStore(gormdb.Config{
					Driver:   cfg.Driver,
					Path:     cfg.DBPath,
					MaxConns: cfg.MaxConns,
					LogLevel: gormlogger.Silent,
				})
				if openErr != nil {
					log.Error().Err(openErr).Msg("Failed to recreate database")
					return
				}
				if old := provider.Reset(fresh); old != nil {
					_ = old.Close()
				}
				log.Info().Str("path", cfg.DBPath).Msg("database recreated")
			})
			if err != nil {
				log.Warn().Err(err).Msg("Failed to create database file guard")
				guard = nil
			}
		}

		return provider, cleanup, guard, nil

	default:
		return nil, nil, nil, errors.New("unsupported driver " + cfg.Driver)
	}
}

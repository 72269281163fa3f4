package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"wordcraft/internal/adapter/memrepo"
	"wordcraft/internal/adapter/repo"
	"wordcraft/internal/http/handlers"
	httpapi "wordcraft/internal/http/httpapi"
	"wordcraft/internal/infra"
	"wordcraft/internal/infra/geoip"
)

// memoryDatabaseURL runs the service on in-memory repositories for local use.
const memoryDatabaseURL = "memory://"

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := handlers.NewHub(logger, cfg.CORSAllowedOrigins)
	app := &handlers.App{
		Hub:        hub,
		Secret:     cfg.SessionSecret,
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	if cfg.DatabaseURL == memoryDatabaseURL {
		logger.Warn().Msg("using in-memory storage; data is lost on exit")
		store := memrepo.New(nil)
		app.Accounts = store.Accounts()
		app.Profiles = store.Profiles()
		app.Sessions = store.Sessions()
		app.Documents = store.Documents()
	} else {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()

		runner := infra.NewSQLRunner(dbpool, logger)
		if cfg.AutoMigrate {
			if err := infra.Migrate(ctx, runner); err != nil {
				logger.Fatal().Err(err).Msg("failed to migrate database")
			}
			logger.Info().Msg("schema migrated")
		}
		app.Accounts = repo.NewAccountRepository(runner)
		app.Profiles = repo.NewProfileRepository(runner)
		app.Sessions = repo.NewSessionRepository(runner)
		app.Documents = repo.NewDocumentRepository(runner)
		app.Ready = dbpool.Ping
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.GeoIPDBPath).Msg("geoip disabled")
	}
	defer resolver.Close()

	router := httpapi.NewRouter(app, httpapi.Options{
		RateLimitPerMin:    cfg.RateLimitPerMin,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Country: func(ip string) string {
			return geoip.Lookup(resolver, ip)
		},
	})

	server := infra.NewHTTPServer(cfg, router)
	server.RegisterOnShutdown(hub.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}

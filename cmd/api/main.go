package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"genengine/internal/backend"
	"genengine/internal/http/handlers"
	httpapi "genengine/internal/http/httpapi"
	"genengine/internal/infra"
	"genengine/internal/infra/geoip"
	"genengine/internal/middleware"
	"genengine/internal/storage"
)

func main() {
	// .env is optional, deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	storageDir := cfg.StorageDir
	if !filepath.IsAbs(storageDir) {
		if abs, err := filepath.Abs(storageDir); err == nil {
			storageDir = abs
		}
	}
	store, err := storage.NewFileStore(storageDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, locale falls back to headers")
	} else if resolver != nil {
		defer resolver.Close()
		lookup = resolver.CountryCode
	}

	// The API only validates model names, so the registry is built without
	// worrying about which providers hold credentials here.
	models := backend.BuildRegistry(backend.RegistryOptions{
		GeminiAPIKey:     cfg.GeminiAPIKey,
		GeminiModel:      cfg.GeminiModel,
		GeminiBaseURL:    cfg.GeminiBaseURL,
		DashScopeAPIKey:  cfg.DashScopeAPIKey,
		QwenModel:        cfg.QwenModel,
		DashScopeBaseURL: cfg.DashScopeBaseURL,
		Logger:           &logger,
	}).Models()

	app := handlers.NewApp(cfg, logger, runner, store, models)
	router := httpapi.NewRouter(app, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

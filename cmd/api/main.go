package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mediagen/internal/adapter/repo"
	"mediagen/internal/http/handlers"
	"mediagen/internal/http/httpapi"
	"mediagen/internal/infra"
	"mediagen/internal/poller"
	"mediagen/internal/provider"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to connect database")
	}
	defer pool.Close()

	client, err := provider.NewClient(provider.Options{
		APIKey:     cfg.ProviderAPIKey,
		BaseURL:    cfg.ProviderBaseURL,
		MaxRetries: cfg.ProviderMaxRetries,
		Timeout:    cfg.ProviderTimeout,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure provider client")
	}
	svc := provider.NewService(client)

	tasks := repo.NewTaskRepository(pool)
	pollers := poller.New(ctx, svc, tasks, logger, poller.Options{
		InitialDelay: cfg.PollInitialDelay,
		Interval:     cfg.PollInterval,
		Budget:       cfg.PollBudget,
		MaxAttempts:  cfg.PollMaxAttempts,
	})

	go func() {
		for err := range pollers.Errors() {
			logger.Error().Err(err).Msg("api: poller supervision")
		}
	}()

	app := handlers.NewApp(logger, tasks, svc, pollers)
	router := httpapi.NewRouter(app, logger, cfg)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}
	pollers.Wait()
	logger.Info().Msg("api: stopped")
}

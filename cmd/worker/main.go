package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mediagen/internal/adapter/repo"
	"mediagen/internal/infra"
	"mediagen/internal/poller"
	"mediagen/internal/provider"
)

const resumeBatchSize = 500

// The worker re-attaches polling loops to PENDING tasks left behind by a
// process restart, then waits for them to drain.
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
		logger.Fatal().Err(err).Msg("worker: failed to connect database")
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
		logger.Fatal().Err(err).Msg("worker: failed to configure provider client")
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
			logger.Error().Err(err).Msg("worker: poller supervision")
		}
	}()

	pending, err := tasks.ListPending(ctx, resumeBatchSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to list pending tasks")
	}
	for _, task := range pending {
		pollers.Resume(task)
	}
	logger.Info().Int("tasks", len(pending)).Msg("worker: resumed pending tasks")

	done := make(chan struct{})
	go func() {
		pollers.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("worker: all tasks drained")
	case <-ctx.Done():
		pollers.Wait()
		logger.Info().Msg("worker: stopped")
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"sjsage522/bestdeal/helpers"
	"sjsage522/bestdeal/logger"
	"sjsage522/bestdeal/services/worker"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Fetch, store, display and publish prices until interrupted",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	log := logger.Default

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Strs("categories", cfg.Categories).
		Dur("crawl_interval", cfg.CrawlInterval).
		Msg("Starting application")

	// Set up context cancelled on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	services, err := initializeServices(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer services.Cleanup()
	services.ServeMetrics()

	pipelines, err := services.Pipelines(ctx)
	if err != nil {
		return err
	}
	for _, p := range pipelines {
		log.Info().
			Str("category", p.Category).
			Int("target_count", len(p.Targets)).
			Strs("tweeted_types", p.TweetedTypes).
			Msg("Created category pipeline")
	}

	w := worker.NewWorker(
		ctx,
		pipelines,
		services.Publisher,
		services.Cache,
		services.Metrics,
		helpers.NewLogger("worker"),
		worker.Options{
			Interval:       cfg.CrawlInterval,
			Concurrency:    cfg.FetchConcurrency,
			FetchPrices:    cfg.FetchPrices,
			DisplayLowest:  cfg.DisplayLowest,
			PublishReports: cfg.PublishReports,
		},
	)

	log.Info().Msg("Starting price watcher")
	if err := w.Start(); err != nil {
		log.Error().Err(err).Msg("Worker exited with error")
		return err
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	return nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sjsage522/bestdeal/config"
	"sjsage522/bestdeal/internal/classifier"
	"sjsage522/bestdeal/internal/ingest"
	"sjsage522/bestdeal/internal/source"
	"sjsage522/bestdeal/internal/stats"
	"sjsage522/bestdeal/internal/store"
	"sjsage522/bestdeal/logger"
	apperrors "sjsage522/bestdeal/pkg/errors"
	"sjsage522/bestdeal/pkg/metrics"
	"sjsage522/bestdeal/services/cache"
	"sjsage522/bestdeal/services/publisher"
	"sjsage522/bestdeal/services/worker"
)

// Services holds all the initialized services
type Services struct {
	Config    config.Config
	Backend   store.Backend
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Metrics   *metrics.Manager

	metricsServer *http.Server
}

// loadConfig loads and validates the configuration
func loadConfig() (config.Config, error) {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// requireDatabase rejects one-shot commands without DATABASE_URL: a fresh
// in-memory history would always be empty.
func requireDatabase(cfg config.Config, command string) error {
	if cfg.DatabaseURL == "" {
		return apperrors.NewConfiguration(command+" reads the recorded price history, set DATABASE_URL", nil)
	}
	return nil
}

// initializeServices initializes all required services. Commands that never
// publish get a log publisher instead of a Redis connection.
func initializeServices(ctx context.Context, cfg config.Config, publishing bool) (*Services, error) {
	log := logger.Default
	services := &Services{Config: cfg, Metrics: metrics.NewManager()}

	// Initialize storage backend
	if cfg.DatabaseURL == "" {
		services.Backend = store.NewMemoryBackend()
		log.Warn().Msg("DATABASE_URL is not set, price history is kept in memory")
	} else {
		backend, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		services.Backend = backend
		log.Info().Msg("Connected to PostgreSQL")
	}

	// Initialize cache service
	if cfg.MemcacheAddr == "" {
		services.Cache = cache.NewMemoryCache()
	} else {
		memcacheService := cache.NewMemcacheService(cfg.MemcacheAddr, "bestdeal:")
		if err := memcacheService.Ping(); err != nil {
			services.Cleanup()
			return nil, err
		}
		services.Cache = memcacheService
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	}

	// Initialize publisher
	if publishing && cfg.PublishReports && cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			redisPublisher.Close()
			services.Cleanup()
			return nil, err
		}
		services.Publisher = redisPublisher
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	} else {
		services.Publisher = publisher.NewLogPublisher()
	}

	return services, nil
}

// ServeMetrics exposes the Prometheus endpoint when METRICS_ADDR is set
func (s *Services) ServeMetrics() {
	if s.Config.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Metrics.Handler())
	s.metricsServer = &http.Server{
		Addr:              s.Config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Serving metrics on %s/metrics", s.Config.MetricsAddr)
		if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Default.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.metricsServer.Shutdown(ctx)
	}
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Backend != nil {
		s.Backend.Close()
	}
}

// Category bundles the engines of one product category
type Category struct {
	Name   string
	Store  store.Store
	Ingest *ingest.Engine
	Stats  *stats.Engine
}

// OpenCategory opens the price history of a category and builds its engines
func (s *Services) OpenCategory(ctx context.Context, name string) (*Category, error) {
	catalog, err := classifier.Lookup(name)
	if err != nil {
		return nil, err
	}

	st, err := s.Backend.Open(ctx, catalog.Name)
	if err != nil {
		return nil, err
	}

	return &Category{
		Name:  catalog.Name,
		Store: st,
		Ingest: ingest.NewEngine(catalog, st,
			ingest.WithLocation(s.Config.Location),
			ingest.WithMetrics(s.Metrics),
		),
		Stats: stats.NewEngine(st, s.Config.ExcludedSources),
	}, nil
}

// Pipelines builds the worker pipelines of every configured category
func (s *Services) Pipelines(ctx context.Context) ([]worker.Pipeline, error) {
	pipelines := make([]worker.Pipeline, 0, len(s.Config.Categories))
	for _, name := range s.Config.Categories {
		category, err := s.OpenCategory(ctx, name)
		if err != nil {
			return nil, err
		}

		targets, err := source.CreateTargets(category.Name, s.Cache)
		if err != nil {
			return nil, err
		}

		pipelines = append(pipelines, worker.Pipeline{
			Category:     category.Name,
			Targets:      targets,
			Ingest:       category.Ingest,
			Stats:        category.Stats,
			TweetedTypes: s.Config.TweetedTypes[category.Name],
		})
	}
	return pipelines, nil
}

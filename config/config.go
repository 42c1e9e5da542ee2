package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	"sjsage522/bestdeal/internal/classifier"
	apperrors "sjsage522/bestdeal/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Storage; an empty URL keeps the price history in memory
	DatabaseURL string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration; empty uses an in-process cache
	MemcacheAddr string

	// Watch loop configuration
	CrawlInterval    time.Duration
	FetchConcurrency int
	AnomalyThreshold float64
	ExcludedSources  []string
	Categories       []string
	TweetedTypes     map[string][]string
	TimeZone         string
	Location         *time.Location

	// Stage toggles
	FetchPrices    bool
	DisplayLowest  bool
	PublishReports bool

	// Metrics endpoint, disabled when empty
	MetricsAddr string

	// Environment
	Environment string
}

var defaultTweetedTypes = map[string]string{
	"GPU": "2060 SUPER,2070 SUPER,2080 TI,3070,3080",
	"CPU": "RYZEN 5 3600,RYZEN 7 3700X",
	"RAM": "",
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLength, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "1000"))
	crawlInterval, _ := strconv.Atoi(getEnv("CRAWL_INTERVAL_SECONDS", "900"))
	concurrency, _ := strconv.Atoi(getEnv("FETCH_CONCURRENCY", "4"))
	threshold, _ := strconv.ParseFloat(getEnv("ANOMALY_THRESHOLD", "50"), 64)

	categories := splitList(getEnv("CATEGORIES", "GPU,CPU"), strings.ToUpper)
	tweeted := make(map[string][]string, len(categories))
	for _, category := range classifier.Names() {
		tweeted[category] = splitList(getEnv(category+"_TWEETED_TYPES", defaultTweetedTypes[category]), strings.ToUpper)
	}

	timeZone := getEnv("TIMEZONE", "Europe/Paris")
	location, _ := time.LoadLocation(timeZone)

	return Config{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "bestdeal"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLength,
		MemcacheAddr:         os.Getenv("MEMCACHE_ADDR"),
		CrawlInterval:        time.Duration(crawlInterval) * time.Second,
		FetchConcurrency:     concurrency,
		AnomalyThreshold:     threshold,
		ExcludedSources:      splitList(getEnv("EXCLUDED_SOURCES", "MindFactory"), nil),
		Categories:           categories,
		TweetedTypes:         tweeted,
		TimeZone:             timeZone,
		Location:             location,
		FetchPrices:          getBool("FETCH_PRICES", true),
		DisplayLowest:        getBool("DISPLAY_LOWEST", true),
		PublishReports:       getBool("PUBLISH_REPORTS", true),
		MetricsAddr:          os.Getenv("METRICS_ADDR"),
		Environment:          getEnv("BESTDEAL_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the watcher cannot run with
func (c Config) Validate() error {
	if len(c.Categories) == 0 {
		return apperrors.NewConfiguration("CATEGORIES is empty", nil)
	}
	for _, category := range c.Categories {
		if _, err := classifier.Lookup(category); err != nil {
			return apperrors.NewConfiguration("CATEGORIES", err)
		}
	}
	if c.CrawlInterval <= 0 {
		return apperrors.NewConfiguration(fmt.Sprintf("CRAWL_INTERVAL_SECONDS must be positive, got %s", c.CrawlInterval), nil)
	}
	if c.FetchConcurrency < 1 {
		return apperrors.NewConfiguration(fmt.Sprintf("FETCH_CONCURRENCY must be at least 1, got %d", c.FetchConcurrency), nil)
	}
	if c.AnomalyThreshold < 0 {
		return apperrors.NewConfiguration(fmt.Sprintf("ANOMALY_THRESHOLD must not be negative, got %v", c.AnomalyThreshold), nil)
	}
	if c.Location == nil {
		return apperrors.NewConfiguration(fmt.Sprintf("unknown TIMEZONE %q", c.TimeZone), nil)
	}
	if c.RedisStreamCount < 1 {
		return apperrors.NewConfiguration("REDIS_STREAM_COUNT must be at least 1", nil)
	}
	return nil
}

// IsProduction reports whether the watcher runs in production
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

// splitList splits a comma separated value, dropping blanks
func splitList(value string, normalize func(string) string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if normalize != nil {
			item = normalize(item)
		}
		items = append(items, item)
	}
	return items
}

package config

import (
	"testing"
	"time"

	apperrors "sjsage522/bestdeal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	require.NoError(t, config.Validate())
	assert.Empty(t, config.DatabaseURL)
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, 0, config.RedisDB)
	assert.Equal(t, 1, config.RedisStreamCount)
	assert.Empty(t, config.MemcacheAddr)
	assert.Equal(t, 900*time.Second, config.CrawlInterval)
	assert.Equal(t, 4, config.FetchConcurrency)
	assert.Equal(t, 50.0, config.AnomalyThreshold)
	assert.Equal(t, []string{"MindFactory"}, config.ExcludedSources)
	assert.Equal(t, []string{"GPU", "CPU"}, config.Categories)
	assert.Equal(t, "Europe/Paris", config.Location.String())
	assert.Contains(t, config.TweetedTypes["GPU"], "2080 TI")
	assert.Empty(t, config.TweetedTypes["RAM"])
	assert.True(t, config.FetchPrices)
	assert.False(t, config.IsProduction())

	// Test with environment variables
	t.Setenv("DATABASE_URL", "postgres://bestdeal@localhost/bestdeal")
	t.Setenv("REDIS_ADDR", "redis.example.com:6379")
	t.Setenv("REDIS_DB", "1")
	t.Setenv("MEMCACHE_ADDR", "memcache.example.com:11211")
	t.Setenv("CRAWL_INTERVAL_SECONDS", "30")
	t.Setenv("CATEGORIES", "gpu, ram")
	t.Setenv("RAM_TWEETED_TYPES", "ddr4")
	t.Setenv("EXCLUDED_SOURCES", "")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("PUBLISH_REPORTS", "false")
	t.Setenv("BESTDEAL_ENVIRONMENT", "production")

	config = LoadConfig()
	require.NoError(t, config.Validate())
	assert.Equal(t, "postgres://bestdeal@localhost/bestdeal", config.DatabaseURL)
	assert.Equal(t, "redis.example.com:6379", config.RedisAddr)
	assert.Equal(t, 1, config.RedisDB)
	assert.Equal(t, "memcache.example.com:11211", config.MemcacheAddr)
	assert.Equal(t, 30*time.Second, config.CrawlInterval)
	assert.Equal(t, []string{"GPU", "RAM"}, config.Categories)
	assert.Equal(t, []string{"DDR4"}, config.TweetedTypes["RAM"])
	assert.Equal(t, []string{"MindFactory"}, config.ExcludedSources, "empty falls back to the default")
	assert.Equal(t, time.UTC, config.Location)
	assert.False(t, config.PublishReports)
	assert.True(t, config.IsProduction())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown category", "CATEGORIES", "GPU,SSD"},
		{"zero interval", "CRAWL_INTERVAL_SECONDS", "0"},
		{"unparsable interval", "CRAWL_INTERVAL_SECONDS", "soon"},
		{"bad time zone", "TIMEZONE", "Mars/Olympus"},
		{"no concurrency", "FETCH_CONCURRENCY", "0"},
		{"negative threshold", "ANOMALY_THRESHOLD", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := LoadConfig().Validate()
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrorTypeConfiguration, apperrors.TypeOf(err))
		})
	}
}

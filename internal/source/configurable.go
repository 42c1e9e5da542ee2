package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"sjsage522/bestdeal/helpers"
	"sjsage522/bestdeal/logger"
	apperrors "sjsage522/bestdeal/pkg/errors"
	"sjsage522/bestdeal/services/cache"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// ConfigurableSource is a source driven by a selector table
type ConfigurableSource struct {
	name      string
	cacheKey  string
	cacheSvc  cache.CacheService
	blockTime time.Duration
	selectors Selectors
	removals  []ElementRemoval
	limiter   *rate.Limiter
	log       *logger.Logger
}

// NewConfigurableSource creates a new configurable source. cacheSvc may be nil,
// in which case rate limits are not remembered between fetches.
func NewConfigurableSource(config SourceConfig, cacheSvc cache.CacheService) *ConfigurableSource {
	return &ConfigurableSource{
		name:      config.Name,
		cacheKey:  config.CacheKey,
		cacheSvc:  cacheSvc,
		blockTime: time.Duration(config.BlockTime) * time.Second,
		selectors: config.Selectors,
		removals:  config.RemoveElements,
		limiter:   newLimiter(config.RequestsPerMinute, config.Burst),
		log:       logger.ForSource(config.Name),
	}
}

func newLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), max(burst, 1))
}

func (c *ConfigurableSource) Name() string {
	return c.name
}

// FetchDeals fetches one listing page and extracts its offers
func (c *ConfigurableSource) FetchDeals(ctx context.Context, hint, url string) (map[string]string, error) {
	c.log.Info().Str("hint", hint).Msg("Fetching deals")

	body, err := c.fetchWithCache(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, apperrors.NewParsing(c.name, "failed to parse HTML", err)
	}

	deals := make(map[string]string)
	doc.Find(c.selectors.Offer).Each(func(_ int, s *goquery.Selection) {
		name, price := c.processOffer(s)
		if name == "" || price == "" {
			return
		}
		deals[name] = price
	})

	c.log.Debug().Str("hint", hint).Int("count", len(deals)).Msg("Fetched deals")
	return deals, nil
}

// fetchWithCache fetches a URL unless the vendor recently rate limited us
func (c *ConfigurableSource) fetchWithCache(ctx context.Context, url string) (io.Reader, error) {
	if c.cacheSvc != nil && c.cacheKey != "" {
		if _, err := c.cacheSvc.Get(c.cacheKey); err == nil {
			return nil, apperrors.NewRateLimit(c.name, c.blockTime)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewNetwork(c.name, "request throttling", err)
	}

	body, err := helpers.FetchWithRandomHeaders(ctx, url)
	if err != nil {
		if errors.Is(err, apperrors.ErrRateLimit) && c.cacheSvc != nil && c.cacheKey != "" {
			seconds := fmt.Sprintf("%d", int(c.blockTime/time.Second))
			if cacheErr := c.cacheSvc.Set(c.cacheKey, []byte(seconds), c.blockTime); cacheErr != nil {
				c.log.Warn().Err(cacheErr).Msg("Failed to remember rate limit")
			}
			c.log.Warn().Dur("block", c.blockTime).Msg("Rate limited, pausing source")
		}
		return nil, err
	}

	return body, nil
}

// cleanSelection removes configured elements from a copy of sel
func (c *ConfigurableSource) cleanSelection(sel *goquery.Selection, path string) *goquery.Selection {
	if sel.Length() == 0 {
		return sel
	}

	clone := sel.Clone()
	for _, removal := range c.removals {
		if removal.ApplyToPath == path {
			clone.Find(removal.Selector).Remove()
		}
	}
	return clone
}

func (c *ConfigurableSource) processOffer(s *goquery.Selection) (string, string) {
	nameSel := s.Find(c.selectors.Name).First()
	if nameSel.Length() == 0 {
		return "", ""
	}

	var name string
	if c.selectors.NameAttr != "" {
		name, _ = nameSel.Attr(c.selectors.NameAttr)
	}
	if strings.TrimSpace(name) == "" {
		name = c.cleanSelection(nameSel, "name").Text()
	}

	priceSel := s.Find(c.selectors.Price).First()
	price := c.cleanSelection(priceSel, "price").Text()

	return helpers.NormalizeText(name), helpers.NormalizeText(price)
}

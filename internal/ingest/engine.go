// Package ingest turns raw vendor offers into deduplicated price observations.
package ingest

import (
	"context"
	"math"
	"strings"
	"time"

	"sjsage522/bestdeal/internal/classifier"
	"sjsage522/bestdeal/internal/model"
	"sjsage522/bestdeal/internal/pricing"
	"sjsage522/bestdeal/internal/store"
	"sjsage522/bestdeal/logger"
	"sjsage522/bestdeal/pkg/metrics"
)

// Engine prepares and records observations for one product category.
type Engine struct {
	catalog  classifier.Catalog
	store    store.Store
	location *time.Location
	now      func() time.Time
	metrics  *metrics.Manager
	log      *logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used to stamp observations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the time zone calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithMetrics records ingestion counters on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine returns an engine classifying with catalog and writing to st.
func NewEngine(catalog classifier.Catalog, st store.Store, opts ...Option) *Engine {
	e := &Engine{
		catalog:  catalog,
		store:    st,
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logger.ForComponent("ingest").WithField("category", catalog.Name)
	return e
}

// Today returns the current calendar day in the engine's time zone.
func (e *Engine) Today() model.Day {
	return model.DayOf(e.now(), e.location)
}

// Prepare parses and classifies one offer. It returns (nil, nil) when the
// description cannot be classified and a price_parse error when the price is
// unusable. Nothing is written.
func (e *Engine) Prepare(description, rawPrice, source, url string) (*model.Observation, error) {
	e.metrics.ObservationReceived(e.catalog.Name)
	description = strings.TrimSpace(description)

	price, err := pricing.Parse(rawPrice)
	if err != nil {
		e.metrics.PriceParseFailed(e.catalog.Name)
		e.log.Warn().Str("product", description).Str("source", source).Err(err).Msg("Skipping offer")
		return nil, err
	}

	cls, err := e.catalog.Classify(description)
	if err != nil {
		e.metrics.ClassificationRejected(e.catalog.Name)
		return nil, nil
	}

	ts := e.now()
	return &model.Observation{
		ProductName:  description,
		ProductBrand: cls.Brand,
		ProductType:  cls.ProductType,
		ProductPrice: math.Round(price*100) / 100,
		SourceName:   source,
		URL:          url,
		Timestamp:    ts,
		Day:          model.DayOf(ts, e.location),
	}, nil
}

// Ingest prepares one offer and records it unless it repeats the latest price
// of its dedup key. It returns the recorded observation, or nil when nothing
// was written.
func (e *Engine) Ingest(ctx context.Context, description, rawPrice, source, url string) (*model.Observation, error) {
	obs, err := e.Prepare(description, rawPrice, source, url)
	if err != nil || obs == nil {
		return nil, err
	}

	accepted, err := e.store.InsertBatch(ctx, []model.Observation{*obs})
	if err != nil {
		return nil, err
	}
	e.recorded(accepted)
	if len(accepted) == 0 {
		return nil, nil
	}
	return &accepted[0], nil
}

// SweepAnomalies deletes observations priced below threshold, typically scraper
// glitches such as a card listed at 1€.
func (e *Engine) SweepAnomalies(ctx context.Context, threshold float64) (int64, error) {
	deleted, err := e.store.DeleteBelowPriceThreshold(ctx, threshold)
	if err != nil {
		return 0, err
	}
	e.metrics.AnomaliesDeleted(e.catalog.Name, deleted)
	e.log.Info().Int64("deleted", deleted).Float64("threshold", threshold).Msg("Deleted price anomalies")
	return deleted, nil
}

func (e *Engine) recorded(accepted []model.Observation) {
	e.metrics.ObservationsRecorded(e.catalog.Name, len(accepted))
	for _, o := range accepted {
		e.log.Info().
			Str("product", o.ProductName).
			Str("source", o.SourceName).
			Float64("price", o.ProductPrice).
			Msg("New price")
	}
}

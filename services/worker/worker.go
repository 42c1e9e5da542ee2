package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"sjsage522/bestdeal/helpers"
	"sjsage522/bestdeal/internal/ingest"
	"sjsage522/bestdeal/internal/model"
	"sjsage522/bestdeal/internal/source"
	"sjsage522/bestdeal/internal/stats"
	apperrors "sjsage522/bestdeal/pkg/errors"
	"sjsage522/bestdeal/pkg/metrics"
	"sjsage522/bestdeal/services/cache"
	"sjsage522/bestdeal/services/publisher"

	"golang.org/x/sync/errgroup"
)

// publishedTTL outlives a calendar day so a marker is never dropped before its day ends.
const publishedTTL = 36 * time.Hour

// Pipeline wires together everything one product category needs.
type Pipeline struct {
	Category     string
	Targets      []source.Target
	Ingest       *ingest.Engine
	Stats        *stats.Engine
	TweetedTypes []string
}

// Options toggles the stages of a cycle.
type Options struct {
	Interval       time.Duration
	Concurrency    int
	FetchPrices    bool
	DisplayLowest  bool
	PublishReports bool
}

// Worker handles the fetch, store, display and publish loop
type Worker struct {
	ctx       context.Context
	pipelines []Pipeline
	publisher publisher.Publisher
	cache     cache.CacheService
	metrics   *metrics.Manager
	logger    helpers.LoggerInterface
	options   Options
}

// NewWorker creates a new worker
func NewWorker(
	ctx context.Context,
	pipelines []Pipeline,
	pub publisher.Publisher,
	cacheSvc cache.CacheService,
	m *metrics.Manager,
	logger helpers.LoggerInterface,
	options Options,
) *Worker {
	if options.Concurrency < 1 {
		options.Concurrency = 1
	}
	return &Worker{
		ctx:       ctx,
		pipelines: pipelines,
		publisher: pub,
		cache:     cacheSvc,
		metrics:   m,
		logger:    logger,
		options:   options,
	}
}

// Start runs cycles until the worker context is cancelled. Cancellation is
// only checked between cycles, so a cycle in progress always finishes.
func (w *Worker) Start() error {
	for {
		start := time.Now()
		w.RunCycle()
		w.logger.LogInfo("Cycle finished in %s, next one in %s", time.Since(start).Round(time.Millisecond), w.options.Interval)

		select {
		case <-w.ctx.Done():
			return nil
		case <-time.After(w.options.Interval):
		}
	}
}

// RunCycle processes every category once, then trims the report streams.
// It ignores cancellation of the worker context.
func (w *Worker) RunCycle() {
	ctx := context.WithoutCancel(w.ctx)
	for _, p := range w.pipelines {
		start := time.Now()
		w.runCategory(ctx, p)
		w.metrics.CycleCompleted(p.Category, time.Since(start))
	}

	if w.options.PublishReports {
		if err := w.publisher.TrimStreams(); err != nil {
			w.logger.LogError("StreamTrimming", err)
		}
	}
}

func (w *Worker) runCategory(ctx context.Context, p Pipeline) {
	if w.options.FetchPrices {
		if err := w.fetchAndStore(ctx, p); err != nil {
			// storage is down: skip the rest of this category until next cycle
			w.logger.LogError(p.Category, err)
			return
		}
	}

	today := p.Ingest.Today()

	if w.options.DisplayLowest {
		if err := w.displayLowest(ctx, p, today); err != nil {
			w.logger.LogError(p.Category, err)
			return
		}
	}

	if w.options.PublishReports {
		for _, productType := range p.TweetedTypes {
			if err := w.publishReport(ctx, p, productType, today); err != nil {
				w.logger.LogError(p.Category, err)
			}
		}
	}
}

// fetchAndStore scrapes every target in parallel then records the offers in
// one batch. Vendor failures are logged and skipped.
func (w *Worker) fetchAndStore(ctx context.Context, p Pipeline) error {
	results := make([]map[string]string, len(p.Targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.options.Concurrency)
	for i, target := range p.Targets {
		g.Go(func() error {
			results[i] = w.fetch(gctx, target)
			return nil
		})
	}
	g.Wait()

	batch := p.Ingest.NewBatch()
	for i, target := range p.Targets {
		descriptions := make([]string, 0, len(results[i]))
		for description := range results[i] {
			descriptions = append(descriptions, description)
		}
		sort.Strings(descriptions)

		for _, description := range descriptions {
			// price_parse errors are already logged by the engine
			_ = batch.Add(description, results[i][description], target.Source.Name(), target.URL)
		}
	}

	_, err := batch.Commit(ctx)
	return err
}

func (w *Worker) fetch(ctx context.Context, target source.Target) map[string]string {
	name := target.Source.Name()
	start := time.Now()

	deals, err := target.Source.FetchDeals(ctx, target.Hint, target.URL)
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.IsRetryable() && ctx.Err() == nil {
		// one more attempt for transient network failures
		deals, err = target.Source.FetchDeals(ctx, target.Hint, target.URL)
	}
	status := "ok"
	switch {
	case errors.Is(err, apperrors.ErrRateLimit):
		status = "rate_limited"
	case err != nil:
		status = "error"
	}
	w.metrics.SourceFetched(name, status, time.Since(start))

	if err != nil {
		w.logger.LogError(name, err)
		return nil
	}
	return deals
}

func (w *Worker) displayLowest(ctx context.Context, p Pipeline, today model.Day) error {
	deals, err := p.Stats.BestDeals(ctx, today)
	if err != nil {
		return err
	}
	for _, line := range stats.FormatBestDeals(deals) {
		w.logger.LogInfo("%s", line)
	}
	return nil
}

// publishReport publishes the daily report of productType at most once per
// day. The marker is claimed before publishing so concurrent watchers sharing
// a cache cannot both publish.
func (w *Worker) publishReport(ctx context.Context, p Pipeline, productType string, today model.Day) error {
	marker := fmt.Sprintf("published:%s:%s:%s", p.Category, productType, today)

	cheapest, err := p.Stats.FindCheapest(ctx, productType, &today)
	if apperrors.IsNotFound(err) {
		w.logger.LogInfo("No %s offer for %s today, nothing to publish", productType, p.Category)
		return nil
	}
	if err != nil {
		return err
	}

	text, err := p.Stats.FormatCheapestReport(ctx, productType, today)
	if err != nil {
		return err
	}

	if err := w.cache.Add(marker, []byte(today.String()), publishedTTL); err != nil {
		if errors.Is(err, cache.ErrNotStored) {
			return nil
		}
		return err
	}

	payload, err := json.Marshal(publisher.Report{
		Category:    p.Category,
		ProductType: productType,
		Day:         today.String(),
		Brand:       cheapest.ProductBrand,
		Price:       cheapest.ProductPrice,
		URL:         cheapest.URL,
		Text:        text,
	})
	if err != nil {
		w.cache.Delete(marker)
		return err
	}

	if err := w.publisher.Publish(p.Category, payload); err != nil {
		// release the marker so the next cycle retries
		w.cache.Delete(marker)
		return err
	}

	w.metrics.ReportPublished(p.Category)
	w.logger.LogInfo("Published %s report for %s", productType, today)
	return nil
}

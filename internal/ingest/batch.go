package ingest

import (
	"context"

	"sjsage522/bestdeal/internal/model"
)

// Batch collects the observations of one scrape cycle so they are written together.
type Batch struct {
	engine  *Engine
	pending []model.Observation
}

// NewBatch starts an empty batch.
func (e *Engine) NewBatch() *Batch {
	return &Batch{engine: e}
}

// Add prepares one offer and queues it. Unclassifiable offers are dropped
// silently; a price_parse error is returned so the caller can log the source.
func (b *Batch) Add(description, rawPrice, source, url string) error {
	obs, err := b.engine.Prepare(description, rawPrice, source, url)
	if err != nil || obs == nil {
		return err
	}
	b.pending = append(b.pending, *obs)
	return nil
}

// Len returns the number of queued observations.
func (b *Batch) Len() int {
	return len(b.pending)
}

// Commit writes the queued observations and returns the ones recorded. The
// batch is empty afterwards, whether or not the write succeeded.
func (b *Batch) Commit(ctx context.Context) ([]model.Observation, error) {
	pending := b.pending
	b.pending = nil

	if len(pending) == 0 {
		b.engine.log.Info().Msg("Nothing to insert")
		return nil, nil
	}

	accepted, err := b.engine.store.InsertBatch(ctx, pending)
	if err != nil {
		return nil, err
	}
	b.engine.recorded(accepted)
	b.engine.log.Debug().
		Int("queued", len(pending)).
		Int("recorded", len(accepted)).
		Msg("Batch committed")
	return accepted, nil
}

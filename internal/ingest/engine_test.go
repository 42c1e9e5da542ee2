package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"sjsage522/bestdeal/internal/classifier"
	"sjsage522/bestdeal/internal/model"
	"sjsage522/bestdeal/internal/store"
	apperrors "sjsage522/bestdeal/pkg/errors"
	"sjsage522/bestdeal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a clock that advances one minute per call.
func fixedClock(start time.Time) func() time.Time {
	current := start.Add(-time.Minute)
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func newTestEngine(t *testing.T, st store.Store, opts ...Option) *Engine {
	t.Helper()
	start := time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)
	return NewEngine(classifier.GPU(), st, append([]Option{WithClock(fixedClock(start))}, opts...)...)
}

func TestPrepare(t *testing.T) {
	e := newTestEngine(t, store.NewMemory())

	obs, err := e.Prepare("  MSI RTX 3080 Ti 6 Go ", "1 299,99 €", "LDLC", "https://ldlc.example")
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Equal(t, "MSI RTX 3080 Ti 6 Go", obs.ProductName)
	assert.Equal(t, "MSI", obs.ProductBrand)
	assert.Equal(t, "3080 TI", obs.ProductType)
	assert.Equal(t, "LDLC", obs.SourceName)
	assert.Equal(t, 1299.99, obs.ProductPrice)
	assert.Equal(t, "https://ldlc.example", obs.URL)
	assert.Equal(t, "2024-06-03", obs.Day.String())
	assert.Zero(t, obs.ID)
}

func TestPrepareRejections(t *testing.T) {
	m := metrics.NewManager()
	e := newTestEngine(t, store.NewMemory(), WithMetrics(m))

	obs, err := e.Prepare("Noname RTX 3080", "699", "LDLC", "")
	assert.NoError(t, err)
	assert.Nil(t, obs)

	obs, err = e.Prepare("MSI RTX 3080", "Rupture", "LDLC", "")
	assert.ErrorIs(t, err, apperrors.ErrPriceParse)
	assert.Nil(t, obs)

	obs, err = e.Prepare("MSI RTX 3080", "0,00 €", "LDLC", "")
	assert.ErrorIs(t, err, apperrors.ErrPriceParse)
	assert.Nil(t, obs)

	rejected, err := testutil.GatherAndCount(m.Registry(), "bestdeal_classification_rejected_total")
	require.NoError(t, err)
	assert.Equal(t, 1, rejected)
}

func TestPrepareUsesLocation(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	late := time.Date(2024, time.June, 3, 22, 30, 0, 0, time.UTC)
	e := NewEngine(classifier.GPU(), store.NewMemory(), WithClock(func() time.Time { return late }), WithLocation(paris))

	obs, err := e.Prepare("MSI RTX 3080", "699", "LDLC", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-04", obs.Day.String())
	assert.Equal(t, "2024-06-04", e.Today().String())
}

func TestIngestSameDayDedup(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	e := newTestEngine(t, st)

	first, err := e.Ingest(ctx, "MSI RTX 3080", "799,99 €", "LDLC", "u")
	require.NoError(t, err)
	require.NotNil(t, first)

	again, err := e.Ingest(ctx, "MSI RTX 3080", "799.99€", "LDLC", "u")
	require.NoError(t, err)
	assert.Nil(t, again, "same price on the same day must not be recorded twice")

	changed, err := e.Ingest(ctx, "MSI RTX 3080", "779,99 €", "LDLC", "u")
	require.NoError(t, err)
	require.NotNil(t, changed)
	assert.Equal(t, 779.99, changed.ProductPrice)

	rows, err := st.Find(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	last, err := st.FindLastPrice(ctx, first.Key())
	require.NoError(t, err)
	assert.Equal(t, 779.99, last.ProductPrice)
}

func TestIngestUnclassifiedWritesNothing(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	e := newTestEngine(t, st)

	obs, err := e.Ingest(ctx, "MSI GeForce RTX 3090 Ti", "1999", "LDLC", "u")
	assert.NoError(t, err)
	assert.Nil(t, obs)

	rows, err := st.Find(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

type failingStore struct {
	store.Store
}

func (failingStore) InsertBatch(context.Context, []model.Observation) ([]model.Observation, error) {
	return nil, apperrors.NewStorage("test", "down", errors.New("connection refused"))
}

func (failingStore) DeleteBelowPriceThreshold(context.Context, float64) (int64, error) {
	return 0, apperrors.NewStorage("test", "down", errors.New("connection refused"))
}

func TestIngestStorageFailure(t *testing.T) {
	e := newTestEngine(t, failingStore{})

	_, err := e.Ingest(context.Background(), "MSI RTX 3080", "799", "LDLC", "u")
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	_, err = e.SweepAnomalies(context.Background(), 50)
	assert.True(t, apperrors.IsStorage(err))
}

func TestSweepAnomalies(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	e := newTestEngine(t, st)

	for _, price := range []string{"1 €", "12,50 €", "649 €"} {
		_, err := e.Ingest(ctx, "MSI RTX 3070 "+price, price, "LDLC", "u")
		require.NoError(t, err)
	}

	deleted, err := e.SweepAnomalies(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	deleted, err = e.SweepAnomalies(ctx, 50)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	rows, err := st.Find(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 649.0, rows[0].ProductPrice)
}

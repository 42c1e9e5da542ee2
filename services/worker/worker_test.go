package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"sjsage522/bestdeal/helpers"
	"sjsage522/bestdeal/internal/classifier"
	"sjsage522/bestdeal/internal/ingest"
	"sjsage522/bestdeal/internal/model"
	"sjsage522/bestdeal/internal/source"
	"sjsage522/bestdeal/internal/stats"
	"sjsage522/bestdeal/internal/store"
	apperrors "sjsage522/bestdeal/pkg/errors"
	"sjsage522/bestdeal/pkg/metrics"
	"sjsage522/bestdeal/services/cache"
	"sjsage522/bestdeal/services/publisher"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockSource implements the source.Source interface for testing
type MockSource struct {
	name     string
	deals    map[string]string
	fetchErr error
}

var _ source.Source = (*MockSource)(nil)

func (m *MockSource) FetchDeals(ctx context.Context, hint, url string) (map[string]string, error) {
	return m.deals, m.fetchErr
}

func (m *MockSource) Name() string {
	return m.name
}

// MockPublisher implements the publisher.Publisher interface for testing
type MockPublisher struct {
	mu         sync.Mutex
	messages   []publisher.Report
	keys       []string
	publishErr error
	trimmed    int
}

var _ publisher.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	var report publisher.Report
	if err := json.Unmarshal(message, &report); err != nil {
		return err
	}
	m.keys = append(m.keys, key)
	m.messages = append(m.messages, report)
	return nil
}

func (m *MockPublisher) TrimStreams() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trimmed++
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// MockLogger implements the helpers.LoggerInterface for testing
type MockLogger struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

var _ helpers.LoggerInterface = (*MockLogger)(nil)

func (m *MockLogger) LogError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, name+": "+err.Error())
}

func (m *MockLogger) LogInfo(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, fmt.Sprintf(format, args...))
}

var now = time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store     store.Store
	cache     *cache.MemoryCache
	publisher *MockPublisher
	logger    *MockLogger
	metrics   *metrics.Manager
}

func newFixture(st store.Store) *fixture {
	return &fixture{
		store:     st,
		cache:     cache.NewMemoryCache(),
		publisher: &MockPublisher{},
		logger:    &MockLogger{},
		metrics:   metrics.NewManager(),
	}
}

func (f *fixture) worker(ctx context.Context, sources []source.Source, options Options) *Worker {
	targets := make([]source.Target, 0, len(sources))
	for _, src := range sources {
		targets = append(targets, source.Target{Source: src, Hint: "RTX", URL: "https://" + strings.ToLower(src.Name()) + ".example/gpu"})
	}
	pipeline := Pipeline{
		Category:     "GPU",
		Targets:      targets,
		Ingest:       ingest.NewEngine(classifier.GPU(), f.store, ingest.WithClock(func() time.Time { return now }), ingest.WithMetrics(f.metrics)),
		Stats:        stats.NewEngine(f.store, []string{"MindFactory"}),
		TweetedTypes: []string{"3080", "3090"},
	}
	return NewWorker(ctx, []Pipeline{pipeline}, f.publisher, f.cache, f.metrics, f.logger, options)
}

func allStages() Options {
	return Options{Interval: time.Millisecond, Concurrency: 2, FetchPrices: true, DisplayLowest: true, PublishReports: true}
}

func TestWorkerRunCycle(t *testing.T) {
	f := newFixture(store.NewMemory())
	sources := []source.Source{
		&MockSource{name: "LDLC", deals: map[string]string{
			"MSI GeForce RTX 3080 GAMING X TRIO": "799,99 €",
			"Noname RTX 3080":                    "499 €",
			"MSI GeForce RTX 3070 VENTUS":        "Rupture",
		}},
		&MockSource{name: "MindFactory", deals: map[string]string{
			"PALIT GeForce RTX 3080 GamingPro": "649,00 €",
		}},
		&MockSource{name: "TopAchat", fetchErr: apperrors.NewRateLimit("TopAchat", time.Minute)},
	}
	w := f.worker(context.Background(), sources, allStages())

	w.RunCycle()

	rows, err := f.store.Find(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.Len(t, f.logger.errors, 1)
	assert.Contains(t, f.logger.errors[0], "TopAchat")

	assert.Contains(t, f.logger.infos, "Cheapest [3080] [799.99]€ [MSI GeForce RTX 3080 GAMING X TRIO] [LDLC]")

	// MindFactory is excluded from reports
	require.Len(t, f.publisher.messages, 1)
	report := f.publisher.messages[0]
	assert.Equal(t, "GPU", f.publisher.keys[0])
	assert.Equal(t, "3080", report.ProductType)
	assert.Equal(t, "2024-06-03", report.Day)
	assert.Equal(t, "MSI", report.Brand)
	assert.Equal(t, 799.99, report.Price)
	assert.True(t, strings.HasPrefix(report.Text, "3080 lowest price (#MSI)\n"))
	assert.Equal(t, 1, f.publisher.trimmed)

	fetches, err := testutil.GatherAndCount(f.metrics.Registry(), "bestdeal_source_fetches_total")
	require.NoError(t, err)
	assert.Equal(t, 3, fetches, "one series per source and status")
}

func TestWorkerPublishesOncePerDay(t *testing.T) {
	f := newFixture(store.NewMemory())
	src := &MockSource{name: "LDLC", deals: map[string]string{"MSI GeForce RTX 3080 GAMING X TRIO": "799,99 €"}}
	w := f.worker(context.Background(), []source.Source{src}, allStages())

	w.RunCycle()
	src.deals = map[string]string{"MSI GeForce RTX 3080 GAMING X TRIO": "779,99 €"}
	w.RunCycle()

	assert.Len(t, f.publisher.messages, 1)

	marker, err := f.cache.Get("published:GPU:3080:2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", string(marker))
}

func TestWorkerPublishFailureReleasesMarker(t *testing.T) {
	f := newFixture(store.NewMemory())
	f.publisher.publishErr = apperrors.NewPublisher("redis", "xadd", errors.New("connection refused"))
	src := &MockSource{name: "LDLC", deals: map[string]string{"MSI GeForce RTX 3080 GAMING X TRIO": "799,99 €"}}
	w := f.worker(context.Background(), []source.Source{src}, allStages())

	w.RunCycle()
	assert.Empty(t, f.publisher.messages)
	_, err := f.cache.Get("published:GPU:3080:2024-06-03")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	f.publisher.publishErr = nil
	w.RunCycle()
	assert.Len(t, f.publisher.messages, 1)
}

type failingStore struct {
	store.Store
}

func (failingStore) InsertBatch(context.Context, []model.Observation) ([]model.Observation, error) {
	return nil, apperrors.NewStorage("test", "insert", errors.New("connection refused"))
}

func TestWorkerStorageFailureAbandonsCategory(t *testing.T) {
	f := newFixture(failingStore{Store: store.NewMemory()})
	src := &MockSource{name: "LDLC", deals: map[string]string{"MSI GeForce RTX 3080 GAMING X TRIO": "799,99 €"}}
	w := f.worker(context.Background(), []source.Source{src}, allStages())

	w.RunCycle()

	require.Len(t, f.logger.errors, 1)
	assert.Contains(t, f.logger.errors[0], "GPU")
	assert.Empty(t, f.publisher.messages)
	assert.NotContains(t, strings.Join(f.logger.infos, "\n"), "Cheapest [")
}

func TestWorkerStagesCanBeDisabled(t *testing.T) {
	f := newFixture(store.NewMemory())
	src := &MockSource{name: "LDLC", deals: map[string]string{"MSI GeForce RTX 3080 GAMING X TRIO": "799,99 €"}}
	w := f.worker(context.Background(), []source.Source{src}, Options{Interval: time.Millisecond})

	w.RunCycle()

	rows, err := f.store.Find(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, f.publisher.messages)
	assert.Zero(t, f.publisher.trimmed)
}

func TestWorkerStartStopsOnCancel(t *testing.T) {
	f := newFixture(store.NewMemory())
	ctx, cancel := context.WithCancel(context.Background())
	options := allStages()
	options.Interval = time.Hour
	w := f.worker(ctx, nil, options)

	done := make(chan error, 1)
	go func() { done <- w.Start() }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

type flakySource struct {
	calls int
	err   error
}

func (f *flakySource) FetchDeals(ctx context.Context, hint, url string) (map[string]string, error) {
	f.calls++
	if f.calls == 1 {
		return nil, f.err
	}
	return map[string]string{"MSI GeForce RTX 3080 GAMING X TRIO": "799,99 €"}, nil
}

func (f *flakySource) Name() string { return "LDLC" }

func TestWorkerRetriesTransientFetchFailure(t *testing.T) {
	f := newFixture(store.NewMemory())
	flaky := &flakySource{err: apperrors.NewNetwork("LDLC", "timeout", errors.New("i/o timeout"))}
	w := f.worker(context.Background(), []source.Source{flaky}, allStages())

	w.RunCycle()

	assert.Equal(t, 2, flaky.calls)
	assert.Empty(t, f.logger.errors)
	rows, err := f.store.Find(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWorkerDoesNotRetryRateLimit(t *testing.T) {
	f := newFixture(store.NewMemory())
	flaky := &flakySource{err: apperrors.NewRateLimit("LDLC", time.Minute)}
	w := f.worker(context.Background(), []source.Source{flaky}, allStages())

	w.RunCycle()

	assert.Equal(t, 1, flaky.calls)
	require.Len(t, f.logger.errors, 1)
}

// interruptingSource cancels the worker context while its page is being fetched.
type interruptingSource struct {
	cancel context.CancelFunc
}

func (s *interruptingSource) FetchDeals(ctx context.Context, hint, url string) (map[string]string, error) {
	s.cancel()
	return map[string]string{"MSI GeForce RTX 3080 GAMING X TRIO": "799,99 €"}, nil
}

func (s *interruptingSource) Name() string { return "LDLC" }

func TestWorkerFinishesCycleAfterCancellation(t *testing.T) {
	f := newFixture(store.NewMemory())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := f.worker(ctx, []source.Source{&interruptingSource{cancel: cancel}}, allStages())

	require.NoError(t, w.Start())

	assert.Error(t, ctx.Err())
	assert.Empty(t, f.logger.errors)
	rows, err := f.store.Find(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1, "offers fetched before the interruption are stored")
	assert.Len(t, f.publisher.messages, 1)
}

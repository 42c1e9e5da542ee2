package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"sjsage522/bestdeal/internal/model"
	"sjsage522/bestdeal/logger"
	apperrors "sjsage522/bestdeal/pkg/errors"
)

// Memory is an in-process Store. All operations are serialized by one mutex,
// which makes InsertBatch atomic per dedup key.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	rows   []model.Observation
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) InsertBatch(ctx context.Context, observations []model.Observation) ([]model.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var accepted []model.Observation
	for _, o := range observations {
		if last := m.latestLocked(o.Key()); last != nil && last.ProductPrice == o.ProductPrice {
			continue
		}
		m.nextID++
		o.ID = m.nextID
		m.rows = append(m.rows, o)
		accepted = append(accepted, o)
	}

	logger.ForStore("memory").Debug().
		Int("received", len(observations)).
		Int("inserted", len(accepted)).
		Msg("Batch inserted")
	return accepted, nil
}

// latestLocked returns the most recent row for key. Callers hold m.mu.
func (m *Memory) latestLocked(key model.DedupKey) *model.Observation {
	var latest *model.Observation
	for i := range m.rows {
		row := &m.rows[i]
		if row.Key() != key {
			continue
		}
		if latest == nil || !row.Timestamp.Before(latest.Timestamp) {
			latest = row
		}
	}
	return latest
}

func (m *Memory) FindLastPrice(ctx context.Context, key model.DedupKey) (*model.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := m.latestLocked(key)
	if latest == nil {
		return nil, apperrors.NewNotFound(fmt.Sprintf("no price for [%s] at [%s] on %s", key.ProductName, key.SourceName, key.Day))
	}
	found := *latest
	return &found, nil
}

func (m *Memory) FindCheapest(ctx context.Context, filter CheapestFilter) (*model.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cheapest *model.Observation
	for i := range m.rows {
		row := &m.rows[i]
		if row.ProductType != filter.ProductType || filter.excludes(row.SourceName) {
			continue
		}
		if filter.Day != nil && row.Day != *filter.Day {
			continue
		}
		if cheapest == nil || row.ProductPrice < cheapest.ProductPrice {
			cheapest = row
		}
	}
	if cheapest == nil {
		return nil, apperrors.NewNotFound(missingCheapest(filter))
	}
	found := *cheapest
	return &found, nil
}

func (m *Memory) DistinctProductTypes(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	types := []string{}
	for _, row := range m.rows {
		if _, ok := seen[row.ProductType]; ok {
			continue
		}
		seen[row.ProductType] = struct{}{}
		types = append(types, row.ProductType)
	}
	sort.Strings(types)
	return types, nil
}

func (m *Memory) DeleteBelowPriceThreshold(ctx context.Context, threshold float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.rows[:0]
	var deleted int64
	for _, row := range m.rows {
		if row.ProductPrice < threshold {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return deleted, nil
}

func (m *Memory) Find(ctx context.Context, filter Filter) ([]model.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := []model.Observation{}
	for i := range m.rows {
		if filter.matches(&m.rows[i]) {
			found = append(found, m.rows[i])
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Timestamp.Before(found[j].Timestamp)
	})
	return found, nil
}

func missingCheapest(filter CheapestFilter) string {
	when := "ever"
	if filter.Day != nil {
		when = "on " + filter.Day.String()
	}
	return fmt.Sprintf("missing cheapest [%s] %s", filter.ProductType, when)
}

// MemoryBackend hands out one Memory per collection name.
type MemoryBackend struct {
	mu          sync.Mutex
	collections map[string]*Memory
}

// NewMemoryBackend returns a backend holding every collection in memory.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{collections: make(map[string]*Memory)}
}

func (b *MemoryBackend) Open(ctx context.Context, collection string) (Store, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	name := strings.ToUpper(collection)
	m, ok := b.collections[name]
	if !ok {
		m = NewMemory()
		b.collections[name] = m
	}
	return m, nil
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Close() {}

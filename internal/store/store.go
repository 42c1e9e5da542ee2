// Package store persists price observations. Each product category lives in
// its own collection; a Backend opens one Store per collection.
package store

import (
	"context"

	"sjsage522/bestdeal/internal/model"
)

// Store is the price history of one product category.
type Store interface {
	// InsertBatch records each observation unless the latest stored observation
	// for its dedup key carries the same price. The check and the write are one
	// atomic step per key. It returns the observations actually recorded.
	InsertBatch(ctx context.Context, observations []model.Observation) ([]model.Observation, error)

	// FindLastPrice returns the most recent observation for key, or a not_found error.
	FindLastPrice(ctx context.Context, key model.DedupKey) (*model.Observation, error)

	// FindCheapest returns the lowest priced observation matching filter, or a not_found error.
	FindCheapest(ctx context.Context, filter CheapestFilter) (*model.Observation, error)

	// DistinctProductTypes lists every product type seen, sorted.
	DistinctProductTypes(ctx context.Context) ([]string, error)

	// DeleteBelowPriceThreshold removes observations priced strictly below threshold.
	DeleteBelowPriceThreshold(ctx context.Context, threshold float64) (int64, error)

	// Find lists observations matching filter, oldest first.
	Find(ctx context.Context, filter Filter) ([]model.Observation, error)
}

// Backend opens per-category stores over one shared connection.
type Backend interface {
	Open(ctx context.Context, collection string) (Store, error)
	Name() string
	Close()
}

// CheapestFilter selects the observations considered by FindCheapest.
// A nil Day means all time.
type CheapestFilter struct {
	ProductType     string
	Day             *model.Day
	ExcludedSources []string
}

// Filter selects observations for Find. Empty fields match everything.
type Filter struct {
	Day         *model.Day
	ProductType string
	Brand       string
	Source      string
}

func (f CheapestFilter) excludes(source string) bool {
	for _, s := range f.ExcludedSources {
		if s == source {
			return true
		}
	}
	return false
}

func (f Filter) matches(o *model.Observation) bool {
	switch {
	case f.Day != nil && o.Day != *f.Day:
		return false
	case f.ProductType != "" && o.ProductType != f.ProductType:
		return false
	case f.Brand != "" && o.ProductBrand != f.Brand:
		return false
	case f.Source != "" && o.SourceName != f.Source:
		return false
	}
	return true
}

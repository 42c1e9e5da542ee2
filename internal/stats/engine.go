// Package stats answers cheapest-price questions over a price history and
// renders them as report lines.
package stats

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"sjsage522/bestdeal/internal/model"
	"sjsage522/bestdeal/internal/store"
	"sjsage522/bestdeal/logger"
	apperrors "sjsage522/bestdeal/pkg/errors"
)

// Engine computes statistics for one product category.
type Engine struct {
	store    store.Store
	excluded []string
	log      *logger.Logger
}

// NewEngine returns an engine ignoring offers from the excluded sources.
func NewEngine(st store.Store, excludedSources []string) *Engine {
	return &Engine{
		store:    st,
		excluded: excludedSources,
		log:      logger.ForComponent("stats"),
	}
}

// FindCheapest returns the cheapest observation of productType on day, or
// across all days when day is nil. Missing data is a not_found error.
func (e *Engine) FindCheapest(ctx context.Context, productType string, day *model.Day) (*model.Observation, error) {
	return e.store.FindCheapest(ctx, store.CheapestFilter{
		ProductType:     productType,
		Day:             day,
		ExcludedSources: e.excluded,
	})
}

// FormatComparison renders todayPrice against the cheapest price of refDay
// (all time when nil):
//
//	Compared to yesterday: ↘ -10.0% (800.0€) 2024-06-02
//
// It returns false when no reference exists or the lookup fails.
func (e *Engine) FormatComparison(ctx context.Context, title string, todayPrice float64, productType string, refDay *model.Day) (string, bool) {
	reference, err := e.FindCheapest(ctx, productType, refDay)
	if err != nil {
		when := "ever"
		if refDay != nil {
			when = refDay.String()
		}
		e.log.Warn().Err(err).
			Str("product_type", productType).
			Str("reference", when).
			Msg("Unable to compute statistics")
		return "", false
	}

	rate := EvolutionRate(&todayPrice, &reference.ProductPrice)
	if rate == nil {
		e.log.Warn().
			Float64("today_price", todayPrice).
			Float64("reference_price", reference.ProductPrice).
			Msg("Cannot compare today price with reference price")
	}

	return fmt.Sprintf("%s: %s %s (%s€) %s",
		title,
		ClassifyRate(rate).Glyph(),
		FormatRate(rate),
		formatNumber(reference.ProductPrice),
		reference.Day,
	), true
}

// FormatCheapestReport renders the daily report of productType: today's
// cheapest offer followed by its comparison with yesterday and with the
// cheapest price ever, when those exist.
func (e *Engine) FormatCheapestReport(ctx context.Context, productType string, today model.Day) (string, error) {
	cheapest, err := e.FindCheapest(ctx, productType, &today)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s lowest price (#%s)\n%s\n%s€\n%s",
		productType, cheapest.ProductBrand, cheapest.ProductName, formatNumber(cheapest.ProductPrice), cheapest.URL)

	yesterday := today.Prev()
	if line, ok := e.FormatComparison(ctx, "Compared to yesterday", cheapest.ProductPrice, productType, &yesterday); ok {
		b.WriteString("\n" + line)
	}
	if line, ok := e.FormatComparison(ctx, "Compared to cheapest ever", cheapest.ProductPrice, productType, nil); ok {
		b.WriteString("\n" + line)
	}

	e.log.Debug().Str("product_type", productType).Msg("Report formatted")
	return b.String(), nil
}

// BestDeals returns the cheapest observation of every known product type on day.
// Product types without an offer that day are left out.
func (e *Engine) BestDeals(ctx context.Context, day model.Day) ([]model.Observation, error) {
	types, err := e.store.DistinctProductTypes(ctx)
	if err != nil {
		return nil, err
	}

	deals := make([]model.Observation, 0, len(types))
	for _, productType := range types {
		cheapest, err := e.FindCheapest(ctx, productType, &day)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		deals = append(deals, *cheapest)
	}
	return deals, nil
}

// FormatBestDeals renders deals as aligned table lines. Widths count runes.
func FormatBestDeals(deals []model.Observation) []string {
	var typeW, priceW, nameW, sourceW int
	prices := make([]string, len(deals))
	for i, d := range deals {
		prices[i] = formatNumber(d.ProductPrice)
		typeW = max(typeW, utf8.RuneCountInString(d.ProductType))
		priceW = max(priceW, utf8.RuneCountInString(prices[i]))
		nameW = max(nameW, utf8.RuneCountInString(d.ProductName))
		sourceW = max(sourceW, utf8.RuneCountInString(d.SourceName))
	}

	lines := make([]string, len(deals))
	for i, d := range deals {
		lines[i] = fmt.Sprintf("Cheapest [%-*s] [%*s]€ [%-*s] [%-*s]",
			typeW, d.ProductType, priceW, prices[i], nameW, d.ProductName, sourceW, d.SourceName)
	}
	return lines
}

package stats

import (
	"math"
	"strconv"
	"strings"
)

// Trend is the direction of a price compared with a reference price.
type Trend int

const (
	MissingData Trend = iota
	Increase
	Decrease
	Stable
)

var trendNames = map[Trend]string{
	MissingData: "missing_data",
	Increase:    "increase",
	Decrease:    "decrease",
	Stable:      "stable",
}

func (t Trend) String() string {
	if name, ok := trendNames[t]; ok {
		return name
	}
	return "unknown"
}

// Glyph returns the symbol shown in reports.
func (t Trend) Glyph() string {
	switch t {
	case Increase:
		return "↗"
	case Decrease:
		return "↘"
	case Stable:
		return "→"
	default:
		return "🙈"
	}
}

// EvolutionRate returns the percentage change from reference to current, or
// nil when either price is missing or zero.
func EvolutionRate(current, reference *float64) *float64 {
	if current == nil || reference == nil || *current == 0 || *reference == 0 {
		return nil
	}
	rate := (*current - *reference) / *reference * 100
	return &rate
}

// ClassifyRate maps a rate to its trend.
func ClassifyRate(rate *float64) Trend {
	switch {
	case rate == nil:
		return MissingData
	case *rate > 0:
		return Increase
	case *rate < 0:
		return Decrease
	default:
		return Stable
	}
}

// FormatRate renders a rate as "+10.0%", "-3.25%", "stable" or "Missing data".
func FormatRate(rate *float64) string {
	switch ClassifyRate(rate) {
	case MissingData:
		return "Missing data"
	case Increase:
		return "+" + formatNumber(round2(*rate)) + "%"
	case Decrease:
		return formatNumber(round2(*rate)) + "%"
	default:
		return "stable"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatNumber prints the shortest representation of v, always keeping a
// fractional part: 10 -> "10.0", 799.99 -> "799.99".
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// Package model holds the price history records shared by the ingestion,
// storage and statistics packages.
package model

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar day in the configured time zone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day of t in loc. A nil loc means UTC.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DayOf(t, time.UTC), nil
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time returns midnight of the day in UTC, suitable for DATE columns.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Prev returns the day before d.
func (d Day) Prev() Day {
	return DayOf(d.Time().AddDate(0, 0, -1), time.UTC)
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d == Day{}
}

// Observation is one recorded price of one product at one vendor.
type Observation struct {
	ID           int64     `json:"id,omitempty"`
	ProductName  string    `json:"product_name"`
	ProductBrand string    `json:"product_brand"`
	ProductType  string    `json:"product_type"`
	ProductPrice float64   `json:"product_price"`
	SourceName   string    `json:"source"`
	URL          string    `json:"url"`
	Timestamp    time.Time `json:"timestamp"`
	Day          Day       `json:"-"`
}

// DedupKey identifies the observations compared against each other when
// deciding whether a new price is worth recording.
type DedupKey struct {
	ProductName string
	SourceName  string
	Day         Day
}

// Key returns the dedup key of o.
func (o Observation) Key() DedupKey {
	return DedupKey{ProductName: o.ProductName, SourceName: o.SourceName, Day: o.Day}
}

func (k DedupKey) String() string {
	return k.ProductName + "|" + k.SourceName + "|" + k.Day.String()
}

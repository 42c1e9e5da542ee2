// Package pricing converts vendor price text into a number.
package pricing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	apperrors "sjsage522/bestdeal/pkg/errors"
)

var (
	// "1 199€95" style: the currency sign stands in for the decimal separator.
	currencyAsSeparator = regexp.MustCompile(`^(\d[\d.,]*)€(\d{2})$`)
	// first number of the text, separators included
	numberRegexp = regexp.MustCompile(`\d[\d.,]*`)
)

// Parse extracts a positive price from raw text such as "1 299,99 €", "1.299,99€",
// "€1,299.99", "449€95" or "1299.99".
func Parse(raw string) (float64, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	var number string
	if m := currencyAsSeparator.FindStringSubmatch(compact); m != nil {
		number = stripSeparators(m[1]) + "." + m[2]
	} else {
		loc := numberRegexp.FindStringIndex(compact)
		if loc == nil {
			return 0, apperrors.NewPriceParse(raw, nil)
		}
		if loc[0] > 0 && compact[loc[0]-1] == '-' {
			return 0, apperrors.NewPriceParse(raw, nil)
		}
		var ok bool
		if number, ok = normalize(strings.TrimRight(compact[loc[0]:loc[1]], ".,")); !ok {
			return 0, apperrors.NewPriceParse(raw, nil)
		}
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, apperrors.NewPriceParse(raw, err)
	}
	if value <= 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, apperrors.NewPriceParse(raw, nil)
	}
	return value, nil
}

// normalize rewrites a number with mixed separators into Go float syntax.
// The last separator is decimal when followed by one or two digits; every other
// separator groups thousands. A thousands group cannot follow a leading zero.
func normalize(s string) (string, bool) {
	last := strings.LastIndexAny(s, ".,")
	if last < 0 {
		return s, true
	}
	integer, fraction := s, ""
	if decimals := len(s) - last - 1; decimals == 1 || decimals == 2 {
		integer, fraction = s[:last], "."+s[last+1:]
	}
	if strings.ContainsAny(integer, ".,") && strings.HasPrefix(integer, "0") {
		return "", false
	}
	return stripSeparators(integer) + fraction, true
}

func stripSeparators(s string) string {
	return strings.NewReplacer(",", "", ".", "").Replace(s)
}

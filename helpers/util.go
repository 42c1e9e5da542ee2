package helpers

import (
	"strings"
	"unicode"
)

// NormalizeText collapses every run of whitespace, non-breaking spaces
// included, into one ASCII space and trims the result.
func NormalizeText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

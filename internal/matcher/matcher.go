// Package matcher finds a single whitespace-delimited token among candidates in free text.
package matcher

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"sjsage522/bestdeal/logger"
	apperrors "sjsage522/bestdeal/pkg/errors"
)

// A token must touch at least one whitespace run, so "TI" never matches inside "STORMX".
const atLeastOneSpace = `[\s\p{Zs}]+`

var patterns sync.Map // joined candidates -> *regexp.Regexp

// FindExactlyOne returns the only distinct candidate found in text.
// It returns false when nothing matches or when several distinct candidates match;
// the latter is logged as a warning.
func FindExactlyOne(candidates []string, text string) (string, bool) {
	match, err := Match(candidates, text)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.ErrorTypeAmbiguousMatch {
			logger.ForComponent("matcher").Warn().Err(err).Str("text", text).Msg("Parsed data is ambiguous")
		}
		return "", false
	}
	return match, true
}

// Match is FindExactlyOne with the failure reason as a typed error.
func Match(candidates []string, text string) (string, error) {
	re := compile(candidates)
	if re == nil {
		return "", apperrors.NewNoMatch(text)
	}

	distinct := make(map[string]struct{})
	for _, m := range re.FindAllString(text, -1) {
		distinct[strings.ToUpper(strings.TrimSpace(m))] = struct{}{}
	}

	switch len(distinct) {
	case 0:
		return "", apperrors.NewNoMatch(text)
	case 1:
		for m := range distinct {
			return m, nil
		}
	}

	found := make([]string, 0, len(distinct))
	for m := range distinct {
		found = append(found, m)
	}
	sort.Strings(found)
	return "", apperrors.NewAmbiguousMatch(found)
}

// compile builds " TOKEN|TOKEN " alternatives in candidate order.
// Alternation is leftmost-first, so earlier candidates win at the same position.
func compile(candidates []string) *regexp.Regexp {
	key := strings.Join(candidates, "\x00")
	if cached, ok := patterns.Load(key); ok {
		return cached.(*regexp.Regexp)
	}

	alternatives := make([]string, 0, len(candidates)*2)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		quoted := regexp.QuoteMeta(c)
		alternatives = append(alternatives, atLeastOneSpace+quoted, quoted+atLeastOneSpace)
	}
	if len(alternatives) == 0 {
		return nil
	}

	re := regexp.MustCompile(`(?i)` + strings.Join(alternatives, "|"))
	patterns.Store(key, re)
	return re
}

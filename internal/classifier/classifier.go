// Package classifier turns vendor product descriptions into a normalized
// (brand, product type) pair using ordered token tables.
package classifier

import (
	"fmt"
	"strings"

	"sjsage522/bestdeal/internal/matcher"
	"sjsage522/bestdeal/logger"
	apperrors "sjsage522/bestdeal/pkg/errors"
)

// Classify resolves brand, base model and tier of description against rules.
//
// A tier that is not valid for the detected base model rejects the description
// instead of guessing, and so does a missing brand or base model. On rejection the
// returned Classification may still carry the brand.
func Classify(description string, rules RuleSet) (Classification, error) {
	brand, ok := matcher.FindExactlyOne(rules.Brands, description)
	if !ok {
		return Classification{}, reject("", description, "brand not found")
	}

	base, hasBase := matcher.FindExactlyOne(rules.StandardLineup, description)
	tier, hasTier := matcher.FindExactlyOne(rules.TierTokens, description)

	switch {
	case !hasBase:
		return Classification{Brand: brand}, reject("", description, "product type not found")
	case !hasTier:
		return Classification{Brand: brand, ProductType: base}, nil
	case rules.validFor(tier, base):
		return Classification{Brand: brand, ProductType: base + " " + tier}, nil
	default:
		return Classification{Brand: brand}, reject("", description, fmt.Sprintf("unknown variant [%s %s]", base, tier))
	}
}

// ClassifyFamily resolves "<family> <model>" descriptions. The brand is the rule's brand.
func ClassifyFamily(description string, rules FamilyRuleSet) (Classification, error) {
	family, ok := matcher.FindExactlyOne(rules.Families, description)
	if !ok {
		return Classification{}, reject(rules.Brand, description, "family not found")
	}

	model, ok := matcher.FindExactlyOne(rules.Models[family], description)
	if !ok {
		return Classification{Brand: rules.Brand}, reject(rules.Brand, description, "product type not found")
	}

	return Classification{Brand: rules.Brand, ProductType: family + " " + model}, nil
}

// Classify selects the category whose token appears in description and applies its rules.
func (c Catalog) Classify(description string) (Classification, error) {
	category := c.Fallback
	if token, ok := matcher.FindExactlyOne(c.tokens(), description); ok {
		for i := range c.Categories {
			if strings.EqualFold(c.Categories[i].Token, token) {
				category = &c.Categories[i]
				break
			}
		}
	}
	if category == nil {
		return Classification{}, reject(c.Name, description, "category not found")
	}

	return category.classify(description)
}

func (cat *Category) classify(description string) (Classification, error) {
	switch cat.Kind {
	case KindLineup:
		return Classify(description, cat.Lineup)
	case KindFamily:
		return ClassifyFamily(description, cat.Family)
	default:
		return Classification{}, reject(cat.Token, description, fmt.Sprintf("unsupported rule kind %d", cat.Kind))
	}
}

func reject(category, description, reason string) error {
	logger.ForComponent("classifier").Warn().
		Str("category", category).
		Str("product", description).
		Msg(reason)
	return apperrors.NewClassification(category, fmt.Sprintf("%s in product [%s]", reason, description))
}

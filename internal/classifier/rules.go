package classifier

// Kind tags which rule variant a Category carries.
type Kind int

const (
	// KindLineup resolves a base model with an optional tier (GPUs, RAM).
	KindLineup Kind = iota
	// KindFamily resolves a family token then a model inside that family (CPUs).
	KindFamily
)

// RuleSet is the lineup taxonomy of one hardware family.
// StandardLineup and TierTokens are priority ordered: longer tokens that share a
// prefix with shorter ones must come first.
type RuleSet struct {
	Brands         []string
	StandardLineup []string
	TierTokens     []string
	// TierValidity lists, per tier token, the base models for which the tier exists.
	TierValidity map[string][]string
}

// FamilyRuleSet describes brands whose product names are "<family> <model>",
// such as "RYZEN 5 3600X". Families are keyed upper case.
type FamilyRuleSet struct {
	Brand    string
	Families []string
	Models   map[string][]string
}

// Category is one entry of a dispatch table: the token that selects it and the
// rules applied once selected.
type Category struct {
	Token  string
	Kind   Kind
	Lineup RuleSet
	Family FamilyRuleSet
}

// Catalog is the ordered category dispatch table of one hardware family.
// Fallback applies when no category token is found; without it, classification fails.
type Catalog struct {
	Name       string
	Categories []Category
	Fallback   *Category
}

// Classification is the normalized catalog key of a description.
type Classification struct {
	Brand       string
	ProductType string
}

func (r RuleSet) validFor(tier, base string) bool {
	for _, b := range r.TierValidity[tier] {
		if b == base {
			return true
		}
	}
	return false
}

func (c Catalog) tokens() []string {
	tokens := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		tokens = append(tokens, cat.Token)
	}
	return tokens
}

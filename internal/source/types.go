package source

import "context"

// Source fetches the offers listed on one vendor page.
type Source interface {
	// FetchDeals returns product description -> raw price text for the page
	// at url. hint names what the page lists and is only used for logging.
	FetchDeals(ctx context.Context, hint, url string) (map[string]string, error)

	// Name returns the vendor name recorded on observations
	Name() string
}

// Selectors contains CSS selectors for the elements of a product listing
type Selectors struct {
	Offer string // one element per product
	Name  string // product description, inside Offer
	Price string // price text, inside Offer
	// NameAttr reads the description from this attribute of the Name element
	// instead of its text when set and non-empty
	NameAttr string
}

// ElementRemoval defines elements to remove from a selection before extracting text
type ElementRemoval struct {
	Selector    string // Selector to find elements to remove
	ApplyToPath string // "name" or "price"
}

// SourceConfig contains configuration for a vendor source
type SourceConfig struct {
	Name      string
	CacheKey  string
	BlockTime int // seconds a rate limited vendor is left alone
	// RequestsPerMinute caps requests to the vendor, unlimited when zero.
	// Burst requests may be sent back to back.
	RequestsPerMinute int
	Burst             int
	Selectors         Selectors
	RemoveElements    []ElementRemoval
}

// Target is one vendor page to scrape for a category.
type Target struct {
	Source Source
	Hint   string
	URL    string
}

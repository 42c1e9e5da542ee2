package publisher

// Publisher represents a service for publishing price reports
type Publisher interface {
	// Publish publishes a message under key, typically the product category
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}

// Report is the payload published for one product type and day.
type Report struct {
	Category    string  `json:"category"`
	ProductType string  `json:"product_type"`
	Day         string  `json:"day"`
	Brand       string  `json:"brand"`
	Price       float64 `json:"price"`
	URL         string  `json:"url"`
	Text        string  `json:"text"`
}

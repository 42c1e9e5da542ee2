package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeAmbiguousMatch means more than one distinct token matched
	ErrorTypeAmbiguousMatch ErrorType = "ambiguous_match"
	// ErrorTypeNoMatch means no token matched at all
	ErrorTypeNoMatch ErrorType = "no_match"
	// ErrorTypeClassification means a description could not be mapped to a product type
	ErrorTypeClassification ErrorType = "classification_rejected"
	// ErrorTypePriceParse means raw price text is not a positive number
	ErrorTypePriceParse ErrorType = "price_parse"
	// ErrorTypeNotFound means no stored observation satisfies a query
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeStorage means the price store could not be reached or failed
	ErrorTypeStorage ErrorType = "storage_unavailable"
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// Sentinels for errors.Is checks. Matching is done on the error type only.
var (
	ErrAmbiguousMatch     = &Error{Type: ErrorTypeAmbiguousMatch}
	ErrNoMatch            = &Error{Type: ErrorTypeNoMatch}
	ErrClassification     = &Error{Type: ErrorTypeClassification}
	ErrPriceParse         = &Error{Type: ErrorTypePriceParse}
	ErrNotFound           = &Error{Type: ErrorTypeNotFound}
	ErrStorageUnavailable = &Error{Type: ErrorTypeStorage}
	ErrRateLimit          = &Error{Type: ErrorTypeRateLimit}
)

// Error is the typed error shared by every package of the watcher
type Error struct {
	Type     ErrorType
	Provider string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Provider == "" {
		if e.Err != nil {
			return fmt.Sprintf("[%s] %s - %v", e.Type, e.Message, e.Err)
		}
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsRetryable returns true if the error is retryable
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeStorage:
		return true
	default:
		return false
	}
}

// New creates a new Error
func New(errType ErrorType, provider, message string, err error) *Error {
	return &Error{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewAmbiguousMatch creates an error listing the distinct matches found
func NewAmbiguousMatch(matches []string) *Error {
	return New(ErrorTypeAmbiguousMatch, "", fmt.Sprintf("ambiguous tokens %v", matches), nil)
}

// NewNoMatch creates an error for text where no candidate matched
func NewNoMatch(text string) *Error {
	return New(ErrorTypeNoMatch, "", fmt.Sprintf("no token in [%s]", text), nil)
}

// NewClassification creates a classification rejection for a description
func NewClassification(category, message string) *Error {
	return New(ErrorTypeClassification, category, message, nil)
}

// NewPriceParse creates a price parsing error
func NewPriceParse(raw string, err error) *Error {
	return New(ErrorTypePriceParse, "", fmt.Sprintf("invalid price [%s]", raw), err)
}

// NewNotFound creates a not found error
func NewNotFound(message string) *Error {
	return New(ErrorTypeNotFound, "", message, nil)
}

// NewStorage creates a storage error
func NewStorage(backend, message string, err error) *Error {
	return New(ErrorTypeStorage, backend, message, err)
}

// NewNetwork creates a new network error
func NewNetwork(provider, message string, err error) *Error {
	return New(ErrorTypeNetwork, provider, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(provider, message string, err error) *Error {
	return New(ErrorTypeParsing, provider, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(provider string, duration time.Duration) *Error {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, provider, message, nil)
}

// NewCache creates a new cache error
func NewCache(provider, message string, err error) *Error {
	return New(ErrorTypeCache, provider, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(provider, message string, err error) *Error {
	return New(ErrorTypePublisher, provider, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *Error {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsNotFound reports whether err carries the not_found type
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// IsStorage reports whether err carries the storage_unavailable type
func IsStorage(err error) bool {
	return stderrors.Is(err, ErrStorageUnavailable)
}

// TypeOf returns the ErrorType of the first *Error in the chain, or "" if none
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

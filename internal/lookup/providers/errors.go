package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorCategory is the normalized failure taxonomy for lookup providers.
type ErrorCategory string

const (
	// ErrorTimeout: the provider did not answer within the lookup timeout.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData: the provider answered with a payload we cannot decode.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorProviderOutage: the provider is unreachable or returned 5xx.
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorNotFound: the provider has no record for the key (postal NotFound,
	// geocoding NoMatch).
	ErrorNotFound ErrorCategory = "not_found"

	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorCanceled: a newer request superseded this one.
	ErrorCanceled ErrorCategory = "canceled"

	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps a provider failure with its category.
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.ProviderID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.ProviderID, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError builds a categorized error. Timeouts, outages, and rate
// limits are retryable; lookups never retry automatically but the circuit
// breaker counts them.
func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the category, defaulting to ErrorInternal.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// IsNotFound reports a definitive "no such record" answer.
func IsNotFound(err error) bool {
	return GetCategory(err) == ErrorNotFound
}

// IsTransport reports failures of the transport rather than of the data:
// timeouts, outages, rate limits, and undecodable payloads.
func IsTransport(err error) bool {
	switch GetCategory(err) {
	case ErrorTimeout, ErrorProviderOutage, ErrorRateLimited, ErrorBadData:
		return true
	}
	return false
}

// ClassifyTransport turns an http.Client error into a ProviderError.
func ClassifyTransport(providerID string, err error) *ProviderError {
	switch {
	case errors.Is(err, context.Canceled):
		return NewProviderError(ErrorCanceled, providerID, "request canceled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ErrorTimeout, providerID, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewProviderError(ErrorTimeout, providerID, "request timed out", err)
	}
	return NewProviderError(ErrorProviderOutage, providerID, "request failed", err)
}

// ClassifyStatus maps a non-2xx HTTP status to a ProviderError.
func ClassifyStatus(providerID string, status int) *ProviderError {
	msg := fmt.Sprintf("unexpected status %d", status)
	switch {
	case status == http.StatusNotFound:
		return NewProviderError(ErrorNotFound, providerID, msg, nil)
	case status == http.StatusBadRequest:
		return NewProviderError(ErrorNotFound, providerID, "provider rejected the key", nil)
	case status == http.StatusTooManyRequests:
		return NewProviderError(ErrorRateLimited, providerID, msg, nil)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return NewProviderError(ErrorTimeout, providerID, msg, nil)
	case status >= 500:
		return NewProviderError(ErrorProviderOutage, providerID, msg, nil)
	}
	return NewProviderError(ErrorBadData, providerID, msg, nil)
}

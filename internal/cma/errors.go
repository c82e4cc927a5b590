package cma

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel conditions callers branch on. Wrapped into APIError so both
// errors.Is and status-code inspection work.
var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("resource already exists")
)

// APIError is a non-2xx response from the management API.
type APIError struct {
	StatusCode int
	Message    string

	// SecondRemaining is the per-second budget the service reported in
	// its rate-limit headers, when present.
	SecondRemaining    float64
	HasSecondRemaining bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s (status %d)", e.Message, e.StatusCode)
}

// RateLimited reports whether this is a too-many-requests response. The
// rate admission controller keys its cooldown off this.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Unwrap maps well-known statuses onto sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a 409 from the API.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsRateLimited reports whether err is a 429 from the API.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.RateLimited()
}

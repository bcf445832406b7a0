// Package telemetry fetches live weather and soil nutrient readings.
// Fetchers never fail: a call that cannot be completed yields a zero
// sample marked unavailable, with the reason kept for auditing.
package telemetry

import (
	"fmt"

	"github.com/kartoza/crop-recommender/internal/apperr"
)

// Status tells whether a sample came from the upstream service
type Status string

const (
	StatusFetched     Status = "fetched"
	StatusUnavailable Status = "unavailable"
)

// Result carries a sample together with how it was obtained
type Result[T any] struct {
	Value  T      `json:"value"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Fetched wraps a value read from upstream
func Fetched[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusFetched}
}

// Unavailable returns the zero value marked as degraded
func Unavailable[T any](err error) Result[T] {
	var zero T
	return Result[T]{Value: zero, Status: StatusUnavailable, Reason: err.Error()}
}

// Available reports whether the value was fetched
func (r Result[T]) Available() bool {
	return r.Status == StatusFetched
}

func upstreamError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrUpstreamFetch, fmt.Sprintf(format, args...))
}

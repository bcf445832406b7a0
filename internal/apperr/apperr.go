// Package apperr defines the error kinds shared by the recommendation
// pipeline and maps them to HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrLocationNotFound is returned when a pincode is absent from the reference table
	ErrLocationNotFound = errors.New("location not found")
	// ErrInvalidInput covers malformed land sizes, pincodes and coordinates
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamFetch marks a failed weather or NPK call. It is never returned
	// to HTTP callers; fetchers record it on an unavailable result instead.
	ErrUpstreamFetch = errors.New("upstream fetch failed")
	// ErrModelNotLoaded is returned when prediction is attempted without a model
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrInvalidFeatureShape is returned when a feature vector does not match the trained model
	ErrInvalidFeatureShape = errors.New("invalid feature shape")
)

// HTTPStatus returns the response status for an error produced by the pipeline
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrLocationNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that is safe to show to a client.
// Internal failures collapse into a generic message.
func PublicMessage(err error) string {
	switch HTTPStatus(err) {
	case http.StatusNotFound, http.StatusBadRequest:
		return err.Error()
	default:
		return "internal server error"
	}
}

package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", fmt.Errorf("pincode 110001: %w", ErrLocationNotFound), http.StatusNotFound},
		{"invalid input", fmt.Errorf("land size: %w", ErrInvalidInput), http.StatusBadRequest},
		{"model not loaded", ErrModelNotLoaded, http.StatusInternalServerError},
		{"feature shape", fmt.Errorf("got 6: %w", ErrInvalidFeatureShape), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestPublicMessageHidesInternalErrors(t *testing.T) {
	err := fmt.Errorf("reading /var/lib/model.gob: %w", ErrModelNotLoaded)
	if msg := PublicMessage(err); msg != "internal server error" {
		t.Errorf("Expected generic message, got %q", msg)
	}

	err = fmt.Errorf("pincode 999999: %w", ErrLocationNotFound)
	if msg := PublicMessage(err); msg != err.Error() {
		t.Errorf("Expected %q, got %q", err.Error(), msg)
	}
}

package recommend

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kartoza/crop-recommender/internal/apperr"
)

// ParseRequest validates raw form values. The pincode must be an integer
// and the land size a number >= 0.
func ParseRequest(pincode, landSize string) (Request, error) {
	pincode = strings.TrimSpace(pincode)
	if pincode == "" {
		return Request{}, fmt.Errorf("pincode is required: %w", apperr.ErrInvalidInput)
	}
	pin, err := strconv.Atoi(pincode)
	if err != nil || pin <= 0 {
		return Request{}, fmt.Errorf("pincode %q is not a valid number: %w", pincode, apperr.ErrInvalidInput)
	}

	landSize = strings.TrimSpace(landSize)
	if landSize == "" {
		return Request{}, fmt.Errorf("land_size is required: %w", apperr.ErrInvalidInput)
	}
	size, err := strconv.ParseFloat(landSize, 64)
	if err != nil {
		return Request{}, fmt.Errorf("land_size %q is not a number: %w", landSize, apperr.ErrInvalidInput)
	}
	if size < 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return Request{}, fmt.Errorf("land_size must be a finite number >= 0: %w", apperr.ErrInvalidInput)
	}

	return Request{Pincode: pin, LandSize: size}, nil
}

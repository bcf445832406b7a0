package recommend

import (
	"errors"
	"testing"

	"github.com/kartoza/crop-recommender/internal/apperr"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name     string
		pincode  string
		landSize string
		want     Request
		wantErr  bool
	}{
		{"valid", "560001", "2.5", Request{Pincode: 560001, LandSize: 2.5}, false},
		{"whitespace", " 110001 ", " 0 ", Request{Pincode: 110001, LandSize: 0}, false},
		{"empty pincode", "", "1", Request{}, true},
		{"alpha pincode", "56OO01", "1", Request{}, true},
		{"negative pincode", "-5", "1", Request{}, true},
		{"empty land", "560001", "", Request{}, true},
		{"alpha land", "560001", "two", Request{}, true},
		{"negative land", "560001", "-1", Request{}, true},
		{"nan land", "560001", "NaN", Request{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequest(tt.pincode, tt.landSize)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrInvalidInput) {
					t.Errorf("Expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRequest failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

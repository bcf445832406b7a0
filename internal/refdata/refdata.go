package refdata

import (
	"fmt"
	"math"
	"sort"

	"github.com/kartoza/crop-recommender/internal/apperr"
)

// LocationRecord is one row of the pincode reference table
type LocationRecord struct {
	Pincode   int     `json:"pincode"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PlaceName string  `json:"place_name"`
	District  string  `json:"district"`
	StateName string  `json:"state_name"`
}

// YieldRecord holds the average production per acre for a crop
type YieldRecord struct {
	Crop                string  `json:"crop"`
	AverageYieldPerAcre float64 `json:"average_yield_per_acre"`
}

// Store holds the read-only reference tables. It is built once at startup
// and never mutated, so it is safe for concurrent use without locking.
type Store struct {
	locations map[int]LocationRecord
	yields    map[string]float64
}

// NewStore builds a store from already parsed records. When a pincode or
// crop appears more than once the first record wins.
func NewStore(locations []LocationRecord, yields []YieldRecord) *Store {
	s := &Store{
		locations: make(map[int]LocationRecord, len(locations)),
		yields:    make(map[string]float64, len(yields)),
	}
	for _, loc := range locations {
		if _, exists := s.locations[loc.Pincode]; !exists {
			s.locations[loc.Pincode] = loc
		}
	}
	for _, y := range yields {
		if _, exists := s.yields[y.Crop]; !exists {
			s.yields[y.Crop] = y.AverageYieldPerAcre
		}
	}
	return s
}

// Lookup returns the location for a pincode
func (s *Store) Lookup(pincode int) (LocationRecord, error) {
	loc, ok := s.locations[pincode]
	if !ok {
		return LocationRecord{}, fmt.Errorf("pincode %d: %w", pincode, apperr.ErrLocationNotFound)
	}
	return loc, nil
}

// AverageYield returns the yield per acre for a crop and whether it is known
func (s *Store) AverageYield(crop string) (float64, bool) {
	y, ok := s.yields[crop]
	return y, ok
}

// EstimateProduction multiplies the land size by the crop's average yield.
// A crop missing from the yield table produces 0 with known=false.
func (s *Store) EstimateProduction(crop string, acres float64) (production float64, known bool, err error) {
	if math.IsNaN(acres) || math.IsInf(acres, 0) || acres < 0 {
		return 0, false, fmt.Errorf("land size %v must be a finite number >= 0: %w", acres, apperr.ErrInvalidInput)
	}
	y, ok := s.yields[crop]
	if !ok {
		return 0, false, nil
	}
	return acres * y, true, nil
}

// LocationCount returns the number of distinct pincodes loaded
func (s *Store) LocationCount() int {
	return len(s.locations)
}

// Yields returns all yield records sorted by crop name
func (s *Store) Yields() []YieldRecord {
	out := make([]YieldRecord, 0, len(s.yields))
	for crop, y := range s.yields {
		out = append(out, YieldRecord{Crop: crop, AverageYieldPerAcre: y})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Crop < out[j].Crop })
	return out
}

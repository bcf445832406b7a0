package features

import (
	"errors"
	"math"
	"testing"

	"github.com/kartoza/crop-recommender/internal/apperr"
	"github.com/kartoza/crop-recommender/internal/refdata"
	"github.com/kartoza/crop-recommender/internal/telemetry"
)

func TestAssembleOrder(t *testing.T) {
	loc := refdata.LocationRecord{Pincode: 560001, Latitude: 12.97, Longitude: 77.59}
	// Field order of construction differs from vector order
	nutrients := telemetry.NutrientSample{Potassium: 60, Nitrogen: 80, Phosphorus: 40}
	weather := telemetry.WeatherSample{Humidity: 60, Temperature: 30, WindSpeed: 5}

	v, err := Assemble(loc, weather, nutrients)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	expected := Vector{12.97, 77.59, 30, 60, 80, 40, 60}
	if v != expected {
		t.Errorf("Expected %v, got %v", expected, v)
	}
}

func TestAssemblePassesTelemetryThrough(t *testing.T) {
	loc := refdata.LocationRecord{Latitude: 10, Longitude: 75}
	weather := telemetry.WeatherSample{Temperature: -5, Humidity: -20}

	v, err := Assemble(loc, weather, telemetry.NutrientSample{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if v[Humidity] != -20 || v[Temperature] != -5 {
		t.Errorf("Expected telemetry unchanged, got %v", v)
	}
}

func TestAssembleRejectsCoordinates(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lon  float64
	}{
		{"lat too high", 90.1, 0},
		{"lat too low", -91, 0},
		{"lon too high", 0, 180.5},
		{"lon too low", 0, -181},
		{"nan lat", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := refdata.LocationRecord{Latitude: tt.lat, Longitude: tt.lon}
			_, err := Assemble(loc, telemetry.WeatherSample{}, telemetry.NutrientSample{})
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAssembleAcceptsBounds(t *testing.T) {
	loc := refdata.LocationRecord{Latitude: -90, Longitude: 180}
	if _, err := Assemble(loc, telemetry.WeatherSample{}, telemetry.NutrientSample{}); err != nil {
		t.Errorf("Expected boundary coordinates to be accepted, got %v", err)
	}
}

func TestSliceIsCopy(t *testing.T) {
	v := Vector{1, 2, 3, 4, 5, 6, 7}
	s := v.Slice()
	s[0] = 100
	if v[0] != 1 {
		t.Error("Expected Slice to return a copy")
	}
	if len(s) != Count {
		t.Errorf("Expected length %d, got %d", Count, len(s))
	}
}

func TestEstimateMoisture(t *testing.T) {
	w := telemetry.WeatherSample{Humidity: 60, Precipitation: 2, WindSpeed: 10}
	// 36 + 0.6 - 1
	if got := EstimateMoisture(w); got != 35.6 {
		t.Errorf("Expected 35.6, got %v", got)
	}
}

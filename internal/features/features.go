// Package features builds the fixed-order input vector of the crop classifier.
package features

import (
	"fmt"
	"math"

	"github.com/kartoza/crop-recommender/internal/apperr"
	"github.com/kartoza/crop-recommender/internal/refdata"
	"github.com/kartoza/crop-recommender/internal/telemetry"
)

// Positions within a Vector. The order must match the training columns.
const (
	Latitude = iota
	Longitude
	Temperature
	Humidity
	Nitrogen
	Phosphorus
	Potassium

	Count
)

// Names are the training column names in vector order
var Names = [Count]string{"Latitude", "Longitude", "Avg_temp", "Avg_humidity", "N", "P", "K"}

// Vector is the classifier input
type Vector [Count]float64

// Slice returns the vector as a slice for model input
func (v Vector) Slice() []float64 {
	out := make([]float64, Count)
	copy(out, v[:])
	return out
}

// Assemble places location, weather and nutrient values at their fixed
// positions. Only the coordinates are validated.
func Assemble(loc refdata.LocationRecord, weather telemetry.WeatherSample, nutrients telemetry.NutrientSample) (Vector, error) {
	if !(loc.Latitude >= -90 && loc.Latitude <= 90) {
		return Vector{}, fmt.Errorf("latitude %v out of range: %w", loc.Latitude, apperr.ErrInvalidInput)
	}
	if !(loc.Longitude >= -180 && loc.Longitude <= 180) {
		return Vector{}, fmt.Errorf("longitude %v out of range: %w", loc.Longitude, apperr.ErrInvalidInput)
	}

	var v Vector
	v[Latitude] = loc.Latitude
	v[Longitude] = loc.Longitude
	v[Temperature] = weather.Temperature
	v[Humidity] = weather.Humidity
	v[Nitrogen] = nutrients.Nitrogen
	v[Phosphorus] = nutrients.Phosphorus
	v[Potassium] = nutrients.Potassium
	return v, nil
}

// EstimateMoisture derives a soil moisture percentage from daily weather,
// rounded to two decimals.
func EstimateMoisture(w telemetry.WeatherSample) float64 {
	m := 0.6*w.Humidity + 0.3*w.Precipitation - 0.1*w.WindSpeed
	return math.Round(m*100) / 100
}

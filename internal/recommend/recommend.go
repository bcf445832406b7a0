// Package recommend runs the pincode to crop recommendation pipeline.
package recommend

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kartoza/crop-recommender/internal/apperr"
	"github.com/kartoza/crop-recommender/internal/features"
	"github.com/kartoza/crop-recommender/internal/refdata"
	"github.com/kartoza/crop-recommender/internal/telemetry"
)

// WeatherFetcher retrieves the current-day weather for a coordinate
type WeatherFetcher interface {
	FetchWeather(ctx context.Context, lat, lon float64, date time.Time) telemetry.Result[telemetry.WeatherSample]
}

// NutrientFetcher retrieves the latest NPK reading of a channel
type NutrientFetcher interface {
	FetchNPK(ctx context.Context, channelID string) telemetry.Result[telemetry.NutrientSample]
}

// Predictor maps a feature vector to a crop
type Predictor interface {
	Predict(v features.Vector) (int, string, error)
	Classes() []string
}

// Recorder persists finished recommendations
type Recorder interface {
	Record(ctx context.Context, res *Result) error
}

// Options selects the optional parts of the flow
type Options struct {
	// ChannelID is the NPK telemetry channel to read
	ChannelID string
	// ExtendedWeather adds a soil moisture estimate from wind and precipitation
	ExtendedWeather bool
	// Recorder is optional; when set every successful result is stored
	Recorder Recorder
	// Now defaults to time.Now
	Now func() time.Time
}

// Request is the user input
type Request struct {
	Pincode  int     `json:"pincode"`
	LandSize float64 `json:"land_size"`
}

// Result is a finished recommendation
type Result struct {
	ID                  string                                     `json:"id"`
	CreatedAt           time.Time                                  `json:"created_at"`
	Pincode             int                                        `json:"pincode"`
	LandSize            float64                                    `json:"land_size"`
	Location            refdata.LocationRecord                     `json:"location"`
	Weather             telemetry.Result[telemetry.WeatherSample]  `json:"weather"`
	Nutrients           telemetry.Result[telemetry.NutrientSample] `json:"nutrients"`
	SoilMoisture        *float64                                   `json:"soil_moisture,omitempty"`
	Features            features.Vector                            `json:"features"`
	CropIndex           int                                        `json:"crop_index"`
	Crop                string                                     `json:"crop"`
	EstimatedProduction float64                                    `json:"estimated_production"`
	YieldKnown          bool                                       `json:"yield_known"`
	Degraded            bool                                       `json:"degraded"`
}

// Service holds the immutable collaborators shared by all requests
type Service struct {
	ref       *refdata.Store
	predictor Predictor
	weather   WeatherFetcher
	npk       NutrientFetcher
	opts      Options
}

// NewService creates a recommendation service
func NewService(ref *refdata.Store, predictor Predictor, weather WeatherFetcher, npk NutrientFetcher, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		ref:       ref,
		predictor: predictor,
		weather:   weather,
		npk:       npk,
		opts:      opts,
	}
}

// Recommend looks up the pincode, gathers telemetry, predicts a crop and
// estimates production. Telemetry failures never fail the request; they
// mark the result as degraded.
func (s *Service) Recommend(ctx context.Context, req Request) (*Result, error) {
	if math.IsNaN(req.LandSize) || math.IsInf(req.LandSize, 0) || req.LandSize < 0 {
		return nil, fmt.Errorf("land size must be a number >= 0: %w", apperr.ErrInvalidInput)
	}

	loc, err := s.ref.Lookup(req.Pincode)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	res := &Result{
		ID:        uuid.New().String(),
		CreatedAt: now.UTC(),
		Pincode:   req.Pincode,
		LandSize:  req.LandSize,
		Location:  loc,
	}

	// Fetch failures are carried in the results, so the goroutines never
	// return an error.
	var g errgroup.Group
	g.Go(func() error {
		res.Weather = s.weather.FetchWeather(ctx, loc.Latitude, loc.Longitude, now)
		return nil
	})
	g.Go(func() error {
		res.Nutrients = s.npk.FetchNPK(ctx, s.opts.ChannelID)
		return nil
	})
	_ = g.Wait()

	res.Degraded = !res.Weather.Available() || !res.Nutrients.Available()
	if res.Degraded {
		log.Printf("Warning: degraded telemetry for pincode %d (weather=%s, npk=%s)",
			req.Pincode, res.Weather.Status, res.Nutrients.Status)
	}

	if s.opts.ExtendedWeather {
		m := features.EstimateMoisture(res.Weather.Value)
		res.SoilMoisture = &m
	}

	res.Features, err = features.Assemble(loc, res.Weather.Value, res.Nutrients.Value)
	if err != nil {
		return nil, err
	}

	res.CropIndex, res.Crop, err = s.predictor.Predict(res.Features)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	res.EstimatedProduction, res.YieldKnown, err = s.ref.EstimateProduction(res.Crop, req.LandSize)
	if err != nil {
		return nil, err
	}

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.Record(ctx, res); err != nil {
			log.Printf("Warning: failed to record prediction %s: %v", res.ID, err)
		}
	}

	return res, nil
}

// Location returns the reference record for a pincode
func (s *Service) Location(pincode int) (refdata.LocationRecord, error) {
	return s.ref.Lookup(pincode)
}

// CropInfo describes a crop the model can recommend
type CropInfo struct {
	Crop                string   `json:"crop"`
	AverageYieldPerAcre *float64 `json:"average_yield_per_acre"`
}

// Crops lists the model classes with their average yields when known
func (s *Service) Crops() []CropInfo {
	classes := s.predictor.Classes()
	out := make([]CropInfo, 0, len(classes))
	for _, c := range classes {
		info := CropInfo{Crop: c}
		if y, ok := s.ref.AverageYield(c); ok {
			info.AverageYieldPerAcre = &y
		}
		out = append(out, info)
	}
	return out
}

// ModelInfo returns a summary of the predictor when it provides one
func (s *Service) ModelInfo() map[string]interface{} {
	if info, ok := s.predictor.(interface{ Info() map[string]interface{} }); ok {
		return info.Info()
	}
	return map[string]interface{}{"classes": s.predictor.Classes()}
}

// ExtendedWeather reports whether soil moisture is estimated
func (s *Service) ExtendedWeather() bool {
	return s.opts.ExtendedWeather
}

package models

import (
	"encoding/json"

	"github.com/kartoza/crop-recommender/internal/history"
	"github.com/kartoza/crop-recommender/internal/recommend"
)

// PredictRequest is the JSON body of a prediction request. Both fields
// accept a JSON number or a numeric string.
type PredictRequest struct {
	Pincode  json.Number `json:"pincode"`
	LandSize json.Number `json:"land_size"`
}

// PredictResponse wraps a recommendation
type PredictResponse struct {
	Result *recommend.Result `json:"result"`
}

// InfoResponse describes the running service
type InfoResponse struct {
	Version         string                 `json:"version"`
	Model           map[string]interface{} `json:"model"`
	ExtendedWeather bool                   `json:"extended_weather"`
	HistoryEnabled  bool                   `json:"history_enabled"`
}

// PredictionListResponse is a page of stored predictions
type PredictionListResponse struct {
	Predictions []history.Record `json:"predictions"`
	Count       int              `json:"count"`
}

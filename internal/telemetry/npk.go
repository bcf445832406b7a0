package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
)

// DefaultNPKURL is the ThingSpeak API root
const DefaultNPKURL = "https://api.thingspeak.com"

// NutrientSample is the latest nitrogen/phosphorus/potassium reading
type NutrientSample struct {
	Nitrogen   float64 `json:"nitrogen"`
	Phosphorus float64 `json:"phosphorus"`
	Potassium  float64 `json:"potassium"`
}

// NPKClient reads the last entry of a telemetry channel
type NPKClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewNPKClient creates an NPK client. An empty baseURL selects ThingSpeak.
func NewNPKClient(baseURL string, httpClient *http.Client) *NPKClient {
	if baseURL == "" {
		baseURL = DefaultNPKURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &NPKClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// channelFeed is the "last reading" document. ThingSpeak encodes field
// values as strings, and unset fields as null.
type channelFeed struct {
	Field1 json.RawMessage `json:"field1"`
	Field2 json.RawMessage `json:"field2"`
	Field3 json.RawMessage `json:"field3"`
}

// FetchNPK returns the most recent reading of the channel
func (c *NPKClient) FetchNPK(ctx context.Context, channelID string) Result[NutrientSample] {
	sample, err := c.fetch(ctx, channelID)
	if err != nil {
		log.Printf("NPK telemetry error: %v", err)
		return Unavailable[NutrientSample](err)
	}
	return Fetched(sample)
}

func (c *NPKClient) fetch(ctx context.Context, channelID string) (NutrientSample, error) {
	requestURL := fmt.Sprintf("%s/channels/%s/feeds/last.json", c.baseURL, channelID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return NutrientSample{}, upstreamError("build NPK request: %v", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NutrientSample{}, upstreamError("NPK request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NutrientSample{}, upstreamError("read NPK response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return NutrientSample{}, upstreamError("NPK API returned status %d", resp.StatusCode)
	}

	var feed channelFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return NutrientSample{}, upstreamError("decode NPK response: %v", err)
	}

	n, err := fieldValue(feed.Field1)
	if err != nil {
		return NutrientSample{}, upstreamError("field1: %v", err)
	}
	p, err := fieldValue(feed.Field2)
	if err != nil {
		return NutrientSample{}, upstreamError("field2: %v", err)
	}
	k, err := fieldValue(feed.Field3)
	if err != nil {
		return NutrientSample{}, upstreamError("field3: %v", err)
	}

	return NutrientSample{Nitrogen: n, Phosphorus: p, Potassium: k}, nil
}

// fieldValue converts a channel field to a float. Missing, null and empty
// values read as 0.
func fieldValue(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("unexpected value %s", string(raw))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

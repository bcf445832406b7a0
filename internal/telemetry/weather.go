package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultWeatherURL is the Visual Crossing timeline endpoint
const DefaultWeatherURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

// WeatherSample is the current-day weather for a coordinate
type WeatherSample struct {
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"wind_speed"`
	Precipitation float64 `json:"precipitation"`
}

// WeatherClient reads daily weather from the timeline API
type WeatherClient struct {
	baseURL    string
	apiKey     string
	unitGroup  string
	httpClient *http.Client
}

// NewWeatherClient creates a weather client. An empty baseURL selects the
// public endpoint and an empty unitGroup selects metric units.
func NewWeatherClient(baseURL, apiKey, unitGroup string, httpClient *http.Client) *WeatherClient {
	if baseURL == "" {
		baseURL = DefaultWeatherURL
	}
	if unitGroup == "" {
		unitGroup = "metric"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WeatherClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		unitGroup:  unitGroup,
		httpClient: httpClient,
	}
}

// timelineResponse maps only the fields used from the timeline payload
type timelineResponse struct {
	Days []struct {
		Temp      *float64 `json:"temp"`
		Humidity  *float64 `json:"humidity"`
		WindSpeed *float64 `json:"windspeed"`
		Precip    *float64 `json:"precip"`
	} `json:"days"`
}

// FetchWeather returns the first daily entry for the coordinate and date
func (c *WeatherClient) FetchWeather(ctx context.Context, lat, lon float64, date time.Time) Result[WeatherSample] {
	sample, err := c.fetch(ctx, lat, lon, date)
	if err != nil {
		log.Printf("Weather API error: %v", err)
		return Unavailable[WeatherSample](err)
	}
	return Fetched(sample)
}

func (c *WeatherClient) fetch(ctx context.Context, lat, lon float64, date time.Time) (WeatherSample, error) {
	params := url.Values{}
	params.Set("unitGroup", c.unitGroup)
	params.Set("key", c.apiKey)
	params.Set("contentType", "json")

	requestURL := fmt.Sprintf("%s/%s,%s/%s?%s",
		c.baseURL,
		formatCoord(lat), formatCoord(lon),
		date.Format("2006-01-02"),
		params.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return WeatherSample{}, upstreamError("build weather request: %v", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return WeatherSample{}, upstreamError("weather request: %v", redactURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return WeatherSample{}, upstreamError("read weather response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if c.apiKey != "" {
			msg = strings.ReplaceAll(msg, c.apiKey, "REDACTED")
		}
		return WeatherSample{}, upstreamError("weather API returned status %d: %s", resp.StatusCode, truncate(msg, 200))
	}

	var payload timelineResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return WeatherSample{}, upstreamError("decode weather response: %v", err)
	}
	if len(payload.Days) == 0 {
		return WeatherSample{}, upstreamError("weather response has no days")
	}

	day := payload.Days[0]
	if day.Temp == nil || day.Humidity == nil {
		return WeatherSample{}, upstreamError("weather response is missing temp or humidity")
	}

	return WeatherSample{
		Temperature:   *day.Temp,
		Humidity:      *day.Humidity,
		WindSpeed:     valueOrZero(day.WindSpeed),
		Precipitation: valueOrZero(day.Precip),
	}, nil
}

// redactURL drops the query string, which carries the API key, from
// transport errors.
func redactURL(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	if u, perr := url.Parse(uerr.URL); perr == nil {
		u.RawQuery = ""
		return &url.Error{Op: uerr.Op, URL: u.String(), Err: uerr.Err}
	}
	return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%g", v)
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

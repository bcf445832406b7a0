package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kartoza/crop-recommender/internal/apperr"
)

var testDate = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func TestFetchWeather(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"days":[{"temp":30,"humidity":60,"windspeed":12.5,"precip":1.2},{"temp":1,"humidity":1}]}`))
	}))
	defer srv.Close()

	client := NewWeatherClient(srv.URL, "secret", "metric", srv.Client())
	res := client.FetchWeather(context.Background(), 12.97, 77.59, testDate)

	if !res.Available() {
		t.Fatalf("Expected fetched result, got %+v", res)
	}
	want := WeatherSample{Temperature: 30, Humidity: 60, WindSpeed: 12.5, Precipitation: 1.2}
	if res.Value != want {
		t.Errorf("Expected %+v, got %+v", want, res.Value)
	}
	if gotPath != "/12.97,77.59/2026-03-14" {
		t.Errorf("Unexpected request path %q", gotPath)
	}
	for _, part := range []string{"unitGroup=metric", "key=secret", "contentType=json"} {
		if !strings.Contains(gotQuery, part) {
			t.Errorf("Expected query to contain %q, got %q", part, gotQuery)
		}
	}
}

func TestFetchWeatherOptionalFieldsDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"days":[{"temp":22.5,"humidity":70}]}`))
	}))
	defer srv.Close()

	res := NewWeatherClient(srv.URL, "", "", srv.Client()).FetchWeather(context.Background(), 1, 2, testDate)
	if !res.Available() {
		t.Fatalf("Expected fetched result, got %+v", res)
	}
	if res.Value.WindSpeed != 0 || res.Value.Precipitation != 0 {
		t.Errorf("Expected optional fields to default to 0, got %+v", res.Value)
	}
}

func TestFetchWeatherFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"server error", http.StatusInternalServerError, `oops`},
		{"unauthorized", http.StatusUnauthorized, `No API key`},
		{"malformed", http.StatusOK, `{"days":`},
		{"no days", http.StatusOK, `{"days":[]}`},
		{"missing humidity", http.StatusOK, `{"days":[{"temp":30}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			res := NewWeatherClient(srv.URL, "k", "metric", srv.Client()).FetchWeather(context.Background(), 1, 2, testDate)
			if res.Available() {
				t.Fatal("Expected unavailable result")
			}
			if res.Value != (WeatherSample{}) {
				t.Errorf("Expected zero sample, got %+v", res.Value)
			}
			if res.Reason == "" {
				t.Error("Expected a failure reason")
			}
		})
	}
}

func TestFetchWeatherUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := NewWeatherClient(url, "k", "metric", nil).FetchWeather(context.Background(), 1, 2, testDate)
	if res.Status != StatusUnavailable {
		t.Errorf("Expected unavailable status, got %s", res.Status)
	}
	if res.Value != (WeatherSample{}) {
		t.Errorf("Expected zero sample, got %+v", res.Value)
	}
}

func TestFetchWeatherErrorHidesKey(t *testing.T) {
	const key = "SECRET-KEY-123"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	unreachable := srv.URL
	srv.Close()

	echo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request: "+r.URL.RawQuery, http.StatusBadRequest)
	}))
	defer echo.Close()

	for _, base := range []string{unreachable, echo.URL} {
		res := NewWeatherClient(base, key, "metric", nil).FetchWeather(context.Background(), 12.97, 77.59, testDate)
		if res.Status != StatusUnavailable {
			t.Fatalf("Expected unavailable status, got %s", res.Status)
		}
		if res.Reason == "" {
			t.Error("Expected a failure reason")
		}
		if strings.Contains(res.Reason, key) {
			t.Errorf("API key found in reason: %s", res.Reason)
		}
	}
}

func TestFetchNPK(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"created_at":"2026-03-14T10:00:00Z","entry_id":42,"field1":"80","field2":40,"field3":" 60.5 "}`))
	}))
	defer srv.Close()

	res := NewNPKClient(srv.URL, srv.Client()).FetchNPK(context.Background(), "1942826")
	if !res.Available() {
		t.Fatalf("Expected fetched result, got %+v", res)
	}
	want := NutrientSample{Nitrogen: 80, Phosphorus: 40, Potassium: 60.5}
	if res.Value != want {
		t.Errorf("Expected %+v, got %+v", want, res.Value)
	}
	if gotPath != "/channels/1942826/feeds/last.json" {
		t.Errorf("Unexpected request path %q", gotPath)
	}
}

func TestFetchNPKNullFieldsAreZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"field1":null,"field2":""}`))
	}))
	defer srv.Close()

	res := NewNPKClient(srv.URL, srv.Client()).FetchNPK(context.Background(), "1")
	if !res.Available() {
		t.Fatalf("Expected fetched result, got %+v", res)
	}
	if res.Value != (NutrientSample{}) {
		t.Errorf("Expected zero sample, got %+v", res.Value)
	}
}

func TestFetchNPKFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"not found", http.StatusNotFound, `-1`},
		{"malformed", http.StatusOK, `<html>`},
		{"bad number", http.StatusOK, `{"field1":"eighty"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			res := NewNPKClient(srv.URL, srv.Client()).FetchNPK(context.Background(), "1")
			if res.Available() {
				t.Fatal("Expected unavailable result")
			}
			if res.Value != (NutrientSample{}) {
				t.Errorf("Expected zero sample, got %+v", res.Value)
			}
		})
	}
}

func TestFetchNPKCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"field1":"1"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewNPKClient(srv.URL, srv.Client()).FetchNPK(ctx, "1")
	if res.Available() {
		t.Error("Expected cancelled request to be unavailable")
	}
}

func TestUnavailableCarriesReason(t *testing.T) {
	err := upstreamError("status %d", 503)
	if !errors.Is(err, apperr.ErrUpstreamFetch) {
		t.Errorf("Expected upstream error kind, got %v", err)
	}

	res := Unavailable[NutrientSample](err)
	if res.Status != StatusUnavailable || !strings.Contains(res.Reason, "503") {
		t.Errorf("Unexpected result %+v", res)
	}
}

package history

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kartoza/crop-recommender/internal/features"
	"github.com/kartoza/crop-recommender/internal/recommend"
	"github.com/kartoza/crop-recommender/internal/refdata"
	"github.com/kartoza/crop-recommender/internal/telemetry"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open("sqlite", filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testResult(id string, at time.Time, degraded bool) *recommend.Result {
	res := &recommend.Result{
		ID:        id,
		CreatedAt: at,
		Pincode:   560001,
		LandSize:  2,
		Location: refdata.LocationRecord{
			Pincode: 560001, Latitude: 12.97, Longitude: 77.59,
			PlaceName: "Bangalore G.P.O.", District: "Bengaluru", StateName: "Karnataka",
		},
		Weather:             telemetry.Fetched(telemetry.WeatherSample{Temperature: 30, Humidity: 60}),
		Nutrients:           telemetry.Fetched(telemetry.NutrientSample{Nitrogen: 80, Phosphorus: 40, Potassium: 60}),
		Features:            features.Vector{12.97, 77.59, 30, 60, 80, 40, 60},
		Crop:                "Rice",
		EstimatedProduction: 2400,
		YieldKnown:          true,
	}
	if degraded {
		res.Weather = telemetry.Unavailable[telemetry.WeatherSample](errors.New("timeout"))
		res.Degraded = true
	}
	return res
}

func TestRecordAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	if err := store.Record(ctx, testResult("a1", at, true)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	rec, err := store.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if rec.Crop != "Rice" || rec.EstimatedProduction != 2400 || !rec.YieldKnown {
		t.Errorf("Unexpected record: %+v", rec)
	}
	if rec.CreatedAt != "2026-05-01T09:30:00.000000000Z" {
		t.Errorf("Unexpected timestamp %q", rec.CreatedAt)
	}
	if !rec.Degraded || rec.WeatherStatus != "unavailable" || rec.WeatherReason != "timeout" {
		t.Errorf("Expected degraded weather to be recorded, got %+v", rec)
	}
	if rec.NPKStatus != "fetched" {
		t.Errorf("Expected npk fetched, got %q", rec.NPKStatus)
	}

	var feats []float64
	if err := json.Unmarshal([]byte(rec.Features), &feats); err != nil {
		t.Fatalf("Features are not JSON: %v", err)
	}
	if len(feats) != features.Count || feats[features.Nitrogen] != 80 {
		t.Errorf("Unexpected features %v", feats)
	}
}

func TestGetNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"first", "second", "third"} {
		if err := store.Record(ctx, testResult(id, base.Add(time.Duration(i)*time.Hour), false)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	records, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID != "third" || records[1].ID != "second" {
		t.Errorf("Expected newest first, got %s, %s", records[0].ID, records[1].ID)
	}
}

func TestListOrdersWithinSecond(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	// IDs sort opposite to creation order
	offsets := map[string]time.Duration{
		"c": 0,
		"b": 250 * time.Millisecond,
		"a": 500 * time.Millisecond,
	}
	for _, id := range []string{"c", "b", "a"} {
		if err := store.Record(ctx, testResult(id, base.Add(offsets[id]), false)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	records, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var got []string
	for _, rec := range records {
		got = append(got, rec.ID)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Expected [a b c], got %v", got)
	}
}

func TestListEmpty(t *testing.T) {
	store := openTestStore(t)

	records, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", records)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

// Package history keeps an audit log of recommendations, including which
// telemetry sources were unavailable when each prediction was made.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kartoza/crop-recommender/internal/recommend"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// timestampLayout is fixed width so created_at sorts lexically by time
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a prediction ID is unknown
var ErrNotFound = errors.New("prediction not found")

// Record is one stored prediction
type Record struct {
	ID                  string  `db:"id" json:"id"`
	CreatedAt           string  `db:"created_at" json:"created_at"`
	Pincode             int     `db:"pincode" json:"pincode"`
	PlaceName           string  `db:"place_name" json:"place_name"`
	District            string  `db:"district" json:"district"`
	StateName           string  `db:"state_name" json:"state_name"`
	LandSize            float64 `db:"land_size" json:"land_size"`
	Crop                string  `db:"crop" json:"crop"`
	EstimatedProduction float64 `db:"estimated_production" json:"estimated_production"`
	YieldKnown          bool    `db:"yield_known" json:"yield_known"`
	WeatherStatus       string  `db:"weather_status" json:"weather_status"`
	WeatherReason       string  `db:"weather_reason" json:"weather_reason,omitempty"`
	NPKStatus           string  `db:"npk_status" json:"npk_status"`
	NPKReason           string  `db:"npk_reason" json:"npk_reason,omitempty"`
	Degraded            bool    `db:"degraded" json:"degraded"`
	Features            string  `db:"features" json:"features"`
}

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	pincode INTEGER NOT NULL,
	place_name TEXT NOT NULL,
	district TEXT NOT NULL,
	state_name TEXT NOT NULL,
	land_size DOUBLE PRECISION NOT NULL,
	crop TEXT NOT NULL,
	estimated_production DOUBLE PRECISION NOT NULL,
	yield_known BOOLEAN NOT NULL,
	weather_status TEXT NOT NULL,
	weather_reason TEXT NOT NULL,
	npk_status TEXT NOT NULL,
	npk_reason TEXT NOT NULL,
	degraded BOOLEAN NOT NULL,
	features TEXT NOT NULL
)`

const indexSchema = `CREATE INDEX IF NOT EXISTS predictions_created_at ON predictions (created_at)`

const columns = `id, created_at, pincode, place_name, district, state_name, land_size, crop,
	estimated_production, yield_known, weather_status, weather_reason, npk_status, npk_reason,
	degraded, features`

// Store persists prediction records
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database and creates the schema
func Open(driver, dsn string) (*Store, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case DriverSQLite, DriverPostgres:
	case "sqlite":
		driver = DriverSQLite
	case "postgres", "postgresql":
		driver = DriverPostgres
	default:
		return nil, fmt.Errorf("unsupported history driver: %s", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if driver == DriverSQLite {
		// One physical connection; sqlite serializes writers anyway
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}
	for _, stmt := range []string{schema, indexSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create history schema: %w", err)
		}
	}

	log.Printf("Prediction history enabled (%s)", driver)
	return &Store{db: db, driver: driver}, nil
}

// FromResult converts a recommendation into a storable record
func FromResult(res *recommend.Result) (Record, error) {
	feats, err := json.Marshal(res.Features)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal features: %w", err)
	}
	return Record{
		ID:                  res.ID,
		CreatedAt:           res.CreatedAt.UTC().Format(timestampLayout),
		Pincode:             res.Pincode,
		PlaceName:           res.Location.PlaceName,
		District:            res.Location.District,
		StateName:           res.Location.StateName,
		LandSize:            res.LandSize,
		Crop:                res.Crop,
		EstimatedProduction: res.EstimatedProduction,
		YieldKnown:          res.YieldKnown,
		WeatherStatus:       string(res.Weather.Status),
		WeatherReason:       res.Weather.Reason,
		NPKStatus:           string(res.Nutrients.Status),
		NPKReason:           res.Nutrients.Reason,
		Degraded:            res.Degraded,
		Features:            string(feats),
	}, nil
}

// Record stores a recommendation
func (s *Store) Record(ctx context.Context, res *recommend.Result) error {
	rec, err := FromResult(res)
	if err != nil {
		return err
	}
	return s.Save(ctx, rec)
}

// Save inserts a record
func (s *Store) Save(ctx context.Context, rec Record) error {
	query := `INSERT INTO predictions (` + columns + `) VALUES (
		:id, :created_at, :pincode, :place_name, :district, :state_name, :land_size, :crop,
		:estimated_production, :yield_known, :weather_status, :weather_reason, :npk_status, :npk_reason,
		:degraded, :features)`

	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// Get retrieves a prediction by ID
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	query := s.db.Rebind(`SELECT ` + columns + ` FROM predictions WHERE id = ?`)
	if err := s.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read prediction: %w", err)
	}
	return &rec, nil
}

// List returns the most recent predictions, newest first
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := s.db.Rebind(`SELECT ` + columns + ` FROM predictions ORDER BY created_at DESC, id LIMIT ?`)

	records := []Record{}
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	return records, nil
}

// Driver returns the database driver name
func (s *Store) Driver() string {
	return s.driver
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

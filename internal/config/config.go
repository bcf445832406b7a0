package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Port             int           `yaml:"port"`
	DataDir          string        `yaml:"data_dir"`
	ModelPath        string        `yaml:"model_path"`
	LabelEncoderPath string        `yaml:"label_encoder_path"`
	LocationsFile    string        `yaml:"locations_file"`
	YieldsFile       string        `yaml:"yields_file"`
	FileEncoding     string        `yaml:"file_encoding"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
	Weather          WeatherConfig `yaml:"weather"`
	NPK              NPKConfig     `yaml:"npk"`
	History          HistoryConfig `yaml:"history"`
	Version          string        `yaml:"-"`
}

// WeatherConfig configures the weather provider
type WeatherConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	UnitGroup string `yaml:"unit_group"`
	// Extended adds the soil moisture estimate to results
	Extended bool `yaml:"extended"`
}

// NPKConfig configures the soil telemetry channel
type NPKConfig struct {
	BaseURL   string `yaml:"base_url"`
	ChannelID string `yaml:"channel_id"`
}

// HistoryConfig configures the prediction log. An empty driver disables it.
type HistoryConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Port:         8080,
		DataDir:      "./data",
		FileEncoding: "latin1",
		HTTPTimeout:  15 * time.Second,
		Weather: WeatherConfig{
			UnitGroup: "metric",
		},
		NPK: NPKConfig{
			ChannelID: "1942826",
		},
		History: HistoryConfig{
			Driver: "sqlite3",
		},
		Version: "dev",
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. Environment variables override the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if key := os.Getenv("WEATHER_API_KEY"); key != "" {
		cfg.Weather.APIKey = key
	}
	if dsn := os.Getenv("HISTORY_DSN"); dsn != "" {
		cfg.History.DSN = dsn
	}

	return cfg, nil
}

// Resolve fills the file paths left empty with their defaults under DataDir
func (c *Config) Resolve() {
	if c.ModelPath == "" {
		c.ModelPath = filepath.Join(c.DataDir, "model.gob")
	}
	if c.LabelEncoderPath == "" {
		c.LabelEncoderPath = filepath.Join(c.DataDir, "label_encoder.gob")
	}
	if c.LocationsFile == "" {
		c.LocationsFile = filepath.Join(c.DataDir, "PIN.csv")
	}
	if c.YieldsFile == "" {
		c.YieldsFile = filepath.Join(c.DataDir, "APC.csv")
	}
	if c.History.Driver == "sqlite3" && c.History.DSN == "" {
		c.History.DSN = filepath.Join(c.DataDir, "history.db")
	}
}

// Validate checks values that would otherwise fail at request time
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Weather.UnitGroup {
	case "metric", "us", "uk", "base":
	default:
		return fmt.Errorf("invalid weather unit group %q", c.Weather.UnitGroup)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must not be negative")
	}
	return nil
}

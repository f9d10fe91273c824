package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

type AppConfig struct {
	Port        string        `toml:"port" validate:"required,numeric"`
	HTTPTimeout time.Duration `toml:"http_timeout" validate:"gt=0"`

	ForecastURL   string `toml:"forecast_url" validate:"required,url"`
	GeocodeURL    string `toml:"geocode_url" validate:"required,url"`
	AirQualityURL string `toml:"air_quality_url" validate:"omitempty,url"` // empty disables air quality

	// GoogleGeocoderAPIKey switches place search to Google when set.
	GoogleGeocoderAPIKey string `toml:"google_geocoder_api_key"`

	// ProviderRPS limits outbound provider calls (0 = unlimited).
	ProviderRPS   float64 `toml:"provider_rps" validate:"gte=0"`
	ProviderBurst int     `toml:"provider_burst" validate:"gte=0"`

	// DBPath is the SQLite file for favorites and last seen (empty = in-memory).
	DBPath string `toml:"db_path"`

	// RefreshInterval controls how often the current place is reloaded (0 = never).
	RefreshInterval time.Duration `toml:"refresh_interval" validate:"gte=0"`

	DefaultPlace DefaultPlace  `toml:"default_place"`
	DefaultUnits weather.Units `toml:"default_units" validate:"oneof=metric imperial"`

	LogLevel  string `toml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `toml:"log_format" validate:"oneof=json console"`
}

// DefaultPlace is shown on startup when no last-seen place is stored.
type DefaultPlace struct {
	Lat   float64 `toml:"lat" validate:"gte=-90,lte=90"`
	Lon   float64 `toml:"lon" validate:"gte=-180,lte=180"`
	Label string  `toml:"label" validate:"required"`
}

func (d DefaultPlace) Place() weather.Place {
	return weather.Place{Lat: d.Lat, Lon: d.Lon, Label: d.Label}
}

// Defaults returns the configuration used before any file or env override.
func Defaults() *AppConfig {
	return &AppConfig{
		Port:            "8080",
		HTTPTimeout:     10 * time.Second,
		ForecastURL:     providers.DefaultForecastURL,
		GeocodeURL:      providers.DefaultGeocodeURL,
		AirQualityURL:   providers.DefaultAirQualityURL,
		ProviderRPS:     5,
		ProviderBurst:   5,
		RefreshInterval: 15 * time.Minute,
		DefaultPlace:    DefaultPlace{Lat: 51.5072, Lon: -0.1276, Label: "London, England, GB"},
		DefaultUnits:    weather.UnitsMetric,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// Load reads configuration with sensible defaults. Precedence: environment,
// then the TOML file named by DASHBOARD_CONFIG, then Defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := Defaults()

	if path := os.Getenv("DASHBOARD_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

func Validate(cfg *AppConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.ForecastURL = getenvDefault("FORECAST_URL", cfg.ForecastURL)
	cfg.GeocodeURL = getenvDefault("GEOCODE_URL", cfg.GeocodeURL)
	if v, ok := os.LookupEnv("AIR_QUALITY_URL"); ok {
		cfg.AirQualityURL = v
	}
	cfg.GoogleGeocoderAPIKey = getenvDefault("GOOGLE_GEOCODER_API_KEY", cfg.GoogleGeocoderAPIKey)
	cfg.DBPath = getenvDefault("DB_PATH", cfg.DBPath)
	cfg.DefaultPlace.Label = getenvDefault("DEFAULT_LABEL", cfg.DefaultPlace.Label)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenvDefault("LOG_FORMAT", cfg.LogFormat)

	var err error
	if cfg.ProviderBurst, err = getenvInt("PROVIDER_BURST", cfg.ProviderBurst); err != nil {
		return err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", cfg.RefreshInterval); err != nil {
		return err
	}
	if cfg.ProviderRPS, err = getenvFloat("PROVIDER_RPS", cfg.ProviderRPS); err != nil {
		return err
	}
	if cfg.DefaultPlace.Lat, err = getenvFloat("DEFAULT_LAT", cfg.DefaultPlace.Lat); err != nil {
		return err
	}
	if cfg.DefaultPlace.Lon, err = getenvFloat("DEFAULT_LON", cfg.DefaultPlace.Lon); err != nil {
		return err
	}
	if v := os.Getenv("DEFAULT_UNITS"); v != "" {
		units, err := weather.ParseUnits(v)
		if err != nil {
			return fmt.Errorf("invalid DEFAULT_UNITS: %w", err)
		}
		cfg.DefaultUnits = units
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

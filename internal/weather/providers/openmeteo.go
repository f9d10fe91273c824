package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	DefaultForecastURL   = "https://api.open-meteo.com/v1/forecast"
	DefaultAirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"

	forecastHourly = "temperature_2m,apparent_temperature,relativehumidity_2m,weathercode,windspeed_10m"
	forecastDaily  = "weathercode,temperature_2m_max,temperature_2m_min"
	airHourly      = "pm2_5,pm10,uv_index"
)

// OpenMeteoForecast fetches the raw forecast payload for a coordinate pair and
// enriches it with air-quality fields when the air-quality API answers.
type OpenMeteoForecast struct {
	forecastURL   string
	airQualityURL string
	httpCfg       HTTPClientConfig
	circuit       *gobreaker.CircuitBreaker
	airCircuit    *gobreaker.CircuitBreaker
	logger        *zap.Logger
}

// NewOpenMeteoForecast creates the client. An empty airQualityURL disables the
// air-quality enrichment.
func NewOpenMeteoForecast(httpCfg HTTPClientConfig, forecastURL, airQualityURL string, logger *zap.Logger) *OpenMeteoForecast {
	if forecastURL == "" {
		forecastURL = DefaultForecastURL
	}
	return &OpenMeteoForecast{
		forecastURL:   forecastURL,
		airQualityURL: airQualityURL,
		httpCfg:       httpCfg,
		circuit:       newCircuitBreaker("openmeteo-forecast"),
		airCircuit:    newCircuitBreaker("openmeteo-air-quality"),
		logger:        logger.Named("openmeteo"),
	}
}

func (p *OpenMeteoForecast) Fetch(ctx context.Context, lat, lon float64) (*weather.RawForecast, error) {
	values := coordValues(lat, lon)
	values.Set("current_weather", "true")
	values.Set("hourly", forecastHourly)
	values.Set("daily", forecastDaily)

	var raw weather.RawForecast
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.forecastURL+"?"+values.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("openmeteo forecast: %w", err)
	}

	if p.airQualityURL != "" {
		p.mergeAirQuality(ctx, lat, lon, &raw)
	}
	return &raw, nil
}

// mergeAirQuality is best effort: failures are logged and the forecast is
// returned without air-quality arrays.
func (p *OpenMeteoForecast) mergeAirQuality(ctx context.Context, lat, lon float64, raw *weather.RawForecast) {
	values := coordValues(lat, lon)
	values.Set("hourly", airHourly)

	var air struct {
		Hourly *weather.RawHourly `json:"hourly"`
	}
	if err := getJSON(ctx, p.httpCfg, p.airCircuit, p.airQualityURL+"?"+values.Encode(), &air); err != nil {
		p.logger.Warn("air quality unavailable",
			zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return
	}
	if air.Hourly == nil {
		return
	}

	if raw.Hourly == nil {
		raw.Hourly = &weather.RawHourly{}
	}
	raw.Hourly.PM25 = air.Hourly.PM25
	raw.Hourly.PM10 = air.Hourly.PM10
	raw.Hourly.UVIndex = air.Hourly.UVIndex
}

func coordValues(lat, lon float64) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("timezone", "auto")
	return values
}

package weather

import (
	"fmt"
	"strings"
)

// Units selects how temperatures and speeds are displayed.
// Stored values are always metric (°C, km/h).
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// ParseUnits accepts "metric" or "imperial" (case-insensitive).
func ParseUnits(s string) (Units, error) {
	switch Units(strings.ToLower(strings.TrimSpace(s))) {
	case UnitsMetric:
		return UnitsMetric, nil
	case UnitsImperial:
		return UnitsImperial, nil
	default:
		return "", fmt.Errorf("unknown units %q", s)
	}
}

// Toggle returns the other unit system.
func (u Units) Toggle() Units {
	if u == UnitsImperial {
		return UnitsMetric
	}
	return UnitsImperial
}

func (u Units) TemperatureSymbol() string {
	if u == UnitsImperial {
		return "°F"
	}
	return "°C"
}

func (u Units) SpeedSymbol() string {
	if u == UnitsImperial {
		return "mph"
	}
	return "km/h"
}

// Coordinates is a bare latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Place is the location currently shown on the dashboard.
type Place struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Label string  `json:"label"`
}

// GeoResult is a single match returned by a geocoder.
type GeoResult struct {
	Name        string  `json:"name"`
	Admin1      string  `json:"admin1,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Label joins the non-empty name parts, e.g. "Paris, Île-de-France, FR".
func (g GeoResult) Label() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{g.Name, g.Admin1, g.CountryCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Place converts the match into a dashboard place.
func (g GeoResult) Place() Place {
	return Place{Lat: g.Latitude, Lon: g.Longitude, Label: g.Label()}
}

// CurrentConditions is the "now" snapshot derived from a forecast payload.
// Every field is resolved; HumidityPct is nil when no source reported it.
type CurrentConditions struct {
	TemperatureC float64  `json:"temperatureC"`
	FeelsLikeC   float64  `json:"feelsLikeC"`
	HumidityPct  *float64 `json:"humidityPct"`
	WindKmh      float64  `json:"windKmh"`
	WeatherCode  int      `json:"weatherCode"`
	Timezone     string   `json:"timezone"`
}

// HourlyPoint is one entry of the hourly temperature series.
// TemperatureC is nil when the source array was shorter than the time array.
type HourlyPoint struct {
	TimeLabel    string   `json:"timeLabel"`
	TemperatureC *float64 `json:"temperatureC"`
}

// DailyPoint is one day of the forecast strip.
type DailyPoint struct {
	Date        string  `json:"date"`
	WeatherCode int     `json:"weatherCode"`
	MinC        float64 `json:"minC"`
	MaxC        float64 `json:"maxC"`
}

// AirQualityKind tells which pollutant an AirQuality reading refers to.
type AirQualityKind string

const (
	AirQualityPM25        AirQualityKind = "pm25"
	AirQualityPM10        AirQualityKind = "pm10"
	AirQualityUnavailable AirQualityKind = "unavailable"
)

type AirQuality struct {
	Kind  AirQualityKind `json:"kind"`
	Value float64        `json:"value"`
}

// Forecast is the unit-agnostic result of Normalize.
type Forecast struct {
	Current    CurrentConditions `json:"current"`
	Hourly     []HourlyPoint     `json:"hourly"`
	Daily      []DailyPoint      `json:"daily"`
	AirQuality AirQuality        `json:"airQuality"`
	UVIndex    *float64          `json:"uvIndex,omitempty"`
}

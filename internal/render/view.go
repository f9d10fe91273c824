// Package render turns a normalized forecast into the view model the browser
// draws: text fields, the temperature chart, the map marker and the forecast
// strip.
package render

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Placeholder is shown for values the provider did not report.
const Placeholder = "--"

// View is the complete observable UI state for one place.
type View struct {
	Place  string `json:"place"`
	Marker Marker `json:"marker"`

	Units           weather.Units `json:"units"`
	TemperatureUnit string        `json:"temperatureUnit"`
	SpeedUnit       string        `json:"speedUnit"`
	Timezone        string        `json:"timezone"`

	Theme       weather.Theme `json:"theme"`
	Icon        weather.Icon  `json:"icon"`
	Description string        `json:"description"`

	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feelsLike"`
	Humidity    string  `json:"humidity"`
	Wind        string  `json:"wind"`
	AirQuality  string  `json:"airQuality"`
	UVIndex     string  `json:"uvIndex"`

	Chart Chart     `json:"chart"`
	Days  []DayCard `json:"days"`

	RenderedAt time.Time `json:"renderedAt"`
}

// Marker is the coordinate pair handed to the map widget.
type Marker struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Chart is the label/value series handed to the chart widget.
type Chart struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type DayCard struct {
	Date        string       `json:"date"`
	Icon        weather.Icon `json:"icon"`
	Description string       `json:"description"`
	Min         float64      `json:"min"`
	Max         float64      `json:"max"`
}

// Build renders fc for place in the requested units. It is pure apart from
// stamping RenderedAt with now.
func Build(place weather.Place, units weather.Units, fc weather.Forecast, now time.Time) View {
	cur := fc.Current
	class := weather.Classify(cur.WeatherCode)

	return View{
		Place:           place.Label,
		Marker:          Marker{Lat: place.Lat, Lon: place.Lon},
		Units:           units,
		TemperatureUnit: units.TemperatureSymbol(),
		SpeedUnit:       units.SpeedSymbol(),
		Timezone:        cur.Timezone,
		Theme:           class.Theme,
		Icon:            class.Icon,
		Description:     class.Description,
		Temperature:     math.Round(weather.ToDisplayTemperature(cur.TemperatureC, units)),
		FeelsLike:       math.Round(weather.ToDisplayTemperature(cur.FeelsLikeC, units)),
		Humidity:        humidityText(cur.HumidityPct),
		Wind:            fmt.Sprintf("%.0f %s", math.Round(weather.ToDisplaySpeed(cur.WindKmh, units)), units.SpeedSymbol()),
		AirQuality:      airQualityText(fc.AirQuality),
		UVIndex:         uvText(fc.UVIndex),
		Chart:           buildChart(fc.Hourly, units),
		Days:            buildDays(fc.Daily, units),
		RenderedAt:      now,
	}
}

func buildChart(points []weather.HourlyPoint, units weather.Units) Chart {
	c := Chart{
		Labels: make([]string, 0, len(points)),
		Values: make([]float64, 0, len(points)),
	}
	for _, p := range points {
		var celsius float64
		if p.TemperatureC != nil {
			celsius = *p.TemperatureC
		}
		c.Labels = append(c.Labels, p.TimeLabel)
		c.Values = append(c.Values, roundTenth(weather.ToDisplayTemperature(celsius, units)))
	}
	return c
}

func buildDays(points []weather.DailyPoint, units weather.Units) []DayCard {
	days := make([]DayCard, 0, len(points))
	for _, d := range points {
		days = append(days, DayCard{
			Date:        d.Date,
			Icon:        weather.IconFor(d.WeatherCode),
			Description: weather.Describe(d.WeatherCode),
			Min:         math.Round(weather.ToDisplayTemperature(d.MinC, units)),
			Max:         math.Round(weather.ToDisplayTemperature(d.MaxC, units)),
		})
	}
	return days
}

func humidityText(pct *float64) string {
	if pct == nil {
		return Placeholder
	}
	return fmt.Sprintf("%.0f%%", math.Round(*pct))
}

func airQualityText(aq weather.AirQuality) string {
	switch aq.Kind {
	case weather.AirQualityPM25:
		return "PM2.5 " + formatTenth(aq.Value) + " µg/m³"
	case weather.AirQualityPM10:
		return "PM10 " + formatTenth(aq.Value) + " µg/m³"
	default:
		return "n/a"
	}
}

func uvText(uv *float64) string {
	if uv == nil {
		return Placeholder
	}
	return formatTenth(*uv)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatTenth(v float64) string {
	return strconv.FormatFloat(roundTenth(v), 'f', -1, 64)
}

// Board is the render surface: it holds the most recent View for readers.
type Board struct {
	mu   sync.RWMutex
	view *View
}

func NewBoard() *Board {
	return &Board{}
}

func (b *Board) Render(v View) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view = &v
}

// Current returns the last rendered view, if any.
func (b *Board) Current() (View, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.view == nil {
		return View{}, false
	}
	return *b.view, true
}

package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const DefaultGeocodeURL = "https://geocoding-api.open-meteo.com/v1/search"

// OpenMeteoGeocoder resolves place names through the Open-Meteo geocoding API.
type OpenMeteoGeocoder struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoGeocoder(httpCfg HTTPClientConfig, baseURL string) *OpenMeteoGeocoder {
	if baseURL == "" {
		baseURL = DefaultGeocodeURL
	}
	return &OpenMeteoGeocoder{
		baseURL: baseURL,
		httpCfg: httpCfg,
		circuit: newCircuitBreaker("openmeteo-geocoding"),
	}
}

// Search returns up to five matches. A response without results yields an
// empty slice and no error.
func (g *OpenMeteoGeocoder) Search(ctx context.Context, query string) ([]weather.GeoResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	values := url.Values{}
	values.Set("count", "5")
	values.Set("language", "en")
	values.Set("format", "json")
	values.Set("name", query)

	var payload struct {
		Results []weather.GeoResult `json:"results"`
	}
	if err := getJSON(ctx, g.httpCfg, g.circuit, g.baseURL+"?"+values.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("openmeteo geocoding: %w", err)
	}
	return payload.Results, nil
}

package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var errNoAPIKey = errors.New("google geocoder api key is not configured")

// GoogleGeocoder resolves place names with the Google Geocoding API.
// It returns at most one match, labelled with the query itself.
type GoogleGeocoder struct {
	apiKey string
	lookup func(geocoder.Address) (geocoder.Location, error)
}

// NewGoogleGeocoder configures the kelvins/geocoder package. The library keeps
// its key in a package variable, so only one key per process is supported.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{apiKey: apiKey, lookup: geocoder.Geocoding}
}

func (g *GoogleGeocoder) Search(ctx context.Context, query string) ([]weather.GeoResult, error) {
	if g.apiKey == "" {
		return nil, errNoAPIKey
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		loc, err := g.lookup(geocoder.Address{City: query})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: google geocoding: %w", ErrUpstream, ctx.Err())
	case r := <-done:
		if r.err != nil {
			// The library reports "no results" as an error as well.
			if msg := strings.ToLower(r.err.Error()); strings.Contains(msg, "zero_results") || strings.Contains(msg, "no result") {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: google geocoding: %w", ErrUpstream, r.err)
		}
		return []weather.GeoResult{{
			Name:      query,
			Latitude:  r.loc.Latitude,
			Longitude: r.loc.Longitude,
		}}, nil
	}
}

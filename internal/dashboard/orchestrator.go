package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/render"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DeviceLocationTimeout bounds how long UseDeviceLocation waits.
const DeviceLocationTimeout = 10 * time.Second

// DeviceLocationLabel is the label given to places found via the device.
const DeviceLocationLabel = "My location"

var (
	ErrNetworkFailure   = errors.New("failed to load")
	ErrNotFound         = errors.New("location not found")
	ErrPermissionDenied = errors.New("location denied or failed")
	ErrNoPlace          = errors.New("no place to save")
	ErrStorageFailure   = errors.New("failed to save")
)

// Status messages shown to the user.
const (
	StatusReady   = "ready"
	StatusLoading = "loading"
	StatusUpdated = "updated"
	StatusSaved   = "saved to favorites"
	StatusRemoved = "removed from favorites"
)

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
)

type Geocoder interface {
	Search(ctx context.Context, query string) ([]weather.GeoResult, error)
}

type ForecastFetcher interface {
	Fetch(ctx context.Context, lat, lon float64) (*weather.RawForecast, error)
}

// Locator reports the device position. Implementations should honour ctx.
type Locator interface {
	Locate(ctx context.Context) (weather.Coordinates, error)
}

type Renderer interface {
	Render(render.View)
}

// State is a point-in-time copy of the orchestrator state.
type State struct {
	Phase  Phase          `json:"phase"`
	Status string         `json:"status"`
	Units  weather.Units  `json:"units"`
	Place  *weather.Place `json:"place"`
}

// Deps groups the collaborators of an Orchestrator.
type Deps struct {
	Geocoder  Geocoder
	Forecasts ForecastFetcher
	Renderer  Renderer
	Favorites *store.Favorites
	LastSeen  *store.LastSeenStore
	Logger    *zap.Logger
	Now       func() time.Time
}

// Orchestrator sequences geocode -> fetch -> normalize -> render -> persist
// and owns the current place and units. Overlapping loads are not cancelled;
// the last one to finish wins.
type Orchestrator struct {
	deps   Deps
	logger *zap.Logger

	mu       sync.Mutex
	place    *weather.Place
	forecast *weather.Forecast
	units    weather.Units
	status   string
	inflight int
}

func New(deps Deps, units weather.Units) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if units == "" {
		units = weather.UnitsMetric
	}
	return &Orchestrator{
		deps:   deps,
		logger: deps.Logger.Named("dashboard"),
		units:  units,
		status: StatusReady,
	}
}

// LoadPlace fetches and renders the forecast for a place. On failure the
// previously displayed place and view are left untouched.
func (o *Orchestrator) LoadPlace(ctx context.Context, lat, lon float64, label string) error {
	loadID := uuid.NewString()
	log := o.logger.With(zap.String("load_id", loadID), zap.Float64("lat", lat), zap.Float64("lon", lon))

	o.mu.Lock()
	o.inflight++
	o.status = StatusLoading
	o.mu.Unlock()

	log.Debug("loading place", zap.String("label", label))

	raw, err := o.deps.Forecasts.Fetch(ctx, lat, lon)
	if err != nil {
		log.Warn("forecast fetch failed", zap.Error(err))
		o.finish(ErrNetworkFailure.Error())
		return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}

	place := weather.Place{Lat: lat, Lon: lon, Label: label}
	fc := weather.Normalize(raw)

	// The last-seen write shares the commit lock so the stored place always
	// matches the displayed one when loads overlap.
	o.mu.Lock()
	o.place = &place
	o.forecast = &fc
	o.deps.Renderer.Render(render.Build(place, o.units, fc, o.deps.Now()))
	if o.deps.LastSeen != nil {
		if err := o.deps.LastSeen.Save(place, o.deps.Now()); err != nil {
			log.Warn("failed to persist last seen place", zap.Error(err))
		}
	}
	o.inflight--
	o.status = StatusUpdated
	o.mu.Unlock()

	log.Info("place loaded", zap.String("label", label), zap.Int("weather_code", fc.Current.WeatherCode))
	return nil
}

// Search geocodes query and loads the first match.
func (o *Orchestrator) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		o.setStatus(ErrNotFound.Error())
		return ErrNotFound
	}

	results, err := o.deps.Geocoder.Search(ctx, query)
	if err != nil {
		o.logger.Warn("geocoding failed", zap.String("query", query), zap.Error(err))
		o.setStatus(ErrNetworkFailure.Error())
		return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	if len(results) == 0 {
		o.setStatus(ErrNotFound.Error())
		return fmt.Errorf("%w: %q", ErrNotFound, query)
	}

	first := results[0].Place()
	return o.LoadPlace(ctx, first.Lat, first.Lon, first.Label)
}

// UseDeviceLocation asks locator for the device position, waiting at most
// DeviceLocationTimeout, and loads it.
func (o *Orchestrator) UseDeviceLocation(ctx context.Context, locator Locator) error {
	coords, err := locate(ctx, locator)
	if err != nil {
		o.logger.Info("device location unavailable", zap.Error(err))
		o.setStatus(ErrPermissionDenied.Error())
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	return o.LoadPlace(ctx, coords.Lat, coords.Lon, DeviceLocationLabel)
}

func locate(ctx context.Context, locator Locator) (weather.Coordinates, error) {
	if locator == nil {
		return weather.Coordinates{}, errors.New("no locator available")
	}

	ctx, cancel := context.WithTimeout(ctx, DeviceLocationTimeout)
	defer cancel()

	type result struct {
		coords weather.Coordinates
		err    error
	}
	done := make(chan result, 1)
	go func() {
		c, err := locator.Locate(ctx)
		done <- result{coords: c, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Coordinates{}, ctx.Err()
	case r := <-done:
		return r.coords, r.err
	}
}

// ToggleUnits flips metric/imperial and re-renders the cached forecast, if
// any, without fetching.
func (o *Orchestrator) ToggleUnits() weather.Units {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.units = o.units.Toggle()
	if o.place != nil && o.forecast != nil {
		o.deps.Renderer.Render(render.Build(*o.place, o.units, *o.forecast, o.deps.Now()))
	}
	return o.units
}

// SaveFavorite stores the current place. An empty label uses the place label.
func (o *Orchestrator) SaveFavorite(label string) ([]store.FavoriteEntry, error) {
	o.mu.Lock()
	place := o.place
	o.mu.Unlock()

	if place == nil {
		o.setStatus(ErrNoPlace.Error())
		return nil, ErrNoPlace
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = place.Label
	}

	list, err := o.deps.Favorites.Add(store.FavoriteEntry{Label: label, Lat: place.Lat, Lon: place.Lon})
	if err != nil {
		o.logger.Warn("failed to save favorite", zap.String("label", label), zap.Error(err))
		o.setStatus(ErrStorageFailure.Error())
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	o.setStatus(StatusSaved)
	return list, nil
}

func (o *Orchestrator) RemoveFavorite(lat, lon float64) error {
	removed, err := o.deps.Favorites.Remove(lat, lon)
	if err != nil {
		o.logger.Warn("failed to remove favorite", zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		o.setStatus(ErrStorageFailure.Error())
		return fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if !removed {
		return fmt.Errorf("%w: no favorite at %v,%v", ErrNotFound, lat, lon)
	}
	o.setStatus(StatusRemoved)
	return nil
}

func (o *Orchestrator) Favorites() ([]store.FavoriteEntry, error) {
	return o.deps.Favorites.List()
}

// Restore loads the last seen place, or fallback when none was saved.
func (o *Orchestrator) Restore(ctx context.Context, fallback weather.Place) error {
	place := fallback
	if o.deps.LastSeen != nil {
		rec, err := o.deps.LastSeen.Load()
		switch {
		case err == nil:
			place = rec.Place()
		case !errors.Is(err, store.ErrNotFound):
			o.logger.Warn("failed to read last seen place", zap.Error(err))
		}
	}
	return o.LoadPlace(ctx, place.Lat, place.Lon, place.Label)
}

// Refresh reloads the current place. It is a no-op when nothing is loaded.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.mu.Lock()
	place := o.place
	o.mu.Unlock()

	if place == nil {
		return nil
	}
	return o.LoadPlace(ctx, place.Lat, place.Lon, place.Label)
}

func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := State{
		Phase:  PhaseIdle,
		Status: o.status,
		Units:  o.units,
	}
	if o.inflight > 0 {
		s.Phase = PhaseLoading
	}
	if o.place != nil {
		p := *o.place
		s.Place = &p
	}
	return s
}

func (o *Orchestrator) finish(status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inflight--
	o.status = status
}

func (o *Orchestrator) setStatus(status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = status
}

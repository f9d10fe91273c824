package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/render"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	raw   *weather.RawForecast
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, lat, lon float64) (*weather.RawForecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGeocoder struct {
	results []weather.GeoResult
	err     error
}

func (g fakeGeocoder) Search(ctx context.Context, query string) ([]weather.GeoResult, error) {
	return g.results, g.err
}

type locatorFunc func(ctx context.Context) (weather.Coordinates, error)

func (f locatorFunc) Locate(ctx context.Context) (weather.Coordinates, error) { return f(ctx) }

type fixture struct {
	orch     *Orchestrator
	fetcher  *fakeFetcher
	board    *render.Board
	kv       *store.MemoryKV
	lastSeen *store.LastSeenStore
}

func newFixture(t *testing.T, geo fakeGeocoder) *fixture {
	t.Helper()
	kv := store.NewMemoryKV()
	fx := &fixture{
		fetcher: &fakeFetcher{raw: &weather.RawForecast{
			Timezone:       "Europe/Paris",
			CurrentWeather: &weather.RawCurrent{Temperature: weather.Float(20), WeatherCode: weather.Int(61)},
		}},
		board:    render.NewBoard(),
		kv:       kv,
		lastSeen: store.NewLastSeenStore(kv),
	}
	fx.orch = New(Deps{
		Geocoder:  geo,
		Forecasts: fx.fetcher,
		Renderer:  fx.board,
		Favorites: store.NewFavorites(kv, zap.NewNop()),
		LastSeen:  fx.lastSeen,
		Logger:    zap.NewNop(),
		Now:       func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}, weather.UnitsMetric)
	return fx
}

func TestLoadPlaceSuccess(t *testing.T) {
	fx := newFixture(t, fakeGeocoder{})

	if err := fx.orch.LoadPlace(context.Background(), 48.85, 2.35, "Paris"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := fx.orch.Snapshot()
	if st.Phase != PhaseIdle || st.Status != StatusUpdated {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.Place == nil || *st.Place != (weather.Place{Lat: 48.85, Lon: 2.35, Label: "Paris"}) {
		t.Fatalf("unexpected place %+v", st.Place)
	}

	v, ok := fx.board.Current()
	if !ok || v.Place != "Paris" || v.Temperature != 20 || v.Theme != weather.ThemeRain {
		t.Fatalf("unexpected view %+v (%v)", v, ok)
	}

	rec, err := fx.lastSeen.Load()
	if err != nil || rec.Place() != (weather.Place{Lat: 48.85, Lon: 2.35, Label: "Paris"}) {
		t.Fatalf("last seen not persisted: %+v (%v)", rec, err)
	}
	if rec.SavedAtEpochMs != time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).UnixMilli() {
		t.Fatalf("unexpected saved at %d", rec.SavedAtEpochMs)
	}
}

func TestLoadPlaceFailureKeepsPriorState(t *testing.T) {
	fx := newFixture(t, fakeGeocoder{})
	if err := fx.orch.LoadPlace(context.Background(), 48.85, 2.35, "Paris"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before, _ := fx.board.Current()

	fx.fetcher.err = errors.New("connection refused")
	err := fx.orch.LoadPlace(context.Background(), 1, 1, "Elsewhere")
	if !errors.Is(err, ErrNetworkFailure) {
		t.Fatalf("expected ErrNetworkFailure, got %v", err)
	}

	st := fx.orch.Snapshot()
	if st.Status != "failed to load" || st.Phase != PhaseIdle {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.Place.Label != "Paris" {
		t.Fatalf("place changed after failure: %+v", st.Place)
	}
	after, _ := fx.board.Current()
	if after.Place != before.Place || !after.RenderedAt.Equal(before.RenderedAt) {
		t.Fatalf("view changed after failure")
	}
	rec, _ := fx.lastSeen.Load()
	if rec.Label != "Paris" {
		t.Fatalf("last seen changed after failure: %+v", rec)
	}
}

func TestSearch(t *testing.T) {
	t.Run("first match is loaded", func(t *testing.T) {
		fx := newFixture(t, fakeGeocoder{results: []weather.GeoResult{
			{Name: "Springfield", Admin1: "Illinois", CountryCode: "US", Latitude: 39.8, Longitude: -89.64},
			{Name: "Springfield", Admin1: "Missouri", CountryCode: "US", Latitude: 37.2, Longitude: -93.29},
		}})

		if err := fx.orch.Search(context.Background(), "Springfield"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		st := fx.orch.Snapshot()
		if st.Place == nil || st.Place.Label != "Springfield, Illinois, US" || st.Place.Lat != 39.8 {
			t.Fatalf("unexpected place %+v", st.Place)
		}
	})

	t.Run("no results leaves state unchanged", func(t *testing.T) {
		fx := newFixture(t, fakeGeocoder{})

		err := fx.orch.Search(context.Background(), "Atlantis")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		st := fx.orch.Snapshot()
		if st.Status != "location not found" || st.Place != nil {
			t.Fatalf("unexpected state %+v", st)
		}
		if fx.fetcher.Calls() != 0 {
			t.Fatalf("forecast must not be fetched")
		}
	})

	t.Run("blank query is not found", func(t *testing.T) {
		fx := newFixture(t, fakeGeocoder{})
		if err := fx.orch.Search(context.Background(), "  "); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("geocoder failure is a network failure", func(t *testing.T) {
		fx := newFixture(t, fakeGeocoder{err: errors.New("boom")})
		if err := fx.orch.Search(context.Background(), "Paris"); !errors.Is(err, ErrNetworkFailure) {
			t.Fatalf("expected ErrNetworkFailure, got %v", err)
		}
	})
}

func TestUseDeviceLocation(t *testing.T) {
	t.Run("granted", func(t *testing.T) {
		fx := newFixture(t, fakeGeocoder{})
		loc := locatorFunc(func(ctx context.Context) (weather.Coordinates, error) {
			return weather.Coordinates{Lat: 35.68, Lon: 139.69}, nil
		})

		if err := fx.orch.UseDeviceLocation(context.Background(), loc); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		st := fx.orch.Snapshot()
		if st.Place == nil || st.Place.Label != DeviceLocationLabel || st.Place.Lat != 35.68 {
			t.Fatalf("unexpected place %+v", st.Place)
		}
	})

	t.Run("denied", func(t *testing.T) {
		fx := newFixture(t, fakeGeocoder{})
		loc := locatorFunc(func(ctx context.Context) (weather.Coordinates, error) {
			return weather.Coordinates{}, errors.New("user denied geolocation")
		})

		err := fx.orch.UseDeviceLocation(context.Background(), loc)
		if !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("expected ErrPermissionDenied, got %v", err)
		}
		st := fx.orch.Snapshot()
		if st.Status != "location denied or failed" || st.Place != nil {
			t.Fatalf("unexpected state %+v", st)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		fx := newFixture(t, fakeGeocoder{})
		release := make(chan struct{})
		defer close(release)
		loc := locatorFunc(func(ctx context.Context) (weather.Coordinates, error) {
			<-release
			return weather.Coordinates{Lat: 1, Lon: 1}, nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := fx.orch.UseDeviceLocation(ctx, loc)
		if !errors.Is(err, ErrPermissionDenied) || !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected timeout as permission failure, got %v", err)
		}
		if fx.fetcher.Calls() != 0 {
			t.Fatalf("forecast must not be fetched")
		}
	})

	t.Run("nil locator", func(t *testing.T) {
		fx := newFixture(t, fakeGeocoder{})
		if err := fx.orch.UseDeviceLocation(context.Background(), nil); !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("expected ErrPermissionDenied, got %v", err)
		}
	})
}

func TestToggleUnitsRerendersWithoutFetching(t *testing.T) {
	fx := newFixture(t, fakeGeocoder{})

	if u := fx.orch.ToggleUnits(); u != weather.UnitsImperial {
		t.Fatalf("expected imperial, got %s", u)
	}
	if _, ok := fx.board.Current(); ok {
		t.Fatalf("nothing should render before a place is loaded")
	}

	if err := fx.orch.LoadPlace(context.Background(), 48.85, 2.35, "Paris"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ := fx.board.Current()
	if v.Temperature != 68 || v.Units != weather.UnitsImperial {
		t.Fatalf("expected 68°F, got %v %s", v.Temperature, v.Units)
	}

	if u := fx.orch.ToggleUnits(); u != weather.UnitsMetric {
		t.Fatalf("expected metric, got %s", u)
	}
	v, _ = fx.board.Current()
	if v.Temperature != 20 || v.Units != weather.UnitsMetric {
		t.Fatalf("expected 20°C, got %v %s", v.Temperature, v.Units)
	}
	if fx.fetcher.Calls() != 1 {
		t.Fatalf("toggle must not refetch, got %d fetches", fx.fetcher.Calls())
	}
}

func TestFavorites(t *testing.T) {
	fx := newFixture(t, fakeGeocoder{})

	if _, err := fx.orch.SaveFavorite("Home"); !errors.Is(err, ErrNoPlace) {
		t.Fatalf("expected ErrNoPlace, got %v", err)
	}
	if st := fx.orch.Snapshot(); st.Status != "no place to save" {
		t.Fatalf("unexpected status %q", st.Status)
	}

	if err := fx.orch.LoadPlace(context.Background(), 48.85, 2.35, "Paris, FR"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := fx.orch.SaveFavorite(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, err := fx.orch.SaveFavorite("Home")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].Label != "Home" {
		t.Fatalf("expected one relabelled favorite, got %+v", list)
	}

	if err := fx.orch.RemoveFavorite(48.85, 2.35); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fx.orch.RemoveFavorite(48.85, 2.35); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	list, _ = fx.orch.Favorites()
	if len(list) != 0 {
		t.Fatalf("expected empty favorites, got %+v", list)
	}
}

func TestRestore(t *testing.T) {
	fallback := weather.Place{Lat: 51.51, Lon: -0.13, Label: "London"}

	t.Run("falls back to default", func(t *testing.T) {
		fx := newFixture(t, fakeGeocoder{})
		if err := fx.orch.Restore(context.Background(), fallback); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if st := fx.orch.Snapshot(); st.Place.Label != "London" {
			t.Fatalf("unexpected place %+v", st.Place)
		}
	})

	t.Run("uses last seen", func(t *testing.T) {
		fx := newFixture(t, fakeGeocoder{})
		if err := fx.lastSeen.Save(weather.Place{Lat: 40.42, Lon: -3.7, Label: "Madrid"}, time.Now()); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := fx.orch.Restore(context.Background(), fallback); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if st := fx.orch.Snapshot(); st.Place.Label != "Madrid" || st.Place.Lat != 40.42 {
			t.Fatalf("unexpected place %+v", st.Place)
		}
	})
}

func TestRefresh(t *testing.T) {
	fx := newFixture(t, fakeGeocoder{})

	if err := fx.orch.Refresh(context.Background()); err != nil || fx.fetcher.Calls() != 0 {
		t.Fatalf("refresh without a place must be a no-op (err=%v, calls=%d)", err, fx.fetcher.Calls())
	}

	if err := fx.orch.LoadPlace(context.Background(), 1, 2, "Somewhere"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fx.orch.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.fetcher.Calls() != 2 {
		t.Fatalf("expected two fetches, got %d", fx.fetcher.Calls())
	}
}

// gatedFetcher blocks each fetch until the gate for its latitude is opened.
type gatedFetcher struct {
	gates map[float64]chan struct{}
}

func (g gatedFetcher) Fetch(ctx context.Context, lat, lon float64) (*weather.RawForecast, error) {
	<-g.gates[lat]
	return &weather.RawForecast{
		CurrentWeather: &weather.RawCurrent{Temperature: weather.Float(lat), WeatherCode: weather.Int(0)},
	}, nil
}

// stallingKV holds the first last-seen write for label until resume is closed
// or a short timeout passes.
type stallingKV struct {
	*store.MemoryKV
	label   string
	writing chan struct{}
	resume  chan struct{}
	once    sync.Once
}

func (k *stallingKV) Put(key string, value []byte) error {
	if key == store.LastSeenKey {
		var rec store.LastSeen
		if err := json.Unmarshal(value, &rec); err == nil && rec.Label == k.label {
			k.once.Do(func() {
				close(k.writing)
				select {
				case <-k.resume:
				case <-time.After(time.Second):
				}
			})
		}
	}
	return k.MemoryKV.Put(key, value)
}

func TestOverlappingLoadsKeepLastSeenInStepWithDisplay(t *testing.T) {
	kv := &stallingKV{
		MemoryKV: store.NewMemoryKV(),
		label:    "First",
		writing:  make(chan struct{}),
		resume:   make(chan struct{}),
	}
	gates := map[float64]chan struct{}{1: make(chan struct{}), 2: make(chan struct{})}
	board := render.NewBoard()
	lastSeen := store.NewLastSeenStore(kv)
	orch := New(Deps{
		Forecasts: gatedFetcher{gates: gates},
		Renderer:  board,
		Favorites: store.NewFavorites(kv, zap.NewNop()),
		LastSeen:  lastSeen,
		Logger:    zap.NewNop(),
	}, weather.UnitsMetric)

	var wg sync.WaitGroup
	load := func(lat float64, label string) {
		defer wg.Done()
		if err := orch.LoadPlace(context.Background(), lat, lat, label); err != nil {
			t.Errorf("load %s: %v", label, err)
		}
	}
	wg.Add(2)
	go load(1, "First")
	go load(2, "Second")

	// First finishes its fetch and starts persisting; Second then completes
	// while First's write is still in flight.
	close(gates[1])
	<-kv.writing
	close(gates[2])
	time.Sleep(50 * time.Millisecond)
	close(kv.resume)
	wg.Wait()

	v, _ := board.Current()
	rec, err := lastSeen.Load()
	if err != nil {
		t.Fatalf("load last seen: %v", err)
	}
	if v.Place != "Second" || rec.Label != v.Place {
		t.Fatalf("displayed %q but last seen is %q", v.Place, rec.Label)
	}
	if st := orch.Snapshot(); st.Place.Label != "Second" || st.Phase != PhaseIdle {
		t.Fatalf("unexpected state %+v", st)
	}
}

type failingKV struct {
	*store.MemoryKV
}

func (failingKV) Put(key string, value []byte) error {
	return errors.New("disk full")
}

func TestFavoriteWriteFailureSetsStatus(t *testing.T) {
	mem := store.NewMemoryKV()
	if _, err := store.NewFavorites(mem, zap.NewNop()).Add(store.FavoriteEntry{Label: "Rome", Lat: 41.9, Lon: 12.5}); err != nil {
		t.Fatalf("seed favorites: %v", err)
	}
	fx := newFixture(t, fakeGeocoder{})
	fx.orch.deps.Favorites = store.NewFavorites(failingKV{mem}, zap.NewNop())

	if err := fx.orch.LoadPlace(context.Background(), 48.85, 2.35, "Paris"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := fx.orch.SaveFavorite("Home"); !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected ErrStorageFailure, got %v", err)
	}
	if st := fx.orch.Snapshot(); st.Status != "failed to save" {
		t.Fatalf("unexpected status %q", st.Status)
	}

	fx.orch.setStatus(StatusReady)
	if err := fx.orch.RemoveFavorite(41.9, 12.5); !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected ErrStorageFailure, got %v", err)
	}
	if st := fx.orch.Snapshot(); st.Status != "failed to save" {
		t.Fatalf("unexpected status %q", st.Status)
	}
}

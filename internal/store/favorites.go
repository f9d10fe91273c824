package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const (
	FavoritesKey = "weather.favorites"

	// MaxFavorites caps the favorites list on every write.
	MaxFavorites = 12
)

// FavoriteEntry is a saved place. Entries are unique by exact (Lat, Lon).
type FavoriteEntry struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

func (f FavoriteEntry) sameCoords(lat, lon float64) bool {
	return f.Lat == lat && f.Lon == lon
}

// Favorites is the ordered favorites list, most recent first.
type Favorites struct {
	mu     sync.Mutex
	kv     KV
	logger *zap.Logger
}

func NewFavorites(kv KV, logger *zap.Logger) *Favorites {
	return &Favorites{kv: kv, logger: logger.Named("favorites")}
}

// List returns a copy of the stored list. Unreadable data is treated as an
// empty list.
func (f *Favorites) List() ([]FavoriteEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

// Add puts entry at the front, replacing any entry with the same coordinates,
// and trims the list to MaxFavorites.
func (f *Favorites) Add(entry FavoriteEntry) ([]FavoriteEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list, err := f.load()
	if err != nil {
		return nil, err
	}

	next := make([]FavoriteEntry, 0, len(list)+1)
	next = append(next, entry)
	for _, e := range list {
		if !e.sameCoords(entry.Lat, entry.Lon) {
			next = append(next, e)
		}
	}
	if err := f.save(next); err != nil {
		return nil, err
	}
	return capped(next), nil
}

// Remove deletes the entry with the given coordinates and reports whether
// one was found.
func (f *Favorites) Remove(lat, lon float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list, err := f.load()
	if err != nil {
		return false, err
	}

	next := make([]FavoriteEntry, 0, len(list))
	for _, e := range list {
		if !e.sameCoords(lat, lon) {
			next = append(next, e)
		}
	}
	if len(next) == len(list) {
		return false, nil
	}
	return true, f.save(next)
}

func (f *Favorites) load() ([]FavoriteEntry, error) {
	data, err := f.kv.Get(FavoritesKey)
	if errors.Is(err, ErrNotFound) {
		return []FavoriteEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read favorites: %w", err)
	}

	var list []FavoriteEntry
	if err := json.Unmarshal(data, &list); err != nil {
		f.logger.Warn("discarding unreadable favorites", zap.Error(err))
		return []FavoriteEntry{}, nil
	}
	return capped(list), nil
}

func (f *Favorites) save(list []FavoriteEntry) error {
	data, err := json.Marshal(capped(list))
	if err != nil {
		return err
	}
	if err := f.kv.Put(FavoritesKey, data); err != nil {
		return fmt.Errorf("write favorites: %w", err)
	}
	return nil
}

func capped(list []FavoriteEntry) []FavoriteEntry {
	if len(list) > MaxFavorites {
		return list[:MaxFavorites]
	}
	return list
}

package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const LastSeenKey = "weather.lastSeen"

// LastSeen is the place restored on startup.
type LastSeen struct {
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Label          string  `json:"label"`
	SavedAtEpochMs int64   `json:"savedAtEpochMs"`
}

func (l LastSeen) Place() weather.Place {
	return weather.Place{Lat: l.Lat, Lon: l.Lon, Label: l.Label}
}

// LastSeenStore keeps a single overwritten LastSeen record.
type LastSeenStore struct {
	kv KV
}

func NewLastSeenStore(kv KV) *LastSeenStore {
	return &LastSeenStore{kv: kv}
}

func (s *LastSeenStore) Save(place weather.Place, now time.Time) error {
	data, err := json.Marshal(LastSeen{
		Lat:            place.Lat,
		Lon:            place.Lon,
		Label:          place.Label,
		SavedAtEpochMs: now.UnixMilli(),
	})
	if err != nil {
		return err
	}
	return s.kv.Put(LastSeenKey, data)
}

// Load returns ErrNotFound when nothing has been saved or the stored record
// cannot be decoded.
func (s *LastSeenStore) Load() (LastSeen, error) {
	data, err := s.kv.Get(LastSeenKey)
	if err != nil {
		return LastSeen{}, err
	}
	var rec LastSeen
	if err := json.Unmarshal(data, &rec); err != nil {
		return LastSeen{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return rec, nil
}

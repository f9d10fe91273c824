package weather

import "encoding/json"

// RawForecast mirrors the Open-Meteo forecast response. Every section and
// every array is optional, and array elements may be null.
type RawForecast struct {
	Latitude       float64     `json:"latitude"`
	Longitude      float64     `json:"longitude"`
	Timezone       string      `json:"timezone"`
	CurrentWeather *RawCurrent `json:"current_weather,omitempty"`
	Hourly         *RawHourly  `json:"hourly,omitempty"`
	Daily          *RawDaily   `json:"daily,omitempty"`
}

type RawCurrent struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	WindSpeed        *float64 `json:"windspeed,omitempty"`
	WeatherCode      *int     `json:"weathercode,omitempty"`
	RelativeHumidity *float64 `json:"relativehumidity,omitempty"`
}

// UnmarshalJSON accepts both the legacy and the current provider spellings.
func (c *RawCurrent) UnmarshalJSON(data []byte) error {
	var v struct {
		Temperature       *float64 `json:"temperature"`
		WindSpeed         *float64 `json:"windspeed"`
		WindSpeedNew      *float64 `json:"wind_speed"`
		WeatherCode       *int     `json:"weathercode"`
		WeatherCodeNew    *int     `json:"weather_code"`
		RelativeHumidity  *float64 `json:"relativehumidity"`
		RelativeHumidity2 *float64 `json:"relative_humidity"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.Temperature = v.Temperature
	c.WindSpeed = firstPtr(v.WindSpeed, v.WindSpeedNew)
	c.WeatherCode = firstPtr(v.WeatherCode, v.WeatherCodeNew)
	c.RelativeHumidity = firstPtr(v.RelativeHumidity, v.RelativeHumidity2)
	return nil
}

// RawHourly holds parallel arrays aligned by index with Time.
type RawHourly struct {
	Time                []string   `json:"time,omitempty"`
	Temperature2m       []*float64 `json:"temperature_2m,omitempty"`
	ApparentTemperature []*float64 `json:"apparent_temperature,omitempty"`
	RelativeHumidity2m  []*float64 `json:"relativehumidity_2m,omitempty"`
	WeatherCode         []*int     `json:"weathercode,omitempty"`
	WindSpeed10m        []*float64 `json:"windspeed_10m,omitempty"`
	PM25                []*float64 `json:"pm2_5,omitempty"`
	PM10                []*float64 `json:"pm10,omitempty"`
	UVIndex             []*float64 `json:"uv_index,omitempty"`
}

func (h *RawHourly) UnmarshalJSON(data []byte) error {
	var v struct {
		Time                  []string   `json:"time"`
		Temperature2m         []*float64 `json:"temperature_2m"`
		ApparentTemperature   []*float64 `json:"apparent_temperature"`
		RelativeHumidity2m    []*float64 `json:"relativehumidity_2m"`
		RelativeHumidity2mNew []*float64 `json:"relative_humidity_2m"`
		WeatherCode           []*int     `json:"weathercode"`
		WeatherCodeNew        []*int     `json:"weather_code"`
		WindSpeed10m          []*float64 `json:"windspeed_10m"`
		WindSpeed10mNew       []*float64 `json:"wind_speed_10m"`
		PM25                  []*float64 `json:"pm2_5"`
		PM10                  []*float64 `json:"pm10"`
		UVIndex               []*float64 `json:"uv_index"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	h.Time = v.Time
	h.Temperature2m = v.Temperature2m
	h.ApparentTemperature = v.ApparentTemperature
	h.RelativeHumidity2m = firstSlice(v.RelativeHumidity2m, v.RelativeHumidity2mNew)
	h.WeatherCode = firstSlice(v.WeatherCode, v.WeatherCodeNew)
	h.WindSpeed10m = firstSlice(v.WindSpeed10m, v.WindSpeed10mNew)
	h.PM25 = v.PM25
	h.PM10 = v.PM10
	h.UVIndex = v.UVIndex
	return nil
}

type RawDaily struct {
	Time           []string   `json:"time,omitempty"`
	WeatherCode    []*int     `json:"weathercode,omitempty"`
	TemperatureMax []*float64 `json:"temperature_2m_max,omitempty"`
	TemperatureMin []*float64 `json:"temperature_2m_min,omitempty"`
}

func (d *RawDaily) UnmarshalJSON(data []byte) error {
	var v struct {
		Time           []string   `json:"time"`
		WeatherCode    []*int     `json:"weathercode"`
		WeatherCodeNew []*int     `json:"weather_code"`
		TemperatureMax []*float64 `json:"temperature_2m_max"`
		TemperatureMin []*float64 `json:"temperature_2m_min"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	d.Time = v.Time
	d.WeatherCode = firstSlice(v.WeatherCode, v.WeatherCodeNew)
	d.TemperatureMax = v.TemperatureMax
	d.TemperatureMin = v.TemperatureMin
	return nil
}

func firstPtr[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstSlice[T any](vals ...[]T) []T {
	for _, v := range vals {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}

// at returns the element at i, or nil when i is out of range.
func at[T any](s []*T, i int) *T {
	if i < 0 || i >= len(s) {
		return nil
	}
	return s[i]
}

// Float and Int return pointers to v; handy for building payloads by hand.
func Float(v float64) *float64 { return &v }

func Int(v int) *int { return &v }

package weather

import "time"

// MaxHourlyPoints caps the hourly series shown in the chart.
const MaxHourlyPoints = 24

// DefaultTimezone is used when the payload carries no timezone.
const DefaultTimezone = "auto"

type (
	floatSource func(*RawForecast) *float64
	intSource   func(*RawForecast) *int
)

// Fallback chains for the current conditions. Sources are tried in order and
// the first non-nil value wins.
var (
	weatherCodeChain = []intSource{
		func(r *RawForecast) *int { return current(r).WeatherCode },
		func(r *RawForecast) *int { return at(hourly(r).WeatherCode, 0) },
	}
	temperatureChain = []floatSource{
		func(r *RawForecast) *float64 { return current(r).Temperature },
		func(r *RawForecast) *float64 { return at(hourly(r).Temperature2m, 0) },
	}
	feelsLikeChain = []floatSource{
		func(r *RawForecast) *float64 { return at(hourly(r).ApparentTemperature, 0) },
	}
	humidityChain = []floatSource{
		func(r *RawForecast) *float64 { return at(hourly(r).RelativeHumidity2m, 0) },
		func(r *RawForecast) *float64 { return current(r).RelativeHumidity },
	}
	windChain = []floatSource{
		func(r *RawForecast) *float64 { return current(r).WindSpeed },
		func(r *RawForecast) *float64 { return at(hourly(r).WindSpeed10m, 0) },
	}
)

// Normalize derives the dashboard data from a raw forecast payload.
// It never fails: absent sections and short arrays resolve to defaults.
func Normalize(raw *RawForecast) Forecast {
	if raw == nil {
		raw = &RawForecast{}
	}
	return Forecast{
		Current:    NormalizeCurrent(raw),
		Hourly:     NormalizeHourly(raw),
		Daily:      NormalizeDaily(raw),
		AirQuality: NormalizeAirQuality(raw),
		UVIndex:    at(hourly(raw).UVIndex, 0),
	}
}

func NormalizeCurrent(raw *RawForecast) CurrentConditions {
	temp := firstFloat(raw, 0, temperatureChain...)
	tz := raw.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	return CurrentConditions{
		TemperatureC: temp,
		FeelsLikeC:   firstFloat(raw, temp, feelsLikeChain...),
		HumidityPct:  firstDefined(raw, humidityChain...),
		WindKmh:      firstFloat(raw, 0, windChain...),
		WeatherCode:  firstInt(raw, 0, weatherCodeChain...),
		Timezone:     tz,
	}
}

// NormalizeHourly zips the first MaxHourlyPoints times with their
// temperatures. A missing temperature keeps its point with a nil value.
func NormalizeHourly(raw *RawForecast) []HourlyPoint {
	h := hourly(raw)
	n := len(h.Time)
	if n > MaxHourlyPoints {
		n = MaxHourlyPoints
	}
	points := make([]HourlyPoint, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, HourlyPoint{
			TimeLabel:    timeLabel(h.Time[i]),
			TemperatureC: at(h.Temperature2m, i),
		})
	}
	return points
}

// NormalizeDaily emits one point per daily time entry; the other arrays
// default to 0 where they are short or null.
func NormalizeDaily(raw *RawForecast) []DailyPoint {
	d := daily(raw)
	points := make([]DailyPoint, 0, len(d.Time))
	for i, date := range d.Time {
		points = append(points, DailyPoint{
			Date:        date,
			WeatherCode: valueOr(at(d.WeatherCode, i), 0),
			MinC:        valueOr(at(d.TemperatureMin, i), 0),
			MaxC:        valueOr(at(d.TemperatureMax, i), 0),
		})
	}
	return points
}

// NormalizeAirQuality prefers the latest PM2.5 value over PM10.
func NormalizeAirQuality(raw *RawForecast) AirQuality {
	h := hourly(raw)
	if v := at(h.PM25, 0); v != nil {
		return AirQuality{Kind: AirQualityPM25, Value: *v}
	}
	if v := at(h.PM10, 0); v != nil {
		return AirQuality{Kind: AirQualityPM10, Value: *v}
	}
	return AirQuality{Kind: AirQualityUnavailable}
}

func firstDefined(raw *RawForecast, sources ...floatSource) *float64 {
	for _, src := range sources {
		if v := src(raw); v != nil {
			return v
		}
	}
	return nil
}

func firstFloat(raw *RawForecast, def float64, sources ...floatSource) float64 {
	return valueOr(firstDefined(raw, sources...), def)
}

func firstInt(raw *RawForecast, def int, sources ...intSource) int {
	for _, src := range sources {
		if v := src(raw); v != nil {
			return *v
		}
	}
	return def
}

func valueOr[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

func current(r *RawForecast) *RawCurrent {
	if r.CurrentWeather == nil {
		return &RawCurrent{}
	}
	return r.CurrentWeather
}

func hourly(r *RawForecast) *RawHourly {
	if r.Hourly == nil {
		return &RawHourly{}
	}
	return r.Hourly
}

func daily(r *RawForecast) *RawDaily {
	if r.Daily == nil {
		return &RawDaily{}
	}
	return r.Daily
}

// timeLabel turns "2024-05-01T13:00" into "13:00"; anything else is kept.
func timeLabel(s string) string {
	if t, err := time.Parse("2006-01-02T15:04", s); err == nil {
		return t.Format("15:04")
	}
	return s
}

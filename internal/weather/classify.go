package weather

// Theme is the coarse background category of the dashboard.
type Theme string

const (
	ThemeSunny   Theme = "sunny"
	ThemeRain    Theme = "rain"
	ThemeSnow    Theme = "snow"
	ThemeDefault Theme = "default"
)

// Icon is the finer-grained pictogram category.
type Icon string

const (
	IconClear        Icon = "clear"
	IconMainlyClear  Icon = "mainly-clear"
	IconPartlyCloudy Icon = "partly-cloudy"
	IconOvercast     Icon = "overcast"
	IconFog          Icon = "fog"
	IconRain         Icon = "rain"
	IconSnow         Icon = "snow"
	IconThunderstorm Icon = "thunderstorm"
	IconNotAvailable Icon = "not-available"
)

// UnknownDescription is shown for codes without a description.
const UnknownDescription = "—"

// Classification groups everything the UI derives from a WMO weather code.
type Classification struct {
	Theme       Theme  `json:"theme"`
	Icon        Icon   `json:"icon"`
	Description string `json:"description"`
}

// Classify maps a weather code to its theme, icon and description.
// Unknown codes fall into the default arms.
func Classify(code int) Classification {
	return Classification{
		Theme:       ThemeFor(code),
		Icon:        IconFor(code),
		Description: Describe(code),
	}
}

func ThemeFor(code int) Theme {
	switch {
	case code >= 0 && code <= 2:
		return ThemeSunny
	case isRain(code):
		return ThemeRain
	case isSnow(code):
		return ThemeSnow
	default:
		return ThemeDefault
	}
}

func IconFor(code int) Icon {
	switch {
	case code == 0:
		return IconClear
	case code == 1:
		return IconMainlyClear
	case code == 2:
		return IconPartlyCloudy
	case code == 3:
		return IconOvercast
	case code == 45 || code == 48:
		return IconFog
	case isRain(code):
		return IconRain
	case isSnow(code):
		return IconSnow
	case code == 95 || code == 96 || code == 99:
		return IconThunderstorm
	default:
		return IconNotAvailable
	}
}

func Describe(code int) string {
	switch code {
	case 0:
		return "Clear sky"
	case 1:
		return "Mainly clear"
	case 2:
		return "Partly cloudy"
	case 3:
		return "Overcast"
	case 45:
		return "Fog"
	case 48:
		return "Depositing rime fog"
	case 51:
		return "Light drizzle"
	case 53:
		return "Moderate drizzle"
	case 55:
		return "Dense drizzle"
	case 61:
		return "Slight rain"
	case 63:
		return "Moderate rain"
	case 65:
		return "Heavy rain"
	case 71:
		return "Slight snow fall"
	case 73:
		return "Moderate snow fall"
	case 75:
		return "Heavy snow fall"
	case 80:
		return "Slight rain showers"
	case 81:
		return "Moderate rain showers"
	case 82:
		return "Violent rain showers"
	case 95:
		return "Thunderstorm"
	default:
		return UnknownDescription
	}
}

func isRain(code int) bool {
	switch code {
	case 51, 53, 55, 61, 63, 65, 80, 81, 82:
		return true
	}
	return false
}

func isSnow(code int) bool {
	switch code {
	case 71, 73, 75, 85, 86:
		return true
	}
	return false
}

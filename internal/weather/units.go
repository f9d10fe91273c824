package weather

// kmPerMile is the divisor used for km/h -> mph.
const kmPerMile = 1.609

// ToDisplayTemperature converts a Celsius value into the given unit system.
func ToDisplayTemperature(celsius float64, u Units) float64 {
	if u == UnitsImperial {
		return celsius*9/5 + 32
	}
	return celsius
}

// ToDisplaySpeed converts a km/h value into the given unit system.
func ToDisplaySpeed(kmh float64, u Units) float64 {
	if u == UnitsImperial {
		return kmh / kmPerMile
	}
	return kmh
}

package weather

// Icon names understood by presentation clients.
const (
	IconSun            = "sun"
	IconMoon           = "moon"
	IconCloud          = "cloud"
	IconFog            = "cloud-fog"
	IconDrizzle        = "cloud-drizzle"
	IconRain           = "cloud-rain"
	IconSnow           = "cloud-snow"
	IconThunder        = "cloud-lightning"
	IconUnknown        = "wind"
	unknownDescription = "Unknown"
)

// WMO weather interpretation codes, see https://open-meteo.com/en/docs
var descriptions = map[int]string{
	0:  "Clear Sky",
	1:  "Mainly Clear",
	2:  "Partly Cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing Rime Fog",
	51: "Light Drizzle",
	53: "Mod. Drizzle",
	55: "Dense Drizzle",
	61: "Slight Rain",
	63: "Mod. Rain",
	65: "Heavy Rain",
	71: "Slight Snow",
	73: "Mod. Snow",
	75: "Heavy Snow",
	95: "Thunderstorm",
}

// Describe returns a short label for a WMO code, or "Unknown".
func Describe(code int) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return unknownDescription
}

// Icon maps a WMO code to an icon name. Clear and partly cloudy skies show
// the moon at night.
func Icon(code int, isDay bool) string {
	switch {
	case code == 0:
		if isDay {
			return IconSun
		}
		return IconMoon
	case code >= 1 && code <= 3:
		if isDay {
			return IconCloud
		}
		return IconMoon
	case code >= 45 && code <= 48:
		return IconFog
	case code >= 51 && code <= 55:
		return IconDrizzle
	case code >= 61 && code <= 67, code >= 80 && code <= 82:
		return IconRain
	case code >= 71 && code <= 77, code >= 85 && code <= 86:
		return IconSnow
	case code >= 95 && code <= 99:
		return IconThunder
	default:
		return IconUnknown
	}
}

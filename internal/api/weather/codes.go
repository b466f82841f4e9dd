package weather

// CodeInfo describes one WMO weather interpretation code.
type CodeInfo struct {
	Condition    string
	Description  string
	IndoorNeeded bool
}

// wmoCodes maps WMO weather interpretation codes onto conditions and whether
// the day pushes activities indoors.
var wmoCodes = map[int]CodeInfo{
	0:  {"clear", "Clear sky", false},
	1:  {"mostly_clear", "Mainly clear", false},
	2:  {"partly_cloudy", "Partly cloudy", false},
	3:  {"overcast", "Overcast", false},
	45: {"fog", "Fog", false},
	48: {"fog", "Depositing rime fog", false},
	51: {"drizzle", "Light drizzle", false},
	53: {"drizzle", "Moderate drizzle", false},
	55: {"drizzle", "Dense drizzle", true},
	56: {"freezing_drizzle", "Light freezing drizzle", true},
	57: {"freezing_drizzle", "Dense freezing drizzle", true},
	61: {"rain", "Slight rain", false},
	63: {"rain", "Moderate rain", true},
	65: {"rain", "Heavy rain", true},
	66: {"freezing_rain", "Light freezing rain", true},
	67: {"freezing_rain", "Heavy freezing rain", true},
	71: {"snow", "Slight snowfall", false},
	73: {"snow", "Moderate snowfall", true},
	75: {"snow", "Heavy snowfall", true},
	77: {"snow", "Snow grains", true},
	80: {"rain_showers", "Slight rain showers", false},
	81: {"rain_showers", "Moderate rain showers", true},
	82: {"rain_showers", "Violent rain showers", true},
	85: {"snow_showers", "Slight snow showers", true},
	86: {"snow_showers", "Heavy snow showers", true},
	95: {"thunderstorm", "Thunderstorm", true},
	96: {"thunderstorm", "Thunderstorm with slight hail", true},
	99: {"thunderstorm", "Thunderstorm with heavy hail", true},
}

// DescribeCode resolves a WMO code; unknown codes read as unknown and do not
// force activities indoors.
func DescribeCode(code int) CodeInfo {
	if info, ok := wmoCodes[code]; ok {
		return info
	}
	return CodeInfo{Condition: "unknown", Description: "Unknown conditions"}
}

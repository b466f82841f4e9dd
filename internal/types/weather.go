package types

import (
	"fmt"
	"strings"
)

// DayForecast is one day of weather attached to an itinerary.
type DayForecast struct {
	Date              string  `json:"date"`
	WeatherCode       int     `json:"weather_code"`
	Condition         string  `json:"condition"`
	Description       string  `json:"description"`
	TempMax           float64 `json:"temperature_max"`
	TempMin           float64 `json:"temperature_min"`
	PrecipProbability int     `json:"precipitation_probability"`
	PrecipSum         float64 `json:"precipitation_sum"`
	IndoorNeeded      bool    `json:"indoor_needed"`
}

// Rainy reports whether the day calls for indoor alternatives.
func (f DayForecast) Rainy() bool {
	cond := strings.ToLower(f.Condition)
	return strings.Contains(cond, "rain") || strings.Contains(cond, "drizzle") || f.PrecipProbability > 50
}

// Sunny reports a clear or mostly clear day.
func (f DayForecast) Sunny() bool {
	return f.Condition == "clear" || f.Condition == "mostly_clear"
}

// Summary renders a human-readable one-liner for explanations.
func (f DayForecast) Summary() string {
	parts := []string{f.Description}
	if f.TempMax != 0 || f.TempMin != 0 {
		parts = append(parts, fmt.Sprintf("%.0f°C / %.0f°C", f.TempMax, f.TempMin))
	}
	if f.PrecipProbability > 0 {
		parts = append(parts, fmt.Sprintf("%d%% chance of rain", f.PrecipProbability))
	}
	return strings.Join(parts, ", ")
}

package types

import "math"

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both coordinates are finite and inside the WGS84 ranges.
func (l Location) Valid() bool {
	if math.IsNaN(l.Lat) || math.IsInf(l.Lat, 0) || math.IsNaN(l.Lon) || math.IsInf(l.Lon, 0) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// IsZero reports whether the location is the zero value. A POI at exactly
// (0,0) is not distinguishable, which is acceptable for this domain.
func (l Location) IsZero() bool {
	return l.Lat == 0 && l.Lon == 0
}

package types

// Category classifies a POI into one of the coarse buckets the planner
// understands. Providers map their native type/tag vocabulary onto these.
type Category string

const (
	CategoryRestaurant Category = "restaurant"
	CategoryMuseum     Category = "museum"
	CategoryAttraction Category = "attraction"
	CategoryShopping   Category = "shopping"
	CategoryPark       Category = "park"
	CategoryNightlife  Category = "nightlife"
	CategoryHistorical Category = "historical"
	CategoryNature     Category = "nature"
)

// Data sources a POI can originate from.
const (
	DataSourceOpenStreetMap = "openstreetmap"
	DataSourceGooglePlaces  = "google_places"
)

// POI is a point of interest as returned by a provider. Identity is
// (DataSource, SourceID); instances are never mutated after creation.
type POI struct {
	Name            string   `json:"name"`
	Category        Category `json:"category"`
	Location        Location `json:"location"`
	DurationMinutes int      `json:"duration_minutes"`
	DataSource      string   `json:"data_source"`
	SourceID        string   `json:"source_id"`
	Rating          float64  `json:"rating,omitempty"`
	UserRatingCount int      `json:"user_rating_count,omitempty"`
	Description     string   `json:"description,omitempty"`
	OpeningHours    string   `json:"opening_hours,omitempty"`
}

// baseDurations holds the default visit length per category in minutes.
var baseDurations = map[Category]int{
	CategoryRestaurant: 60,
	CategoryMuseum:     120,
	CategoryAttraction: 90,
	CategoryShopping:   60,
	CategoryPark:       60,
	CategoryNightlife:  120,
	CategoryHistorical: 90,
	CategoryNature:     60,
}

// EstimateDuration returns a visit length for a category, refined by rating
// and review count when available. Popular, highly rated places get more
// time; poorly rated ones slightly less.
func EstimateDuration(category Category, rating float64, userRatingCount int) int {
	base, ok := baseDurations[category]
	if !ok {
		base = 90
	}

	switch {
	case rating >= 4.5 && userRatingCount >= 100:
		base += base / 4
	case rating >= 4.0 && userRatingCount >= 50:
		base += (base * 15) / 100
	case rating > 0 && rating < 3.5:
		reduced := base - base/10
		floor := (base * 7) / 10
		if reduced < floor {
			reduced = floor
		}
		base = reduced
	}
	return base
}

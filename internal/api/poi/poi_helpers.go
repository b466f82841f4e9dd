package poi

import (
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// osmTagFilter is one Overpass tag filter: a key and the values it may take.
// An empty value list matches any value of the key.
type osmTagFilter struct {
	key    string
	values []string
}

// interestTagFilters maps a user interest onto the OSM tag filters that find
// matching elements. Filters within one interest are unioned.
var interestTagFilters = map[string][]osmTagFilter{
	"food": {
		{key: "amenity", values: []string{"restaurant", "cafe", "fast_food", "food_court"}},
		{key: "tourism", values: []string{"attraction"}},
	},
	"culture": {
		{key: "tourism", values: []string{"museum", "gallery", "attraction", "artwork"}},
		{key: "historic", values: []string{"monument", "memorial", "castle", "palace", "temple"}},
	},
	"shopping": {
		{key: "shop", values: []string{"mall", "supermarket", "marketplace", "department_store", "clothes", "jewelry", "electronics", "books"}},
		{key: "amenity", values: []string{"marketplace"}},
	},
	"nightlife": {
		{key: "amenity", values: []string{"bar", "pub", "nightclub", "casino"}},
	},
	"nature": {
		{key: "leisure", values: []string{"park", "nature_reserve"}},
		{key: "natural", values: nil},
	},
	"beaches": {
		{key: "natural", values: []string{"beach"}},
	},
	"religion": {
		{key: "amenity", values: []string{"place_of_worship"}},
		{key: "historic", values: []string{"temple"}},
	},
	"historical": {
		{key: "historic", values: nil},
		{key: "tourism", values: []string{"attraction", "museum"}},
	},
}

// defaultTagFilters backs interests with no mapping of their own.
var defaultTagFilters = []osmTagFilter{
	{key: "tourism", values: []string{"attraction", "museum", "viewpoint"}},
	{key: "historic", values: nil},
}

// placeTypeQueries maps an interest to the text-search terms used against
// the commercial places provider.
var placeTypeQueries = map[string]string{
	"food":       "best restaurants and cafes",
	"culture":    "museums galleries and cultural attractions",
	"shopping":   "shopping malls and markets",
	"nightlife":  "bars pubs and nightlife",
	"nature":     "parks and nature spots",
	"beaches":    "beaches",
	"religion":   "temples churches and places of worship",
	"historical": "historical monuments and landmarks",
}

// cityStateHints improves geocoder recall for cities whose bare names are
// ambiguous. Values are country hints passed to the geocoder.
var cityStateHints = map[string]string{
	"jaipur":    "India",
	"chennai":   "India",
	"hyderabad": "India",
	"kochi":     "India",
	"mysuru":    "India",
	"varanasi":  "India",
	"new delhi": "India",
	"delhi":     "India",
	"mumbai":    "India",
	"kolkata":   "India",
	"bengaluru": "India",
}

// largeCities get a wider default search radius.
var largeCities = map[string]bool{
	"delhi": true, "new delhi": true, "mumbai": true, "kolkata": true,
	"bengaluru": true, "chennai": true, "hyderabad": true,
}

// NormalizeCity title-cases a city name for cache keys and display.
func NormalizeCity(city string) string {
	fields := strings.Fields(strings.TrimSpace(city))
	for i, f := range fields {
		if len(f) > 0 {
			fields[i] = strings.ToUpper(f[:1]) + strings.ToLower(f[1:])
		}
	}
	return strings.Join(fields, " ")
}

// CountryHint returns the curated country hint for a city, if any.
func CountryHint(city string) string {
	return cityStateHints[strings.ToLower(strings.TrimSpace(city))]
}

// categoryFromTags maps OSM tags to an internal category by priority.
func categoryFromTags(tags map[string]string) types.Category {
	switch tags["tourism"] {
	case "museum":
		return types.CategoryMuseum
	case "attraction", "gallery", "artwork", "viewpoint":
		return types.CategoryAttraction
	}
	switch tags["amenity"] {
	case "restaurant", "cafe", "fast_food", "food_court":
		return types.CategoryRestaurant
	case "bar", "pub", "nightclub", "casino":
		return types.CategoryNightlife
	case "marketplace":
		return types.CategoryShopping
	}
	if tags["shop"] != "" {
		return types.CategoryShopping
	}
	if tags["historic"] != "" {
		return types.CategoryHistorical
	}
	switch tags["leisure"] {
	case "park", "nature_reserve", "garden":
		return types.CategoryPark
	}
	if tags["natural"] != "" {
		return types.CategoryNature
	}
	return types.CategoryAttraction
}

// nameFields are checked in order when extracting an element's name.
var nameFields = []string{
	"name", "name:en", "alt_name", "name:hi", "name:ta", "name:kn",
	"name:te", "name:ml", "official_name", "loc_name", "short_name",
}

func nameFromTags(tags map[string]string) string {
	for _, f := range nameFields {
		if v := strings.TrimSpace(tags[f]); v != "" {
			return v
		}
	}
	return ""
}

// dedupePOIs drops duplicate POIs by (data_source, source_id), preserving
// first-seen order. The same place can surface from both providers; those
// keep distinct identities on purpose.
func dedupePOIs(pois []types.POI) []types.POI {
	seen := make(map[string]bool, len(pois))
	out := pois[:0]
	for _, p := range pois {
		key := p.DataSource + "|" + p.SourceID
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

package types

import (
	"fmt"
	"net/url"
	"strings"
)

// Source types.
const (
	SourceTypeOpenStreetMap = "openstreetmap"
	SourceTypeGooglePlaces  = "google_places"
	SourceTypeWikivoyage    = "wikivoyage"
	SourceTypeWeather       = "weather"
)

// Source is a citation attached to an itinerary or an explanation.
type Source struct {
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	SourceID string `json:"source_id,omitempty"`
	URL      string `json:"url,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
}

// Key identifies a source for de-duplication.
func (s Source) Key() string {
	return s.Type + ":" + s.SourceID + ":" + s.URL
}

// SourceForPOI derives a citation from a POI, including a browsable URL for
// the OSM and Google Places identifier formats.
func SourceForPOI(p POI) Source {
	src := Source{
		Type:     p.DataSource,
		Name:     p.Name,
		SourceID: p.SourceID,
	}
	switch p.DataSource {
	case DataSourceOpenStreetMap:
		if elemType, id, ok := strings.Cut(p.SourceID, ":"); ok {
			src.URL = fmt.Sprintf("https://www.openstreetmap.org/%s/%s", elemType, id)
		}
	case DataSourceGooglePlaces:
		if id, ok := strings.CutPrefix(p.SourceID, "place_id:"); ok {
			src.URL = "https://www.google.com/maps/place/?q=place_id:" + url.QueryEscape(id)
		}
	}
	return src
}

// SourceForActivity derives a citation from an enriched activity.
func SourceForActivity(a Activity) Source {
	return SourceForPOI(POI{
		Name:       a.Activity,
		DataSource: a.DataSource,
		SourceID:   a.SourceID,
	})
}

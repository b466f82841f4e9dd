package itinerary

import (
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// enrichItinerary binds every scheduled activity back to its POI and copies
// the authoritative fields over whatever the model wrote. Matching tries, in
// order: source_id, exact name, name containment, then a two-word overlap.
func enrichItinerary(it *types.Itinerary, pois []types.POI) {
	bySourceID := make(map[string]*types.POI, len(pois))
	byName := make(map[string]*types.POI, len(pois))
	for i := range pois {
		p := &pois[i]
		if p.SourceID != "" {
			bySourceID[p.SourceID] = p
		}
		byName[strings.ToLower(p.Name)] = p
	}

	for _, key := range it.SortedDayKeys() {
		day := it.Days[key]
		for _, blockName := range types.TimeBlockNames {
			block := day.Block(blockName)
			for i := range block.Activities {
				a := &block.Activities[i]
				if p := matchPOI(a, pois, bySourceID, byName); p != nil {
					applyPOI(a, p)
				} else {
					stripUnverified(a)
				}
			}
		}
	}
}

func matchPOI(a *types.Activity, pois []types.POI, bySourceID, byName map[string]*types.POI) *types.POI {
	if a.SourceID != "" {
		if p, ok := bySourceID[a.SourceID]; ok {
			return p
		}
	}

	name := strings.ToLower(strings.TrimSpace(a.Activity))
	if name == "" {
		return nil
	}
	if p, ok := byName[name]; ok {
		return p
	}

	for i := range pois {
		poiName := strings.ToLower(pois[i].Name)
		if strings.Contains(name, poiName) || strings.Contains(poiName, name) {
			return &pois[i]
		}
	}

	for i := range pois {
		if wordOverlap(name, strings.ToLower(pois[i].Name)) >= 2 {
			return &pois[i]
		}
	}
	return nil
}

// wordOverlap counts distinct significant words the two names share.
func wordOverlap(a, b string) int {
	words := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		if significantWord(w) {
			words[w] = true
		}
	}
	n := 0
	seen := make(map[string]bool)
	for _, w := range strings.Fields(b) {
		if words[w] && !seen[w] {
			seen[w] = true
			n++
		}
	}
	return n
}

func significantWord(w string) bool {
	switch w {
	case "the", "a", "an", "of", "at", "in", "and", "to":
		return false
	}
	return len(w) > 2
}

// applyPOI copies the POI's authoritative fields onto the activity. The
// model keeps only the time slot.
func applyPOI(a *types.Activity, p *types.POI) {
	loc := p.Location
	a.Activity = p.Name
	a.Location = &loc
	a.Category = p.Category
	a.DurationMinutes = p.DurationMinutes
	a.SourceID = p.SourceID
	a.DataSource = p.DataSource
	a.Rating = p.Rating
	if p.Description != "" {
		a.Description = p.Description
	}
	if p.OpeningHours != "" {
		a.OpeningHours = p.OpeningHours
	}
}

// stripUnverified clears the fields of an activity no pool POI backs. The
// model invents source ids, coordinates, ratings, and hours freely; only the
// name, category, and a category-estimated duration survive.
func stripUnverified(a *types.Activity) {
	a.SourceID = ""
	a.DataSource = ""
	a.Location = nil
	a.Rating = 0
	a.OpeningHours = ""
	a.DurationMinutes = types.EstimateDuration(a.Category, 0, 0)
}

package itinerary

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const selectionSystemPrompt = `You are a travel itinerary planner. You select activities only from the provided list and respond with a single JSON object, no prose and no markdown fences.`

// selectionPrompt renders the day-planning request. The model may only pick
// from the numbered POI list and must echo each pick's source_id so the
// enrichment pass can bind it back to real data.
func selectionPrompt(prefs types.Preferences, pace types.Pace, pois []types.POI) string {
	minAct, maxAct, _ := pace.ActivityRange()

	var b strings.Builder
	fmt.Fprintf(&b, "Plan a %d-day trip to %s.\n\n", prefs.DurationDays, prefs.City)

	if len(prefs.Interests) > 0 {
		fmt.Fprintf(&b, "Traveler interests: %s.\n", strings.Join(prefs.Interests, ", "))
	}
	if prefs.Budget != "" {
		fmt.Fprintf(&b, "Budget: %s.\n", prefs.Budget)
	}
	fmt.Fprintf(&b, "Pace: %s (%d-%d activities per day).\n\n", pace, minAct, maxAct)

	b.WriteString("Available places (pick ONLY from this list, never invent places):\n")
	for i, p := range pois {
		fmt.Fprintf(&b, "%d. %s | category=%s | duration=%dmin | source_id=%s | lat=%.4f lon=%.4f",
			i+1, p.Name, p.Category, p.DurationMinutes, p.SourceID, p.Location.Lat, p.Location.Lon)
		if p.Rating > 0 {
			fmt.Fprintf(&b, " | rating=%.1f (%d reviews)", p.Rating, p.UserRatingCount)
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Rules:
- Spread activities across morning, afternoon and evening blocks.
- Group nearby places (close lat/lon) into the same day to cut travel.
- Schedule restaurants at meal times: lunch in the afternoon block, dinner in the evening block. If the traveler listed food as an interest, include at least one restaurant per day.
- Do not repeat a place across days.
- Respect the per-day activity count for the pace.

Respond with exactly this JSON shape, one key per day:
{
  "day_1": {
    "morning": {"activities": [{"activity": "<name>", "time": "09:00 AM", "duration_minutes": 90, "source_id": "<source_id>"}]},
    "afternoon": {"activities": [...]},
    "evening": {"activities": [...]}
  },
  "day_2": { ... }
}`)
	return b.String()
}

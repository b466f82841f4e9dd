package evaluation

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// CheckEditCorrectness diffs two itineraries day by day and verifies that
// exactly the days the edit intent targets were touched. Days are compared
// by their JSON encoding, which catches activity, time, and travel changes
// alike.
func CheckEditCorrectness(before, after *types.Itinerary, intent types.EditIntent) *types.EditCorrectnessResult {
	result := &types.EditCorrectnessResult{}

	modified := diffDays(before, after)
	allowed, required := expectedSections(intent, before, after)

	modifiedSet := make(map[string]bool, len(modified))
	for _, key := range modified {
		modifiedSet[key] = true
	}

	for _, key := range allDayKeys(before, after) {
		if modifiedSet[key] {
			result.ModifiedSections = append(result.ModifiedSections, key)
		} else {
			result.UnchangedSections = append(result.UnchangedSections, key)
		}
	}

	for _, key := range modified {
		if !allowed[key] {
			result.Violations = append(result.Violations,
				fmt.Sprintf("%s changed but the edit did not target it", key))
		}
	}
	for key := range required {
		if !modifiedSet[key] {
			result.Violations = append(result.Violations,
				fmt.Sprintf("%s should have changed but did not", key))
		}
	}

	result.IsCorrect = len(result.Violations) == 0
	return result
}

// diffDays lists the day keys whose content differs between the two
// itineraries, including days present on only one side.
func diffDays(before, after *types.Itinerary) []string {
	var out []string
	for _, key := range allDayKeys(before, after) {
		a, b := before.Days[key], after.Days[key]
		if (a == nil) != (b == nil) {
			out = append(out, key)
			continue
		}
		if a == nil {
			continue
		}
		rawA, _ := json.Marshal(a)
		rawB, _ := json.Marshal(b)
		if string(rawA) != string(rawB) {
			out = append(out, key)
		}
	}
	return out
}

func allDayKeys(before, after *types.Itinerary) []string {
	seen := make(map[string]bool)
	for key := range before.Days {
		seen[key] = true
	}
	for key := range after.Days {
		seen[key] = true
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := types.DayNumber(keys[i])
		b, _ := types.DayNumber(keys[j])
		return a < b
	})
	return keys
}

// expectedSections derives which day keys an intent may touch and which it
// must touch.
func expectedSections(intent types.EditIntent, before, after *types.Itinerary) (allowed, required map[string]bool) {
	allowed = make(map[string]bool)
	required = make(map[string]bool)

	switch intent.EditType {
	case types.EditSwapDays:
		// Both days must actually change places.
		allowed[types.DayKey(intent.SourceDay)] = true
		allowed[types.DayKey(intent.TargetDay)] = true
		required[types.DayKey(intent.SourceDay)] = true
		required[types.DayKey(intent.TargetDay)] = true

	case types.EditMoveTimeBlock:
		src := types.DayKey(intent.SourceDay)
		dst := src
		if intent.TargetDay != 0 {
			dst = types.DayKey(intent.TargetDay)
		}
		allowed[src] = true
		allowed[dst] = true
		required[dst] = true
		// The source only changes when its vacated block gets replanned.
		if intent.RegenerateVacated {
			required[src] = true
		}

	case types.EditChangePace:
		// A pace change may legitimately touch every day.
		for key := range before.Days {
			allowed[key] = true
		}
		for key := range after.Days {
			allowed[key] = true
		}

	case types.EditSwapActivity, types.EditAddActivity, types.EditRemoveActiv:
		if intent.TargetDay > 0 {
			key := types.DayKey(intent.TargetDay)
			allowed[key] = true
			required[key] = true
		} else {
			// No day named; any single day may change.
			for key := range before.Days {
				allowed[key] = true
			}
			for key := range after.Days {
				allowed[key] = true
			}
		}

	case types.EditAddDay:
		// Only the appended day is new; existing days stay put.
		for key := range after.Days {
			if before.Days[key] == nil {
				allowed[key] = true
				required[key] = true
			}
		}

	case types.EditReduceTravel:
		// Travel legs may be refreshed anywhere.
		for key := range before.Days {
			allowed[key] = true
		}
	}

	return allowed, required
}

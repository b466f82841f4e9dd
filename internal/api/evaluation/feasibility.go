package evaluation

import (
	"fmt"
	"math"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Day planning window: 09:00 to 22:00.
const (
	dayWindowMinutes = 13 * 60

	// Per-leg travel ceilings: past the higher one a leg is a violation,
	// past the lower one a warning. Both apply to every movement style.
	travelLegViolationMinutes = 60
	travelLegWarningMinutes   = 30

	// tightScheduleRatio is the window share past which a day reads as
	// overpacked even when it technically fits.
	tightScheduleRatio = 0.95
)

// Score deductions.
const (
	dayOverrunPenalty  = 0.2
	travelLegPenalty   = 0.15
	paceWarningPenalty = 0.1
)

// CheckFeasibility verifies that every day fits its window, no single travel
// leg is unreasonable, and activity counts match the declared pace. The
// score starts at 1.0 and loses a fixed amount per finding.
func CheckFeasibility(it *types.Itinerary) *types.FeasibilityResult {
	result := &types.FeasibilityResult{Score: 1.0}

	minAct, maxAct, paceKnown := it.Pace.ActivityRange()

	for _, key := range it.SortedDayKeys() {
		day := it.Days[key]
		activities := day.Activities()

		busy := 0
		for _, a := range activities {
			duration := a.DurationMinutes
			if duration <= 0 {
				duration = 60
			}
			busy += duration + a.TravelTimeFromPrevious

			switch {
			case a.TravelTimeFromPrevious > travelLegViolationMinutes:
				result.Violations = append(result.Violations,
					fmt.Sprintf("%s: %d min travel to %q exceeds the %d min limit",
						key, a.TravelTimeFromPrevious, a.Activity, travelLegViolationMinutes))
				result.Score -= travelLegPenalty
			case a.TravelTimeFromPrevious > travelLegWarningMinutes:
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s: %d min travel to %q is a long transfer",
						key, a.TravelTimeFromPrevious, a.Activity))
			}
		}

		if busy > dayWindowMinutes {
			result.Violations = append(result.Violations,
				fmt.Sprintf("%s: %d min of activity and travel exceeds the %d min day window", key, busy, dayWindowMinutes))
			result.Score -= dayOverrunPenalty
		} else if float64(busy) > tightScheduleRatio*dayWindowMinutes {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: schedule uses over 95%% of the day, little slack for delays", key))
		}

		if paceKnown && len(activities) > 0 {
			if len(activities) < minAct || len(activities) > maxAct {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s: %d activities outside the %d-%d range for a %s pace",
						key, len(activities), minAct, maxAct, it.Pace))
				result.Score -= paceWarningPenalty
			}
		}
	}

	result.Score = clampScore(result.Score)
	result.IsFeasible = len(result.Violations) == 0
	return result
}

// clampScore bounds a score to [0,1] and rounds to two decimals.
func clampScore(s float64) float64 {
	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return math.Round(s*100) / 100
}

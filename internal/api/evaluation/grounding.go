package evaluation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Valid source identifier shapes.
var (
	osmSourceRe    = regexp.MustCompile(`^(way|node|relation):\d+$`)
	googleSourceRe = regexp.MustCompile(`^place_id:.+$`)
)

// claimTriggers are words whose presence in a description marks a claim that
// needs a source behind it.
var claimTriggers = []string{"famous", "popular", "known", "historic", "best", "renowned"}

// missingCitationPenalty stacks on top of the grounded fraction.
const missingCitationPenalty = 0.1

// CheckGrounding verifies that every activity traces back to a real data
// source. The score is the grounded fraction, further reduced for each
// missing citation, so sparse itineraries with a single hallucinated stop
// still score noticeably lower.
func CheckGrounding(it *types.Itinerary) *types.GroundingResult {
	result := &types.GroundingResult{Score: 1.0}

	activities := it.AllActivities()
	if len(activities) == 0 {
		result.IsGrounded = true
		result.AllPOIsHaveSources = true
		return result
	}

	grounded := 0
	for _, a := range activities {
		if validSourceID(a.SourceID) {
			grounded++
		} else {
			result.MissingCitations = append(result.MissingCitations,
				fmt.Sprintf("%q has no verifiable source", a.Activity))
		}

		if trigger := claimTrigger(a.Description); trigger != "" && !validSourceID(a.SourceID) {
			result.UncertainData = append(result.UncertainData,
				fmt.Sprintf("%q claims to be %s without a source", a.Activity, trigger))
		}
		if a.OpeningHours == "" && a.Description == "" {
			result.UncertainData = append(result.UncertainData,
				fmt.Sprintf("%q has no opening hours or description on record", a.Activity))
		}
	}

	score := float64(grounded) / float64(len(activities))
	score -= float64(len(result.MissingCitations)) * missingCitationPenalty
	result.Score = clampScore(score)
	result.AllPOIsHaveSources = len(result.MissingCitations) == 0
	result.IsGrounded = result.AllPOIsHaveSources
	return result
}

func validSourceID(id string) bool {
	return osmSourceRe.MatchString(id) || googleSourceRe.MatchString(id)
}

func claimTrigger(description string) string {
	d := strings.ToLower(description)
	for _, t := range claimTriggers {
		if strings.Contains(d, t) {
			return t
		}
	}
	return ""
}

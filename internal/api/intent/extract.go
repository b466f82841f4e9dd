package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var (
	durationRe = regexp.MustCompile(`(?i)(\d+)[\s-]*(?:days?|nights?)`)
	cityRe     = regexp.MustCompile(`(?i)(?:trip\s+to|going\s+to|visit(?:ing)?|travel(?:ing)?\s+to|plan\s+.*?\bto|in)\s+([a-z][a-z\s]{1,30}?)(?:\s+for\b|\s+with\b|\s+next\b|\s+in\b|\s+on\b|\s+from\b|[,.!?]|$)`)
	dateRe     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// knownInterests maps trigger words onto canonical interest labels.
var knownInterests = map[string]string{
	"food": "food", "restaurant": "food", "eat": "food", "cuisine": "food", "street food": "food",
	"culture": "culture", "museum": "culture", "art": "culture", "gallery": "culture",
	"shopping": "shopping", "market": "shopping", "bazaar": "shopping", "mall": "shopping",
	"nightlife": "nightlife", "bar": "nightlife", "club": "nightlife", "pub": "nightlife",
	"nature": "nature", "park": "nature", "hike": "nature", "garden": "nature",
	"beach": "beaches", "beaches": "beaches",
	"temple": "religion", "religion": "religion", "spiritual": "religion", "worship": "religion",
	"history": "historical", "historical": "historical", "historic": "historical",
	"fort": "historical", "palace": "historical", "monument": "historical", "heritage": "historical",
}

// extractWithRules pulls the slots that simple patterns can find. It never
// errors; anything it cannot see stays empty.
func extractWithRules(utterance string) types.Preferences {
	var prefs types.Preferences
	u := strings.ToLower(utterance)

	if m := durationRe.FindStringSubmatch(utterance); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 && n <= 30 {
			prefs.DurationDays = n
		}
	}

	if m := cityRe.FindStringSubmatch(utterance); m != nil {
		prefs.City = titleCase(strings.TrimSpace(m[1]))
	}

	for trigger, interest := range knownInterests {
		if strings.Contains(u, trigger) && !contains(prefs.Interests, interest) {
			prefs.Interests = append(prefs.Interests, interest)
		}
	}

	switch {
	case strings.Contains(u, "relaxed") || strings.Contains(u, "easy pace") || strings.Contains(u, "laid back") || strings.Contains(u, "slow pace"):
		prefs.Pace = types.PaceRelaxed
	case strings.Contains(u, "fast pace") || strings.Contains(u, "packed") || strings.Contains(u, "as much as possible") || strings.Contains(u, "busy"):
		prefs.Pace = types.PaceFast
	case strings.Contains(u, "moderate"):
		prefs.Pace = types.PaceModerate
	}

	switch {
	case strings.Contains(u, "fly") || strings.Contains(u, "flight") || strings.Contains(u, "plane") || strings.Contains(u, "airport"):
		prefs.TravelMode = types.TravelModeAirplane
	case strings.Contains(u, "train") || strings.Contains(u, "rail"):
		prefs.TravelMode = types.TravelModeRailway
	case strings.Contains(u, "drive") || strings.Contains(u, "driving") || strings.Contains(u, "by car") || strings.Contains(u, "road trip") || strings.Contains(u, "by bus"):
		prefs.TravelMode = types.TravelModeRoad
	}

	switch {
	case strings.Contains(u, "luxury") || strings.Contains(u, "high end") || strings.Contains(u, "splurge"):
		prefs.Budget = "luxury"
	case strings.Contains(u, "cheap") || strings.Contains(u, "budget") || strings.Contains(u, "shoestring"):
		prefs.Budget = "budget"
	case strings.Contains(u, "mid-range") || strings.Contains(u, "mid range"):
		prefs.Budget = "mid-range"
	}

	if dates := dateRe.FindAllString(utterance, 2); len(dates) > 0 {
		prefs.StartDate = dates[0]
		if len(dates) > 1 {
			prefs.EndDate = dates[1]
		}
	}

	return prefs
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}

func contains(list []string, v string) bool {
	for _, have := range list {
		if have == v {
			return true
		}
	}
	return false
}

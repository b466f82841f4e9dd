package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// clarifyingQuestions maps a missing slot to the question that fills it.
var clarifyingQuestions = map[string]string{
	types.SlotCity:        "Which city would you like to visit?",
	types.SlotDuration:    "How many days will you be staying?",
	types.SlotTravelMode:  "How will you get there: by road, railway, or airplane?",
	types.SlotTravelDates: "When are you traveling? A start date like 2026-09-01 works best.",
	types.SlotInterests:   "What are you into? Food, culture, history, nature, shopping, nightlife...",
	types.SlotPace:        "Do you prefer a relaxed, moderate, or fast pace?",
}

// handlePlan merges the turn's extracted preferences into the session and
// asks at most one clarifying question. Once the minimum slots are filled it
// summarizes the plan and waits for a go-ahead; only a session that already
// has an itinerary rebuilds straight away.
func (s *ServiceImpl) handlePlan(ctx context.Context, sessionID, message string) (*TurnResult, error) {
	extracted, err := s.intents.ExtractPreferences(ctx, message)
	if err != nil {
		return nil, err
	}

	var (
		prefs        types.Preferences
		clarifyCount int
		asked        []string
		hasItinerary bool
	)
	err = s.store.Update(ctx, sessionID, func(sess *types.Session) error {
		sess.Preferences.Merge(extracted)
		prefs = sess.Preferences
		clarifyCount = sess.ClarifyingCount
		asked = append([]string(nil), sess.ClarifyingQuestionsAsked...)
		hasItinerary = sess.Itinerary != nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	missing := prefs.MissingSlots()
	canClarify := clarifyCount < s.opts.MaxClarifyingQuestions

	// Ask while something is missing and the budget allows; once the budget
	// runs out, proceed with whatever is known as long as the minimum slots
	// are there.
	if len(missing) > 0 && (canClarify || !prefs.HasMinimumSlots()) {
		if !canClarify && !prefs.HasMinimumSlots() {
			return &TurnResult{
				SessionID:  sessionID,
				Reply:      "I still need at least a city and a trip length to plan anything. " + clarifyingQuestions[missing[0]],
				Clarifying: true,
			}, nil
		}
		question := nextQuestion(missing, asked)
		if question != "" {
			err = s.store.Update(ctx, sessionID, func(sess *types.Session) error {
				sess.ClarifyingCount++
				sess.ClarifyingQuestionsAsked = append(sess.ClarifyingQuestionsAsked, question)
				return nil
			})
			if err != nil {
				return nil, err
			}
			return &TurnResult{SessionID: sessionID, Reply: question, Clarifying: true}, nil
		}
	}

	if hasItinerary {
		return s.buildItinerary(ctx, sessionID, prefs)
	}
	return s.confirmationGate(ctx, sessionID, prefs)
}

// confirmationGate summarizes the collected preferences and holds the build
// until the traveler says yes on the next turn.
func (s *ServiceImpl) confirmationGate(ctx context.Context, sessionID string, prefs types.Preferences) (*TurnResult, error) {
	err := s.store.Update(ctx, sessionID, func(sess *types.Session) error {
		sess.AwaitingConfirmation = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &TurnResult{
		SessionID: sessionID,
		Reply:     prefsSummary(prefs),
		Status:    StatusConfirmationRequired,
	}, nil
}

// prefsSummary renders the pre-build recap of everything gathered so far.
func prefsSummary(prefs types.Preferences) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's the plan so far: %d days in %s", prefs.DurationDays, prefs.City)
	if prefs.Pace != "" {
		fmt.Fprintf(&b, " at a %s pace", prefs.Pace)
	}
	b.WriteString(".\n")

	var details []string
	if len(prefs.Interests) > 0 {
		details = append(details, "Focus: "+strings.Join(prefs.Interests, ", "))
	}
	if prefs.TravelMode != "" {
		details = append(details, fmt.Sprintf("Arriving by %s", prefs.TravelMode))
	}
	if prefs.StartDate != "" {
		details = append(details, "Starting "+prefs.StartDate)
	} else if len(prefs.TravelDates) > 0 {
		details = append(details, "Starting "+prefs.TravelDates[0])
	}
	if len(details) > 0 {
		b.WriteString(strings.Join(details, ". ") + ".\n")
	}
	b.WriteString("Shall I build the itinerary? Say yes, or tell me what to change.")
	return b.String()
}

// nextQuestion picks the highest-priority missing slot not already asked
// about; repeats are allowed only when everything has been asked once.
func nextQuestion(missing, asked []string) string {
	askedSet := make(map[string]bool, len(asked))
	for _, q := range asked {
		askedSet[q] = true
	}
	for _, slot := range missing {
		if q := clarifyingQuestions[slot]; q != "" && !askedSet[q] {
			return q
		}
	}
	if len(missing) > 0 {
		return clarifyingQuestions[missing[0]]
	}
	return ""
}

// buildItinerary runs the full planning pipeline and stores the result.
func (s *ServiceImpl) buildItinerary(ctx context.Context, sessionID string, prefs types.Preferences) (*TurnResult, error) {
	l := s.logger.With(slog.String("method", "buildItinerary"), slog.String("city", prefs.City))

	prefs.TravelDates = generateTravelDates(prefs)

	pois, center, err := s.pois.Discover(ctx, prefs.City, prefs.Interests)
	if err != nil {
		return nil, err
	}

	it, err := s.builder.Build(ctx, prefs, pois, center)
	if err != nil {
		return nil, err
	}

	// Weather is best-effort; the itinerary stands without it.
	var weatherSources []types.Source
	if len(it.TravelDates) > 0 && s.weather != nil {
		forecasts, werr := s.weather.ForecastForDates(ctx, center, it.TravelDates)
		if werr != nil {
			l.WarnContext(ctx, "Forecast unavailable", slog.Any("error", werr))
		} else if len(forecasts) > 0 {
			it.Weather = forecasts
			weatherSources = append(weatherSources, types.Source{
				Type: types.SourceTypeWeather,
				Name: "Open-Meteo forecast",
				URL:  "https://open-meteo.com/",
			})
		}
	}

	eval := s.evaluator.Evaluate(ctx, it)
	sources := assembleSources(it, weatherSources, s.opts.MaxSources)

	err = s.store.Update(ctx, sessionID, func(sess *types.Session) error {
		sess.Preferences = prefs
		sess.Itinerary = it
		sess.Evaluation = eval
		sess.Sources = sources
		sess.Confirmed = false
		sess.AwaitingConfirmation = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Get().ItinerariesBuilt.Add(ctx, 1)
	return &TurnResult{
		SessionID:  sessionID,
		Reply:      summarize(it, eval),
		Itinerary:  it,
		Evaluation: eval,
		Sources:    sources,
	}, nil
}

// generateTravelDates expands a start date into one date per trip day.
// Existing explicit dates win; with no start date at all, dates stay empty
// and weather is skipped.
func generateTravelDates(prefs types.Preferences) []string {
	if len(prefs.TravelDates) > 0 {
		return prefs.TravelDates
	}
	if prefs.StartDate == "" || prefs.DurationDays <= 0 {
		return nil
	}
	start, err := time.Parse("2006-01-02", prefs.StartDate)
	if err != nil {
		return nil
	}
	dates := make([]string, 0, prefs.DurationDays)
	for d := 0; d < prefs.DurationDays; d++ {
		dates = append(dates, start.AddDate(0, 0, d).Format("2006-01-02"))
	}
	return dates
}

// assembleSources collects one citation per distinct place, then weather,
// capped.
func assembleSources(it *types.Itinerary, extra []types.Source, limit int) []types.Source {
	seen := make(map[string]bool)
	var out []types.Source

	add := func(src types.Source) {
		if len(out) >= limit || src.URL == "" || seen[src.Key()] {
			return
		}
		seen[src.Key()] = true
		out = append(out, src)
	}

	for _, a := range it.AllActivities() {
		add(types.SourceForActivity(a))
	}
	for _, src := range extra {
		add(src)
	}
	return out
}

// summarize renders the three-line reply for a fresh itinerary.
func summarize(it *types.Itinerary, eval *types.Evaluation) string {
	activities := it.AllActivities()

	highlights := make([]string, 0, 3)
	for _, a := range activities {
		if len(highlights) == 3 {
			break
		}
		highlights = append(highlights, a.Activity)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's your %d-day %s itinerary with %d stops at a %s pace.\n",
		it.DurationDays, it.City, len(activities), it.Pace)
	if len(highlights) > 0 {
		fmt.Fprintf(&b, "Highlights: %s. Total travel is about %d minutes.\n",
			strings.Join(highlights, ", "), it.TotalTravelTime)
	} else {
		b.WriteString("I could not schedule any stops; try different interests.\n")
	}
	if eval != nil && eval.Feasibility != nil && !eval.Feasibility.IsFeasible {
		b.WriteString("Heads up: some days look overpacked. Say the word and I'll thin them out, or ask me anything about the plan.")
	} else {
		b.WriteString("Does this look good, or would you like any changes?")
	}
	return b.String()
}

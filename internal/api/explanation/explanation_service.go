package explanation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-trip-planner/internal/api/evaluation"
	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/api/tips"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Question categories the generator answers natively.
const (
	QuestionWhyPOI      = "why_poi"
	QuestionTiming      = "timing"
	QuestionFeasibility = "feasibility"
	QuestionWeather     = "weather"
	QuestionWhatIf      = "what_if_other"
	QuestionGeneral     = "general"
)

// Answer is an explanation with the sources that back it.
type Answer struct {
	Text     string         `json:"text"`
	Question string         `json:"question_type"`
	Sources  []types.Source `json:"sources,omitempty"`
}

// Service answers questions about a planned itinerary.
type Service interface {
	Explain(ctx context.Context, question string, sess *types.Session) (Answer, error)
}

// ServiceImpl answers the recurring question shapes deterministically from
// itinerary data, which keeps them grounded, and only reaches for the model
// on free-form questions.
type ServiceImpl struct {
	logger *slog.Logger
	ai     generativeAI.Generator
	tips   tips.Service
}

// NewServiceImpl creates the generator. tipsSvc may be nil; weather answers
// then skip guide suggestions.
func NewServiceImpl(ai generativeAI.Generator, tipsSvc tips.Service, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, ai: ai, tips: tipsSvc}
}

// Explain dispatches on question type.
func (s *ServiceImpl) Explain(ctx context.Context, question string, sess *types.Session) (Answer, error) {
	ctx, span := otel.Tracer("ExplanationService").Start(ctx, "Explain")
	defer span.End()

	if sess.Itinerary == nil {
		span.SetStatus(codes.Error, "no itinerary")
		return Answer{}, types.NewAppError(types.CodeValidation, "there is no itinerary to explain yet")
	}

	qType := classifyQuestion(question)
	span.SetAttributes(attribute.String("question.type", qType))

	var (
		answer Answer
		err    error
	)
	switch qType {
	case QuestionWhyPOI:
		answer, err = s.explainPOI(question, sess.Itinerary)
	case QuestionTiming:
		answer, err = s.explainTiming(question, sess.Itinerary)
	case QuestionFeasibility:
		answer = explainFeasibility(sess.Itinerary)
	case QuestionWeather:
		answer, err = s.explainWeather(ctx, question, sess.Itinerary)
	case QuestionWhatIf:
		answer, err = s.explainWhatIf(ctx, question, sess.Itinerary)
	default:
		answer, err = s.explainGeneral(ctx, question, sess.Itinerary)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "explanation failed")
		return Answer{}, err
	}

	answer.Question = qType
	span.SetStatus(codes.Ok, "explained")
	return answer, nil
}

// classifyQuestion is keyword dispatch; weather wins before why, since
// "why not move it if it rains" is a weather question.
func classifyQuestion(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "rain") || strings.Contains(q, "weather") || strings.Contains(q, "sunny") || strings.Contains(q, "forecast"):
		return QuestionWeather
	case strings.Contains(q, "feasible") || strings.Contains(q, "too much") || strings.Contains(q, "realistic") || strings.Contains(q, "fit") || strings.Contains(q, "doable"):
		return QuestionFeasibility
	case strings.Contains(q, "what if") || strings.Contains(q, "what about") || strings.Contains(q, "instead"):
		return QuestionWhatIf
	case strings.Contains(q, "why"):
		return QuestionWhyPOI
	case strings.Contains(q, "how long") || strings.Contains(q, "what time") || strings.Contains(q, "when ") || strings.HasSuffix(q, "when?"):
		return QuestionTiming
	default:
		return QuestionGeneral
	}
}

// findActivityInQuestion fuzzily locates the activity a question refers to,
// preferring the longest name that appears in the question.
func findActivityInQuestion(question string, it *types.Itinerary) (types.Activity, string, bool) {
	q := strings.ToLower(question)

	var (
		best    types.Activity
		bestDay string
		bestLen int
	)
	for _, key := range it.SortedDayKeys() {
		for _, a := range it.Days[key].Activities() {
			name := strings.ToLower(a.Activity)
			if name == "" {
				continue
			}
			matched := strings.Contains(q, name)
			if !matched {
				// Try the significant words: "the fort" should find Amber Fort.
				for _, w := range strings.Fields(name) {
					if len(w) > 3 && strings.Contains(q, w) {
						matched = true
						break
					}
				}
			}
			if matched && len(name) > bestLen {
				best, bestDay, bestLen = a, key, len(name)
			}
		}
	}
	return best, bestDay, bestLen > 0
}

func (s *ServiceImpl) explainPOI(question string, it *types.Itinerary) (Answer, error) {
	a, dayKey, found := findActivityInQuestion(question, it)
	if !found {
		return Answer{Text: "I could not tell which place you mean. Could you name the activity from the itinerary?"}, nil
	}

	dayNum, _ := types.DayNumber(dayKey)
	var b strings.Builder
	fmt.Fprintf(&b, "%s is scheduled on day %d at %s.", a.Activity, dayNum, a.TimeSlot)
	if a.Rating > 0 {
		fmt.Fprintf(&b, " It is rated %.1f, which put it near the top of the %s options.", a.Rating, a.Category)
	} else if a.Category != "" {
		fmt.Fprintf(&b, " It matched your %s interest.", a.Category)
	}
	if a.TravelTimeFromPrevious > 0 {
		fmt.Fprintf(&b, " It sits %d minutes from the previous stop, so it groups well with the rest of that day.", a.TravelTimeFromPrevious)
	}
	if a.Description != "" {
		fmt.Fprintf(&b, " %s", a.Description)
	}

	answer := Answer{Text: b.String()}
	if src := types.SourceForActivity(a); src.URL != "" {
		answer.Sources = append(answer.Sources, src)
	}
	return answer, nil
}

func (s *ServiceImpl) explainTiming(question string, it *types.Itinerary) (Answer, error) {
	a, dayKey, found := findActivityInQuestion(question, it)
	if !found {
		return Answer{Text: "I could not tell which place you mean. Could you name the activity from the itinerary?"}, nil
	}

	dayNum, _ := types.DayNumber(dayKey)
	text := fmt.Sprintf("%s is planned for day %d at %s, with about %d minutes there",
		a.Activity, dayNum, a.TimeSlot, a.DurationMinutes)
	if a.TravelTimeFromPrevious > 0 {
		text += fmt.Sprintf(" and %d minutes of travel to reach it", a.TravelTimeFromPrevious)
	}
	text += "."
	if a.OpeningHours != "" {
		text += fmt.Sprintf(" Listed opening hours: %s.", a.OpeningHours)
	}
	return Answer{Text: text}, nil
}

func explainFeasibility(it *types.Itinerary) Answer {
	result := evaluation.CheckFeasibility(it)

	var b strings.Builder
	if result.IsFeasible {
		fmt.Fprintf(&b, "Yes, the plan fits: every day stays inside the 09:00-22:00 window (feasibility score %.2f).", result.Score)
	} else {
		fmt.Fprintf(&b, "It is tight. The plan has %d problem(s):", len(result.Violations))
		for _, v := range result.Violations {
			fmt.Fprintf(&b, "\n- %s", v)
		}
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "\n- Note: %s", w)
	}
	fmt.Fprintf(&b, "\nTotal travel across the trip is %d minutes.", it.SumTravelTime())
	return Answer{Text: b.String()}
}

func (s *ServiceImpl) explainWeather(ctx context.Context, question string, it *types.Itinerary) (Answer, error) {
	if len(it.Weather) == 0 {
		return Answer{Text: "I have no forecast for the trip dates yet; weather is only available up to 16 days ahead."}, nil
	}

	var rainy, sunny []string
	for _, date := range it.TravelDates {
		f, found := it.Weather[date]
		if !found {
			continue
		}
		switch {
		case f.Rainy():
			rainy = append(rainy, fmt.Sprintf("%s (%s)", date, f.Summary()))
		case f.Sunny():
			sunny = append(sunny, fmt.Sprintf("%s (%s)", date, f.Summary()))
		}
	}

	var b strings.Builder
	if len(rainy) == 0 {
		b.WriteString("No rain is forecast for your dates.")
		if len(sunny) > 0 {
			fmt.Fprintf(&b, " Clear days: %s.", strings.Join(sunny, "; "))
		}
	} else {
		fmt.Fprintf(&b, "Rain is likely on: %s.", strings.Join(rainy, "; "))
		indoor := indoorActivities(it)
		if len(indoor) > 0 {
			fmt.Fprintf(&b, " Already-planned indoor options for those days: %s.", strings.Join(indoor, ", "))
		}
	}

	answer := Answer{Text: b.String()}
	if len(rainy) > 0 && s.tips != nil {
		guideTips, err := s.tips.IndoorAlternatives(ctx, it.City)
		if err != nil {
			s.logger.DebugContext(ctx, "Indoor alternatives lookup failed", slog.Any("error", err))
		} else if len(guideTips) > 0 {
			answer.Text += fmt.Sprintf(" The %s guide also suggests: %s.", it.City, guideTips[0].Title)
			answer.Sources = append(answer.Sources, tips.SourcesFromTips(guideTips)...)
		}
	}
	return answer, nil
}

// indoorActivities lists scheduled activities that work in bad weather.
func indoorActivities(it *types.Itinerary) []string {
	var out []string
	for _, a := range it.AllActivities() {
		indoor := a.Indoor != nil && *a.Indoor
		switch a.Category {
		case types.CategoryMuseum, types.CategoryShopping, types.CategoryRestaurant, types.CategoryNightlife:
			indoor = true
		}
		if indoor {
			out = append(out, a.Activity)
		}
	}
	return out
}

// explainWhatIf handles alternative-oriented questions ("what about the city
// palace instead?"): it retrieves guide material on the asked-about place and
// weighs it against the scheduled stops.
func (s *ServiceImpl) explainWhatIf(ctx context.Context, question string, it *types.Itinerary) (Answer, error) {
	var guide []tips.Tip
	if s.tips != nil {
		retrieved, err := s.tips.Retrieve(ctx, it.City, whatIfTopic(question), 3)
		if err != nil {
			s.logger.DebugContext(ctx, "Guide retrieval failed", slog.Any("error", err))
		} else {
			guide = retrieved
		}
	}

	if s.ai == nil {
		return whatIfFallback(it, guide), nil
	}

	var stops []string
	for _, key := range it.SortedDayKeys() {
		n, _ := types.DayNumber(key)
		for _, a := range it.Days[key].Activities() {
			stops = append(stops, fmt.Sprintf("day %d %s: %s", n, a.TimeSlot, a.Activity))
		}
	}
	var extracts []string
	for _, tip := range guide {
		extracts = append(extracts, fmt.Sprintf("%s: %s", tip.Title, tip.Extract))
	}
	guideSection := "no guide material found"
	if len(extracts) > 0 {
		guideSection = strings.Join(extracts, "\n")
	}

	prompt := fmt.Sprintf(`A traveler has this %d-day %s itinerary:
%s

Guide notes on the alternative they are asking about:
%s

They asked: %q

In 2-3 sentences, say whether the alternative is worth swapping in and what it would replace. Use ONLY the itinerary and guide notes above.`,
		it.DurationDays, it.City, strings.Join(stops, "\n"), guideSection, question)

	text, err := s.ai.GenerateText(ctx, prompt, generativeAI.GenerateOptions{
		Temperature: 0.4,
		MaxTokens:   400,
	})
	if err != nil {
		return Answer{}, types.NewAppError(types.CodeProviderUnavailable, "could not generate an answer right now").
			WithDetail("cause", err.Error())
	}
	return Answer{
		Text:    strings.TrimSpace(text),
		Sources: tips.SourcesFromTips(guide),
	}, nil
}

// whatIfTopic strips the question scaffolding down to the place or theme
// being asked about, for use as a retrieval query.
func whatIfTopic(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, prefix := range []string{"what if", "what about"} {
		q = strings.TrimSpace(strings.TrimPrefix(q, prefix))
	}
	q = strings.ReplaceAll(q, "instead of", " ")
	q = strings.ReplaceAll(q, "instead", " ")
	q = strings.Join(strings.Fields(q), " ")
	return strings.Trim(q, " ?.!")
}

// whatIfFallback answers without a model, from guide titles alone.
func whatIfFallback(it *types.Itinerary, guide []tips.Tip) Answer {
	if len(guide) == 0 {
		return Answer{Text: fmt.Sprintf("I could not find guide material on that alternative for %s. You can still ask me to swap it in and see how the plan changes.", it.City)}
	}
	titles := make([]string, 0, len(guide))
	for _, tip := range guide {
		titles = append(titles, tip.Title)
	}
	return Answer{
		Text: fmt.Sprintf("The %s guide covers that alternative: %s. Ask me to swap it in if you want it in the plan.",
			it.City, strings.Join(titles, ", ")),
		Sources: tips.SourcesFromTips(guide),
	}
}

func (s *ServiceImpl) explainGeneral(ctx context.Context, question string, it *types.Itinerary) (Answer, error) {
	if s.ai == nil {
		return Answer{Text: "I can answer questions about why a place was picked, timings, feasibility, and weather. Could you rephrase?"}, nil
	}

	var stops []string
	for _, key := range it.SortedDayKeys() {
		n, _ := types.DayNumber(key)
		for _, a := range it.Days[key].Activities() {
			stops = append(stops, fmt.Sprintf("day %d %s: %s", n, a.TimeSlot, a.Activity))
		}
	}

	prompt := fmt.Sprintf(`A traveler has this %d-day %s itinerary:
%s

They asked: %q

Answer in 2-3 sentences using ONLY the itinerary above. If the itinerary does not contain the answer, say so.`,
		it.DurationDays, it.City, strings.Join(stops, "\n"), question)

	text, err := s.ai.GenerateText(ctx, prompt, generativeAI.GenerateOptions{
		Temperature: 0.3,
		MaxTokens:   400,
	})
	if err != nil {
		return Answer{}, types.NewAppError(types.CodeProviderUnavailable, "could not generate an answer right now").
			WithDetail("cause", err.Error())
	}
	return Answer{Text: strings.TrimSpace(text)}, nil
}

package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Intent labels for a conversation turn.
const (
	IntentPlan     = "plan"
	IntentEdit     = "edit"
	IntentQuestion = "question"
	IntentConfirm  = "confirm"
	IntentReset    = "reset"
)

// Service classifies turns and extracts trip preferences from them.
type Service interface {
	// Classify labels a normalized utterance. hasItinerary widens the edit
	// and question intents, which only make sense once a plan exists.
	Classify(ctx context.Context, utterance string, hasItinerary bool) (string, error)

	// ExtractPreferences pulls trip slots out of an utterance.
	ExtractPreferences(ctx context.Context, utterance string) (types.Preferences, error)
}

// ServiceImpl routes both jobs to the fast model with deterministic keyword
// fallbacks, so the dialogue loop survives model outages.
type ServiceImpl struct {
	logger *slog.Logger
	ai     generativeAI.Generator
}

// NewServiceImpl creates the classifier. ai may be nil; rules then carry
// everything.
func NewServiceImpl(ai generativeAI.Generator, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, ai: ai}
}

const classifySystemPrompt = `You label travel-planning chat turns. Respond with exactly one word: plan, edit, question, confirm, or reset.`

// Classify implements the model-first, rules-second strategy.
func (s *ServiceImpl) Classify(ctx context.Context, utterance string, hasItinerary bool) (string, error) {
	l := s.logger.With(slog.String("method", "Classify"))

	if s.ai != nil {
		prompt := fmt.Sprintf("The user %s an itinerary. They said: %q\n\nLabel: plan (describing or refining a trip request), edit (changing the existing plan), question (asking about the plan, weather, or feasibility), confirm (accepting the plan), reset (starting over).",
			map[bool]string{true: "already has", false: "does not yet have"}[hasItinerary], utterance)

		raw, err := s.ai.GenerateText(ctx, prompt, generativeAI.GenerateOptions{
			Model:        fastModelOf(s.ai),
			SystemPrompt: classifySystemPrompt,
			Temperature:  0,
			MaxTokens:    10,
		})
		if err == nil {
			label := strings.ToLower(strings.TrimSpace(raw))
			switch label {
			case IntentPlan, IntentEdit, IntentQuestion, IntentConfirm, IntentReset:
				return label, nil
			}
			l.DebugContext(ctx, "Model returned unknown label, using rules", slog.String("label", label))
		} else {
			l.WarnContext(ctx, "Model classify failed, using rules", slog.Any("error", err))
		}
	}

	return classifyWithRules(utterance, hasItinerary), nil
}

// confirmPhrases accept the plan as-is.
var confirmPhrases = []string{
	"yes", "yep", "yeah", "sure", "confirm", "confirmed", "looks good",
	"sounds good", "perfect", "great, thanks", "that works", "book it", "let's go with",
}

var questionMarkers = []string{
	"why", "how long", "how far", "what if", "is it", "is this", "will it",
	"can i", "what's the weather", "whats the weather", "weather", "feasible", "rain",
}

var editMarkers = []string{
	"swap", "move", "remove", "delete", "drop", "replace", "add ", "change",
	"make it", "slower", "faster", "more relaxed", "another day", "less travel",
	"instead of", "shorter",
}

var resetMarkers = []string{
	"start over", "start again", "new trip", "different city", "forget", "reset",
}

func classifyWithRules(utterance string, hasItinerary bool) string {
	u := strings.ToLower(strings.TrimSpace(utterance))

	for _, m := range resetMarkers {
		if strings.Contains(u, m) {
			return IntentReset
		}
	}
	if hasItinerary {
		for _, p := range confirmPhrases {
			if u == p || strings.HasPrefix(u, p) {
				return IntentConfirm
			}
		}
		for _, m := range questionMarkers {
			if strings.Contains(u, m) {
				return IntentQuestion
			}
		}
		for _, m := range editMarkers {
			if strings.Contains(u, m) {
				return IntentEdit
			}
		}
	}
	return IntentPlan
}

// fastModelOf reports the fast model name when the generator exposes one.
func fastModelOf(g generativeAI.Generator) string {
	if fm, ok := g.(interface{ FastModel() string }); ok {
		return fm.FastModel()
	}
	return ""
}

const extractSystemPrompt = `You extract travel preferences from chat messages. Respond with ONLY a JSON object, no prose.`

// ExtractPreferences asks the fast model for slot values and merges in
// whatever the rule extractor finds, so obvious slots survive a bad model
// day.
func (s *ServiceImpl) ExtractPreferences(ctx context.Context, utterance string) (types.Preferences, error) {
	l := s.logger.With(slog.String("method", "ExtractPreferences"))

	ruled := extractWithRules(utterance)
	if s.ai == nil {
		return ruled, nil
	}

	prompt := fmt.Sprintf(`Extract trip preferences from: %q

JSON shape (omit unknown fields):
{
  "city": "<city name>",
  "duration_days": <int>,
  "interests": ["food","culture","shopping","nightlife","nature","beaches","religion","historical"],
  "pace": "relaxed|moderate|fast",
  "budget": "budget|mid-range|luxury",
  "travel_mode": "road|airplane|railway",
  "start_date": "YYYY-MM-DD",
  "end_date": "YYYY-MM-DD"
}`, utterance)

	raw, err := s.ai.GenerateText(ctx, prompt, generativeAI.GenerateOptions{
		Model:        fastModelOf(s.ai),
		SystemPrompt: extractSystemPrompt,
		Temperature:  0,
		MaxTokens:    300,
	})
	if err != nil {
		l.WarnContext(ctx, "Model extraction failed, keeping rule results", slog.Any("error", err))
		return ruled, nil
	}

	var extracted types.Preferences
	if err := json.Unmarshal([]byte(stripFences(raw)), &extracted); err != nil {
		l.WarnContext(ctx, "Model extraction unparseable, keeping rule results", slog.Any("error", err))
		return ruled, nil
	}

	// Model output wins conflicts; rules fill the gaps it missed.
	ruled.Merge(extracted)
	return ruled, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if start := strings.IndexByte(s, '{'); start > 0 {
		s = s[start:]
	}
	return s
}

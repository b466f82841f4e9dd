package edit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const parseSystemPrompt = `You convert itinerary edit commands into JSON. Respond with ONLY a JSON object, no prose.`

// Parse asks the fast model for a structured intent and falls back to
// keyword rules on any failure, so edits keep working when the model is
// down.
func (s *ServiceImpl) Parse(ctx context.Context, command string, it *types.Itinerary) (types.EditIntent, error) {
	l := s.logger.With(slog.String("method", "Parse"))

	if s.ai != nil {
		intent, err := s.parseWithModel(ctx, command, it)
		if err == nil {
			return intent, nil
		}
		l.WarnContext(ctx, "Model parse failed, using rules", slog.Any("error", err))
	}

	intent, ok := parseWithRules(command)
	if !ok {
		return types.EditIntent{}, types.NewAppError(types.CodeEditValidation,
			"could not understand the edit; try something like 'swap day 1 and day 2' or 'remove the museum'")
	}
	return intent, nil
}

func (s *ServiceImpl) parseWithModel(ctx context.Context, command string, it *types.Itinerary) (types.EditIntent, error) {
	prompt := fmt.Sprintf(`The user has a %d-day itinerary for %s and said: %q

Classify the edit into this JSON shape (omit fields that do not apply):
{
  "edit_type": "CHANGE_PACE|SWAP_ACTIVITY|SWAP_DAYS|MOVE_TIME_BLOCK|ADD_ACTIVITY|ADD_DAY|REMOVE_ACTIVITY|REDUCE_TRAVEL",
  "target_day": <int>, "source_day": <int>,
  "target_time_block": "morning|afternoon|evening", "source_time_block": "morning|afternoon|evening",
  "target_activity": "<name>", "new_activity_name": "<name>", "place_name": "<name>",
  "new_pace": "relaxed|moderate|fast",
  "regenerate_vacated": <bool>
}`, it.DurationDays, it.City, command)

	raw, err := s.ai.GenerateText(ctx, prompt, generativeAI.GenerateOptions{
		Model:        fastModelOf(s.ai),
		SystemPrompt: parseSystemPrompt,
		Temperature:  0.1,
		MaxTokens:    300,
	})
	if err != nil {
		return types.EditIntent{}, err
	}

	payload := stripFences(raw)
	var intent types.EditIntent
	if err := json.Unmarshal([]byte(payload), &intent); err != nil {
		return types.EditIntent{}, fmt.Errorf("decoding intent: %w", err)
	}
	if intent.EditType == "" {
		return types.EditIntent{}, fmt.Errorf("model returned no edit_type")
	}
	return intent, nil
}

// fastModelOf reports the fast model name when the generator exposes one.
func fastModelOf(g generativeAI.Generator) string {
	if fm, ok := g.(interface{ FastModel() string }); ok {
		return fm.FastModel()
	}
	return ""
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
	if end := strings.LastIndexByte(s, '}'); end >= 0 && end < len(s)-1 {
		s = s[:end+1]
	}
	return s
}

var (
	swapDaysRe  = regexp.MustCompile(`(?i)swap\s+days?\s+(\d+)\s+(?:and|with|&)\s+(?:day\s+)?(\d+)`)
	moveBlockRe = regexp.MustCompile(`(?i)move\s+(?:day\s+(\d+)\s+)?(morning|afternoon|evening)\s+to\s+(?:day\s+(\d+)\s+)?(morning|afternoon|evening)`)
	removeRe    = regexp.MustCompile(`(?i)(?:remove|delete|drop|skip)\s+(?:the\s+)?(.+?)(?:\s+from\s+day\s+(\d+))?\s*$`)
	replaceRe   = regexp.MustCompile(`(?i)(?:replace|swap)\s+(?:the\s+)?(.+?)\s+(?:with|for)\s+(?:the\s+)?(.+?)\s*$`)
	addRe       = regexp.MustCompile(`(?i)add\s+(?:the\s+)?(.+?)(?:\s+(?:to|on)\s+day\s+(\d+))?(?:\s+in\s+the\s+(morning|afternoon|evening))?\s*$`)
)

// parseWithRules is the deterministic fallback classifier.
func parseWithRules(command string) (types.EditIntent, bool) {
	cmd := strings.ToLower(strings.TrimSpace(command))

	if m := swapDaysRe.FindStringSubmatch(cmd); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		return types.EditIntent{EditType: types.EditSwapDays, SourceDay: a, TargetDay: b}, true
	}

	if m := moveBlockRe.FindStringSubmatch(cmd); m != nil {
		intent := types.EditIntent{
			EditType:        types.EditMoveTimeBlock,
			SourceTimeBlock: m[2],
			TargetTimeBlock: m[4],
		}
		if m[1] != "" {
			intent.SourceDay, _ = strconv.Atoi(m[1])
		} else {
			intent.SourceDay = 1
		}
		if m[3] != "" {
			intent.TargetDay, _ = strconv.Atoi(m[3])
		} else {
			intent.TargetDay = intent.SourceDay
		}
		return intent, true
	}

	if pace, ok := paceFromCommand(cmd); ok {
		return types.EditIntent{EditType: types.EditChangePace, NewPace: pace}, true
	}

	if strings.Contains(cmd, "travel") &&
		(strings.Contains(cmd, "less") || strings.Contains(cmd, "reduce") || strings.Contains(cmd, "too much") || strings.Contains(cmd, "shorter")) {
		return types.EditIntent{EditType: types.EditReduceTravel}, true
	}

	if strings.Contains(cmd, "another day") || strings.Contains(cmd, "one more day") ||
		strings.Contains(cmd, "add a day") || strings.Contains(cmd, "extend") {
		return types.EditIntent{EditType: types.EditAddDay}, true
	}

	if m := replaceRe.FindStringSubmatch(cmd); m != nil {
		return types.EditIntent{
			EditType:        types.EditSwapActivity,
			TargetActivity:  strings.TrimSpace(m[1]),
			NewActivityName: strings.TrimSpace(m[2]),
		}, true
	}

	if m := removeRe.FindStringSubmatch(cmd); m != nil {
		intent := types.EditIntent{EditType: types.EditRemoveActiv, TargetActivity: strings.TrimSpace(m[1])}
		if m[2] != "" {
			intent.TargetDay, _ = strconv.Atoi(m[2])
		}
		return intent, true
	}

	if m := addRe.FindStringSubmatch(cmd); m != nil {
		intent := types.EditIntent{EditType: types.EditAddActivity, PlaceName: strings.TrimSpace(m[1])}
		if m[2] != "" {
			intent.TargetDay, _ = strconv.Atoi(m[2])
		}
		if m[3] != "" {
			intent.TargetTimeBlock = m[3]
		}
		return intent, true
	}

	return types.EditIntent{}, false
}

func paceFromCommand(cmd string) (types.Pace, bool) {
	switch {
	case strings.Contains(cmd, "relax") || strings.Contains(cmd, "slower") ||
		strings.Contains(cmd, "slow down") || strings.Contains(cmd, "easier"):
		return types.PaceRelaxed, true
	case strings.Contains(cmd, "faster") || strings.Contains(cmd, "packed") ||
		strings.Contains(cmd, "more activities") || strings.Contains(cmd, "busier"):
		return types.PaceFast, true
	case strings.Contains(cmd, "moderate pace") || strings.Contains(cmd, "medium pace"):
		return types.PaceModerate, true
	}
	return "", false
}

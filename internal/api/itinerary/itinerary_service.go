package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/api/routing"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service builds day-blocked itineraries from a candidate POI pool.
type Service interface {
	// Build asks the model to select and schedule POIs, then enriches the
	// result with authoritative POI data and travel times. center is the
	// trip's starting coordinate, where the first leg begins.
	Build(ctx context.Context, prefs types.Preferences, pois []types.POI, center types.Location) (*types.Itinerary, error)

	// ApplyTravelTimes recomputes every travel_time_from_previous and the
	// total, in place. Edits that move activities call this to stay honest.
	ApplyTravelTimes(ctx context.Context, it *types.Itinerary)
}

// ServiceImpl drives the quality model for selection and the routing service
// for travel times. The model proposes; the POI pool stays authoritative for
// locations, categories, durations, and identifiers.
type ServiceImpl struct {
	logger  *slog.Logger
	ai      generativeAI.Generator
	routing routing.Service
}

// NewServiceImpl creates the builder.
func NewServiceImpl(ai generativeAI.Generator, routingSvc routing.Service, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, ai: ai, routing: routingSvc}
}

// Build implements the three-pass flow: select, enrich, time.
func (s *ServiceImpl) Build(ctx context.Context, prefs types.Preferences, pois []types.POI, center types.Location) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Build", trace.WithAttributes(
		attribute.String("city", prefs.City),
		attribute.Int("duration_days", prefs.DurationDays),
		attribute.Int("poi.count", len(pois)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Build"), slog.String("city", prefs.City))

	if prefs.DurationDays <= 0 {
		err := types.NewAppError(types.CodeValidation, "duration_days must be positive")
		span.SetStatus(codes.Error, "invalid duration")
		return nil, err
	}
	pace := prefs.Pace
	if _, _, ok := pace.ActivityRange(); !ok {
		pace = types.PaceModerate
	}

	it := &types.Itinerary{
		City:          prefs.City,
		DurationDays:  prefs.DurationDays,
		Pace:          pace,
		Interests:     append([]string(nil), prefs.Interests...),
		Budget:        prefs.Budget,
		TravelDates:   append([]string(nil), prefs.TravelDates...),
		TravelMode:    prefs.TravelMode,
		StartingPoint: startingPoint(prefs),
	}
	if !center.IsZero() && center.Valid() {
		it.StartingLoc = &center
	}

	raw, err := s.ai.GenerateText(ctx, selectionPrompt(prefs, pace, pois), generativeAI.GenerateOptions{
		SystemPrompt: selectionSystemPrompt,
		Temperature:  0.7,
		MaxTokens:    3000,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, types.NewAppError(types.CodeGenerationFailed, "itinerary generation failed").
			WithDetail("cause", err.Error())
	}

	days, parseErr := parseDays(raw, prefs.DurationDays)
	if parseErr != nil {
		l.WarnContext(ctx, "Model output unparseable, building empty skeleton", slog.Any("error", parseErr))
		days = emptyDays(prefs.DurationDays)
	}
	for n, d := range days {
		it.SetDay(n, d)
	}
	for n := 1; n <= prefs.DurationDays; n++ {
		if it.Day(n) == nil {
			it.SetDay(n, &types.DayItinerary{})
		}
	}

	enrichItinerary(it, pois)
	s.ApplyTravelTimes(ctx, it)

	l.InfoContext(ctx, "Itinerary built",
		slog.Int("days", len(it.Days)),
		slog.Int("activities", len(it.AllActivities())),
		slog.Int("total_travel_time", it.TotalTravelTime))
	span.SetStatus(codes.Ok, "built")
	return it, nil
}

// startingPoint names where day legs begin; the arrival point implied by the
// travel mode, falling back to a generic city center.
func startingPoint(prefs types.Preferences) string {
	switch prefs.TravelMode {
	case types.TravelModeAirplane:
		return prefs.City + " Airport"
	case types.TravelModeRailway:
		return prefs.City + " Railway Station"
	case types.TravelModeRoad:
		return prefs.City + " city center"
	}
	return prefs.City + " city center"
}

// parseDays extracts day_N blocks from model output, tolerating fenced code
// blocks and leading prose.
func parseDays(raw string, durationDays int) (map[int]*types.DayItinerary, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, fmt.Errorf("decoding model output: %w", err)
	}

	days := make(map[int]*types.DayItinerary)
	for key, rawDay := range fields {
		n, ok := types.DayNumber(key)
		if !ok || n > durationDays {
			continue
		}
		var day types.DayItinerary
		if err := json.Unmarshal(rawDay, &day); err != nil {
			continue
		}
		days[n] = &day
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("model output held no valid day blocks")
	}
	return days, nil
}

// extractJSON returns the first top-level JSON object in s, stripping
// markdown fences.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func emptyDays(durationDays int) map[int]*types.DayItinerary {
	days := make(map[int]*types.DayItinerary, durationDays)
	for n := 1; n <= durationDays; n++ {
		days[n] = &types.DayItinerary{}
	}
	return days
}

// ApplyTravelTimes walks the whole trip as one chronological sequence,
// across blocks and days alike. The first leg starts at the itinerary's
// starting coordinate; without one it gets a fixed allowance.
func (s *ServiceImpl) ApplyTravelTimes(ctx context.Context, it *types.Itinerary) {
	const firstLegMinutes = 10

	mode := intraCityMode(it.TravelMode)
	total := 0
	prev := it.StartingLoc
	first := true

	for _, key := range it.SortedDayKeys() {
		day := it.Days[key]
		for _, blockName := range types.TimeBlockNames {
			block := day.Block(blockName)
			for i := range block.Activities {
				a := &block.Activities[i]
				switch {
				case prev != nil && a.Location != nil:
					a.TravelTimeFromPrevious = s.routing.TravelTime(ctx, *prev, *a.Location, mode)
				case first:
					a.TravelTimeFromPrevious = firstLegMinutes
				default:
					a.TravelTimeFromPrevious = 0
				}
				first = false
				if a.Location != nil {
					prev = a.Location
				}
				total += a.TravelTimeFromPrevious
			}
		}
	}
	it.TotalTravelTime = total
}

// intraCityMode derives the within-city movement mode from how the user
// arrives. Only an explicit walking preference survives; everything else is
// driving, since arrival modes say nothing about getting around town.
func intraCityMode(travelMode string) string {
	if strings.EqualFold(strings.TrimSpace(travelMode), "walking") {
		return routing.ModeWalking
	}
	return routing.ModeDriving
}

package edit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/api/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Pace-change policies.
const (
	PacePolicyPassthrough = "passthrough"
	PacePolicyRebuild     = "rebuild"
)

// Service parses and applies natural-language itinerary edits.
type Service interface {
	// Parse turns a command into a structured edit intent.
	Parse(ctx context.Context, command string, it *types.Itinerary) (types.EditIntent, error)

	// Apply returns a new itinerary with the edit applied. The input
	// itinerary is never mutated. pool supplies candidate POIs for edits
	// that introduce activities.
	Apply(ctx context.Context, it *types.Itinerary, intent types.EditIntent, pool []types.POI) (*types.Itinerary, error)
}

// ServiceImpl parses with the fast model, falling back to keyword rules when
// the model is unavailable or returns garbage, and applies edits on a deep
// copy so evaluation can diff before against after.
type ServiceImpl struct {
	logger     *slog.Logger
	ai         generativeAI.Generator
	builder    itinerary.Service
	pacePolicy string
}

// NewServiceImpl creates the edit engine. pacePolicy is passthrough or
// rebuild.
func NewServiceImpl(ai generativeAI.Generator, builder itinerary.Service, pacePolicy string, logger *slog.Logger) *ServiceImpl {
	if pacePolicy != PacePolicyRebuild {
		pacePolicy = PacePolicyPassthrough
	}
	return &ServiceImpl{logger: logger, ai: ai, builder: builder, pacePolicy: pacePolicy}
}

// Apply dispatches on the edit type. Every path that moves or adds
// activities ends with a full travel-time recompute.
func (s *ServiceImpl) Apply(ctx context.Context, it *types.Itinerary, intent types.EditIntent, pool []types.POI) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("EditService").Start(ctx, "Apply", trace.WithAttributes(
		attribute.String("edit_type", string(intent.EditType)),
	))
	defer span.End()

	out := it.Clone()

	var err error
	switch intent.EditType {
	case types.EditSwapDays:
		err = applySwapDays(out, intent)
	case types.EditMoveTimeBlock:
		err = s.applyMoveTimeBlock(ctx, out, intent, pool)
	case types.EditChangePace:
		err = s.applyChangePace(out, intent)
	case types.EditSwapActivity:
		err = applySwapActivity(out, intent, pool)
	case types.EditAddActivity:
		err = applyAddActivity(out, intent, pool)
	case types.EditAddDay:
		err = s.applyAddDay(ctx, out, intent, pool)
	case types.EditRemoveActiv:
		err = applyRemoveActivity(out, intent)
	case types.EditReduceTravel:
		// Nothing moves; the recompute below refreshes every leg so the
		// totals reflect current routing data.
	default:
		err = types.NewAppError(types.CodeEditValidation, fmt.Sprintf("unsupported edit type %q", intent.EditType))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "edit rejected")
		return nil, err
	}

	s.builder.ApplyTravelTimes(ctx, out)
	span.SetStatus(codes.Ok, "applied")
	return out, nil
}

func applySwapDays(it *types.Itinerary, intent types.EditIntent) error {
	a, b := intent.SourceDay, intent.TargetDay
	if a == 0 || b == 0 || a == b {
		return types.NewAppError(types.CodeEditValidation, "swapping days needs two distinct day numbers")
	}
	dayA, dayB := it.Day(a), it.Day(b)
	if dayA == nil || dayB == nil {
		return types.NewAppError(types.CodeEditValidation, fmt.Sprintf("day %d or %d does not exist", a, b)).
			WithDetail("duration_days", it.DurationDays)
	}
	it.SetDay(a, dayB)
	it.SetDay(b, dayA)
	return nil
}

// applyMoveTimeBlock overwrites the target block with a copy of the source.
// The source keeps its activities unless regenerate_vacated asks for a fresh
// plan in their place.
func (s *ServiceImpl) applyMoveTimeBlock(ctx context.Context, it *types.Itinerary, intent types.EditIntent, pool []types.POI) error {
	srcDay := it.Day(intent.SourceDay)
	if srcDay == nil {
		return types.NewAppError(types.CodeEditValidation, fmt.Sprintf("day %d does not exist", intent.SourceDay))
	}
	src := srcDay.Block(intent.SourceTimeBlock)
	if src == nil {
		return types.NewAppError(types.CodeEditValidation, fmt.Sprintf("unknown time block %q", intent.SourceTimeBlock))
	}

	targetDayNum := intent.TargetDay
	if targetDayNum == 0 {
		targetDayNum = intent.SourceDay
	}
	dstDay := it.Day(targetDayNum)
	if dstDay == nil {
		return types.NewAppError(types.CodeEditValidation, fmt.Sprintf("day %d does not exist", targetDayNum))
	}
	dst := dstDay.Block(intent.TargetTimeBlock)
	if dst == nil {
		return types.NewAppError(types.CodeEditValidation, fmt.Sprintf("unknown time block %q", intent.TargetTimeBlock))
	}

	moved := make([]types.Activity, 0, len(src.Activities))
	for _, a := range src.Activities {
		moved = append(moved, a.Clone())
	}
	dst.Activities = moved
	assignBlockTimes(dst, intent.TargetTimeBlock)

	if intent.RegenerateVacated {
		src.Activities = nil
		s.regenerateBlock(ctx, it, src, intent.SourceTimeBlock, pool)
	}
	return nil
}

func (s *ServiceImpl) applyChangePace(it *types.Itinerary, intent types.EditIntent) error {
	if _, _, ok := intent.NewPace.ActivityRange(); !ok {
		return types.NewAppError(types.CodeEditValidation, fmt.Sprintf("unknown pace %q", intent.NewPace))
	}
	it.Pace = intent.NewPace

	if s.pacePolicy == PacePolicyRebuild {
		_, maxAct, _ := intent.NewPace.ActivityRange()
		for _, key := range it.SortedDayKeys() {
			trimDayToCount(it.Days[key], maxAct)
		}
	}
	return nil
}

// trimDayToCount drops activities from the end of the day until it holds at
// most n, preserving earlier blocks.
func trimDayToCount(day *types.DayItinerary, n int) {
	blocks := []*types.TimeBlock{&day.Evening, &day.Afternoon, &day.Morning}
	over := len(day.Activities()) - n
	for _, block := range blocks {
		for over > 0 && len(block.Activities) > 0 {
			block.Activities = block.Activities[:len(block.Activities)-1]
			over--
		}
	}
}

func applySwapActivity(it *types.Itinerary, intent types.EditIntent, pool []types.POI) error {
	day, block, idx := findActivity(it, intent.TargetDay, intent.TargetActivity)
	if block == nil {
		return types.NewAppError(types.CodeEditValidation,
			fmt.Sprintf("activity %q not found", intent.TargetActivity))
	}
	_ = day

	replacement := pickReplacement(it, intent.NewActivityName, block.Activities[idx].Category, pool)
	if replacement == nil {
		return types.NewAppError(types.CodeEditValidation, "no replacement activity available").
			WithDetail("requested", intent.NewActivityName)
	}

	old := block.Activities[idx]
	block.Activities[idx] = activityFromPOI(*replacement, old.TimeSlot)
	return nil
}

func applyAddActivity(it *types.Itinerary, intent types.EditIntent, pool []types.POI) error {
	dayNum := intent.TargetDay
	if dayNum == 0 {
		dayNum = 1
	}
	day := it.Day(dayNum)
	if day == nil {
		return types.NewAppError(types.CodeEditValidation, fmt.Sprintf("day %d does not exist", dayNum))
	}

	poi := findPOIByName(pool, intent.PlaceName, usedSourceIDs(it))
	if poi == nil {
		return types.NewAppError(types.CodeEditValidation,
			fmt.Sprintf("no known place matches %q", intent.PlaceName)).WithDetail("place", intent.PlaceName)
	}

	blockName := intent.TargetTimeBlock
	if blockName == "" {
		blockName = lightestBlock(day)
	}
	block := day.Block(blockName)
	if block == nil {
		return types.NewAppError(types.CodeEditValidation, fmt.Sprintf("unknown time block %q", blockName))
	}
	block.Activities = append(block.Activities, activityFromPOI(*poi, ""))
	assignBlockTimes(block, blockName)
	return nil
}

// applyAddDay appends a freshly planned day. The day is built through the
// full builder pipeline over the unscheduled remainder of the pool, with a
// named place leading the candidates when one was asked for; the trip's
// travel dates grow by one so they keep matching the duration.
func (s *ServiceImpl) applyAddDay(ctx context.Context, it *types.Itinerary, intent types.EditIntent, pool []types.POI) error {
	n := it.DurationDays + 1

	var preferred *types.POI
	if intent.PlaceName != "" {
		preferred = findPOIByName(pool, intent.PlaceName, usedSourceIDs(it))
	}

	day, err := s.buildSingleDay(ctx, it, pool, preferred)
	if err != nil || day == nil || len(day.Activities()) == 0 {
		if err != nil {
			s.logger.WarnContext(ctx, "Day rebuild failed, filling from pool", slog.Any("error", err))
		}
		day = fallbackDay(it, pool, preferred)
	}

	it.SetDay(n, day)
	it.DurationDays = n
	if len(it.TravelDates) > 0 {
		if next, ok := nextTravelDate(it.TravelDates[len(it.TravelDates)-1]); ok {
			it.TravelDates = append(it.TravelDates, next)
		}
	}
	return nil
}

// buildSingleDay runs the itinerary builder for a one-day plan over the
// pool POIs not yet scheduled anywhere in the trip.
func (s *ServiceImpl) buildSingleDay(ctx context.Context, it *types.Itinerary, pool []types.POI, preferred *types.POI) (*types.DayItinerary, error) {
	if s.builder == nil {
		return nil, fmt.Errorf("no builder configured")
	}

	used := usedSourceIDs(it)
	candidates := make([]types.POI, 0, len(pool)+1)
	if preferred != nil {
		candidates = append(candidates, *preferred)
		used[preferred.SourceID] = true
	}
	for _, p := range pool {
		if !used[p.SourceID] {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no unscheduled candidates left")
	}

	prefs := types.Preferences{
		City:         it.City,
		DurationDays: 1,
		Interests:    append([]string(nil), it.Interests...),
		Pace:         it.Pace,
		TravelMode:   it.TravelMode,
	}
	built, err := s.builder.Build(ctx, prefs, candidates, tripOrigin(it))
	if err != nil {
		return nil, err
	}
	return built.Day(1), nil
}

// regenerateBlock replans one vacated block through the builder, keeping the
// nearest-pool fill as the outage fallback.
func (s *ServiceImpl) regenerateBlock(ctx context.Context, it *types.Itinerary, block *types.TimeBlock, blockName string, pool []types.POI) {
	day, err := s.buildSingleDay(ctx, it, pool, nil)
	if err == nil && day != nil {
		if rebuilt := day.Block(blockName); rebuilt != nil && len(rebuilt.Activities) > 0 {
			block.Activities = rebuilt.Activities
		}
	} else if err != nil {
		s.logger.WarnContext(ctx, "Block rebuild failed, filling from pool", slog.Any("error", err))
	}
	if len(block.Activities) == 0 {
		fillBlock(block, blockName, it, pool, 1)
	}
	assignBlockTimes(block, blockName)
}

// fallbackDay assembles a day straight from the pool, one stop per block up
// to the pace minimum.
func fallbackDay(it *types.Itinerary, pool []types.POI, preferred *types.POI) *types.DayItinerary {
	day := &types.DayItinerary{}
	used := usedSourceIDs(it)
	if preferred != nil {
		day.Morning.Activities = append(day.Morning.Activities, activityFromPOI(*preferred, ""))
		used[preferred.SourceID] = true
	}

	minAct, _, ok := it.Pace.ActivityRange()
	if !ok {
		minAct = 3
	}
	for _, blockName := range types.TimeBlockNames {
		block := day.Block(blockName)
		if len(day.Activities()) >= minAct {
			break
		}
		if len(block.Activities) == 0 {
			for i := range pool {
				if used[pool[i].SourceID] {
					continue
				}
				block.Activities = append(block.Activities, activityFromPOI(pool[i], ""))
				used[pool[i].SourceID] = true
				break
			}
		}
	}
	for _, blockName := range types.TimeBlockNames {
		assignBlockTimes(day.Block(blockName), blockName)
	}
	return day
}

// tripOrigin is where rebuilt legs start: the stored starting coordinate, or
// the first located stop when the itinerary predates one.
func tripOrigin(it *types.Itinerary) types.Location {
	if it.StartingLoc != nil {
		return *it.StartingLoc
	}
	for _, a := range it.AllActivities() {
		if a.Location != nil {
			return *a.Location
		}
	}
	return types.Location{}
}

// nextTravelDate returns the calendar day after a YYYY-MM-DD date.
func nextTravelDate(date string) (string, bool) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", false
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02"), true
}

func applyRemoveActivity(it *types.Itinerary, intent types.EditIntent) error {
	_, block, idx := findActivity(it, intent.TargetDay, intent.TargetActivity)
	if block == nil {
		return types.NewAppError(types.CodeEditValidation,
			fmt.Sprintf("activity %q not found", intent.TargetActivity))
	}
	block.Activities = append(block.Activities[:idx], block.Activities[idx+1:]...)
	return nil
}

// findActivity locates an activity by fuzzy name, optionally narrowed to one
// day. It returns the owning day, block, and index, or nils.
func findActivity(it *types.Itinerary, dayNum int, name string) (*types.DayItinerary, *types.TimeBlock, int) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil, nil, 0
	}
	for _, key := range it.SortedDayKeys() {
		n, _ := types.DayNumber(key)
		if dayNum != 0 && n != dayNum {
			continue
		}
		day := it.Days[key]
		for _, blockName := range types.TimeBlockNames {
			block := day.Block(blockName)
			for i, a := range block.Activities {
				have := strings.ToLower(a.Activity)
				if strings.Contains(have, want) || strings.Contains(want, have) {
					return day, block, i
				}
			}
		}
	}
	return nil, nil, 0
}

// usedSourceIDs collects the source ids already scheduled.
func usedSourceIDs(it *types.Itinerary) map[string]bool {
	used := make(map[string]bool)
	for _, a := range it.AllActivities() {
		if a.SourceID != "" {
			used[a.SourceID] = true
		}
	}
	return used
}

// findPOIByName matches pool POIs by name prefix, then containment, skipping
// already-scheduled places.
func findPOIByName(pool []types.POI, name string, used map[string]bool) *types.POI {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil
	}
	for i := range pool {
		if used[pool[i].SourceID] {
			continue
		}
		if strings.HasPrefix(strings.ToLower(pool[i].Name), want) {
			return &pool[i]
		}
	}
	for i := range pool {
		if used[pool[i].SourceID] {
			continue
		}
		have := strings.ToLower(pool[i].Name)
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return &pool[i]
		}
	}
	return nil
}

// pickReplacement prefers the named place, then any unscheduled POI of the
// same category.
func pickReplacement(it *types.Itinerary, name string, category types.Category, pool []types.POI) *types.POI {
	used := usedSourceIDs(it)
	if poi := findPOIByName(pool, name, used); poi != nil {
		return poi
	}
	for i := range pool {
		if !used[pool[i].SourceID] && pool[i].Category == category {
			return &pool[i]
		}
	}
	return nil
}

// fillBlock schedules up to n unscheduled pool POIs into an empty block.
func fillBlock(block *types.TimeBlock, blockName string, it *types.Itinerary, pool []types.POI, n int) {
	used := usedSourceIDs(it)
	for i := range pool {
		if n <= 0 {
			break
		}
		if used[pool[i].SourceID] {
			continue
		}
		block.Activities = append(block.Activities, activityFromPOI(pool[i], ""))
		used[pool[i].SourceID] = true
		n--
	}
	assignBlockTimes(block, blockName)
}

func activityFromPOI(p types.POI, timeSlot string) types.Activity {
	loc := p.Location
	return types.Activity{
		Activity:        p.Name,
		TimeSlot:        timeSlot,
		DurationMinutes: p.DurationMinutes,
		Location:        &loc,
		Category:        p.Category,
		SourceID:        p.SourceID,
		DataSource:      p.DataSource,
		Rating:          p.Rating,
		Description:     p.Description,
		OpeningHours:    p.OpeningHours,
	}
}

// lightestBlock returns the block with the fewest activities, earliest wins
// ties.
func lightestBlock(day *types.DayItinerary) string {
	best := types.TimeBlockNames[0]
	bestCount := len(day.Block(best).Activities)
	for _, name := range types.TimeBlockNames[1:] {
		if c := len(day.Block(name).Activities); c < bestCount {
			best, bestCount = name, c
		}
	}
	return best
}

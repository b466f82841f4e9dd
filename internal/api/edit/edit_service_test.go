package edit

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateText(ctx context.Context, prompt string, opts generativeAI.GenerateOptions) (string, error) {
	args := m.Called(ctx, prompt, opts)
	return args.String(0), args.Error(1)
}

type MockBuilder struct {
	mock.Mock
}

func (m *MockBuilder) Build(ctx context.Context, prefs types.Preferences, pois []types.POI, center types.Location) (*types.Itinerary, error) {
	args := m.Called(ctx, prefs, pois, center)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

func (m *MockBuilder) ApplyTravelTimes(ctx context.Context, it *types.Itinerary) {
	m.Called(ctx, it)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func loc(lat, lon float64) *types.Location {
	return &types.Location{Lat: lat, Lon: lon}
}

func twoDayItinerary() *types.Itinerary {
	it := &types.Itinerary{
		City: "Jaipur", DurationDays: 2, Pace: types.PaceModerate,
		TravelDates: []string{"2026-09-01", "2026-09-02"},
	}
	it.SetDay(1, &types.DayItinerary{
		Morning: types.TimeBlock{Activities: []types.Activity{
			{Activity: "Hawa Mahal", TimeSlot: "09:00 AM", DurationMinutes: 90, Location: loc(26.9239, 75.8267), Category: types.CategoryHistorical, SourceID: "place_id:hawa", DataSource: types.DataSourceGooglePlaces},
		}},
		Afternoon: types.TimeBlock{Activities: []types.Activity{
			{Activity: "City Palace", TimeSlot: "01:00 PM", DurationMinutes: 120, Location: loc(26.9258, 75.8237), Category: types.CategoryHistorical, SourceID: "place_id:palace", DataSource: types.DataSourceGooglePlaces},
		}},
	})
	it.SetDay(2, &types.DayItinerary{
		Morning: types.TimeBlock{Activities: []types.Activity{
			{Activity: "Amber Fort", TimeSlot: "09:00 AM", DurationMinutes: 120, Location: loc(26.9855, 75.8513), Category: types.CategoryHistorical, SourceID: "way:amber", DataSource: types.DataSourceOpenStreetMap},
		}},
	})
	return it
}

func oneDayPlan(name, sourceID string) *types.Itinerary {
	it := &types.Itinerary{City: "Jaipur", DurationDays: 1, Pace: types.PaceModerate}
	it.SetDay(1, &types.DayItinerary{
		Morning: types.TimeBlock{Activities: []types.Activity{
			{Activity: name, TimeSlot: "09:00 AM", DurationMinutes: 90, Category: types.CategoryHistorical, SourceID: sourceID},
		}},
	})
	return it
}

var editPool = []types.POI{
	{Name: "Jantar Mantar", Category: types.CategoryHistorical, Location: types.Location{Lat: 26.9247, Lon: 75.8246},
		DurationMinutes: 90, SourceID: "place_id:jantar", DataSource: types.DataSourceGooglePlaces},
	{Name: "Albert Hall Museum", Category: types.CategoryMuseum, Location: types.Location{Lat: 26.9117, Lon: 75.8196},
		DurationMinutes: 120, SourceID: "place_id:albert", DataSource: types.DataSourceGooglePlaces},
}

func newService(t *testing.T) (*ServiceImpl, *MockBuilder) {
	t.Helper()
	builder := new(MockBuilder)
	builder.On("ApplyTravelTimes", mock.Anything, mock.Anything).Return()
	return NewServiceImpl(nil, builder, PacePolicyPassthrough, testLogger()), builder
}

func TestApply_SwapDays(t *testing.T) {
	svc, builder := newService(t)
	before := twoDayItinerary()

	after, err := svc.Apply(context.Background(), before, types.EditIntent{
		EditType: types.EditSwapDays, SourceDay: 1, TargetDay: 2,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Amber Fort", after.Day(1).Morning.Activities[0].Activity)
	assert.Equal(t, "Hawa Mahal", after.Day(2).Morning.Activities[0].Activity)
	// The original is untouched.
	assert.Equal(t, "Hawa Mahal", before.Day(1).Morning.Activities[0].Activity)
	builder.AssertCalled(t, "ApplyTravelTimes", mock.Anything, after)
}

func TestApply_SwapDays_Validation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Apply(context.Background(), twoDayItinerary(), types.EditIntent{
		EditType: types.EditSwapDays, SourceDay: 1, TargetDay: 5,
	}, nil)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.CodeEditValidation, appErr.Code)

	_, err = svc.Apply(context.Background(), twoDayItinerary(), types.EditIntent{
		EditType: types.EditSwapDays, SourceDay: 1, TargetDay: 1,
	}, nil)
	assert.Error(t, err)
}

func TestApply_MoveTimeBlock(t *testing.T) {
	svc, _ := newService(t)

	after, err := svc.Apply(context.Background(), twoDayItinerary(), types.EditIntent{
		EditType:        types.EditMoveTimeBlock,
		SourceDay:       1,
		SourceTimeBlock: "morning",
		TargetDay:       2,
		TargetTimeBlock: "morning",
	}, nil)

	require.NoError(t, err)
	// The target holds exactly the moved copy; its old contents are gone.
	require.Len(t, after.Day(2).Morning.Activities, 1)
	assert.Equal(t, "Hawa Mahal", after.Day(2).Morning.Activities[0].Activity)
	// Without regenerate_vacated the source block stays as it was.
	require.Len(t, after.Day(1).Morning.Activities, 1)
	assert.Equal(t, "Hawa Mahal", after.Day(1).Morning.Activities[0].Activity)
}

func TestApply_MoveTimeBlock_ReschedulesTarget(t *testing.T) {
	svc, _ := newService(t)

	after, err := svc.Apply(context.Background(), twoDayItinerary(), types.EditIntent{
		EditType:        types.EditMoveTimeBlock,
		SourceDay:       1,
		SourceTimeBlock: "morning",
		TargetDay:       1,
		TargetTimeBlock: "evening",
	}, nil)

	require.NoError(t, err)
	require.Len(t, after.Day(1).Evening.Activities, 1)
	moved := after.Day(1).Evening.Activities[0]
	assert.Equal(t, "Hawa Mahal", moved.Activity)
	// Rescheduled into the evening window.
	assert.Equal(t, "05:00 PM", moved.TimeSlot)
}

func TestApply_MoveTimeBlock_RegeneratesVacated(t *testing.T) {
	svc, builder := newService(t)

	var gotPrefs types.Preferences
	var gotCandidates []types.POI
	builder.On("Build", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotPrefs = args.Get(1).(types.Preferences)
			gotCandidates = args.Get(2).([]types.POI)
		}).
		Return(oneDayPlan("Jantar Mantar", "place_id:jantar"), nil)

	after, err := svc.Apply(context.Background(), twoDayItinerary(), types.EditIntent{
		EditType:          types.EditMoveTimeBlock,
		SourceDay:         1,
		SourceTimeBlock:   "morning",
		TargetDay:         1,
		TargetTimeBlock:   "evening",
		RegenerateVacated: true,
	}, editPool)

	require.NoError(t, err)
	require.Len(t, after.Day(1).Morning.Activities, 1)
	refill := after.Day(1).Morning.Activities[0]
	assert.Equal(t, "Jantar Mantar", refill.Activity)
	assert.Equal(t, "09:00 AM", refill.TimeSlot)

	// The replan is a one-day build over places not already scheduled.
	assert.Equal(t, 1, gotPrefs.DurationDays)
	for _, p := range gotCandidates {
		assert.NotContains(t, []string{"place_id:hawa", "place_id:palace", "way:amber"}, p.SourceID)
	}
}

func TestApply_MoveTimeBlock_RegenerateFallsBackToPool(t *testing.T) {
	svc, builder := newService(t)
	builder.On("Build", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("model down"))

	after, err := svc.Apply(context.Background(), twoDayItinerary(), types.EditIntent{
		EditType:          types.EditMoveTimeBlock,
		SourceDay:         1,
		SourceTimeBlock:   "morning",
		TargetDay:         1,
		TargetTimeBlock:   "evening",
		RegenerateVacated: true,
	}, editPool)

	require.NoError(t, err)
	require.Len(t, after.Day(1).Morning.Activities, 1)
	assert.Equal(t, "Jantar Mantar", after.Day(1).Morning.Activities[0].Activity)
}

func TestApply_ChangePace_Passthrough(t *testing.T) {
	svc, _ := newService(t)

	after, err := svc.Apply(context.Background(), twoDayItinerary(), types.EditIntent{
		EditType: types.EditChangePace, NewPace: types.PaceRelaxed,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, types.PaceRelaxed, after.Pace)
	// Passthrough keeps every activity in place.
	assert.Len(t, after.AllActivities(), 3)
}

func TestApply_ChangePace_RebuildTrims(t *testing.T) {
	builder := new(MockBuilder)
	builder.On("ApplyTravelTimes", mock.Anything, mock.Anything).Return()
	svc := NewServiceImpl(nil, builder, PacePolicyRebuild, testLogger())

	it := twoDayItinerary()
	// Overstuff day 1 so relaxed (max 3) forces a trim.
	day := it.Day(1)
	day.Evening.Activities = append(day.Evening.Activities,
		types.Activity{Activity: "Bazaar walk", DurationMinutes: 60},
		types.Activity{Activity: "Dinner", DurationMinutes: 60},
	)

	after, err := svc.Apply(context.Background(), it, types.EditIntent{
		EditType: types.EditChangePace, NewPace: types.PaceRelaxed,
	}, nil)

	require.NoError(t, err)
	assert.LessOrEqual(t, len(after.Day(1).Activities()), 3)
	// Earlier blocks survive the trim.
	assert.Len(t, after.Day(1).Morning.Activities, 1)
}

func TestApply_SwapActivity(t *testing.T) {
	svc, _ := newService(t)

	after, err := svc.Apply(context.Background(), twoDayItinerary(), types.EditIntent{
		EditType:        types.EditSwapActivity,
		TargetActivity:  "city palace",
		NewActivityName: "Albert Hall",
	}, editPool)

	require.NoError(t, err)
	got := after.Day(1).Afternoon.Activities[0]
	assert.Equal(t, "Albert Hall Museum", got.Activity)
	assert.Equal(t, "place_id:albert", got.SourceID)
	// The old time slot survives the swap.
	assert.Equal(t, "01:00 PM", got.TimeSlot)
}

func TestApply_AddActivity(t *testing.T) {
	svc, _ := newService(t)

	after, err := svc.Apply(context.Background(), twoDayItinerary(), types.EditIntent{
		EditType:  types.EditAddActivity,
		PlaceName: "jantar",
		TargetDay: 2,
	}, editPool)

	require.NoError(t, err)
	assert.Len(t, after.Day(2).Activities(), 2)
	// Day 1 untouched.
	assert.Len(t, after.Day(1).Activities(), 2)
}

func TestApply_AddActivity_UnknownPlace(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Apply(context.Background(), twoDayItinerary(), types.EditIntent{
		EditType:  types.EditAddActivity,
		PlaceName: "eiffel tower",
		TargetDay: 1,
	}, editPool)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.CodeEditValidation, appErr.Code)
}

func TestApply_AddDay(t *testing.T) {
	svc, builder := newService(t)
	builder.On("Build", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(oneDayPlan("Jantar Mantar", "place_id:jantar"), nil)

	after, err := svc.Apply(context.Background(), twoDayItinerary(), types.EditIntent{
		EditType: types.EditAddDay,
	}, editPool)

	require.NoError(t, err)
	assert.Equal(t, 3, after.DurationDays)
	require.NotNil(t, after.Day(3))
	assert.NotEmpty(t, after.Day(3).Activities())
	// Travel dates grow with the trip, one calendar day at a time.
	require.Len(t, after.TravelDates, 3)
	assert.Equal(t, "2026-09-03", after.TravelDates[2])
}

func TestApply_AddDay_BuilderDown(t *testing.T) {
	svc, builder := newService(t)
	builder.On("Build", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("model down"))

	after, err := svc.Apply(context.Background(), twoDayItinerary(), types.EditIntent{
		EditType: types.EditAddDay,
	}, editPool)

	require.NoError(t, err)
	assert.Equal(t, 3, after.DurationDays)
	assert.NotEmpty(t, after.Day(3).Activities())
}

func TestApply_RemoveActivity(t *testing.T) {
	svc, _ := newService(t)

	after, err := svc.Apply(context.Background(), twoDayItinerary(), types.EditIntent{
		EditType:       types.EditRemoveActiv,
		TargetActivity: "hawa mahal",
		TargetDay:      1,
	}, nil)

	require.NoError(t, err)
	assert.Empty(t, after.Day(1).Morning.Activities)
	assert.Len(t, after.Day(1).Afternoon.Activities, 1)
}

func TestApply_ReduceTravelOnlyRecomputes(t *testing.T) {
	svc, builder := newService(t)
	before := twoDayItinerary()

	after, err := svc.Apply(context.Background(), before, types.EditIntent{
		EditType: types.EditReduceTravel,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, len(before.AllActivities()), len(after.AllActivities()))
	builder.AssertCalled(t, "ApplyTravelTimes", mock.Anything, after)
}

func TestParse_ModelIntent(t *testing.T) {
	ai := new(MockGenerator)
	builder := new(MockBuilder)
	svc := NewServiceImpl(ai, builder, PacePolicyPassthrough, testLogger())

	ai.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"edit_type":"SWAP_DAYS","source_day":1,"target_day":2}`, nil)

	intent, err := svc.Parse(context.Background(), "flip the first two days", twoDayItinerary())
	require.NoError(t, err)
	assert.Equal(t, types.EditSwapDays, intent.EditType)
	assert.Equal(t, 1, intent.SourceDay)
	assert.Equal(t, 2, intent.TargetDay)
}

func TestParse_FallsBackToRules(t *testing.T) {
	ai := new(MockGenerator)
	builder := new(MockBuilder)
	svc := NewServiceImpl(ai, builder, PacePolicyPassthrough, testLogger())

	ai.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("model down"))

	intent, err := svc.Parse(context.Background(), "swap day 1 and day 2", twoDayItinerary())
	require.NoError(t, err)
	assert.Equal(t, types.EditSwapDays, intent.EditType)
}

func TestParseWithRules(t *testing.T) {
	tests := []struct {
		command string
		want    types.EditIntent
	}{
		{"swap day 1 and day 2", types.EditIntent{EditType: types.EditSwapDays, SourceDay: 1, TargetDay: 2}},
		{"swap day 1 with day 2", types.EditIntent{EditType: types.EditSwapDays, SourceDay: 1, TargetDay: 2}},
		{"swap day 2 with 3", types.EditIntent{EditType: types.EditSwapDays, SourceDay: 2, TargetDay: 3}},
		{"move day 1 morning to evening", types.EditIntent{EditType: types.EditMoveTimeBlock, SourceDay: 1, SourceTimeBlock: "morning", TargetDay: 1, TargetTimeBlock: "evening"}},
		{"make it more relaxed", types.EditIntent{EditType: types.EditChangePace, NewPace: types.PaceRelaxed}},
		{"I want a faster pace", types.EditIntent{EditType: types.EditChangePace, NewPace: types.PaceFast}},
		{"too much travel time", types.EditIntent{EditType: types.EditReduceTravel}},
		{"add one more day", types.EditIntent{EditType: types.EditAddDay}},
		{"replace city palace with albert hall", types.EditIntent{EditType: types.EditSwapActivity, TargetActivity: "city palace", NewActivityName: "albert hall"}},
		{"remove the museum from day 2", types.EditIntent{EditType: types.EditRemoveActiv, TargetActivity: "museum", TargetDay: 2}},
		{"add jantar mantar to day 2", types.EditIntent{EditType: types.EditAddActivity, PlaceName: "jantar mantar", TargetDay: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			got, ok := parseWithRules(tt.command)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWithRules_Unrecognized(t *testing.T) {
	_, ok := parseWithRules("what's the weather like")
	assert.False(t, ok)
}

func TestAssignBlockTimes(t *testing.T) {
	block := &types.TimeBlock{Activities: []types.Activity{
		{Activity: "A", DurationMinutes: 90},
		{Activity: "B", DurationMinutes: 60},
	}}
	assignBlockTimes(block, "afternoon")
	assert.Equal(t, "12:00 PM", block.Activities[0].TimeSlot)
	// 12:00 + 90min + 15min transfer.
	assert.Equal(t, "01:45 PM", block.Activities[1].TimeSlot)
}

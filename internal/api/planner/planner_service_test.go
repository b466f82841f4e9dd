package planner

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/api/explanation"
	"github.com/FACorreiaa/go-trip-planner/internal/api/intent"
	"github.com/FACorreiaa/go-trip-planner/internal/api/session"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

func TestMain(m *testing.M) {
	// The global meter provider defaults to a no-op, so instruments are
	// created but record nothing.
	metrics.InitAppMetrics()
	m.Run()
}

type MockIntents struct {
	mock.Mock
}

func (m *MockIntents) Classify(ctx context.Context, utterance string, hasItinerary bool) (string, error) {
	args := m.Called(ctx, utterance, hasItinerary)
	return args.String(0), args.Error(1)
}

func (m *MockIntents) ExtractPreferences(ctx context.Context, utterance string) (types.Preferences, error) {
	args := m.Called(ctx, utterance)
	return args.Get(0).(types.Preferences), args.Error(1)
}

type MockPOIs struct {
	mock.Mock
}

func (m *MockPOIs) Discover(ctx context.Context, city string, interests []string) ([]types.POI, types.Location, error) {
	args := m.Called(ctx, city, interests)
	var pois []types.POI
	if args.Get(0) != nil {
		pois = args.Get(0).([]types.POI)
	}
	return pois, args.Get(1).(types.Location), args.Error(2)
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

type MockEditor struct {
	mock.Mock
}

func (m *MockEditor) Parse(ctx context.Context, command string, it *types.Itinerary) (types.EditIntent, error) {
	args := m.Called(ctx, command, it)
	return args.Get(0).(types.EditIntent), args.Error(1)
}

func (m *MockEditor) Apply(ctx context.Context, it *types.Itinerary, editIntent types.EditIntent, pool []types.POI) (*types.Itinerary, error) {
	args := m.Called(ctx, it, editIntent, pool)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

type MockExplainer struct {
	mock.Mock
}

func (m *MockExplainer) Explain(ctx context.Context, question string, sess *types.Session) (explanation.Answer, error) {
	args := m.Called(ctx, question, sess)
	return args.Get(0).(explanation.Answer), args.Error(1)
}

type MockWeather struct {
	mock.Mock
}

func (m *MockWeather) ForecastForDates(ctx context.Context, loc types.Location, dates []string) (map[string]types.DayForecast, error) {
	args := m.Called(ctx, loc, dates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]types.DayForecast), args.Error(1)
}

type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(ctx context.Context, it *types.Itinerary) *types.Evaluation {
	args := m.Called(ctx, it)
	return args.Get(0).(*types.Evaluation)
}

func (m *MockEvaluator) EvaluateEdit(ctx context.Context, before, after *types.Itinerary, editIntent types.EditIntent) *types.Evaluation {
	args := m.Called(ctx, before, after, editIntent)
	return args.Get(0).(*types.Evaluation)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type plannerFixture struct {
	svc       *ServiceImpl
	store     *session.InMemoryStore
	intents   *MockIntents
	pois      *MockPOIs
	builder   *MockBuilder
	editor    *MockEditor
	explainer *MockExplainer
	weather   *MockWeather
	evaluator *MockEvaluator
}

func newFixture() *plannerFixture {
	f := &plannerFixture{
		store:     session.NewInMemoryStore(time.Hour, testLogger()),
		intents:   new(MockIntents),
		pois:      new(MockPOIs),
		builder:   new(MockBuilder),
		editor:    new(MockEditor),
		explainer: new(MockExplainer),
		weather:   new(MockWeather),
		evaluator: new(MockEvaluator),
	}
	f.svc = NewServiceImpl(
		f.store, f.intents, f.pois, f.builder, f.editor,
		f.explainer, f.weather, f.evaluator, Options{}, testLogger(),
	)
	return f
}

func builtItinerary() *types.Itinerary {
	it := &types.Itinerary{
		City:         "Jaipur",
		DurationDays: 2,
		Pace:         types.PaceModerate,
		TravelDates:  []string{"2026-09-01", "2026-09-02"},
	}
	it.SetDay(1, &types.DayItinerary{
		Morning: types.TimeBlock{Activities: []types.Activity{{
			Activity: "Amber Fort", TimeSlot: "09:00 AM", DurationMinutes: 150,
			SourceID: "way:42", DataSource: types.DataSourceOpenStreetMap,
		}}},
	})
	it.SetDay(2, &types.DayItinerary{
		Morning: types.TimeBlock{Activities: []types.Activity{{
			Activity: "City Palace", TimeSlot: "09:00 AM", DurationMinutes: 120,
			SourceID: "way:77", DataSource: types.DataSourceOpenStreetMap,
		}}},
	})
	return it
}

func fullPrefs() types.Preferences {
	return types.Preferences{
		City:         "Jaipur",
		DurationDays: 2,
		Interests:    []string{"historical"},
		Pace:         types.PaceModerate,
		TravelMode:   types.TravelModeAirplane,
		StartDate:    "2026-09-01",
	}
}

func TestTurn_NewSessionAsksClarifyingQuestion(t *testing.T) {
	f := newFixture()
	f.intents.On("Classify", mock.Anything, "plan a trip to Jaipur", false).Return(intent.IntentPlan, nil)
	f.intents.On("ExtractPreferences", mock.Anything, "plan a trip to Jaipur").
		Return(types.Preferences{City: "Jaipur"}, nil)

	result, err := f.svc.Turn(context.Background(), "", "plan a trip to Jaipur", false)

	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)
	assert.True(t, result.Clarifying)
	assert.Contains(t, result.Reply, "How many days")
	assert.Nil(t, result.Itinerary)

	sess, err := f.store.Get(context.Background(), result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Jaipur", sess.Preferences.City)
	assert.Equal(t, 1, sess.ClarifyingCount)
	assert.Len(t, sess.History, 2)
}

func TestTurn_SlotsAccumulateAcrossTurns(t *testing.T) {
	f := newFixture()
	sess := f.store.Create(context.Background())
	require.NoError(t, f.store.Update(context.Background(), sess.ID, func(s *types.Session) error {
		s.Preferences = types.Preferences{City: "Jaipur"}
		return nil
	}))

	f.intents.On("Classify", mock.Anything, "4 days", false).Return(intent.IntentPlan, nil)
	f.intents.On("ExtractPreferences", mock.Anything, "4 days").
		Return(types.Preferences{DurationDays: 4}, nil)

	result, err := f.svc.Turn(context.Background(), sess.ID, "4 days", false)

	require.NoError(t, err)
	assert.True(t, result.Clarifying)

	got, err := f.store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jaipur", got.Preferences.City)
	assert.Equal(t, 4, got.Preferences.DurationDays)
}

func TestTurn_SlotsFilledAsksForConfirmation(t *testing.T) {
	f := newFixture()

	f.intents.On("Classify", mock.Anything, mock.Anything, false).Return(intent.IntentPlan, nil)
	f.intents.On("ExtractPreferences", mock.Anything, mock.Anything).Return(fullPrefs(), nil)

	result, err := f.svc.Turn(context.Background(), "", "plan jaipur for 2 days from 2026-09-01, history, flying, moderate", false)

	require.NoError(t, err)
	assert.Equal(t, StatusConfirmationRequired, result.Status)
	assert.Nil(t, result.Itinerary)
	assert.Contains(t, result.Reply, "2 days in Jaipur")
	assert.Contains(t, result.Reply, "Shall I build the itinerary?")
	// No build happens until the traveler says yes.
	f.builder.AssertNotCalled(t, "Build", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	sess, err := f.store.Get(context.Background(), result.SessionID)
	require.NoError(t, err)
	assert.True(t, sess.AwaitingConfirmation)
	assert.Nil(t, sess.Itinerary)
}

func TestTurn_ConfirmAfterSummaryBuilds(t *testing.T) {
	f := newFixture()
	it := builtItinerary()

	sess := f.store.Create(context.Background())
	require.NoError(t, f.store.Update(context.Background(), sess.ID, func(s *types.Session) error {
		s.Preferences = fullPrefs()
		s.AwaitingConfirmation = true
		return nil
	}))

	// Confirmation words count even though no itinerary exists yet.
	f.intents.On("Classify", mock.Anything, "yes", true).Return(intent.IntentConfirm, nil)
	f.pois.On("Discover", mock.Anything, "Jaipur", []string{"historical"}).
		Return([]types.POI{{Name: "Amber Fort"}}, types.Location{Lat: 26.98, Lon: 75.85}, nil)
	f.builder.On("Build", mock.Anything, mock.Anything, mock.Anything, types.Location{Lat: 26.98, Lon: 75.85}).
		Return(it, nil)
	f.weather.On("ForecastForDates", mock.Anything, mock.Anything, []string{"2026-09-01", "2026-09-02"}).
		Return(map[string]types.DayForecast{
			"2026-09-01": {Date: "2026-09-01", Condition: "clear"},
		}, nil)
	f.evaluator.On("Evaluate", mock.Anything, it).
		Return(&types.Evaluation{Feasibility: &types.FeasibilityResult{IsFeasible: true, Score: 1}})

	result, err := f.svc.Turn(context.Background(), sess.ID, "yes", false)

	require.NoError(t, err)
	require.NotNil(t, result.Itinerary)
	assert.Contains(t, result.Reply, "2-day Jaipur itinerary")
	assert.NotEmpty(t, result.Sources)
	assert.NotEmpty(t, result.Itinerary.Weather)

	got, err := f.store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Itinerary)
	assert.NotNil(t, got.Evaluation)
	assert.False(t, got.AwaitingConfirmation)
	assert.False(t, got.Confirmed)
}

func TestTurn_WeatherFailureDoesNotBlockBuild(t *testing.T) {
	f := newFixture()
	it := builtItinerary()

	sess := f.store.Create(context.Background())
	require.NoError(t, f.store.Update(context.Background(), sess.ID, func(s *types.Session) error {
		s.Preferences = fullPrefs()
		s.AwaitingConfirmation = true
		return nil
	}))

	f.intents.On("Classify", mock.Anything, mock.Anything, true).Return(intent.IntentConfirm, nil)
	f.pois.On("Discover", mock.Anything, "Jaipur", mock.Anything).
		Return([]types.POI{{Name: "Amber Fort"}}, types.Location{}, nil)
	f.builder.On("Build", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(it, nil)
	f.weather.On("ForecastForDates", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)
	f.evaluator.On("Evaluate", mock.Anything, it).Return(&types.Evaluation{})

	result, err := f.svc.Turn(context.Background(), sess.ID, "go ahead", false)

	require.NoError(t, err)
	require.NotNil(t, result.Itinerary)
	assert.Empty(t, result.Itinerary.Weather)
}

func TestTurn_VoiceTranscriptIsNormalized(t *testing.T) {
	f := newFixture()
	// "jai poor" and "three days" arrive cleaned up at the classifier.
	f.intents.On("Classify", mock.Anything, "plan a trip to jaipur for 3 days", false).
		Return(intent.IntentPlan, nil)
	f.intents.On("ExtractPreferences", mock.Anything, "plan a trip to jaipur for 3 days").
		Return(types.Preferences{City: "Jaipur", DurationDays: 3}, nil)

	result, err := f.svc.Turn(context.Background(), "", "um, plan a trip to jai poor for three days", true)

	require.NoError(t, err)
	assert.True(t, result.Clarifying)
	f.intents.AssertExpectations(t)
}

func TestTurn_EmptyMessageRejected(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Turn(context.Background(), "", "   ", false)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.CodeValidation, appErr.Code)
}

func TestTurn_UnknownSession(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Turn(context.Background(), "nope", "hello", false)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.CodeSessionNotFound, appErr.Code)
}

func TestTurn_EditRoutesThroughEditor(t *testing.T) {
	f := newFixture()
	before := builtItinerary()
	after := before.Clone()
	d1, d2 := after.Days[types.DayKey(1)], after.Days[types.DayKey(2)]
	after.Days[types.DayKey(1)], after.Days[types.DayKey(2)] = d2, d1

	sess := f.store.Create(context.Background())
	require.NoError(t, f.store.Update(context.Background(), sess.ID, func(s *types.Session) error {
		s.Preferences = fullPrefs()
		s.Itinerary = before
		return nil
	}))

	swap := types.EditIntent{EditType: types.EditSwapDays, SourceDay: 1, TargetDay: 2}
	f.intents.On("Classify", mock.Anything, "swap day 1 and day 2", true).Return(intent.IntentEdit, nil)
	f.editor.On("Parse", mock.Anything, "swap day 1 and day 2", before).Return(swap, nil)
	f.pois.On("Discover", mock.Anything, "Jaipur", mock.Anything).
		Return([]types.POI{{Name: "Jantar Mantar"}}, types.Location{}, nil)
	f.editor.On("Apply", mock.Anything, before, swap, mock.Anything).Return(after, nil)
	f.evaluator.On("EvaluateEdit", mock.Anything, before, after, swap).
		Return(&types.Evaluation{EditCorrectness: &types.EditCorrectnessResult{IsCorrect: true}})

	result, err := f.svc.Turn(context.Background(), sess.ID, "swap day 1 and day 2", false)

	require.NoError(t, err)
	assert.Equal(t, intent.IntentEdit, result.Intent)
	assert.Contains(t, result.Reply, "days 1 and 2 are swapped")

	got, err := f.store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "City Palace", got.Itinerary.Day(1).Morning.Activities[0].Activity)
	assert.False(t, got.Confirmed)
}

func TestTurn_EditWithoutItinerary(t *testing.T) {
	f := newFixture()
	sess := f.store.Create(context.Background())
	f.intents.On("Classify", mock.Anything, mock.Anything, false).Return(intent.IntentEdit, nil)

	_, err := f.svc.Turn(context.Background(), sess.ID, "swap day 1 and 2", false)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.CodeEditValidation, appErr.Code)
}

func TestTurn_EditPoolFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	before := builtItinerary()
	sess := f.store.Create(context.Background())
	require.NoError(t, f.store.Update(context.Background(), sess.ID, func(s *types.Session) error {
		s.Preferences = fullPrefs()
		s.Itinerary = before
		return nil
	}))

	swap := types.EditIntent{EditType: types.EditSwapDays, SourceDay: 1, TargetDay: 2}
	f.intents.On("Classify", mock.Anything, mock.Anything, true).Return(intent.IntentEdit, nil)
	f.editor.On("Parse", mock.Anything, mock.Anything, before).Return(swap, nil)
	f.pois.On("Discover", mock.Anything, "Jaipur", mock.Anything).
		Return(nil, types.Location{}, assert.AnError)
	f.editor.On("Apply", mock.Anything, before, swap, mock.Anything).Return(before.Clone(), nil)
	f.evaluator.On("EvaluateEdit", mock.Anything, mock.Anything, mock.Anything, swap).
		Return(&types.Evaluation{})

	_, err := f.svc.Turn(context.Background(), sess.ID, "swap day 1 and day 2", false)
	require.NoError(t, err)
}

func TestTurn_QuestionRoutesThroughExplainer(t *testing.T) {
	f := newFixture()
	sess := f.store.Create(context.Background())
	require.NoError(t, f.store.Update(context.Background(), sess.ID, func(s *types.Session) error {
		s.Itinerary = builtItinerary()
		return nil
	}))

	f.intents.On("Classify", mock.Anything, "why amber fort?", true).Return(intent.IntentQuestion, nil)
	f.explainer.On("Explain", mock.Anything, "why amber fort?", mock.Anything).
		Return(explanation.Answer{Text: "It is the top-rated fort nearby.", Question: explanation.QuestionWhyPOI}, nil)

	result, err := f.svc.Turn(context.Background(), sess.ID, "why amber fort?", false)

	require.NoError(t, err)
	assert.Equal(t, intent.IntentQuestion, result.Intent)
	assert.Contains(t, result.Reply, "top-rated fort")
	assert.NotNil(t, result.Itinerary)
}

func TestTurn_ConfirmLocksItinerary(t *testing.T) {
	f := newFixture()
	sess := f.store.Create(context.Background())
	require.NoError(t, f.store.Update(context.Background(), sess.ID, func(s *types.Session) error {
		s.Itinerary = builtItinerary()
		return nil
	}))
	f.intents.On("Classify", mock.Anything, "looks great", true).Return(intent.IntentConfirm, nil)

	result, err := f.svc.Turn(context.Background(), sess.ID, "looks great", false)

	require.NoError(t, err)
	assert.Contains(t, result.Reply, "locked in")

	got, err := f.store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Confirmed)
}

func TestTurn_ConfirmWithoutItinerary(t *testing.T) {
	f := newFixture()
	sess := f.store.Create(context.Background())
	f.intents.On("Classify", mock.Anything, mock.Anything, false).Return(intent.IntentConfirm, nil)

	_, err := f.svc.Turn(context.Background(), sess.ID, "looks great", false)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.CodeValidation, appErr.Code)
}

func TestTurn_ResetClearsSession(t *testing.T) {
	f := newFixture()
	sess := f.store.Create(context.Background())
	require.NoError(t, f.store.Update(context.Background(), sess.ID, func(s *types.Session) error {
		s.Preferences = fullPrefs()
		s.Itinerary = builtItinerary()
		s.Confirmed = true
		s.ClarifyingCount = 3
		return nil
	}))
	f.intents.On("Classify", mock.Anything, "start over", true).Return(intent.IntentReset, nil)

	result, err := f.svc.Turn(context.Background(), sess.ID, "start over", false)

	require.NoError(t, err)
	assert.Contains(t, result.Reply, "Fresh start")

	got, err := f.store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Itinerary)
	assert.Empty(t, got.Preferences.City)
	assert.Zero(t, got.ClarifyingCount)
	assert.False(t, got.Confirmed)
	// History survives a reset.
	assert.NotEmpty(t, got.History)
}

func TestEdit_DirectEntryPointSkipsClassification(t *testing.T) {
	f := newFixture()
	before := builtItinerary()
	sess := f.store.Create(context.Background())
	require.NoError(t, f.store.Update(context.Background(), sess.ID, func(s *types.Session) error {
		s.Preferences = fullPrefs()
		s.Itinerary = before
		return nil
	}))

	pace := types.EditIntent{EditType: types.EditChangePace, NewPace: types.PaceRelaxed}
	after := before.Clone()
	after.Pace = types.PaceRelaxed
	f.editor.On("Parse", mock.Anything, "make it relaxed", before).Return(pace, nil)
	f.pois.On("Discover", mock.Anything, "Jaipur", mock.Anything).
		Return([]types.POI{}, types.Location{}, nil)
	f.editor.On("Apply", mock.Anything, before, pace, mock.Anything).Return(after, nil)
	f.evaluator.On("EvaluateEdit", mock.Anything, before, after, pace).Return(&types.Evaluation{})

	result, err := f.svc.Edit(context.Background(), sess.ID, "make it relaxed")

	require.NoError(t, err)
	assert.Equal(t, intent.IntentEdit, result.Intent)
	f.intents.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)

	got, err := f.store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PaceRelaxed, got.Preferences.Pace)
}

func TestExplain_DirectEntryPoint(t *testing.T) {
	f := newFixture()
	sess := f.store.Create(context.Background())
	require.NoError(t, f.store.Update(context.Background(), sess.ID, func(s *types.Session) error {
		s.Itinerary = builtItinerary()
		return nil
	}))
	f.explainer.On("Explain", mock.Anything, "is this doable?", mock.Anything).
		Return(explanation.Answer{Text: "Yes, the plan fits."}, nil)

	result, err := f.svc.Explain(context.Background(), sess.ID, "is this doable?")

	require.NoError(t, err)
	assert.Equal(t, intent.IntentQuestion, result.Intent)
	assert.Contains(t, result.Reply, "fits")
}

func TestHandlePlan_BudgetExhaustedStillNeedsMinimum(t *testing.T) {
	f := newFixture()
	sess := f.store.Create(context.Background())
	require.NoError(t, f.store.Update(context.Background(), sess.ID, func(s *types.Session) error {
		s.ClarifyingCount = 6
		return nil
	}))
	f.intents.On("Classify", mock.Anything, mock.Anything, false).Return(intent.IntentPlan, nil)
	f.intents.On("ExtractPreferences", mock.Anything, mock.Anything).Return(types.Preferences{}, nil)

	result, err := f.svc.Turn(context.Background(), sess.ID, "hmm", false)

	require.NoError(t, err)
	assert.True(t, result.Clarifying)
	assert.Contains(t, result.Reply, "at least a city and a trip length")

	got, err := f.store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	// The over-budget nudge does not burn more of the budget.
	assert.Equal(t, 6, got.ClarifyingCount)
}

func TestHandlePlan_BudgetExhaustedWithMinimumOffersSummary(t *testing.T) {
	f := newFixture()
	sess := f.store.Create(context.Background())
	require.NoError(t, f.store.Update(context.Background(), sess.ID, func(s *types.Session) error {
		s.Preferences = types.Preferences{City: "Jaipur", DurationDays: 2}
		s.ClarifyingCount = 6
		return nil
	}))
	f.intents.On("Classify", mock.Anything, mock.Anything, false).Return(intent.IntentPlan, nil)
	f.intents.On("ExtractPreferences", mock.Anything, mock.Anything).Return(types.Preferences{}, nil)

	result, err := f.svc.Turn(context.Background(), sess.ID, "just plan something", false)

	require.NoError(t, err)
	assert.False(t, result.Clarifying)
	// With the question budget gone but the minimum known, the planner
	// recaps and waits for the go-ahead instead of asking more.
	assert.Equal(t, StatusConfirmationRequired, result.Status)
	f.builder.AssertNotCalled(t, "Build", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlePlan_RefinementRebuildsWithoutSummary(t *testing.T) {
	f := newFixture()
	rebuilt := builtItinerary()

	sess := f.store.Create(context.Background())
	require.NoError(t, f.store.Update(context.Background(), sess.ID, func(s *types.Session) error {
		s.Preferences = fullPrefs()
		s.Itinerary = builtItinerary()
		return nil
	}))

	f.intents.On("Classify", mock.Anything, mock.Anything, true).Return(intent.IntentPlan, nil)
	f.intents.On("ExtractPreferences", mock.Anything, mock.Anything).
		Return(types.Preferences{Interests: []string{"food"}}, nil)
	f.pois.On("Discover", mock.Anything, "Jaipur", mock.Anything).
		Return([]types.POI{{Name: "LMB"}}, types.Location{}, nil)
	f.builder.On("Build", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(rebuilt, nil)
	f.weather.On("ForecastForDates", mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]types.DayForecast{}, nil)
	f.evaluator.On("Evaluate", mock.Anything, rebuilt).Return(&types.Evaluation{})

	result, err := f.svc.Turn(context.Background(), sess.ID, "add some food stops", false)

	require.NoError(t, err)
	// A session that already has an itinerary rebuilds straight away.
	assert.Empty(t, result.Status)
	require.NotNil(t, result.Itinerary)
}

func TestTurn_ConcurrentTurnsOnOneSessionSerialize(t *testing.T) {
	f := newFixture()
	sess := f.store.Create(context.Background())

	f.intents.On("Classify", mock.Anything, mock.Anything, false).Return(intent.IntentPlan, nil)
	f.intents.On("ExtractPreferences", mock.Anything, mock.Anything).Return(types.Preferences{}, nil)

	const turns = 8
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Turn(context.Background(), sess.ID, "hello there", false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := f.store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	// Every turn lands exactly one user and one assistant message.
	assert.Len(t, got.History, 2*turns)
}

func TestGenerateTravelDates(t *testing.T) {
	explicit := types.Preferences{TravelDates: []string{"2026-09-05"}, StartDate: "2026-09-01", DurationDays: 3}
	assert.Equal(t, []string{"2026-09-05"}, generateTravelDates(explicit))

	expanded := types.Preferences{StartDate: "2026-09-01", DurationDays: 3}
	assert.Equal(t, []string{"2026-09-01", "2026-09-02", "2026-09-03"}, generateTravelDates(expanded))

	assert.Nil(t, generateTravelDates(types.Preferences{DurationDays: 3}))
	assert.Nil(t, generateTravelDates(types.Preferences{StartDate: "not-a-date", DurationDays: 2}))
}

func TestAssembleSources_DedupesAndCaps(t *testing.T) {
	it := builtItinerary()
	// Duplicate stop pointing at an already cited source.
	day := it.Days[types.DayKey(2)]
	day.Afternoon.Activities = append(day.Afternoon.Activities, types.Activity{
		Activity: "Amber Fort again", SourceID: "way:42", DataSource: types.DataSourceOpenStreetMap,
	})

	sources := assembleSources(it, []types.Source{{Type: types.SourceTypeWeather, Name: "Open-Meteo forecast", URL: "https://open-meteo.com/"}}, 2)

	assert.Len(t, sources, 2)
	urls := map[string]bool{}
	for _, s := range sources {
		assert.False(t, urls[s.URL], "duplicate source %s", s.URL)
		urls[s.URL] = true
	}
}

func TestNextQuestion_PrefersUnasked(t *testing.T) {
	missing := []string{types.SlotCity, types.SlotDuration}
	asked := []string{clarifyingQuestions[types.SlotCity]}

	assert.Equal(t, clarifyingQuestions[types.SlotDuration], nextQuestion(missing, asked))

	allAsked := []string{clarifyingQuestions[types.SlotCity], clarifyingQuestions[types.SlotDuration]}
	assert.Equal(t, clarifyingQuestions[types.SlotCity], nextQuestion(missing, allAsked))
}

package routing

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type MockRouter struct {
	mock.Mock
}

func (m *MockRouter) Route(ctx context.Context, from, to types.Location, mode string) (time.Duration, error) {
	args := m.Called(ctx, from, to, mode)
	return args.Get(0).(time.Duration), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

var (
	hawaMahal  = types.Location{Lat: 26.9239, Lon: 75.8267}
	amberFort  = types.Location{Lat: 26.9855, Lon: 75.8513}
	cityPalace = types.Location{Lat: 26.9258, Lon: 75.8237}
)

func TestTravelTime_UsesFirstHealthyRouter(t *testing.T) {
	primary := new(MockRouter)
	secondary := new(MockRouter)

	primary.On("Route", mock.Anything, hawaMahal, amberFort, ModeDriving).Return(20*time.Minute, nil)

	svc := NewServiceImpl([]Router{primary, secondary}, nil, time.Hour, testLogger())
	got := svc.TravelTime(context.Background(), hawaMahal, amberFort, "driving")

	// 20 min raw + max(10, 30%) buffer.
	assert.Equal(t, 30, got)
	secondary.AssertNotCalled(t, "Route", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTravelTime_FallsThroughRouterChain(t *testing.T) {
	primary := new(MockRouter)
	secondary := new(MockRouter)

	primary.On("Route", mock.Anything, hawaMahal, cityPalace, ModeWalking).Return(time.Duration(0), errors.New("quota"))
	secondary.On("Route", mock.Anything, hawaMahal, cityPalace, ModeWalking).Return(10*time.Minute, nil)

	svc := NewServiceImpl([]Router{primary, secondary}, nil, time.Hour, testLogger())
	got := svc.TravelTime(context.Background(), hawaMahal, cityPalace, "walking")

	// 10 min raw + max(5, 20%) buffer.
	assert.Equal(t, 15, got)
}

func TestTravelTime_HaversineFallback(t *testing.T) {
	broken := new(MockRouter)
	broken.On("Route", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(time.Duration(0), errors.New("down"))

	svc := NewServiceImpl([]Router{broken}, nil, time.Hour, testLogger())
	got := svc.TravelTime(context.Background(), hawaMahal, amberFort, "driving")

	// Hawa Mahal to Amber Fort is ~7.3km straight line; at 30 km/h that is
	// ~15 min plus the driving buffer.
	assert.Greater(t, got, 15)
	assert.Less(t, got, 40)
}

func TestTravelTime_ZeroLocationsReturnZero(t *testing.T) {
	svc := NewServiceImpl(nil, nil, time.Hour, testLogger())
	assert.Zero(t, svc.TravelTime(context.Background(), types.Location{}, amberFort, "driving"))
	assert.Zero(t, svc.TravelTime(context.Background(), hawaMahal, types.Location{}, "driving"))
}

func TestTravelTime_Caches(t *testing.T) {
	router := new(MockRouter)
	router.On("Route", mock.Anything, hawaMahal, amberFort, ModeDriving).Return(20*time.Minute, nil).Once()

	svc := NewServiceImpl([]Router{router}, nil, time.Hour, testLogger())
	first := svc.TravelTime(context.Background(), hawaMahal, amberFort, "driving")
	second := svc.TravelTime(context.Background(), hawaMahal, amberFort, "driving")

	assert.Equal(t, first, second)
	router.AssertNumberOfCalls(t, "Route", 1)
}

func TestMatrix_PairwiseSymmetric(t *testing.T) {
	router := new(MockRouter)
	router.On("Route", mock.Anything, mock.Anything, mock.Anything, ModeDriving).Return(10*time.Minute, nil)

	svc := NewServiceImpl([]Router{router}, nil, time.Hour, testLogger())
	m, err := svc.Matrix(context.Background(), []types.Location{hawaMahal, amberFort, cityPalace}, "driving")

	require.NoError(t, err)
	require.Len(t, m, 3)
	for i := 0; i < 3; i++ {
		assert.Zero(t, m[i][i])
		for j := 0; j < 3; j++ {
			assert.Equal(t, m[i][j], m[j][i])
		}
	}
	assert.Equal(t, 20, m[0][1])
}

func TestNormalizeMode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"walking", ModeWalking},
		{"Walk", ModeWalking},
		{"on foot", ModeWalking},
		{"bus", ModeTransit},
		{"metro", ModeTransit},
		{"bike", ModeCycling},
		{"driving", ModeDriving},
		{"car", ModeDriving},
		{"", ModeDriving},
		{"teleport", ModeDriving},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeMode(tt.in), tt.in)
	}
}

func TestWithBuffer(t *testing.T) {
	assert.Equal(t, 0, withBuffer(0, ModeWalking))
	// Walking: max(5, 20%).
	assert.Equal(t, 15, withBuffer(10, ModeWalking))
	assert.Equal(t, 72, withBuffer(60, ModeWalking))
	// Driving: max(10, 30%).
	assert.Equal(t, 20, withBuffer(10, ModeDriving))
	assert.Equal(t, 78, withBuffer(60, ModeDriving))
	// Transit: max(10, 25%).
	assert.Equal(t, 20, withBuffer(10, ModeTransit))
	assert.Equal(t, 75, withBuffer(60, ModeTransit))
}

func TestHaversineMinutes(t *testing.T) {
	// Same point.
	assert.Zero(t, haversineMinutes(hawaMahal, hawaMahal, ModeDriving))

	// Walking is six times slower than driving.
	drive := haversineMinutes(hawaMahal, amberFort, ModeDriving)
	walk := haversineMinutes(hawaMahal, amberFort, ModeWalking)
	assert.Greater(t, walk, drive*5)
}

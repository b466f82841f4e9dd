package weather

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func upcoming(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

func TestForecastForDates(t *testing.T) {
	d1, d2 := upcoming(1), upcoming(2)

	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"daily":      q.Get("daily"),
			"start_date": q.Get("start_date"),
			"end_date":   q.Get("end_date"),
			"timezone":   q.Get("timezone"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"daily":{
			"time":["` + d1 + `","` + d2 + `"],
			"weather_code":[0,63],
			"temperature_2m_max":[32.5,28.0],
			"temperature_2m_min":[22.1,21.4],
			"precipitation_sum":[0.0,12.3],
			"precipitation_probability_max":[5,80]
		}}`))
	}))
	defer server.Close()

	svc := NewServiceImpl(server.URL, time.Hour, testLogger())
	forecasts, err := svc.ForecastForDates(context.Background(), types.Location{Lat: 26.9, Lon: 75.8}, []string{d1, d2})

	require.NoError(t, err)
	require.Len(t, forecasts, 2)

	assert.Equal(t, "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max", gotQuery["daily"])
	assert.Equal(t, d1, gotQuery["start_date"])
	assert.Equal(t, d2, gotQuery["end_date"])
	assert.Equal(t, "auto", gotQuery["timezone"])

	clear := forecasts[d1]
	assert.Equal(t, "clear", clear.Condition)
	assert.False(t, clear.IndoorNeeded)
	assert.True(t, clear.Sunny())
	assert.InDelta(t, 32.5, clear.TempMax, 0.01)

	rainy := forecasts[d2]
	assert.Equal(t, "rain", rainy.Condition)
	assert.True(t, rainy.IndoorNeeded)
	assert.True(t, rainy.Rainy())
	assert.Equal(t, 80, rainy.PrecipProbability)
}

func TestForecastForDates_SkipsInvalidAndFarDates(t *testing.T) {
	svc := NewServiceImpl("http://unreachable.invalid", time.Hour, testLogger())

	// Nothing valid means no request at all.
	forecasts, err := svc.ForecastForDates(context.Background(), types.Location{Lat: 1, Lon: 1},
		[]string{"not-a-date", upcoming(30)})

	require.NoError(t, err)
	assert.Empty(t, forecasts)
}

func TestForecastForDates_CachesRange(t *testing.T) {
	d1 := upcoming(1)
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"daily":{"time":["` + d1 + `"],"weather_code":[2],
			"temperature_2m_max":[30],"temperature_2m_min":[20],
			"precipitation_sum":[0],"precipitation_probability_max":[10]}}`))
	}))
	defer server.Close()

	svc := NewServiceImpl(server.URL, time.Hour, testLogger())
	loc := types.Location{Lat: 26.9, Lon: 75.8}

	_, err := svc.ForecastForDates(context.Background(), loc, []string{d1})
	require.NoError(t, err)
	_, err = svc.ForecastForDates(context.Background(), loc, []string{d1})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestForecastForDates_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewServiceImpl(server.URL, time.Hour, testLogger())
	_, err := svc.ForecastForDates(context.Background(), types.Location{Lat: 1, Lon: 1}, []string{upcoming(1)})
	assert.Error(t, err)
}

func TestDescribeCode(t *testing.T) {
	tests := []struct {
		code      int
		condition string
		indoor    bool
	}{
		{0, "clear", false},
		{1, "mostly_clear", false},
		{45, "fog", false},
		{55, "drizzle", true},
		{61, "rain", false},
		{65, "rain", true},
		{82, "rain_showers", true},
		{95, "thunderstorm", true},
		{1234, "unknown", false},
	}
	for _, tt := range tests {
		info := DescribeCode(tt.code)
		assert.Equal(t, tt.condition, info.Condition, "code %d", tt.code)
		assert.Equal(t, tt.indoor, info.IndoorNeeded, "code %d", tt.code)
	}
}

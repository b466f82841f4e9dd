package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service provides daily forecasts for itinerary dates.
type Service interface {
	// ForecastForDates returns a forecast per requested date, keyed by the
	// date string (YYYY-MM-DD). Dates outside the provider's forecast window
	// are simply absent from the result.
	ForecastForDates(ctx context.Context, loc types.Location, dates []string) (map[string]types.DayForecast, error)
}

// ServiceImpl fronts the Open-Meteo forecast API, which needs no key and
// serves daily aggregates up to 16 days out.
type ServiceImpl struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL string
	cache   *cache.Cache
}

// NewServiceImpl creates the weather client.
func NewServiceImpl(baseURL string, cacheTTL time.Duration, logger *slog.Logger) *ServiceImpl {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &ServiceImpl{
		logger:  logger,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   cache.New(cacheTTL, cacheTTL),
	}
}

type openMeteoResponse struct {
	Daily struct {
		Time                        []string  `json:"time"`
		WeatherCode                 []int     `json:"weather_code"`
		TemperatureMax              []float64 `json:"temperature_2m_max"`
		TemperatureMin              []float64 `json:"temperature_2m_min"`
		PrecipitationSum            []float64 `json:"precipitation_sum"`
		PrecipitationProbabilityMax []int     `json:"precipitation_probability_max"`
	} `json:"daily"`
}

// ForecastForDates fetches the covering date range in one call and maps the
// requested dates onto it.
func (s *ServiceImpl) ForecastForDates(ctx context.Context, loc types.Location, dates []string) (map[string]types.DayForecast, error) {
	ctx, span := otel.Tracer("WeatherService").Start(ctx, "ForecastForDates", trace.WithAttributes(
		attribute.Int("dates", len(dates)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "ForecastForDates"))

	start, end, ok := dateRange(dates)
	if !ok {
		span.SetStatus(codes.Ok, "no valid dates")
		return map[string]types.DayForecast{}, nil
	}

	key := fmt.Sprintf("%.4f,%.4f|%s|%s", loc.Lat, loc.Lon, start, end)
	if hit, found := s.cache.Get(key); found {
		span.SetStatus(codes.Ok, "cache hit")
		return pickDates(hit.(map[string]types.DayForecast), dates), nil
	}

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", loc.Lat))
	params.Set("longitude", fmt.Sprintf("%.4f", loc.Lon))
	params.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max")
	params.Set("timezone", "auto")
	params.Set("start_date", start)
	params.Set("end_date", end)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/forecast?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		l.WarnContext(ctx, "Weather request failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("weather provider returned status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad status")
		return nil, err
	}

	var body openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, err
	}

	all := make(map[string]types.DayForecast, len(body.Daily.Time))
	for i, date := range body.Daily.Time {
		f := types.DayForecast{Date: date}
		if i < len(body.Daily.WeatherCode) {
			f.WeatherCode = body.Daily.WeatherCode[i]
			desc := DescribeCode(f.WeatherCode)
			f.Condition = desc.Condition
			f.Description = desc.Description
			f.IndoorNeeded = desc.IndoorNeeded
		}
		if i < len(body.Daily.TemperatureMax) {
			f.TempMax = body.Daily.TemperatureMax[i]
		}
		if i < len(body.Daily.TemperatureMin) {
			f.TempMin = body.Daily.TemperatureMin[i]
		}
		if i < len(body.Daily.PrecipitationSum) {
			f.PrecipSum = body.Daily.PrecipitationSum[i]
		}
		if i < len(body.Daily.PrecipitationProbabilityMax) {
			f.PrecipProbability = body.Daily.PrecipitationProbabilityMax[i]
		}
		all[date] = f
	}

	s.cache.Set(key, all, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "fetched")
	return pickDates(all, dates), nil
}

// dateRange finds the min and max valid dates, clamped to the provider's
// 16-day forecast horizon.
func dateRange(dates []string) (start, end string, ok bool) {
	horizon := time.Now().AddDate(0, 0, 16).Format("2006-01-02")
	for _, d := range dates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			continue
		}
		if d > horizon {
			continue
		}
		if start == "" || d < start {
			start = d
		}
		if end == "" || d > end {
			end = d
		}
	}
	return start, end, start != ""
}

func pickDates(all map[string]types.DayForecast, dates []string) map[string]types.DayForecast {
	out := make(map[string]types.DayForecast, len(dates))
	for _, d := range dates {
		if f, found := all[d]; found {
			out[d] = f
		}
	}
	return out
}

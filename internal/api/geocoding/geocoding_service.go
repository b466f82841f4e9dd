package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service resolves free-form place names to coordinates.
type Service interface {
	// Resolve returns the best-match coordinates for a city, optionally
	// narrowed by a country hint.
	Resolve(ctx context.Context, city, country string) (types.Location, error)
}

// ServiceImpl fronts the Nominatim public geocoder. Nominatim's usage policy
// requires a User-Agent and at most one request per second, so every miss
// waits on the shared limiter; cache hits bypass it.
type ServiceImpl struct {
	logger    *slog.Logger
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	cache     *cache.Cache
}

// Options configures the geocoder client.
type Options struct {
	BaseURL     string
	UserAgent   string
	MinInterval time.Duration
	CacheTTL    time.Duration
}

// NewServiceImpl creates a new geocoder instance.
func NewServiceImpl(opts Options, logger *slog.Logger) *ServiceImpl {
	if opts.MinInterval <= 0 {
		opts.MinInterval = 1100 * time.Millisecond
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	return &ServiceImpl{
		logger:    logger,
		client:    &http.Client{Timeout: 10 * time.Second},
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		limiter:   rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		cache:     cache.New(opts.CacheTTL, opts.CacheTTL),
	}
}

// queryFixes rewrites queries the geocoder struggles with, mostly
// ambiguous Indian city names that need a state qualifier.
var queryFixes = map[string]string{
	"chennai":   "Chennai, Tamil Nadu, India",
	"madras":    "Chennai, Tamil Nadu, India",
	"jaipur":    "Jaipur, Rajasthan, India",
	"hyderabad": "Hyderabad, Telangana, India",
	"kochi":     "Kochi, Kerala, India",
	"cochin":    "Kochi, Kerala, India",
	"pune":      "Pune, Maharashtra, India",
	"mysore":    "Mysuru, Karnataka, India",
	"mysuru":    "Mysuru, Karnataka, India",
	"varanasi":  "Varanasi, Uttar Pradesh, India",
}

type nominatimResult struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

// Resolve geocodes a city name. The first result whose address mentions the
// queried city wins; if nothing comes back at all, the curated fix table and
// the country hint drive one retry each.
func (s *ServiceImpl) Resolve(ctx context.Context, city, country string) (types.Location, error) {
	ctx, span := otel.Tracer("GeocodingService").Start(ctx, "Resolve", trace.WithAttributes(
		attribute.String("city", city),
		attribute.String("country", country),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Resolve"), slog.String("city", city))

	cacheKey := strings.ToLower(city) + "|" + strings.ToLower(country)
	if hit, found := s.cache.Get(cacheKey); found {
		span.SetStatus(codes.Ok, "cache hit")
		return hit.(types.Location), nil
	}

	query := city
	if country != "" {
		query = city + ", " + country
	}

	results, err := s.search(ctx, query)
	if err != nil {
		l.ErrorContext(ctx, "Geocoder request failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "geocoder request failed")
		return types.Location{}, fmt.Errorf("geocoding %q: %w", city, err)
	}

	if len(results) == 0 {
		if fixed, ok := queryFixes[strings.ToLower(strings.TrimSpace(city))]; ok {
			l.DebugContext(ctx, "No results, retrying with fixed query", slog.String("fixed", fixed))
			results, err = s.search(ctx, fixed)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "geocoder retry failed")
				return types.Location{}, fmt.Errorf("geocoding %q: %w", city, err)
			}
		}
	}
	if len(results) == 0 {
		span.SetStatus(codes.Error, "city not found")
		return types.Location{}, types.ErrCityNotFound(city)
	}

	best := pickBestMatch(results, city)
	loc, err := parseLocation(best)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable geocoder result")
		return types.Location{}, fmt.Errorf("parsing geocoder result for %q: %w", city, err)
	}

	s.cache.Set(cacheKey, loc, cache.DefaultExpiration)
	l.InfoContext(ctx, "City resolved", slog.Float64("lat", loc.Lat), slog.Float64("lon", loc.Lon))
	span.SetStatus(codes.Ok, "city resolved")
	return loc, nil
}

func (s *ServiceImpl) search(ctx context.Context, query string) ([]nominatimResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "5")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, err
	}
	return results, nil
}

// pickBestMatch prefers a result whose address names the queried city;
// otherwise the provider's top-ranked result stands.
func pickBestMatch(results []nominatimResult, city string) nominatimResult {
	want := strings.ToLower(city)
	for _, r := range results {
		for _, field := range []string{"city", "town", "village", "state_district", "state"} {
			if v, ok := r.Address[field]; ok && strings.Contains(strings.ToLower(v), want) {
				return r
			}
		}
		if strings.Contains(strings.ToLower(r.DisplayName), want) {
			return r
		}
	}
	return results[0]
}

func parseLocation(r nominatimResult) (types.Location, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return types.Location{}, err
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return types.Location{}, err
	}
	loc := types.Location{Lat: lat, Lon: lon}
	if !loc.Valid() {
		return types.Location{}, fmt.Errorf("coordinates out of range: %v", loc)
	}
	return loc, nil
}

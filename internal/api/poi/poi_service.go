package poi

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api/geocoding"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service discovers points of interest for a city and interest set.
type Service interface {
	// Discover geocodes the city and returns candidate POIs with the resolved
	// city center. Results come from the commercial provider when configured,
	// with OpenStreetMap as the fallback.
	Discover(ctx context.Context, city string, interests []string) ([]types.POI, types.Location, error)
}

// Provider is a single POI source.
type Provider interface {
	Search(ctx context.Context, city string, center types.Location, interests []string, limit int) ([]types.POI, error)
}

// ServiceImpl chains the geocoder and the configured providers, caching the
// assembled result per (city, interests) for a day. POI data changes slowly;
// the cache is what keeps repeated planning turns for the same city cheap.
type ServiceImpl struct {
	logger   *slog.Logger
	geocoder geocoding.Service
	google   Provider
	overpass Provider
	cache    *cache.Cache
	limit    int
}

type cachedDiscovery struct {
	pois   []types.POI
	center types.Location
}

// NewServiceImpl creates the POI discovery service. google may be nil when no
// API key is configured.
func NewServiceImpl(geocoder geocoding.Service, google, overpass Provider, limit int, cacheTTL time.Duration, logger *slog.Logger) *ServiceImpl {
	if limit <= 0 {
		limit = 30
	}
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &ServiceImpl{
		logger:   logger,
		geocoder: geocoder,
		google:   google,
		overpass: overpass,
		cache:    cache.New(cacheTTL, cacheTTL),
		limit:    limit,
	}
}

// Discover implements the provider chain. The commercial provider is
// authoritative when it returns anything; OpenStreetMap fills in otherwise.
func (s *ServiceImpl) Discover(ctx context.Context, city string, interests []string) ([]types.POI, types.Location, error) {
	ctx, span := otel.Tracer("POIService").Start(ctx, "Discover", trace.WithAttributes(
		attribute.String("city", city),
		attribute.StringSlice("interests", interests),
	))
	defer span.End()

	city = NormalizeCity(city)
	l := s.logger.With(slog.String("method", "Discover"), slog.String("city", city))

	key := discoveryCacheKey(city, interests)
	if hit, found := s.cache.Get(key); found {
		cached := hit.(cachedDiscovery)
		span.SetStatus(codes.Ok, "cache hit")
		return cached.pois, cached.center, nil
	}

	center, err := s.geocoder.Resolve(ctx, city, CountryHint(city))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "geocoding failed")
		return nil, types.Location{}, err
	}

	pois := s.searchProviders(ctx, city, center, interests, l)
	pois = dedupePOIs(pois)
	sortByRating(pois)
	if len(pois) > s.limit {
		pois = pois[:s.limit]
	}
	if len(pois) == 0 {
		span.SetStatus(codes.Error, "no POIs found")
		return nil, center, types.ErrPOINotFound(city)
	}

	s.cache.Set(key, cachedDiscovery{pois: pois, center: center}, cache.DefaultExpiration)
	l.InfoContext(ctx, "POIs discovered", slog.Int("count", len(pois)))
	span.SetAttributes(attribute.Int("poi.count", len(pois)))
	span.SetStatus(codes.Ok, "discovered")
	return pois, center, nil
}

func (s *ServiceImpl) searchProviders(ctx context.Context, city string, center types.Location, interests []string, l *slog.Logger) []types.POI {
	if s.google != nil {
		pois, err := s.google.Search(ctx, city, center, interests, s.limit)
		if err != nil {
			l.WarnContext(ctx, "Primary POI provider failed, falling back", slog.Any("error", err))
		} else if len(pois) > 0 {
			return pois
		}
	}
	if s.overpass != nil {
		pois, err := s.overpass.Search(ctx, city, center, interests, s.limit)
		if err != nil {
			l.ErrorContext(ctx, "Fallback POI provider failed", slog.Any("error", err))
			return nil
		}
		return pois
	}
	return nil
}

// sortByRating orders rated POIs first, by rating then review count. Unrated
// OSM results keep their provider order at the tail.
func sortByRating(pois []types.POI) {
	sort.SliceStable(pois, func(i, j int) bool {
		if pois[i].Rating != pois[j].Rating {
			return pois[i].Rating > pois[j].Rating
		}
		return pois[i].UserRatingCount > pois[j].UserRatingCount
	})
}

func discoveryCacheKey(city string, interests []string) string {
	sorted := make([]string, len(interests))
	for i, v := range interests {
		sorted[i] = strings.ToLower(strings.TrimSpace(v))
	}
	sort.Strings(sorted)
	return fmt.Sprintf("%s|%s", strings.ToLower(city), strings.Join(sorted, ","))
}

package routing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Intra-city travel modes.
const (
	ModeWalking = "walking"
	ModeDriving = "driving"
	ModeTransit = "transit"
	ModeCycling = "cycling"
)

// Service estimates travel times between locations.
type Service interface {
	// TravelTime returns the door-to-door estimate in minutes, buffer
	// included. It never fails: when every router is down the haversine
	// estimate stands.
	TravelTime(ctx context.Context, from, to types.Location, mode string) int

	// Matrix returns pairwise travel minutes for the given locations.
	// result[i][j] is the time from locations[i] to locations[j].
	Matrix(ctx context.Context, locations []types.Location, mode string) ([][]int, error)
}

// Router is a single routing backend. Implementations return the raw travel
// duration without buffers; an error means the caller should try the next
// backend.
type Router interface {
	Route(ctx context.Context, from, to types.Location, mode string) (time.Duration, error)
}

// MatrixRouter is a backend that can answer many pairs in one call.
type MatrixRouter interface {
	RouteMatrix(ctx context.Context, origins, destinations []types.Location, mode string) ([][]time.Duration, error)
}

// ServiceImpl chains routers in preference order and falls back to a
// straight-line estimate. Estimates are cached for an hour keyed by rounded
// coordinates, so nearby requests within a planning session reuse results.
type ServiceImpl struct {
	logger  *slog.Logger
	routers []Router
	matrix  MatrixRouter
	cache   *cache.Cache
}

// NewServiceImpl creates the routing service. routers are tried in order;
// matrix may be nil, in which case Matrix computes pairs individually.
func NewServiceImpl(routers []Router, matrix MatrixRouter, cacheTTL time.Duration, logger *slog.Logger) *ServiceImpl {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &ServiceImpl{
		logger:  logger,
		routers: routers,
		matrix:  matrix,
		cache:   cache.New(cacheTTL, cacheTTL),
	}
}

// TravelTime implements the router chain.
func (s *ServiceImpl) TravelTime(ctx context.Context, from, to types.Location, mode string) int {
	mode = normalizeMode(mode)
	if from.IsZero() || to.IsZero() {
		return 0
	}

	key := pairCacheKey(from, to, mode)
	if hit, found := s.cache.Get(key); found {
		return hit.(int)
	}

	minutes := s.estimate(ctx, from, to, mode)
	s.cache.Set(key, minutes, cache.DefaultExpiration)
	return minutes
}

func (s *ServiceImpl) estimate(ctx context.Context, from, to types.Location, mode string) int {
	for _, r := range s.routers {
		d, err := r.Route(ctx, from, to, mode)
		if err != nil {
			s.logger.DebugContext(ctx, "Router failed, trying next",
				slog.String("mode", mode), slog.Any("error", err))
			continue
		}
		return withBuffer(int(math.Ceil(d.Minutes())), mode)
	}
	return withBuffer(haversineMinutes(from, to, mode), mode)
}

// Matrix batches through the matrix backend when available and the size is
// within its per-request element limit; otherwise it computes the upper
// triangle concurrently and mirrors it.
func (s *ServiceImpl) Matrix(ctx context.Context, locations []types.Location, mode string) ([][]int, error) {
	ctx, span := otel.Tracer("RoutingService").Start(ctx, "Matrix", trace.WithAttributes(
		attribute.Int("locations", len(locations)),
		attribute.String("mode", mode),
	))
	defer span.End()

	mode = normalizeMode(mode)
	n := len(locations)
	out := make([][]int, n)
	for i := range out {
		out[i] = make([]int, n)
	}
	if n < 2 {
		span.SetStatus(codes.Ok, "trivial")
		return out, nil
	}

	if s.matrix != nil && n <= 25 {
		durations, err := s.matrix.RouteMatrix(ctx, locations, locations, mode)
		if err == nil {
			for i := range durations {
				for j := range durations[i] {
					if i == j {
						continue
					}
					out[i][j] = withBuffer(int(math.Ceil(durations[i][j].Minutes())), mode)
				}
			}
			span.SetStatus(codes.Ok, "matrix backend")
			return out, nil
		}
		s.logger.WarnContext(ctx, "Matrix backend failed, computing pairwise", slog.Any("error", err))
		span.RecordError(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			i, j := i, j
			g.Go(func() error {
				minutes := s.TravelTime(gctx, locations[i], locations[j], mode)
				out[i][j] = minutes
				out[j][i] = minutes
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pairwise matrix failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "pairwise")
	return out, nil
}

// normalizeMode maps free-form mode strings onto the supported set,
// defaulting to driving.
func normalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeWalking, "walk", "foot", "on foot":
		return ModeWalking
	case ModeTransit, "public transport", "bus", "metro", "train":
		return ModeTransit
	case ModeCycling, "cycle", "bike", "bicycle":
		return ModeCycling
	default:
		return ModeDriving
	}
}

// speedKmh is the assumed average speed per mode for the straight-line
// fallback.
var speedKmh = map[string]float64{
	ModeWalking: 5,
	ModeDriving: 30,
	ModeTransit: 25,
	ModeCycling: 15,
}

// haversineMinutes estimates travel time from great-circle distance at the
// mode's average speed.
func haversineMinutes(from, to types.Location, mode string) int {
	const earthRadiusKm = 6371.0

	lat1 := from.Lat * math.Pi / 180
	lat2 := to.Lat * math.Pi / 180
	dLat := (to.Lat - from.Lat) * math.Pi / 180
	dLon := (to.Lon - from.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	distanceKm := earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	speed, ok := speedKmh[mode]
	if !ok {
		speed = speedKmh[ModeDriving]
	}
	return int(math.Ceil(distanceKm / speed * 60))
}

// withBuffer pads a raw estimate with a mode-dependent allowance for
// signals, parking, or waiting.
func withBuffer(minutes int, mode string) int {
	if minutes <= 0 {
		return 0
	}
	var buffer int
	switch mode {
	case ModeWalking:
		buffer = max(5, minutes*20/100)
	case ModeDriving:
		buffer = max(10, minutes*30/100)
	default:
		buffer = max(10, minutes*25/100)
	}
	return minutes + buffer
}

func pairCacheKey(from, to types.Location, mode string) string {
	return fmt.Sprintf("%.4f,%.4f|%.4f,%.4f|%s", from.Lat, from.Lon, to.Lat, to.Lon, mode)
}

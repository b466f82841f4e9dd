package poi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// GooglePlacesClient is the primary POI provider, backed by the Places text
// search API. Results carry ratings and review counts, which drive duration
// estimates and selection ordering downstream.
type GooglePlacesClient struct {
	logger  *slog.Logger
	client  *maps.Client
	limiter *rate.Limiter
}

// NewGooglePlacesClient builds the client from an API key. A nil client with
// nil error means no key was supplied and the caller should skip this
// provider.
func NewGooglePlacesClient(apiKey string, minInterval time.Duration, logger *slog.Logger) (*GooglePlacesClient, error) {
	if apiKey == "" {
		return nil, nil
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating maps client: %w", err)
	}
	if minInterval <= 0 {
		minInterval = 100 * time.Millisecond
	}
	return &GooglePlacesClient{
		logger:  logger,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}, nil
}

// Search runs one text search per interest and merges the results. Per-query
// failures are logged and skipped so one bad interest does not sink the rest.
func (c *GooglePlacesClient) Search(ctx context.Context, city string, center types.Location, interests []string, limit int) ([]types.POI, error) {
	l := c.logger.With(slog.String("method", "Search"), slog.String("city", city))

	queries := make([]string, 0, len(interests))
	for _, interest := range interests {
		if q, ok := placeTypeQueries[interest]; ok {
			queries = append(queries, q+" in "+city)
		} else {
			queries = append(queries, interest+" in "+city)
		}
	}
	if len(queries) == 0 {
		queries = []string{"top attractions in " + city}
	}

	var pois []types.POI
	for _, query := range queries {
		if err := c.limiter.Wait(ctx); err != nil {
			return pois, err
		}
		resp, err := c.client.TextSearch(ctx, &maps.TextSearchRequest{
			Query:    query,
			Location: &maps.LatLng{Lat: center.Lat, Lng: center.Lon},
			Radius:   10000,
		})
		if err != nil {
			l.WarnContext(ctx, "Places text search failed", slog.String("query", query), slog.Any("error", err))
			continue
		}
		for _, r := range resp.Results {
			if p, ok := placeToPOI(r); ok {
				pois = append(pois, p)
			}
		}
		if len(pois) >= limit*2 {
			break
		}
	}

	pois = dedupePOIs(pois)
	if len(pois) > limit {
		pois = pois[:limit]
	}
	return pois, nil
}

func placeToPOI(r maps.PlacesSearchResult) (types.POI, bool) {
	if r.Name == "" || r.PlaceID == "" {
		return types.POI{}, false
	}
	loc := types.Location{Lat: r.Geometry.Location.Lat, Lon: r.Geometry.Location.Lng}
	if !loc.Valid() || loc.IsZero() {
		return types.POI{}, false
	}
	category := categoryFromPlaceTypes(r.Types)
	return types.POI{
		Name:            r.Name,
		Category:        category,
		Location:        loc,
		DurationMinutes: types.EstimateDuration(category, float64(r.Rating), r.UserRatingsTotal),
		DataSource:      types.DataSourceGooglePlaces,
		SourceID:        "place_id:" + r.PlaceID,
		Rating:          float64(r.Rating),
		UserRatingCount: r.UserRatingsTotal,
		Description:     r.FormattedAddress,
	}, true
}

// categoryFromPlaceTypes maps Places API types onto internal categories,
// first match wins.
func categoryFromPlaceTypes(placeTypes []string) types.Category {
	for _, t := range placeTypes {
		switch t {
		case "restaurant", "cafe", "bakery", "meal_takeaway", "food":
			return types.CategoryRestaurant
		case "museum", "art_gallery":
			return types.CategoryMuseum
		case "bar", "night_club", "casino":
			return types.CategoryNightlife
		case "shopping_mall", "department_store", "store", "market":
			return types.CategoryShopping
		case "park", "zoo", "amusement_park":
			return types.CategoryPark
		case "natural_feature", "campground":
			return types.CategoryNature
		case "hindu_temple", "church", "mosque", "synagogue", "place_of_worship":
			return types.CategoryHistorical
		case "tourist_attraction", "point_of_interest", "landmark":
			return types.CategoryAttraction
		}
	}
	return types.CategoryAttraction
}

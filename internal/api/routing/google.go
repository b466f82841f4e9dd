package routing

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// GoogleRouter backs Route and RouteMatrix with the Directions and Distance
// Matrix APIs. It is the preferred backend when an API key is configured
// because it is the only one with real transit data.
type GoogleRouter struct {
	client *maps.Client
}

// NewGoogleRouter builds the router. A nil router with nil error means no
// key was supplied.
func NewGoogleRouter(apiKey string) (*GoogleRouter, error) {
	if apiKey == "" {
		return nil, nil
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating maps client: %w", err)
	}
	return &GoogleRouter{client: client}, nil
}

func googleMode(mode string) maps.Mode {
	switch mode {
	case ModeWalking:
		return maps.TravelModeWalking
	case ModeTransit:
		return maps.TravelModeTransit
	case ModeCycling:
		return maps.TravelModeBicycling
	default:
		return maps.TravelModeDriving
	}
}

func latLng(loc types.Location) string {
	return fmt.Sprintf("%f,%f", loc.Lat, loc.Lon)
}

// Route implements Router via the Directions API.
func (r *GoogleRouter) Route(ctx context.Context, from, to types.Location, mode string) (time.Duration, error) {
	routes, _, err := r.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      latLng(from),
		Destination: latLng(to),
		Mode:        googleMode(mode),
	})
	if err != nil {
		return 0, fmt.Errorf("directions request: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, fmt.Errorf("directions returned no routes")
	}

	var total time.Duration
	for _, leg := range routes[0].Legs {
		total += leg.Duration
	}
	return total, nil
}

// RouteMatrix implements MatrixRouter via the Distance Matrix API. Callers
// keep origins*destinations within the API's 25-element limit.
func (r *GoogleRouter) RouteMatrix(ctx context.Context, origins, destinations []types.Location, mode string) ([][]time.Duration, error) {
	originStrs := make([]string, len(origins))
	for i, o := range origins {
		originStrs[i] = latLng(o)
	}
	destStrs := make([]string, len(destinations))
	for i, d := range destinations {
		destStrs[i] = latLng(d)
	}

	resp, err := r.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      originStrs,
		Destinations: destStrs,
		Mode:         googleMode(mode),
	})
	if err != nil {
		return nil, fmt.Errorf("distance matrix request: %w", err)
	}
	if len(resp.Rows) != len(origins) {
		return nil, fmt.Errorf("distance matrix returned %d rows for %d origins", len(resp.Rows), len(origins))
	}

	out := make([][]time.Duration, len(origins))
	for i, row := range resp.Rows {
		out[i] = make([]time.Duration, len(destinations))
		for j, el := range row.Elements {
			if el.Status != "OK" {
				return nil, fmt.Errorf("distance matrix element (%d,%d) status %s", i, j, el.Status)
			}
			out[i][j] = el.Duration
		}
	}
	return out, nil
}

package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// OSRMRouter queries an OSRM instance's route endpoint. The public demo
// server only hosts the driving profile, so every mode maps onto a profile
// it actually serves; transit degrades to driving.
type OSRMRouter struct {
	client  *http.Client
	baseURL string
}

func NewOSRMRouter(baseURL string) *OSRMRouter {
	return &OSRMRouter{
		client:  &http.Client{Timeout: 8 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

func osrmProfile(mode string) string {
	switch mode {
	case ModeWalking:
		return "foot"
	case ModeCycling:
		return "bike"
	default:
		return "driving"
	}
}

// Route implements Router against /route/v1.
func (r *OSRMRouter) Route(ctx context.Context, from, to types.Location, mode string) (time.Duration, error) {
	u := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=false",
		r.baseURL, osrmProfile(mode), from.Lon, from.Lat, to.Lon, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("osrm returned status %d", resp.StatusCode)
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return 0, fmt.Errorf("osrm returned code %q with %d routes", body.Code, len(body.Routes))
	}
	return time.Duration(body.Routes[0].Duration * float64(time.Second)), nil
}

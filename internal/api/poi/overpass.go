package poi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// maxRegexValues caps the size of one regex-union tag filter so queries stay
// inside Overpass limits.
const maxRegexValues = 8

// OverpassClient queries the public Overpass API for OSM elements. The
// public endpoints are slow and frequently overloaded, so the client rotates
// through a host list, shrinks the search radius on gateway timeouts, and
// falls back to progressively broader queries when the targeted ones come
// back empty.
type OverpassClient struct {
	logger    *slog.Logger
	client    *http.Client
	endpoints []string
	limiter   *rate.Limiter
	radius    int
}

// OverpassOptions configures the client.
type OverpassOptions struct {
	Endpoints    []string
	MinInterval  time.Duration
	RadiusMeters int
}

// NewOverpassClient creates the fallback POI provider.
func NewOverpassClient(opts OverpassOptions, logger *slog.Logger) *OverpassClient {
	if len(opts.Endpoints) == 0 {
		opts.Endpoints = []string{"https://overpass-api.de/api/interpreter"}
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = 1200 * time.Millisecond
	}
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = 5000
	}
	return &OverpassClient{
		logger:    logger,
		client:    &http.Client{Timeout: 90 * time.Second},
		endpoints: opts.Endpoints,
		limiter:   rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		radius:    opts.RadiusMeters,
	}
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// Search runs the interest-targeted query, then broader fallbacks until
// something comes back. An empty slice with nil error means the city really
// has nothing matching.
func (c *OverpassClient) Search(ctx context.Context, city string, center types.Location, interests []string, limit int) ([]types.POI, error) {
	radius := c.radius
	if largeCities[strings.ToLower(city)] {
		radius = 7000
	}

	queries := []string{
		c.buildInterestQuery(center, interests, radius),
		c.buildBroadQuery(center, radius),
		c.buildNamedQuery(center, radius),
		c.buildVeryBroadQuery(center, min(radius, 3000)),
	}

	for qi, query := range queries {
		pois, err := c.runWithRetries(ctx, query, center, radius)
		if err != nil {
			c.logger.WarnContext(ctx, "Overpass query exhausted retries",
				slog.Int("query_index", qi), slog.Any("error", err))
			continue
		}
		if len(pois) > 0 {
			if len(pois) > limit {
				pois = pois[:limit]
			}
			return pois, nil
		}
	}
	return nil, nil
}

// runWithRetries executes one query, rotating endpoints and shrinking the
// radius by 30% then 50% when the server times out.
func (c *OverpassClient) runWithRetries(ctx context.Context, query string, center types.Location, radius int) ([]types.POI, error) {
	shrinks := []float64{1.0, 0.7, 0.5}
	var lastErr error

	for attempt, factor := range shrinks {
		// Each attempt derives its radius from the original query, so the
		// 50% shrink does not look for the already-replaced 70% value.
		attemptQuery := query
		if attempt > 0 {
			// Escalating pause before hitting the next mirror.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 2 * time.Second):
			}
			attemptQuery = shrinkRadius(query, radius, int(float64(radius)*factor))
		}

		endpoint := c.endpoints[attempt%len(c.endpoints)]
		elements, err := c.execute(ctx, endpoint, attemptQuery)
		if err != nil {
			lastErr = err
			continue
		}
		return c.parseElements(elements), nil
	}
	return nil, lastErr
}

// shrinkRadius rewrites every around clause of a query from the original
// radius to the shrunk one.
func shrinkRadius(query string, orig, shrunk int) string {
	return strings.ReplaceAll(query,
		fmt.Sprintf("around:%d,", orig),
		fmt.Sprintf("around:%d,", shrunk))
}

func (c *OverpassClient) execute(ctx context.Context, endpoint, query string) ([]overpassElement, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("overpass endpoint %s returned status %d", endpoint, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass endpoint %s returned status %d", endpoint, resp.StatusCode)
	}

	var body overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Elements, nil
}

func (c *OverpassClient) parseElements(elements []overpassElement) []types.POI {
	pois := make([]types.POI, 0, len(elements))
	for _, el := range elements {
		name := nameFromTags(el.Tags)
		if name == "" {
			continue
		}

		loc := types.Location{Lat: el.Lat, Lon: el.Lon}
		if loc.IsZero() && el.Center != nil {
			loc = types.Location{Lat: el.Center.Lat, Lon: el.Center.Lon}
		}
		if loc.IsZero() || !loc.Valid() {
			continue
		}

		category := categoryFromTags(el.Tags)
		pois = append(pois, types.POI{
			Name:            name,
			Category:        category,
			Location:        loc,
			DurationMinutes: types.EstimateDuration(category, 0, 0),
			DataSource:      types.DataSourceOpenStreetMap,
			SourceID:        fmt.Sprintf("%s:%d", el.Type, el.ID),
			Description:     el.Tags["description"],
			OpeningHours:    el.Tags["opening_hours"],
		})
	}
	return pois
}

// queryTimeout scales with radius; the public servers kill anything longer.
func queryTimeout(radius int) int {
	t := 30 + radius/1000
	if t > 60 {
		t = 60
	}
	return t
}

func (c *OverpassClient) buildInterestQuery(center types.Location, interests []string, radius int) string {
	var filters []osmTagFilter
	for _, interest := range interests {
		if f, ok := interestTagFilters[strings.ToLower(interest)]; ok {
			filters = append(filters, f...)
		}
	}
	if len(filters) == 0 {
		filters = defaultTagFilters
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", queryTimeout(radius))
	for _, f := range filters {
		b.WriteString(tagClause(center, radius, f))
	}
	b.WriteString(");\nout center 60;")
	return b.String()
}

func (c *OverpassClient) buildBroadQuery(center types.Location, radius int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", queryTimeout(radius))
	for _, key := range []string{"tourism", "amenity", "historic"} {
		b.WriteString(tagClause(center, radius, osmTagFilter{key: key}))
	}
	b.WriteString(");\nout center 60;")
	return b.String()
}

func (c *OverpassClient) buildNamedQuery(center types.Location, radius int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", queryTimeout(radius))
	for _, key := range []string{"tourism", "amenity"} {
		fmt.Fprintf(&b, "  nwr(around:%d,%.6f,%.6f)[%q][\"name\"];\n", radius, center.Lat, center.Lon, key)
	}
	b.WriteString(");\nout center 60;")
	return b.String()
}

func (c *OverpassClient) buildVeryBroadQuery(center types.Location, radius int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", queryTimeout(radius))
	for _, key := range []string{"tourism", "amenity", "shop", "historic"} {
		fmt.Fprintf(&b, "  nwr(around:%d,%.6f,%.6f)[%q][\"name\"];\n", radius, center.Lat, center.Lon, key)
	}
	b.WriteString(");\nout center 50;")
	return b.String()
}

// tagClause renders one nwr filter line, batching values into regex unions
// of at most maxRegexValues.
func tagClause(center types.Location, radius int, f osmTagFilter) string {
	var b strings.Builder
	if len(f.values) == 0 {
		fmt.Fprintf(&b, "  nwr(around:%d,%.6f,%.6f)[%q];\n", radius, center.Lat, center.Lon, f.key)
		return b.String()
	}
	for start := 0; start < len(f.values); start += maxRegexValues {
		end := min(start+maxRegexValues, len(f.values))
		union := strings.Join(f.values[start:end], "|")
		fmt.Fprintf(&b, "  nwr(around:%d,%.6f,%.6f)[%q~\"^(%s)$\"];\n", radius, center.Lat, center.Lon, f.key, union)
	}
	return b.String()
}

package tips

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

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Tip is one retrieved travel-guide snippet.
type Tip struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	URL     string `json:"url"`
}

// Service retrieves destination context from a community travel guide.
type Service interface {
	// Retrieve returns up to k guide snippets relevant to the city and query.
	Retrieve(ctx context.Context, city, query string, k int) ([]Tip, error)

	// IndoorAlternatives returns snippets about indoor options, used when a
	// forecast pushes activities out of the rain.
	IndoorAlternatives(ctx context.Context, city string) ([]Tip, error)
}

// ServiceImpl fronts the Wikivoyage MediaWiki API: a full-text search
// followed by a plain-text extract fetch for the matched pages.
type ServiceImpl struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL string
	cache   *cache.Cache
}

// NewServiceImpl creates the travel-guide client.
func NewServiceImpl(baseURL string, cacheTTL time.Duration, logger *slog.Logger) *ServiceImpl {
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &ServiceImpl{
		logger:  logger,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   cache.New(cacheTTL, cacheTTL),
	}
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title  string `json:"title"`
			PageID int    `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// Retrieve implements the search-then-extract flow.
func (s *ServiceImpl) Retrieve(ctx context.Context, city, query string, k int) ([]Tip, error) {
	if k <= 0 {
		k = 3
	}
	l := s.logger.With(slog.String("method", "Retrieve"), slog.String("city", city))

	search := strings.TrimSpace(city + " " + query)
	key := strings.ToLower(search) + "|" + strconv.Itoa(k)
	if hit, found := s.cache.Get(key); found {
		return hit.([]Tip), nil
	}

	titles, err := s.search(ctx, search, k)
	if err != nil {
		l.WarnContext(ctx, "Guide search failed", slog.Any("error", err))
		return nil, fmt.Errorf("guide search %q: %w", search, err)
	}
	if len(titles) == 0 {
		s.cache.Set(key, []Tip(nil), cache.DefaultExpiration)
		return nil, nil
	}

	tips, err := s.extracts(ctx, titles)
	if err != nil {
		return nil, fmt.Errorf("guide extracts: %w", err)
	}

	s.cache.Set(key, tips, cache.DefaultExpiration)
	l.DebugContext(ctx, "Guide snippets retrieved", slog.Int("count", len(tips)))
	return tips, nil
}

// IndoorAlternatives pulls indoor-focused snippets.
func (s *ServiceImpl) IndoorAlternatives(ctx context.Context, city string) ([]Tip, error) {
	return s.Retrieve(ctx, city, "museums galleries indoor attractions", 3)
}

func (s *ServiceImpl) search(ctx context.Context, query string, k int) ([]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(k))
	params.Set("format", "json")

	var body searchResponse
	if err := s.get(ctx, params, &body); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(body.Query.Search))
	for _, r := range body.Query.Search {
		titles = append(titles, r.Title)
	}
	return titles, nil
}

// extractChars bounds snippet size so prompts stay small.
const extractChars = 1200

func (s *ServiceImpl) extracts(ctx context.Context, titles []string) ([]Tip, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("exintro", "1")
	params.Set("exchars", strconv.Itoa(extractChars))
	params.Set("titles", strings.Join(titles, "|"))
	params.Set("format", "json")

	var body extractResponse
	if err := s.get(ctx, params, &body); err != nil {
		return nil, err
	}

	byTitle := make(map[string]string, len(body.Query.Pages))
	for _, p := range body.Query.Pages {
		if p.Extract != "" {
			byTitle[p.Title] = p.Extract
		}
	}

	// Preserve search ranking order.
	tips := make([]Tip, 0, len(titles))
	for _, title := range titles {
		extract, found := byTitle[title]
		if !found {
			continue
		}
		tips = append(tips, Tip{
			Title:   title,
			Extract: extract,
			URL:     pageURL(s.baseURL, title),
		})
	}
	return tips, nil
}

func (s *ServiceImpl) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("guide API returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// snippet shortens an extract for citation payloads.
func snippet(extract string) string {
	const limit = 200
	if len(extract) <= limit {
		return extract
	}
	cut := extract[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// pageURL derives the article URL from the API endpoint.
func pageURL(apiBase, title string) string {
	base := strings.TrimSuffix(apiBase, "/w/api.php")
	return base + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

// SourcesFromTips converts snippets to citation sources.
func SourcesFromTips(tips []Tip) []types.Source {
	out := make([]types.Source, 0, len(tips))
	for _, t := range tips {
		out = append(out, types.Source{
			Type:    types.SourceTypeWikivoyage,
			Name:    t.Title,
			URL:     t.URL,
			Snippet: snippet(t.Extract),
		})
	}
	return out
}

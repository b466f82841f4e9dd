package generativeAI

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"google.golang.org/genai"
)

// Ensure implementation satisfies the interface
var _ Generator = (*AIClient)(nil)

// Generator is the text-generation contract the planning services depend on.
// Callers choose a fast model for structured extraction and classification
// and a quality model for itinerary prose and explanations.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GenerateOptions tunes a single completion.
type GenerateOptions struct {
	Model        string // empty means the quality model
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	NoCache      bool
}

// AIClient wraps the Gemini API with model routing and an identical-prompt
// response cache. Extraction and classification prompts repeat often within
// a session, so a short-TTL cache saves a meaningful share of calls.
type AIClient struct {
	client       *genai.Client
	fastModel    string
	qualityModel string
	logger       *slog.Logger
	cache        *cache.Cache
}

// Config for the AI client.
type Config struct {
	FastModel    string
	QualityModel string
	CacheTTL     time.Duration
}

// NewAIClient creates the Gemini-backed client. The API key comes from the
// GOOGLE_GEMINI_API_KEY environment variable.
func NewAIClient(ctx context.Context, cfg Config, logger *slog.Logger) (*AIClient, error) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY environment variable is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if cfg.FastModel == "" {
		cfg.FastModel = "gemini-2.0-flash-lite"
	}
	if cfg.QualityModel == "" {
		cfg.QualityModel = "gemini-2.0-flash"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &AIClient{
		client:       client,
		fastModel:    cfg.FastModel,
		qualityModel: cfg.QualityModel,
		logger:       logger,
		cache:        cache.New(cfg.CacheTTL, cfg.CacheTTL),
	}, nil
}

// FastModel returns the model name routed for extraction and classification.
func (ai *AIClient) FastModel() string { return ai.fastModel }

// GenerateText runs one completion and returns the concatenated text parts.
func (ai *AIClient) GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = ai.qualityModel
	}

	key := ""
	if !opts.NoCache {
		key = cacheKey(model, opts.SystemPrompt, prompt, opts.Temperature, opts.MaxTokens)
		if hit, found := ai.cache.Get(key); found {
			ai.logger.DebugContext(ctx, "LLM cache hit", slog.String("model", model))
			return hit.(string), nil
		}
	}

	config := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		config.Temperature = genai.Ptr(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(clampTokens(prompt, opts.SystemPrompt, opts.MaxTokens))
	}
	if opts.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: opts.SystemPrompt}}}
	}

	result, err := ai.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content (%s): %w", model, err)
	}
	text := result.Text()

	if key != "" {
		ai.cache.Set(key, text, cache.DefaultExpiration)
	}
	return text, nil
}

// contextWindow is a conservative floor across the routed models.
const contextWindow = 131072

// clampTokens shrinks the output budget when the prompt grows large enough
// to threaten the model's context window, keeping at least 1000 tokens of
// input headroom. Token count is estimated at ~1.3 tokens per word.
func clampTokens(prompt, system string, maxTokens int) int {
	estimatedInput := int(float64(wordCount(prompt)+wordCount(system)) * 1.3)
	available := contextWindow - estimatedInput - 1000
	if available < 500 {
		available = 500
	}
	if maxTokens > available {
		return available
	}
	return maxTokens
}

func wordCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

func cacheKey(model, system, prompt string, temp float32, maxTokens int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%.2f|%d", model, system, prompt, temp, maxTokens)
	return hex.EncodeToString(h.Sum(nil))
}

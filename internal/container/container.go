package container

import (
	"context"
	"log/slog"
	"os"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/api/edit"
	"github.com/FACorreiaa/go-trip-planner/internal/api/evaluation"
	"github.com/FACorreiaa/go-trip-planner/internal/api/explanation"
	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/api/geocoding"
	"github.com/FACorreiaa/go-trip-planner/internal/api/intent"
	"github.com/FACorreiaa/go-trip-planner/internal/api/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/api/planner"
	"github.com/FACorreiaa/go-trip-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-planner/internal/api/routing"
	"github.com/FACorreiaa/go-trip-planner/internal/api/session"
	"github.com/FACorreiaa/go-trip-planner/internal/api/tips"
	"github.com/FACorreiaa/go-trip-planner/internal/api/weather"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *slog.Logger
	Sessions       session.Store
	PlannerHandler *planner.Handler
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	// Generative AI client, shared by itinerary building, intent parsing,
	// edit parsing, and free-form explanations.
	aiClient, err := generativeAI.NewAIClient(ctx, generativeAI.Config{
		FastModel:    cfg.LLM.FastModel,
		QualityModel: cfg.LLM.QualityModel,
		CacheTTL:     cfg.Cache.LLMTTL,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize AI client", slog.Any("error", err))
		return nil, err
	}

	// Place discovery providers
	geocoder := geocoding.NewServiceImpl(geocoding.Options{
		BaseURL:     cfg.Providers.Nominatim.BaseURL,
		UserAgent:   cfg.Providers.Nominatim.UserAgent,
		MinInterval: cfg.Providers.Nominatim.MinInterval,
		CacheTTL:    cfg.Cache.GeocodeTTL,
	}, logger)

	overpassClient := poi.NewOverpassClient(poi.OverpassOptions{
		Endpoints:    cfg.Providers.Overpass.Endpoints,
		MinInterval:  cfg.Providers.Overpass.MinInterval,
		RadiusMeters: cfg.Providers.Overpass.RadiusMeters,
	}, logger)

	// Google providers are optional; without an API key the service leans on
	// the open-data providers alone.
	mapsKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	var googlePlaces poi.Provider
	if placesClient, err := poi.NewGooglePlacesClient(mapsKey, cfg.Providers.GoogleMaps.MinInterval, logger); err != nil {
		logger.Warn("Google Places unavailable", slog.Any("error", err))
	} else if placesClient != nil {
		googlePlaces = placesClient
	}

	poiService := poi.NewServiceImpl(geocoder, googlePlaces, overpassClient,
		cfg.Planner.POISearchLimit, cfg.Cache.POITTL, logger)

	// Routing: Google Directions first when configured, OSRM as the open
	// fallback, haversine estimates as the last resort inside the service.
	var (
		routers      []routing.Router
		matrixRouter routing.MatrixRouter
	)
	if googleRouter, err := routing.NewGoogleRouter(mapsKey); err != nil {
		logger.Warn("Google Directions unavailable", slog.Any("error", err))
	} else if googleRouter != nil {
		routers = append(routers, googleRouter)
		matrixRouter = googleRouter
	}
	routers = append(routers, routing.NewOSRMRouter(cfg.Providers.OSRM.BaseURL))
	routingService := routing.NewServiceImpl(routers, matrixRouter, cfg.Cache.RouteTTL, logger)

	weatherService := weather.NewServiceImpl(cfg.Providers.OpenMeteo.BaseURL, cfg.Cache.POITTL, logger)
	tipsService := tips.NewServiceImpl(cfg.Providers.Wikivoyage.BaseURL, cfg.Cache.POITTL, logger)

	// Planning core
	builderService := itinerary.NewServiceImpl(aiClient, routingService, logger)
	editService := edit.NewServiceImpl(aiClient, builderService, cfg.Edit.PaceRebalance, logger)
	intentService := intent.NewServiceImpl(aiClient, logger)
	evaluationService := evaluation.NewServiceImpl(logger)
	explanationService := explanation.NewServiceImpl(aiClient, tipsService, logger)

	sessions := session.NewInMemoryStore(cfg.Session.TTL, logger)

	plannerService := planner.NewServiceImpl(
		sessions,
		intentService,
		poiService,
		builderService,
		editService,
		explanationService,
		weatherService,
		evaluationService,
		planner.Options{
			MaxClarifyingQuestions: cfg.Session.MaxClarifyingQuestions,
			MaxSources:             cfg.Planner.MaxSources,
		},
		logger,
	)

	plannerHandler := planner.NewPlannerHandler(plannerService, sessions, logger)

	return &Container{
		Config:         cfg,
		Logger:         logger,
		Sessions:       sessions,
		PlannerHandler: plannerHandler,
	}, nil
}

package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	TurnCounter           metric.Int64Counter
	TurnDuration          metric.Float64Histogram
	ItinerariesBuilt      metric.Int64Counter
	ProviderErrorsTotal   metric.Int64Counter
	ProviderCallDuration  metric.Float64Histogram
	CacheHitsTotal        metric.Int64Counter
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// WithIntent labels a measurement with the classified turn intent.
func WithIntent(intent string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("intent", intent))
}

// WithProvider labels a measurement with an upstream provider name.
func WithProvider(provider string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("provider", provider))
}

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() { // Ensure this only runs once
		meter := otel.GetMeterProvider().Meter("TripPlanner") // Get meter from global provider
		var err error
		m := &AppMetrics{}

		m.TurnCounter, err = meter.Int64Counter(
			"planner_turns_total",
			metric.WithDescription("Total number of conversation turns handled"),
			metric.WithUnit("{turn}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create planner_turns_total: %v", err)
		}

		m.TurnDuration, err = meter.Float64Histogram(
			"planner_turn_duration_seconds",
			metric.WithDescription("Duration of conversation turns in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create planner_turn_duration_seconds: %v", err)
		}

		m.ItinerariesBuilt, err = meter.Int64Counter(
			"itineraries_built_total",
			metric.WithDescription("Total number of itineraries generated"),
			metric.WithUnit("{itinerary}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itineraries_built_total: %v", err)
		}

		m.ProviderErrorsTotal, err = meter.Int64Counter(
			"provider_errors_total",
			metric.WithDescription("Total number of upstream provider errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_errors_total: %v", err)
		}

		m.ProviderCallDuration, err = meter.Float64Histogram(
			"provider_call_duration_seconds",
			metric.WithDescription("Duration of upstream provider calls in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_call_duration_seconds: %v", err)
		}

		m.CacheHitsTotal, err = meter.Int64Counter(
			"cache_hits_total",
			metric.WithDescription("Total number of cache hits across providers"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create cache_hits_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m // Assign to global variable
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		// This indicates a programming error - InitAppMetrics must be called at startup.
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}

package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Providers struct {
		Nominatim struct {
			BaseURL     string        `mapstructure:"baseURL"`
			UserAgent   string        `mapstructure:"userAgent"`
			MinInterval time.Duration `mapstructure:"minInterval"`
		} `mapstructure:"nominatim"`
		Overpass struct {
			Endpoints    []string      `mapstructure:"endpoints"`
			MinInterval  time.Duration `mapstructure:"minInterval"`
			RadiusMeters int           `mapstructure:"radiusMeters"`
		} `mapstructure:"overpass"`
		GoogleMaps struct {
			MinInterval time.Duration `mapstructure:"minInterval"`
		} `mapstructure:"googleMaps"`
		OSRM struct {
			BaseURL string `mapstructure:"baseURL"`
		} `mapstructure:"osrm"`
		OpenMeteo struct {
			BaseURL string `mapstructure:"baseURL"`
		} `mapstructure:"openMeteo"`
		Wikivoyage struct {
			BaseURL string `mapstructure:"baseURL"`
		} `mapstructure:"wikivoyage"`
	} `mapstructure:"providers"`
	LLM struct {
		FastModel    string  `mapstructure:"fastModel"`
		QualityModel string  `mapstructure:"qualityModel"`
		Temperature  float32 `mapstructure:"temperature"`
		MaxTokens    int     `mapstructure:"maxTokens"`
	} `mapstructure:"llm"`
	Cache struct {
		MaxEntries int           `mapstructure:"maxEntries"`
		POITTL     time.Duration `mapstructure:"poiTTL"`
		RouteTTL   time.Duration `mapstructure:"routeTTL"`
		GeocodeTTL time.Duration `mapstructure:"geocodeTTL"`
		LLMTTL     time.Duration `mapstructure:"llmTTL"`
	} `mapstructure:"cache"`
	Session struct {
		TTL                    time.Duration `mapstructure:"ttl"`
		MaxClarifyingQuestions int           `mapstructure:"maxClarifyingQuestions"`
	} `mapstructure:"session"`
	Planner struct {
		POISearchLimit int    `mapstructure:"poiSearchLimit"`
		DayStart       string `mapstructure:"dayStart"`
		DayEnd         string `mapstructure:"dayEnd"`
		MaxSources     int    `mapstructure:"maxSources"`
	} `mapstructure:"planner"`
	Edit struct {
		PaceRebalance string `mapstructure:"paceRebalance"`
	} `mapstructure:"edit"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}

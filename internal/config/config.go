// Package config loads the engine's runtime configuration from environment
// variables (with an optional .env file), the only place base URLs, timeouts,
// and server settings are declared outside compiled-in defaults. Grounded on
// the teacher's godotenv-backed Load()/getEnv() shape.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all engine configuration.
type Config struct {
	Server  ServerConfig
	Weather WeatherConfig
	Cache   CacheConfig
}

// ServerConfig holds REST-server settings.
type ServerConfig struct {
	Port    string
	GinMode string
	CORS    CORSConfig
}

// CORSConfig holds CORS middleware settings.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// WeatherConfig holds the upstream Open-Meteo endpoints and fetch policy.
// BaseURL overrides exist so the test suite can point the engine at an
// httptest server instead of the public API, per spec §9's pluggable
// endpoints requirement.
type WeatherConfig struct {
	ForecastBaseURL  string
	GeocodingBaseURL string
	RequestTimeout   time.Duration
	MaxRetries       int
}

// CacheConfig holds the in-process forecast cache's sizing and TTL policy.
type CacheConfig struct {
	TTL           time.Duration
	MaxEntries    int
	SweepInterval time.Duration
}

// Load reads configuration from environment variables, loading a .env file
// first if one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "release"),
			CORS: CORSConfig{
				AllowOrigins:     []string{"*"},
				AllowMethods:     []string{"GET", "POST", "OPTIONS"},
				AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
				ExposeHeaders:    []string{"Content-Length"},
				AllowCredentials: false,
				MaxAge:           12 * time.Hour,
			},
		},
		Weather: WeatherConfig{
			ForecastBaseURL:  getEnv("OPEN_METEO_FORECAST_URL", ""),
			GeocodingBaseURL: getEnv("OPEN_METEO_GEOCODING_URL", ""),
			RequestTimeout:   getEnvAsDuration("OPEN_METEO_TIMEOUT", 30*time.Second),
			MaxRetries:       getEnvAsInt("OPEN_METEO_MAX_RETRIES", 1),
		},
		Cache: CacheConfig{
			TTL:           getEnvAsDuration("CACHE_TTL", 10*time.Minute),
			MaxEntries:    getEnvAsInt("CACHE_MAX_ENTRIES", 200),
			SweepInterval: getEnvAsDuration("CACHE_SWEEP_INTERVAL", 5*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is well formed. Base URL
// overrides are optional — an empty value tells each client to fall back to
// its compiled-in public endpoint.
func (c *Config) Validate() error {
	if c.Weather.RequestTimeout <= 0 {
		return fmt.Errorf("OPEN_METEO_TIMEOUT must be positive")
	}
	if c.Weather.MaxRetries < 0 {
		return fmt.Errorf("OPEN_METEO_MAX_RETRIES must not be negative")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

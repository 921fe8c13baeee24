package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Web search back-ends selectable with WEB_SEARCH_PROVIDER.
const (
	WebProviderDuckDuckGo = "duckduckgo"
	WebProviderSerpAPI    = "serpapi"
	WebProviderTavily     = "tavily"
)

// Config holds all application configuration
type Config struct {
	HTTPAddr       string
	LogLevel       string
	LogDevelopment bool

	RequestTimeout time.Duration
	WebProvider    string
	WebMaxResults  int
	NewsMaxResults int
	ProviderRPS    float64

	SerpAPIKey   string
	TavilyAPIKey string

	HistoryCSVURL      string
	HistoryRefreshSpec string

	SessionSecret string
	SessionTTL    time.Duration

	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogDevelopment:     getEnvBool("LOG_DEVELOPMENT", false),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		WebProvider:        strings.ToLower(getEnv("WEB_SEARCH_PROVIDER", WebProviderDuckDuckGo)),
		WebMaxResults:      getEnvInt("WEB_MAX_RESULTS", 10),
		NewsMaxResults:     getEnvInt("NEWS_MAX_RESULTS", 30),
		ProviderRPS:        getEnvFloat("PROVIDER_RPS", 2),
		SerpAPIKey:         os.Getenv("SERPAPI_API_KEY"),
		TavilyAPIKey:       os.Getenv("TAVILY_API_KEY"),
		HistoryCSVURL:      os.Getenv("HISTORY_CSV_URL"),
		HistoryRefreshSpec: getEnv("HISTORY_REFRESH_SPEC", "@every 30m"),
		SessionSecret:      getEnv("SESSION_SECRET", "dev-session-secret"),
		SessionTTL:         time.Duration(getEnvInt("SESSION_TTL_MINUTES", 240)) * time.Minute,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		CacheTTL:           time.Duration(getEnvInt("CACHE_TTL_SECONDS", 600)) * time.Second,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	switch c.WebProvider {
	case WebProviderDuckDuckGo:
	case WebProviderSerpAPI:
		if c.SerpAPIKey == "" {
			return fmt.Errorf("WEB_SEARCH_PROVIDER=serpapi requires SERPAPI_API_KEY")
		}
	case WebProviderTavily:
		if c.TavilyAPIKey == "" {
			return fmt.Errorf("WEB_SEARCH_PROVIDER=tavily requires TAVILY_API_KEY")
		}
	default:
		return fmt.Errorf("unknown WEB_SEARCH_PROVIDER %q", c.WebProvider)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if c.WebMaxResults <= 0 || c.NewsMaxResults <= 0 {
		return fmt.Errorf("WEB_MAX_RESULTS and NEWS_MAX_RESULTS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

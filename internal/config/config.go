package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Server struct {
		Port         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		LogLevel     string
	}

	WeatherAPI struct {
		OpenWeatherAPIKey string
		WeatherURL        string
		GeocodingURL      string
		SuggestionLimit   int
	}

	Client struct {
		ProxyURL        string
		RequestTimeout  time.Duration
		Debounce        time.Duration
		HistoryCapacity int
		StoragePath     string
	}

	Cache struct {
		Duration        time.Duration
		MaxSize         int
		RedisAddr       string
		RedisPassword   string
		RedisDB         int
		CleanupSchedule string
	}

	CircuitBreaker struct {
		Threshold int
		Timeout   time.Duration
	}

	Retry struct {
		MaxRetries int
		Delay      time.Duration
		Multiplier float64
	}

	RateLimit struct {
		RPS   float64
		Burst int
	}
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("No .env file found, using environment variables")
	}

	cfg := &Config{}

	// Server configuration
	cfg.Server.Port = getEnv("PORT", "8080")
	cfg.Server.ReadTimeout = parseDuration(getEnv("SERVER_READ_TIMEOUT", "10s"))
	cfg.Server.WriteTimeout = parseDuration(getEnv("SERVER_WRITE_TIMEOUT", "15s"))
	cfg.Server.LogLevel = getEnv("LOG_LEVEL", "info")

	// Upstream provider configuration
	cfg.WeatherAPI.OpenWeatherAPIKey = getEnv("OPENWEATHER_API_KEY", "")
	cfg.WeatherAPI.WeatherURL = getEnv("OPENWEATHER_URL", "https://api.openweathermap.org/data/2.5")
	cfg.WeatherAPI.GeocodingURL = getEnv("GEOCODING_URL", "https://api.openweathermap.org/geo/1.0")
	cfg.WeatherAPI.SuggestionLimit = parseInt(getEnv("SUGGESTION_LIMIT", "5"))

	// Terminal client configuration
	cfg.Client.ProxyURL = getEnv("WEATHER_PROXY_URL", "http://localhost:8080")
	cfg.Client.RequestTimeout = parseDuration(getEnv("REQUEST_TIMEOUT", "10s"))
	cfg.Client.Debounce = parseDuration(getEnv("DEBOUNCE", "300ms"))
	cfg.Client.HistoryCapacity = parseInt(getEnv("HISTORY_CAPACITY", "5"))
	cfg.Client.StoragePath = getEnv("STORAGE_PATH", defaultStoragePath())

	// Suggestion cache configuration
	cfg.Cache.Duration = parseDuration(getEnv("CACHE_DURATION", "10m"))
	cfg.Cache.MaxSize = parseInt(getEnv("MAX_CACHE_SIZE", "1000"))
	cfg.Cache.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.Cache.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.Cache.RedisDB = parseInt(getEnv("REDIS_DB", "0"))
	cfg.Cache.CleanupSchedule = getEnv("CACHE_CLEANUP_SCHEDULE", "@every 1m")

	// Circuit breaker configuration
	cfg.CircuitBreaker.Threshold = parseInt(getEnv("CIRCUIT_BREAKER_THRESHOLD", "3"))
	cfg.CircuitBreaker.Timeout = parseDuration(getEnv("CIRCUIT_BREAKER_TIMEOUT", "30s"))

	// Retry configuration
	cfg.Retry.MaxRetries = parseInt(getEnv("MAX_RETRIES", "2"))
	cfg.Retry.Delay = parseDuration(getEnv("RETRY_DELAY", "500ms"))
	cfg.Retry.Multiplier = parseFloat(getEnv("RETRY_MULTIPLIER", "2"))

	// Upstream rate limit (free OpenWeatherMap tier allows 60 calls/minute)
	cfg.RateLimit.RPS = parseFloat(getEnv("UPSTREAM_RPS", "1"))
	cfg.RateLimit.Burst = parseInt(getEnv("UPSTREAM_BURST", "10"))

	return cfg, nil
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "weather-lookup", "storage.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(value string) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		zap.L().Warn("Failed to parse duration", zap.String("value", value), zap.Error(err))
		return 0
	}
	return duration
}

func parseInt(value string) int {
	intValue, err := strconv.Atoi(value)
	if err != nil {
		zap.L().Warn("Failed to parse int", zap.String("value", value), zap.Error(err))
		return 0
	}
	return intValue
}

func parseFloat(value string) float64 {
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		zap.L().Warn("Failed to parse float", zap.String("value", value), zap.Error(err))
		return 0
	}
	return floatValue
}

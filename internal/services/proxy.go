package services

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bobby-s-dev/weather-lookup/internal/apperr"
	"github.com/bobby-s-dev/weather-lookup/internal/config"
	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"github.com/bobby-s-dev/weather-lookup/pkg/client"
	"go.uber.org/zap"
)

// DefaultSuggestionLimit caps the number of geocoding matches returned per query.
const DefaultSuggestionLimit = 5

// MinSuggestionQuery is the shortest trimmed query the geocoder is asked about.
const MinSuggestionQuery = 2

// Upstream is the weather provider behind the proxy.
type Upstream interface {
	GetCurrentWeather(ctx context.Context, city string) (*models.WeatherResult, error)
	Geocode(ctx context.Context, query string, limit int) ([]models.Suggestion, error)
}

// Proxy forwards lookups to the upstream provider so that the credential
// never leaves the server, and caches geocoding results.
type Proxy struct {
	upstream        Upstream
	cache           SuggestionCache
	logger          *zap.Logger
	suggestionLimit int
	startTime       time.Time

	mu             sync.RWMutex
	lastFetchTime  time.Time
	successCount   int
	failureCount   int
	geocodeCount   int
	geocodeFailure int
}

func NewProxy(cfg *config.Config, cache SuggestionCache, logger *zap.Logger) *Proxy {
	clientConfig := client.ClientConfig{
		Timeout:        10 * time.Second,
		MaxRetries:     cfg.Retry.MaxRetries,
		RetryDelay:     cfg.Retry.Delay,
		Multiplier:     cfg.Retry.Multiplier,
		Threshold:      cfg.CircuitBreaker.Threshold,
		BreakerTimeout: cfg.CircuitBreaker.Timeout,
		RPS:            cfg.RateLimit.RPS,
		Burst:          cfg.RateLimit.Burst,
	}

	if cfg.WeatherAPI.OpenWeatherAPIKey == "" {
		logger.Warn("OPENWEATHER_API_KEY is not set, lookups will fail with a configuration error")
	}

	upstream := client.NewOpenWeatherClient(cfg.WeatherAPI.OpenWeatherAPIKey, clientConfig, logger).
		WithBaseURLs(cfg.WeatherAPI.WeatherURL, cfg.WeatherAPI.GeocodingURL)
	logger.Info("OpenWeatherMap client initialized")

	return NewProxyWithUpstream(upstream, cache, cfg.WeatherAPI.SuggestionLimit, logger)
}

func NewProxyWithUpstream(upstream Upstream, cache SuggestionCache, suggestionLimit int, logger *zap.Logger) *Proxy {
	if suggestionLimit <= 0 {
		suggestionLimit = DefaultSuggestionLimit
	}
	return &Proxy{
		upstream:        upstream,
		cache:           cache,
		logger:          logger,
		suggestionLimit: suggestionLimit,
		startTime:       time.Now(),
	}
}

// CurrentWeather looks up a city by name. Failures are *apperr.Error values.
func (p *Proxy) CurrentWeather(ctx context.Context, city string) (*models.WeatherResult, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, apperr.New(apperr.KindInvalidQuery, "Please enter a city name")
	}

	startTime := time.Now()
	result, err := p.upstream.GetCurrentWeather(ctx, city)

	p.mu.Lock()
	p.lastFetchTime = time.Now()
	if err != nil {
		p.failureCount++
	} else {
		p.successCount++
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("Weather lookup failed",
			zap.String("city", city),
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err))
		return nil, err
	}

	p.logger.Debug("Weather lookup completed",
		zap.String("city", city),
		zap.Duration("duration", time.Since(startTime)))
	return result, nil
}

// Suggest returns at most the configured number of geocoding matches,
// serving repeated queries from the cache.
func (p *Proxy) Suggest(ctx context.Context, query string) ([]models.Suggestion, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSuggestionQuery {
		return nil, apperr.New(apperr.KindInvalidQuery, "Query too short")
	}

	if p.cache != nil {
		if cached, ok := p.cache.Get(ctx, query); ok {
			p.logger.Debug("Cache hit for suggestions", zap.String("query", query))
			return cached, nil
		}
	}

	suggestions, err := p.upstream.Geocode(ctx, query, p.suggestionLimit)

	p.mu.Lock()
	p.geocodeCount++
	if err != nil {
		p.geocodeFailure++
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("Geocoding failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	if len(suggestions) > p.suggestionLimit {
		suggestions = suggestions[:p.suggestionLimit]
	}
	if p.cache != nil {
		p.cache.Set(ctx, query, suggestions)
	}
	return suggestions, nil
}

// PruneCache drops expired suggestions. It is run by the scheduler.
func (p *Proxy) PruneCache() {
	if p.cache == nil {
		return
	}
	if n := p.cache.Prune(); n > 0 {
		p.logger.Info("Suggestion cache pruned", zap.Int("expired", n))
	}
}

func (p *Proxy) GetLastFetchTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastFetchTime
}

func (p *Proxy) Uptime() time.Duration {
	return time.Since(p.startTime)
}

func (p *Proxy) GetStats() map[string]interface{} {
	p.mu.RLock()
	stats := map[string]interface{}{
		"weather_success":  p.successCount,
		"weather_failure":  p.failureCount,
		"geocode_requests": p.geocodeCount,
		"geocode_failure":  p.geocodeFailure,
		"last_fetch":       p.lastFetchTime,
	}
	p.mu.RUnlock()

	if p.cache != nil {
		stats["cache"] = p.cache.GetStats()
	}
	if b, ok := p.upstream.(interface{ BreakerState() string }); ok {
		stats["circuit_breaker"] = b.BreakerState()
	}
	return stats
}

func (p *Proxy) Close() error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Close()
}

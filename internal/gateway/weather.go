package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bobby-s-dev/weather-lookup/internal/apperr"
	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"github.com/bobby-s-dev/weather-lookup/pkg/client"
	"go.uber.org/zap"
)

const notFoundMessage = "City not found"

type WeatherGateway struct {
	base
}

func NewWeatherGateway(cfg Config, logger *zap.Logger) *WeatherGateway {
	return &WeatherGateway{base: newBase(cfg, logger)}
}

// FetchWeather looks up current conditions for city. Every failure is an
// *apperr.Error; no request is made for offline hosts or invalid queries.
func (g *WeatherGateway) FetchWeather(ctx context.Context, city string) (*models.WeatherResult, error) {
	if !g.online.Online() {
		return nil, apperr.New(apperr.KindOffline, "No internet connection")
	}
	if !IsValidQuery(city) {
		return nil, apperr.New(apperr.KindInvalidQuery, "Please enter a valid city name")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	endpoint := g.baseURL + "/api/weather?city=" + url.QueryEscape(strings.TrimSpace(city))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProviderError, fmt.Errorf("creating request: %w", err))
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, err)
	}

	g.logger.Debug("Weather proxy responded",
		zap.String("city", city),
		zap.Int("status", resp.StatusCode),
		zap.Int("body_size", len(body)))

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	var payload models.WeatherResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if !ok {
			return nil, apperr.Provider(resp.StatusCode, notFoundMessage)
		}
		return nil, apperr.Wrap(apperr.KindParseError, fmt.Errorf("decoding weather response: %w", err))
	}

	if !ok || !payload.Success {
		msg := payload.Message
		if msg == "" {
			msg = notFoundMessage
		}
		return nil, apperr.Provider(resp.StatusCode, msg)
	}

	if payload.Data == nil || payload.Data.City == "" {
		return nil, apperr.New(apperr.KindParseError, "weather response has no data")
	}

	result := payload.Data
	if result.IconURL == "" {
		result.IconURL = client.IconURL(result.Icon, "4x")
	}
	return result, nil
}

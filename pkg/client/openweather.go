package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bobby-s-dev/weather-lookup/internal/apperr"
	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultWeatherURL = "https://api.openweathermap.org/data/2.5"
	DefaultGeoURL     = "https://api.openweathermap.org/geo/1.0"

	iconURLPattern = "https://openweathermap.org/img/wn/%s@%s.png"
)

// IconURL builds the provider's display URL for an icon code, e.g. IconURL("01d", "4x").
func IconURL(icon, size string) string {
	if icon == "" {
		return ""
	}
	if size == "" {
		size = "4x"
	}
	return fmt.Sprintf(iconURLPattern, icon, size)
}

type OpenWeatherClient struct {
	*BaseClient
	apiKey     string
	weatherURL string
	geoURL     string
}

type OpenWeatherCurrentResponse struct {
	Coord *struct {
		Lon float64 `json:"lon"`
		Lat float64 `json:"lat"`
	} `json:"coord"`
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main *struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		TempMin   *float64 `json:"temp_min"`
		TempMax   *float64 `json:"temp_max"`
		Pressure  *float64 `json:"pressure"`
		Humidity  float64  `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Clouds *struct {
		All int `json:"all"`
	} `json:"clouds"`
	Visibility *int  `json:"visibility"`
	Dt         int64 `json:"dt"`
	Sys        struct {
		Country string `json:"country"`
		Sunrise *int64 `json:"sunrise"`
		Sunset  *int64 `json:"sunset"`
	} `json:"sys"`
	Timezone *int   `json:"timezone"`
	ID       int    `json:"id"`
	Name     string `json:"name"`
}

type openWeatherGeoItem struct {
	Name    string  `json:"name"`
	State   string  `json:"state"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// openWeatherError is the error body OpenWeatherMap sends with non-200 statuses.
// cod is a number on some endpoints and a string on others.
type openWeatherError struct {
	Cod     json.RawMessage `json:"cod"`
	Message string          `json:"message"`
}

func NewOpenWeatherClient(apiKey string, config ClientConfig, logger *zap.Logger) *OpenWeatherClient {
	baseClient := NewBaseClient("openweather", config, logger)
	return &OpenWeatherClient{
		BaseClient: baseClient,
		apiKey:     apiKey,
		weatherURL: DefaultWeatherURL,
		geoURL:     DefaultGeoURL,
	}
}

// WithBaseURLs overrides the upstream endpoints; empty values keep the defaults.
func (c *OpenWeatherClient) WithBaseURLs(weatherURL, geoURL string) *OpenWeatherClient {
	if weatherURL != "" {
		c.weatherURL = strings.TrimRight(weatherURL, "/")
	}
	if geoURL != "" {
		c.geoURL = strings.TrimRight(geoURL, "/")
	}
	return c
}

func (c *OpenWeatherClient) GetCurrentWeather(ctx context.Context, city string) (*models.WeatherResult, error) {
	if c.apiKey == "" {
		return nil, apperr.New(apperr.KindConfigError, "missing upstream credentials")
	}

	params := url.Values{}
	params.Set("q", strings.TrimSpace(city))
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	resp, err := c.GetWithRetry(ctx, c.weatherURL+"/weather?"+params.Encode())
	if err != nil {
		return nil, upstreamError(err)
	}

	if resp.Status != http.StatusOK {
		return nil, apperr.Provider(resp.Status, providerMessage(resp.Body, "City not found"))
	}

	var response OpenWeatherCurrentResponse
	if err := json.Unmarshal(resp.Body, &response); err != nil {
		return nil, apperr.Wrap(apperr.KindParseError, fmt.Errorf("failed to parse response: %w", err))
	}
	if response.Main == nil || response.Main.Temp == nil || response.Name == "" {
		return nil, apperr.New(apperr.KindParseError, "response is missing required fields")
	}

	return response.toResult(), nil
}

func (r *OpenWeatherCurrentResponse) toResult() *models.WeatherResult {
	result := &models.WeatherResult{
		City:        r.Name,
		Country:     r.Sys.Country,
		Temperature: *r.Main.Temp,
		FeelsLike:   *r.Main.Temp,
		TempMin:     r.Main.TempMin,
		TempMax:     r.Main.TempMax,
		Humidity:    r.Main.Humidity,
		Pressure:    r.Main.Pressure,
		WindSpeed:   r.Wind.Speed,
		Visibility:  r.Visibility,
		Sunrise:     r.Sys.Sunrise,
		Sunset:      r.Sys.Sunset,
		Timezone:    r.Timezone,
	}
	if r.Main.FeelsLike != nil {
		result.FeelsLike = *r.Main.FeelsLike
	}
	if len(r.Weather) > 0 {
		result.Description = r.Weather[0].Description
		result.Icon = r.Weather[0].Icon
		result.IconURL = IconURL(result.Icon, "4x")
	}
	if r.Clouds != nil {
		clouds := r.Clouds.All
		result.Clouds = &clouds
	}
	if r.Coord != nil {
		result.Coord = &models.Coordinates{Lat: r.Coord.Lat, Lon: r.Coord.Lon}
	}
	return result
}

// Geocode resolves a partial place name through the direct geocoding API.
// Results keep the provider's ranking.
func (c *OpenWeatherClient) Geocode(ctx context.Context, query string, limit int) ([]models.Suggestion, error) {
	if c.apiKey == "" {
		return nil, apperr.New(apperr.KindConfigError, "missing upstream credentials")
	}

	params := url.Values{}
	params.Set("q", strings.TrimSpace(query))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("appid", c.apiKey)

	resp, err := c.GetWithRetry(ctx, c.geoURL+"/direct?"+params.Encode())
	if err != nil {
		return nil, upstreamError(err)
	}

	if resp.Status != http.StatusOK {
		return nil, apperr.Provider(resp.Status, providerMessage(resp.Body, ""))
	}

	var items []openWeatherGeoItem
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return nil, apperr.Wrap(apperr.KindParseError, fmt.Errorf("failed to parse geocoding response: %w", err))
	}

	suggestions := make([]models.Suggestion, 0, len(items))
	for _, item := range items {
		if limit > 0 && len(suggestions) >= limit {
			break
		}
		suggestions = append(suggestions, models.Suggestion{
			Name:    item.Name,
			State:   item.State,
			Country: item.Country,
			Lat:     item.Lat,
			Lon:     item.Lon,
		})
	}

	return suggestions, nil
}

func upstreamError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.KindTimeout, err)
	case errors.Is(err, context.Canceled):
		return apperr.Wrap(apperr.KindCanceled, err)
	case errors.Is(err, ErrRateLimited):
		return &apperr.Error{Kind: apperr.KindProviderError, Status: http.StatusTooManyRequests, Message: "Too many requests", Err: err}
	case errors.Is(err, ErrUnavailable):
		return &apperr.Error{Kind: apperr.KindProviderError, Status: http.StatusServiceUnavailable, Message: "Service temporarily unavailable", Err: err}
	default:
		return &apperr.Error{Kind: apperr.KindProviderError, Message: "Network error", Err: err}
	}
}

func providerMessage(body []byte, fallback string) string {
	var e openWeatherError
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return fallback
}

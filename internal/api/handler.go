package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/apperr"
	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"github.com/bobby-s-dev/weather-lookup/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	msgMissingCity      = "Please enter a city name"
	msgConfigError      = "Server configuration error"
	msgNetworkError     = "Network error"
	msgParseError       = "Parse error"
	msgNotFound         = "City not found"
	msgMethodNotAllowed = "Method not allowed"
)

// StatusReporter exposes background job state on the health endpoint.
type StatusReporter interface {
	GetStatus() map[string]interface{}
}

type Handler struct {
	proxy     *services.Proxy
	scheduler StatusReporter
	logger    *zap.Logger
}

func NewHandler(proxy *services.Proxy, scheduler StatusReporter, logger *zap.Logger) *Handler {
	return &Handler{
		proxy:     proxy,
		scheduler: scheduler,
		logger:    logger,
	}
}

// GetWeather handles GET /api/weather
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	city := c.Query("city")

	weather, err := h.proxy.CurrentWeather(c.UserContext(), city)
	if err != nil {
		status, message := weatherFailure(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to get current weather",
				zap.String("city", city),
				zap.Error(err))
		}
		return c.Status(status).JSON(models.WeatherResponse{
			Success: false,
			Message: message,
		})
	}

	return c.JSON(models.WeatherResponse{
		Success: true,
		Data:    weather,
	})
}

// GetGeocode handles GET /api/geocode
func (h *Handler) GetGeocode(c *fiber.Ctx) error {
	query := c.Query("q")

	suggestions, err := h.proxy.Suggest(c.UserContext(), query)
	if err != nil {
		status, message := geocodeFailure(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to geocode",
				zap.String("query", query),
				zap.Error(err))
		}
		return c.Status(status).JSON(models.GeocodeResponse{
			Success:     false,
			Suggestions: []models.Suggestion{},
			Message:     message,
		})
	}

	if suggestions == nil {
		suggestions = []models.Suggestion{}
	}
	return c.JSON(models.GeocodeResponse{
		Success:     true,
		Suggestions: suggestions,
	})
}

// GetHealth handles GET /api/health
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":     "healthy",
		"timestamp":  time.Now(),
		"last_fetch": h.proxy.GetLastFetchTime(),
		"uptime":     h.proxy.Uptime().String(),
		"stats":      h.proxy.GetStats(),
	}
	if h.scheduler != nil {
		body["scheduler"] = h.scheduler.GetStatus()
	}
	return c.JSON(body)
}

// MethodNotAllowed answers non-GET requests on the lookup endpoints.
func (h *Handler) MethodNotAllowed(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAllow, fiber.MethodGet)
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowMethods, fiber.MethodGet)
	return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
		"success": false,
		"message": msgMethodNotAllowed,
	})
}

// weatherFailure maps a proxy error to the response status and message.
// Upstream credentials never appear in the message.
func weatherFailure(err error) (int, string) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, msgNetworkError
	}

	switch e.Kind {
	case apperr.KindInvalidQuery:
		return http.StatusBadRequest, msgMissingCity
	case apperr.KindConfigError:
		return http.StatusInternalServerError, msgConfigError
	case apperr.KindParseError:
		return http.StatusInternalServerError, msgParseError
	case apperr.KindProviderError:
		if e.Status == 0 {
			return http.StatusInternalServerError, msgNetworkError
		}
		if e.Message == "" {
			return e.Status, msgNotFound
		}
		return e.Status, e.Message
	default:
		return http.StatusInternalServerError, msgNetworkError
	}
}

func geocodeFailure(err error) (int, string) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, ""
	}

	switch e.Kind {
	case apperr.KindInvalidQuery:
		return http.StatusBadRequest, ""
	case apperr.KindConfigError:
		return http.StatusInternalServerError, msgConfigError
	case apperr.KindProviderError:
		if e.Status != 0 {
			return e.Status, e.Message
		}
	}
	return http.StatusInternalServerError, ""
}

// ErrorHandler renders errors that escape the handlers, including Fiber's own.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	zap.L().Error("HTTP error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", code),
		zap.Error(err))

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

func SetupRoutes(app *fiber.App, handler *Handler, log *zap.Logger) {
	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	// OPTIONS is not answered as a preflight; it falls through to the 405 handlers.
	app.Use(cors.New(cors.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		AllowOrigins: "*",
		AllowMethods: fiber.MethodGet,
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} ${pid} ${locals:requestid} ${status} - ${method} ${path}\n",
		TimeFormat: time.RFC3339,
	}))

	api := app.Group("/api")

	api.Get("/health", handler.GetHealth)

	api.Add(fiber.MethodGet, "/weather", handler.GetWeather)
	api.All("/weather", handler.MethodNotAllowed)

	api.Add(fiber.MethodGet, "/geocode", handler.GetGeocode)
	api.All("/geocode", handler.MethodNotAllowed)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Endpoint not found",
			"path":    c.Path(),
		})
	})

	log.Info("Routes registered", zap.Strings("endpoints", []string{"/api/weather", "/api/geocode", "/api/health"}))
}

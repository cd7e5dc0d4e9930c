package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/crop-recommendation/internal/agro"
	"github.com/i474232898/crop-recommendation/internal/recommend"
	"github.com/i474232898/crop-recommendation/internal/resilience"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *recommend.Service, rc *resilience.Context) {
	predict := func(c *fiber.Ctx) error {
		var req predictRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "request body must be JSON with latitude and longitude")
		}
		return runPrediction(c, service, req)
	}

	// Kept at the root for clients of the first API version.
	app.Post("/predict", predict)

	v1 := app.Group("/api/v1")
	v1.Post("/predict", predict)

	v1.Get("/predict", func(c *fiber.Ctx) error {
		req, err := parseCoordinateQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return runPrediction(c, service, req)
	})

	v1.Get("/season", func(c *fiber.Ctx) error {
		season := service.Engine().Season()
		return c.JSON(fiber.Map{
			"season":         season,
			"crops":          agro.SeasonCrops(season),
			"timezone":       agro.IST.String(),
			"tables_version": agro.TablesVersion,
		})
	})

	v1.Get("/upstreams", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"upstreams": rc.Breakers(),
			"cache": fiber.Map{
				"entries": rc.Cache.Len(),
			},
		})
	})
}

// predictRequest carries the coordinates. Pointers tell a missing value from 0.
type predictRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

func runPrediction(c *fiber.Ctx, service *recommend.Service, req predictRequest) error {
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "latitude and longitude are required and must be valid coordinates")
	}

	resp, err := service.Predict(c.UserContext(), *req.Latitude, *req.Longitude)
	if err != nil {
		if errors.Is(err, recommend.ErrInvalidInput) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate prediction")
	}

	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate, max-age=0")
	c.Set(fiber.HeaderPragma, "no-cache")
	return c.JSON(resp)
}

func parseCoordinateQuery(c *fiber.Ctx) (predictRequest, error) {
	var req predictRequest

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return req, errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return req, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return req, errors.New("lon must be a number")
	}

	req.Latitude, req.Longitude = &lat, &lon
	return req, nil
}

// Health reports liveness.
func Health(name, version string, started time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": name,
			"version": version,
			"uptime":  time.Since(started).Round(time.Second).String(),
		})
	}
}

// RegisterOps adds the health and Prometheus endpoints.
func RegisterOps(app *fiber.App, name, version string) {
	app.Get("/health", Health(name, version, time.Now()))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

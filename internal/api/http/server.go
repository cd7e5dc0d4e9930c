package httpapi

import (
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// ServerConfig holds the Fiber settings taken from configuration.
type ServerConfig struct {
	AppName      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// AccessLog enables the request logger middleware.
	AccessLog bool
}

// NewApp builds the Fiber app with the shared error handler and middleware.
func NewApp(cfg ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          ErrorHandler,
	})

	// Global middleware
	if cfg.AccessLog {
		app.Use(logger.New())
	}
	app.Use(recover.New())

	return app
}

// ErrorHandler renders every error as {"success": false, "error": msg}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

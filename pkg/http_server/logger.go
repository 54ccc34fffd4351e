package http_server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// NewLogger logs every request once the rest of the chain has run. Errors returned by
// handlers are passed to the app error handler first so the logged status is the one sent.
func NewLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()
		chainErr := c.Next()

		msg := "HTTP Request"
		if chainErr != nil {
			msg = chainErr.Error()

			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		code := c.Response().StatusCode()

		ipAddress := c.IP()
		if cloudflareConnectingIP := c.Get("CF-Connecting-IP", ""); cloudflareConnectingIP != "" {
			ipAddress = cloudflareConnectingIP
		}

		requestLogger := log.With().
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", ipAddress).
			Str("latency", time.Since(startTime).String()).
			Str("user-agent", c.Get(fiber.HeaderUserAgent)).
			Logger()

		switch {
		case code >= fiber.StatusBadRequest && code < fiber.StatusInternalServerError:
			requestLogger.Warn().Msg(msg)
		case code >= fiber.StatusInternalServerError:
			requestLogger.Error().Msg(msg)
		default:
			requestLogger.Info().Msg(msg)
		}

		return nil
	}
}

const internalErrorMessage = "Erreur interne du serveur"

// ErrorHandler answers framework errors (unknown routes, wrong methods, recovered panics)
// with the same JSON error body the handlers use. Server errors only carry a generic
// message, the detail is in the request log.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	message := err.Error()
	if code >= fiber.StatusInternalServerError {
		message = internalErrorMessage
	}

	c.Status(code)
	return c.JSON(fiber.Map{
		"error": message,
	})
}

package logging

import (
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger is the package-level zerolog logger used throughout the application.
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init sets up the global zerolog logger with structured JSON output.
// Level is parsed from the given string ("debug", "info", "warn", "error").
func Init(level, service string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// RequestLogger logs each request with its route template, so ids never end up in logs.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			evt := Logger.Info()
			if status >= 500 {
				evt = Logger.Error().Err(err)
			} else if status >= 400 {
				evt = Logger.Warn()
			}

			evt.
				Str("method", c.Request().Method).
				Str("route", c.Path()).
				Int("status", status).
				Dur("duration_ms", time.Since(start)).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Int64("bytes_sent", c.Response().Size).
				Msg("request")

			return nil
		}
	}
}

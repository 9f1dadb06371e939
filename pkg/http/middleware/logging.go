package middleware

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs completed HTTP requests. Probe and scrape routes are
// skipped to keep the log usable under frequent polling.
func RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)

			path := req.URL.Path
			if path == "/health" || path == "/metrics" {
				return err
			}

			log.Printf("%s %s %d %dB %s %s",
				req.Method,
				path,
				res.Status,
				res.Size,
				time.Since(start),
				c.RealIP(),
			)

			return err
		}
	}
}

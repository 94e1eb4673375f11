package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Logger tags each request with an id, stores a scoped logger in the request
// context and emits one structured line per request.
func Logger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		requestID := uuid.New().String()

		ctx := c.Request().Context()
		logger := log.With().Str("request_id", requestID).Logger()
		c.SetRequest(c.Request().WithContext(logger.WithContext(ctx)))

		err := next(c)

		req := c.Request()
		res := c.Response()
		log.Ctx(req.Context()).Info().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", res.Status).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Msg("request")

		return err
	}
}

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gastenlixt/gastenlixt/internal/config"
)

// LoginLimiter applies a fixed-window per-IP limit to the credential
// endpoints.  The counter lives in Redis so multiple instances share the
// window.  When Redis is unavailable or the limiter is disabled, requests
// pass through unchanged; the limiter protects, it never blocks the service.
func LoginLimiter(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := cfg.Prefix + ":login:" + ip
			ctx := c.Request().Context()

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
				return next(c)
			}
			if n == 1 {
				// First hit opens the window.
				if err := rdb.Expire(ctx, key, cfg.Window).Err(); err != nil {
					log.Warn().Err(err).Str("key", key).Msg("rate limiter expire failed")
				}
			}
			if n > int64(cfg.Limit) {
				retry := int(cfg.Window / time.Second)
				if ttl, err := rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
					retry = int(ttl / time.Second)
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error": "Muitas tentativas. Tente novamente em instantes.",
				})
			}
			return next(c)
		}
	}
}

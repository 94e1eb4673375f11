// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/gastenlixt/gastenlixt/internal/auth"
	"github.com/gastenlixt/gastenlixt/internal/config"
	"github.com/gastenlixt/gastenlixt/internal/handler"
	"github.com/gastenlixt/gastenlixt/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth endpoints under /api/auth.  Login and
// signup additionally run through the Redis rate limiter; rdb may be nil,
// which disables it.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/api/auth")
	limited := middleware.LoginLimiter(rlCfg, rdb)
	g.POST("/signup", a.Signup, limited)
	g.POST("/login", a.Login, limited)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me)
}

// RegisterClients registers the client CRUD endpoints under /api/clients.
// Every route requires a valid session cookie.
func RegisterClients(e *echo.Echo, h *handler.ClientHandler, codec *auth.Codec) {
	g := e.Group("/api/clients")
	g.Use(middleware.SessionAuth(codec))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// RegisterPages registers the browser-facing routes behind the page gate:
// anonymous visitors bounce to the login page, role-0 users to the limited
// access notice.
func RegisterPages(e *echo.Echo, d *handler.DashboardHandler, cl *handler.ClientHandler, codec *auth.Codec) {
	gate := middleware.PageGate(codec)
	e.GET("/dashboard", d.Summary, gate)
	e.GET("/clientes", cl.List, gate)
}

package middleware

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/gastenlixt/gastenlixt/internal/auth"
)

// Redirect targets used by the page gate.
const (
	loginPath         = "/"
	limitedAccessPath = "/aviso-acesso-limitado"
)

// PageGate protects browser-facing routes.  Unlike SessionAuth it redirects
// instead of answering 401: an anonymous or forged session goes back to the
// login page with an unauthorized marker, a standard-role user is sent to
// the limited-access notice carrying the path they came from, and any higher
// role passes through with the payload stored in context.
func PageGate(codec *auth.Codec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := verifyCookie(codec, c)
			if !ok {
				return c.Redirect(http.StatusFound, loginPath+"?unauthorized=1")
			}
			if p.Role < auth.RoleAdmin {
				from := url.QueryEscape(c.Request().URL.Path)
				return c.Redirect(http.StatusFound, limitedAccessPath+"?from="+from)
			}
			c.Set("user_id", p.ID)
			c.Set("role", p.Role)
			return next(c)
		}
	}
}

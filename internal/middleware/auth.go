package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gastenlixt/gastenlixt/internal/auth"
)

// CookieName duplicates the handler constant to avoid an import cycle; the
// two must stay in sync.
const CookieName = "auth_token"

// SessionAuth returns middleware that verifies the session cookie and
// injects the credential payload into the request context.  Handlers reach
// the values via c.Get("user_id") (int64) and c.Get("role") (int).  A
// missing, forged or malformed cookie produces one uniform 401; callers
// never learn which it was.
func SessionAuth(codec *auth.Codec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := verifyCookie(codec, c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Não autenticado"})
			}
			c.Set("user_id", p.ID)
			c.Set("role", p.Role)
			return next(c)
		}
	}
}

// verifyCookie reads the session cookie and verifies it against the codec.
func verifyCookie(codec *auth.Codec, c echo.Context) (auth.Payload, bool) {
	ck, err := c.Cookie(CookieName)
	if err != nil {
		return auth.Payload{}, false
	}
	return codec.Verify(ck.Value)
}

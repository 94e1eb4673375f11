package handler

import (
	"context"      // bounds DB calls with timeouts
	"database/sql" // sentinel errors such as sql.ErrNoRows
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gastenlixt/gastenlixt/internal/auth"
	"github.com/gastenlixt/gastenlixt/internal/config"
	"github.com/gastenlixt/gastenlixt/internal/repository"
	"github.com/gastenlixt/gastenlixt/internal/utils"
)

// CookieName is the session cookie carrying the signed credential.
const CookieName = "auth_token"

// cookieMaxAge is seven days, after which the browser discards the session.
const cookieMaxAge = 7 * 24 * 60 * 60

// UserStore is the slice of the user repository the auth endpoints need.
// Declared here so tests can substitute a fake.
type UserStore interface {
	Create(ctx context.Context, name, email, password string, role, cost int) (int64, error)
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetByID(ctx context.Context, id int64) (repository.User, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Codec *auth.Codec
	Users UserStore
}

func NewAuthHandler(cfg config.Config, codec *auth.Codec, users UserStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Codec: codec, Users: users}
}

// ----- DTOs -----

type signupReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type userPart struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  int    `json:"role"`
}

// Signup creates an account with the standard role, issues a credential and
// sets the session cookie so the user is signed in right away.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Todos os campos são obrigatórios"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Todos os campos são obrigatórios"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, auth.RoleUser, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Este e-mail já está cadastrado"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Erro ao realizar cadastro"})
	}

	token := h.Codec.Issue(auth.Payload{ID: uid, Role: auth.RoleUser})
	h.setAuthCookie(c, token)

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Cadastro realizado com sucesso",
		"userId":  uid,
	})
}

// Login verifies credentials and sets the session cookie.  A wrong email and
// a wrong password produce the same answer.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "E-mail e senha são obrigatórios"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "E-mail e senha são obrigatórios"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "E-mail ou senha incorretos"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Erro ao fazer login"})
	}
	if !utils.VerifyPassword(u.Password, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "E-mail ou senha incorretos"})
	}

	token := h.Codec.Issue(auth.Payload{ID: u.ID, Role: u.Role})
	h.setAuthCookie(c, token)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
	})
}

// Logout deletes the session cookie.  The credential is stateless, so there
// is nothing to revoke server side.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.clearAuthCookie(c)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Deslogado com sucesso",
	})
}

// Me returns the authenticated user's profile from the session cookie.
func (h *AuthHandler) Me(c echo.Context) error {
	token := readAuthCookie(c)
	p, ok := h.Codec.Verify(token)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Não autenticado"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Usuário não encontrado"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Erro ao buscar usuário"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user": userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
	})
}

// readAuthCookie returns the session cookie value or "" when absent.
func readAuthCookie(c echo.Context) string {
	ck, err := c.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}

// setAuthCookie writes the session cookie: HTTP-only, SameSite=Lax, seven
// day lifetime, Secure only in production environments.
func (h *AuthHandler) setAuthCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.Cfg.Production(),
	})
}

// clearAuthCookie expires the session cookie immediately.
func (h *AuthHandler) clearAuthCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.Cfg.Production(),
	})
}

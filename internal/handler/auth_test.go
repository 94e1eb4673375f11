package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gastenlixt/gastenlixt/internal/auth"
	"github.com/gastenlixt/gastenlixt/internal/config"
	"github.com/gastenlixt/gastenlixt/internal/repository"
	"github.com/gastenlixt/gastenlixt/internal/utils"
)

// fakeUserStore keeps users in memory, keyed by email.
type fakeUserStore struct {
	nextID int64
	users  map[string]repository.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]repository.User{}}
}

func (s *fakeUserStore) Create(_ context.Context, name, email, password string, role, cost int) (int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := s.users[email]; ok {
		return 0, repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	s.nextID++
	s.users[email] = repository.User{ID: s.nextID, Name: name, Email: email, Password: hash, Role: role}
	return s.nextID, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (repository.User, error) {
	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return repository.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id int64) (repository.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return repository.User{}, sql.ErrNoRows
}

func newAuthHandler(users UserStore) *AuthHandler {
	cfg := config.Config{Env: "test", BcryptCost: 4}
	return NewAuthHandler(cfg, auth.NewCodec("test-secret"), users)
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == CookieName {
			return ck
		}
	}
	return nil
}

func TestSignup(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(newFakeUserStore())
	rec := doJSON(t, h.Signup, http.MethodPost, "/api/auth/signup",
		`{"name":"Maria","email":"Maria@Example.com","password":"senha123"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userId":1`)

	ck := sessionCookie(rec)
	require.NotNil(t, ck, "signup must set the session cookie")
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.Equal(t, "/", ck.Path)
	assert.Equal(t, 7*24*60*60, ck.MaxAge)
	assert.False(t, ck.Secure, "Secure only in production")

	// The issued credential must verify and carry the standard role.
	p, ok := h.Codec.Verify(ck.Value)
	require.True(t, ok)
	assert.Equal(t, auth.Payload{ID: 1, Role: auth.RoleUser}, p)
}

func TestSignup_MissingFields(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(newFakeUserStore())
	for _, body := range []string{
		`{}`,
		`{"name":"Maria"}`,
		`{"name":"Maria","email":"m@x.com"}`,
		`{"email":"m@x.com","password":"p"}`,
	} {
		rec := doJSON(t, h.Signup, http.MethodPost, "/api/auth/signup", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
		assert.Contains(t, rec.Body.String(), "Todos os campos são obrigatórios")
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(newFakeUserStore())
	body := `{"name":"Maria","email":"maria@example.com","password":"senha123"}`
	doJSON(t, h.Signup, http.MethodPost, "/api/auth/signup", body)

	rec := doJSON(t, h.Signup, http.MethodPost, "/api/auth/signup", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Este e-mail já está cadastrado")
}

func TestLogin(t *testing.T) {
	t.Parallel()

	store := newFakeUserStore()
	_, err := store.Create(context.Background(), "Maria", "maria@example.com", "senha123", auth.RoleAdmin, 4)
	require.NoError(t, err)
	h := newAuthHandler(store)

	rec := doJSON(t, h.Login, http.MethodPost, "/api/auth/login",
		`{"email":"maria@example.com","password":"senha123"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	ck := sessionCookie(rec)
	require.NotNil(t, ck)

	p, ok := h.Codec.Verify(ck.Value)
	require.True(t, ok)
	assert.Equal(t, auth.Payload{ID: 1, Role: auth.RoleAdmin}, p)

	var resp struct {
		User userPart `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, userPart{ID: 1, Name: "Maria", Email: "maria@example.com", Role: auth.RoleAdmin}, resp.User)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()

	store := newFakeUserStore()
	_, err := store.Create(context.Background(), "Maria", "maria@example.com", "senha123", auth.RoleUser, 4)
	require.NoError(t, err)
	h := newAuthHandler(store)

	// Unknown email and wrong password must be indistinguishable.
	wrongPass := doJSON(t, h.Login, http.MethodPost, "/api/auth/login",
		`{"email":"maria@example.com","password":"errada"}`)
	unknown := doJSON(t, h.Login, http.MethodPost, "/api/auth/login",
		`{"email":"nobody@example.com","password":"senha123"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongPass.Body.String(), unknown.Body.String())
	assert.Nil(t, sessionCookie(wrongPass))
}

func TestLogout_ClearsCookie(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(newFakeUserStore())
	rec := doJSON(t, h.Logout, http.MethodPost, "/api/auth/logout", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	ck := sessionCookie(rec)
	require.NotNil(t, ck)
	assert.Empty(t, ck.Value)
	assert.Negative(t, ck.MaxAge)
}

func TestMe(t *testing.T) {
	t.Parallel()

	store := newFakeUserStore()
	_, err := store.Create(context.Background(), "Maria", "maria@example.com", "senha123", auth.RoleUser, 4)
	require.NoError(t, err)
	h := newAuthHandler(store)

	tok := h.Codec.Issue(auth.Payload{ID: 1, Role: auth.RoleUser})
	rec := doJSON(t, h.Me, http.MethodGet, "/api/auth/me", "",
		&http.Cookie{Name: CookieName, Value: tok})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"maria@example.com"`)
}

func TestMe_Unauthenticated(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(newFakeUserStore())

	noCookie := doJSON(t, h.Me, http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, noCookie.Code)

	forged := doJSON(t, h.Me, http.MethodGet, "/api/auth/me", "",
		&http.Cookie{Name: CookieName, Value: "forged.token"})
	assert.Equal(t, http.StatusUnauthorized, forged.Code)
}

func TestMe_UserGone(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(newFakeUserStore())
	tok := h.Codec.Issue(auth.Payload{ID: 99, Role: auth.RoleUser})
	rec := doJSON(t, h.Me, http.MethodGet, "/api/auth/me", "",
		&http.Cookie{Name: CookieName, Value: tok})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Usuário não encontrado")
}

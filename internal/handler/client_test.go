package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gastenlixt/gastenlixt/internal/queue"
	"github.com/gastenlixt/gastenlixt/internal/repository"
)

// fakeClientStore keeps clients in memory and enforces the per-user CNPJ
// uniqueness the real table guarantees.
type fakeClientStore struct {
	nextID  int64
	clients map[int64]*repository.Client
}

func newFakeClientStore() *fakeClientStore {
	return &fakeClientStore{clients: map[int64]*repository.Client{}}
}

func (s *fakeClientStore) Create(_ context.Context, c *repository.Client) error {
	for _, existing := range s.clients {
		if existing.UserID == c.UserID && existing.CNPJ == c.CNPJ {
			return repository.ErrCNPJExists
		}
	}
	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	s.clients[c.ID] = &cp
	return nil
}

func (s *fakeClientStore) GetByIDAndOwner(_ context.Context, id, userID int64) (*repository.Client, error) {
	c, ok := s.clients[id]
	if !ok || c.UserID != userID {
		return nil, repository.ErrClientNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeClientStore) ListByOwner(_ context.Context, userID int64) ([]*repository.Client, error) {
	var out []*repository.Client
	for _, c := range s.clients {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeClientStore) Update(_ context.Context, c *repository.Client) error {
	existing, ok := s.clients[c.ID]
	if !ok || existing.UserID != c.UserID {
		return repository.ErrClientNotFound
	}
	for _, other := range s.clients {
		if other.ID != c.ID && other.UserID == c.UserID && other.CNPJ == c.CNPJ {
			return repository.ErrCNPJExists
		}
	}
	cp := *c
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	s.clients[c.ID] = &cp
	return nil
}

func (s *fakeClientStore) DeleteByIDAndOwner(_ context.Context, id, userID int64) error {
	c, ok := s.clients[id]
	if !ok || c.UserID != userID {
		return repository.ErrClientNotFound
	}
	delete(s.clients, id)
	return nil
}

func (s *fakeClientStore) CountByOwner(_ context.Context, userID int64) (int64, error) {
	var n int64
	for _, c := range s.clients {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

// capturePublisher records published events on a channel so tests can wait
// for the fire-and-forget goroutine.
type capturePublisher struct {
	events chan queue.ClientCreatedEvent
}

func (p *capturePublisher) PublishClientCreated(_ context.Context, e queue.ClientCreatedEvent) error {
	p.events <- e
	return nil
}

func doAs(t *testing.T, h echo.HandlerFunc, userID int64, method, target, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("user_id", userID)
		c.Set("role", 0)
	}
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	require.NoError(t, h(c))
	return rec
}

const validClientBody = `{
	"razao_social": "Padaria Estrela LTDA",
	"cnpj": "12.345.678/0001-90",
	"regime_tributario": "Simples Nacional",
	"email": "contato@estrela.com.br",
	"cidade": "Curitiba",
	"estado": "PR",
	"faturamento_anual": 480000.50
}`

func TestClientCreate(t *testing.T) {
	t.Parallel()

	store := newFakeClientStore()
	h := NewClientHandler(store, nil)

	rec := doAs(t, h.Create, 1, http.MethodPost, "/api/clients", validClientBody)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"clientId":1`)

	saved := store.clients[1]
	require.NotNil(t, saved)
	assert.Equal(t, int64(1), saved.UserID)
	assert.Equal(t, "12.345.678/0001-90", saved.CNPJ)
	require.NotNil(t, saved.FaturamentoAnual)
	assert.InDelta(t, 480000.50, *saved.FaturamentoAnual, 0.001)
	assert.Nil(t, saved.Telefone, "absent optionals stay null")
}

func TestClientCreate_PublishesEvent(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{events: make(chan queue.ClientCreatedEvent, 1)}
	h := NewClientHandler(newFakeClientStore(), pub)

	doAs(t, h.Create, 7, http.MethodPost, "/api/clients", validClientBody)

	select {
	case e := <-pub.events:
		assert.Equal(t, int64(1), e.ClientID)
		assert.Equal(t, int64(7), e.UserID)
		assert.Equal(t, "Padaria Estrela LTDA", e.RazaoSocial)
	case <-time.After(time.Second):
		t.Fatal("client.created event was not published")
	}
}

func TestClientCreate_MissingRequired(t *testing.T) {
	t.Parallel()

	h := NewClientHandler(newFakeClientStore(), nil)
	for _, body := range []string{
		`{}`,
		`{"razao_social":"X"}`,
		`{"razao_social":"X","cnpj":"1"}`,
		`{"cnpj":"1","regime_tributario":"MEI"}`,
	} {
		rec := doAs(t, h.Create, 1, http.MethodPost, "/api/clients", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestClientCreate_DuplicateCNPJ(t *testing.T) {
	t.Parallel()

	h := NewClientHandler(newFakeClientStore(), nil)
	doAs(t, h.Create, 1, http.MethodPost, "/api/clients", validClientBody)

	// Same owner, same CNPJ: conflict.
	rec := doAs(t, h.Create, 1, http.MethodPost, "/api/clients", validClientBody)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// A different owner may register the same CNPJ.
	rec = doAs(t, h.Create, 2, http.MethodPost, "/api/clients", validClientBody)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientCreate_Unauthenticated(t *testing.T) {
	t.Parallel()

	h := NewClientHandler(newFakeClientStore(), nil)
	rec := doAs(t, h.Create, 0, http.MethodPost, "/api/clients", validClientBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClientList_ScopedToOwner(t *testing.T) {
	t.Parallel()

	store := newFakeClientStore()
	h := NewClientHandler(store, nil)
	doAs(t, h.Create, 1, http.MethodPost, "/api/clients", validClientBody)
	doAs(t, h.Create, 2, http.MethodPost, "/api/clients", validClientBody)

	rec := doAs(t, h.List, 1, http.MethodGet, "/api/clients", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Clients []json.RawMessage `json:"clients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Clients, 1)

	// Empty result is an empty array, not null.
	rec = doAs(t, h.List, 3, http.MethodGet, "/api/clients", "")
	assert.Contains(t, rec.Body.String(), `"clients":[]`)
}

func TestClientGet(t *testing.T) {
	t.Parallel()

	store := newFakeClientStore()
	h := NewClientHandler(store, nil)
	doAs(t, h.Create, 1, http.MethodPost, "/api/clients", validClientBody)

	rec := doAs(t, h.Get, 1, http.MethodGet, "/api/clients/1", "", "id", "1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Padaria Estrela LTDA")

	// Another user's client reads as not found.
	rec = doAs(t, h.Get, 2, http.MethodGet, "/api/clients/1", "", "id", "1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doAs(t, h.Get, 1, http.MethodGet, "/api/clients/abc", "", "id", "abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientUpdate(t *testing.T) {
	t.Parallel()

	store := newFakeClientStore()
	h := NewClientHandler(store, nil)
	doAs(t, h.Create, 1, http.MethodPost, "/api/clients", validClientBody)

	updated := strings.Replace(validClientBody, "Padaria Estrela LTDA", "Padaria Lua LTDA", 1)
	rec := doAs(t, h.Update, 1, http.MethodPut, "/api/clients/1", updated, "id", "1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Padaria Lua LTDA", store.clients[1].RazaoSocial)

	// Ownership is enforced on update as well.
	rec = doAs(t, h.Update, 2, http.MethodPut, "/api/clients/1", updated, "id", "1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientDelete(t *testing.T) {
	t.Parallel()

	store := newFakeClientStore()
	h := NewClientHandler(store, nil)
	doAs(t, h.Create, 1, http.MethodPost, "/api/clients", validClientBody)

	rec := doAs(t, h.Delete, 2, http.MethodDelete, "/api/clients/1", "", "id", "1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doAs(t, h.Delete, 1, http.MethodDelete, "/api/clients/1", "", "id", "1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.clients)
}

func TestDashboardSummary(t *testing.T) {
	t.Parallel()

	store := newFakeClientStore()
	ch := NewClientHandler(store, nil)
	doAs(t, ch.Create, 1, http.MethodPost, "/api/clients", validClientBody)

	h := NewDashboardHandler(store)
	rec := doAs(t, h.Summary, 1, http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_clientes":1`)
}

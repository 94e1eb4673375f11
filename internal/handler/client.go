package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/gastenlixt/gastenlixt/internal/queue"
	"github.com/gastenlixt/gastenlixt/internal/repository"
)

// ClientStore is the slice of the client repository the handlers need.
type ClientStore interface {
	Create(ctx context.Context, c *repository.Client) error
	GetByIDAndOwner(ctx context.Context, id, userID int64) (*repository.Client, error)
	ListByOwner(ctx context.Context, userID int64) ([]*repository.Client, error)
	Update(ctx context.Context, c *repository.Client) error
	DeleteByIDAndOwner(ctx context.Context, id, userID int64) error
	CountByOwner(ctx context.Context, userID int64) (int64, error)
}

// EventPublisher posts audit events to the message broker.  A nil publisher
// disables eventing.
type EventPublisher interface {
	PublishClientCreated(ctx context.Context, event queue.ClientCreatedEvent) error
}

// ClientHandler bundles dependencies for the client CRUD endpoints.
type ClientHandler struct {
	Clients ClientStore
	Events  EventPublisher
}

func NewClientHandler(clients ClientStore, events EventPublisher) *ClientHandler {
	return &ClientHandler{Clients: clients, Events: events}
}

// clientReq mirrors the request body of create and update.  Optional fields
// are pointers so that absent and empty are distinguishable.
type clientReq struct {
	RazaoSocial      string   `json:"razao_social"`
	CNPJ             string   `json:"cnpj"`
	Email            *string  `json:"email"`
	Telefone         *string  `json:"telefone"`
	RegimeTributario string   `json:"regime_tributario"`
	AnexoSimples     *string  `json:"anexo_simples"`
	Cidade           *string  `json:"cidade"`
	Estado           *string  `json:"estado"`
	FaturamentoAnual *float64 `json:"faturamento_anual"`
}

func (r *clientReq) validate() error {
	r.RazaoSocial = strings.TrimSpace(r.RazaoSocial)
	r.CNPJ = strings.TrimSpace(r.CNPJ)
	r.RegimeTributario = strings.TrimSpace(r.RegimeTributario)
	if r.RazaoSocial == "" || r.CNPJ == "" || r.RegimeTributario == "" {
		return errors.New("missing required fields")
	}
	return nil
}

func (r *clientReq) apply(c *repository.Client) {
	c.RazaoSocial = r.RazaoSocial
	c.CNPJ = r.CNPJ
	c.Email = emptyToNil(r.Email)
	c.Telefone = emptyToNil(r.Telefone)
	c.RegimeTributario = r.RegimeTributario
	c.AnexoSimples = emptyToNil(r.AnexoSimples)
	c.Cidade = emptyToNil(r.Cidade)
	c.Estado = emptyToNil(r.Estado)
	c.FaturamentoAnual = r.FaturamentoAnual
}

// emptyToNil folds empty strings into JSON null, like the original forms did.
func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// Create handles POST /api/clients.
func (h *ClientHandler) Create(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Não autenticado"})
	}
	var req clientReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Corpo da requisição inválido"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Razão social, CNPJ e regime tributário são obrigatórios"})
	}

	client := &repository.Client{UserID: userID}
	req.apply(client)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Clients.Create(ctx, client); err != nil {
		if errors.Is(err, repository.ErrCNPJExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "CNPJ já cadastrado para este usuário"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Erro ao criar cliente"})
	}

	h.publishCreated(client)

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"clientId": client.ID,
	})
}

// publishCreated emits the audit event without blocking the request.
// Broker failures are logged and otherwise ignored.
func (h *ClientHandler) publishCreated(client *repository.Client) {
	if h.Events == nil {
		return
	}
	event := queue.ClientCreatedEvent{
		ClientID:    client.ID,
		UserID:      client.UserID,
		RazaoSocial: client.RazaoSocial,
		CNPJ:        client.CNPJ,
		CreatedAt:   client.CreatedAt.UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.Events.PublishClientCreated(ctx, event); err != nil {
			log.Error().Err(err).Int64("client_id", event.ClientID).Msg("publish client.created event")
		}
	}()
}

// List handles GET /api/clients and returns the owner's clients, newest first.
func (h *ClientHandler) List(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Não autenticado"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	clients, err := h.Clients.ListByOwner(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Erro ao listar clientes"})
	}
	if clients == nil {
		clients = []*repository.Client{}
	}
	return c.JSON(http.StatusOK, echo.Map{"clients": clients})
}

// Get handles GET /api/clients/:id.
func (h *ClientHandler) Get(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Não autenticado"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Identificador inválido"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	client, err := h.Clients.GetByIDAndOwner(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Cliente não encontrado"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Erro ao buscar cliente"})
	}
	return c.JSON(http.StatusOK, echo.Map{"client": client})
}

// Update handles PUT /api/clients/:id.
func (h *ClientHandler) Update(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Não autenticado"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Identificador inválido"})
	}
	var req clientReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Corpo da requisição inválido"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Razão social, CNPJ e regime tributário são obrigatórios"})
	}

	client := &repository.Client{ID: id, UserID: userID}
	req.apply(client)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Clients.Update(ctx, client); err != nil {
		switch {
		case errors.Is(err, repository.ErrClientNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Cliente não encontrado"})
		case errors.Is(err, repository.ErrCNPJExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "CNPJ já cadastrado para este usuário"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Erro ao atualizar cliente"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Delete handles DELETE /api/clients/:id.
func (h *ClientHandler) Delete(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Não autenticado"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Identificador inválido"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Clients.DeleteByIDAndOwner(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Cliente não encontrado"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Erro ao excluir cliente"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

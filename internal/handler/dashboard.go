package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// DashboardHandler serves the overview page data behind the page gate.
type DashboardHandler struct {
	Clients ClientStore
}

func NewDashboardHandler(clients ClientStore) *DashboardHandler {
	return &DashboardHandler{Clients: clients}
}

// Summary handles GET /dashboard.  Tax counters are placeholders until the
// fiscal module lands; client counters come from the database.
func (h *DashboardHandler) Summary(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Não autenticado"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	total, err := h.Clients.CountByOwner(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Erro ao carregar dashboard"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total_clientes":     total,
		"clientes_ativos":    total,
		"impostos_vencidos":  0,
		"impostos_pendentes": 0,
	})
}

package handler // handler defines http handlers

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// currentUserID extracts the authenticated user's id placed in the context by
// the session middleware.
func currentUserID(c echo.Context) (int64, error) {
	if id, ok := c.Get("user_id").(int64); ok {
		return id, nil
	}
	return 0, errors.New("invalid user_id in context")
}

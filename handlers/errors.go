package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"goflare.io/quotes/permission"
	"goflare.io/quotes/quote"
)

// respondError maps domain sentinels onto HTTP statuses. Anything not
// recognized is a plain 500 so internal details never leak to clients.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, quote.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, permission.ErrOperationNotPermitted):
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, quote.ErrQuoteNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, quote.ErrQuoteCannotBeUpdatedOrUsed):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}

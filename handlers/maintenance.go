package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"goflare.io/quotes"
	"goflare.io/quotes/models"
)

// MaintenanceHandler covers the scheduler-driven and admin-only routes:
// expiration sweeps, order hooks and app settings.
type MaintenanceHandler interface {
	ExpireQuotes(c echo.Context) error
	HandleOrderHook(c echo.Context) error
	GetSettings(c echo.Context) error
	SaveSettings(c echo.Context) error
}

type maintenanceHandler struct {
	Quotes quotes.QuoteService
}

func NewMaintenanceHandler(
	Quotes quotes.QuoteService,
) MaintenanceHandler {
	return &maintenanceHandler{
		Quotes: Quotes,
	}
}

// ExpireQuotes handles POST /quotes/expire
func (mh *maintenanceHandler) ExpireQuotes(c echo.Context) error {
	expired, err := mh.Quotes.ExpireQuotes(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"date":    time.Now().UTC().Format(time.RFC3339),
		"expired": expired,
	})
}

// HandleOrderHook handles POST /hooks/order
func (mh *maintenanceHandler) HandleOrderHook(c echo.Context) error {
	var event quotes.OrderEvent
	if err := c.Bind(&event); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	if err := mh.Quotes.HandleOrderHook(c.Request().Context(), event); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusOK)
}

// GetSettings handles GET /settings
func (mh *maintenanceHandler) GetSettings(c echo.Context) error {
	settings, err := mh.Quotes.GetAppSettings(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, settings)
}

// SaveSettings handles PUT /settings
func (mh *maintenanceHandler) SaveSettings(c echo.Context) error {
	session := SessionFromContext(c)
	if !session.Admin {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Admin only"})
	}

	var settings models.Settings
	if err := c.Bind(&settings); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	saved, err := mh.Quotes.SaveAppSettings(c.Request().Context(), &settings)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, saved)
}

package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"goflare.io/quotes/models"
)

const sessionContextKey = "b2b-session"

// SessionMiddleware resolves the caller identity the hosting platform puts
// on every request. Identity is never looked up here; requests arriving
// without the headers simply carry an empty session and fail the permission
// checks downstream.
func SessionMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header

			session := models.Session{
				Email:          h.Get("X-B2B-Email"),
				Name:           h.Get("X-B2B-Name"),
				OrganizationID: h.Get("X-B2B-Organization"),
				CostCenterID:   h.Get("X-B2B-Cost-Center"),
				RoleSlug:       h.Get("X-B2B-Role"),
				SalesChannel:   h.Get("X-B2B-Sales-Channel"),
				Admin:          h.Get("X-B2B-Admin") == "true",
			}
			if raw := h.Get("X-B2B-Permissions"); raw != "" {
				session.Permissions = strings.Split(raw, ",")
			}

			c.Set(sessionContextKey, session)
			return next(c)
		}
	}
}

// SessionFromContext returns the caller session resolved by the middleware.
func SessionFromContext(c echo.Context) models.Session {
	if session, ok := c.Get(sessionContextKey).(models.Session); ok {
		return session
	}
	return models.Session{}
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"goflare.io/quotes/sellerquotes"
)

// sellerAccountHeader carries the calling seller account's id, set by the
// platform's inter-account gateway.
const sellerAccountHeader = "X-Seller-Account"

type SellerHandler interface {
	GetSellerQuote(c echo.Context) error
	ListSellerQuotes(c echo.Context) error
	SaveSellerQuote(c echo.Context) error
}

type sellerHandler struct {
	Controller *sellerquotes.Controller
}

func NewSellerHandler(
	Controller *sellerquotes.Controller,
) SellerHandler {
	return &sellerHandler{
		Controller: Controller,
	}
}

func sellerID(c echo.Context) string {
	return c.Request().Header.Get(sellerAccountHeader)
}

// GetSellerQuote handles GET /seller/quotes/:id
func (sh *sellerHandler) GetSellerQuote(c echo.Context) error {
	seller := sellerID(c)
	if seller == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing seller account"})
	}

	q, err := sh.Controller.GetSellerQuote(c.Request().Context(), seller, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, q)
}

// ListSellerQuotes handles GET /seller/quotes
func (sh *sellerHandler) ListSellerQuotes(c echo.Context) error {
	seller := sellerID(c)
	if seller == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing seller account"})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 25
	}

	data, info, err := sh.Controller.ListSellerQuotes(c.Request().Context(), seller,
		page, pageSize, c.QueryParam("sortOrder") != "ASC")
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data":       data,
		"pagination": info,
	})
}

// SaveSellerQuote handles PUT /seller/quotes/:id
func (sh *sellerHandler) SaveSellerQuote(c echo.Context) error {
	seller := sellerID(c)
	if seller == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing seller account"})
	}

	var fields map[string]any
	if err := c.Bind(&fields); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	if err := sh.Controller.SaveSellerQuote(c.Request().Context(), seller, c.Param("id"), fields); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusOK)
}

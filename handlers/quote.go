package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"goflare.io/quotes"
)

type QuoteHandler interface {
	CreateQuote(c echo.Context) error
	GetQuote(c echo.Context) error
	ListQuotes(c echo.Context) error
	ListChildren(c echo.Context) error
	UpdateQuote(c echo.Context) error
	UseQuote(c echo.Context) error
	ClearCart(c echo.Context) error
	QuoteEnabled(c echo.Context) error
}

type quoteHandler struct {
	Quotes quotes.QuoteService
}

func NewQuoteHandler(
	Quotes quotes.QuoteService,
) QuoteHandler {
	return &quoteHandler{
		Quotes: Quotes,
	}
}

// CreateQuote handles POST /quotes
func (qh *quoteHandler) CreateQuote(c echo.Context) error {
	var req quotes.CreateQuoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	result, err := qh.Quotes.CreateQuote(c.Request().Context(), SessionFromContext(c), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}

// GetQuote handles GET /quotes/:id
func (qh *quoteHandler) GetQuote(c echo.Context) error {
	q, err := qh.Quotes.GetQuote(c.Request().Context(), SessionFromContext(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, q)
}

// ListQuotes handles GET /quotes
func (qh *quoteHandler) ListQuotes(c echo.Context) error {
	req := quotes.ListQuotesRequest{
		Search:    c.QueryParam("search"),
		SortedBy:  c.QueryParam("sortedBy"),
		SortOrder: c.QueryParam("sortOrder"),
	}
	req.Page, _ = strconv.Atoi(c.QueryParam("page"))
	req.PageSize, _ = strconv.Atoi(c.QueryParam("pageSize"))
	req.Organizations = c.QueryParams()["organization"]
	req.CostCenters = c.QueryParams()["costCenter"]
	req.Statuses = c.QueryParams()["status"]

	page, err := qh.Quotes.GetQuotes(c.Request().Context(), SessionFromContext(c), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, page)
}

// ListChildren handles GET /quotes/:id/children
func (qh *quoteHandler) ListChildren(c echo.Context) error {
	pageNum, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))

	page, err := qh.Quotes.GetChildrenQuotes(c.Request().Context(), SessionFromContext(c),
		c.Param("id"), pageNum, pageSize)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, page)
}

// UpdateQuote handles PUT /quotes/:id
func (qh *quoteHandler) UpdateQuote(c echo.Context) error {
	var req quotes.UpdateQuoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}
	req.ID = c.Param("id")

	q, err := qh.Quotes.UpdateQuote(c.Request().Context(), SessionFromContext(c), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, q)
}

// UseQuote handles POST /quotes/:id/use
func (qh *quoteHandler) UseQuote(c echo.Context) error {
	var req quotes.UseQuoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}
	req.ID = c.Param("id")

	if err := qh.Quotes.UseQuote(c.Request().Context(), SessionFromContext(c), req); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusOK)
}

// ClearCart handles POST /carts/:orderFormId/clear
func (qh *quoteHandler) ClearCart(c echo.Context) error {
	if err := qh.Quotes.ClearCart(c.Request().Context(), c.Param("orderFormId")); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusOK)
}

// QuoteEnabled handles GET /quotes-enabled
func (qh *quoteHandler) QuoteEnabled(c echo.Context) error {
	enabled := qh.Quotes.QuoteEnabledForUser(SessionFromContext(c))
	return c.JSON(http.StatusOK, map[string]bool{"enabled": enabled})
}

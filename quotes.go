package quotes

import (
	"context"
	"time"

	"goflare.io/quotes/models"
)

// CreateQuoteRequest is the input of CreateQuote. Items and Subtotal come
// from the caller's current cart. Organization and CostCenter are only
// honored for admin sessions creating a quote on a buyer's behalf, and are
// then both required.
type CreateQuoteRequest struct {
	ReferenceName  string             `json:"referenceName"`
	Items          []models.QuoteItem `json:"items"`
	Subtotal       int64              `json:"subtotal"`
	Note           string             `json:"note"`
	SendToSalesRep bool               `json:"sendToSalesRep"`
	Organization   string             `json:"organization,omitempty"`
	CostCenter     string             `json:"costCenter,omitempty"`
}

// CreateQuoteResult reports the documents a create produced. ChildIDs is
// empty unless the cart was split across sellers.
type CreateQuoteResult struct {
	ID       string   `json:"id"`
	ChildIDs []string `json:"childIds,omitempty"`
}

// UpdateQuoteRequest is the input of UpdateQuote. A nil Items slice means
// the items are untouched; a zero ExpirationDate means it is untouched.
type UpdateQuoteRequest struct {
	ID             string             `json:"id"`
	Items          []models.QuoteItem `json:"items"`
	Subtotal       int64              `json:"subtotal"`
	Note           string             `json:"note"`
	DeclineQuote   bool               `json:"decline"`
	ExpirationDate time.Time          `json:"expirationDate"`
}

// UseQuoteRequest is the input of UseQuote. An empty OrderFormID targets the
// caller's default cart.
type UseQuoteRequest struct {
	ID          string `json:"id"`
	OrderFormID string `json:"orderFormId"`
}

// ListQuotesRequest is the input of GetQuotes. The organization and cost
// center filters only take effect for callers whose permissions are not
// already restricted to their own.
type ListQuotesRequest struct {
	Organizations []string `json:"organizations"`
	CostCenters   []string `json:"costCenters"`
	Statuses      []string `json:"statuses"`
	Search        string   `json:"search"`
	SortedBy      string   `json:"sortedBy"`
	SortOrder     string   `json:"sortOrder"`
	Page          int      `json:"page"`
	PageSize      int      `json:"pageSize"`
}

type QuotePage struct {
	Quotes   []*models.Quote `json:"data"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
	Total    int             `json:"total"`
}

// QuoteService is the façade over the whole quote lifecycle: creation with
// seller splitting, permission-gated reads and updates, cart checkout,
// expiration sweeps and order placement events.
type QuoteService interface {
	CreateQuote(ctx context.Context, session models.Session, req CreateQuoteRequest) (*CreateQuoteResult, error)
	UpdateQuote(ctx context.Context, session models.Session, req UpdateQuoteRequest) (*models.Quote, error)
	UseQuote(ctx context.Context, session models.Session, req UseQuoteRequest) error

	GetQuote(ctx context.Context, session models.Session, id string) (*models.Quote, error)
	GetQuotes(ctx context.Context, session models.Session, req ListQuotesRequest) (*QuotePage, error)
	GetChildrenQuotes(ctx context.Context, session models.Session, parentID string, page, pageSize int) (*QuotePage, error)

	ClearCart(ctx context.Context, orderFormID string) error
	QuoteEnabledForUser(session models.Session) bool

	ExpireQuotes(ctx context.Context) (int, error)
	HandleOrderHook(ctx context.Context, event OrderEvent) error
	ProcessOrderEvent(ctx context.Context, event *OrderEvent) error

	GetAppSettings(ctx context.Context) (*models.Settings, error)
	SaveAppSettings(ctx context.Context, s *models.Settings) (*models.Settings, error)

	Close()
}

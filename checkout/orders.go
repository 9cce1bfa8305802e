package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

type OrderItem struct {
	ID       string `json:"id"`
	Seller   string `json:"seller"`
	Quantity int    `json:"quantity"`
}

type CustomApp struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

type CustomData struct {
	CustomApps []CustomApp `json:"customApps"`
}

type Order struct {
	OrderID       string      `json:"orderId"`
	Status        string      `json:"status"`
	Items         []OrderItem `json:"items"`
	CustomData    *CustomData `json:"customData"`
	FollowUpEmail string      `json:"followUpEmail"`
}

// QuoteID extracts the quote id a checkout flagged onto the order's custom
// data, if any.
func (o *Order) QuoteID(appID string) string {
	if o.CustomData == nil {
		return ""
	}
	for _, app := range o.CustomData.CustomApps {
		if app.ID == appID {
			return app.Fields["quoteId"]
		}
	}
	return ""
}

// ContainsSeller reports whether any order item was fulfilled by the given
// seller.
func (o *Order) ContainsSeller(sellerID string) bool {
	for _, item := range o.Items {
		if item.Seller == sellerID {
			return true
		}
	}
	return false
}

type OrderClient interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
}

var _ OrderClient = (*httpOrderClient)(nil)

type httpOrderClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPOrderClient(baseURL string, logger *zap.Logger) OrderClient {
	return &httpOrderClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (c *httpOrderClient) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	path := fmt.Sprintf("/oms/pvt/orders/%s", url.PathEscape(orderID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d fetching order %s", resp.StatusCode, orderID)
	}

	var order Order
	if err = json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", orderID, err)
	}

	return &order, nil
}

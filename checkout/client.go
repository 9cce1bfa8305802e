// Package checkout wraps the commerce platform's cart and order APIs. The
// lifecycle core only ever stages quote items into a cart and reads placed
// orders back; pricing and checkout themselves belong to the platform.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"goflare.io/quotes/models"
)

// DefaultOrderFormID marks a request without an existing cart; a fresh cart
// is created instead of clearing one.
const DefaultOrderFormID = "default-order-form"

type CartItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
	Seller   string `json:"seller"`
}

type PriceUpdate struct {
	Index int   `json:"index"`
	Price int64 `json:"price"`
}

// CartClient stages quote contents into a platform cart.
type CartClient interface {
	ClearCart(ctx context.Context, orderFormID string) error
	CreateCart(ctx context.Context) (string, error)
	AddItems(ctx context.Context, orderFormID string, items []models.QuoteItem, salesChannel string) ([]CartItem, error)
	SetItemPrices(ctx context.Context, orderFormID string, prices []PriceUpdate) error
	SetCustomData(ctx context.Context, orderFormID, appID, property, value string) error
}

var _ CartClient = (*httpCartClient)(nil)

type httpCartClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPCartClient(baseURL string, logger *zap.Logger) CartClient {
	return &httpCartClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (c *httpCartClient) ClearCart(ctx context.Context, orderFormID string) error {
	path := fmt.Sprintf("/checkout/pub/orderForm/%s/items/removeAll", url.PathEscape(orderFormID))
	payload := map[string]any{"expectedOrderFormSections": []string{"items"}}

	if err := c.do(ctx, http.MethodPost, path, payload, nil); err != nil {
		return fmt.Errorf("failed to clear cart %s: %w", orderFormID, err)
	}

	return nil
}

func (c *httpCartClient) CreateCart(ctx context.Context) (string, error) {
	var orderForm struct {
		OrderFormID string `json:"orderFormId"`
	}

	if err := c.do(ctx, http.MethodGet, "/checkout/pub/orderForm", nil, &orderForm); err != nil {
		return "", fmt.Errorf("failed to create cart: %w", err)
	}

	return orderForm.OrderFormID, nil
}

func (c *httpCartClient) AddItems(ctx context.Context, orderFormID string, items []models.QuoteItem, salesChannel string) ([]CartItem, error) {
	orderItems := make([]CartItem, 0, len(items))
	for _, item := range items {
		seller := item.Seller
		if seller == "" {
			seller = models.MarketplaceSellerID
		}
		orderItems = append(orderItems, CartItem{
			ID:       item.ID,
			Quantity: item.Quantity,
			Seller:   seller,
		})
	}

	path := fmt.Sprintf("/checkout/pub/orderForm/%s/items/", url.PathEscape(orderFormID))
	if salesChannel != "" {
		path += "?sc=" + url.QueryEscape(salesChannel)
	}

	payload := map[string]any{
		"expectedOrderFormSections": []string{"items"},
		"orderItems":                orderItems,
	}

	var added struct {
		Items []CartItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodPost, path, payload, &added); err != nil {
		return nil, fmt.Errorf("failed to add items to cart %s: %w", orderFormID, err)
	}

	return added.Items, nil
}

func (c *httpCartClient) SetItemPrices(ctx context.Context, orderFormID string, prices []PriceUpdate) error {
	path := fmt.Sprintf("/checkout/pub/orderForm/%s/items/update", url.PathEscape(orderFormID))
	payload := map[string]any{"orderItems": prices}

	if err := c.do(ctx, http.MethodPost, path, payload, nil); err != nil {
		return fmt.Errorf("failed to set item prices on cart %s: %w", orderFormID, err)
	}

	return nil
}

func (c *httpCartClient) SetCustomData(ctx context.Context, orderFormID, appID, property, value string) error {
	path := fmt.Sprintf("/checkout/pub/orderForm/%s/customData/%s/%s",
		url.PathEscape(orderFormID), url.PathEscape(appID), url.PathEscape(property))
	payload := map[string]any{"value": value}

	if err := c.do(ctx, http.MethodPut, path, payload, nil); err != nil {
		return fmt.Errorf("failed to set custom data on cart %s: %w", orderFormID, err)
	}

	return nil
}

func (c *httpCartClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if out != nil {
		if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

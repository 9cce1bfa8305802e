// Package sellerquotes covers the seller side of quote splitting: the
// settings/notification client for seller accounts, the cart partitioner,
// and the controller behind the seller-facing routes.
package sellerquotes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type QuoteSettings struct {
	ReceiveQuotes bool `json:"receiveQuotes"`
}

// SettingsClient talks to a seller account's quote endpoint.
type SettingsClient interface {
	VerifyQuoteSettings(ctx context.Context, sellerID string) (*QuoteSettings, error)
	NotifyNewQuote(ctx context.Context, sellerID, quoteID string, creationDate time.Time) error
}

const (
	clientRetries        = 5
	clientTimeout        = 5 * time.Second
	initialBackoff       = 100 * time.Millisecond
	verifySettingsPath   = "/verify-quote-settings"
	notifyNewQuotePath   = "/notify-new-quote"
	sellerQuotesBasePath = "/_v/b2b-seller-quotes"
)

var _ SettingsClient = (*httpClient)(nil)

type httpClient struct {
	// baseURL is a template with a %s placeholder for the seller account.
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPSettingsClient(baseURL string, logger *zap.Logger) SettingsClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: clientTimeout},
		logger:  logger,
	}
}

func (c *httpClient) route(sellerID, path string) string {
	return fmt.Sprintf(c.baseURL, sellerID) + sellerQuotesBasePath + path
}

func (c *httpClient) VerifyQuoteSettings(ctx context.Context, sellerID string) (*QuoteSettings, error) {
	var settings QuoteSettings
	err := c.do(ctx, http.MethodGet, c.route(sellerID, verifySettingsPath), nil, &settings)
	if err != nil {
		return nil, fmt.Errorf("failed to verify quote settings for seller %s: %w", sellerID, err)
	}

	return &settings, nil
}

func (c *httpClient) NotifyNewQuote(ctx context.Context, sellerID, quoteID string, creationDate time.Time) error {
	payload := map[string]any{
		"quoteId":      quoteID,
		"creationDate": creationDate,
	}

	if err := c.do(ctx, http.MethodPost, c.route(sellerID, notifyNewQuotePath), payload, nil); err != nil {
		return fmt.Errorf("failed to notify seller %s of quote %s: %w", sellerID, quoteID, err)
	}

	return nil
}

func (c *httpClient) do(ctx context.Context, method, url string, payload, out any) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= clientRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}

		lastErr = c.once(ctx, method, url, payload, out)
		if lastErr == nil {
			return nil
		}
	}

	return lastErr
}

func (c *httpClient) once(ctx context.Context, method, url string, payload, out any) error {
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

	req, err := http.NewRequestWithContext(ctx, method, url, body)
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
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	if out != nil {
		if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

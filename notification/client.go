// Package notification sends templated quote emails. Delivery is strictly
// best-effort: failures are logged by callers and never surface as request
// errors.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// MailClient delivers one templated message to one recipient.
type MailClient interface {
	SendTemplate(ctx context.Context, templateName, recipient string, data map[string]any) error
}

// DirectoryClient resolves users by storefront role, used to address
// quote-created mail to the sales admins.
type DirectoryClient interface {
	ListUsersByRole(ctx context.Context, roleSlug, organizationID string) ([]User, error)
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

var _ MailClient = (*httpMailClient)(nil)

type httpMailClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPMailClient(baseURL string, logger *zap.Logger) MailClient {
	return &httpMailClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (c *httpMailClient) SendTemplate(ctx context.Context, templateName, recipient string, data map[string]any) error {
	payload := map[string]any{
		"templateName": templateName,
		"jsonData": map[string]any{
			"message": map[string]any{"to": recipient},
			"quote":   data,
		},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mail/send", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d sending template %s", resp.StatusCode, templateName)
	}

	return nil
}

var _ DirectoryClient = (*httpDirectoryClient)(nil)

type httpDirectoryClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPDirectoryClient(baseURL string, logger *zap.Logger) DirectoryClient {
	return &httpDirectoryClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (c *httpDirectoryClient) ListUsersByRole(ctx context.Context, roleSlug, organizationID string) ([]User, error) {
	url := fmt.Sprintf("%s/users?role=%s", c.baseURL, roleSlug)
	if organizationID != "" {
		url += "&organizationId=" + organizationID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d listing %s users", resp.StatusCode, roleSlug)
	}

	var users []User
	if err = json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("failed to decode user list: %w", err)
	}

	return users, nil
}

// Package metrics posts best-effort usage events to the platform analytics
// collector. Nothing here is allowed to fail a caller: senders return errors
// for the worker pool to log and that is the end of it.
package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"goflare.io/quotes/models"
)

const eventName = "b2b-quotes-data"

// Event is one schemaless analytics record.
type Event struct {
	Name        string         `json:"name"`
	Kind        string         `json:"kind"`
	Description string         `json:"description"`
	Fields      map[string]any `json:"fields"`
}

// CreateQuoteEvent records who turned a cart into a quote.
func CreateQuoteEvent(session models.Session, quoteID, referenceName string, sendToSalesRep bool, createdAt time.Time) Event {
	return Event{
		Name:        eventName,
		Kind:        "create-quote-event",
		Description: "Create Quotation Action",
		Fields: map[string]any{
			"buyer_org_id":         session.OrganizationID,
			"cost_center_id":       session.CostCenterID,
			"member_email":         session.Email,
			"role":                 session.RoleSlug,
			"quote_id":             quoteID,
			"quote_reference_name": referenceName,
			"send_to_sales_rep":    sendToSalesRep,
			"creation_date":        createdAt.Format(time.RFC3339),
		},
	}
}

// UseQuoteEvent records a quote being staged into a cart.
func UseQuoteEvent(session models.Session, q *models.Quote, orderFormID string, usedAt time.Time) Event {
	return Event{
		Name:        eventName,
		Kind:        "use-quote-event",
		Description: "Use Quotation Action",
		Fields: map[string]any{
			"buyer_org_id":         q.Organization,
			"cost_center_id":       q.CostCenter,
			"quote_id":             q.ID,
			"quote_reference_name": q.ReferenceName,
			"order_form_id":        orderFormID,
			"creator_email":        q.CreatorEmail,
			"user_email":           session.Email,
			"quote_creation_date":  q.CreationDate.Format(time.RFC3339),
			"quote_last_update":    q.LastUpdate.Format(time.RFC3339),
			"quote_use_date":       usedAt.Format(time.RFC3339),
		},
	}
}

// Reporter delivers events to the analytics collector.
type Reporter interface {
	Send(ctx context.Context, event Event) error
}

var _ Reporter = (*httpReporter)(nil)

type httpReporter struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewHTTPReporter(url string, logger *zap.Logger) Reporter {
	return &httpReporter{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (r *httpReporter) Send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode metric event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build metric request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send metric event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("analytics collector returned status %d", resp.StatusCode)
	}

	return nil
}

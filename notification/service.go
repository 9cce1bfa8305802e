package notification

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"goflare.io/quotes/models"
)

const (
	templateQuoteCreated = "quote-created"
	templateQuoteUpdated = "quote-updated"
	templateQuotePlaced  = "quote-placed"

	salesAdminRole = "sales-admin"
)

// Service fans quote lifecycle mail out to the parties that touched a quote.
type Service interface {
	QuoteCreated(ctx context.Context, q *models.Quote) error
	QuoteUpdated(ctx context.Context, q *models.Quote, lastUpdate models.QuoteUpdate) error
	QuotePlaced(ctx context.Context, q *models.Quote, orderID string) error
}

var _ Service = (*service)(nil)

type service struct {
	mail      MailClient
	directory DirectoryClient
	logger    *zap.Logger
}

func NewService(mail MailClient, directory DirectoryClient, logger *zap.Logger) Service {
	return &service{
		mail:      mail,
		directory: directory,
		logger:    logger,
	}
}

// QuoteCreated notifies the sales admins of the quote's organization so a
// representative can pick it up for review.
func (s *service) QuoteCreated(ctx context.Context, q *models.Quote) error {
	admins, err := s.directory.ListUsersByRole(ctx, salesAdminRole, q.Organization)
	if err != nil {
		return err
	}

	data := quoteTemplateData(q)
	for _, admin := range admins {
		if !validEmail(admin.Email) {
			continue
		}
		if err := s.mail.SendTemplate(ctx, templateQuoteCreated, admin.Email, data); err != nil {
			s.logger.Warn("Failed to send quote created mail",
				zap.Error(err),
				zap.String("quote_id", q.ID),
				zap.String("recipient", admin.Email))
		}
	}

	return nil
}

// QuoteUpdated mails everyone who previously acted on the quote, the author
// of the update included.
func (s *service) QuoteUpdated(ctx context.Context, q *models.Quote, lastUpdate models.QuoteUpdate) error {
	data := quoteTemplateData(q)
	data["lastUpdate"] = map[string]any{
		"email":  lastUpdate.Email,
		"role":   lastUpdate.Role,
		"status": string(lastUpdate.Status),
		"note":   lastUpdate.Note,
	}

	for _, recipient := range RecipientsFromHistory(q.UpdateHistory) {
		if err := s.mail.SendTemplate(ctx, templateQuoteUpdated, recipient, data); err != nil {
			s.logger.Warn("Failed to send quote updated mail",
				zap.Error(err),
				zap.String("quote_id", q.ID),
				zap.String("recipient", recipient))
		}
	}

	return nil
}

// QuotePlaced tells everyone involved that the quote was converted into an
// order.
func (s *service) QuotePlaced(ctx context.Context, q *models.Quote, orderID string) error {
	data := quoteTemplateData(q)
	data["orderId"] = orderID

	for _, recipient := range RecipientsFromHistory(q.UpdateHistory) {
		if err := s.mail.SendTemplate(ctx, templateQuotePlaced, recipient, data); err != nil {
			s.logger.Warn("Failed to send quote placed mail",
				zap.Error(err),
				zap.String("quote_id", q.ID),
				zap.String("recipient", recipient))
		}
	}

	return nil
}

func quoteTemplateData(q *models.Quote) map[string]any {
	return map[string]any{
		"id":             q.ID,
		"referenceName":  q.ReferenceName,
		"status":         string(q.Status),
		"organization":   q.Organization,
		"costCenter":     q.CostCenter,
		"expirationDate": q.ExpirationDate,
	}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

// RecipientsFromHistory collects the distinct addresses that appear in a
// quote's update history. Entries written by system actors (expiration,
// order placement) and malformed addresses are dropped.
func RecipientsFromHistory(history []models.QuoteUpdate) []string {
	seen := make(map[string]struct{}, len(history))
	var out []string

	for _, entry := range history {
		if strings.HasSuffix(entry.Role, "-system") {
			continue
		}
		if !validEmail(entry.Email) {
			continue
		}
		if _, ok := seen[entry.Email]; ok {
			continue
		}
		seen[entry.Email] = struct{}{}
		out = append(out, entry.Email)
	}

	return out
}

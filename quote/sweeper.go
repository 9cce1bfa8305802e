package quote

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"goflare.io/quotes/docstore"
	"goflare.io/quotes/models"
	"goflare.io/quotes/models/enum"
)

const (
	sweepPageSize = 500

	expirationRole = "expiration-system"
	noReplyEmail   = "noreply@notifications.b2b"
)

// Notifier is the slice of the notification service the sweeper needs.
type Notifier interface {
	QuoteUpdated(ctx context.Context, q *models.Quote, lastUpdate models.QuoteUpdate) error
}

// Sweeper expires quotes whose expiration date has passed. It is invoked
// periodically by an external scheduler through an HTTP entry point and is
// idempotent: already-expired quotes are excluded by the search filter.
type Sweeper struct {
	repo     Repository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewSweeper(repo Repository, notifier Notifier, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Run processes one batch of overdue quotes and returns how many were
// expired. Per-item failures are logged and do not abort the batch.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	baseDate := s.now()

	overdue, _, err := s.repo.Search(ctx,
		docstore.Filter{
			docstore.NotEq("status", string(enum.QuoteStatusExpired)),
			docstore.LessThan("expirationDate", baseDate),
		},
		docstore.Sort{Field: "creationDate"},
		docstore.Pagination{Page: 1, PageSize: sweepPageSize},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to query overdue quotes: %w", err)
	}

	s.logger.Info("Expiration sweep found overdue quotes", zap.Int("count", len(overdue)))

	expired := 0
	for index, q := range overdue {
		if q.Status == enum.QuoteStatusPlaced || q.Status == enum.QuoteStatusDeclined {
			continue
		}

		if err := s.expire(ctx, q, baseDate, index); err != nil {
			s.logger.Error("Failed to expire quote",
				zap.Error(err),
				zap.String("quote_id", q.ID))
			continue
		}
		expired++
	}

	return expired, nil
}

func (s *Sweeper) expire(ctx context.Context, q *models.Quote, baseDate time.Time, index int) error {
	// Stagger timestamps by one second per item so lastUpdate stays
	// strictly increasing across the batch.
	when := baseDate.Add(time.Duration(index) * time.Second)

	update := models.QuoteUpdate{
		Date:   when,
		Email:  noReplyEmail,
		Role:   expirationRole,
		Status: enum.QuoteStatusExpired,
	}
	history := append(q.UpdateHistory, update)

	err := s.repo.UpdatePartial(ctx, q.ID, map[string]any{
		"status":        enum.QuoteStatusExpired,
		"lastUpdate":    when,
		"updateHistory": history,
	})
	if err != nil {
		return err
	}

	q.Status = enum.QuoteStatusExpired
	q.LastUpdate = when
	q.UpdateHistory = history

	if nerr := s.notifier.QuoteUpdated(ctx, q, update); nerr != nil {
		s.logger.Warn("Failed to notify quote expiration",
			zap.Error(nerr),
			zap.String("quote_id", q.ID))
	}

	return nil
}

package sellerquotes

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"goflare.io/quotes/docstore"
	"goflare.io/quotes/models"
	"goflare.io/quotes/quote"
)

// TaskQueue accepts fire-and-forget work. The root worker pool implements
// it; the controller never waits on submitted tasks.
type TaskQueue interface {
	Submit(name string, task func(ctx context.Context) error)
}

// Controller backs the seller-facing routes: a seller account reading and
// revising its own child quotes. Every save of a child quote triggers an
// asynchronous reconciliation of the parent.
type Controller struct {
	repo       quote.Repository
	reconciler *quote.Reconciler
	tasks      TaskQueue
	logger     *zap.Logger
}

func NewController(repo quote.Repository, reconciler *quote.Reconciler, tasks TaskQueue, logger *zap.Logger) *Controller {
	return &Controller{
		repo:       repo,
		reconciler: reconciler,
		tasks:      tasks,
		logger:     logger,
	}
}

func (c *Controller) GetSellerQuote(ctx context.Context, sellerID, id string) (*models.Quote, error) {
	q, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.Seller != sellerID {
		return nil, quote.ErrQuoteNotFound
	}

	return q, nil
}

func (c *Controller) ListSellerQuotes(ctx context.Context, sellerID string, page, pageSize int, descending bool) ([]*models.Quote, *docstore.PageInfo, error) {
	return c.repo.Search(ctx,
		docstore.Filter{docstore.Eq("seller", sellerID)},
		docstore.Sort{Field: "creationDate", Descending: descending},
		docstore.Pagination{Page: page, PageSize: pageSize},
	)
}

// SaveSellerQuote patches a seller's quote. The fields payload is merged
// into the stored document as-is; a save against a child quote always
// reconciles the parent in the background. Reconciliation is idempotent, so
// saves that leave the derived fields alone are harmless.
func (c *Controller) SaveSellerQuote(ctx context.Context, sellerID, id string, fields map[string]any) error {
	current, err := c.GetSellerQuote(ctx, sellerID, id)
	if err != nil {
		return err
	}

	if err = c.repo.UpdatePartial(ctx, id, fields); err != nil {
		return fmt.Errorf("failed to save seller quote: %w", err)
	}

	if current.ParentQuote == "" {
		return nil
	}

	parentID := current.ParentQuote
	c.tasks.Submit("reconcile-parent-quote", func(taskCtx context.Context) error {
		return c.reconciler.Reconcile(taskCtx, parentID)
	})

	return nil
}

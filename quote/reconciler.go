package quote

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"goflare.io/quotes/models"
	"goflare.io/quotes/models/enum"
)

const reconcileRole = "reconciliation-system"

// Reconciler recomputes a parent quote's derived fields from its children.
// It runs detached from the write that triggered it; failures are the
// caller's to log, never to surface.
type Reconciler struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewReconciler(repo Repository, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Reconcile refreshes the parent's subtotal, and its status when the
// children reach a consensus.
func (r *Reconciler) Reconcile(ctx context.Context, parentID string) error {
	children, err := r.repo.ListChildren(ctx, parentID)
	if err != nil {
		return fmt.Errorf("failed to list children of %s: %w", parentID, err)
	}
	if len(children) == 0 {
		return nil
	}

	parent, err := r.repo.Get(ctx, parentID)
	if err != nil {
		return fmt.Errorf("failed to load parent %s: %w", parentID, err)
	}

	var subtotal int64
	for _, child := range children {
		subtotal += child.Subtotal
	}

	fields := map[string]any{"subtotal": subtotal}
	if status, ok := ConsensusStatus(children); ok && status != parent.Status {
		now := r.now()
		fields["status"] = status
		fields["lastUpdate"] = now
		fields["updateHistory"] = append(parent.UpdateHistory, models.QuoteUpdate{
			Date:   now,
			Email:  noReplyEmail,
			Role:   reconcileRole,
			Status: status,
			Note:   "Derived from seller quotes",
		})
	}

	if err = r.repo.UpdatePartial(ctx, parentID, fields); err != nil {
		return fmt.Errorf("failed to reconcile parent %s: %w", parentID, err)
	}

	r.logger.Info("Reconciled parent quote",
		zap.String("parent_quote", parentID),
		zap.Int("children", len(children)),
		zap.Int64("subtotal", subtotal))

	return nil
}

// ConsensusStatus derives a parent status from its children, in priority
// order: unanimous status; unanimous among non-declined children; pending if
// any child is pending; revised if any child is revised. When none applies
// the parent status is left untouched.
func ConsensusStatus(children []*models.Quote) (enum.QuoteStatus, bool) {
	if status, ok := sharedStatus(children); ok {
		return status, true
	}

	var nonDeclined []*models.Quote
	for _, child := range children {
		if child.Status != enum.QuoteStatusDeclined {
			nonDeclined = append(nonDeclined, child)
		}
	}
	if status, ok := sharedStatus(nonDeclined); ok {
		return status, true
	}

	for _, child := range children {
		if child.Status == enum.QuoteStatusPending {
			return enum.QuoteStatusPending, true
		}
	}
	for _, child := range children {
		if child.Status == enum.QuoteStatusRevised {
			return enum.QuoteStatusRevised, true
		}
	}

	return "", false
}

func sharedStatus(quotes []*models.Quote) (enum.QuoteStatus, bool) {
	if len(quotes) == 0 {
		return "", false
	}

	status := quotes[0].Status
	for _, q := range quotes[1:] {
		if q.Status != status {
			return "", false
		}
	}

	return status, true
}

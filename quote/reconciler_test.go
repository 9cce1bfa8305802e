package quote

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	"go.uber.org/zap"

	"goflare.io/quotes/docstore"
	"goflare.io/quotes/models"
	"goflare.io/quotes/models/enum"
)

type fakeRepository struct {
	quotes  map[string]*models.Quote
	patches map[string]map[string]any
	nextID  int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		quotes:  make(map[string]*models.Quote),
		patches: make(map[string]map[string]any),
	}
}

func (f *fakeRepository) add(q *models.Quote) *models.Quote {
	if q.ID == "" {
		f.nextID++
		q.ID = fmt.Sprintf("q-%d", f.nextID)
	}
	f.quotes[q.ID] = q
	return q
}

func (f *fakeRepository) Create(_ context.Context, q *models.Quote) (string, error) {
	return f.add(q).ID, nil
}

func (f *fakeRepository) Get(_ context.Context, id string) (*models.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, ErrQuoteNotFound
	}
	copied := *q
	return &copied, nil
}

func (f *fakeRepository) Update(_ context.Context, q *models.Quote) error {
	if _, ok := f.quotes[q.ID]; !ok {
		return ErrQuoteNotFound
	}
	copied := *q
	f.quotes[q.ID] = &copied
	return nil
}

func (f *fakeRepository) UpdatePartial(_ context.Context, id string, fields map[string]any) error {
	if _, ok := f.quotes[id]; !ok {
		return ErrQuoteNotFound
	}
	f.patches[id] = fields
	if status, ok := fields["status"].(enum.QuoteStatus); ok {
		f.quotes[id].Status = status
	}
	if subtotal, ok := fields["subtotal"].(int64); ok {
		f.quotes[id].Subtotal = subtotal
	}
	return nil
}

// Search understands just the clauses the production code issues: equality
// on parentQuote, the expired-status exclusion and the expiration cutoff.
func (f *fakeRepository) Search(_ context.Context, filter docstore.Filter, sort docstore.Sort, page docstore.Pagination) ([]*models.Quote, *docstore.PageInfo, error) {
	matches := func(q *models.Quote) bool {
		for _, clause := range filter {
			switch {
			case clause.Field == "parentQuote" && clause.Op == docstore.OpEq:
				if q.ParentQuote != clause.Value.(string) {
					return false
				}
			case clause.Field == "status" && clause.Op == docstore.OpNotEq:
				if string(q.Status) == clause.Value.(string) {
					return false
				}
			case clause.Field == "expirationDate" && clause.Op == docstore.OpLessThan:
				if !q.ExpirationDate.Before(clause.Value.(time.Time)) {
					return false
				}
			}
		}
		return true
	}

	var out []*models.Quote
	for _, q := range f.quotes {
		if matches(q) {
			out = append(out, q)
		}
	}

	if sort.Field == "creationDate" {
		slices.SortFunc(out, func(a, b *models.Quote) int {
			return a.CreationDate.Compare(b.CreationDate)
		})
	}

	info := &docstore.PageInfo{Page: page.Page, PageSize: page.PageSize, Total: len(out)}
	if page.Page > 1 {
		return nil, info, nil
	}
	return out, info, nil
}

func (f *fakeRepository) ListChildren(ctx context.Context, parentID string) ([]*models.Quote, error) {
	out, _, err := f.Search(ctx,
		docstore.Filter{docstore.Eq("parentQuote", parentID)},
		docstore.Sort{}, docstore.Pagination{Page: 1, PageSize: childrenPageSize})
	return out, err
}

func TestConsensusStatus(t *testing.T) {
	mk := func(statuses ...enum.QuoteStatus) []*models.Quote {
		out := make([]*models.Quote, 0, len(statuses))
		for _, s := range statuses {
			out = append(out, &models.Quote{Status: s})
		}
		return out
	}

	tests := []struct {
		name     string
		children []*models.Quote
		want     enum.QuoteStatus
		wantOK   bool
	}{
		{"unanimous", mk(enum.QuoteStatusReady, enum.QuoteStatusReady), enum.QuoteStatusReady, true},
		{"unanimous among non declined", mk(enum.QuoteStatusPlaced, enum.QuoteStatusDeclined, enum.QuoteStatusPlaced), enum.QuoteStatusPlaced, true},
		{"any pending wins over revised", mk(enum.QuoteStatusRevised, enum.QuoteStatusPending, enum.QuoteStatusReady), enum.QuoteStatusPending, true},
		{"any revised when no pending", mk(enum.QuoteStatusRevised, enum.QuoteStatusReady), enum.QuoteStatusRevised, true},
		{"no consensus", mk(enum.QuoteStatusReady, enum.QuoteStatusPlaced), "", false},
		{"all declined", mk(enum.QuoteStatusDeclined, enum.QuoteStatusDeclined), enum.QuoteStatusDeclined, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ConsensusStatus(tt.children)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("ConsensusStatus() = (%s, %v), want (%s, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("sums child subtotals onto parent", func(t *testing.T) {
		repo := newFakeRepository()
		parent := repo.add(&models.Quote{
			Status: enum.QuoteStatusReady, HasChildren: true,
			UpdateHistory: []models.QuoteUpdate{{Email: "buyer@acme.com", Status: enum.QuoteStatusReady}},
		})
		repo.add(&models.Quote{ParentQuote: parent.ID, Subtotal: 1000, Status: enum.QuoteStatusPending})
		repo.add(&models.Quote{ParentQuote: parent.ID, Subtotal: 2500, Status: enum.QuoteStatusReady})

		if err := NewReconciler(repo, logger).Reconcile(ctx, parent.ID); err != nil {
			t.Fatalf("Reconcile() = %v", err)
		}

		patch := repo.patches[parent.ID]
		if patch == nil {
			t.Fatal("parent was not patched")
		}
		if got := patch["subtotal"].(int64); got != 3500 {
			t.Fatalf("subtotal = %d, want 3500", got)
		}
		if got := patch["status"].(enum.QuoteStatus); got != enum.QuoteStatusPending {
			t.Fatalf("status = %s, want pending", got)
		}

		history := patch["updateHistory"].([]models.QuoteUpdate)
		if len(history) != 2 {
			t.Fatalf("history = %+v, want one appended entry", history)
		}
		entry := history[1]
		if entry.Role != reconcileRole || entry.Email != noReplyEmail || entry.Status != enum.QuoteStatusPending {
			t.Fatalf("entry = %+v", entry)
		}
		if _, ok := patch["lastUpdate"]; !ok {
			t.Fatal("lastUpdate not bumped with the status")
		}
	})

	t.Run("matching consensus writes subtotal only", func(t *testing.T) {
		repo := newFakeRepository()
		parent := repo.add(&models.Quote{Status: enum.QuoteStatusPending, HasChildren: true})
		repo.add(&models.Quote{ParentQuote: parent.ID, Subtotal: 1000, Status: enum.QuoteStatusPending})
		repo.add(&models.Quote{ParentQuote: parent.ID, Subtotal: 2500, Status: enum.QuoteStatusPending})

		if err := NewReconciler(repo, logger).Reconcile(ctx, parent.ID); err != nil {
			t.Fatalf("Reconcile() = %v", err)
		}

		patch := repo.patches[parent.ID]
		if _, ok := patch["status"]; ok {
			t.Fatal("status rewritten despite no change")
		}
		if _, ok := patch["updateHistory"]; ok {
			t.Fatal("history entry appended despite no status change")
		}
		if got := patch["subtotal"].(int64); got != 3500 {
			t.Fatalf("subtotal = %d, want 3500", got)
		}
	})

	t.Run("leaves status untouched without consensus", func(t *testing.T) {
		repo := newFakeRepository()
		parent := repo.add(&models.Quote{Status: enum.QuoteStatusPending, HasChildren: true})
		repo.add(&models.Quote{ParentQuote: parent.ID, Subtotal: 100, Status: enum.QuoteStatusReady})
		repo.add(&models.Quote{ParentQuote: parent.ID, Subtotal: 200, Status: enum.QuoteStatusPlaced})

		if err := NewReconciler(repo, logger).Reconcile(ctx, parent.ID); err != nil {
			t.Fatalf("Reconcile() = %v", err)
		}

		if _, ok := repo.patches[parent.ID]["status"]; ok {
			t.Fatal("status patched without consensus")
		}
	})

	t.Run("no children is a no-op", func(t *testing.T) {
		repo := newFakeRepository()
		parent := repo.add(&models.Quote{Status: enum.QuoteStatusPending})

		if err := NewReconciler(repo, logger).Reconcile(ctx, parent.ID); err != nil {
			t.Fatalf("Reconcile() = %v", err)
		}
		if _, ok := repo.patches[parent.ID]; ok {
			t.Fatal("parent patched despite no children")
		}
	})
}

package quote

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"goflare.io/quotes/models"
	"goflare.io/quotes/models/enum"
)

type recordingNotifier struct {
	updated []models.QuoteUpdate
}

func (n *recordingNotifier) QuoteUpdated(_ context.Context, _ *models.Quote, lastUpdate models.QuoteUpdate) error {
	n.updated = append(n.updated, lastUpdate)
	return nil
}

func TestSweeperRun(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	newSweeper := func(repo Repository, notifier Notifier) *Sweeper {
		s := NewSweeper(repo, notifier, zap.NewNop())
		s.now = func() time.Time { return now }
		return s
	}

	t.Run("expires overdue quotes", func(t *testing.T) {
		repo := newFakeRepository()
		overdue := repo.add(&models.Quote{
			Status:         enum.QuoteStatusReady,
			CreationDate:   now.AddDate(0, 0, -40),
			ExpirationDate: now.AddDate(0, 0, -10),
			UpdateHistory:  []models.QuoteUpdate{{Email: "buyer@acme.com"}},
		})
		current := repo.add(&models.Quote{
			Status:         enum.QuoteStatusReady,
			ExpirationDate: now.AddDate(0, 0, 10),
		})

		notifier := &recordingNotifier{}
		expired, err := newSweeper(repo, notifier).Run(ctx)
		if err != nil {
			t.Fatalf("Run() = %v", err)
		}
		if expired != 1 {
			t.Fatalf("expired = %d, want 1", expired)
		}

		if repo.quotes[overdue.ID].Status != enum.QuoteStatusExpired {
			t.Fatalf("overdue quote status = %s", repo.quotes[overdue.ID].Status)
		}
		if repo.quotes[current.ID].Status != enum.QuoteStatusReady {
			t.Fatalf("current quote status = %s", repo.quotes[current.ID].Status)
		}

		patch := repo.patches[overdue.ID]
		history := patch["updateHistory"].([]models.QuoteUpdate)
		if len(history) != 2 {
			t.Fatalf("history length = %d, want 2", len(history))
		}
		last := history[1]
		if last.Role != expirationRole || last.Email != noReplyEmail {
			t.Fatalf("system entry = %+v", last)
		}

		if len(notifier.updated) != 1 {
			t.Fatalf("notifications = %d, want 1", len(notifier.updated))
		}
	})

	t.Run("skips placed and declined quotes", func(t *testing.T) {
		repo := newFakeRepository()
		placed := repo.add(&models.Quote{
			Status:         enum.QuoteStatusPlaced,
			ExpirationDate: now.AddDate(0, 0, -1),
		})
		declined := repo.add(&models.Quote{
			Status:         enum.QuoteStatusDeclined,
			ExpirationDate: now.AddDate(0, 0, -1),
		})

		expired, err := newSweeper(repo, &recordingNotifier{}).Run(ctx)
		if err != nil {
			t.Fatalf("Run() = %v", err)
		}
		if expired != 0 {
			t.Fatalf("expired = %d, want 0", expired)
		}
		if repo.quotes[placed.ID].Status != enum.QuoteStatusPlaced ||
			repo.quotes[declined.ID].Status != enum.QuoteStatusDeclined {
			t.Fatal("terminal quotes were modified")
		}
	})

	t.Run("staggers timestamps across the batch", func(t *testing.T) {
		repo := newFakeRepository()
		first := repo.add(&models.Quote{
			Status:         enum.QuoteStatusReady,
			CreationDate:   now.AddDate(0, 0, -50),
			ExpirationDate: now.AddDate(0, 0, -2),
		})
		second := repo.add(&models.Quote{
			Status:         enum.QuoteStatusReady,
			CreationDate:   now.AddDate(0, 0, -45),
			ExpirationDate: now.AddDate(0, 0, -2),
		})

		if _, err := newSweeper(repo, &recordingNotifier{}).Run(ctx); err != nil {
			t.Fatalf("Run() = %v", err)
		}

		firstAt := repo.patches[first.ID]["lastUpdate"].(time.Time)
		secondAt := repo.patches[second.ID]["lastUpdate"].(time.Time)
		if !secondAt.Equal(firstAt.Add(time.Second)) {
			t.Fatalf("timestamps %v and %v are not staggered by one second", firstAt, secondAt)
		}
	})
}

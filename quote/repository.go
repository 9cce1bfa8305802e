package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"goflare.io/quotes/docstore"
	"goflare.io/quotes/models"
)

// Entity is the document-store entity quotes persist under.
const Entity = "quotes"

const childrenPageSize = 100

type Repository interface {
	Create(ctx context.Context, q *models.Quote) (string, error)
	Get(ctx context.Context, id string) (*models.Quote, error)
	Update(ctx context.Context, q *models.Quote) error
	UpdatePartial(ctx context.Context, id string, fields map[string]any) error
	Search(ctx context.Context, filter docstore.Filter, sort docstore.Sort, page docstore.Pagination) ([]*models.Quote, *docstore.PageInfo, error)
	ListChildren(ctx context.Context, parentID string) ([]*models.Quote, error)
}

var _ Repository = (*repository)(nil)

type repository struct {
	store  docstore.Store
	logger *zap.Logger
}

func NewRepository(store docstore.Store, logger *zap.Logger) Repository {
	return &repository{
		store:  store,
		logger: logger,
	}
}

func toFields(q *models.Quote) (map[string]any, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quote: %w", err)
	}

	var fields map[string]any
	if err = json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode quote fields: %w", err)
	}

	delete(fields, "id")
	return fields, nil
}

func fromDocument(doc *docstore.Document) (*models.Quote, error) {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document fields: %w", err)
	}

	var q models.Quote
	if err = json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("failed to decode quote document: %w", err)
	}

	q.ID = doc.ID
	return &q, nil
}

func (r *repository) Create(ctx context.Context, q *models.Quote) (string, error) {
	fields, err := toFields(q)
	if err != nil {
		return "", err
	}

	id, err := r.store.Create(ctx, Entity, fields)
	if err != nil {
		return "", fmt.Errorf("failed to create quote: %w", err)
	}

	return id, nil
}

func (r *repository) Get(ctx context.Context, id string) (*models.Quote, error) {
	doc, err := r.store.Get(ctx, Entity, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	return fromDocument(doc)
}

func (r *repository) Update(ctx context.Context, q *models.Quote) error {
	fields, err := toFields(q)
	if err != nil {
		return err
	}

	if err = r.store.UpdateFull(ctx, Entity, q.ID, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrQuoteNotFound
		}
		return fmt.Errorf("failed to update quote: %w", err)
	}

	return nil
}

func (r *repository) UpdatePartial(ctx context.Context, id string, fields map[string]any) error {
	if err := r.store.UpdatePartial(ctx, Entity, id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrQuoteNotFound
		}
		return fmt.Errorf("failed to patch quote: %w", err)
	}

	return nil
}

func (r *repository) Search(ctx context.Context, filter docstore.Filter, sort docstore.Sort, page docstore.Pagination) ([]*models.Quote, *docstore.PageInfo, error) {
	result, err := r.store.Search(ctx, Entity, filter, sort, page)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search quotes: %w", err)
	}

	quotes := make([]*models.Quote, 0, len(result.Data))
	for i := range result.Data {
		q, err := fromDocument(&result.Data[i])
		if err != nil {
			return nil, nil, err
		}
		quotes = append(quotes, q)
	}

	return quotes, &result.Pagination, nil
}

func (r *repository) ListChildren(ctx context.Context, parentID string) ([]*models.Quote, error) {
	var children []*models.Quote

	for page := 1; ; page++ {
		batch, _, err := r.Search(ctx,
			docstore.Filter{docstore.Eq("parentQuote", parentID)},
			docstore.Sort{Field: "creationDate"},
			docstore.Pagination{Page: page, PageSize: childrenPageSize},
		)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		children = append(children, batch...)
		if len(batch) < childrenPageSize {
			break
		}
	}

	return children, nil
}

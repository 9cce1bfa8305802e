// Package docstore is a generic schemaless document store. Documents are
// grouped by entity name and hold free-form JSON fields; searches use a small
// conjunctive filter language with OR-groups, wildcard matches and null
// checks.
package docstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

type Pagination struct {
	Page     int
	PageSize int
}

type Sort struct {
	Field      string
	Descending bool
}

type PageInfo struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

type SearchResult struct {
	Data       []Document `json:"data"`
	Pagination PageInfo   `json:"pagination"`
}

type Store interface {
	Create(ctx context.Context, entity string, fields map[string]any) (string, error)
	Get(ctx context.Context, entity, id string) (*Document, error)
	UpdateFull(ctx context.Context, entity, id string, fields map[string]any) error
	UpdatePartial(ctx context.Context, entity, id string, fields map[string]any) error
	Search(ctx context.Context, entity string, filter Filter, sort Sort, page Pagination) (*SearchResult, error)
}

package docstore

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"goflare.io/ember"
	"goflare.io/ignite"
	"goflare.io/quotes/driver"
)

var _ Store = (*postgresStore)(nil)

type postgresStore struct {
	conn        driver.PostgresPool
	txManager   *driver.TransactionManager
	logger      *zap.Logger
	cache       *ember.MultiCache
	poolManager ignite.Manager
}

func NewPostgresStore(conn driver.PostgresPool, txManager *driver.TransactionManager, logger *zap.Logger, cache *ember.MultiCache, poolManager ignite.Manager) (Store, error) {

	if err := poolManager.RegisterPool(reflect.TypeOf(&Document{}), ignite.Config[any]{
		InitialSize: 10,
		MaxSize:     100,
		MaxIdleTime: 10 * time.Minute,
		Factory:     func() (any, error) { return new(Document), nil },
		Reset:       func(obj any) error { *obj.(*Document) = Document{}; return nil },
	}); err != nil {
		return nil, fmt.Errorf("failed to register document pool: %w", err)
	}

	return &postgresStore{
		conn:        conn,
		txManager:   txManager,
		logger:      logger,
		cache:       cache,
		poolManager: poolManager,
	}, nil
}

func cacheKey(entity, id string) string {
	return fmt.Sprintf("document:%s:%s", entity, id)
}

func (s *postgresStore) Create(ctx context.Context, entity string, fields map[string]any) (string, error) {
	const query = `
    INSERT INTO documents (entity, fields, created_at, updated_at)
    VALUES (@entity, @fields, NOW(), NOW())
    RETURNING id::text
    `

	var id string
	err := s.conn.QueryRow(ctx, query, pgx.NamedArgs{
		"entity": entity,
		"fields": fields,
	}).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	if err = s.cache.Set(ctx, cacheKey(entity, id), &Document{ID: id, Fields: fields}); err != nil {
		s.logger.Warn("Failed to cache new document", zap.Error(err), zap.String("entity", entity), zap.String("id", id))
	}

	return id, nil
}

func (s *postgresStore) Get(ctx context.Context, entity, id string) (*Document, error) {
	key := cacheKey(entity, id)

	var cached Document
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("Failed to get document from cache", zap.Error(err), zap.String("id", id))
	} else if found {
		return &cached, nil
	}

	const query = `
    SELECT id::text, fields
    FROM documents
    WHERE entity = @entity AND id = @id::uuid
    `

	docObj, release, err := s.getFromPool(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	doc := docObj.(*Document)
	err = s.conn.QueryRow(ctx, query, pgx.NamedArgs{"entity": entity, "id": id}).
		Scan(&doc.ID, &doc.Fields)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	result := &Document{ID: doc.ID, Fields: doc.Fields}

	if err = s.cache.Set(ctx, key, result); err != nil {
		s.logger.Warn("Failed to cache document", zap.Error(err), zap.String("id", id))
	}

	return result, nil
}

func (s *postgresStore) UpdateFull(ctx context.Context, entity, id string, fields map[string]any) error {
	const query = `
    UPDATE documents
    SET fields = @fields, updated_at = NOW()
    WHERE entity = @entity AND id = @id::uuid
    `

	tag, err := s.conn.Exec(ctx, query, pgx.NamedArgs{
		"entity": entity,
		"id":     id,
		"fields": fields,
	})
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err = s.cache.Set(ctx, cacheKey(entity, id), &Document{ID: id, Fields: fields}); err != nil {
		s.logger.Warn("Failed to update document in cache", zap.Error(err), zap.String("id", id))
	}

	return nil
}

// UpdatePartial merges fields into the stored document. The merge happens
// under a row lock so concurrent patches of the same document cannot lose
// each other's fields, and the merged result refreshes the cache.
func (s *postgresStore) UpdatePartial(ctx context.Context, entity, id string, fields map[string]any) error {
	var merged map[string]any

	err := s.txManager.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		const selectQuery = `
        SELECT fields
        FROM documents
        WHERE entity = @entity AND id = @id::uuid
        FOR UPDATE
        `

		args := pgx.NamedArgs{"entity": entity, "id": id}
		if err := tx.QueryRow(ctx, selectQuery, args).Scan(&merged); err != nil {
			if err == pgx.ErrNoRows {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load document for patch: %w", err)
		}

		for k, v := range fields {
			merged[k] = v
		}

		const updateQuery = `
        UPDATE documents
        SET fields = @fields, updated_at = NOW()
        WHERE entity = @entity AND id = @id::uuid
        `

		args["fields"] = merged
		if _, err := tx.Exec(ctx, updateQuery, args); err != nil {
			return fmt.Errorf("failed to patch document: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err = s.cache.Set(ctx, cacheKey(entity, id), &Document{ID: id, Fields: merged}); err != nil {
		s.logger.Warn("Failed to update document in cache", zap.Error(err), zap.String("id", id))
	}

	return nil
}

// Sort names reach this store straight from query strings, so only known
// document fields may appear in ORDER BY; anything else falls back to
// insertion order.
var sortableFields = map[string]bool{
	"creationDate":   true,
	"expirationDate": true,
	"lastUpdate":     true,
	"referenceName":  true,
	"status":         true,
	"organization":   true,
	"costCenter":     true,
	"seller":         true,
	"subtotal":       true,
}

var dateSortFields = map[string]bool{
	"creationDate":   true,
	"expirationDate": true,
	"lastUpdate":     true,
}

func sortExpr(sort Sort) string {
	if !sortableFields[sort.Field] {
		return "created_at ASC"
	}

	expr := fmt.Sprintf("fields->>'%s'", sort.Field)
	switch {
	case dateSortFields[sort.Field]:
		expr = "(" + expr + ")::timestamptz"
	case sort.Field == "subtotal":
		expr = "(" + expr + ")::numeric"
	}

	dir := "ASC"
	if sort.Descending {
		dir = "DESC"
	}

	return expr + " " + dir
}

func (s *postgresStore) Search(ctx context.Context, entity string, filter Filter, sort Sort, page Pagination) (*SearchResult, error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.PageSize < 1 {
		page.PageSize = 25
	}

	args := pgx.NamedArgs{
		"entity": entity,
		"limit":  page.PageSize,
		"offset": (page.Page - 1) * page.PageSize,
	}
	where := buildWhere(filter, args)

	query := fmt.Sprintf(`
    SELECT id::text, fields, COUNT(*) OVER() AS total
    FROM documents
    WHERE entity = @entity AND %s
    ORDER BY %s
    LIMIT @limit OFFSET @offset
    `, where, sortExpr(sort))

	rows, err := s.conn.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	result := &SearchResult{
		Pagination: PageInfo{Page: page.Page, PageSize: page.PageSize},
	}

	for rows.Next() {
		var doc Document
		var total int
		if err = rows.Scan(&doc.ID, &doc.Fields, &total); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		result.Data = append(result.Data, doc)
		result.Pagination.Total = total
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return result, nil
}

func (s *postgresStore) getFromPool(ctx context.Context) (any, func(), error) {
	pool, err := s.poolManager.GetPool(reflect.TypeOf(&Document{}))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get pool: %w", err)
	}

	objWrapper, err := pool.Get(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get object from pool: %w", err)
	}

	return objWrapper.Object, func() { pool.Put(objWrapper) }, nil
}

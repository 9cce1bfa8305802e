// Package settings persists the application-level quote configuration: cart
// life span, manual price policy and whether quotes are managed by the
// marketplace account or by each seller.
package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"goflare.io/quotes/docstore"
	"goflare.io/quotes/models"
)

const Entity = "app_settings"

// Service reads and writes the single settings document. A missing document
// yields the defaults, so a fresh installation works without any setup step.
type Service interface {
	Get(ctx context.Context) (*models.Settings, error)
	Save(ctx context.Context, settings *models.Settings) (*models.Settings, error)
}

var _ Service = (*service)(nil)

type service struct {
	store  docstore.Store
	logger *zap.Logger
}

func NewService(store docstore.Store, logger *zap.Logger) Service {
	return &service{store: store, logger: logger}
}

func (s *service) Get(ctx context.Context) (*models.Settings, error) {
	result, err := s.store.Search(ctx, Entity, nil, docstore.Sort{},
		docstore.Pagination{Page: 1, PageSize: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if len(result.Data) == 0 {
		return models.DefaultSettings(), nil
	}

	settings, err := fromDocument(result.Data[0])
	if err != nil {
		return nil, err
	}

	normalize(settings)

	return settings, nil
}

func (s *service) Save(ctx context.Context, settings *models.Settings) (*models.Settings, error) {
	normalize(settings)

	fields, err := toFields(settings)
	if err != nil {
		return nil, err
	}

	result, err := s.store.Search(ctx, Entity, nil, docstore.Sort{},
		docstore.Pagination{Page: 1, PageSize: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if len(result.Data) == 0 {
		if _, err = s.store.Create(ctx, Entity, fields); err != nil {
			return nil, fmt.Errorf("failed to create settings: %w", err)
		}
		return settings, nil
	}

	if err = s.store.UpdateFull(ctx, Entity, result.Data[0].ID, fields); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	return settings, nil
}

// normalize clamps user-supplied values back into their valid ranges.
func normalize(settings *models.Settings) {
	if settings.AdminSetup.CartLifeSpan < 1 {
		settings.AdminSetup.CartLifeSpan = models.DefaultCartLifeSpanDays
	}
	if settings.AdminSetup.QuotesManagedBy != models.QuotesManagedBySeller {
		settings.AdminSetup.QuotesManagedBy = models.QuotesManagedByMarketplace
	}
}

func toFields(settings *models.Settings) (map[string]any, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}

	var fields map[string]any
	if err = json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode settings fields: %w", err)
	}

	return fields, nil
}

func fromDocument(doc docstore.Document) (*models.Settings, error) {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings document: %w", err)
	}

	var settings models.Settings
	if err = json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings document: %w", err)
	}

	return &settings, nil
}

package quote

import (
	"time"

	"goflare.io/quotes/models"
	"goflare.io/quotes/models/enum"
)

// BuildParams carries everything needed to construct a quote record. The
// clock is injected through Now so construction stays deterministic.
type BuildParams struct {
	Session        models.Session
	Items          []models.QuoteItem
	ReferenceName  string
	Note           string
	Subtotal       int64
	SendToSalesRep bool
	// MultiSeller marks a quote that is part of a split producing more
	// than one document; such quotes always start pending.
	MultiSeller bool

	Settings     *models.Settings
	SalesChannel string

	Seller           string
	SellerName       string
	ParentQuote      string
	HasChildren      bool
	ChildrenQuantity int

	Now time.Time
}

// Build assembles a quote record sans id. The expiration date is the
// creation date plus the configured cart life span.
func Build(p BuildParams) *models.Quote {
	lifeSpan := models.DefaultCartLifeSpanDays
	if p.Settings != nil && p.Settings.AdminSetup.CartLifeSpan > 0 {
		lifeSpan = p.Settings.AdminSetup.CartLifeSpan
	}

	status := enum.QuoteStatusReady
	if p.SendToSalesRep || p.MultiSeller {
		status = enum.QuoteStatusPending
	}

	return &models.Quote{
		ReferenceName:  p.ReferenceName,
		CreatorEmail:   p.Session.Email,
		CreatorName:    p.Session.Name,
		CreatorRole:    p.Session.RoleSlug,
		CreationDate:   p.Now,
		ExpirationDate: p.Now.AddDate(0, 0, lifeSpan),
		LastUpdate:     p.Now,
		UpdateHistory: []models.QuoteUpdate{{
			Date:   p.Now,
			Email:  p.Session.Email,
			Role:   p.Session.RoleSlug,
			Status: status,
			Note:   p.Note,
		}},
		Items:            p.Items,
		Subtotal:         p.Subtotal,
		Status:           status,
		Organization:     p.Session.OrganizationID,
		CostCenter:       p.Session.CostCenterID,
		ViewedByCustomer: p.SendToSalesRep,
		ViewedBySales:    !p.SendToSalesRep,
		SalesChannel:     p.SalesChannel,
		Seller:           p.Seller,
		SellerName:       p.SellerName,
		ParentQuote:      p.ParentQuote,
		HasChildren:      p.HasChildren,
		ChildrenQuantity: p.ChildrenQuantity,
	}
}

// EnsureMutable rejects mutations against quotes already in a state that
// forbids further updates or use.
func EnsureMutable(q *models.Quote) error {
	if q == nil {
		return ErrQuoteNotFound
	}
	if q.Status == enum.QuoteStatusExpired || q.Status == enum.QuoteStatusDeclined {
		return ErrQuoteCannotBeUpdatedOrUsed
	}
	return nil
}

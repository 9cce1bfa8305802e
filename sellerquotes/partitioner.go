package sellerquotes

import (
	"context"

	"go.uber.org/zap"

	"goflare.io/quotes/models"
)

// SplitMode is the partition decision for one cart.
type SplitMode int

const (
	// SplitSingleMarketplace keeps everything in one marketplace quote.
	SplitSingleMarketplace SplitMode = iota
	// SplitSingleSeller collapses the cart into one quote owned by the
	// only opted-in seller; no parent wrapper is created.
	SplitSingleSeller
	// SplitParentChildren creates a parent quote plus one child per
	// opted-in seller.
	SplitParentChildren
)

// Bucket groups one seller's items with their accumulated subtotal.
type Bucket struct {
	Seller   string
	Items    []models.QuoteItem
	Subtotal int64
}

// PartitionResult is the outcome of splitting a cart. Seller buckets are
// ordered by first appearance in the item list.
type PartitionResult struct {
	Marketplace Bucket
	Sellers     []Bucket
}

// Mode applies the split decision policy to the partition outcome.
func (r *PartitionResult) Mode() SplitMode {
	switch {
	case len(r.Sellers) == 0:
		return SplitSingleMarketplace
	case len(r.Sellers) == 1 && len(r.Marketplace.Items) == 0:
		return SplitSingleSeller
	default:
		return SplitParentChildren
	}
}

type Partitioner struct {
	client SettingsClient
	logger *zap.Logger
}

func NewPartitioner(client SettingsClient, logger *zap.Logger) *Partitioner {
	return &Partitioner{
		client: client,
		logger: logger,
	}
}

// Partition splits items into per-seller buckets for sellers that opted in
// to receiving quotes; everything else stays in the marketplace bucket.
// Each seller's opt-in setting is looked up at most once per call, and a
// failed lookup counts as not opted in.
func (p *Partitioner) Partition(ctx context.Context, items []models.QuoteItem) *PartitionResult {
	result := &PartitionResult{Marketplace: Bucket{Seller: models.MarketplaceSellerID}}

	optedIn := make(map[string]bool)
	index := make(map[string]int)

	for _, item := range items {
		seller := item.Seller

		if seller != models.MarketplaceSellerID {
			cached, seen := optedIn[seller]
			if !seen {
				settings, err := p.client.VerifyQuoteSettings(ctx, seller)
				if err != nil {
					p.logger.Warn("Failed to verify seller quote settings",
						zap.Error(err),
						zap.String("seller", seller))
				}
				cached = err == nil && settings.ReceiveQuotes
				optedIn[seller] = cached
			}

			if cached {
				i, ok := index[seller]
				if !ok {
					result.Sellers = append(result.Sellers, Bucket{Seller: seller})
					i = len(result.Sellers) - 1
					index[seller] = i
				}
				result.Sellers[i].Items = append(result.Sellers[i].Items, item)
				result.Sellers[i].Subtotal += item.SellingPrice * int64(item.Quantity)
				continue
			}
		}

		result.Marketplace.Items = append(result.Marketplace.Items, item)
		result.Marketplace.Subtotal += item.SellingPrice * int64(item.Quantity)
	}

	return result
}

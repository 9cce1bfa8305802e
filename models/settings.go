package models

const (
	// QuotesManagedByMarketplace keeps all quotes under the marketplace
	// account regardless of item sellers.
	QuotesManagedByMarketplace = "MARKETPLACE"
	// QuotesManagedBySeller splits multi-seller carts into per-seller
	// quote documents for sellers that opted in.
	QuotesManagedBySeller = "SELLER"
)

const DefaultCartLifeSpanDays = 30

type Settings struct {
	AdminSetup    AdminSetup `json:"adminSetup"`
	SchemaVersion string     `json:"schemaVersion,omitempty"`
}

type AdminSetup struct {
	CartLifeSpan     int    `json:"cartLifeSpan"`
	AllowManualPrice bool   `json:"allowManualPrice"`
	QuotesManagedBy  string `json:"quotesManagedBy"`
}

// DefaultSettings returns the settings applied before an admin ever saved
// any.
func DefaultSettings() *Settings {
	return &Settings{
		AdminSetup: AdminSetup{
			CartLifeSpan:    DefaultCartLifeSpanDays,
			QuotesManagedBy: QuotesManagedByMarketplace,
		},
	}
}

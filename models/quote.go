package models

import (
	"time"

	"goflare.io/quotes/models/enum"
)

// MarketplaceSellerID is the reserved seller id of the marketplace itself.
// Items carrying it never participate in seller partitioning.
const MarketplaceSellerID = "1"

type Quote struct {
	ID               string           `json:"id,omitempty"`
	ReferenceName    string           `json:"referenceName"`
	CreatorEmail     string           `json:"creatorEmail"`
	CreatorName      string           `json:"creatorName"`
	CreatorRole      string           `json:"creatorRole"`
	CreationDate     time.Time        `json:"creationDate"`
	ExpirationDate   time.Time        `json:"expirationDate"`
	LastUpdate       time.Time        `json:"lastUpdate"`
	UpdateHistory    []QuoteUpdate    `json:"updateHistory"`
	Items            []QuoteItem      `json:"items"`
	Subtotal         int64            `json:"subtotal"`
	Status           enum.QuoteStatus `json:"status"`
	Organization     string           `json:"organization"`
	CostCenter       string           `json:"costCenter"`
	ViewedBySales    bool             `json:"viewedBySales"`
	ViewedByCustomer bool             `json:"viewedByCustomer"`
	SalesChannel     string           `json:"salesChannel,omitempty"`
	Seller           string           `json:"seller,omitempty"`
	SellerName       string           `json:"sellerName,omitempty"`
	ParentQuote      string           `json:"parentQuote,omitempty"`
	HasChildren      bool             `json:"hasChildren,omitempty"`
	ChildrenQuantity int              `json:"childrenQuantity,omitempty"`
}

type QuoteUpdate struct {
	Date   time.Time        `json:"date"`
	Email  string           `json:"email"`
	Role   string           `json:"role"`
	Status enum.QuoteStatus `json:"status"`
	Note   string           `json:"note"`
}

// QuoteItem is one priced cart line. Prices are in cents.
type QuoteItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SkuName      string `json:"skuName"`
	RefID        string `json:"refId"`
	ProductID    string `json:"productId"`
	ImageURL     string `json:"imageUrl"`
	ListPrice    int64  `json:"listPrice"`
	Price        int64  `json:"price"`
	SellingPrice int64  `json:"sellingPrice"`
	Quantity     int    `json:"quantity"`
	Seller       string `json:"seller"`
}

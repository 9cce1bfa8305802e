package checkout

import "testing"

func TestOrderQuoteID(t *testing.T) {
	t.Run("no custom data", func(t *testing.T) {
		order := &Order{OrderID: "o-1"}
		if got := order.QuoteID("b2b-quotes"); got != "" {
			t.Fatalf("QuoteID() = %q, want empty", got)
		}
	})

	t.Run("other apps only", func(t *testing.T) {
		order := &Order{CustomData: &CustomData{CustomApps: []CustomApp{
			{ID: "gift-wrap", Fields: map[string]string{"quoteId": "q-1"}},
		}}}
		if got := order.QuoteID("b2b-quotes"); got != "" {
			t.Fatalf("QuoteID() = %q, want empty", got)
		}
	})

	t.Run("matching app", func(t *testing.T) {
		order := &Order{CustomData: &CustomData{CustomApps: []CustomApp{
			{ID: "gift-wrap", Fields: map[string]string{"quoteId": "wrong"}},
			{ID: "b2b-quotes", Fields: map[string]string{"quoteId": "q-1"}},
		}}}
		if got := order.QuoteID("b2b-quotes"); got != "q-1" {
			t.Fatalf("QuoteID() = %q, want q-1", got)
		}
	})
}

func TestOrderContainsSeller(t *testing.T) {
	order := &Order{Items: []OrderItem{
		{ID: "sku-1", Seller: "1"},
		{ID: "sku-2", Seller: "seller-a"},
	}}

	if !order.ContainsSeller("seller-a") {
		t.Fatal("ContainsSeller(seller-a) = false")
	}
	if order.ContainsSeller("seller-b") {
		t.Fatal("ContainsSeller(seller-b) = true")
	}
}

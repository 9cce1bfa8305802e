package enum

type QuoteStatus string

const (
	QuoteStatusPending  QuoteStatus = "pending"
	QuoteStatusReady    QuoteStatus = "ready"
	QuoteStatusRevised  QuoteStatus = "revised"
	QuoteStatusDeclined QuoteStatus = "declined"
	QuoteStatusExpired  QuoteStatus = "expired"
	QuoteStatusPlaced   QuoteStatus = "placed"
)

// Terminal reports whether a quote in this status accepts no further
// transitions.
func (s QuoteStatus) Terminal() bool {
	return s == QuoteStatusDeclined || s == QuoteStatusExpired || s == QuoteStatusPlaced
}

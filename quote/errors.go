package quote

import "errors"

var (
	ErrQuoteNotFound              = errors.New("quote-not-found")
	ErrQuoteCannotBeUpdatedOrUsed = errors.New("quote-cannot-be-updated-or-used")
	ErrInvalidInput               = errors.New("invalid-input")
)

package domain

import "errors"

var (
	// ErrNotFound marks lookups of unknown orders, snipers or copy-trade
	// sessions. Distinct from execution failure.
	ErrNotFound = errors.New("not found")

	// ErrPriceUnavailable marks exhaustion of every price source.
	ErrPriceUnavailable = errors.New("price not available from any source")
)

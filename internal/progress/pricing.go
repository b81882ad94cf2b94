package progress

import (
	"github.com/tobyn/inkwell/internal/estimate"
)

// CostModel estimates the generation cost of a completed book.
type CostModel interface {
	// EstimateCost returns the estimated cost for a book of the given page
	// count generated with the given method.
	EstimateCost(method estimate.Method, pages int) float64
}

// TokenPricing is the configuration-backed cost model: pages are converted
// to tokens at a fixed rate and priced per method.
type TokenPricing struct {
	// PricePer1K keyed by method name; the "default" entry is the fallback.
	PricePer1K    map[string]float64
	TokensPerPage int
}

// EstimateCost implements CostModel.
// Parameters:
//   - method: classified generation method of the session.
//   - pages: derived total page count.
// Returns:
//   - float64: estimated cost in the configured currency.
func (t TokenPricing) EstimateCost(method estimate.Method, pages int) float64 {
	price, ok := t.PricePer1K[string(method)]
	if !ok {
		price = t.PricePer1K[string(estimate.MethodDefault)]
	}
	tokens := float64(pages * t.TokensPerPage)
	return tokens / 1000 * price
}

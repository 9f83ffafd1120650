package extract

import (
	"fmt"
	"strings"

	"github.com/productsense/research/models"
)

// Commerce vocabulary for the product-page heuristic. A page must mention at
// least two distinct entries (anywhere in title, meta description or body)
// to be treated as a product page.
var productKeywords = []string{
	"price", "buy", "add to cart", "mrp", "product", "brand", "description",
}

const (
	minKeywordHits = 2
	minBodyLength  = 120
)

// validateProductPage applies the product-page heuristic. It returns a typed
// VALIDATION_FAILED error describing which check failed, so the pipeline can
// surface the reason in its diagnostics.
func validateProductPage(title, meta, body string) error {
	if len(body) < minBodyLength {
		return models.NewResearchError(
			models.ErrCodeValidation,
			fmt.Sprintf("page body too short (%d chars)", len(body)),
			nil,
		)
	}

	haystack := strings.ToLower(title + " " + meta + " " + body)
	hits := 0
	for _, kw := range productKeywords {
		if strings.Contains(haystack, kw) {
			hits++
		}
	}
	if hits < minKeywordHits {
		return models.NewResearchError(
			models.ErrCodeValidation,
			fmt.Sprintf("page does not look like a product page (%d/%d keyword hits)", hits, minKeywordHits),
			nil,
		)
	}
	return nil
}

// Package aggregate folds the per-page partial records of a research run into
// the single canonical record returned to the caller.
package aggregate

import (
	"github.com/productsense/research/models"
	"github.com/productsense/research/normalize"
)

// Merge combines partial records into one canonical record. Partials must be
// in fetch-submission order: text fields take the first non-empty value, so
// earlier sources win. Price bounds are computed per currency over all
// partials and are order-independent; nil means no admissible price was seen.
// The UPC is the first candidate admissible under strictness, or the
// not-found sentinel.
//
// sourceLinks is the audit trail: every URL whose content was retrieved, in
// fetch order, including pages that were later rejected or deduplicated. It
// is recorded verbatim, independent of which partials survived.
func Merge(productName string, partials []*models.PartialRecord, sourceLinks []string, strictness string) *models.CanonicalRecord {
	rec := &models.CanonicalRecord{
		ProductName: productName,
		SourceLinks: sourceLinks,
		UPC:         models.UPCNotFound,
	}

	var candidates []string
	for _, p := range partials {
		if p == nil {
			continue
		}

		firstNonEmpty(&rec.Title, p.Title)
		firstNonEmpty(&rec.MetaDescription, p.MetaDescription)
		firstNonEmpty(&rec.ShortDescription, p.ShortDescription)
		firstNonEmpty(&rec.LongDescription, p.LongDescription)
		firstNonEmpty(&rec.HowToUse, p.HowToUse)
		firstNonEmpty(&rec.Ingredients, p.Ingredients)

		for _, price := range p.Prices {
			switch price.Currency {
			case models.CurrencyUSD:
				extend(&rec.MinPriceUSD, &rec.MaxPriceUSD, price.Value)
			case models.CurrencyCAD:
				extend(&rec.MinPriceCAD, &rec.MaxPriceCAD, price.Value)
			}
		}

		candidates = append(candidates, p.UPCCandidates...)
	}

	if upc, ok := normalize.SelectUPC(candidates, strictness); ok {
		rec.UPC = upc
	}

	return rec
}

func firstNonEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func extend(min, max **float64, v float64) {
	if *min == nil || v < **min {
		val := v
		*min = &val
	}
	if *max == nil || v > **max {
		val := v
		*max = &val
	}
}

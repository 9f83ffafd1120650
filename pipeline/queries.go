package pipeline

import (
	"strings"

	"github.com/productsense/research/models"
)

// Query angle suffixes. Each angle biases one search toward a different
// fact: pricing, ingredients and barcodes, reviews and specs, purchase
// pages, usage directions.
var queryAngles = []string{
	"price Canada USA",
	"ingredients UPC barcode",
	"review specifications features",
	"buy online",
	"how to use instructions",
}

// buildQueries derives the search query set for a request: one generic query
// carrying all keywords, one per angle, and one narrowed to the primary
// keywords. Duplicates are collapsed while preserving order.
func buildQueries(req *models.ResearchRequest) []string {
	name := strings.TrimSpace(req.ProductName)
	primary := strings.TrimSpace(req.PrimaryKeywords)
	secondary := strings.TrimSpace(req.SecondaryKeywords)

	var queries []string
	add := func(q string) {
		q = strings.Join(strings.Fields(q), " ")
		if q == "" {
			return
		}
		for _, existing := range queries {
			if existing == q {
				return
			}
		}
		queries = append(queries, q)
	}

	add(name + " " + primary + " " + secondary)
	for _, angle := range queryAngles {
		add(name + " " + angle)
	}
	if primary != "" {
		add(name + " " + primary)
	}
	return queries
}

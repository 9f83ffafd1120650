// Package prose phrases canonical records into SEO listing copy via an
// OpenAI-compatible chat API. It is an optional stage: the research pipeline
// never depends on it, and sinks accept records without listings.
package prose

import (
	"context"

	"github.com/productsense/research/models"
)

// Generator turns a canonical record into listing copy. The extra context is
// Markdown extracted from the best source page, to give the model phrasing
// material beyond the bare facts.
type Generator interface {
	Generate(ctx context.Context, record *models.CanonicalRecord, pageContext string) (*models.Listing, error)
}

// Package store persists finished canonical records. Sinks are optional and
// independent: a Postgres table for durable storage and a signed webhook for
// downstream consumers. Sink failures never fail a research run.
package store

import (
	"context"
	"log/slog"

	"github.com/productsense/research/models"
)

// Sink receives one finished record.
type Sink interface {
	Name() string
	Store(ctx context.Context, record *models.CanonicalRecord) error
}

// Fanout delivers a record to every sink, logging failures instead of
// propagating them.
func Fanout(ctx context.Context, sinks []Sink, record *models.CanonicalRecord) {
	for _, s := range sinks {
		if err := s.Store(ctx, record); err != nil {
			slog.Warn("record sink failed",
				"sink", s.Name(),
				"product", record.ProductName,
				"error", err,
			)
		}
	}
}

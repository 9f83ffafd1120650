package search

import (
	"context"
	"log/slog"
)

// Chain tries backends in order until one yields links. A backend that
// errors or returns nothing is skipped; an error is only returned when
// every backend came up empty and at least one of them failed.
type Chain struct {
	backends []Backend
}

// NewChain creates a Chain over the given backends.
func NewChain(backends ...Backend) *Chain {
	return &Chain{backends: backends}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Search(ctx context.Context, query string, maxLinks int) ([]string, error) {
	var lastErr error
	for _, b := range c.backends {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		links, err := b.Search(ctx, query, maxLinks)
		if err != nil {
			slog.Warn("search backend failed, trying next",
				"backend", b.Name(), "query", query, "error", err)
			lastErr = err
			continue
		}
		if len(links) > 0 {
			return links, nil
		}
		slog.Debug("search backend returned no links",
			"backend", b.Name(), "query", query)
	}
	return nil, lastErr
}

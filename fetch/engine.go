// Package fetch retrieves page HTML for the research pipeline. Two engines
// share one interface: a fast utls-based HTTP client and a Rod-driven
// headless browser for pages that need JavaScript. The Dispatcher picks
// between them and remembers per-domain which one worked.
package fetch

import (
	"context"
	"time"
)

// Engine is the interface both fetch engines implement.
type Engine interface {
	// Name returns the engine identifier ("http" or "browser").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *Request) (*Result, error)
}

// Request contains everything an engine needs to fetch a page.
type Request struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration

	// Stealth asks the browser engine to mask automation fingerprints.
	// Ignored by the HTTP engine.
	Stealth bool
}

// Result is the output of a successful engine fetch.
type Result struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}

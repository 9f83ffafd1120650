package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
)

// Dispatcher routes fetches between the HTTP and browser engines.
// The HTTP engine goes first because it is an order of magnitude cheaper;
// failures escalate to the browser. DomainMemory short-circuits the
// escalation for domains that are known to need the browser.
type Dispatcher struct {
	httpEngine    Engine
	browserEngine Engine // nil when the browser is unavailable
	memory        *DomainMemory

	// forcedBrowser lists host suffixes that always use the browser engine.
	forcedBrowser []string
}

// NewDispatcher creates a Dispatcher. browserEngine may be nil; escalation
// is then disabled and HTTP failures are final.
func NewDispatcher(httpEngine, browserEngine Engine, memory *DomainMemory, browserDomains []string) *Dispatcher {
	return &Dispatcher{
		httpEngine:    httpEngine,
		browserEngine: browserEngine,
		memory:        memory,
		forcedBrowser: browserDomains,
	}
}

// Fetch retrieves the page with the cheapest engine expected to work.
func (d *Dispatcher) Fetch(ctx context.Context, req *Request) (*Result, error) {
	host := hostOf(req.URL)

	if d.browserEngine != nil && d.wantsBrowser(host, req) {
		result, err := d.browserEngine.Fetch(ctx, req)
		if err == nil {
			d.memory.Set(host, result.EngineName)
			return result, nil
		}
		// A remembered preference that stopped working is forgotten so the
		// next visit runs the normal escalation again.
		slog.Debug("browser-first fetch failed", "host", host, "error", err)
		d.memory.Delete(host)
		return nil, err
	}

	result, httpErr := d.httpEngine.Fetch(ctx, req)
	if httpErr == nil {
		d.memory.Set(host, result.EngineName)
		return result, nil
	}

	if d.browserEngine == nil || ctx.Err() != nil {
		return nil, httpErr
	}

	slog.Debug("http fetch failed, escalating to browser",
		"host", host, "error", httpErr)
	result, browserErr := d.browserEngine.Fetch(ctx, req)
	if browserErr != nil {
		return nil, browserErr
	}
	d.memory.Set(host, result.EngineName)
	return result, nil
}

func (d *Dispatcher) wantsBrowser(host string, req *Request) bool {
	if req.Stealth {
		return true
	}
	for _, suffix := range d.forcedBrowser {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return d.memory.Get(host) == d.browserEngine.Name()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}

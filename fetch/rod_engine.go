package fetch

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/productsense/research/models"
)

// RodEngine renders pages in the shared headless browser. It is the slow
// path, used for search result pages and for storefronts that serve thin
// HTML to plain HTTP clients.
type RodEngine struct {
	browser *Browser
}

// NewRodEngine creates a RodEngine on top of the shared browser.
func NewRodEngine(b *Browser) *RodEngine {
	return &RodEngine{browser: b}
}

func (e *RodEngine) Name() string { return "browser" }

// Fetch renders one page and returns its HTML.
//
// Lifecycle:
//
//  1. Timeout guard    - hard deadline on the whole operation
//  2. Acquire page     - borrow a tab from the pool (or create one)
//  3. DEFER cleanup    - about:blank + return to pool (leak prevention)
//  4. Stealth + headers - must be installed before navigation
//  5. Hijack mount     - drop images/CSS/fonts/media/trackers, also pre-nav
//  6. Navigate + wait  - DOM stable, then extract
//
// Steps 4 and 5 only take effect for navigations that happen after they are
// installed. Step 3 uses the original page reference without the request
// context, so cleanup succeeds even after the deadline expires.
func (e *RodEngine) Fetch(ctx context.Context, req *Request) (*Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.browser.cfg.NavigationTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := e.browser
	b.activePages.Add(1)
	defer b.activePages.Add(-1)

	page, acquireErr := b.pagePool.Get(func() (*rod.Page, error) {
		return b.browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		return nil, models.NewResearchError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			acquireErr,
		)
	}

	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		b.pagePool.Put(page)
	}()

	if req.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// A search referer makes the visit look like an organic click-through.
	extraHeaders := make(map[string]string, len(req.Headers)+1)
	if _, hasReferer := req.Headers["Referer"]; !hasReferer {
		if u, parseErr := url.Parse(req.URL); parseErr == nil {
			extraHeaders["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
		}
	}
	for k, v := range req.Headers {
		extraHeaders[k] = v
	}
	if len(extraHeaders) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(extraHeaders),
		}.Call(page)
	}

	router := setupHijack(page)
	defer func() { _ = router.Stop() }()

	p := page.Context(ctx)

	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, categorizeError(navErr, "navigation to target URL failed")
	}

	// NOTE: WaitRequestIdle uses the Fetch domain which conflicts with
	// HijackRequests on Chromium 145+, so wait for DOM stability instead.
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr)
	}

	// Status code via the performance API; CDP network listeners conflict
	// with the hijack router the same way WaitRequestIdle does.
	var statusCode int
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract page HTML")
	}

	title := evalStringOrEmpty(p, `() => document.title`)
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &Result{
		HTML:       rawHTML,
		Title:      title,
		StatusCode: statusCode,
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing errors (used for optional metadata).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ResearchErrors so callers can
// map them to error codes.
func categorizeError(err error, msg string) *models.ResearchError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewResearchError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewResearchError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewResearchError(models.ErrCodeFetch, msg, err)
	}
}

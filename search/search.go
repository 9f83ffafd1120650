// Package search discovers candidate product page URLs for a query. Each
// backend wraps one public search engine's result page; the Chain tries them
// in order until one yields links.
package search

import (
	"context"
	"net/url"
	"strings"

	"github.com/productsense/research/fetch"
)

// Backend is one search engine.
type Backend interface {
	// Name returns the backend identifier ("google", "bing").
	Name() string

	// Search returns up to maxLinks candidate URLs for the query, in result
	// order. Denylisted hosts and duplicates are already filtered out.
	Search(ctx context.Context, query string, maxLinks int) ([]string, error)
}

// Fetcher retrieves a search results page. *fetch.Dispatcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req *fetch.Request) (*fetch.Result, error)
}

// Options configures a backend.
type Options struct {
	// Denylist holds host suffixes that never count as candidates.
	Denylist []string

	// Stealth routes the result page fetch through the stealth browser.
	Stealth bool
}

// Denylisted reports whether host matches any denylist entry, either exactly
// or as a subdomain.
func Denylisted(host string, denylist []string) bool {
	host = strings.ToLower(host)
	for _, entry := range denylist {
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}

// NormalizeURL canonicalizes a candidate URL for deduplication: lowercased
// host, fragment dropped, trailing slash trimmed. Returns false for
// non-HTTP(S) or unparseable URLs.
func NormalizeURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String(), true
}

// DedupKey reduces a link to scheme+host+path. Tracking parameters make the
// same page look like several candidates, so the query string is ignored for
// duplicate detection while the stored link keeps it verbatim.
func DedupKey(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// collector accumulates candidate links with denylist and dedup filtering.
type collector struct {
	denylist []string
	maxLinks int
	seen     map[string]struct{}
	links    []string
}

func newCollector(denylist []string, maxLinks int) *collector {
	return &collector{
		denylist: denylist,
		maxLinks: maxLinks,
		seen:     make(map[string]struct{}),
	}
}

// add filters and records one candidate. Returns false once the collector
// is full, so callers can stop iterating.
func (c *collector) add(raw string) bool {
	if len(c.links) >= c.maxLinks {
		return false
	}
	normalized, ok := NormalizeURL(raw)
	if !ok {
		return true
	}
	u, err := url.Parse(normalized)
	if err != nil || Denylisted(u.Hostname(), c.denylist) {
		return true
	}
	key := DedupKey(normalized)
	if _, dup := c.seen[key]; dup {
		return true
	}
	c.seen[key] = struct{}{}
	c.links = append(c.links, normalized)
	return len(c.links) < c.maxLinks
}

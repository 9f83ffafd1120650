package search

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/productsense/research/fetch"
	"github.com/productsense/research/models"
)

// Google scrapes google.com result pages. Result links come in two shapes
// depending on how Google rendered the page: "/url?q=<target>" redirect
// wrappers in the basic HTML version, and plain absolute hrefs in the
// JS-rendered version. Both are handled.
type Google struct {
	fetcher Fetcher
	opts    Options
}

// NewGoogle creates a Google backend.
func NewGoogle(f Fetcher, opts Options) *Google {
	return &Google{fetcher: f, opts: opts}
}

func (g *Google) Name() string { return "google" }

func (g *Google) Search(ctx context.Context, query string, maxLinks int) ([]string, error) {
	searchURL := "https://www.google.com/search?q=" + url.QueryEscape(query) + "&num=20"

	res, err := g.fetcher.Fetch(ctx, &fetch.Request{
		URL:     searchURL,
		Stealth: g.opts.Stealth,
	})
	if err != nil {
		return nil, models.NewResearchError(
			models.ErrCodeSearchBackend,
			"google search fetch failed",
			err,
		)
	}

	return parseGoogleResults(res.HTML, g.opts.Denylist, maxLinks), nil
}

func parseGoogleResults(rawHTML string, denylist []string, maxLinks int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	c := newCollector(denylist, maxLinks)
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		switch {
		case strings.HasPrefix(href, "/url?"):
			// Basic HTML version: unwrap the redirect target.
			target := unwrapRedirect(href)
			if target == "" {
				return true
			}
			return c.add(target)
		case strings.HasPrefix(href, "http"):
			return c.add(href)
		}
		return true
	})
	return c.links
}

// unwrapRedirect extracts the "q" (or "url") parameter from a Google
// "/url?..." redirect href.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	q := u.Query()
	if target := q.Get("q"); target != "" {
		return target
	}
	return q.Get("url")
}

package search

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/productsense/research/fetch"
	"github.com/productsense/research/models"
)

// Bing scrapes bing.com result pages. Bing marks organic results with the
// b_algo class and uses plain absolute hrefs, which makes it a reliable
// fallback when Google serves a captcha.
type Bing struct {
	fetcher Fetcher
	opts    Options
}

// NewBing creates a Bing backend.
func NewBing(f Fetcher, opts Options) *Bing {
	return &Bing{fetcher: f, opts: opts}
}

func (b *Bing) Name() string { return "bing" }

func (b *Bing) Search(ctx context.Context, query string, maxLinks int) ([]string, error) {
	searchURL := "https://www.bing.com/search?q=" + url.QueryEscape(query) + "&count=20"

	res, err := b.fetcher.Fetch(ctx, &fetch.Request{
		URL:     searchURL,
		Stealth: b.opts.Stealth,
	})
	if err != nil {
		return nil, models.NewResearchError(
			models.ErrCodeSearchBackend,
			"bing search fetch failed",
			err,
		)
	}

	return parseBingResults(res.HTML, b.opts.Denylist, maxLinks), nil
}

func parseBingResults(rawHTML string, denylist []string, maxLinks int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	c := newCollector(denylist, maxLinks)
	doc.Find("li.b_algo h2 a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.HasPrefix(href, "http") {
			return true
		}
		return c.add(href)
	})

	// Older markup variants drop the h2 wrapper.
	if len(c.links) == 0 {
		doc.Find("li.b_algo a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			if !strings.HasPrefix(href, "http") {
				return true
			}
			return c.add(href)
		})
	}
	return c.links
}

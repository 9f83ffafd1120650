package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productsense/research/config"
	"github.com/productsense/research/extract"
	"github.com/productsense/research/fetch"
	"github.com/productsense/research/models"
)

func testConfig() config.PipelineConfig {
	return config.PipelineConfig{
		MaxLinksPerQuery: 5,
		MaxTotalLinks:    12,
		MaxConcurrency:   3,
		HostRPS:          1000,
	}
}

// fakeSearcher returns the same canned links for every query.
type fakeSearcher struct {
	links []string
	err   error

	mu      sync.Mutex
	queries []string
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Search(_ context.Context, query string, maxLinks int) ([]string, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.links) > maxLinks {
		return f.links[:maxLinks], nil
	}
	return f.links, nil
}

// fakeFetcher serves canned HTML per URL.
type fakeFetcher struct {
	pages map[string]string // url -> html
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, req *fetch.Request) (*fetch.Result, error) {
	if err, ok := f.errs[req.URL]; ok {
		return nil, err
	}
	html, ok := f.pages[req.URL]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", req.URL)
	}
	return &fetch.Result{HTML: html, StatusCode: 200, FinalURL: req.URL, EngineName: "http"}, nil
}

// productPage builds a minimal page that passes the product heuristic, with
// enough distinct filler that two different pages are not near-duplicates.
func productPage(title, filler string) string {
	return fmt.Sprintf(`<html><head><title>%s</title></head><body>
<p>Buy this product online today. The price is $24.99 with free shipping for every order placed this week.</p>
<p>%s</p>
</body></html>`, title, filler)
}

func newTestPipeline(s *fakeSearcher, f *fakeFetcher) *Pipeline {
	return New(s, f, extract.NewExtractor(), testConfig())
}

func TestResearchHappyPath(t *testing.T) {
	urlA := "https://a.example.com/widget"
	urlB := "https://b.example.org/widget-pro"
	searcher := &fakeSearcher{links: []string{urlA, urlB}}
	fetcher := &fakeFetcher{pages: map[string]string{
		urlA: productPage("Widget Pro at A", "Sturdy aluminium housing rated for outdoor use in all weather conditions throughout the year."),
		urlB: productPage("Widget Pro at B", "Includes a two year warranty and a quick start guide printed in four different languages."),
	}}

	resp, err := newTestPipeline(searcher, fetcher).Research(context.Background(), &models.ResearchRequest{
		ProductName: "Widget Pro",
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Record)
	assert.Equal(t, "Widget Pro", resp.Record.ProductName)
	assert.Equal(t, []string{urlA, urlB}, resp.Record.SourceLinks)
	assert.Equal(t, "Widget Pro at A", resp.Record.Title)
	require.NotNil(t, resp.Record.MinPriceUSD)
	assert.Equal(t, 24.99, *resp.Record.MinPriceUSD)
	assert.Empty(t, resp.Failures)
}

func TestResearchDerivesMultipleQueries(t *testing.T) {
	urlA := "https://a.example.com/widget"
	searcher := &fakeSearcher{links: []string{urlA}}
	fetcher := &fakeFetcher{pages: map[string]string{
		urlA: productPage("Widget Pro", "A dependable everyday widget for home and workshop use alike."),
	}}

	_, err := newTestPipeline(searcher, fetcher).Research(context.Background(), &models.ResearchRequest{
		ProductName:     "Widget Pro",
		PrimaryKeywords: "widget, tool",
	})

	require.NoError(t, err)
	assert.Contains(t, searcher.queries, "Widget Pro widget, tool")
	assert.Contains(t, searcher.queries, "Widget Pro price Canada USA")
	assert.Contains(t, searcher.queries, "Widget Pro ingredients UPC barcode")
	assert.Contains(t, searcher.queries, "Widget Pro buy online")
}

func TestResearchExhaustion(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("all backends blocked")}
	fetcher := &fakeFetcher{}

	resp, err := newTestPipeline(searcher, fetcher).Research(context.Background(), &models.ResearchRequest{
		ProductName: "Widget Pro",
	})

	require.Error(t, err)
	var rerr *models.ResearchError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, models.ErrCodeExhausted, rerr.Code)

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Record)
	require.NotNil(t, resp.Error)
	assert.Equal(t, models.ErrCodeExhausted, resp.Error.Code)
	assert.NotEmpty(t, resp.Failures)
}

func TestResearchAbsorbsFetchFailures(t *testing.T) {
	urlA := "https://a.example.com/widget"
	urlB := "https://b.example.org/widget-pro"
	searcher := &fakeSearcher{links: []string{urlA, urlB}}
	fetcher := &fakeFetcher{
		pages: map[string]string{
			urlA: productPage("Widget Pro", "A dependable everyday widget for home and workshop use alike."),
		},
		errs: map[string]error{urlB: errors.New("connection reset")},
	}

	resp, err := newTestPipeline(searcher, fetcher).Research(context.Background(), &models.ResearchRequest{
		ProductName: "Widget Pro",
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{urlA}, resp.Record.SourceLinks)

	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "fetch", resp.Failures[0].Stage)
	assert.Equal(t, urlB, resp.Failures[0].Target)
}

func TestResearchAbsorbsValidationFailures(t *testing.T) {
	urlA := "https://a.example.com/widget"
	urlB := "https://b.example.org/blog"
	searcher := &fakeSearcher{links: []string{urlA, urlB}}
	fetcher := &fakeFetcher{pages: map[string]string{
		urlA: productPage("Widget Pro", "A dependable everyday widget for home and workshop use alike."),
		urlB: "<html><body><p>Too short.</p></body></html>",
	}}

	resp, err := newTestPipeline(searcher, fetcher).Research(context.Background(), &models.ResearchRequest{
		ProductName: "Widget Pro",
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)

	// The rejected page still appears in the audit trail; its content was
	// retrieved even though it contributed nothing.
	assert.Equal(t, []string{urlA, urlB}, resp.Record.SourceLinks)

	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "validate", resp.Failures[0].Stage)
}

func TestResearchEmptySearchResultsIsNotAnError(t *testing.T) {
	// Backends that work but find nothing produce an empty record, not a
	// pipeline failure.
	searcher := &fakeSearcher{links: nil}
	fetcher := &fakeFetcher{}

	resp, err := newTestPipeline(searcher, fetcher).Research(context.Background(), &models.ResearchRequest{
		ProductName: "Widget Pro",
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Record)
	assert.Empty(t, resp.Record.SourceLinks)
	assert.Empty(t, resp.Record.Title)
	assert.Equal(t, models.UPCNotFound, resp.Record.UPC)
	assert.Empty(t, resp.Failures)
}

func TestResearchCollapsesTrackingVariants(t *testing.T) {
	// The same page surfaced with different tracking parameters is one
	// candidate; only the first variant consumes a fetch slot.
	base := "https://a.example.com/widget"
	searcher := &fakeSearcher{links: []string{base + "?utm_source=google", base + "?utm_source=bing"}}
	fetcher := &fakeFetcher{pages: map[string]string{
		base + "?utm_source=google": productPage("Widget Pro", "A dependable everyday widget for home and workshop use alike."),
	}}

	resp, err := newTestPipeline(searcher, fetcher).Research(context.Background(), &models.ResearchRequest{
		ProductName: "Widget Pro",
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{base + "?utm_source=google"}, resp.Record.SourceLinks)
	assert.Empty(t, resp.Failures)
}

func TestResearchUsesConfiguredDefaults(t *testing.T) {
	upc := "036000291453" // fails the check digit; only syntactic mode takes it
	urlA := "https://a.example.com/widget"
	page := productPage("Widget Pro", "Scan the barcode UPC: 036000291453 printed on the product box before checkout.")

	cfg := testConfig()
	cfg.OverallDeadline = 30 * time.Second
	cfg.UPCStrictness = models.UPCSyntactic

	t.Run("unset request fields fall back to config", func(t *testing.T) {
		searcher := &fakeSearcher{links: []string{urlA}}
		fetcher := &fakeFetcher{pages: map[string]string{urlA: page}}
		p := New(searcher, fetcher, extract.NewExtractor(), cfg)

		req := &models.ResearchRequest{ProductName: "Widget Pro"}
		resp, err := p.Research(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, upc, resp.Record.UPC)
		assert.Equal(t, 30, req.TimeoutSec)
	})

	t.Run("explicit request fields win", func(t *testing.T) {
		searcher := &fakeSearcher{links: []string{urlA}}
		fetcher := &fakeFetcher{pages: map[string]string{urlA: page}}
		p := New(searcher, fetcher, extract.NewExtractor(), cfg)

		req := &models.ResearchRequest{
			ProductName:   "Widget Pro",
			UPCStrictness: models.UPCChecksum,
			TimeoutSec:    5,
		}
		resp, err := p.Research(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, models.UPCNotFound, resp.Record.UPC)
		assert.Equal(t, 5, req.TimeoutSec)
	})
}

func TestDropEmpty(t *testing.T) {
	body := "Identical listing text mirrored verbatim on a second storefront domain with the same pricing details."
	empty := &models.PartialRecord{SourceURL: "https://bare.example.com/widget", BodyText: body}
	full := &models.PartialRecord{SourceURL: "https://a.example.com/widget", Title: "Widget Pro", BodyText: body}

	kept := dropEmpty([]*models.PartialRecord{empty, full})

	require.Len(t, kept, 1)
	assert.Equal(t, full.SourceURL, kept[0].SourceURL)

	// With the empty page gone, the populated mirror of the same body
	// survives duplicate detection.
	deduped := dropNearDuplicates(kept)
	require.Len(t, deduped, 1)
	assert.Equal(t, "Widget Pro", deduped[0].Title)
}

func TestDropNearDuplicates(t *testing.T) {
	body := "Identical listing text mirrored verbatim on a second storefront domain with the same pricing details."
	a := &models.PartialRecord{SourceURL: "https://a.example.com/widget", BodyText: body}
	b := &models.PartialRecord{SourceURL: "https://mirror.example.net/widget", BodyText: body}
	c := &models.PartialRecord{
		SourceURL: "https://c.example.org/other",
		BodyText:  "A completely different catalogue entry describing warranty terms, shipping windows and return policies at length.",
	}

	kept := dropNearDuplicates([]*models.PartialRecord{a, b, c})

	require.Len(t, kept, 2)
	assert.Equal(t, a.SourceURL, kept[0].SourceURL)
	assert.Equal(t, c.SourceURL, kept[1].SourceURL)
}

func TestResearchEmptyPagesStillSucceed(t *testing.T) {
	// A page can pass validation yet contribute no prices or UPC; the run
	// still succeeds with an honest, sparse record.
	urlA := "https://a.example.com/widget"
	searcher := &fakeSearcher{links: []string{urlA}}
	fetcher := &fakeFetcher{pages: map[string]string{
		urlA: `<html><head><title>Widget Pro</title></head><body>
<p>This product from a trusted brand ships worldwide and can be ordered online in several colours and sizes to suit any preference.</p>
</body></html>`,
	}}

	resp, err := newTestPipeline(searcher, fetcher).Research(context.Background(), &models.ResearchRequest{
		ProductName: "Widget Pro",
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, models.UPCNotFound, resp.Record.UPC)
	assert.Nil(t, resp.Record.MinPriceUSD)
	assert.Nil(t, resp.Record.MinPriceCAD)
}

func TestBuildQueries(t *testing.T) {
	t.Run("full request", func(t *testing.T) {
		queries := buildQueries(&models.ResearchRequest{
			ProductName:       "Widget Pro",
			PrimaryKeywords:   "widget",
			SecondaryKeywords: "aluminium tool",
		})

		assert.Equal(t, "Widget Pro widget aluminium tool", queries[0])
		assert.Contains(t, queries, "Widget Pro price Canada USA")
		assert.Contains(t, queries, "Widget Pro ingredients UPC barcode")
		assert.Contains(t, queries, "Widget Pro review specifications features")
		assert.Contains(t, queries, "Widget Pro buy online")
		assert.Contains(t, queries, "Widget Pro how to use instructions")
		assert.Contains(t, queries, "Widget Pro widget")
	})

	t.Run("name only", func(t *testing.T) {
		queries := buildQueries(&models.ResearchRequest{ProductName: "Widget Pro"})

		assert.Equal(t, "Widget Pro", queries[0])
		assert.Len(t, queries, 1+len(queryAngles))
	})

	t.Run("duplicate queries collapsed", func(t *testing.T) {
		queries := buildQueries(&models.ResearchRequest{
			ProductName:     "Widget Pro",
			PrimaryKeywords: "widget",
		})

		seen := make(map[string]int)
		for _, q := range queries {
			seen[q]++
		}
		for q, n := range seen {
			assert.Equal(t, 1, n, q)
		}
	})
}

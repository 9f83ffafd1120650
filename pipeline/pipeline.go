// Package pipeline orchestrates a research run: derive queries, discover
// candidate URLs, fetch and extract them concurrently, and merge the partial
// records into one canonical record. Individual query and page failures are
// absorbed as diagnostics; only an empty candidate set fails a run.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/productsense/research/aggregate"
	"github.com/productsense/research/config"
	"github.com/productsense/research/extract"
	"github.com/productsense/research/fetch"
	"github.com/productsense/research/models"
	"github.com/productsense/research/search"
	"github.com/productsense/research/simhash"
)

// Stage names a phase of a research run, used in logs and job status.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageSearching   Stage = "searching"
	StageScraping    Stage = "scraping"
	StageAggregating Stage = "aggregating"
	StageDone        Stage = "done"
	StageErrored     Stage = "errored"
)

// nearDupThreshold is the max Hamming distance between body fingerprints
// for two pages to count as the same page. Mirrored listings typically land
// within 3 bits; unrelated product pages are far beyond 10.
const nearDupThreshold = 3

// Fetcher retrieves one page. *fetch.Dispatcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req *fetch.Request) (*fetch.Result, error)
}

// Pipeline wires the research stages together. Safe for concurrent use; all
// per-run state lives on the stack of Research.
type Pipeline struct {
	searcher  search.Backend
	fetcher   Fetcher
	extractor *extract.Extractor
	limiters  *hostLimiters
	cfg       config.PipelineConfig
}

// New creates a Pipeline.
func New(searcher search.Backend, fetcher Fetcher, extractor *extract.Extractor, cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{
		searcher:  searcher,
		fetcher:   fetcher,
		extractor: extractor,
		limiters:  newHostLimiters(cfg.HostRPS),
		cfg:       cfg,
	}
}

// Research runs the full pipeline for one request. The returned response is
// always non-nil; err is non-nil only when no canonical record could be
// produced at all (exhaustion), in which case the response carries the same
// error as a detail.
func (p *Pipeline) Research(ctx context.Context, req *models.ResearchRequest) (*models.ResearchResponse, error) {
	// Request-level knobs win; unset ones fall back to the configured
	// values, then to the built-in defaults.
	if req.TimeoutSec == 0 && p.cfg.OverallDeadline > 0 {
		req.TimeoutSec = int(p.cfg.OverallDeadline / time.Second)
	}
	if req.UPCStrictness == "" {
		req.UPCStrictness = p.cfg.UPCStrictness
	}
	req.Defaults()
	start := time.Now()

	deadline := time.Duration(req.TimeoutSec) * time.Second
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	log := slog.With("product", req.ProductName)
	log.Info("research run started", "stage", StageSearching)

	var failures []models.FailureDetail

	searchStart := time.Now()
	links, searchFailures, allQueriesFailed := p.discover(ctx, req)
	failures = append(failures, searchFailures...)
	searchingMs := time.Since(searchStart).Milliseconds()

	// Zero links from working backends is "no data found" and produces an
	// empty record. Exhaustion is reserved for every query erroring out.
	if len(links) == 0 && allQueriesFailed {
		log.Warn("research run exhausted: every search query failed", "stage", StageErrored)
		rerr := models.NewResearchError(
			models.ErrCodeExhausted,
			"no candidate product pages were discovered for any query",
			nil,
		)
		return &models.ResearchResponse{
			Success:  false,
			Failures: failures,
			Timing: models.TimingInfo{
				TotalMs:     time.Since(start).Milliseconds(),
				SearchingMs: searchingMs,
			},
			Error: rerr.ToDetail(),
		}, rerr
	}

	log.Info("candidate urls discovered", "stage", StageScraping, "count", len(links))

	scrapeStart := time.Now()
	partials, fetched, fetchFailures := p.scrapeAll(ctx, links)
	failures = append(failures, fetchFailures...)
	scrapingMs := time.Since(scrapeStart).Milliseconds()

	log.Info("aggregating partial records", "stage", StageAggregating,
		"partials", len(partials), "failures", len(fetchFailures))

	partials = dropNearDuplicates(dropEmpty(partials))
	record := aggregate.Merge(req.ProductName, partials, fetched, req.UPCStrictness)

	log.Info("research run finished", "stage", StageDone,
		"sources", len(record.SourceLinks), "upc", record.UPC)

	return &models.ResearchResponse{
		Success:  true,
		Record:   record,
		Failures: failures,
		Timing: models.TimingInfo{
			TotalMs:     time.Since(start).Milliseconds(),
			SearchingMs: searchingMs,
			ScrapingMs:  scrapingMs,
		},
	}, nil
}

// discover runs every derived query against the search backend and merges
// the per-query results, in query order, into one deduplicated candidate
// list capped at MaxTotalLinks. Query failures are absorbed; the returned
// flag reports whether every query errored (the exhaustion condition).
func (p *Pipeline) discover(ctx context.Context, req *models.ResearchRequest) ([]string, []models.FailureDetail, bool) {
	queries := buildQueries(req)

	maxPerQuery := req.MaxLinksPerQuery
	if maxPerQuery <= 0 {
		maxPerQuery = p.cfg.MaxLinksPerQuery
	}

	type queryResult struct {
		links []string
		err   error
	}
	results := make([]queryResult, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(idx int, query string) {
			defer wg.Done()
			links, err := p.searcher.Search(ctx, query, maxPerQuery)
			results[idx] = queryResult{links: links, err: err}
		}(i, q)
	}
	wg.Wait()

	var failures []models.FailureDetail
	seen := make(map[string]struct{})
	var merged []string
	for i, res := range results {
		if res.err != nil {
			failures = append(failures, models.FailureDetail{
				Stage:  "search",
				Target: queries[i],
				Reason: res.err.Error(),
			})
			continue
		}
		for _, link := range res.links {
			key := search.DedupKey(link)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if len(merged) < p.cfg.MaxTotalLinks {
				merged = append(merged, link)
			}
		}
	}
	return merged, failures, len(failures) == len(queries)
}

// scrapeAll fetches and extracts every candidate with a bounded worker pool.
// Results land at their submission index so the aggregation's first-non-empty
// merge stays deterministic regardless of completion order. The fetched list
// is the audit trail: every URL whose content was retrieved, including pages
// later rejected by validation.
func (p *Pipeline) scrapeAll(ctx context.Context, links []string) ([]*models.PartialRecord, []string, []models.FailureDetail) {
	partials := make([]*models.PartialRecord, len(links))
	failures := make([]models.FailureDetail, len(links))
	failed := make([]bool, len(links))
	retrieved := make([]bool, len(links))

	sem := make(chan struct{}, p.cfg.MaxConcurrency)
	var wg sync.WaitGroup

	for i, link := range links {
		wg.Add(1)
		go func(idx int, target string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			rec, err := p.scrapeOne(ctx, target)
			if err != nil {
				stage := "fetch"
				var rerr *models.ResearchError
				if errors.As(err, &rerr) && rerr.Code == models.ErrCodeValidation {
					stage = "validate"
					retrieved[idx] = true
				}
				failures[idx] = models.FailureDetail{
					Stage:  stage,
					Target: target,
					Reason: err.Error(),
				}
				failed[idx] = true
				return
			}
			partials[idx] = rec
			retrieved[idx] = true
		}(i, link)
	}
	wg.Wait()

	// Compact while preserving submission order. Candidates still pending
	// when the deadline hit are neither partials nor failures.
	out := make([]*models.PartialRecord, 0, len(links))
	var fetched []string
	var failureList []models.FailureDetail
	for i := range links {
		if retrieved[i] {
			fetched = append(fetched, links[i])
		}
		if partials[i] != nil {
			out = append(out, partials[i])
		} else if failed[i] {
			failureList = append(failureList, failures[i])
		}
	}
	return out, fetched, failureList
}

// scrapeOne fetches a single URL through the per-host limiter and extracts
// its partial record.
func (p *Pipeline) scrapeOne(ctx context.Context, target string) (*models.PartialRecord, error) {
	host := target
	if u, err := url.Parse(target); err == nil {
		host = u.Hostname()
	}
	if err := p.limiters.wait(ctx, host); err != nil {
		return nil, err
	}

	res, err := p.fetcher.Fetch(ctx, &fetch.Request{
		URL:     target,
		Timeout: p.cfg.PerFetchTimeout,
	})
	if err != nil {
		return nil, err
	}

	sourceURL := res.FinalURL
	if sourceURL == "" {
		sourceURL = target
	}
	return p.extractor.Extract(res.HTML, sourceURL)
}

// dropEmpty removes partials that validated as product pages but yielded no
// usable field. They contribute nothing to the merge, and an empty page must
// not shadow a populated mirror of the same body in duplicate detection. The
// page stays in the fetch audit trail.
func dropEmpty(partials []*models.PartialRecord) []*models.PartialRecord {
	kept := partials[:0]
	for _, rec := range partials {
		if rec.Empty() {
			slog.Debug("empty page excluded from aggregation", "url", rec.SourceURL)
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// dropNearDuplicates removes partials whose body fingerprints are within
// nearDupThreshold of an earlier partial, keeping the first occurrence.
func dropNearDuplicates(partials []*models.PartialRecord) []*models.PartialRecord {
	if len(partials) < 2 {
		return partials
	}

	kept := make([]*models.PartialRecord, 0, len(partials))
	var prints []uint64
	for _, rec := range partials {
		fp := simhash.Fingerprint(rec.BodyText)
		dup := false
		for _, seen := range prints {
			if fp != 0 && simhash.Similar(fp, seen, nearDupThreshold) {
				dup = true
				break
			}
		}
		if dup {
			slog.Debug("near-duplicate page dropped", "url", rec.SourceURL)
			continue
		}
		prints = append(prints, fp)
		kept = append(kept, rec)
	}
	return kept
}

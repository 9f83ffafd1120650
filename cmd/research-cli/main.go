package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/productsense/research/config"
	"github.com/productsense/research/extract"
	"github.com/productsense/research/fetch"
	"github.com/productsense/research/models"
	"github.com/productsense/research/pipeline"
	"github.com/productsense/research/search"
)

// CLI flags
var (
	product    = flag.String("product", "", "Product name to research (required)")
	primary    = flag.String("primary", "", "Comma-separated primary keywords")
	secondary  = flag.String("secondary", "", "Comma-separated secondary keywords")
	strictness = flag.String("upc", "", "UPC acceptance mode: checksum or syntactic")
	timeoutSec = flag.Int("timeout", 0, "Overall deadline in seconds (0 = server default)")
	noBrowser  = flag.Bool("no-browser", false, "Skip the headless browser, HTTP fetches only")
	verbose    = flag.Bool("v", false, "Log pipeline progress to stderr")
)

func main() {
	flag.Parse()
	if *product == "" {
		fmt.Fprintln(os.Stderr, "usage: research-cli -product \"<name>\" [-primary a,b] [-secondary c,d]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.Load()

	var browserEngine fetch.Engine
	if !*noBrowser && cfg.Browser.MaxPages > 0 {
		b, err := fetch.NewBrowser(cfg.Browser)
		if err != nil {
			fmt.Fprintf(os.Stderr, "browser launch failed, continuing HTTP-only: %v\n", err)
		} else {
			browserEngine = fetch.NewRodEngine(b)
			defer b.Close()
		}
	}

	memory := fetch.NewDomainMemory(24 * time.Hour)
	defer memory.Stop()
	dispatcher := fetch.NewDispatcher(fetch.NewHTTPEngine(), browserEngine, memory, cfg.Pipeline.BrowserDomains)

	opts := search.Options{
		Denylist: cfg.Search.Denylist,
		Stealth:  cfg.Search.UseBrowser && browserEngine != nil,
	}
	var backends []search.Backend
	for _, name := range cfg.Search.BackendOrder {
		switch name {
		case "google":
			backends = append(backends, search.NewGoogle(dispatcher, opts))
		case "bing":
			backends = append(backends, search.NewBing(dispatcher, opts))
		}
	}
	searcher := search.NewChain(backends...)

	p := pipeline.New(searcher, dispatcher, extract.NewExtractor(), cfg.Pipeline)

	req := &models.ResearchRequest{
		ProductName:       *product,
		PrimaryKeywords:   *primary,
		SecondaryKeywords: *secondary,
		UPCStrictness:     *strictness,
		TimeoutSec:        *timeoutSec,
	}

	resp, err := p.Research(context.Background(), req)
	if err != nil {
		if resp != nil && resp.Error != nil {
			fmt.Fprintf(os.Stderr, "research failed: [%s] %s\n", resp.Error.Code, resp.Error.Message)
		} else {
			fmt.Fprintf(os.Stderr, "research failed: %v\n", err)
		}
		os.Exit(1)
	}

	out, err := json.MarshalIndent(resp.Record, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal record: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	for _, f := range resp.Failures {
		fmt.Fprintf(os.Stderr, "skipped [%s] %s: %s\n", f.Stage, f.Target, f.Reason)
	}
	fmt.Fprintf(os.Stderr, "done in %.1fs (%d sources)\n",
		float64(resp.Timing.TotalMs)/1000, len(resp.Record.SourceLinks))
}

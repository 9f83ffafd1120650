package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Pipeline  PipelineConfig
	Search    SearchConfig
	Prose     ProseConfig
	Store     StoreConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 5

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// NavigationTimeout is the max time for a single page navigation.
	NavigationTimeout time.Duration // default: 15s
}

// PipelineConfig controls the research pipeline.
type PipelineConfig struct {
	// MaxLinksPerQuery caps candidate URLs contributed per search query.
	MaxLinksPerQuery int // default: 5

	// MaxTotalLinks caps the deduplicated candidate set across all queries.
	MaxTotalLinks int // default: 12

	// MaxConcurrency bounds the fetch+extract worker pool.
	MaxConcurrency int // default: 5

	// PerFetchTimeout is the deadline for one URL's fetch.
	PerFetchTimeout time.Duration // default: 12s

	// OverallDeadline bounds a whole research run.
	OverallDeadline time.Duration // default: 90s

	// UPCStrictness is "checksum" or "syntactic".
	UPCStrictness string // default: "checksum"

	// HostRPS is the per-host politeness rate for page fetches.
	HostRPS float64 // default: 2.0

	// BrowserDomains lists hosts that always fetch through the browser
	// engine (JS-rendered storefronts).
	BrowserDomains []string
}

// SearchConfig controls the link discovery stage.
type SearchConfig struct {
	// BackendOrder is the fallback chain, tried in order.
	// Known backends: "google", "bing".
	BackendOrder []string // default: ["google", "bing"]

	// Denylist holds host suffixes that never count as product pages
	// (search engines, video/social platforms). Matched against the
	// candidate URL's hostname.
	Denylist []string

	// UseBrowser forces search result pages through the browser engine.
	// Search engines are aggressive about blocking plain HTTP clients.
	UseBrowser bool // default: true
}

// ProseConfig controls the external prose-generation collaborator.
type ProseConfig struct {
	// Enabled toggles prose generation after a research run.
	Enabled bool // default: false

	// BaseURL is an OpenAI-compatible API root, e.g. "https://api.openai.com/v1".
	BaseURL string

	// APIKey authenticates against the prose provider.
	APIKey string

	// Model is the chat model name.
	Model string // default: "gpt-4o-mini"
}

// StoreConfig controls the durable storage sink.
type StoreConfig struct {
	// PostgresDSN enables the Postgres sink when non-empty.
	PostgresDSN string

	// WebhookURL enables the webhook sink when non-empty.
	WebhookURL string

	// WebhookSecret signs webhook payloads (HMAC-SHA256) when non-empty.
	WebhookSecret string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// CacheConfig controls the canonical record cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached records.
	MaxEntries int // default: 500
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// defaultDenylist covers the domains the discoverer must never treat as
// product pages: the engines themselves plus video/social/image platforms.
var defaultDenylist = []string{
	"google.com", "google.ca", "bing.com", "duckduckgo.com",
	"webcache.googleusercontent.com",
	"youtube.com", "facebook.com", "instagram.com", "pinterest.com",
	"twitter.com", "x.com", "tiktok.com", "reddit.com", "linkedin.com",
}

// Load reads configuration from environment variables with sane defaults,
// then applies the optional YAML overlay file named by RESEARCH_CONFIG_FILE.
func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host: envOr("RESEARCH_HOST", "0.0.0.0"),
			Port: envIntOr("RESEARCH_PORT", 8080),
			Mode: envOr("RESEARCH_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:          envBoolOr("RESEARCH_HEADLESS", true),
			MaxPages:          envIntOr("RESEARCH_MAX_PAGES", 5),
			NoSandbox:         envBoolOr("RESEARCH_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("RESEARCH_BROWSER_BIN"),
			NavigationTimeout: envDurationOr("RESEARCH_NAV_TIMEOUT", 15*time.Second),
		},
		Pipeline: PipelineConfig{
			MaxLinksPerQuery: envIntOr("RESEARCH_MAX_LINKS_PER_QUERY", 5),
			MaxTotalLinks:    envIntOr("RESEARCH_MAX_TOTAL_LINKS", 12),
			MaxConcurrency:   envIntOr("RESEARCH_MAX_CONCURRENCY", 5),
			PerFetchTimeout:  envDurationOr("RESEARCH_FETCH_TIMEOUT", 12*time.Second),
			OverallDeadline:  envDurationOr("RESEARCH_DEADLINE", 90*time.Second),
			UPCStrictness:    envOr("RESEARCH_UPC_STRICTNESS", "checksum"),
			HostRPS:          envFloatOr("RESEARCH_HOST_RPS", 2.0),
			BrowserDomains:   envSliceOr("RESEARCH_BROWSER_DOMAINS", nil),
		},
		Search: SearchConfig{
			BackendOrder: envSliceOr("RESEARCH_SEARCH_BACKENDS", []string{"google", "bing"}),
			Denylist:     envSliceOr("RESEARCH_SEARCH_DENYLIST", defaultDenylist),
			UseBrowser:   envBoolOr("RESEARCH_SEARCH_USE_BROWSER", true),
		},
		Prose: ProseConfig{
			Enabled: envBoolOr("RESEARCH_PROSE_ENABLED", false),
			BaseURL: envOr("RESEARCH_PROSE_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  os.Getenv("RESEARCH_PROSE_API_KEY"),
			Model:   envOr("RESEARCH_PROSE_MODEL", "gpt-4o-mini"),
		},
		Store: StoreConfig{
			PostgresDSN:   os.Getenv("RESEARCH_PG_DSN"),
			WebhookURL:    os.Getenv("RESEARCH_WEBHOOK_URL"),
			WebhookSecret: os.Getenv("RESEARCH_WEBHOOK_SECRET"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("RESEARCH_AUTH_ENABLED", false),
			APIKeys: envSliceOr("RESEARCH_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RESEARCH_RATE_RPS", 1.0),
			Burst:             envIntOr("RESEARCH_RATE_BURST", 3),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("RESEARCH_CACHE_MAX_ENTRIES", 500),
		},
		Log: LogConfig{
			Level:  envOr("RESEARCH_LOG_LEVEL", "info"),
			Format: envOr("RESEARCH_LOG_FORMAT", "json"),
		},
	}

	if path := os.Getenv("RESEARCH_CONFIG_FILE"); path != "" {
		// Overlay errors are non-fatal; env/default config still works.
		_ = cfg.applyFile(path)
	}

	return cfg
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

package models

// ResearchResponse is the response for POST /api/v1/research.
type ResearchResponse struct {
	// Success indicates whether a canonical record was produced. An
	// all-empty record is still a success; only pipeline exhaustion fails.
	Success bool `json:"success"`

	// Record is the merged canonical fact set. Nil only when Success is false.
	Record *CanonicalRecord `json:"record,omitempty"`

	// Failures lists per-URL and per-query problems absorbed during the run.
	// Diagnostic only; a populated list does not imply failure.
	Failures []FailureDetail `json:"failures,omitempty"`

	// Timing breaks down where the run spent its time.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the record came from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// FailureDetail records one absorbed failure for diagnostics.
type FailureDetail struct {
	// Stage is "search", "fetch", or "validate".
	Stage string `json:"stage"`
	// Target is the query (search stage) or URL (fetch/validate stages).
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// TimingInfo breaks down the time spent in each pipeline phase.
type TimingInfo struct {
	TotalMs     int64 `json:"total_ms"`
	SearchingMs int64 `json:"searching_ms"`
	ScrapingMs  int64 `json:"scraping_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}

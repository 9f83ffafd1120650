package models

// UPC strictness knobs. Syntactic mode accepts the first 12-digit candidate;
// checksum mode requires the UPC-A check digit to validate.
const (
	UPCSyntactic = "syntactic"
	UPCChecksum  = "checksum"
)

// ResearchRequest is the payload for POST /api/v1/research and the input to
// the pipeline's Research operation.
type ResearchRequest struct {
	// ProductName is the full product name as it appears in stores. Required.
	ProductName string `json:"product_name" binding:"required"`

	// PrimaryKeywords are the most important keywords, comma-separated.
	PrimaryKeywords string `json:"primary_keywords,omitempty"`

	// SecondaryKeywords add context, comma-separated.
	SecondaryKeywords string `json:"secondary_keywords,omitempty"`

	// MaxLinksPerQuery caps how many candidate URLs each search query may
	// contribute. Default: 5.
	MaxLinksPerQuery int `json:"max_links_per_query,omitempty" binding:"omitempty,min=1,max=20"`

	// UPCStrictness selects between "checksum" (default) and "syntactic"
	// UPC acceptance.
	UPCStrictness string `json:"upc_strictness,omitempty" binding:"omitempty,oneof=checksum syntactic"`

	// TimeoutSec bounds the whole research run in seconds.
	// Default: 90. Max: 300.
	TimeoutSec int `json:"timeout_sec,omitempty" binding:"omitempty,min=1,max=300"`

	// MaxAgeMs enables the result cache: a cached record younger than this
	// is returned without re-researching. 0 disables cache lookup.
	MaxAgeMs int `json:"max_age_ms,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ResearchRequest) Defaults() {
	if r.MaxLinksPerQuery == 0 {
		r.MaxLinksPerQuery = 5
	}
	if r.UPCStrictness == "" {
		r.UPCStrictness = UPCChecksum
	}
	if r.TimeoutSec == 0 {
		r.TimeoutSec = 90
	}
}

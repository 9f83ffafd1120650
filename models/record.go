package models

// UPCNotFound is the sentinel value reported when no admissible UPC was
// observed on any fetched page.
const UPCNotFound = "UPC Not Found"

// Currency tags a parsed price. Only the two markets the research pipeline
// targets are distinguished; everything else is noise and never parsed.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCAD Currency = "CAD"
)

// Price is a currency-tagged numeric price parsed from page text.
type Price struct {
	Currency Currency `json:"currency"`
	Value    float64  `json:"value"`
}

// PriceToken is a raw, unparsed price candidate located lexically in page
// text. Hint carries the currency marker as it appeared ("$", "CAD", ...);
// disambiguation of bare "$" happens in the normalizer, which has access to
// the source domain and surrounding text.
type PriceToken struct {
	Hint   string
	Amount string
	// Context is a short window of body text around the token, used for
	// currency disambiguation of bare "$" amounts.
	Context string
}

// PartialRecord holds the facts extracted from a single fetched page.
// A PartialRecord that fails the product-page validation heuristic is never
// created; Extract returns a ValidationFailure error instead.
type PartialRecord struct {
	SourceURL        string   `json:"source_url"`
	Title            string   `json:"title"`
	MetaDescription  string   `json:"meta_description"`
	ShortDescription string   `json:"short_description"`
	LongDescription  string   `json:"long_description"`
	HowToUse         string   `json:"how_to_use"`
	Ingredients      string   `json:"ingredients"`
	Prices           []Price  `json:"prices,omitempty"`
	UPCCandidates    []string `json:"upc_candidates,omitempty"`

	// BodyText is the whitespace-collapsed visible text of the page. It is
	// kept on the record for duplicate detection and prose context; it is
	// not merged into the canonical record.
	BodyText string `json:"-"`

	// MarkdownContext is the readability-extracted main content rendered as
	// Markdown, capped in length. Used only as prose-generation context.
	MarkdownContext string `json:"-"`
}

// Empty reports whether the record carries no usable fact at all.
func (p *PartialRecord) Empty() bool {
	return p.Title == "" && p.MetaDescription == "" &&
		p.ShortDescription == "" && p.LongDescription == "" &&
		p.HowToUse == "" && p.Ingredients == "" &&
		len(p.Prices) == 0 && len(p.UPCCandidates) == 0
}

// CanonicalRecord is the single merged fact set describing one product.
// It is the pipeline's output and immutable once the aggregator returns it.
//
// Price fields are nil when no admissible price was observed in that
// currency; the pipeline never fabricates values.
type CanonicalRecord struct {
	ProductName      string   `json:"product_name"`
	Title            string   `json:"title"`
	MetaDescription  string   `json:"meta_description"`
	ShortDescription string   `json:"short_description"`
	LongDescription  string   `json:"long_description"`
	HowToUse         string   `json:"how_to_use"`
	Ingredients      string   `json:"ingredients"`
	MinPriceUSD      *float64 `json:"min_price_usd"`
	MaxPriceUSD      *float64 `json:"max_price_usd"`
	MinPriceCAD      *float64 `json:"min_price_cad"`
	MaxPriceCAD      *float64 `json:"max_price_cad"`
	UPC              string   `json:"upc"`
	SourceLinks      []string `json:"source_links"`
}

// Listing is the prose-generation output: the SEO listing text phrased by an
// external generator from a CanonicalRecord. The pipeline core never
// produces one; it exists so callers can hand records to a prose collaborator
// and sinks through one shape.
type Listing struct {
	MetaTitle        string `json:"meta_title"`
	MetaDescription  string `json:"meta_description"`
	ShortDescription string `json:"short_description"`
	FullDescription  string `json:"full_description"`
	HowToUse         string `json:"how_to_use"`
	Ingredients      string `json:"ingredients"`
}

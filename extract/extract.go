// Package extract turns fetched page HTML into a PartialRecord: the product
// facts one page contributes to a research run. Pages that do not look like
// product pages are rejected before any field extraction happens.
package extract

import (
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/productsense/research/models"
	"github.com/productsense/research/normalize"
)

// Field length caps. Long descriptions get cut at a word boundary; section
// captures get cut at a sentence boundary.
const (
	maxShortDescription = 300
	maxLongDescription  = 500
	maxIngredients      = 500
	maxHowToUse         = 300
	maxMarkdownContext  = 4000
)

// noiseSelector matches elements that carry no product facts and pollute the
// collapsed body text. Compiled once; Extract runs on every scraped page.
var noiseSelector = cascadia.MustCompile("script, style, noscript, template, svg, nav, footer, header, aside")

// Extractor parses pages into partial records. It is safe for concurrent use;
// the markdown converter it carries is goroutine-safe and reused across calls.
type Extractor struct {
	conv *converter.Converter
}

// NewExtractor creates an Extractor with a converter configured for prose
// context output: base plugin strips non-content tags, commonmark renders
// standard Markdown, and the table plugin keeps product detail tables
// readable with minimal cell padding.
func NewExtractor() *Extractor {
	return &Extractor{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Extract parses rawHTML into a PartialRecord. It returns a typed
// VALIDATION_FAILED error when the page does not pass the product-page
// heuristic; the caller records that as an absorbed failure, not a fatal one.
func (e *Extractor) Extract(rawHTML, sourceURL string) (*models.PartialRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, models.NewResearchError(
			models.ErrCodeValidation,
			"page HTML could not be parsed",
			err,
		)
	}

	title := collapseWhitespace(doc.Find("title").First().Text())
	meta := metaDescription(doc)

	doc.FindMatcher(noiseSelector).Remove()

	body := collapseWhitespace(doc.Find("body").Text())
	if body == "" {
		body = collapseWhitespace(doc.Text())
	}

	if err := validateProductPage(title, meta, body); err != nil {
		return nil, err
	}

	host := ""
	if u, parseErr := url.Parse(sourceURL); parseErr == nil {
		host = u.Hostname()
	}

	rec := &models.PartialRecord{
		SourceURL:        sourceURL,
		Title:            title,
		MetaDescription:  meta,
		ShortDescription: firstSubstantialParagraph(doc),
		HowToUse:         captureSection(body, howToUseKeywords, maxHowToUse),
		Ingredients:      captureSection(body, ingredientKeywords, maxIngredients),
		Prices:           normalize.ParsePrices(normalize.FindPriceTokens(body), host),
		UPCCandidates:    normalize.FindUPCCandidates(body),
		BodyText:         body,
	}

	rec.LongDescription, rec.MarkdownContext = e.mainContent(rawHTML, sourceURL, doc)

	return rec, nil
}

// metaDescription returns the page's meta description, preferring the plain
// name=description tag over og:description.
func metaDescription(doc *goquery.Document) string {
	if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if c := collapseWhitespace(content); c != "" {
			return c
		}
	}
	if content, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		return collapseWhitespace(content)
	}
	return ""
}

// firstSubstantialParagraph returns the first <p> long enough to plausibly be
// a product blurb rather than a shipping notice or legal line.
func firstSubstantialParagraph(doc *goquery.Document) string {
	const minLen = 50
	var out string
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := collapseWhitespace(s.Text())
		if len(text) >= minLen {
			out = truncateAtWord(text, maxShortDescription)
			return false
		}
		return true
	})
	return out
}

// collapseWhitespace trims the string and folds all whitespace runs into
// single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateAtWord cuts s to at most max bytes, backing up to the last space so
// no word is split.
func truncateAtWord(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

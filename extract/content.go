package extract

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minReadableLength is the minimum TextContent length for readability output
// to be considered valid. Below it the algorithm probably latched onto a
// sidebar, so the paragraph fallback is used instead.
const minReadableLength = 50

// mainContent extracts the page's long description and the Markdown context
// used for prose generation. It runs the Mozilla Readability algorithm on the
// raw HTML; if that fails or finds too little, the long description falls
// back to the longest paragraph and the Markdown context stays empty.
func (e *Extractor) mainContent(rawHTML, sourceURL string, doc *goquery.Document) (string, string) {
	article, ok := readableArticle(rawHTML, sourceURL)
	if !ok {
		return truncateAtWord(longestParagraph(doc), maxLongDescription), ""
	}

	long := truncateAtWord(collapseWhitespace(article.TextContent), maxLongDescription)

	domain := ""
	if u, err := nurl.Parse(sourceURL); err == nil {
		domain = u.Scheme + "://" + u.Host
	}
	markdown, err := e.conv.ConvertString(article.Content, converter.WithDomain(domain))
	if err != nil {
		slog.Debug("markdown conversion failed", "url", sourceURL, "error", err)
		return long, ""
	}
	if len(markdown) > maxMarkdownContext {
		markdown = markdown[:maxMarkdownContext]
	}
	return long, strings.TrimSpace(markdown)
}

func readableArticle(rawHTML, sourceURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		return readability.Article{}, false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability extraction failed", "url", sourceURL, "error", err)
		return readability.Article{}, false
	}

	if len(strings.TrimSpace(article.TextContent)) < minReadableLength {
		return readability.Article{}, false
	}
	return article, true
}

func longestParagraph(doc *goquery.Document) string {
	var best string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := collapseWhitespace(s.Text())
		if len(text) > len(best) {
			best = text
		}
	})
	return best
}

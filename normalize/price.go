// Package normalize turns raw page tokens into typed facts: currency-tagged
// prices and checksum-verified UPC codes. It is pure string work with no I/O,
// so every rule here is unit-testable in isolation.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/productsense/research/models"
)

// Plausibility band for consumer product prices. Amounts outside the band are
// almost always shipping thresholds, review counts or order totals.
const (
	MinPlausiblePrice = 5.0
	MaxPlausiblePrice = 200.0
)

// priceRe matches a currency marker followed by an amount. Longer markers
// come first so "C$" never lexes as a bare "$" and "USD" never as "US".
// Markers are matched case-sensitively: a lowercase "us" is far more likely
// to be the tail of "plus" or "bonus" than a currency code. Amounts allow
// thousands separators and at most two decimals.
var priceRe = regexp.MustCompile(
	`(C\$|CAD|US\$|USD|US|\$)\s?(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`)

// contextWindow is how many bytes around a price token are kept for
// currency disambiguation of bare "$" amounts.
const contextWindow = 40

// cadContextRe finds Canadian signals near a bare "$" amount. Whole words
// only: "cad" also lives inside "arcade", "decade" and "cascade".
var cadContextRe = regexp.MustCompile(`(?i)\b(?:canada|canadian|cad)\b`)

// FindPriceTokens scans text for currency-marked amounts and returns them in
// document order, each with a context window for later disambiguation.
func FindPriceTokens(text string) []models.PriceToken {
	matches := priceRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	tokens := make([]models.PriceToken, 0, len(matches))
	for _, m := range matches {
		start, end := m[0], m[1]
		ctxStart := start - contextWindow
		if ctxStart < 0 {
			ctxStart = 0
		}
		ctxEnd := end + contextWindow
		if ctxEnd > len(text) {
			ctxEnd = len(text)
		}
		tokens = append(tokens, models.PriceToken{
			Hint:    text[m[2]:m[3]],
			Amount:  text[m[4]:m[5]],
			Context: text[ctxStart:ctxEnd],
		})
	}
	return tokens
}

// ParsePrices converts tokens into typed prices. Host is the page's hostname;
// a ".ca" host, or "canada"/"cad" near the token, resolves a bare "$" to CAD.
// Implausible amounts are dropped rather than clamped.
func ParsePrices(tokens []models.PriceToken, host string) []models.Price {
	var prices []models.Price
	for _, tok := range tokens {
		amount := strings.ReplaceAll(tok.Amount, ",", "")
		value, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			continue
		}
		if value < MinPlausiblePrice || value > MaxPlausiblePrice {
			continue
		}
		prices = append(prices, models.Price{
			Currency: resolveCurrency(tok.Hint, tok.Context, host),
			Value:    value,
		})
	}
	return prices
}

func resolveCurrency(hint, context, host string) models.Currency {
	switch strings.ToUpper(hint) {
	case "C$", "CAD":
		return models.CurrencyCAD
	case "US$", "USD", "US":
		return models.CurrencyUSD
	}

	// Bare "$": Canadian storefronts rarely label their dollars.
	if strings.HasSuffix(strings.ToLower(host), ".ca") {
		return models.CurrencyCAD
	}
	if cadContextRe.MatchString(context) {
		return models.CurrencyCAD
	}
	return models.CurrencyUSD
}

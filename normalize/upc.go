package normalize

import (
	"regexp"

	"github.com/productsense/research/models"
)

// labeledUPCRe matches a 12-digit code introduced by an explicit label.
// Labeled codes are the strongest signal a page gives us.
var labeledUPCRe = regexp.MustCompile(
	`(?i)(?:UPC|Barcode|Product\s*Code)\s*[:#]?\s*(\d{12})\b`)

// bareUPCRe matches a standalone 12-digit run. Word boundaries keep it from
// firing inside longer digit runs (phone numbers, order IDs, EAN-13).
var bareUPCRe = regexp.MustCompile(`\b\d{12}\b`)

// FindUPCCandidates returns the distinct 12-digit UPC candidates in text,
// labeled occurrences first, each group in document order.
func FindUPCCandidates(text string) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, m := range labeledUPCRe.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	for _, code := range bareUPCRe.FindAllString(text, -1) {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// CheckDigit reports whether code is a syntactically valid UPC-A with a
// correct check digit. The check digit is computed over the first 11 digits:
// odd positions (1-indexed) weighted 3, even positions weighted 1, and the
// total rounded up to the next multiple of 10.
func CheckDigit(code string) bool {
	if len(code) != 12 {
		return false
	}
	sum := 0
	for i := 0; i < 11; i++ {
		d := code[i]
		if d < '0' || d > '9' {
			return false
		}
		n := int(d - '0')
		if i%2 == 0 {
			sum += n * 3
		} else {
			sum += n
		}
	}
	last := code[11]
	if last < '0' || last > '9' {
		return false
	}
	check := (10 - sum%10) % 10
	return check == int(last-'0')
}

// SelectUPC picks the first admissible candidate under the given strictness.
// Syntactic mode accepts any 12-digit candidate; checksum mode additionally
// requires a valid check digit. The second return is false when no candidate
// qualifies.
func SelectUPC(candidates []string, strictness string) (string, bool) {
	for _, c := range candidates {
		if len(c) != 12 {
			continue
		}
		if strictness == models.UPCSyntactic {
			return c, true
		}
		if CheckDigit(c) {
			return c, true
		}
	}
	return "", false
}

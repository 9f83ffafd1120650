package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/productsense/research/models"
)

func TestFindUPCCandidates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "labeled upc",
			text: "UPC: 036000291452 in stock",
			want: []string{"036000291452"},
		},
		{
			name: "barcode label without colon",
			text: "Barcode 012345678905",
			want: []string{"012345678905"},
		},
		{
			name: "product code label",
			text: "Product Code: 036000291452",
			want: []string{"036000291452"},
		},
		{
			name: "bare 12 digit run",
			text: "item 036000291452 ships free",
			want: []string{"036000291452"},
		},
		{
			name: "labeled ranked before bare",
			text: "ref 111111111117 somewhere, UPC: 036000291452",
			want: []string{"036000291452", "111111111117"},
		},
		{
			name: "longer digit runs ignored",
			text: "order 0360002914521 and phone 12345678901",
			want: nil,
		},
		{
			name: "duplicates collapsed",
			text: "UPC: 036000291452 ... barcode: 036000291452",
			want: []string{"036000291452"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindUPCCandidates(tt.text))
		})
	}
}

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"036000291452", true},  // Cheerios
		{"012345678905", true},
		{"036000291453", false}, // off-by-one check digit
		{"000000000000", true},
		{"12345678901", false},  // too short
		{"1234567890123", false}, // too long
		{"03600029145a", false}, // non-digit
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckDigit(tt.code))
		})
	}
}

func TestSelectUPC(t *testing.T) {
	valid := "036000291452"
	invalid := "036000291453"

	tests := []struct {
		name       string
		candidates []string
		strictness string
		want       string
		ok         bool
	}{
		{
			name:       "checksum skips invalid candidates",
			candidates: []string{invalid, valid},
			strictness: models.UPCChecksum,
			want:       valid,
			ok:         true,
		},
		{
			name:       "checksum rejects all invalid",
			candidates: []string{invalid},
			strictness: models.UPCChecksum,
			ok:         false,
		},
		{
			name:       "syntactic takes first",
			candidates: []string{invalid, valid},
			strictness: models.UPCSyntactic,
			want:       invalid,
			ok:         true,
		},
		{
			name:       "no candidates",
			candidates: nil,
			strictness: models.UPCChecksum,
			ok:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectUPC(tt.candidates, tt.strictness)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

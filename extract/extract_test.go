package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productsense/research/models"
)

const productPageHTML = `<!DOCTYPE html>
<html>
<head>
<title>Widget Pro Cleansing Gel | Shop Example</title>
<meta name="description" content="Widget Pro is a gentle daily cleansing gel for all skin types.">
</head>
<body>
<nav><a href="/">Home</a><a href="/cart">Cart</a></nav>
<header><h1>Shop Example</h1></header>
<main>
<h1>Widget Pro Cleansing Gel</h1>
<p>Price: $24.99 or C$32.99 &mdash; buy online and add to cart for free shipping on this product.</p>
<p>Widget Pro is a gentle daily cleansing gel from a trusted brand, made to remove impurities without stripping the skin of its natural moisture barrier.</p>
<p>How to use: Apply a small amount to damp skin morning and evening. Massage gently in circular motions. Rinse thoroughly with lukewarm water.</p>
<p>Ingredients: Water, Glycerin, Cocamidopropyl Betaine, Sodium Cocoyl Isethionate, Panthenol, Allantoin.</p>
<p>UPC: 036000291452</p>
</main>
<footer>Copyright Shop Example. All rights reserved.</footer>
<script>console.log("tracking");</script>
</body>
</html>`

func TestExtractProductPage(t *testing.T) {
	e := NewExtractor()

	rec, err := e.Extract(productPageHTML, "https://shop.example.com/widget-pro")
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/widget-pro", rec.SourceURL)
	assert.Equal(t, "Widget Pro Cleansing Gel | Shop Example", rec.Title)
	assert.Equal(t, "Widget Pro is a gentle daily cleansing gel for all skin types.", rec.MetaDescription)

	// Noise elements must not leak into the body text.
	assert.NotContains(t, rec.BodyText, "tracking")
	assert.NotContains(t, rec.BodyText, "All rights reserved")

	assert.Contains(t, rec.ShortDescription, "buy online")
	assert.NotEmpty(t, rec.LongDescription)

	assert.True(t, strings.HasPrefix(rec.HowToUse, "How to use"), "got %q", rec.HowToUse)
	assert.Contains(t, rec.HowToUse, "damp skin")
	assert.True(t, strings.HasPrefix(rec.Ingredients, "Ingredients"), "got %q", rec.Ingredients)
	assert.Contains(t, rec.Ingredients, "Glycerin")

	require.Len(t, rec.Prices, 2)
	assert.Equal(t, models.Price{Currency: models.CurrencyUSD, Value: 24.99}, rec.Prices[0])
	assert.Equal(t, models.Price{Currency: models.CurrencyCAD, Value: 32.99}, rec.Prices[1])

	assert.Equal(t, []string{"036000291452"}, rec.UPCCandidates)
}

func TestExtractBareDollarOnCanadianHost(t *testing.T) {
	e := NewExtractor()

	rec, err := e.Extract(productPageHTML, "https://shop.example.ca/widget-pro")
	require.NoError(t, err)

	require.NotEmpty(t, rec.Prices)
	assert.Equal(t, models.CurrencyCAD, rec.Prices[0].Currency)
}

func TestExtractRejectsShortPage(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract("<html><body><p>Not found.</p></body></html>", "https://shop.example.com/missing")

	require.Error(t, err)
	var rerr *models.ResearchError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, models.ErrCodeValidation, rerr.Code)
}

func TestExtractRejectsNonProductPage(t *testing.T) {
	e := NewExtractor()
	blog := `<html><head><title>My travel diary</title></head><body>
<p>Yesterday we hiked through the valley and watched the sun set over the ridge.
The trail was muddy after the rain but the views made every step worth it.
We camped by the river and listened to the water all night long.</p>
</body></html>`

	_, err := e.Extract(blog, "https://blog.example.com/travel")

	require.Error(t, err)
	var rerr *models.ResearchError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, models.ErrCodeValidation, rerr.Code)
}

func TestValidateProductPage(t *testing.T) {
	longBody := strings.Repeat("filler text ", 20)

	tests := []struct {
		name    string
		title   string
		body    string
		wantErr bool
	}{
		{
			name:  "two keyword hits pass",
			title: "Widget Pro",
			body:  longBody + " price and brand details",
		},
		{
			name:    "one keyword hit fails",
			title:   "Widget Pro",
			body:    longBody + " price only",
			wantErr: true,
		},
		{
			name:    "short body fails despite keywords",
			title:   "Widget",
			body:    "price buy product brand",
			wantErr: true,
		},
		{
			name:  "keywords matched case-insensitively",
			title: "BUY the best PRODUCT",
			body:  longBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateProductPage(tt.title, "", tt.body)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCaptureSection(t *testing.T) {
	t.Run("starts at earliest keyword", func(t *testing.T) {
		body := "Overview here. Directions: shake well before use. Ingredients: water and salt."
		got := captureSection(body, howToUseKeywords, 300)
		assert.True(t, strings.HasPrefix(got, "Directions"), "got %q", got)
	})

	t.Run("missing keywords yield empty", func(t *testing.T) {
		assert.Empty(t, captureSection("nothing relevant here", ingredientKeywords, 300))
	})

	t.Run("cuts long captures at a sentence boundary", func(t *testing.T) {
		body := "Ingredients: " + strings.Repeat("water, glycerin, panthenol. ", 40)
		got := captureSection(body, ingredientKeywords, 500)
		assert.LessOrEqual(t, len(got), 500)
		assert.True(t, strings.HasSuffix(got, "."), "got tail %q", got[len(got)-10:])
	})

	t.Run("short remainder returned whole", func(t *testing.T) {
		body := "Contains 2% salicylic acid"
		got := captureSection(body, ingredientKeywords, 500)
		assert.Equal(t, "Contains 2% salicylic acid", got)
	})
}

func TestTruncateAtWord(t *testing.T) {
	s := "alpha beta gamma delta"
	assert.Equal(t, s, truncateAtWord(s, 100))
	assert.Equal(t, "alpha beta", truncateAtWord(s, 12))
}

package prose

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productsense/research/config"
	"github.com/productsense/research/models"
)

func testRecord() *models.CanonicalRecord {
	return &models.CanonicalRecord{
		ProductName: "Widget Pro",
		Title:       "Widget Pro Cleansing Gel",
		Ingredients: "Water, Glycerin",
	}
}

func TestGenerateParsesListing(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Widget Pro")

		listing := `{"meta_title":"Widget Pro Cleansing Gel","meta_description":"Gentle daily gel.","short_description":"A gentle gel.","full_description":"Long copy.","how_to_use":"","ingredients":"Water, Glycerin"}`
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": listing}},
			},
			"usage": map[string]int{"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(srv.Client(), config.ProseConfig{
		BaseURL: srv.URL + "/v1",
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
	})

	listing, err := g.Generate(context.Background(), testRecord(), "## Widget Pro\nSome excerpt")

	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "Widget Pro Cleansing Gel", listing.MetaTitle)
	assert.Equal(t, "Water, Glycerin", listing.Ingredients)
}

func TestGenerateClassifiesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(srv.Client(), config.ProseConfig{BaseURL: srv.URL, APIKey: "wrong"})

	_, err := g.Generate(context.Background(), testRecord(), "")

	var rerr *models.ResearchError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, models.ErrCodeLLMAuthFailure, rerr.Code)
	assert.Contains(t, rerr.Message, "bad key")
}

func TestGenerateClassifiesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(srv.Client(), config.ProseConfig{BaseURL: srv.URL})

	_, err := g.Generate(context.Background(), testRecord(), "")

	var rerr *models.ResearchError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, models.ErrCodeLLMRateLimited, rerr.Code)
}

func TestGenerateRejectsInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "not json at all"}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(srv.Client(), config.ProseConfig{BaseURL: srv.URL})

	_, err := g.Generate(context.Background(), testRecord(), "")

	var rerr *models.ResearchError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, models.ErrCodeLLMFailure, rerr.Code)
}

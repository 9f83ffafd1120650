package prose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/productsense/research/config"
	"github.com/productsense/research/models"
)

// OpenAIGenerator calls any OpenAI-compatible chat completion endpoint
// over net/http.
type OpenAIGenerator struct {
	httpClient *http.Client
	cfg        config.ProseConfig
}

// NewOpenAIGenerator creates a generator. Pass nil to use a default client.
func NewOpenAIGenerator(httpClient *http.Client, cfg config.ProseConfig) *OpenAIGenerator {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIGenerator{httpClient: httpClient, cfg: cfg}
}

const systemPrompt = `You are an e-commerce copywriter. Write SEO listing copy for the product described by the JSON facts and page excerpt the user provides.

Return ONLY a JSON object with these fields:
- "meta_title": at most 60 characters
- "meta_description": at most 160 characters
- "short_description": 1-2 sentences
- "full_description": 2-4 paragraphs
- "how_to_use": usage directions, or "" if the facts contain none
- "ingredients": ingredient list, or "" if the facts contain none

Rules:
- Use only the provided facts. Never invent prices, UPC codes, ingredients or claims.
- No markdown fences or explanation, just the JSON object.`

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Generate phrases the record into listing copy.
func (g *OpenAIGenerator) Generate(ctx context.Context, record *models.CanonicalRecord, pageContext string) (*models.Listing, error) {
	facts, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	userContent := "Facts:\n" + string(facts)
	if pageContext != "" {
		userContent += "\n\nPage excerpt:\n" + pageContext
	}

	reqBody := chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature:    0.7,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, models.NewResearchError(models.ErrCodeLLMFailure, "prose request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewResearchError(models.ErrCodeLLMFailure, "failed to read prose response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewResearchError(models.ErrCodeLLMFailure, "failed to parse prose response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, models.NewResearchError(models.ErrCodeLLMFailure, "prose provider returned no choices", nil)
	}

	slog.Debug("prose generated",
		"model", g.cfg.Model,
		"prompt_tokens", chatResp.Usage.PromptTokens,
		"completion_tokens", chatResp.Usage.CompletionTokens,
	)

	var listing models.Listing
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &listing); err != nil {
		return nil, models.NewResearchError(models.ErrCodeLLMFailure, "prose provider returned invalid JSON", err)
	}
	return &listing, nil
}

// classifyError maps HTTP status codes to typed error codes.
func classifyError(statusCode int, body []byte) *models.ResearchError {
	var errResp chatErrorResponse
	msg := "prose API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.NewResearchError(models.ErrCodeLLMAuthFailure, msg, nil)
	case http.StatusTooManyRequests:
		return models.NewResearchError(models.ErrCodeLLMRateLimited, msg, nil)
	default:
		return models.NewResearchError(models.ErrCodeLLMFailure, fmt.Sprintf("prose API returned %d: %s", statusCode, msg), nil)
	}
}

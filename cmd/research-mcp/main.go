package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// researchRequest mirrors the research API request model. Keyword fields are
// comma-separated strings, matching the API.
type researchRequest struct {
	ProductName       string `json:"product_name"`
	PrimaryKeywords   string `json:"primary_keywords,omitempty"`
	SecondaryKeywords string `json:"secondary_keywords,omitempty"`
	MaxLinksPerQuery  int    `json:"max_links_per_query,omitempty"`
	UPCStrictness     string `json:"upc_strictness,omitempty"`
	TimeoutSec        int    `json:"timeout_sec,omitempty"`
}

// researchResponse mirrors the research API response model.
type researchResponse struct {
	Success  bool            `json:"success"`
	Record   json.RawMessage `json:"record"`
	Failures []struct {
		Stage  string `json:"stage"`
		Target string `json:"target"`
		Reason string `json:"reason"`
	} `json:"failures"`
	Timing *struct {
		TotalMs     int64 `json:"total_ms"`
		SearchingMs int64 `json:"searching_ms"`
		ScrapingMs  int64 `json:"scraping_ms"`
	} `json:"timing"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// jobResponse mirrors the async job creation response.
type jobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// jobStatusResponse mirrors the job polling response.
type jobStatusResponse struct {
	ID     string            `json:"id"`
	Status string            `json:"status"`
	Result *researchResponse `json:"result"`
}

// listingResponse mirrors the listing API response.
type listingResponse struct {
	Success bool            `json:"success"`
	Listing json.RawMessage `json:"listing"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("RESEARCH_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("RESEARCH_API_KEY")

	s := server.NewMCPServer(
		"research",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	researchTool := mcp.NewTool("research_product",
		mcp.WithDescription("Research a retail product across the web: searches multiple engines, scrapes candidate product pages, and returns one merged record with descriptions, USD/CAD price ranges, and UPC."),
		mcp.WithString("product_name",
			mcp.Required(),
			mcp.Description("The product name to research, e.g. 'CeraVe Foaming Facial Cleanser 473ml'"),
		),
		mcp.WithArray("primary_keywords",
			mcp.Description("Keywords appended to every search query (brand, size, variant)"),
		),
		mcp.WithArray("secondary_keywords",
			mcp.Description("Extra keywords for the first, broadest query only"),
		),
		mcp.WithString("upc_strictness",
			mcp.Description("UPC acceptance mode: 'checksum' (default, validates the check digit) or 'syntactic' (any 12-digit code)"),
			mcp.Enum("checksum", "syntactic"),
		),
	)
	s.AddTool(researchTool, handleResearchProduct(apiURL, apiKey))

	listingTool := mcp.NewTool("generate_listing",
		mcp.WithDescription("Generate SEO listing copy (meta title, descriptions, how-to-use, ingredients) from a canonical product record produced by research_product. Requires the server to have prose generation configured."),
		mcp.WithString("record",
			mcp.Required(),
			mcp.Description("The canonical product record as a JSON string"),
		),
		mcp.WithString("page_context",
			mcp.Description("Optional markdown excerpt from a scraped page to ground the copy"),
		),
	)
	s.AddTool(listingTool, handleGenerateListing(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the research API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollJob polls a job endpoint until status is no longer "processing" or the
// context is cancelled.
func pollJob(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) (*jobStatusResponse, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+endpoint, nil)
			if err != nil {
				return nil, fmt.Errorf("create poll request: %w", err)
			}
			if apiKey != "" {
				req.Header.Set("X-API-Key", apiKey)
			}

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read poll response: %w", err)
			}

			var status jobStatusResponse
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}

			if status.Status != "processing" {
				return &status, nil
			}
		}
	}
}

func handleResearchProduct(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		productName, err := request.RequireString("product_name")
		if err != nil {
			return mcp.NewToolResultError("product_name is required"), nil
		}

		reqBody := researchRequest{
			ProductName:   productName,
			UPCStrictness: request.GetString("upc_strictness", ""),
		}
		if kws, err := request.RequireStringSlice("primary_keywords"); err == nil {
			reqBody.PrimaryKeywords = strings.Join(kws, ", ")
		}
		if kws, err := request.RequireStringSlice("secondary_keywords"); err == nil {
			reqBody.SecondaryKeywords = strings.Join(kws, ", ")
		}

		// A full research run can take minutes; create an async job and poll.
		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/research/jobs", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("research request failed: %v", err)), nil
		}

		var job jobResponse
		if err := json.Unmarshal(respBody, &job); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse job response: %v", err)), nil
		}
		if job.ID == "" {
			return mcp.NewToolResultError("research job creation failed: " + string(respBody)), nil
		}

		status, err := pollJob(ctx, client, apiURL, apiKey, "/api/v1/research/jobs/"+job.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling research job failed: %v", err)), nil
		}

		result := status.Result
		if result == nil {
			return mcp.NewToolResultError(fmt.Sprintf("research job %s: %s with no result", job.ID, status.Status)), nil
		}
		if !result.Success {
			errMsg := "research failed"
			if result.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", result.Error.Code, result.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, result.Record, "", "  "); err != nil {
			pretty.Write(result.Record)
		}

		var sb strings.Builder
		sb.WriteString(pretty.String())
		if len(result.Failures) > 0 {
			sb.WriteString("\n\nSkipped sources:\n")
			for _, f := range result.Failures {
				sb.WriteString(fmt.Sprintf("- [%s] %s: %s\n", f.Stage, f.Target, f.Reason))
			}
		}
		if result.Timing != nil {
			sb.WriteString(fmt.Sprintf("\nTook %.1fs (search %.1fs, scrape %.1fs)",
				float64(result.Timing.TotalMs)/1000,
				float64(result.Timing.SearchingMs)/1000,
				float64(result.Timing.ScrapingMs)/1000))
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleGenerateListing(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		recordStr, err := request.RequireString("record")
		if err != nil {
			return mcp.NewToolResultError("record is required"), nil
		}

		var record json.RawMessage
		if err := json.Unmarshal([]byte(recordStr), &record); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("record must be valid JSON: %v", err)), nil
		}

		payload := map[string]interface{}{
			"record": record,
		}
		if pc := request.GetString("page_context", ""); pc != "" {
			payload["page_context"] = pc
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/listing", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing request failed: %v", err)), nil
		}

		var listResp listingResponse
		if err := json.Unmarshal(respBody, &listResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse listing response: %v", err)), nil
		}

		if !listResp.Success {
			errMsg := "listing generation failed"
			if listResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", listResp.Error.Code, listResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, listResp.Listing, "", "  "); err != nil {
			pretty.Write(listResp.Listing)
		}

		return mcp.NewToolResultText(pretty.String()), nil
	}
}

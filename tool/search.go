package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SearchOptions configure the web search tool.
type SearchOptions struct {
	HTTPClient *http.Client
	BaseURL    string
	MaxResults int
}

// SearchTool answers web queries through the DuckDuckGo instant answer API.
// No API key is required.
type SearchTool struct {
	client     *http.Client
	baseURL    string
	maxResults int
}

// NewSearchTool creates the web_search capability.
func NewSearchTool(optFns ...func(o *SearchOptions)) *SearchTool {
	opts := SearchOptions{
		BaseURL:    "https://api.duckduckgo.com",
		MaxResults: 5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &SearchTool{
		client:     opts.HTTPClient,
		baseURL:    opts.BaseURL,
		maxResults: opts.MaxResults,
	}
}

// Name implements Tool.
func (t *SearchTool) Name() string { return "web_search" }

// Description implements Tool.
func (t *SearchTool) Description() string {
	return "Search the web for current information. Use this when the answer depends on recent events or facts you are unsure about."
}

// Parameters implements Tool.
func (t *SearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query",
			},
		},
		"required": []string{"query"},
	}
}

type ddgResponse struct {
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	Answer        string `json:"Answer"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Call implements Tool.
func (t *SearchTool) Call(ctx context.Context, args map[string]any) (any, error) {
	query := StringArg(args, "query")
	if query == "" {
		return nil, NewToolError(t.Name(), "missing required argument \"query\"", "VALIDATION_ERROR")
	}

	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		t.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewToolError(t.Name(),
			fmt.Sprintf("search returned status %d", resp.StatusCode), "EXECUTION_ERROR")
	}

	var parsed ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}

	var b strings.Builder
	if parsed.Answer != "" {
		fmt.Fprintf(&b, "Answer: %s\n", parsed.Answer)
	}
	if parsed.AbstractText != "" {
		fmt.Fprintf(&b, "%s (%s)\n", parsed.AbstractText, parsed.AbstractURL)
	}
	count := 0
	for _, topic := range parsed.RelatedTopics {
		if topic.Text == "" || count >= t.maxResults {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s)\n", topic.Text, topic.FirstURL)
		count++
	}
	if b.Len() == 0 {
		return fmt.Sprintf("No results found for %q.", query), nil
	}
	return b.String(), nil
}

package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// YouTubeOptions configure the YouTube metadata tool.
type YouTubeOptions struct {
	HTTPClient *http.Client
	BaseURL    string
}

// YouTubeTool fetches video metadata through the public oEmbed endpoint, so
// agents can talk about a linked video without an API key.
type YouTubeTool struct {
	client  *http.Client
	baseURL string
}

// NewYouTubeTool creates the youtube capability.
func NewYouTubeTool(optFns ...func(o *YouTubeOptions)) *YouTubeTool {
	opts := YouTubeOptions{BaseURL: "https://www.youtube.com"}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &YouTubeTool{client: opts.HTTPClient, baseURL: opts.BaseURL}
}

// Name implements Tool.
func (t *YouTubeTool) Name() string { return "youtube" }

// Description implements Tool.
func (t *YouTubeTool) Description() string {
	return "Look up metadata (title, channel, thumbnail) for a YouTube video URL."
}

// Parameters implements Tool.
func (t *YouTubeTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Full YouTube video URL",
			},
		},
		"required": []string{"url"},
	}
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Call implements Tool.
func (t *YouTubeTool) Call(ctx context.Context, args map[string]any) (any, error) {
	videoURL := StringArg(args, "url")
	if videoURL == "" {
		return nil, NewToolError(t.Name(), "missing required argument \"url\"", "VALIDATION_ERROR")
	}

	endpoint := fmt.Sprintf("%s/oembed?url=%s&format=json", t.baseURL, url.QueryEscape(videoURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Sprintf("No video found at %s.", videoURL), nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewToolError(t.Name(),
			fmt.Sprintf("oembed returned status %d", resp.StatusCode), "EXECUTION_ERROR")
	}

	var parsed oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}

	return fmt.Sprintf("Title: %s\nChannel: %s (%s)\nThumbnail: %s",
		parsed.Title, parsed.AuthorName, parsed.AuthorURL, parsed.ThumbnailURL), nil
}

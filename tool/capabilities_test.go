package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personahub/model"
	"personahub/objectstore"
	"personahub/store"
)

func TestSearchToolFormatsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "go language", r.URL.Query().Get("q"))
		w.Write([]byte(`{
			"AbstractText": "Go is a programming language.",
			"AbstractURL": "https://go.dev",
			"RelatedTopics": [
				{"Text": "Go tooling", "FirstURL": "https://go.dev/tools"},
				{"Text": "", "FirstURL": "https://skip.me"}
			]
		}`))
	}))
	defer srv.Close()

	tl := NewSearchTool(func(o *SearchOptions) { o.BaseURL = srv.URL })

	out, err := tl.Call(context.Background(), map[string]any{"query": "go language"})
	require.NoError(t, err)

	text := out.(string)
	assert.Contains(t, text, "Go is a programming language.")
	assert.Contains(t, text, "Go tooling")
	assert.NotContains(t, text, "skip.me")
}

func TestSearchToolNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	tl := NewSearchTool(func(o *SearchOptions) { o.BaseURL = srv.URL })

	out, err := tl.Call(context.Background(), map[string]any{"query": "obscure"})
	require.NoError(t, err)
	assert.Contains(t, out.(string), "No results found")
}

func TestSearchToolMissingQuery(t *testing.T) {
	tl := NewSearchTool()

	_, err := tl.Call(context.Background(), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestYouTubeToolMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oembed", r.URL.Path)
		w.Write([]byte(`{
			"title": "A Video",
			"author_name": "A Channel",
			"author_url": "https://youtube.com/@achannel",
			"thumbnail_url": "https://img.example/t.jpg"
		}`))
	}))
	defer srv.Close()

	tl := NewYouTubeTool(func(o *YouTubeOptions) { o.BaseURL = srv.URL })

	out, err := tl.Call(context.Background(), map[string]any{"url": "https://youtube.com/watch?v=x"})
	require.NoError(t, err)

	text := out.(string)
	assert.Contains(t, text, "Title: A Video")
	assert.Contains(t, text, "Channel: A Channel")
}

func TestYouTubeToolNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tl := NewYouTubeTool(func(o *YouTubeOptions) { o.BaseURL = srv.URL })

	out, err := tl.Call(context.Background(), map[string]any{"url": "https://youtube.com/watch?v=gone"})
	require.NoError(t, err)
	assert.Contains(t, out.(string), "No video found")
}

func fileProcFixture(t *testing.T) (*FileProcessorTool, *store.Store, *objectstore.MemoryStore) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "files.db"))
	require.NoError(t, err)

	objects := objectstore.NewMemory()
	backend := model.NewMockBackend("m", "mock")

	return NewFileProcessorTool(st, objects, backend), st, objects
}

func TestFileProcessorTextFile(t *testing.T) {
	tl, st, objects := fileProcFixture(t)
	ctx := context.Background()

	require.NoError(t, objects.Put(ctx, "u1/notes.txt", strings.NewReader("meeting at noon"), 15, "text/plain"))

	f := &store.File{UserID: 1, Filename: "notes.txt", ObjectKey: "u1/notes.txt", ContentType: "text/plain"}
	require.NoError(t, st.CreateFile(f))

	out, err := tl.Call(ctx, map[string]any{"file_id": float64(f.ID)})
	require.NoError(t, err)

	text := out.(string)
	assert.Contains(t, text, `File "notes.txt"`)
	assert.Contains(t, text, "meeting at noon")
}

func TestFileProcessorImageUsesVisionPath(t *testing.T) {
	tl, st, objects := fileProcFixture(t)
	ctx := context.Background()

	require.NoError(t, objects.Put(ctx, "u1/pic.png", strings.NewReader("not-really-png"), 14, "image/png"))

	f := &store.File{UserID: 1, Filename: "pic.png", ObjectKey: "u1/pic.png", ContentType: "image/png"}
	require.NoError(t, st.CreateFile(f))

	out, err := tl.Call(ctx, map[string]any{"file_id": float64(f.ID), "question": "what is this"})
	require.NoError(t, err)

	// The mock backend echoes the presigned URL it was handed.
	assert.Contains(t, out.(string), "memory://u1/pic.png")
}

func TestFileProcessorUnknownFile(t *testing.T) {
	tl, _, _ := fileProcFixture(t)

	_, err := tl.Call(context.Background(), map[string]any{"file_id": float64(999)})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "NOT_FOUND", toolErr.Code)
}

func TestMailToolValidation(t *testing.T) {
	tl := NewMailTool(context.Background(), MailOptions{
		ClientID: "id", ClientSecret: "secret", RefreshToken: "r", From: "me@example.com",
	})

	_, err := tl.Call(context.Background(), map[string]any{"to": "you@example.com"})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestMailToolSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/" || r.URL.Path == "":
			assert.Equal(t, "from:alice", r.URL.Query().Get("q"))
			w.Write([]byte(`{"messages": [{"id": "m1"}]}`))
		case strings.HasSuffix(r.URL.Path, "/m1"):
			w.Write([]byte(`{
				"snippet": "lunch tomorrow?",
				"payload": {"headers": [
					{"name": "Subject", "value": "Lunch"},
					{"name": "From", "value": "alice@example.com"},
					{"name": "Date", "value": "Mon, 24 Aug 2026 10:00:00 +0530"}
				]}
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tl := NewMailTool(context.Background(), MailOptions{
		ClientID: "id", ClientSecret: "secret", RefreshToken: "r",
		From: "me@example.com", BaseURL: srv.URL, HTTPClient: srv.Client(),
	})

	out, err := tl.Call(context.Background(), map[string]any{
		"action": "search", "query": "from:alice",
	})
	require.NoError(t, err)

	text := out.(string)
	assert.Contains(t, text, "Lunch")
	assert.Contains(t, text, "alice@example.com")
	assert.Contains(t, text, "lunch tomorrow?")
}

func TestMailToolSearchRequiresQuery(t *testing.T) {
	tl := NewMailTool(context.Background(), MailOptions{ClientID: "id", ClientSecret: "secret"})

	_, err := tl.Call(context.Background(), map[string]any{"action": "search"})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestMailToolUnknownAction(t *testing.T) {
	tl := NewMailTool(context.Background(), MailOptions{ClientID: "id", ClientSecret: "secret"})

	_, err := tl.Call(context.Background(), map[string]any{"action": "archive"})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

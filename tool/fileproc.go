package tool

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"personahub/model"
	"personahub/objectstore"
	"personahub/store"
)

const (
	// maxTextBytes caps how much of a text file is handed back to the model.
	maxTextBytes = 64 * 1024

	// presignExpiry is how long the image URL given to the vision model
	// stays valid.
	presignExpiry = 15 * time.Minute
)

// FileProcessorTool resolves an uploaded file id to its content. Text files
// are read from the object store directly; images are routed through the
// model backend's vision path via a presigned URL.
type FileProcessorTool struct {
	store   *store.Store
	objects objectstore.Store
	backend model.Backend
}

// NewFileProcessorTool creates the process_file capability bound to the
// invoking agent's model backend.
func NewFileProcessorTool(s *store.Store, objects objectstore.Store, backend model.Backend) *FileProcessorTool {
	return &FileProcessorTool{store: s, objects: objects, backend: backend}
}

// Name implements Tool.
func (t *FileProcessorTool) Name() string { return "process_file" }

// Description implements Tool.
func (t *FileProcessorTool) Description() string {
	return "Read and analyze an uploaded file by its numeric file ID. Handles text documents and images."
}

// Parameters implements Tool.
func (t *FileProcessorTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_id": map[string]any{
				"type":        "integer",
				"description": "Numeric ID of the uploaded file",
			},
			"question": map[string]any{
				"type":        "string",
				"description": "Optional question to answer about the file content",
			},
		},
		"required": []string{"file_id"},
	}
}

// Call implements Tool.
func (t *FileProcessorTool) Call(ctx context.Context, args map[string]any) (any, error) {
	fileID, ok := UintArg(args, "file_id")
	if !ok {
		return nil, NewToolError(t.Name(), "missing or invalid \"file_id\"", "VALIDATION_ERROR")
	}
	question := StringArg(args, "question")

	f, err := t.store.GetFile(fileID)
	if err != nil {
		return nil, NewToolError(t.Name(),
			fmt.Sprintf("file %d not found", fileID), "NOT_FOUND")
	}

	if strings.HasPrefix(f.ContentType, "image/") {
		return t.processImage(ctx, f, question)
	}
	return t.processText(ctx, f, question)
}

func (t *FileProcessorTool) processImage(ctx context.Context, f *store.File, question string) (any, error) {
	imageURL, err := t.objects.PresignedGetURL(ctx, f.ObjectKey, presignExpiry)
	if err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}

	prompt := question
	if prompt == "" {
		prompt = fmt.Sprintf("Describe the content of the image %q in detail.", f.Filename)
	}

	text, err := t.backend.ExtractText(ctx, prompt, imageURL)
	if err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}
	return text, nil
}

func (t *FileProcessorTool) processText(ctx context.Context, f *store.File, question string) (any, error) {
	r, err := t.objects.Get(ctx, f.ObjectKey)
	if err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxTextBytes))
	if err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}

	content := string(data)
	if int64(len(data)) == maxTextBytes {
		content += "\n[content truncated]"
	}

	if question != "" {
		return fmt.Sprintf("File %q (%s):\n%s\n\nQuestion: %s",
			f.Filename, f.ContentType, content, question), nil
	}
	return fmt.Sprintf("File %q (%s):\n%s", f.Filename, f.ContentType, content), nil
}

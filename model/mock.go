package model

import (
	"context"
	"fmt"
	"sync"
)

// MockBackend is a lightweight in-memory Backend useful for tests.
// Responses are canned per input prompt; unmatched prompts get a generic
// echo. It records every request it sees for assertion.
type MockBackend struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	err       error
	requests  []Request
}

// NewMockBackend constructs a MockBackend with basic tool support enabled.
func NewMockBackend(name, provider string) *MockBackend {
	return &MockBackend{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockBackend) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// FailWith makes every subsequent Complete call return err.
func (m *MockBackend) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Requests returns a snapshot of all requests seen so far.
func (m *MockBackend) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Complete implements Backend; returns the canned response for the last
// user message, or an echo when none is registered.
func (m *MockBackend) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.err != nil {
		return nil, m.err
	}

	var inputText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			inputText = req.Messages[i].Content
			break
		}
	}

	full, ok := m.responses[inputText]
	if !ok {
		full = fmt.Sprintf("Mock response to: %s", inputText)
	}

	return &Response{Content: full, FinishReason: "stop"}, nil
}

// ExtractText implements Backend with a deterministic placeholder.
func (m *MockBackend) ExtractText(ctx context.Context, prompt, imageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("Mock extraction for: %s", imageURL), nil
}

// Info implements Backend.
func (m *MockBackend) Info() Info { return m.info }

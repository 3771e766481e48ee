// Package model defines the uniform interface persona agents use to talk to
// LLM providers, plus the provider registry that maps the closed set of
// backend names to concrete adapters.
package model

import "context"

// Message is one normalized conversation turn handed to a provider.
type Message struct {
	Role       string     `json:"role"` // "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant turns requesting tool execution
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool turns answering a specific call
}

// ToolCall represents a function call request surfaced by a provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input for one completion call.
type Request struct {
	Instructions string           `json:"instructions"` // system prompt
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completed provider output for a Request.
type Response struct {
	Content      string      `json:"content"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a backend implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic"
	SupportsTools bool   `json:"supports_tools"`
}

// Backend is the minimal interface required to drive generation.
//
// Complete is synchronous: the chat pipeline invokes teams to completion and
// simulates streaming by re-emission, so a channel-based API would be unused
// generality. ExtractText is the direct multimodal path the file-processing
// capability uses for images.
type Backend interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	ExtractText(ctx context.Context, prompt, imageURL string) (string, error)

	// Info returns information about the backend implementation.
	Info() Info
}

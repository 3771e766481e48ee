// Package openai adapts the OpenAI Chat Completions API (including function
// calling and the direct multimodal path) to the generic model.Backend
// interface.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"personahub/model"
)

// Options configure the OpenAI backend adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
}

// Backend wraps the OpenAI Chat Completions API behind model.Backend.
type Backend struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI backend using the official client.
func New(optFns ...func(o *Options)) *Backend {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &Backend{client: &client, opts: opts}
}

// NewFromClient creates a new OpenAI backend from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Backend {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Backend{client: client, opts: opts}
}

// Factory returns a model.Factory producing backends bound to a model id,
// with the API key captured from configuration at construction time.
func Factory(apiKey string) model.Factory {
	return func(modelID string) model.Backend {
		return New(func(o *Options) {
			o.APIKey = apiKey
			if modelID != "" {
				o.Model = modelID
			}
		})
	}
}

// Complete implements model.Backend using a non-streaming chat completion.
func (b *Backend) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	params := b.buildParams(req, buildMessages(req))

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	ch0 := resp.Choices[0]
	out := &model.Response{
		Content:      ch0.Message.Content,
		FinishReason: ch0.FinishReason,
	}
	for _, tc := range ch0.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if resp.Usage.TotalTokens > 0 {
		out.Usage = &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		}
	}

	return out, nil
}

// ExtractText implements the direct multimodal completion used for image
// content: one user turn combining the instruction text and the image.
func (b *Backend) ExtractText(ctx context.Context, prompt, imageURL string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:               b.opts.Model,
		MaxCompletionTokens: openai.Int(b.opts.MaxCompletionTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageURL}),
			}),
		},
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// buildMessages converts normalized messages into OpenAI chat messages,
// keeping tool responses adjacent to the assistant turns that requested them.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			if len(m.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(m.Content))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				},
			})
		case "tool":
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			if m.Content != "" {
				messages = append(messages, openai.UserMessage(m.Content))
			}
		}
	}
	return messages
}

// buildParams assembles the request parameters including tool definitions.
func (b *Backend) buildParams(
	req model.Request,
	messages []openai.ChatCompletionMessageParamUnion,
) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               b.opts.Model,
		Temperature:         openai.Float(b.opts.Temperature),
		MaxCompletionTokens: openai.Int(b.opts.MaxCompletionTokens),
	}
	if req.Instructions != "" {
		params.Messages = append(
			[]openai.ChatCompletionMessageParamUnion{openai.SystemMessage(req.Instructions)},
			params.Messages...,
		)
	}
	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Name,
				Description: openai.String(tdef.Description),
				Parameters:  tdef.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

// ListModels returns a model.Lister that fetches the chat-capable model list
// from the OpenAI API.
func ListModels(apiKey string) model.Lister {
	chatFamilies := []string{"gpt-4o", "gpt-4-turbo", "gpt-3.5-turbo"}

	return func(ctx context.Context) ([]model.CatalogEntry, error) {
		var clientOpts []option.RequestOption
		if apiKey != "" {
			clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
		}
		client := openai.NewClient(clientOpts...)

		page, err := client.Models.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("openai model list: %w", err)
		}

		var entries []model.CatalogEntry
		for _, m := range page.Data {
			for _, family := range chatFamilies {
				if strings.Contains(m.ID, family) {
					entries = append(entries, model.CatalogEntry{
						ID:        m.ID,
						Name:      m.ID,
						Provider:  "openai",
						Available: true,
					})
					break
				}
			}
		}
		return entries, nil
	}
}

// Info returns metadata describing this OpenAI backend.
func (b *Backend) Info() model.Info {
	return model.Info{
		Name:          b.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}

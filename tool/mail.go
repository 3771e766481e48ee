package tool

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// gmailMessagesURL is the Gmail REST messages collection for the
// authenticated user. Send posts to <base>/send, search lists the
// collection with a query, and message details come from <base>/<id>.
const gmailMessagesURL = "https://gmail.googleapis.com/gmail/v1/users/me/messages"

const defaultSearchResults = 10

// MailOptions configure the mail tool's OAuth credentials.
type MailOptions struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	From         string
	BaseURL      string
	HTTPClient   *http.Client
}

// MailTool sends and searches email through the Gmail API using OAuth2
// credentials.
//
// Each instance owns its oauth2.TokenSource, which caches and refreshes the
// access token. That cached token is per-run state, which is why the tool
// registry hands out a fresh instance per resolution.
type MailTool struct {
	source  oauth2.TokenSource
	from    string
	baseURL string
	client  *http.Client
}

// NewMailTool creates the mail capability from stored OAuth credentials.
func NewMailTool(ctx context.Context, opts MailOptions) *MailTool {
	conf := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			"https://www.googleapis.com/auth/gmail.readonly",
			"https://www.googleapis.com/auth/gmail.send",
		},
	}
	token := &oauth2.Token{RefreshToken: opts.RefreshToken}
	source := conf.TokenSource(ctx, token)

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = gmailMessagesURL
	}

	client := opts.HTTPClient
	if client == nil {
		client = oauth2.NewClient(ctx, source)
	}

	return &MailTool{
		source:  source,
		from:    opts.From,
		baseURL: baseURL,
		client:  client,
	}
}

// Name implements Tool.
func (t *MailTool) Name() string { return "mail" }

// Description implements Tool.
func (t *MailTool) Description() string {
	return "Send or search email on behalf of the user. Use action \"send\" with recipient, subject and body, or action \"search\" with a Gmail query."
}

// Parameters implements Tool.
func (t *MailTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"enum":        []string{"send", "search"},
				"description": "Operation to perform, defaults to send",
			},
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient email address (send)",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Email subject line (send)",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Plain text email body (send)",
			},
			"query": map[string]any{
				"type":        "string",
				"description": "Gmail search query, e.g. \"from:alice is:unread\" (search)",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum messages to return (search)",
			},
		},
		"required": []string{},
	}
}

// Call implements Tool.
func (t *MailTool) Call(ctx context.Context, args map[string]any) (any, error) {
	switch action := StringArg(args, "action"); action {
	case "", "send":
		return t.send(ctx, args)
	case "search":
		return t.search(ctx, args)
	default:
		return nil, NewToolError(t.Name(), fmt.Sprintf("unknown action %q", action), "VALIDATION_ERROR")
	}
}

func (t *MailTool) send(ctx context.Context, args map[string]any) (any, error) {
	to := StringArg(args, "to")
	subject := StringArg(args, "subject")
	body := StringArg(args, "body")
	if to == "" || subject == "" || body == "" {
		return nil, NewToolError(t.Name(), "to, subject and body are required", "VALIDATION_ERROR")
	}

	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		t.from, to, subject, body)

	payload, err := json.Marshal(map[string]string{
		"raw": base64.URLEncoding.EncodeToString([]byte(raw)),
	})
	if err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewToolError(t.Name(),
			fmt.Sprintf("gmail send returned status %d", resp.StatusCode), "EXECUTION_ERROR")
	}

	return fmt.Sprintf("Email sent to %s.", to), nil
}

type gmailList struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type gmailMessage struct {
	Snippet string `json:"snippet"`
	Payload struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
	} `json:"payload"`
}

func (m gmailMessage) header(name string) string {
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func (t *MailTool) search(ctx context.Context, args map[string]any) (any, error) {
	query := StringArg(args, "query")
	if query == "" {
		return nil, NewToolError(t.Name(), "query is required for search", "VALIDATION_ERROR")
	}
	max, ok := UintArg(args, "max_results")
	if !ok || max == 0 {
		max = defaultSearchResults
	}

	endpoint := fmt.Sprintf("%s?q=%s&maxResults=%d", t.baseURL, url.QueryEscape(query), max)
	var listed gmailList
	if err := t.getJSON(ctx, endpoint, &listed); err != nil {
		return nil, err
	}
	if len(listed.Messages) == 0 {
		return fmt.Sprintf("No emails found for %q.", query), nil
	}

	var b strings.Builder
	for _, ref := range listed.Messages {
		var msg gmailMessage
		if err := t.getJSON(ctx, t.baseURL+"/"+ref.ID, &msg); err != nil {
			continue
		}
		fmt.Fprintf(&b, "- %s, from %s (%s)\n  %s\n",
			msg.header("Subject"), msg.header("From"), msg.header("Date"), msg.Snippet)
	}
	if b.Len() == 0 {
		return fmt.Sprintf("No emails found for %q.", query), nil
	}
	return b.String(), nil
}

func (t *MailTool) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NewToolError(t.Name(),
			fmt.Sprintf("gmail returned status %d", resp.StatusCode), "EXECUTION_ERROR")
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

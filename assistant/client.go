// Package assistant implements the repochat.Backend transport for the
// assistant service: a multipart form request answered with a chunked
// newline-delimited JSON event stream.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"repochat"
)

const (
	defaultBaseURL = "https://api.repochat.dev"
	streamPath     = "/api/chat/stream"
	chatsPath      = "/api/chats"
)

// Interface compliance check.
var _ repochat.Backend = (*Client)(nil)

// Client issues requests to the assistant service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the service base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger used for skipped records and other
// non-surfaced conditions. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new assistant [Client].
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Send issues the outbound turn request and returns the live event stream.
// Opening failures surface as errors equivalent to a terminal server_error
// record; the recovery policy treats them identically.
func (c *Client) Send(ctx context.Context, req repochat.Request) (repochat.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}

	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+streamPath, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return newStream(resp.Body, c.logger), nil
}

// encodeForm builds the multipart form body. Optional zero-valued fields are
// omitted entirely rather than sent empty.
func encodeForm(req repochat.Request) (string, string, error) {
	var buf strings.Builder
	w := multipart.NewWriter(&buf)

	fields := []struct {
		name  string
		value string
	}{
		{"token", req.Token},
		{"message", req.Message},
		{"repository_id", req.RepositoryID},
		{"chat_id", req.ChatID},
		{"conversation_id", req.ConversationID},
		{"provider", req.Provider},
		{"model", req.Model},
		{"context_mode", string(req.ContextMode)},
		{"repository_branch", req.RepositoryBranch},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return "", "", err
		}
	}
	if req.Temperature != nil {
		if err := w.WriteField("temperature", strconv.FormatFloat(*req.Temperature, 'g', -1, 64)); err != nil {
			return "", "", err
		}
	}
	if req.MaxTokens > 0 {
		if err := w.WriteField("max_tokens", strconv.Itoa(req.MaxTokens)); err != nil {
			return "", "", err
		}
	}

	if err := w.Close(); err != nil {
		return "", "", err
	}
	return buf.String(), w.FormDataContentType(), nil
}

// ListChats fetches the chat history listing for a repository. The listing
// is read-only with respect to any live transcript.
func (c *Client) ListChats(ctx context.Context, token, repositoryID string) ([]repochat.ChatSummary, error) {
	u := c.baseURL + chatsPath + "?" + url.Values{"repository_id": {repositoryID}}.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp)
	}

	var payload struct {
		Chats []struct {
			ID        string    `json:"id"`
			Title     string    `json:"title"`
			UpdatedAt time.Time `json:"updated_at"`
		} `json:"chats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("assistant: decode chat listing: %w", err)
	}

	chats := make([]repochat.ChatSummary, len(payload.Chats))
	for i, ch := range payload.Chats {
		chats[i] = repochat.ChatSummary{ID: ch.ID, Title: ch.Title, UpdatedAt: ch.UpdatedAt}
	}
	return chats, nil
}

// parseHTTPError maps a non-200 response to an AssistError so the policy
// sees the server's own classification when one was sent.
func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &repochat.AssistError{
			Message: fmt.Sprintf("HTTP %d (failed to read body: %v)", resp.StatusCode, err),
			Type:    repochat.ErrorTypeServer,
		}
	}
	var apiErr struct {
		Error     string `json:"error"`
		ErrorType string `json:"error_type"`
	}
	if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Error != "" {
		return &repochat.AssistError{Message: apiErr.Error, Type: mapErrorType(apiErr.ErrorType)}
	}
	return &repochat.AssistError{
		Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		Type:    repochat.ErrorTypeServer,
	}
}

// mapErrorType keeps known classifiers and folds everything else into
// server_error.
func mapErrorType(raw string) repochat.ErrorType {
	switch repochat.ErrorType(raw) {
	case repochat.ErrorTypeNoAPIKey:
		return repochat.ErrorTypeNoAPIKey
	case repochat.ErrorTypeInvalidAPIKey:
		return repochat.ErrorTypeInvalidAPIKey
	default:
		return repochat.ErrorTypeServer
	}
}

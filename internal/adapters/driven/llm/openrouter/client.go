// Package openrouter provides a chat-completion client for OpenRouter and
// other OpenAI-compatible endpoints.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/postdigest/internal/core/domain"
	"github.com/custodia-labs/postdigest/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.ChatCompleter = (*Client)(nil)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// Config holds configuration for the client.
type Config struct {
	// APIKey is the bearer token (required).
	APIKey string

	// BaseURL is the API root (default: https://openrouter.ai/api/v1).
	BaseURL string

	// Timeout bounds each request (default: 30s).
	Timeout time.Duration

	// Referer and Title are sent as the HTTP-Referer and X-Title
	// attribution headers when set.
	Referer string
	Title   string
}

// Client sends single chat-completion requests.
type Client struct {
	client    *http.Client
	transport *http.Transport
	baseURL   string
	timeout   time.Duration
	referer   string
	title     string
}

// chatCompletionRequest is the /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
}

// chatCompletionMsg is the chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// NewClient creates a client. The API key is injected into every request by
// an oauth2 static token source.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter: %w", domain.ErrAPIKeyMissing)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = domain.DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = domain.DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	base := &http.Client{Transport: transport}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.APIKey},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = cfg.Timeout

	return &Client{
		client:    tc,
		transport: transport,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		timeout:   cfg.Timeout,
		referer:   cfg.Referer,
		title:     cfg.Title,
	}, nil
}

// Complete sends one request and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req driven.ChatRequest) (string, error) {
	messages := make([]chatCompletionMsg, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = chatCompletionMsg{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	jsonBody, err := json.Marshal(chatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		httpReq.Header.Set("X-Title", c.title)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: %s after %s", domain.ErrUpstreamTimeout, req.Model, c.timeout)
		}
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(err) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: %s reading response", domain.ErrUpstreamTimeout, req.Model)
		}
		return "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", domain.ErrModelUnavailable, req.Model)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: %s returned %d: %s",
			domain.ErrUpstreamStatus, req.Model, resp.StatusCode, snippet(body))
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: %s: %s", domain.ErrUpstreamStatus, req.Model, chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrEmptyCompletion, req.Model)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

// isTimeout reports whether err is a deadline or network timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// snippet shortens an error body for messages.
func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

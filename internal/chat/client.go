// Package chat talks to an OpenAI-compatible completion API on behalf of
// the site owner's persona and keeps per-visitor conversation state.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"portfolio/internal/config"
	appLog "portfolio/internal/log"
	"portfolio/internal/model"
)

const (
	DefaultTimeout = 60 * time.Second

	// maxResponseSize caps how much of a completion body is read.
	maxResponseSize = 4 << 20
)

var ErrNotConfigured = errors.New("chat: api key not configured")

// Completer produces the assistant's next reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, history []model.ChatMessage) (string, error)
}

// APIError is a non-2xx answer from the completion API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("chat api error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("chat api error (HTTP %d): %s", e.Status, e.Message)
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

func (r *completionResponse) content() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client sends one /chat/completions request per turn. There is no retry
// and no streaming.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	system      string
	httpClient  *http.Client
}

// NewClient builds a client from cfg. systemPrompt is prepended to every
// conversation.
func NewClient(cfg config.ChatConfig, systemPrompt string) *Client {
	timeout := DefaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		system:      systemPrompt,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) IsConfigured() bool { return c.apiKey != "" }

// Complete implements Completer.
func (c *Client) Complete(ctx context.Context, history []model.ChatMessage) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	msgs := make([]wireMessage, 0, len(history)+1)
	if c.system != "" {
		msgs = append(msgs, wireMessage{Role: string(model.RoleSystem), Content: c.system})
	}
	for _, m := range history {
		// the persona prompt is ours; never forward one from the client side
		if m.Role == model.RoleSystem {
			continue
		}
		msgs = append(msgs, wireMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "portfolio/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: request: %w", err)
	}
	defer resp.Body.Close()
	appLog.Debug("chat completion", "status", resp.StatusCode, "took", time.Since(start).Round(time.Millisecond))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("chat: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var er apiErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Error.Message != "" {
			apiErr.Code = er.Error.Code
			apiErr.Message = er.Error.Message
		}
		return "", apiErr
	}

	var out completionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("chat: decode response: %w", err)
	}
	reply := strings.TrimSpace(out.content())
	if reply == "" {
		return "", errors.New("chat: empty completion")
	}
	return reply, nil
}

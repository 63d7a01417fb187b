// Package inference is the HTTP client for the model server that answers chat questions.
//
// The model server exposes one endpoint:
//
//	POST {baseURL}/generate   {"question": "...", "max_length": 256}
//	200                       {"answer": "..."}
//
// Everything about generation (model weights, sampling parameters) is the server's business.
package inference

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
)

const (
	defaultTimeout          = 60 * time.Second
	generatePath            = "/generate"
	errorBodyReadLimit int64 = 1024
)

var errBaseURLRequired = errors.New("inference: base URL is required")

// ErrEmptyAnswer is returned when the server replies 200 with no answer text.
var ErrEmptyAnswer = errors.New("inference: server returned an empty answer")

// Client calls the model server.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds each generate call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient builds a client for the model server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type generateRequest struct {
	Question  string `json:"question"`
	MaxLength int    `json:"max_length"`
}

type generateResponse struct {
	Answer string `json:"answer"`
}

// Generate asks the model server to answer question in at most maxLength tokens.
func (c *Client) Generate(ctx context.Context, question string, maxLength int) (string, error) {
	payload, err := json.Marshal(generateRequest{Question: question, MaxLength: maxLength})
	if err != nil {
		return "", fmt.Errorf("inference: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("inference: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference: calling model server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return "", fmt.Errorf("inference: model server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("inference: decoding response: %w", err)
	}
	answer := strings.TrimSpace(out.Answer)
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}

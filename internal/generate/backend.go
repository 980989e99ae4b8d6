package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 30 // seconds
)

// Common errors
var (
	ErrEmptyPrompt   = errors.New("prompt cannot be empty")
	ErrEmptyReply    = errors.New("model returned an empty reply")
	ErrBackendURLSet = errors.New("backend URL not set")
)

// Backend produces model output for a prompt. Implementations may perform
// network I/O and must be safe for concurrent use across prompts.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BackendConfig holds connection settings for the HTTP backend.
type BackendConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout int // in seconds
}

// HTTPBackend talks to a generic completion endpoint: a JSON POST with the
// prompt, bearer-token auth, and a JSON reply carrying the output text.
type HTTPBackend struct {
	config     BackendConfig
	httpClient *http.Client
}

func NewHTTPBackend(cfg BackendConfig) (*HTTPBackend, error) {
	if cfg.URL == "" {
		return nil, ErrBackendURLSet
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &HTTPBackend{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}, nil
}

// Complete implements the Backend interface.
func (b *HTTPBackend) Complete(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":  b.config.Model,
		"prompt": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", b.config.URL, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	if b.config.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", b.config.APIKey))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var reply struct {
		Output string `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("failed to decode backend response: %w", err)
	}
	if reply.Output == "" {
		return "", ErrEmptyReply
	}

	return reply.Output, nil
}

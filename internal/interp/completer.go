package interp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Ollama completion defaults.
const (
	DefaultCompletionModel   = "llama3.1"
	DefaultCompletionTimeout = 120 * time.Second
)

// OllamaCompleter generates interpretation text through a local Ollama
// endpoint.
type OllamaCompleter struct {
	client *http.Client
	host   string
	model  string
}

// Verify interface implementation at compile time.
var _ Completer = (*OllamaCompleter)(nil)

// NewOllamaCompleter creates an Ollama-backed completer.
func NewOllamaCompleter(host, model string, timeout time.Duration) *OllamaCompleter {
	if model == "" {
		model = DefaultCompletionModel
	}
	if timeout <= 0 {
		timeout = DefaultCompletionTimeout
	}
	return &OllamaCompleter{
		client: &http.Client{Timeout: timeout},
		host:   host,
		model:  model,
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// Complete sends the prompt to Ollama's /api/generate and returns the
// full (non-streamed) response text.
func (c *OllamaCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion returned status %d: %s", resp.StatusCode, string(data))
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if out.Response == "" {
		return "", fmt.Errorf("completion returned empty response")
	}
	return out.Response, nil
}

package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// stopTokens are the strict stop sequences required of the edge backend by
// §4.4: a fenced code block, a blank line, or the end-of-turn marker —
// whichever arrives first stops generation before any trailing prose can
// leak past the JSON object.
var stopTokens = []string{"```", "\n\n", "</s>"}

// EdgeBackend talks to a local llama.cpp-style `/completion` endpoint.
// Grounded on the teacher's pooled-HTTP-client idiom (internal/pipeline's
// httpclient.go) and on the strict JSON-only system-prompt/stop-token
// contract found in intent_service.py's call_llamacpp.
type EdgeBackend struct {
	url       string
	client    *http.Client
	maxTokens int
}

// NewEdgeBackend constructs an EdgeBackend pointed at a local completion
// server, e.g. "http://localhost:8080/completion".
func NewEdgeBackend(url string, client *http.Client, maxTokens int) *EdgeBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &EdgeBackend{url: url, client: client, maxTokens: maxTokens}
}

type edgeRequest struct {
	Prompt      string   `json:"prompt"`
	Temperature float64  `json:"temperature"`
	NPredict    int      `json:"n_predict"`
	Stop        []string `json:"stop"`
	CachePrompt bool     `json:"cache_prompt"`
}

// Complete posts a single completion request and returns the generated text.
func (e *EdgeBackend) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	prompt := systemPrompt + "\n\n" + userText
	body, err := json.Marshal(edgeRequest{
		Prompt:      prompt,
		Temperature: 0.0,
		NPredict:    e.maxTokens,
		Stop:        stopTokens,
		CachePrompt: true,
	})
	if err != nil {
		return "", fmt.Errorf("edge backend: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("edge backend: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("edge backend: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("edge backend: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("edge backend: status %d", resp.StatusCode)
	}

	return gjson.GetBytes(raw, "content").String(), nil
}

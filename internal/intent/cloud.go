package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/nlpodyssey/openai-agents-go/modelsettings"
	"github.com/openai/openai-go/v2/packages/param"
)

// CloudBackend talks to an OpenAI-compatible /v1/chat/completions endpoint
// through the openai-agents-go SDK, generalized from the teacher's
// streaming AgentLLM.Chat down to a single call whose streamed text deltas
// are collected into one string — C4 needs one complete JSON object per
// request, not incremental tokens.
type CloudBackend struct {
	provider  agents.ModelProvider
	model     string
	maxTokens int
}

// NewCloudBackend constructs a CloudBackend pointed at baseURL with apiKey,
// matching the teacher's agents.NewOpenAIProvider wiring in cmd/gateway's
// initLLM.
func NewCloudBackend(baseURL, apiKey, model string, maxTokens int, useResponses bool) *CloudBackend {
	provider := agents.NewOpenAIProvider(agents.OpenAIProviderParams{
		BaseURL:      param.NewOpt(baseURL),
		APIKey:       param.NewOpt(apiKey),
		UseResponses: param.NewOpt(useResponses),
	})
	return &CloudBackend{provider: provider, model: model, maxTokens: maxTokens}
}

// Complete runs one turn and returns the full response text.
func (c *CloudBackend) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	agent := agents.New("intent-parser").
		WithInstructions(systemPrompt).
		WithModel(c.model).
		WithModelSettings(modelsettings.ModelSettings{
			MaxTokens:   param.NewOpt(int64(c.maxTokens)),
			Temperature: param.NewOpt(0.1),
		})

	runner := agents.Runner{Config: agents.RunConfig{
		ModelProvider:   c.provider,
		MaxTurns:        1,
		TracingDisabled: true,
	}}

	events, errCh, err := runner.RunStreamedChan(ctx, agent, userText)
	if err != nil {
		return "", fmt.Errorf("cloud backend: start: %w", err)
	}

	var buf strings.Builder
	for ev := range events {
		raw, ok := ev.(agents.RawResponsesStreamEvent)
		if !ok {
			continue
		}
		if raw.Data.Type != "response.output_text.delta" {
			continue
		}
		buf.WriteString(raw.Data.Delta)
	}

	if streamErr := <-errCh; streamErr != nil {
		return "", fmt.Errorf("cloud backend: %w", streamErr)
	}

	return buf.String(), nil
}

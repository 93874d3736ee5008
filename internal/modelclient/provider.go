// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Provider is the raw generative-model transport. Client builds prompts
// and parses structured-text responses; Provider only knows how to turn a
// prompt into a completion.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
	Close() error
}

// anthropicProvider calls the Anthropic Messages API.
type anthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider constructs a Provider backed by Claude. model
// defaults to claude-3-5-haiku, which is fast enough for the per-message
// analyzer call pattern.
func NewAnthropicProvider(apiKey, model string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	if model == "" {
		model = "claude-3-5-haiku-20241022"
	}
	return &anthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (p *anthropicProvider) Name() string { return "anthropic" }
func (p *anthropicProvider) Close() error { return nil }

func (p *anthropicProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(p.model),
		MaxTokens: anthropic.F(int64(512)),
		Messages: anthropic.F([]anthropic.MessageParam{
			{
				Role: anthropic.F(anthropic.MessageParamRoleUser),
				Content: anthropic.F([]anthropic.MessageParamContentUnion{
					anthropic.TextBlockParam{
						Type: anthropic.F(anthropic.TextBlockParamTypeText),
						Text: anthropic.F(prompt),
					},
				}),
			},
		}),
	})
	if err != nil {
		if isRetryableProviderError(err) {
			return "", &TransientError{Err: err}
		}
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// isRetryableProviderError classifies network errors, 5xx-equivalents, and
// explicit rate-limit signals as transient.
func isRetryableProviderError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "connection reset", "temporarily unavailable"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

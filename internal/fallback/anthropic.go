// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fallback

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	log "github.com/sirupsen/logrus"
)

const defaultSystemPrompt = "You are a helpful assistant answering a user query that no " +
	"specialized tool could handle. Answer concisely in the language of the query."

// AnthropicProvider builds a Claude-backed Reasoner for the fallback path.
type AnthropicProvider struct {
	apiKey string
	model  string
	system string
}

// NewAnthropic creates a provider using the given API key and model.
func NewAnthropic(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	return &AnthropicProvider{
		apiKey: apiKey,
		model:  model,
		system: defaultSystemPrompt,
	}
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Build implements Provider. Client construction is done here rather than
// in NewAnthropic so the dispatcher's context cache controls its lifetime.
func (p *AnthropicProvider) Build(ctx context.Context) (Reasoner, error) {
	client := anthropic.NewClient(option.WithAPIKey(p.apiKey))
	log.Debugf("Built anthropic fallback reasoner (model %s)", p.model)
	return &anthropicReasoner{client: &client, model: p.model, system: p.system}, nil
}

type anthropicReasoner struct {
	client *anthropic.Client
	model  string
	system string
}

// Answer implements Reasoner.
func (r *anthropicReasoner) Answer(ctx context.Context, query string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: 1024,
		System:    []anthropic.TextBlockParam{{Text: r.system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
		},
	}

	msg, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("fallback: anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}

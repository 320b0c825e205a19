// Package assistant answers free-form questions about a hospital's current
// indicators. It is feature-flagged: most deployments run without it.
package assistant

import (
	"context"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"navira/internal/config"
)

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

type Client struct {
	apiKey string
	model  string
}

// New returns a client, or nil when the assistant is disabled or no API key
// is configured.
func New(cfg config.Config) *Client {
	if !cfg.AssistantEnabled || cfg.AnthropicAPIKey == "" {
		return nil
	}
	return &Client{apiKey: cfg.AnthropicAPIKey, model: cfg.AssistantModel}
}

const systemPreamble = `You are the Navira assistant for a bariatric-surgery hospital
performance dashboard. Answer questions using only the indicator summary provided
below. Figures are per-interval aggregates; do not invent numbers that are not in
the summary. Answer concisely in the language of the question.`

// Ask sends one question plus the current indicator summary and returns the
// model's answer.
func (c *Client) Ask(ctx context.Context, question, indicatorSummary string) (string, Usage, error) {
	client := anthropic.NewClient(option.WithAPIKey(c.apiKey))

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPreamble + "\n\n" + indicatorSummary},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
		},
	})
	if err != nil {
		log.Printf("assistant anthropic error: %v", err)
		return "", Usage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := Usage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("assistant response size=%d tokens_in=%d tokens_out=%d", len(block.Text), usage.InputTokens, usage.OutputTokens)
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}

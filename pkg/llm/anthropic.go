package llm

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 1024
)

// AnthropicOption configures the Anthropic-backed completer.
type AnthropicOption func(*anthropicCompleter)

// WithModel overrides the default model.
func WithModel(model string) AnthropicOption {
	return func(c *anthropicCompleter) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTokens overrides the default completion budget.
func WithMaxTokens(n int64) AnthropicOption {
	return func(c *anthropicCompleter) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

type anthropicCompleter struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates a Completer backed by the Anthropic SDK.
func NewAnthropic(apiKey string, opts ...AnthropicOption) Completer {
	c := &anthropicCompleter{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *anthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: create message")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

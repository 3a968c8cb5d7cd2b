package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicCompleter implements Completer with the Anthropic Messages API.
// Completions are short and run at temperature zero so a cluster gets the
// same label on every run.
type AnthropicCompleter struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicCompleter creates an AnthropicCompleter. An empty model selects
// claude-sonnet-4-20250514.
func NewAnthropicCompleter(apiKey, model string, opts ...CompleterOption) *AnthropicCompleter {
	return newAnthropicCompleter(model, opts, option.WithAPIKey(apiKey))
}

func newAnthropicCompleter(model string, opts []CompleterOption, reqOpts ...option.RequestOption) *AnthropicCompleter {
	if model == "" {
		model = defaultAnthropicModel
	}
	client := anthropic.NewClient(reqOpts...)
	return &AnthropicCompleter{
		client:    &client,
		model:     model,
		maxTokens: applyCompleterOptions(opts).maxTokens,
	}
}

// Complete sends prompt as a single user message and returns the text of
// the reply.
func (a *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(a.maxTokens),
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classifyAnthropicError(ctx, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: no text content in response", ErrInvalidResponse)
	}
	return text.String(), nil
}

func classifyAnthropicError(ctx context.Context, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, 529:
			return fmt.Errorf("%w: %s", ErrRateLimit, err)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %s", ErrTimeout, err)
		}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s", ErrTimeout, ctx.Err())
	}
	return fmt.Errorf("anthropic completion: %w", err)
}

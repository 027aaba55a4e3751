// Package anthropic provides a backend.Invoker over the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/isamwata/llmcouncil/backend"
)

// Options configures the Anthropic invoker (model id, temperature, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Invoker wraps the Anthropic Messages API behind the generic
// backend.Invoker interface.
type Invoker struct {
	id     string
	client *anthropic.Client
	opts   Options
}

// NewInvoker creates a new Anthropic invoker using the official client.
func NewInvoker(id string, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Invoker{id: id, client: &client, opts: opts}
}

// NewInvokerFromClient creates a new Anthropic invoker from an existing client.
func NewInvokerFromClient(id string, client *anthropic.Client, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Invoker{id: id, client: client, opts: opts}
}

// Invoke implements backend.Invoker. System messages are lifted into the
// request's System field; remaining turns alternate user/assistant.
func (i *Invoker) Invoke(ctx context.Context, messages []backend.Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       i.opts.Model,
		Messages:    buildMessages(messages),
		MaxTokens:   i.opts.MaxTokens,
		Temperature: anthropic.Float(i.opts.Temperature),
	}
	if systemBlocks := extractSystem(messages); len(systemBlocks) > 0 {
		params.System = systemBlocks
	}

	resp, err := i.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String(), nil
}

// buildMessages converts engine messages to Anthropic message format.
func buildMessages(messages []backend.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case "system":
			continue // handled separately via params.System
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

// extractSystem collects system-role messages into system blocks.
func extractSystem(messages []backend.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, m := range messages {
		if m.Role == "system" && m.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}
	return blocks
}

// Info returns metadata describing this Anthropic backend.
func (i *Invoker) Info() backend.Info {
	return backend.Info{ID: i.id, Provider: "anthropic"}
}

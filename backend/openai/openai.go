// Package openai provides a backend.Invoker over the OpenAI Chat Completions
// API. It adapts the engine's role/content messages into the SDK's message
// format and returns the first choice's text.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/isamwata/llmcouncil/backend"
)

// Options configure the OpenAI invoker.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Invoker wraps the OpenAI Chat Completions API behind the generic
// backend.Invoker interface.
type Invoker struct {
	id     string
	client *openai.Client
	opts   Options
}

// NewInvoker creates a new OpenAI invoker using the official client.
// The client picks up OPENAI_API_KEY from the environment.
func NewInvoker(id string, optFns ...func(o *Options)) *Invoker {
	client := openai.NewClient()
	return NewInvokerFromClient(id, &client, optFns...)
}

// NewInvokerFromClient creates a new OpenAI invoker from an existing client.
func NewInvokerFromClient(id string, client *openai.Client, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Invoker{id: id, client: client, opts: opts}
}

// Invoke implements backend.Invoker using a non-streaming completion.
func (i *Invoker) Invoke(ctx context.Context, messages []backend.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(messages),
		Model:               i.opts.Model,
		Temperature:         openai.Float(i.opts.Temperature),
		MaxCompletionTokens: openai.Int(i.opts.MaxCompletionTokens),
	}

	resp, err := i.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// buildMessages converts engine messages into OpenAI chat messages.
func buildMessages(messages []backend.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			// Treat unknown roles as user input.
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// Info returns metadata describing this OpenAI backend.
func (i *Invoker) Info() backend.Info {
	return backend.Info{ID: i.id, Provider: "openai"}
}

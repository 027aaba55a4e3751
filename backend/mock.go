package backend

import (
	"context"
	"fmt"
	"time"
)

// MockInvoker is a lightweight in-memory Invoker useful for tests & examples.
// It can return a canned reply, compute one from the incoming messages, fail
// deterministically, or simulate latency.
type MockInvoker struct {
	info    Info
	reply   string
	replyFn func(messages []Message) (string, error)
	err     error
	delay   time.Duration
}

// MockOption customizes a MockInvoker.
type MockOption func(m *MockInvoker)

// WithReply sets a fixed reply returned for every invocation.
func WithReply(reply string) MockOption {
	return func(m *MockInvoker) { m.reply = reply }
}

// WithReplyFunc computes the reply from the incoming messages. Takes
// precedence over WithReply.
func WithReplyFunc(fn func(messages []Message) (string, error)) MockOption {
	return func(m *MockInvoker) { m.replyFn = fn }
}

// WithError makes every invocation fail with err.
func WithError(err error) MockOption {
	return func(m *MockInvoker) { m.err = err }
}

// WithDelay makes every invocation block for d before replying, respecting
// context cancellation in the meantime.
func WithDelay(d time.Duration) MockOption {
	return func(m *MockInvoker) { m.delay = d }
}

// NewMockInvoker constructs a MockInvoker with the given identifier.
func NewMockInvoker(id string, opts ...MockOption) *MockInvoker {
	m := &MockInvoker{info: Info{ID: id, Provider: "mock"}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Invoke implements Invoker.
func (m *MockInvoker) Invoke(ctx context.Context, messages []Message) (string, error) {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	if m.replyFn != nil {
		return m.replyFn(messages)
	}
	if m.reply != "" {
		return m.reply, nil
	}
	var last string
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return fmt.Sprintf("Mock response to: %s", last), nil
}

// Info implements Invoker.
func (m *MockInvoker) Info() Info { return m.info }

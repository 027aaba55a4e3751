package backend

import "context"

// Message is a single role/content turn sent to a backend. Roles follow the
// usual chat convention ("system", "user", "assistant").
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Info contains metadata about a backend implementation.
type Info struct {
	ID       string `json:"id"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Invoker is the minimal capability the deliberation engine requires from a
// model backend: given an ordered message sequence, produce a reply.
//
// Implementations must honor ctx cancellation; the engine applies its per-call
// timeout via the context and treats a deadline exceeded error exactly like
// any other invocation failure. Invoker implementations must be safe for
// concurrent use, since the engine fans out to all backends at once.
type Invoker interface {
	Invoke(ctx context.Context, messages []Message) (string, error)

	// Info returns metadata describing this backend.
	Info() Info
}

// SystemMessage is a convenience constructor for a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage is a convenience constructor for a user-role message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

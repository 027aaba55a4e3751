package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/isamwata/llmcouncil/backend"
)

// ModelResponse is one backend's successful Stage-1 answer. Failed
// invocations never become ModelResponses; they are dropped before labels
// are assigned.
type ModelResponse struct {
	BackendID string `json:"backend_id"`
	Text      string `json:"text"`
}

// collectResponses runs Stage 1: every deliberating backend is invoked
// concurrently with the query, each call independently timed out, no retry.
// The returned set preserves backend declaration order regardless of
// completion order; completion order is not observable downstream. Failures
// become warnings, never errors — an empty set is the caller's problem.
func (e *Engine) collectResponses(ctx context.Context, limiter *CallLimiter, query, supportingContext string) ([]ModelResponse, []string) {
	messages := stageOneMessages(query, supportingContext)

	// Each slot is written by exactly one goroutine, keyed by declaration
	// index, so no further synchronization is needed on the slices.
	slots := make([]*ModelResponse, len(e.cfg.Backends))
	failures := make([]error, len(e.cfg.Backends))

	var wg sync.WaitGroup
	for idx, id := range e.cfg.Backends {
		wg.Add(1)
		go func(idx int, id string) {
			defer wg.Done()
			text, err := e.invoke(ctx, limiter, id, string(StageResponses), messages)
			if err != nil {
				failures[idx] = err
				return
			}
			slots[idx] = &ModelResponse{BackendID: id, Text: text}
		}(idx, id)
	}
	wg.Wait()

	var responses []ModelResponse
	var warnings []string
	for idx, slot := range slots {
		if slot != nil {
			responses = append(responses, *slot)
			continue
		}
		warnings = append(warnings, fmt.Sprintf("backend %s failed stage 1: %v", e.cfg.Backends[idx], failures[idx]))
	}
	return responses, warnings
}

// stageOneMessages builds the Stage-1 message sequence: the raw query as the
// sole user message, preceded by the retrieved supporting context as a
// system message when one was supplied.
func stageOneMessages(query, supportingContext string) []backend.Message {
	var messages []backend.Message
	if supportingContext != "" {
		messages = append(messages, backend.SystemMessage(
			"Use the following retrieved context when answering.\n\n"+supportingContext))
	}
	return append(messages, backend.UserMessage(query))
}

package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/isamwata/llmcouncil/backend"
	"github.com/isamwata/llmcouncil/ranking"
)

// Synthesis is the chair's final answer for a run. Fallback is set when the
// chair was unreachable and the engine substituted the best available
// Stage-1 response instead, so callers can distinguish a genuine synthesis.
type Synthesis struct {
	ChairID  string `json:"chair_backend_id"`
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
	Attempts int    `json:"attempts"`
}

// CoverageValidator decides whether a synthesis candidate is structurally
// complete. The marker definitions belong to the caller's domain, not the
// engine; the engine only needs the missing set (to drive retries) and the
// full marker set (to locate the splice point for a gap-fill).
type CoverageValidator interface {
	// Markers returns every required structural marker.
	Markers() []string

	// Missing returns the markers absent from text, empty when complete.
	Missing(text string) []string
}

// MarkerValidator is the common CoverageValidator: a candidate is complete
// when it contains every marker as a literal substring.
type MarkerValidator struct {
	RequiredMarkers []string
}

// Markers implements CoverageValidator.
func (v MarkerValidator) Markers() []string { return v.RequiredMarkers }

// Missing implements CoverageValidator.
func (v MarkerValidator) Missing(text string) []string {
	var missing []string
	for _, m := range v.RequiredMarkers {
		if !strings.Contains(text, m) {
			missing = append(missing, m)
		}
	}
	return missing
}

// RepairPolicy bounds the synthesis repair loop: MaxRetries full re-syntheses
// with a corrective note, then a single scoped gap-fill call, then give up
// and return the best-effort text.
type RepairPolicy struct {
	MaxRetries int
}

// synthesize runs Stage 3. It does not depend on Stage 2 having succeeded:
// an empty round record still yields a chair call over the Stage-1
// responses. Chair failure at any point degrades to the best available
// Stage-1 response, tagged as a fallback.
func (e *Engine) synthesize(ctx context.Context, limiter *CallLimiter, query, supportingContext string, responses []ModelResponse, rounds []BootstrapRound, cross []ranking.SubjectRank) (Synthesis, []string) {
	start := time.Now()
	var warnings []string

	messages := []backend.Message{
		backend.UserMessage(renderChairPrompt(query, supportingContext, responses, rounds)),
	}

	syn := Synthesis{ChairID: e.cfg.ChairID}

	text, err := e.invoke(ctx, limiter, e.cfg.ChairID, string(StageSynthesis), messages)
	syn.Attempts++
	if err != nil {
		return e.fallbackSynthesis(syn, responses, cross, start,
			append(warnings, fmt.Sprintf("chair %s unreachable: %v", e.cfg.ChairID, err)))
	}

	if e.validator == nil {
		syn.Text = text
		e.logger.Info("Synthesis completed", "chair_id", syn.ChairID, "attempts", syn.Attempts, "duration", time.Since(start))
		return syn, warnings
	}

	missing := e.validator.Missing(text)
	for retry := 0; len(missing) > 0 && retry < e.repair.MaxRetries; retry++ {
		warnings = append(warnings, fmt.Sprintf("synthesis attempt %d missing markers: %s", syn.Attempts, strings.Join(missing, ", ")))
		messages = append(messages,
			backend.Message{Role: "assistant", Content: text},
			backend.UserMessage(renderCorrectiveNote(missing)),
		)
		retried, err := e.invoke(ctx, limiter, e.cfg.ChairID, string(StageSynthesis), messages)
		syn.Attempts++
		if err != nil {
			return e.fallbackSynthesis(syn, responses, cross, start,
				append(warnings, fmt.Sprintf("chair %s unreachable during repair: %v", e.cfg.ChairID, err)))
		}
		text = retried
		missing = e.validator.Missing(text)
	}

	if len(missing) > 0 {
		// Retry budget exhausted: one scoped call for just the gaps.
		gapMessages := []backend.Message{backend.UserMessage(renderGapFillPrompt(query, missing))}
		gap, err := e.invoke(ctx, limiter, e.cfg.ChairID, string(StageSynthesis)+"/gap-fill", gapMessages)
		syn.Attempts++
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("gap-fill call failed, returning incomplete synthesis: %v", err))
		} else {
			text = spliceGap(text, gap, e.validator.Markers())
			if remaining := e.validator.Missing(text); len(remaining) > 0 {
				warnings = append(warnings, fmt.Sprintf("synthesis still missing markers after gap-fill: %s", strings.Join(remaining, ", ")))
			}
		}
	}

	syn.Text = text
	e.logger.Info("Synthesis completed", "chair_id", syn.ChairID, "attempts", syn.Attempts, "duration", time.Since(start))
	return syn, warnings
}

// fallbackSynthesis returns the single best available Stage-1 response in
// place of a chair synthesis. Best means the top of the cross-backend
// ranking when one exists, otherwise the first response in declaration order.
func (e *Engine) fallbackSynthesis(syn Synthesis, responses []ModelResponse, cross []ranking.SubjectRank, start time.Time, warnings []string) (Synthesis, []string) {
	byID := make(map[string]ModelResponse, len(responses))
	for _, r := range responses {
		byID[r.BackendID] = r
	}

	best := responses[0]
	for _, subject := range cross {
		if r, ok := byID[subject.BackendID]; ok {
			best = r
			break
		}
	}

	syn.Text = best.Text
	syn.Fallback = true
	warnings = append(warnings, fmt.Sprintf("returned best stage-1 response from %s as fallback synthesis", best.BackendID))
	e.logger.Warn("Synthesis fell back to best stage-1 response",
		"chair_id", syn.ChairID, "source_backend", best.BackendID, "attempts", syn.Attempts, "duration", time.Since(start))
	return syn, warnings
}

// spliceGap inserts the gap-fill text immediately after the last present
// marker (at the end of the line containing it), or appends it when no
// marker is present at all.
func spliceGap(text, gap string, markers []string) string {
	last := -1
	for _, m := range markers {
		if idx := strings.LastIndex(text, m); idx > last {
			last = idx
		}
	}
	if last < 0 {
		return strings.TrimRight(text, "\n") + "\n\n" + gap
	}

	lineEnd := strings.IndexByte(text[last:], '\n')
	if lineEnd < 0 {
		return text + "\n" + gap
	}
	insertAt := last + lineEnd
	return text[:insertAt] + "\n" + gap + text[insertAt:]
}

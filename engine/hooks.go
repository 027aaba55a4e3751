package engine

import "context"

// Stage identifies a deliberation stage boundary where hooks can observe the
// run without modifying core logic.
type Stage string

const (
	// StageResponses fires after Stage 1 completes and labels are assigned.
	StageResponses Stage = "responses"

	// StagePeerRanking fires after all bootstrap rounds have settled and
	// aggregation is done.
	StagePeerRanking Stage = "peer_ranking"

	// StageSynthesis fires after the chair synthesis (or its fallback).
	StageSynthesis Stage = "synthesis"
)

// HookContext carries the run state visible to a hook. The Result is the
// partially populated record for the current run; hooks must treat it as
// read-only.
type HookContext struct {
	RunID  string
	Stage  Stage
	Result *Result
}

// Hook is an observation point at a stage boundary. Hooks are executed
// sequentially in registration order. A run always returns a result, so a
// hook error is logged and recorded as a warning rather than terminating
// the deliberation.
type Hook interface {
	// Stage returns the stage boundary this hook observes.
	Stage() Stage

	// Execute performs the hook logic with the provided context.
	Execute(ctx context.Context, hookCtx *HookContext) error
}

// FunctionHook wraps a function as a hook implementation, for simple
// stateless observation logic.
type FunctionHook struct {
	stage Stage
	fn    func(ctx context.Context, hookCtx *HookContext) error
}

// NewFunctionHook creates a new function-based hook for the given stage.
func NewFunctionHook(stage Stage, fn func(ctx context.Context, hookCtx *HookContext) error) *FunctionHook {
	return &FunctionHook{stage: stage, fn: fn}
}

// Stage returns the stage boundary this hook observes.
func (h *FunctionHook) Stage() Stage { return h.stage }

// Execute calls the wrapped function with the provided context.
func (h *FunctionHook) Execute(ctx context.Context, hookCtx *HookContext) error {
	return h.fn(ctx, hookCtx)
}

// hookSet routes hooks by stage.
type hookSet struct {
	hooks map[Stage][]Hook
}

func newHookSet(hooks []Hook) *hookSet {
	hs := &hookSet{hooks: make(map[Stage][]Hook)}
	for _, h := range hooks {
		hs.hooks[h.Stage()] = append(hs.hooks[h.Stage()], h)
	}
	return hs
}

// fire executes all hooks registered for stage and returns warnings for any
// that failed.
func (hs *hookSet) fire(ctx context.Context, stage Stage, hookCtx *HookContext) []string {
	var warnings []string
	for _, h := range hs.hooks[stage] {
		if err := h.Execute(ctx, hookCtx); err != nil {
			warnings = append(warnings, "hook failed at stage "+string(stage)+": "+err.Error())
		}
	}
	return warnings
}

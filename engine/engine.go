package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/isamwata/llmcouncil/backend"
	"github.com/isamwata/llmcouncil/logging"
	"github.com/isamwata/llmcouncil/ranking"
)

// Options configures optional engine collaborators. Unset fields get safe
// defaults; the zero Options is valid.
type Options struct {
	// Logger receives structured run telemetry. Defaults to NoOpLogger.
	Logger logging.Logger

	// Random is the randomness source feeding presentation-order shuffles.
	// All of the engine's randomness is confined to this source, which is
	// how tests pin a run down; aggregation itself is fully deterministic.
	Random *rand.Rand

	// Hooks observe stage boundaries.
	Hooks []Hook

	// Coverage validates synthesis completeness. Nil disables the
	// repair loop entirely.
	Coverage CoverageValidator

	// Repair bounds the synthesis repair loop when Coverage is set.
	Repair RepairPolicy
}

// Engine runs the three-stage deliberation protocol over an injected set of
// backend invokers. It is safe for concurrent runs: all per-run state lives
// on the stack of Deliberate, and the only shared mutable state is the
// guarded randomness source.
type Engine struct {
	cfg       Config
	invokers  map[string]backend.Invoker
	logger    logging.Logger
	parser    *ranking.Parser
	rng       *rand.Rand
	rngMu     sync.Mutex
	hooks     *hookSet
	validator CoverageValidator
	repair    RepairPolicy
}

// New constructs an Engine, validating the configuration once. The chair
// must not be a deliberating backend, and every configured id (chair
// included) must have a registered invoker; violations are fatal here, never
// at run time.
func New(cfg Config, invokers map[string]backend.Invoker, optFns ...func(o *Options)) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = cfg.normalized()

	for _, id := range append(append([]string{}, cfg.Backends...), cfg.ChairID) {
		if _, ok := invokers[id]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, id)
		}
	}

	opts := Options{
		Logger: logging.NoOpLogger{},
		Repair: RepairPolicy{MaxRetries: cfg.SynthesisRetries},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Random == nil {
		opts.Random = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Engine{
		cfg:       cfg,
		invokers:  invokers,
		logger:    opts.Logger,
		parser:    ranking.NewParser(),
		rng:       opts.Random,
		hooks:     newHookSet(opts.Hooks),
		validator: opts.Coverage,
		repair:    opts.Repair,
	}, nil
}

// Config returns the engine's (validated, normalized) configuration.
func (e *Engine) Config() Config { return e.cfg }

// Result is the complete record of one deliberation run. It is created
// fresh per run and never retained by the engine. A Result is produced even
// under partial failure, with the damage recorded in Warnings; only a fatal
// configuration error or an empty Stage 1 abort without one.
type Result struct {
	RunID     string          `json:"run_id"`
	Query     string          `json:"query"`
	Responses []ModelResponse `json:"responses"`

	// Labels maps each responding backend to its run-stable anonymized
	// label; LabelToBackend is the inverse. The mapping is a bijection,
	// assigned once at Stage-1 completion and immutable afterwards.
	Labels         map[string]ranking.Label `json:"labels"`
	LabelToBackend map[ranking.Label]string `json:"label_to_backend"`

	Rounds       []BootstrapRound           `json:"rounds"`
	Aggregates   []ranking.BackendAggregate `json:"aggregates"`
	CrossRanking []ranking.SubjectRank      `json:"cross_ranking"`
	Synthesis    Synthesis                  `json:"synthesis"`
	Warnings     []string                   `json:"warnings,omitempty"`
}

// Deliberate runs the full three-stage protocol for one query.
// supportingContext is an opaque, caller-retrieved context string; pass ""
// when there is none.
func (e *Engine) Deliberate(ctx context.Context, query, supportingContext string) (*Result, error) {
	runID := uuid.NewString()
	limiter := NewCallLimiter(e.cfg.MaxCalls)
	start := time.Now()

	result := &Result{RunID: runID, Query: query}

	// Stage 1: independent responses.
	responses, warnings := e.collectResponses(ctx, limiter, query, supportingContext)
	result.Warnings = append(result.Warnings, warnings...)
	if len(responses) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNoResponses)
	}
	result.Responses = responses

	labels, byLabel := assignLabels(responses)
	result.LabelToBackend = byLabel
	result.Labels = make(map[string]ranking.Label, len(byLabel))
	for l, id := range byLabel {
		result.Labels[id] = l
	}
	result.Warnings = append(result.Warnings, e.hooks.fire(ctx, StageResponses, &HookContext{RunID: runID, Stage: StageResponses, Result: result})...)

	// Stage 2: bootstrap peer ranking. Rounds run sequentially; each fans
	// out to all backends and waits for every call to settle.
	textByLabel := make(map[ranking.Label]string, len(responses))
	for i, r := range responses {
		textByLabel[labels[i]] = r.Text
	}
	for _, plan := range e.scheduleRounds(labels) {
		result.Rounds = append(result.Rounds, e.runRound(ctx, limiter, query, plan, textByLabel))
	}

	result.Aggregates, result.CrossRanking = e.aggregate(result.Rounds, labels, byLabel, &result.Warnings)
	result.Warnings = append(result.Warnings, e.hooks.fire(ctx, StagePeerRanking, &HookContext{RunID: runID, Stage: StagePeerRanking, Result: result})...)

	// Stage 3: chair synthesis, independent of Stage 2's fortunes.
	syn, synWarnings := e.synthesize(ctx, limiter, query, supportingContext, responses, result.Rounds, result.CrossRanking)
	result.Synthesis = syn
	result.Warnings = append(result.Warnings, synWarnings...)
	result.Warnings = append(result.Warnings, e.hooks.fire(ctx, StageSynthesis, &HookContext{RunID: runID, Stage: StageSynthesis, Result: result})...)

	e.logger.Info("Deliberation completed",
		"run_id", runID,
		"responses", len(result.Responses),
		"rounds", len(result.Rounds),
		"backend_calls", limiter.Count(),
		"warnings", len(result.Warnings),
		"duration", time.Since(start))
	return result, nil
}

// aggregate collapses every evaluator's rounds into per-backend aggregates
// and the cross-backend ordering. An evaluator whose calls all failed (or
// whose replies never parsed into anything) is excluded with a warning
// rather than imputed.
func (e *Engine) aggregate(rounds []BootstrapRound, labels []ranking.Label, byLabel map[ranking.Label]string, warnings *[]string) ([]ranking.BackendAggregate, []ranking.SubjectRank) {
	var aggregates []ranking.BackendAggregate
	for _, evaluator := range e.cfg.Backends {
		var parsed [][]ranking.Label
		for _, round := range rounds {
			if r, ok := round.Rankings[evaluator]; ok && len(r) > 0 {
				parsed = append(parsed, r)
			}
		}
		if len(parsed) == 0 {
			*warnings = append(*warnings, fmt.Sprintf("backend %s contributed no usable rankings; excluded from aggregation", evaluator))
			continue
		}
		aggregates = append(aggregates, ranking.Aggregate(e.cfg.Aggregation, evaluator, parsed, labels))
	}
	return aggregates, ranking.CrossAggregate(aggregates, byLabel, labels)
}

// invoke performs one backend call with the per-call timeout and the run's
// call budget applied. A timed-out call and a failed call are
// indistinguishable to callers, by contract.
func (e *Engine) invoke(ctx context.Context, limiter *CallLimiter, backendID, stage string, messages []backend.Message) (string, error) {
	if err := limiter.Acquire(); err != nil {
		return "", err
	}

	callCtx := ctx
	if e.cfg.InvokeTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.InvokeTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := e.invokers[backendID].Invoke(callCtx, messages)
	dur := time.Since(start)
	if err != nil {
		e.logger.Warn("Backend call failed", "backend_id", backendID, "stage", stage, "duration", dur, "error", err.Error())
		return "", fmt.Errorf("backend %s: %w", backendID, err)
	}
	e.logger.Debug("Backend call completed", "backend_id", backendID, "stage", stage, "duration", dur)
	return text, nil
}

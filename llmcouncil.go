// Package llmcouncil provides a high-level façade over the deliberation
// engine. A council sends one query to several model backends, has them
// peer-rank each other's anonymized answers over randomized evaluation
// rounds, and asks a designated chair to synthesize the final answer from
// the full record. Most applications interact with this package by:
//  1. Creating a Council via New() with a validated engine.Config and a set
//     of registered invokers (or via NewFromFile() with a YAML file)
//  2. Calling Deliberate() per query
//  3. Reading the Result: responses, rankings, synthesis and warnings
//
// The façade delegates the protocol to engine.Engine while keeping setup
// ergonomics concise. Defaults are safe for local development and testing;
// production deployments typically supply a structured logger and a
// coverage validator for the synthesis stage.
package llmcouncil

import (
	"context"
	"math/rand"

	"github.com/isamwata/llmcouncil/backend"
	"github.com/isamwata/llmcouncil/config"
	"github.com/isamwata/llmcouncil/engine"
	"github.com/isamwata/llmcouncil/logging"
)

// Options configures the Council instance.
type Options struct {
	// Logger receives structured run telemetry (defaults to NoOp logger).
	Logger logging.Logger

	// Random seeds the presentation-order shuffles. Leave nil outside tests.
	Random *rand.Rand

	// Hooks observe stage boundaries of every run.
	Hooks []engine.Hook

	// Coverage validates the synthesized answer's structure; nil disables
	// the repair loop.
	Coverage engine.CoverageValidator

	// Repair bounds the synthesis repair loop when Coverage is set. The
	// zero value keeps the engine default derived from
	// Config.SynthesisRetries.
	Repair engine.RepairPolicy
}

// Council is the high-level façade aggregating the engine and its backends.
type Council struct {
	engine *engine.Engine
}

// New creates a Council from a configuration and a map of invokers keyed by
// backend id. Every id in cfg (chair included) must have an invoker.
func New(cfg engine.Config, invokers map[string]backend.Invoker, optFns ...func(o *Options)) (*Council, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	e, err := engine.New(cfg, invokers, func(o *engine.Options) {
		o.Logger = opts.Logger
		o.Random = opts.Random
		o.Hooks = opts.Hooks
		o.Coverage = opts.Coverage
		if opts.Repair != (engine.RepairPolicy{}) {
			o.Repair = opts.Repair
		}
	})
	if err != nil {
		return nil, err
	}
	return &Council{engine: e}, nil
}

// NewFromFile creates a Council from a YAML configuration file, constructing
// the provider invokers it declares. Markers declared in the file become the
// coverage validator unless the options supply one.
func NewFromFile(path string, optFns ...func(o *Options)) (*Council, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	invokers, err := cfg.BuildInvokers()
	if err != nil {
		return nil, err
	}

	optFns = append([]func(o *Options){func(o *Options) {
		o.Coverage = cfg.CoverageValidator()
	}}, optFns...)
	return New(cfg.EngineConfig(), invokers, optFns...)
}

// Config returns the council's validated engine configuration.
func (c *Council) Config() engine.Config { return c.engine.Config() }

// Deliberate runs the full three-stage protocol for one query.
// supportingContext is optional caller-retrieved context; pass "" when there
// is none. The returned Result is complete even under partial backend
// failure, with the damage recorded in Result.Warnings.
func (c *Council) Deliberate(ctx context.Context, query, supportingContext string) (*engine.Result, error) {
	return c.engine.Deliberate(ctx, query, supportingContext)
}

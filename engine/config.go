package engine

import (
	"fmt"
	"time"

	"github.com/isamwata/llmcouncil/ranking"
)

// Config is the immutable per-engine configuration. It is validated once at
// construction; the engine holds no other cross-run state.
type Config struct {
	// Backends lists the deliberating backend ids in declaration order.
	// Declaration order fixes label assignment and all tie-breaking, so it
	// is part of the run's observable behavior.
	Backends []string

	// ChairID names the backend that produces the final synthesis. It must
	// not appear in Backends.
	ChairID string

	// BootstrapEnabled turns randomized multi-round peer evaluation on.
	// When false the engine degrades to a single round with no criterion
	// rotation and no presentation shuffling.
	BootstrapEnabled bool

	// BootstrapIterations is the number of evaluation rounds B (>= 1).
	BootstrapIterations int

	// Criteria is the ordered catalog of evaluation lenses rotated across
	// rounds. Defaults to DefaultCriteria().
	Criteria []Criterion

	// Aggregation selects the voting rule. Defaults to ranking.BordaCount.
	Aggregation ranking.Method

	// InvokeTimeout bounds each individual backend call.
	InvokeTimeout time.Duration

	// MaxCalls caps the total number of backend invocations per run.
	// 0 means unlimited.
	MaxCalls int

	// SynthesisRetries bounds the coverage-validation retry loop before the
	// engine resorts to a single scoped gap-fill call.
	SynthesisRetries int
}

// DefaultConfig provides safe defaults for everything except the backend and
// chair identities, which have no sensible default.
var DefaultConfig = Config{
	BootstrapEnabled:    true,
	BootstrapIterations: 3,
	Aggregation:         ranking.BordaCount,
	InvokeTimeout:       120 * time.Second,
	SynthesisRetries:    2,
}

// Validate checks construction-time invariants. A violation here is a fatal
// configuration error, never a runtime one.
func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one deliberating backend is required")
	}
	seen := make(map[string]bool, len(c.Backends))
	for _, id := range c.Backends {
		if id == "" {
			return fmt.Errorf("backend id must not be empty")
		}
		if seen[id] {
			return fmt.Errorf("duplicate backend id %q", id)
		}
		seen[id] = true
	}
	if c.ChairID == "" {
		return fmt.Errorf("chair backend id is required")
	}
	if seen[c.ChairID] {
		return fmt.Errorf("%w: %q", ErrChairIsMember, c.ChairID)
	}
	if c.BootstrapEnabled && c.BootstrapIterations < 1 {
		return fmt.Errorf("bootstrap iterations must be >= 1, got %d", c.BootstrapIterations)
	}
	if c.Aggregation != "" {
		if _, err := ranking.ParseMethod(string(c.Aggregation)); err != nil {
			return err
		}
	}
	if c.InvokeTimeout < 0 {
		return fmt.Errorf("invoke timeout must not be negative")
	}
	return nil
}

// normalized returns a copy with defaults filled in. Call after Validate.
func (c Config) normalized() Config {
	if len(c.Criteria) == 0 {
		c.Criteria = DefaultCriteria()
	}
	if c.Aggregation == "" {
		c.Aggregation = ranking.BordaCount
	}
	if c.InvokeTimeout == 0 {
		c.InvokeTimeout = DefaultConfig.InvokeTimeout
	}
	if c.SynthesisRetries == 0 {
		c.SynthesisRetries = DefaultConfig.SynthesisRetries
	}
	if !c.BootstrapEnabled {
		c.BootstrapIterations = 1
	}
	return c
}

package engine

import "github.com/isamwata/llmcouncil/ranking"

// Criterion is a named lens used to vary the evaluation prompt across
// bootstrap rounds, so no single framing dominates the aggregate.
type Criterion struct {
	Name        string `json:"name"`
	Focus       string `json:"focus"`
	Description string `json:"description"`
}

// DefaultCriteria returns the built-in ordered criteria catalog.
func DefaultCriteria() []Criterion {
	return []Criterion{
		{
			Name:        "accuracy",
			Focus:       "factual correctness",
			Description: "Judge how factually correct each response is. Prefer responses whose claims are verifiable and free of fabrication.",
		},
		{
			Name:        "completeness",
			Focus:       "coverage of the question",
			Description: "Judge how thoroughly each response addresses every part of the query, including implicit sub-questions.",
		},
		{
			Name:        "clarity",
			Focus:       "structure and readability",
			Description: "Judge how clearly each response communicates: organization, precision of language, and absence of filler.",
		},
		{
			Name:        "reasoning",
			Focus:       "quality of argument",
			Description: "Judge the soundness of each response's reasoning. Prefer responses whose conclusions follow from stated evidence.",
		},
		{
			Name:        "relevance",
			Focus:       "staying on task",
			Description: "Judge how well each response stays focused on what was actually asked, without digression or padding.",
		},
	}
}

// legacyCriterion is the single neutral lens used when bootstrap evaluation
// is disabled.
var legacyCriterion = Criterion{
	Name:        "overall",
	Focus:       "overall quality",
	Description: "Judge the overall quality of each response to the query.",
}

// roundPlan pairs one round's criterion with its presentation order.
type roundPlan struct {
	index        int
	criterion    Criterion
	presentation []ranking.Label
}

// scheduleRounds produces exactly B (criterion, presentation order) pairs.
// When B <= |catalog| the first B entries are used in order; when B exceeds
// the catalog it cycles. Presentation order is freshly randomized per round;
// in legacy mode (bootstrap disabled) there is a single round with the
// canonical order and no criterion rotation.
func (e *Engine) scheduleRounds(labels []ranking.Label) []roundPlan {
	if !e.cfg.BootstrapEnabled {
		identity := make([]ranking.Label, len(labels))
		copy(identity, labels)
		return []roundPlan{{index: 0, criterion: legacyCriterion, presentation: identity}}
	}

	catalog := e.cfg.Criteria
	plans := make([]roundPlan, e.cfg.BootstrapIterations)
	for i := range plans {
		plans[i] = roundPlan{
			index:        i,
			criterion:    catalog[i%len(catalog)],
			presentation: e.permute(labels),
		}
	}
	return plans
}

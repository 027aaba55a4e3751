package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/isamwata/llmcouncil/backend"
	"github.com/isamwata/llmcouncil/ranking"
)

// BootstrapRound is the full record of one Stage-2 evaluation pass: the
// criterion and presentation order it ran under, every evaluator's raw reply,
// and the parsed rankings translated back to canonical labels. Rankings may
// be shorter than the label set; a backend that failed the round is simply
// absent from both maps.
type BootstrapRound struct {
	Index        int                        `json:"index"`
	Criterion    Criterion                  `json:"criterion"`
	Presentation []ranking.Label            `json:"presentation_order"`
	RawReplies   map[string]string          `json:"raw_replies"`
	Rankings     map[string][]ranking.Label `json:"rankings"`
}

// evaluators returns the ids present in this round in a stable order.
func (r BootstrapRound) evaluators() []string {
	out := make([]string, 0, len(r.RawReplies))
	for id := range r.RawReplies {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// runRound executes one bootstrap round: render the criterion-specific
// prompt under the round's presentation order, fan out to all deliberating
// backends concurrently, then parse each reply and remap the shuffled labels
// to canonical ones before anything is stored. Per-backend failures cost
// that backend its round, nothing more.
func (e *Engine) runRound(ctx context.Context, limiter *CallLimiter, query string, plan roundPlan, textByLabel map[ranking.Label]string) BootstrapRound {
	start := time.Now()
	prompt := renderEvaluationPrompt(query, plan.criterion, plan.presentation, textByLabel)
	messages := []backend.Message{backend.UserMessage(prompt)}

	shuffled := ranking.Labels(len(plan.presentation))
	inv := invertPresentation(plan.presentation)

	round := BootstrapRound{
		Index:        plan.index,
		Criterion:    plan.criterion,
		Presentation: plan.presentation,
		RawReplies:   make(map[string]string, len(e.cfg.Backends)),
		Rankings:     make(map[string][]ranking.Label, len(e.cfg.Backends)),
	}

	type reply struct {
		id   string
		text string
	}
	replies := make([]*reply, len(e.cfg.Backends))

	var wg sync.WaitGroup
	for idx, id := range e.cfg.Backends {
		wg.Add(1)
		go func(idx int, id string) {
			defer wg.Done()
			stage := fmt.Sprintf("%s/round-%d", StagePeerRanking, plan.index)
			text, err := e.invoke(ctx, limiter, id, stage, messages)
			if err != nil {
				return
			}
			replies[idx] = &reply{id: id, text: text}
		}(idx, id)
	}
	wg.Wait()

	parsed := 0
	for _, rep := range replies {
		if rep == nil {
			continue
		}
		round.RawReplies[rep.id] = rep.text

		canonical := make([]ranking.Label, 0, len(shuffled))
		for _, l := range e.parser.Parse(rep.text, shuffled) {
			canonical = append(canonical, inv[l])
		}
		round.Rankings[rep.id] = canonical
		if len(canonical) > 0 {
			parsed++
		}
	}

	e.logger.Info("Bootstrap round completed",
		"round", plan.index,
		"criterion", plan.criterion.Name,
		"replies", len(round.RawReplies),
		"parsed_rankings", parsed,
		"duration", time.Since(start))
	return round
}

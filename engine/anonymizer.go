package engine

import "github.com/isamwata/llmcouncil/ranking"

// assignLabels gives each successful Stage-1 response its canonical label,
// deterministically in response order (first response gets "Response A").
// The returned label-to-backend map is a bijection and is never mutated
// afterwards; anonymity is a Stage-2-only property, so the map is handed to
// the chair and the caller in the clear.
func assignLabels(responses []ModelResponse) ([]ranking.Label, map[ranking.Label]string) {
	labels := ranking.Labels(len(responses))
	byLabel := make(map[ranking.Label]string, len(responses))
	for i, r := range responses {
		byLabel[labels[i]] = r.BackendID
	}
	return labels, byLabel
}

// permute returns a fresh random presentation order over the canonical
// labels. Each call draws from the engine's randomness source, so repeated
// rounds within one run see different orderings; a constant permutation
// would defeat the position-bias reduction entirely.
func (e *Engine) permute(labels []ranking.Label) []ranking.Label {
	e.rngMu.Lock()
	perm := e.rng.Perm(len(labels))
	e.rngMu.Unlock()

	out := make([]ranking.Label, len(labels))
	for i, p := range perm {
		out[i] = labels[p]
	}
	return out
}

// invertPresentation maps the shuffled label an evaluator saw at position i
// back to the canonical label of the response shown there. Parsed rankings
// pass through this lookup before they are stored, so everything downstream
// of a round speaks canonical labels only.
func invertPresentation(presentation []ranking.Label) map[ranking.Label]ranking.Label {
	inv := make(map[ranking.Label]ranking.Label, len(presentation))
	for i, canonical := range presentation {
		inv[ranking.LabelFor(i)] = canonical
	}
	return inv
}

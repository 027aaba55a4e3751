package ranking

import (
	"fmt"
	"sort"
)

// Method selects the voting rule used to collapse a backend's per-round
// rankings into a single ordering.
type Method string

const (
	// BordaCount awards a label at 1-indexed position p the score N-p+1
	// (N = number of subjects) per round, summed across rounds; higher is
	// better. This is the default rule.
	BordaCount Method = "borda_count"

	// PositionAverage orders labels by ascending mean position across the
	// rounds in which they appear. Labels an evaluator never ranked are
	// excluded from its mean, not imputed.
	PositionAverage Method = "position_average"

	// ConsensusScore rewards consistently high placement. Its current
	// formula is identical to BordaCount; it remains a distinct selectable
	// rule so configurations naming it keep working if the formula diverges.
	ConsensusScore Method = "consensus_score"
)

// ParseMethod converts a configuration string into a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case BordaCount, PositionAverage, ConsensusScore:
		return Method(s), nil
	case "":
		return BordaCount, nil
	default:
		return "", fmt.Errorf("unknown aggregation method %q", s)
	}
}

// BackendAggregate holds one evaluating backend's derived scores and
// positions per canonical label across all rounds it participated in, plus
// the resulting ordered-by-quality label sequence.
type BackendAggregate struct {
	Evaluator string `json:"evaluator"`
	Method    Method `json:"method"`
	Rounds    int    `json:"rounds"`

	// Scores holds summed Borda/consensus points. Empty for PositionAverage.
	Scores map[Label]float64 `json:"scores,omitempty"`
	// MeanPositions holds the mean 1-indexed position per ranked label.
	MeanPositions map[Label]float64 `json:"mean_positions,omitempty"`
	// Counts holds how many rounds ranked each label.
	Counts map[Label]int `json:"counts"`
	// Order is the final ordering, best first. Labels this evaluator never
	// ranked in any round are omitted rather than imputed a position.
	Order []Label `json:"order"`
}

// Aggregate collapses one evaluator's per-round rankings into a single
// ordering under the given rule. subjects is the full canonical label set in
// declaration order; it fixes N for Borda scoring and provides the
// deterministic tie-break (equal scores or means resolve to the earlier
// canonical label). The output depends only on the inputs, so identical
// rounds always produce identical aggregates.
func Aggregate(method Method, evaluator string, rounds [][]Label, subjects []Label) BackendAggregate {
	n := len(subjects)
	agg := BackendAggregate{
		Evaluator:     evaluator,
		Method:        method,
		Rounds:        len(rounds),
		Counts:        make(map[Label]int, n),
		MeanPositions: make(map[Label]float64, n),
	}
	if method != PositionAverage {
		agg.Scores = make(map[Label]float64, n)
	}

	posSums := make(map[Label]int, n)
	for _, round := range rounds {
		for i, l := range round {
			p := i + 1
			agg.Counts[l]++
			posSums[l] += p
			if agg.Scores != nil {
				agg.Scores[l] += float64(n - p + 1)
			}
		}
	}
	for l, c := range agg.Counts {
		agg.MeanPositions[l] = float64(posSums[l]) / float64(c)
	}

	// Ranked labels in canonical order, then stable-sorted by the rule's
	// key, so ties keep canonical label order.
	var ranked []Label
	for _, l := range subjects {
		if agg.Counts[l] > 0 {
			ranked = append(ranked, l)
		}
	}
	switch method {
	case PositionAverage:
		sort.SliceStable(ranked, func(i, j int) bool {
			return agg.MeanPositions[ranked[i]] < agg.MeanPositions[ranked[j]]
		})
	default:
		sort.SliceStable(ranked, func(i, j int) bool {
			return agg.Scores[ranked[i]] > agg.Scores[ranked[j]]
		})
	}
	agg.Order = ranked

	return agg
}

package ranking

import "sort"

// SubjectRank is one subject backend's standing in the cross-backend
// aggregate: the mean 1-indexed position its response received across all
// evaluators that ranked it.
type SubjectRank struct {
	BackendID  string  `json:"backend_id"`
	Label      Label   `json:"label"`
	MeanRank   float64 `json:"mean_rank"`
	Evaluators int     `json:"evaluators"`
}

// CrossAggregate converts all evaluators' final orderings (reinterpreted as
// rank positions) plus the label-to-backend map into a single global
// ordering, ascending by mean position (lower is better). Subjects never
// ranked by any evaluator are omitted. Ties resolve to the earlier canonical
// label, keeping the output deterministic.
func CrossAggregate(aggregates []BackendAggregate, labelToBackend map[Label]string, subjects []Label) []SubjectRank {
	posSums := make(map[Label]float64, len(subjects))
	counts := make(map[Label]int, len(subjects))
	for _, agg := range aggregates {
		for i, l := range agg.Order {
			posSums[l] += float64(i + 1)
			counts[l]++
		}
	}

	var out []SubjectRank
	for _, l := range subjects {
		if counts[l] == 0 {
			continue
		}
		out = append(out, SubjectRank{
			BackendID:  labelToBackend[l],
			Label:      l,
			MeanRank:   posSums[l] / float64(counts[l]),
			Evaluators: counts[l],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MeanRank < out[j].MeanRank
	})
	return out
}

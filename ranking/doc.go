// Package ranking implements the structured-data contract between the
// deliberation stages: anonymized response labels, the best-effort parser
// that recovers orderings from free-form evaluation text, and the rank
// aggregation rules that turn noisy per-round orderings into stable
// per-evaluator and cross-backend results.
//
// Parsing is deliberately forgiving. Model replies frequently deviate from
// the requested format, so the parser accepts partial rankings rather than
// rejecting a round outright; aggregation copes with missing positions.
package ranking

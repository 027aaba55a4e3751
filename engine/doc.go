// Package engine implements the three-stage deliberation protocol: collect
// independent answers from every council backend, have the same backends
// peer-rank each other's anonymized answers under repeated randomized
// bootstrap rounds, and let a separate chair backend synthesize a final
// answer from the full record.
//
// The engine is built around graceful degradation. A backend can fail any
// individual call and costs the run only its own contribution; parsing
// shortfalls yield partial rankings rather than errors; a missing chair
// degrades to the best-ranked Stage-1 response. Only two conditions abort a
// run: an invalid configuration (caught at construction) and a Stage 1 in
// which every backend failed.
//
// All backend invocations within a stage are issued concurrently and the
// engine waits for every call to settle before moving on. The engine holds
// no cross-run state beyond its configuration; retrieval, persistence and
// transport all live with the caller.
package engine

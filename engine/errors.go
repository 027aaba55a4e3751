package engine

import "errors"

var (
	// ErrNoResponses is returned when every backend fails Stage 1, leaving
	// nothing to deliberate over. This is one of the two conditions that
	// abort a run without producing a Result.
	ErrNoResponses = errors.New("no backend produced a response")

	// ErrChairIsMember is returned at construction when the chair backend is
	// also listed as a deliberating backend. The chair must stay outside the
	// council so the synthesis is not ranked by its own author.
	ErrChairIsMember = errors.New("chair backend must not be a deliberating backend")

	// ErrUnknownBackend is returned at construction when a configured
	// backend id has no registered invoker.
	ErrUnknownBackend = errors.New("no invoker registered for backend")
)

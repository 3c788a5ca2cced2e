package engine

import "errors"

// Sentinel errors for pipeline runs. Wrap with context using
// fmt.Errorf("%w: details", ErrXxx) and check with errors.Is().
var (
	// ErrInvalidInput indicates the caller supplied an empty query or
	// a missing message history. Surfaced before any events are emitted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRetrieval indicates the Retriever collaborator failed.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrSynthesis indicates the language model collaborator failed.
	ErrSynthesis = errors.New("synthesis failed")

	// ErrInvalidTemplate indicates a context prompt template without
	// the required substitution points. This is a configuration error,
	// not a runtime one.
	ErrInvalidTemplate = errors.New("invalid context prompt template")
)

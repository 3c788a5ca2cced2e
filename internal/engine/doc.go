// Package engine implements the retrieval-augmented chat pipeline.
//
// A pipeline run is a linear state machine with four stages:
//
//	Setup → Retrieve → PostProcess → Synthesize
//
// Each stage consumes the typed event produced by the previous one.
// Setup validates input and seeds the per-run memory buffer. Retrieve
// asks the Retriever for the top-K relevant nodes. PostProcess is a
// pass-through extension point for filtering or reranking. Synthesize
// builds the context-augmented prompt and streams the model completion.
//
// While the stages execute, the run emits ProgressEvents into a buffered
// channel exposed via Handle.Events; the final Result becomes available
// through Handle.Wait once the event stream is drained. Exactly one
// producer and one consumer per run.
//
// The engine performs no retries; failures from the Retriever or the
// model abort the run and surface through Handle.Wait wrapped with the
// ErrRetrieval / ErrSynthesis sentinels.
package engine

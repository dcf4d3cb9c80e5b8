package domain

import (
	"errors"
	"fmt"
)

// Configuration-time sentinels. These surface while a flow is being declared
// and must prevent the engine from serving an inconsistent step graph.
var (
	// ErrDuplicateStep is returned when a step name is registered twice.
	ErrDuplicateStep = errors.New("duplicate step")

	// ErrUnknownStep is returned when an operation names a step that is not
	// registered, or no longer part of the resolved flow.
	ErrUnknownStep = errors.New("unknown step")
)

// Store-level sentinels.
var (
	// ErrCheckoutNotFound is returned when a checkout ID is absent from the store.
	ErrCheckoutNotFound = errors.New("checkout not found")

	// ErrVersionConflict is returned when an optimistic save loses the race:
	// the stored version no longer matches the version the caller loaded.
	ErrVersionConflict = errors.New("checkout version conflict")
)

// FlowResolutionError reports a step graph that cannot be ordered for a given
// context: a dangling before/after reference to a step that was never
// registered, or a cycle among the active ordering constraints. It is
// recoverable per request; the configuration itself may still be valid for
// other contexts.
type FlowResolutionError struct {
	// Step is the step whose placement failed, when known.
	Step string
	// Anchor is the missing reference target for dangling references.
	Anchor string
	// Cycle is true when the constraints contradict each other.
	Cycle bool
}

func (e *FlowResolutionError) Error() string {
	if e.Cycle {
		return fmt.Sprintf("flow resolution: ordering cycle involving step %q", e.Step)
	}
	return fmt.Sprintf("flow resolution: step %q references unregistered step %q", e.Step, e.Anchor)
}

// HookError wraps a failure from a pre-entry hook. The transition it guarded
// is aborted; no partial state is committed.
type HookError struct {
	Step string
	Err  error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook for step %q failed: %v", e.Step, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

package domain

// RejectReason enumerates the guard rejection causes so callers can branch on
// them instead of parsing text.
type RejectReason string

const (
	// ReasonMissingAddress rejects entry to a step that requires a valid address.
	ReasonMissingAddress RejectReason = "missing_address"
	// ReasonOutstandingBalance rejects completion while money is still owed.
	ReasonOutstandingBalance RejectReason = "outstanding_balance"
	// ReasonCustomPrecondition rejects when a step's own CanEnter predicate fails.
	ReasonCustomPrecondition RejectReason = "custom_precondition_failed"
	// ReasonRetreatForbidden rejects going back from a step that disallows it.
	ReasonRetreatForbidden RejectReason = "retreat_forbidden"
	// ReasonFlowBoundary rejects a retreat from the first step of the flow.
	ReasonFlowBoundary RejectReason = "flow_boundary"
)

// Verdict is the outcome of a guard check.
type Verdict struct {
	Allowed bool
	Reason  RejectReason // set when !Allowed
}

// Allow is the passing verdict.
func Allow() Verdict { return Verdict{Allowed: true} }

// Reject produces a failing verdict with an enumerable reason.
func Reject(reason RejectReason) Verdict { return Verdict{Reason: reason} }

// Outcome classifies a transition result.
type Outcome string

const (
	// OutcomeCommitted means the checkout moved to a new step.
	OutcomeCommitted Outcome = "committed"
	// OutcomeRejected means a guard refused the move; no state changed.
	OutcomeRejected Outcome = "rejected"
	// OutcomeErrored means resolution or a hook failed; no state changed.
	OutcomeErrored Outcome = "errored"
)

// Result is the typed outcome of Advance, Retreat, or Jump. Per-request
// failures travel inside it; nothing is thrown past the orchestrator.
type Result struct {
	Outcome Outcome

	// NewStep is set on commit: the step the checkout now sits on.
	NewStep string

	// Terminal is set on the commit that completes the checkout.
	Terminal bool

	// Reason is set when Outcome is OutcomeRejected.
	Reason RejectReason

	// Err is set when Outcome is OutcomeErrored. It is a *FlowResolutionError,
	// a *HookError, or a sentinel such as ErrUnknownStep.
	Err error
}

// Committed reports whether the transition was applied.
func (r Result) Committed() bool { return r.Outcome == OutcomeCommitted }

package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter  EventType = "step_enter"
	EventStepLeave  EventType = "step_leave"
	EventRejected   EventType = "rejected"
	EventHookFailed EventType = "hook_failed"
)

// StepEvent describes entering or leaving a step, or a refused move.
type StepEvent struct {
	Timestamp  time.Time    `json:"timestamp"`
	Type       EventType    `json:"type"`
	CheckoutID string       `json:"checkout_id"`
	Step       string       `json:"step"`
	Direction  string       `json:"direction,omitempty"` // advance, retreat, jump
	Reason     RejectReason `json:"reason,omitempty"`    // set for EventRejected
	Err        error        `json:"-"`                   // set for EventHookFailed
}

// LifecycleHooks defines observability callbacks fired by the orchestrator.
// All callbacks are optional and must not mutate the checkout.
type LifecycleHooks struct {
	OnStepEnter  func(context.Context, *StepEvent)
	OnStepLeave  func(context.Context, *StepEvent)
	OnRejected   func(context.Context, *StepEvent)
	OnHookFailed func(context.Context, *StepEvent)
}

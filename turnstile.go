package turnstile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ferrou/turnstile/internal/logging"
	"github.com/ferrou/turnstile/pkg/domain"
	"github.com/ferrou/turnstile/pkg/flow"
	"github.com/ferrou/turnstile/pkg/registry"
)

// Version is the library version reported by the CLI.
const Version = "0.3.0"

// Transition directions reported in lifecycle events.
const (
	DirectionAdvance = "advance"
	DirectionRetreat = "retreat"
	DirectionJump    = "jump"
)

// Engine is the checkout orchestrator: it ties the flow definition, the
// guards, and the pre-entry hooks together and drives a checkout through the
// active step sequence. The Engine mutates only the checkout's CurrentStep,
// Status, and History; persistence is the caller's job, gated by the store's
// optimistic version check.
type Engine struct {
	def       *flow.Definition
	hooks     *registry.Registry
	lifecycle domain.LifecycleHooks
	logger    *slog.Logger
	observe   func(time.Duration)
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.lifecycle = hooks
	}
}

// WithHookRegistry injects a pre-populated pre-entry hook registry.
func WithHookRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.hooks = r
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithResolveObserver registers a callback that receives the duration of every
// flow resolution, e.g. observability.Metrics.ObserveResolve.
func WithResolveObserver(fn func(time.Duration)) Option {
	return func(e *Engine) {
		e.observe = fn
	}
}

// New initializes an Engine over a frozen flow definition.
//
// The definition is assumed validated for startup purposes; hosts that want
// to fail fast on dangling references should call def.Validate first (the
// validate CLI command does exactly that). Per-context resolution errors are
// still possible afterwards and are returned as typed results.
func New(def *flow.Definition, opts ...Option) (*Engine, error) {
	if def == nil {
		return nil, fmt.Errorf("flow definition is required")
	}
	e := &Engine{def: def}
	for _, opt := range opts {
		opt(e)
	}
	if e.hooks == nil {
		e.hooks = registry.NewRegistry()
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	return e, nil
}

// Definition returns the frozen flow definition backing the engine.
func (e *Engine) Definition() *flow.Definition { return e.def }

// Hooks returns the pre-entry hook registry for registration during setup.
func (e *Engine) Hooks() *registry.Registry { return e.hooks }

// ResolveFlow computes the ordered active step sequence for a context.
func (e *Engine) ResolveFlow(c domain.Context) ([]string, error) {
	return e.resolve(c)
}

func (e *Engine) resolve(c domain.Context) ([]string, error) {
	if e.observe == nil {
		return e.def.Resolve(c)
	}
	start := time.Now()
	seq, err := e.def.Resolve(c)
	e.observe(time.Since(start))
	return seq, err
}

// PermittedFields returns the mass-assignable fields for a step, applying the
// documented fallback to the confirm step's set.
func (e *Engine) PermittedFields(step string) []string {
	return e.def.PermittedFields(step)
}

// Start creates a checkout session positioned at the first active step and
// runs that step's pre-entry hook.
func (e *Engine) Start(ctx context.Context, id string) (*domain.Checkout, error) {
	c := domain.NewCheckout(id, "")
	seq, err := e.resolve(c)
	if err != nil {
		return nil, err
	}
	if len(seq) == 0 {
		return nil, fmt.Errorf("flow resolved to zero active steps")
	}
	c.CurrentStep = seq[0]
	c.History = []string{seq[0]}

	if err := e.hooks.Dispatch(ctx, seq[0], c); err != nil {
		return nil, err
	}
	e.emit(ctx, e.lifecycle.OnStepEnter, domain.EventStepEnter, c, seq[0], DirectionAdvance, "")
	e.logger.Debug("checkout started", "checkout_id", id, "step", seq[0])
	return c, nil
}

// Advance moves the checkout to the next active step. If the current step is
// the last one, the checkout transitions to the terminal completed state.
// On a guard rejection or a hook failure nothing is mutated.
func (e *Engine) Advance(ctx context.Context, c *domain.Checkout) domain.Result {
	if c.Status == domain.StatusCompleted {
		return e.rejected(ctx, c, c.CurrentStep, DirectionAdvance, domain.ReasonFlowBoundary)
	}
	seq, err := e.resolve(c)
	if err != nil {
		return errored(err)
	}

	idx, found := position(seq, c)
	var target string
	switch {
	case found && idx == len(seq)-1:
		// Terminal marker: leaving the final step completes the checkout.
		return e.complete(ctx, c)
	case found:
		target = seq[idx+1]
	case idx >= 0:
		// Current step vanished from the flow (a condition flipped
		// mid-session). Resume after the nearest surviving history entry
		// instead of stranding the checkout.
		if idx == len(seq)-1 {
			return e.complete(ctx, c)
		}
		target = seq[idx+1]
	default:
		// Nothing in the history survived either; re-enter at the front.
		target = seq[0]
	}

	return e.transition(ctx, c, target, DirectionAdvance)
}

// Retreat moves the checkout to the previous active step. Steps may forbid
// retreat via a data-driven rule (e.g. after payment capture).
func (e *Engine) Retreat(ctx context.Context, c *domain.Checkout) domain.Result {
	if c.Status == domain.StatusCompleted {
		return e.rejected(ctx, c, c.CurrentStep, DirectionRetreat, domain.ReasonFlowBoundary)
	}
	if e.def.RetreatForbidden(c.CurrentStep, c) {
		return e.rejected(ctx, c, c.CurrentStep, DirectionRetreat, domain.ReasonRetreatForbidden)
	}
	seq, err := e.resolve(c)
	if err != nil {
		return errored(err)
	}

	idx, found := position(seq, c)
	var target string
	switch {
	case found && idx == 0:
		return e.rejected(ctx, c, c.CurrentStep, DirectionRetreat, domain.ReasonFlowBoundary)
	case found:
		target = seq[idx-1]
	case idx >= 0:
		// Skipped step: retreat to the nearest surviving history entry itself.
		target = seq[idx]
	default:
		return e.rejected(ctx, c, c.CurrentStep, DirectionRetreat, domain.ReasonFlowBoundary)
	}

	return e.transition(ctx, c, target, DirectionRetreat)
}

// Jump navigates directly to a named step (e.g. an "edit address" link).
// Only the target step's guard is checked; intermediate guards do not rerun.
// The target must be part of the current active flow.
func (e *Engine) Jump(ctx context.Context, c *domain.Checkout, step string) domain.Result {
	if c.Status == domain.StatusCompleted {
		return e.rejected(ctx, c, step, DirectionJump, domain.ReasonFlowBoundary)
	}
	seq, err := e.resolve(c)
	if err != nil {
		return errored(err)
	}
	if indexOf(seq, step) < 0 {
		return errored(fmt.Errorf("%w: %s", domain.ErrUnknownStep, step))
	}
	return e.transition(ctx, c, step, DirectionJump)
}

// transition commits a guarded move to target.
func (e *Engine) transition(ctx context.Context, c *domain.Checkout, target, direction string) domain.Result {
	if v := e.def.Guard(target, c); !v.Allowed {
		return e.rejected(ctx, c, target, direction, v.Reason)
	}

	// Pre-entry hook runs after the guard but before the commit, so a hook
	// failure leaves no partial state behind.
	if err := e.hooks.Dispatch(ctx, target, c); err != nil {
		e.emit(ctx, e.lifecycle.OnHookFailed, domain.EventHookFailed, c, target, direction, "")
		e.logger.Warn("pre-entry hook failed", "checkout_id", c.ID, "step", target, "err", err)
		return errored(err)
	}

	prev := c.CurrentStep
	e.emit(ctx, e.lifecycle.OnStepLeave, domain.EventStepLeave, c, prev, direction, "")
	c.CurrentStep = target
	c.History = append(c.History, target)
	e.emit(ctx, e.lifecycle.OnStepEnter, domain.EventStepEnter, c, target, direction, "")

	e.logger.Debug("checkout transition", "checkout_id", c.ID, "from", prev, "to", target, "direction", direction)
	return domain.Result{Outcome: domain.OutcomeCommitted, NewStep: target}
}

// complete finalizes the checkout past its last active step.
func (e *Engine) complete(ctx context.Context, c *domain.Checkout) domain.Result {
	e.emit(ctx, e.lifecycle.OnStepLeave, domain.EventStepLeave, c, c.CurrentStep, DirectionAdvance, "")
	c.Status = domain.StatusCompleted
	e.logger.Debug("checkout completed", "checkout_id", c.ID, "step", c.CurrentStep)
	return domain.Result{Outcome: domain.OutcomeCommitted, NewStep: c.CurrentStep, Terminal: true}
}

func (e *Engine) rejected(ctx context.Context, c *domain.Checkout, step, direction string, reason domain.RejectReason) domain.Result {
	e.emit(ctx, e.lifecycle.OnRejected, domain.EventRejected, c, step, direction, reason)
	e.logger.Debug("transition rejected", "checkout_id", c.ID, "step", step, "direction", direction, "reason", string(reason))
	return domain.Result{Outcome: domain.OutcomeRejected, Reason: reason}
}

func errored(err error) domain.Result {
	return domain.Result{Outcome: domain.OutcomeErrored, Err: err}
}

func (e *Engine) emit(ctx context.Context, fn func(context.Context, *domain.StepEvent), typ domain.EventType, c *domain.Checkout, step, direction string, reason domain.RejectReason) {
	if fn == nil {
		return
	}
	fn(ctx, &domain.StepEvent{
		Timestamp:  time.Now(),
		Type:       typ,
		CheckoutID: c.ID,
		Step:       step,
		Direction:  direction,
		Reason:     reason,
	})
}

// position locates the checkout inside the resolved sequence.
//
// Returns (index, true) when the current step is present. When it is not,
// it walks the history backwards for the nearest surviving step and returns
// (that index, false); (-1, false) means no anchor survived at all.
func position(seq []string, c *domain.Checkout) (int, bool) {
	if idx := indexOf(seq, c.CurrentStep); idx >= 0 {
		return idx, true
	}
	for i := len(c.History) - 1; i >= 0; i-- {
		if c.History[i] == c.CurrentStep {
			continue
		}
		if idx := indexOf(seq, c.History[i]); idx >= 0 {
			return idx, false
		}
	}
	return -1, false
}

func indexOf(seq []string, name string) int {
	for i, v := range seq {
		if v == name {
			return i
		}
	}
	return -1
}

// IsHookError reports whether a result error came from a pre-entry hook.
func IsHookError(err error) bool {
	var herr *domain.HookError
	return errors.As(err, &herr)
}

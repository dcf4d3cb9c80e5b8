package turnstile_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ferrou/turnstile"
	"github.com/ferrou/turnstile/pkg/domain"
	"github.com/ferrou/turnstile/pkg/flow"
	"github.com/ferrou/turnstile/pkg/registry"
)

func newEngine(t *testing.T, b *flow.Builder, opts ...turnstile.Option) *turnstile.Engine {
	t.Helper()
	def, err := b.Freeze()
	if err != nil {
		t.Fatalf("freeze failed: %v", err)
	}
	eng, err := turnstile.New(def, opts...)
	if err != nil {
		t.Fatalf("engine init failed: %v", err)
	}
	return eng
}

func TestStart_FirstActiveStep(t *testing.T) {
	eng := newEngine(t, flow.Default())
	c, err := eng.Start(context.Background(), "chk-1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if c.CurrentStep != domain.StepCart {
		t.Errorf("expected start at cart, got %s", c.CurrentStep)
	}
}

func TestAdvance_HappyPath(t *testing.T) {
	eng := newEngine(t, flow.Default())
	ctx := context.Background()

	c, err := eng.Start(ctx, "chk-1")
	if err != nil {
		t.Fatal(err)
	}
	c.AddressValid = true // delivery's built-in guard needs this

	want := []string{"address", "delivery", "payment", "confirm", "complete"}
	for _, step := range want {
		res := eng.Advance(ctx, c)
		if !res.Committed() {
			t.Fatalf("advance to %s failed: %+v", step, res)
		}
		if c.CurrentStep != step {
			t.Fatalf("expected %s, got %s", step, c.CurrentStep)
		}
	}

	// Leaving the final step completes the session.
	res := eng.Advance(ctx, c)
	if !res.Committed() || !res.Terminal {
		t.Fatalf("expected terminal commit, got %+v", res)
	}
	if c.Status != domain.StatusCompleted {
		t.Errorf("expected completed status, got %s", c.Status)
	}

	// A completed checkout accepts no further moves.
	if res := eng.Advance(ctx, c); res.Outcome != domain.OutcomeRejected {
		t.Errorf("advance after completion should reject, got %+v", res)
	}
}

func TestAdvance_RejectsMissingAddress(t *testing.T) {
	eng := newEngine(t, flow.Default())
	ctx := context.Background()

	c, _ := eng.Start(ctx, "chk-1")
	if res := eng.Advance(ctx, c); !res.Committed() {
		t.Fatalf("cart -> address failed: %+v", res)
	}

	// No valid address: the move into delivery must be refused untouched.
	res := eng.Advance(ctx, c)
	if res.Outcome != domain.OutcomeRejected || res.Reason != domain.ReasonMissingAddress {
		t.Fatalf("expected MissingAddress rejection, got %+v", res)
	}
	if c.CurrentStep != domain.StepAddress {
		t.Errorf("rejection must not move the checkout, now at %s", c.CurrentStep)
	}
}

func TestAdvance_RejectsOutstandingBalance(t *testing.T) {
	eng := newEngine(t, flow.Default())
	ctx := context.Background()

	c, _ := eng.Start(ctx, "chk-1")
	c.AddressValid = true
	c.BalanceCents = 199

	for i := 0; i < 4; i++ { // cart -> ... -> confirm
		if res := eng.Advance(ctx, c); !res.Committed() {
			t.Fatalf("setup advance %d failed: %+v", i, res)
		}
	}

	res := eng.Advance(ctx, c)
	if res.Outcome != domain.OutcomeRejected || res.Reason != domain.ReasonOutstandingBalance {
		t.Fatalf("expected OutstandingBalance rejection, got %+v", res)
	}

	c.BalanceCents = 0
	if res := eng.Advance(ctx, c); !res.Committed() || c.CurrentStep != domain.StepComplete {
		t.Fatalf("paid-off advance failed: %+v (at %s)", res, c.CurrentStep)
	}
}

func TestRetreat(t *testing.T) {
	b := flow.Default()
	b.RestrictRetreat(domain.StepConfirm, domain.Context.PaymentCaptured)
	eng := newEngine(t, b)
	ctx := context.Background()

	c, _ := eng.Start(ctx, "chk-1")

	// From the first step there is nowhere to go back to.
	res := eng.Retreat(ctx, c)
	if res.Outcome != domain.OutcomeRejected || res.Reason != domain.ReasonFlowBoundary {
		t.Fatalf("expected FlowBoundary rejection, got %+v", res)
	}

	c.AddressValid = true
	for i := 0; i < 4; i++ {
		eng.Advance(ctx, c)
	}
	if c.CurrentStep != domain.StepConfirm {
		t.Fatalf("setup: expected confirm, got %s", c.CurrentStep)
	}

	// Before capture, going back is fine.
	if res := eng.Retreat(ctx, c); !res.Committed() || c.CurrentStep != domain.StepPayment {
		t.Fatalf("retreat failed: %+v (at %s)", res, c.CurrentStep)
	}

	// After capture, the data-driven rule forbids it.
	eng.Advance(ctx, c)
	c.Captured = true
	res = eng.Retreat(ctx, c)
	if res.Outcome != domain.OutcomeRejected || res.Reason != domain.ReasonRetreatForbidden {
		t.Fatalf("expected RetreatForbidden, got %+v", res)
	}
}

func TestJump_BypassesIntermediateGuards(t *testing.T) {
	eng := newEngine(t, flow.Default())
	ctx := context.Background()

	c, _ := eng.Start(ctx, "chk-1")

	// delivery's guard would fail (no address), but a direct jump to payment
	// only checks payment's own guard.
	res := eng.Jump(ctx, c, domain.StepPayment)
	if !res.Committed() || c.CurrentStep != domain.StepPayment {
		t.Fatalf("jump failed: %+v (at %s)", res, c.CurrentStep)
	}

	// The target's own guard still applies.
	res = eng.Jump(ctx, c, domain.StepDelivery)
	if res.Outcome != domain.OutcomeRejected || res.Reason != domain.ReasonMissingAddress {
		t.Fatalf("expected target guard to reject, got %+v", res)
	}

	// An unknown target is a typed error, not a panic.
	res = eng.Jump(ctx, c, "ghost")
	if res.Outcome != domain.OutcomeErrored || !errors.Is(res.Err, domain.ErrUnknownStep) {
		t.Fatalf("expected ErrUnknownStep, got %+v", res)
	}
}

func TestHook_RunsBeforeEntry(t *testing.T) {
	hooks := registry.NewRegistry()
	hooks.Register(domain.StepAddress, func(ctx context.Context, c *domain.Checkout) error {
		c.Fields["address_form"] = "prepared"
		return nil
	})

	eng := newEngine(t, flow.Default(), turnstile.WithHookRegistry(hooks))
	ctx := context.Background()

	c, _ := eng.Start(ctx, "chk-1")
	if res := eng.Advance(ctx, c); !res.Committed() {
		t.Fatalf("advance failed: %+v", res)
	}
	if v, _ := c.Field("address_form"); v != "prepared" {
		t.Error("hook should have run before entering address")
	}
}

func TestHook_FailureAbortsTransition(t *testing.T) {
	boom := errors.New("allocation failed")
	hooks := registry.NewRegistry()
	hooks.Register(domain.StepAddress, func(context.Context, *domain.Checkout) error {
		return boom
	})

	eng := newEngine(t, flow.Default(), turnstile.WithHookRegistry(hooks))
	ctx := context.Background()

	c, _ := eng.Start(ctx, "chk-1")
	res := eng.Advance(ctx, c)
	if res.Outcome != domain.OutcomeErrored {
		t.Fatalf("expected errored result, got %+v", res)
	}
	if !turnstile.IsHookError(res.Err) || !errors.Is(res.Err, boom) {
		t.Errorf("expected wrapped HookError, got %v", res.Err)
	}
	if c.CurrentStep != domain.StepCart {
		t.Errorf("hook failure must not commit, now at %s", c.CurrentStep)
	}
}

func TestLifecycleEvents(t *testing.T) {
	var entered, left []string
	eng := newEngine(t, flow.Default(), turnstile.WithLifecycleHooks(domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, ev *domain.StepEvent) {
			entered = append(entered, ev.Step)
		},
		OnStepLeave: func(_ context.Context, ev *domain.StepEvent) {
			left = append(left, ev.Step)
		},
	}))
	ctx := context.Background()

	c, _ := eng.Start(ctx, "chk-1")
	eng.Advance(ctx, c)

	if len(entered) != 2 || entered[0] != "cart" || entered[1] != "address" {
		t.Errorf("unexpected enter events: %v", entered)
	}
	if len(left) != 1 || left[0] != "cart" {
		t.Errorf("unexpected leave events: %v", left)
	}
}

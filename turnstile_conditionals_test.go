package turnstile_test

import (
	"context"
	"testing"

	"github.com/ferrou/turnstile"
	"github.com/ferrou/turnstile/pkg/domain"
	"github.com/ferrou/turnstile/pkg/flow"
)

// giftWrapFlow is the default sequence plus a conditional gift_wrap step
// before confirm, active only for totals strictly over $50.
func giftWrapFlow(t *testing.T) *turnstile.Engine {
	t.Helper()
	b := flow.Default()
	if err := b.Add("gift_wrap", domain.Before("confirm"), flow.MustCondition("total > 50")); err != nil {
		t.Fatal(err)
	}
	return newEngine(t, b)
}

func TestConditionalStep_AppearsForLargeOrders(t *testing.T) {
	eng := giftWrapFlow(t)
	ctx := context.Background()

	c, _ := eng.Start(ctx, "chk-1")
	c.AddressValid = true
	c.TotalCents = 9900

	seq, err := eng.ResolveFlow(c)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"cart", "address", "delivery", "payment", "gift_wrap", "confirm", "complete"}
	for i, s := range want {
		if seq[i] != s {
			t.Fatalf("flow mismatch at %d: got %v, want %v", i, seq, want)
		}
	}

	for i := 0; i < 4; i++ {
		eng.Advance(ctx, c)
	}
	if res := eng.Advance(ctx, c); !res.Committed() || c.CurrentStep != "gift_wrap" {
		t.Fatalf("expected to land on gift_wrap, got %s (%+v)", c.CurrentStep, res)
	}
}

func TestConditionalStep_AbsentForSmallOrders(t *testing.T) {
	eng := giftWrapFlow(t)
	ctx := context.Background()

	c, _ := eng.Start(ctx, "chk-1")
	c.TotalCents = 4999

	seq, err := eng.ResolveFlow(c)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range seq {
		if s == "gift_wrap" {
			t.Fatalf("gift_wrap should be inactive: %v", seq)
		}
	}
}

// A condition flipping mid-session must not strand the transaction: the step
// it was standing on disappears, and the next move recomputes from the
// nearest surviving step.
func TestConditionalStep_VanishesMidSession(t *testing.T) {
	eng := giftWrapFlow(t)
	ctx := context.Background()

	c, _ := eng.Start(ctx, "chk-1")
	c.AddressValid = true
	c.TotalCents = 9900

	for i := 0; i < 5; i++ { // land on gift_wrap
		if res := eng.Advance(ctx, c); !res.Committed() {
			t.Fatalf("setup advance %d failed: %+v", i, res)
		}
	}
	if c.CurrentStep != "gift_wrap" {
		t.Fatalf("setup: expected gift_wrap, got %s", c.CurrentStep)
	}

	// An item is removed; the total drops below the threshold and gift_wrap
	// is no longer part of the flow.
	c.TotalCents = 3000

	res := eng.Advance(ctx, c)
	if !res.Committed() {
		t.Fatalf("vanished step must not error the checkout: %+v", res)
	}
	if c.CurrentStep != domain.StepConfirm {
		t.Errorf("expected to resume at confirm, got %s", c.CurrentStep)
	}
}

func TestConditionalStep_VanishedRetreat(t *testing.T) {
	eng := giftWrapFlow(t)
	ctx := context.Background()

	c, _ := eng.Start(ctx, "chk-1")
	c.AddressValid = true
	c.TotalCents = 9900

	for i := 0; i < 5; i++ {
		eng.Advance(ctx, c)
	}
	c.TotalCents = 3000

	// Going back from the vanished step lands on the nearest surviving
	// predecessor rather than erroring.
	res := eng.Retreat(ctx, c)
	if !res.Committed() {
		t.Fatalf("retreat from vanished step failed: %+v", res)
	}
	if c.CurrentStep != domain.StepPayment {
		t.Errorf("expected payment, got %s", c.CurrentStep)
	}
}

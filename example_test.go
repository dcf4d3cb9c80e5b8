package turnstile_test

import (
	"context"
	"fmt"
	"log"

	"github.com/ferrou/turnstile"
	"github.com/ferrou/turnstile/pkg/domain"
	"github.com/ferrou/turnstile/pkg/flow"
)

// ExampleNew walks a checkout through the default flow, showing a guard
// rejection when the delivery step is entered without a valid address.
func ExampleNew() {
	// 1. Freeze the default cart -> ... -> complete flow
	def, err := flow.Default().Freeze()
	if err != nil {
		log.Fatal(err)
	}

	eng, err := turnstile.New(def)
	if err != nil {
		log.Fatal(err)
	}

	// 2. Start a session at the first active step
	ctx := context.Background()
	c, err := eng.Start(ctx, "order-1")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("at", c.CurrentStep)

	// 3. Advance until the delivery guard pushes back
	eng.Advance(ctx, c)
	fmt.Println("at", c.CurrentStep)

	res := eng.Advance(ctx, c)
	fmt.Println("rejected:", res.Reason)

	// 4. Fix the checkout data and walk to the end
	c.AddressValid = true
	for {
		res = eng.Advance(ctx, c)
		if !res.Committed() {
			log.Fatal(res.Err)
		}
		if res.Terminal {
			fmt.Println("completed")
			return
		}
		fmt.Println("at", c.CurrentStep)
	}

	// Output:
	// at cart
	// at address
	// rejected: missing_address
	// at delivery
	// at payment
	// at confirm
	// at complete
	// completed
}

// ExampleNew_conditionalStep inserts a gift_wrap step that only activates for
// orders over fifty dollars, so two checkouts resolve to different flows from
// the same definition.
func ExampleNew_conditionalStep() {
	b := flow.Default()
	if err := b.Remove(domain.StepDelivery); err != nil {
		log.Fatal(err)
	}
	if err := b.Add("gift_wrap", domain.Before(domain.StepConfirm), flow.MustCondition("total > 50")); err != nil {
		log.Fatal(err)
	}

	def, err := b.Freeze()
	if err != nil {
		log.Fatal(err)
	}
	eng, err := turnstile.New(def)
	if err != nil {
		log.Fatal(err)
	}

	small := domain.NewCheckout("small", "cart")
	small.TotalCents = 4999
	large := domain.NewCheckout("large", "cart")
	large.TotalCents = 9900

	for _, c := range []*domain.Checkout{small, large} {
		seq, err := eng.ResolveFlow(c)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(c.ID, seq)
	}

	// Output:
	// small [cart address payment confirm complete]
	// large [cart address payment gift_wrap confirm complete]
}

// Command gen-flow scaffolds a sample checkout flow directory: one markdown
// document per step, ready for `turnstile run --dir`.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/loam"

	adapter "github.com/ferrou/turnstile/pkg/adapters/loam"
)

func main() {
	targetDir := "examples/storefront"
	if len(os.Args) > 1 {
		targetDir = os.Args[1]
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		panic(err)
	}

	fmt.Printf("Generating sample flow in: %s\n", targetDir)

	// No versioning: pure file generation.
	repo, err := loam.Init(targetDir, loam.WithVersioning(false))
	if err != nil {
		panic(err)
	}

	typedRepo := loam.NewTypedRepository[adapter.StepMetadata](repo)
	ctx := context.TODO()

	steps := []struct {
		meta    adapter.StepMetadata
		content string
	}{
		{
			meta:    adapter.StepMetadata{ID: "cart", Order: 1, Permitted: []string{"line_items", "coupon_code"}},
			content: "# Your Cart\n\nReview the items in your cart. Type `next` when you are ready.",
		},
		{
			meta:    adapter.StepMetadata{ID: "address", Order: 2, Permitted: []string{"shipping_address", "billing_address"}},
			content: "# Shipping Address\n\nWhere should we send your order?\n\nTry `set address_valid true` to simulate a validated address.",
		},
		{
			meta:    adapter.StepMetadata{ID: "delivery", Order: 3, Permitted: []string{"delivery_method"}},
			content: "# Delivery\n\nPick a delivery method.",
		},
		{
			meta:    adapter.StepMetadata{ID: "payment", Order: 4, Permitted: []string{"payment_method"}},
			content: "# Payment\n\nHow would you like to pay?\n\nTry `set balance 0` to simulate a settled payment.",
		},
		{
			meta: adapter.StepMetadata{
				ID:        "gift_wrap",
				Before:    "confirm",
				Condition: "total > 50",
				Permitted: []string{"gift_message"},
			},
			content: "# Gift Wrapping\n\nOrders over 50 qualify for gift wrapping.",
		},
		{
			meta:    adapter.StepMetadata{ID: "confirm", Order: 5, RetreatRestricted: "payment_captured == true", Permitted: []string{"email", "special_instructions"}},
			content: "# Confirm Your Order\n\nOne last look before we place it.",
		},
		{
			meta:    adapter.StepMetadata{ID: "complete", Order: 6},
			content: "# Thank You\n\nYour order has been placed.",
		},
	}

	for _, s := range steps {
		err := typedRepo.Save(ctx, &loam.DocumentModel[adapter.StepMetadata]{
			ID:      s.meta.ID,
			Content: s.content,
			Data:    s.meta,
		})
		check(err)
	}

	fmt.Println("Done. Verify contents in", targetDir)
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}

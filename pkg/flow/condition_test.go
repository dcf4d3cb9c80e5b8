package flow

import (
	"testing"

	"github.com/ferrou/turnstile/pkg/domain"
)

func TestParseCondition_Amounts(t *testing.T) {
	cases := []struct {
		expr  string
		cents int64
		want  bool
	}{
		{"total > 50", 5001, true},
		{"total > 50", 5000, false},
		{"total > 50", 4999, false},
		{"total >= 50", 5000, true},
		{"total < 10.50", 1049, true},
		{"total < 10.50", 1050, false},
		{"total == 19.99", 1999, true},
		{"total != 19.99", 1999, false},
		{"balance <= 0", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			pred, err := ParseCondition(tc.expr)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			c := domain.NewCheckout("chk", "cart")
			c.TotalCents = tc.cents
			c.BalanceCents = tc.cents
			if got := pred(c); got != tc.want {
				t.Errorf("%s with %d cents: got %v, want %v", tc.expr, tc.cents, got, tc.want)
			}
		})
	}
}

func TestParseCondition_Flags(t *testing.T) {
	pred, err := ParseCondition("payment_captured == true")
	if err != nil {
		t.Fatal(err)
	}
	c := domain.NewCheckout("chk", "cart")
	if pred(c) {
		t.Error("uncaptured checkout should not match")
	}
	c.Captured = true
	if !pred(c) {
		t.Error("captured checkout should match")
	}
}

func TestParseCondition_CustomFields(t *testing.T) {
	c := domain.NewCheckout("chk", "cart")
	c.Fields["loyalty_tier"] = "gold"
	c.Fields["item_count"] = 3

	cases := []struct {
		expr string
		want bool
	}{
		{"loyalty_tier == gold", true},
		{"loyalty_tier == 'gold'", true},
		{"loyalty_tier != silver", true},
		{"item_count >= 3", true},
		{"item_count > 3", false},
		{"missing_field == anything", false},
	}
	for _, tc := range cases {
		pred, err := ParseCondition(tc.expr)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.expr, err)
		}
		if got := pred(c); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestParseCondition_Errors(t *testing.T) {
	for _, expr := range []string{
		"total !!! 50",
		"total >",
		"> 50",
		"total > 50.123",
		"payment_captured > true",
		"address_valid == maybe",
	} {
		if _, err := ParseCondition(expr); err == nil {
			t.Errorf("expected parse error for %q", expr)
		}
	}
}

func TestParseCondition_Empty(t *testing.T) {
	pred, err := ParseCondition("  ")
	if err != nil {
		t.Fatal(err)
	}
	if pred != nil {
		t.Error("empty expression should compile to a nil (always-true) predicate")
	}
}

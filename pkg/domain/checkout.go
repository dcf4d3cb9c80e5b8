package domain

// Status indicates whether a checkout session is still in flight.
type Status string

const (
	// StatusActive means the checkout is progressing through the flow.
	StatusActive Status = "active"
	// StatusCompleted means the checkout advanced past the final step.
	StatusCompleted Status = "completed"
)

// Context is the read side of a checkout transaction, consumed by step
// conditions and guards. The engine owns none of this data; the surrounding
// system supplies it and the engine only reads it.
//
// Monetary values are integer cents to keep comparisons exact.
type Context interface {
	// Step returns the current step name.
	Step() string
	// Total returns the order total in cents.
	Total() int64
	// Balance returns the outstanding balance in cents.
	Balance() int64
	// HasValidAddress reports whether a valid address is attached.
	HasValidAddress() bool
	// PaymentCaptured reports whether a payment has been captured.
	PaymentCaptured() bool
	// Field looks up a custom field referenced by conditions.
	Field(name string) (any, bool)
}

// Checkout is the transaction state for one in-flight purchase. It is created
// per session and lives for the whole checkout. The engine mutates only
// CurrentStep, Status, and History; everything else is host-owned input.
type Checkout struct {
	// ID identifies the checkout session.
	ID string `json:"id"`

	// CurrentStep is the active step name.
	CurrentStep string `json:"current_step"`

	// Status tracks whether the session has reached the terminal state.
	Status Status `json:"status"`

	// TotalCents is the order total in cents.
	TotalCents int64 `json:"total_cents"`

	// BalanceCents is the outstanding balance in cents.
	BalanceCents int64 `json:"balance_cents"`

	// AddressValid reports a present and valid address.
	AddressValid bool `json:"address_valid"`

	// Captured reports a captured payment.
	Captured bool `json:"captured"`

	// Fields holds custom values referenced by step conditions.
	Fields map[string]any `json:"fields,omitempty"`

	// History tracks the path taken through the flow, most recent last.
	// Used to recover when the current step vanishes from the active flow.
	History []string `json:"history,omitempty"`

	// Version is the optimistic concurrency token checked by stores on Save.
	Version uint64 `json:"version"`
}

// NewCheckout creates a fresh active checkout positioned at startStep.
func NewCheckout(id, startStep string) *Checkout {
	return &Checkout{
		ID:          id,
		CurrentStep: startStep,
		Status:      StatusActive,
		Fields:      make(map[string]any),
		History:     []string{startStep},
	}
}

// Clone returns a deep copy, isolating Fields and History from the original.
func (c *Checkout) Clone() *Checkout {
	if c == nil {
		return nil
	}
	next := *c
	next.Fields = make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		next.Fields[k] = v
	}
	next.History = append([]string(nil), c.History...)
	return &next
}

// Context interface implementation.

func (c *Checkout) Step() string          { return c.CurrentStep }
func (c *Checkout) Total() int64          { return c.TotalCents }
func (c *Checkout) Balance() int64        { return c.BalanceCents }
func (c *Checkout) HasValidAddress() bool { return c.AddressValid }
func (c *Checkout) PaymentCaptured() bool { return c.Captured }

func (c *Checkout) Field(name string) (any, bool) {
	v, ok := c.Fields[name]
	return v, ok
}

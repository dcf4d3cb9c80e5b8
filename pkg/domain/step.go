package domain

// Well-known step names. The engine treats step names as opaque tokens, but a
// couple of them carry built-in semantics (structural guard rules and the
// permission fallback), so they get constants.
const (
	// StepCart is the conventional first step of the default flow.
	StepCart = "cart"
	// StepAddress collects the shipping/billing address.
	StepAddress = "address"
	// StepDelivery requires a valid address on the checkout (built-in guard).
	StepDelivery = "delivery"
	// StepPayment collects payment.
	StepPayment = "payment"
	// StepConfirm is the review step. Steps without an explicit permission
	// entry inherit the permission set registered for this step.
	StepConfirm = "confirm"
	// StepComplete requires a zero outstanding balance (built-in guard).
	StepComplete = "complete"
)

// PositionKind discriminates how a step is placed in the resolved order.
type PositionKind int

const (
	// PositionAppend places the step after everything registered before it.
	PositionAppend PositionKind = iota
	// PositionAt pins the step to an absolute index in the base order.
	PositionAt
	// PositionBefore places the step immediately before its anchor.
	PositionBefore
	// PositionAfter places the step immediately after its anchor.
	PositionAfter
)

// Position describes where a step lives relative to the rest of the flow.
// The zero value appends in registration order.
type Position struct {
	Kind   PositionKind
	Anchor string // step name for Before/After
	Index  int    // absolute index for At
}

// Append returns the default position (registration order).
func Append() Position { return Position{Kind: PositionAppend} }

// At pins a step to an absolute index in the base order.
func At(index int) Position { return Position{Kind: PositionAt, Index: index} }

// Before places a step immediately before the named anchor step.
func Before(anchor string) Position { return Position{Kind: PositionBefore, Anchor: anchor} }

// After places a step immediately after the named anchor step.
func After(anchor string) Position { return Position{Kind: PositionAfter, Anchor: anchor} }

// Relative reports whether the position references another step.
func (p Position) Relative() bool {
	return p.Kind == PositionBefore || p.Kind == PositionAfter
}

// Predicate is a pure condition evaluated against a checkout context.
// A nil Predicate is treated as always true.
type Predicate func(Context) bool

// Step is a registered step definition: a name, a placement rule, and an
// optional activation condition. Steps are immutable once the flow is frozen.
type Step struct {
	Name      string
	Position  Position
	Condition Predicate
}

// Active reports whether the step applies to the given context.
func (s Step) Active(c Context) bool {
	if s.Condition == nil {
		return true
	}
	return s.Condition(c)
}

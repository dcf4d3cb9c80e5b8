package flow

import (
	"errors"
	"fmt"

	"github.com/ferrou/turnstile/pkg/domain"
)

// Builder declares a checkout flow: steps, placement, conditions, guards, and
// permission sets. It is a build-then-freeze object: declare everything during
// initialization, call Freeze, and use the resulting Definition for the
// lifetime of the process. The Builder itself is not safe for concurrent use
// and is meant to be discarded after Freeze.
type Builder struct {
	steps   []domain.Step
	byName  map[string]int
	guards  map[string]domain.Predicate
	retreat map[string]domain.Predicate
	perms   map[string][]string
}

// NewBuilder creates an empty flow builder.
func NewBuilder() *Builder {
	return &Builder{
		byName:  make(map[string]int),
		guards:  make(map[string]domain.Predicate),
		retreat: make(map[string]domain.Predicate),
		perms:   make(map[string][]string),
	}
}

// Default returns a builder preloaded with the canonical checkout sequence:
// cart, address, delivery, payment, confirm, complete. All steps are
// unconditional and positioned by registration order, so extensions can
// remove or insert around them freely.
func Default() *Builder {
	b := NewBuilder()
	for _, name := range []string{
		domain.StepCart,
		domain.StepAddress,
		domain.StepDelivery,
		domain.StepPayment,
		domain.StepConfirm,
		domain.StepComplete,
	} {
		// Names are unique by construction here.
		_ = b.Add(name, domain.Append(), nil)
	}
	return b
}

// Add registers a step. It fails with domain.ErrDuplicateStep if the name is
// already present. Positions may reference steps that are not registered yet;
// dangling references surface at resolution time at the latest.
func (b *Builder) Add(name string, pos domain.Position, cond domain.Predicate) error {
	if name == "" {
		return fmt.Errorf("step name must not be empty")
	}
	if _, exists := b.byName[name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateStep, name)
	}
	if pos.Relative() && pos.Anchor == name {
		return fmt.Errorf("step %s cannot be positioned relative to itself", name)
	}
	b.byName[name] = len(b.steps)
	b.steps = append(b.steps, domain.Step{Name: name, Position: pos, Condition: cond})
	return nil
}

// Remove unregisters a step, along with its guard, retreat rule, and
// permission entry. It fails with domain.ErrUnknownStep if the step is absent,
// so a second removal of the same name fails. References to the removed step
// from other steps' positions are left in place; resolving a flow where the
// referencing step is active then fails deterministically.
func (b *Builder) Remove(name string) error {
	idx, exists := b.byName[name]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrUnknownStep, name)
	}
	b.steps = append(b.steps[:idx], b.steps[idx+1:]...)
	delete(b.byName, name)
	for i := idx; i < len(b.steps); i++ {
		b.byName[b.steps[i].Name] = i
	}
	delete(b.guards, name)
	delete(b.retreat, name)
	delete(b.perms, name)
	return nil
}

// Steps returns the registered steps in insertion order, for introspection.
func (b *Builder) Steps() []domain.Step {
	return append([]domain.Step(nil), b.steps...)
}

// Require attaches a custom entry precondition to a step. The guard runs in
// addition to the built-in structural rules and rejects with
// ReasonCustomPrecondition when it returns false.
func (b *Builder) Require(name string, canEnter domain.Predicate) *Builder {
	b.guards[name] = canEnter
	return b
}

// RestrictRetreat forbids retreating from a step while the predicate holds
// (e.g. once payment is captured). Expressed as a guard rejection rather than
// a structural rule, so the policy stays data-driven.
func (b *Builder) RestrictRetreat(name string, forbidden domain.Predicate) *Builder {
	b.retreat[name] = forbidden
	return b
}

// Permit replaces the permitted-field set for a step.
func (b *Builder) Permit(name string, fields ...string) *Builder {
	b.perms[name] = dedup(fields)
	return b
}

// PermitAlso extends the permitted-field set for a step, keeping whatever was
// registered before. The documented use case is appending a custom field to an
// existing step's set.
func (b *Builder) PermitAlso(name string, fields ...string) *Builder {
	b.perms[name] = dedup(append(b.perms[name], fields...))
	return b
}

// Freeze validates the declaration and produces an immutable Definition.
// It rejects ordering cycles among unconditional steps; cycles or dangling
// references that depend on which conditional steps are active can only be
// detected per resolution (or eagerly via Definition.Validate).
func (b *Builder) Freeze() (*Definition, error) {
	d := &Definition{
		steps:   append([]domain.Step(nil), b.steps...),
		byName:  make(map[string]int, len(b.steps)),
		guards:  make(map[string]domain.Predicate, len(b.guards)),
		retreat: make(map[string]domain.Predicate, len(b.retreat)),
		perms:   make(map[string][]string, len(b.perms)),
	}
	for i, s := range d.steps {
		d.byName[s.Name] = i
	}
	for k, v := range b.guards {
		d.guards[k] = v
	}
	for k, v := range b.retreat {
		d.retreat[k] = v
	}
	for k, v := range b.perms {
		d.perms[k] = append([]string(nil), v...)
	}

	// Static pass: a cycle among unconditional steps breaks every resolution,
	// so refuse to freeze. Dangling references are tolerated here; they only
	// matter for contexts where the referencing step is active.
	var unconditional []domain.Step
	for _, s := range d.steps {
		if s.Condition == nil {
			unconditional = append(unconditional, s)
		}
	}
	if _, err := d.order(unconditional, true); err != nil {
		var rerr *domain.FlowResolutionError
		if errors.As(err, &rerr) && rerr.Cycle {
			return nil, fmt.Errorf("freeze: %w", err)
		}
	}
	return d, nil
}

func dedup(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

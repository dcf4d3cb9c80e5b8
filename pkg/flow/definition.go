package flow

import (
	"fmt"
	"sort"

	"github.com/ferrou/turnstile/pkg/domain"
)

// Definition is a frozen checkout flow. It holds the validated step set plus
// guard, retreat, and permission registrations, and answers ordering queries
// for a given checkout context. A Definition is immutable and safe for
// concurrent readers; reconfiguration means building and freezing a new one.
type Definition struct {
	steps   []domain.Step
	byName  map[string]int
	guards  map[string]domain.Predicate
	retreat map[string]domain.Predicate
	perms   map[string][]string
}

// Steps returns all steps in insertion order.
func (d *Definition) Steps() []domain.Step {
	return append([]domain.Step(nil), d.steps...)
}

// Has reports whether a step name is registered, active or not.
func (d *Definition) Has(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// Resolve computes the active flow for a context: conditional filtering first,
// then placement. The result is recomputed on every call, never cached across
// contexts, since conditions are context-dependent. Two calls with an
// unchanged context yield identical sequences.
func (d *Definition) Resolve(c domain.Context) ([]string, error) {
	active := make([]domain.Step, 0, len(d.steps))
	for _, s := range d.steps {
		if s.Active(c) {
			active = append(active, s)
		}
	}
	return d.order(active, false)
}

// Next returns the step following current in the active flow. ok is false when
// current is the last entry (terminal position). If current is not part of the
// freshly resolved flow (a condition may have flipped mid-session) it fails
// with domain.ErrUnknownStep; the orchestrator handles that as a skipped step.
func (d *Definition) Next(current string, c domain.Context) (next string, ok bool, err error) {
	seq, err := d.Resolve(c)
	if err != nil {
		return "", false, err
	}
	for i, name := range seq {
		if name == current {
			if i == len(seq)-1 {
				return "", false, nil
			}
			return seq[i+1], true, nil
		}
	}
	return "", false, fmt.Errorf("%w: %s", domain.ErrUnknownStep, current)
}

// Previous is the mirror of Next.
func (d *Definition) Previous(current string, c domain.Context) (prev string, ok bool, err error) {
	seq, err := d.Resolve(c)
	if err != nil {
		return "", false, err
	}
	for i, name := range seq {
		if name == current {
			if i == 0 {
				return "", false, nil
			}
			return seq[i-1], true, nil
		}
	}
	return "", false, fmt.Errorf("%w: %s", domain.ErrUnknownStep, current)
}

// Guard checks the entry preconditions for a step: built-in structural rules
// first, then the step's own CanEnter predicate. It never mutates state.
func (d *Definition) Guard(step string, c domain.Context) domain.Verdict {
	switch step {
	case domain.StepDelivery:
		if !c.HasValidAddress() {
			return domain.Reject(domain.ReasonMissingAddress)
		}
	case domain.StepComplete:
		if c.Balance() > 0 {
			return domain.Reject(domain.ReasonOutstandingBalance)
		}
	}
	if g, ok := d.guards[step]; ok && g != nil && !g(c) {
		return domain.Reject(domain.ReasonCustomPrecondition)
	}
	return domain.Allow()
}

// RetreatForbidden reports whether going back from step is currently disallowed.
func (d *Definition) RetreatForbidden(step string, c domain.Context) bool {
	p, ok := d.retreat[step]
	return ok && p != nil && p(c)
}

// PermittedFields returns the mass-assignable fields for a step. A step with
// no explicit entry inherits the set registered for "confirm"; if confirm has
// none either, the result is empty, never an error. The returned slice is
// sorted and owned by the caller.
func (d *Definition) PermittedFields(step string) []string {
	fields, ok := d.perms[step]
	if !ok {
		fields = d.perms[domain.StepConfirm]
	}
	out := append([]string(nil), fields...)
	sort.Strings(out)
	return out
}

// Validate resolves the flow assuming every conditional step is active,
// surfacing dangling references and cycles that would otherwise only appear
// for specific contexts. Intended for startup checks and the validate CLI;
// a passing Validate does not remove the need for per-request resolution
// errors, since inactive steps change which constraints apply.
func (d *Definition) Validate() error {
	_, err := d.order(append([]domain.Step(nil), d.steps...), false)
	return err
}

// order places the given (already condition-filtered) steps.
//
// Base steps (Append/At) form the spine: Append steps in registration order,
// then each At step inserted at its index. Relative steps are then inserted
// immediately before or after their anchors, iterating until a fixpoint.
// A relative step whose anchor is registered but inactive loses its
// constraint for this resolution and is appended at the end. An anchor that
// was never registered is a dangling reference; no progress across a full
// round is a cycle. In lenient mode (freeze probe) dangling references are
// placed at the end instead of failing, so only cycles surface.
func (d *Definition) order(steps []domain.Step, lenient bool) ([]string, error) {
	activeSet := make(map[string]bool, len(steps))
	for _, s := range steps {
		activeSet[s.Name] = true
	}

	var placed []string
	var pending []domain.Step
	var at []domain.Step
	for _, s := range steps {
		switch s.Position.Kind {
		case domain.PositionAppend:
			placed = append(placed, s.Name)
		case domain.PositionAt:
			at = append(at, s)
		default:
			pending = append(pending, s)
		}
	}

	// Absolute indexes are applied in (index, registration) order so that two
	// steps pinned to the same slot keep a deterministic relative order.
	sort.SliceStable(at, func(i, j int) bool { return at[i].Position.Index < at[j].Position.Index })
	for _, s := range at {
		idx := s.Position.Index
		if idx < 0 {
			idx = 0
		}
		if idx > len(placed) {
			idx = len(placed)
		}
		placed = insertAt(placed, idx, s.Name)
	}

	for len(pending) > 0 {
		progress := false
		remaining := pending[:0]
		for _, s := range pending {
			anchor := s.Position.Anchor
			if _, registered := d.byName[anchor]; !registered {
				if !lenient {
					return nil, &domain.FlowResolutionError{Step: s.Name, Anchor: anchor}
				}
				placed = append(placed, s.Name)
				progress = true
				continue
			}
			if !activeSet[anchor] {
				// Anchor exists but its condition excluded it: the ordering
				// constraint is dropped for this resolution.
				placed = append(placed, s.Name)
				progress = true
				continue
			}
			idx := indexOf(placed, anchor)
			if idx < 0 {
				// Anchor is itself a relative step not placed yet.
				remaining = append(remaining, s)
				continue
			}
			if s.Position.Kind == domain.PositionBefore {
				placed = insertAt(placed, idx, s.Name)
			} else {
				placed = insertAt(placed, idx+1, s.Name)
			}
			progress = true
		}
		pending = remaining
		if !progress && len(pending) > 0 {
			return nil, &domain.FlowResolutionError{Step: pending[0].Name, Cycle: true}
		}
	}

	return placed, nil
}

func insertAt(list []string, idx int, name string) []string {
	list = append(list, "")
	copy(list[idx+1:], list[idx:])
	list[idx] = name
	return list
}

func indexOf(list []string, name string) int {
	for i, v := range list {
		if v == name {
			return i
		}
	}
	return -1
}

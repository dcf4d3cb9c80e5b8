// Package config loads checkout flow definitions from YAML files.
//
// A flow file declares step additions, removals, permission sets, and
// data-driven rules against the canonical base flow (or from scratch).
// Hooks are code and cannot be declared here; register them on the engine's
// hook registry instead.
package config

import (
	"fmt"
	"os"

	"github.com/ferrou/turnstile/pkg/domain"
	"github.com/ferrou/turnstile/pkg/flow"
	"gopkg.in/yaml.v3"
)

// StepSpec declares one step. Exactly one of Before, After, or At may be set;
// none means append in declaration order.
type StepSpec struct {
	Name      string   `yaml:"name"`
	Before    string   `yaml:"before,omitempty"`
	After     string   `yaml:"after,omitempty"`
	At        *int     `yaml:"at,omitempty"`
	Condition string   `yaml:"condition,omitempty"`
	Permitted []string `yaml:"permitted,omitempty"`
}

// Flow is the top-level YAML document.
type Flow struct {
	// Base selects the starting step set: "default" (the canonical six-step
	// checkout) or "empty". Defaults to "default".
	Base string `yaml:"base,omitempty"`

	// Remove drops steps from the base before additions are applied.
	Remove []string `yaml:"remove,omitempty"`

	// Steps are added in order.
	Steps []StepSpec `yaml:"steps,omitempty"`

	// Permissions replaces permitted-field sets per step.
	Permissions map[string][]string `yaml:"permissions,omitempty"`

	// ExtendPermissions adds fields to existing sets without replacing them.
	ExtendPermissions map[string][]string `yaml:"extend_permissions,omitempty"`

	// Requires attaches entry preconditions (condition expressions) per step.
	Requires map[string]string `yaml:"requires,omitempty"`

	// RetreatRestricted forbids going back from a step while the expression
	// holds, e.g. confirm: payment_captured == true.
	RetreatRestricted map[string]string `yaml:"retreat_restricted,omitempty"`
}

// Load reads and parses a flow file into a Builder, ready to freeze.
func Load(path string) (*flow.Builder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}
	return Parse(data)
}

// Parse builds a flow Builder from YAML content.
func Parse(data []byte) (*flow.Builder, error) {
	var f Flow
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid flow file: %w", err)
	}
	return f.Builder()
}

// Builder applies the declaration to a flow.Builder.
func (f *Flow) Builder() (*flow.Builder, error) {
	var b *flow.Builder
	switch f.Base {
	case "", "default":
		b = flow.Default()
	case "empty":
		b = flow.NewBuilder()
	default:
		return nil, fmt.Errorf("unknown base %q (want default or empty)", f.Base)
	}

	for _, name := range f.Remove {
		if err := b.Remove(name); err != nil {
			return nil, fmt.Errorf("remove: %w", err)
		}
	}

	for _, s := range f.Steps {
		pos, err := s.position()
		if err != nil {
			return nil, err
		}
		cond, err := flow.ParseCondition(s.Condition)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", s.Name, err)
		}
		if err := b.Add(s.Name, pos, cond); err != nil {
			return nil, err
		}
		if len(s.Permitted) > 0 {
			b.Permit(s.Name, s.Permitted...)
		}
	}

	for step, fields := range f.Permissions {
		b.Permit(step, fields...)
	}
	for step, fields := range f.ExtendPermissions {
		b.PermitAlso(step, fields...)
	}

	for step, expr := range f.Requires {
		pred, err := flow.ParseCondition(expr)
		if err != nil {
			return nil, fmt.Errorf("requires %s: %w", step, err)
		}
		b.Require(step, pred)
	}
	for step, expr := range f.RetreatRestricted {
		pred, err := flow.ParseCondition(expr)
		if err != nil {
			return nil, fmt.Errorf("retreat_restricted %s: %w", step, err)
		}
		b.RestrictRetreat(step, pred)
	}

	return b, nil
}

func (s StepSpec) position() (domain.Position, error) {
	set := 0
	pos := domain.Append()
	if s.Before != "" {
		set++
		pos = domain.Before(s.Before)
	}
	if s.After != "" {
		set++
		pos = domain.After(s.After)
	}
	if s.At != nil {
		set++
		pos = domain.At(*s.At)
	}
	if set > 1 {
		return pos, fmt.Errorf("step %s: before, after, and at are mutually exclusive", s.Name)
	}
	return pos, nil
}

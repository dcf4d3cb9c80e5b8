package middleware

import (
	"context"
	"regexp"

	"github.com/ferrou/turnstile/pkg/domain"
	"github.com/ferrou/turnstile/pkg/ports"
)

type piiMiddleware struct {
	next     ports.CheckoutStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks checkout field values
// whose keys match the patterns before they are persisted. The in-memory
// checkout the engine works on is left untouched.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.CheckoutStore) ports.CheckoutStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, c *domain.Checkout) error {
	cloned := c.Clone()
	// Clone copies the Fields map itself but shares nested values, so masking
	// builds fresh maps instead of mutating in place.
	cloned.Fields = maskFields(cloned.Fields, m.patterns)

	if err := m.next.Save(ctx, cloned); err != nil {
		return err
	}

	// Propagate the version bump the store applied to the clone.
	c.Version = cloned.Version
	return nil
}

func (m *piiMiddleware) Load(ctx context.Context, id string) (*domain.Checkout, error) {
	return m.next.Load(ctx, id)
}

func (m *piiMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskFields(fields map[string]any, patterns []*regexp.Regexp) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if matchesAny(k, patterns) {
			out[k] = "***"
			continue
		}
		if subMap, ok := v.(map[string]any); ok {
			out[k] = maskFields(subMap, patterns)
			continue
		}
		out[k] = v
	}
	return out
}

func matchesAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

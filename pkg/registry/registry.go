package registry

import (
	"context"
	"sync"

	"github.com/ferrou/turnstile/pkg/domain"
)

// Hook is a callback invoked before a step is entered. It may mutate
// auxiliary, non-core state on the checkout (or allocate external objects)
// and must be treated as potentially failing: a non-nil error aborts the
// transition that triggered it.
type Hook func(ctx context.Context, c *domain.Checkout) error

// Registry maps step names to their pre-entry hooks. Hooks are registered
// explicitly per step; there is no name-convention dispatch. Registration is
// expected during initialization, but the registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]Hook
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks: make(map[string]Hook),
	}
}

// Register binds a hook to a step name. If a hook for the step exists, it is
// overwritten.
func (r *Registry) Register(step string, fn Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[step] = fn
}

// Unregister removes the hook bound to a step, if any.
func (r *Registry) Unregister(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hooks, step)
}

// Dispatch invokes the hook registered for the step the checkout is about to
// enter. An absent hook is a no-op, not an error. A hook failure is wrapped
// in *domain.HookError.
func (r *Registry) Dispatch(ctx context.Context, step string, c *domain.Checkout) error {
	r.mu.RLock()
	fn, ok := r.hooks[step]
	r.mu.RUnlock()

	if !ok || fn == nil {
		return nil
	}
	if err := fn(ctx, c); err != nil {
		return &domain.HookError{Step: step, Err: err}
	}
	return nil
}

package middleware

import "github.com/ferrou/turnstile/pkg/ports"

// Middleware allows wrapping a CheckoutStore to add behavior.
type Middleware func(ports.CheckoutStore) ports.CheckoutStore

// Chain applies middlewares right to left, so the first one in the list is
// the outermost wrapper.
func Chain(store ports.CheckoutStore, mws ...Middleware) ports.CheckoutStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

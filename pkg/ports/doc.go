/*
Package ports defines the driven ports (interfaces) for the Turnstile engine.

These interfaces decouple the checkout core from external implementations,
allowing the engine to work with various storage backends and locking
strategies.

# Key Interfaces

  - CheckoutStore: persists checkout sessions with an optimistic version check.
  - DistributedLocker: serializes transition attempts across replicas.
*/
package ports

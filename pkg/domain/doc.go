/*
Package domain contains the core domain models for the Turnstile engine.

It defines the fundamental entities of the checkout flow, such as Steps,
Positions, and the Checkout transaction state. This package is kept pure and
free of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Step: a named stage in the checkout flow with a placement rule and an
    optional activation condition.
  - Checkout: the runtime snapshot of one purchase session (current step,
    totals, history, optimistic version).
  - Result / Verdict: typed transition outcomes with enumerable rejection
    reasons.
*/
package domain

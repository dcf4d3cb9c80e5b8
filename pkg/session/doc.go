/*
Package session implements checkout session management and persistence
orchestration.

It provides high-level abstractions for handling concurrent access to checkout
state across multiple replicas, combining per-checkout in-process locking with
optional distributed locking and a persistent store.
*/
package session

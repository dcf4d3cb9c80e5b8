/*
Package flow implements the configurable step graph at the heart of Turnstile.

A Builder collects step declarations (placement, activation conditions,
guards, permission sets) during initialization; Freeze turns it into an
immutable Definition. The Definition resolves the active step sequence per
checkout context, answers adjacency queries, and evaluates entry guards.

Resolution is recomputed on every call: conditional steps may appear or
disappear as the checkout's state changes, and the ordering constraints adapt
accordingly.
*/
package flow

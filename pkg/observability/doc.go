/*
Package observability provides tools for monitoring the checkout engine.

It turns the engine's lifecycle hooks into Prometheus counters for committed
transitions, guard rejections, and hook failures, and serves them over the
standard /metrics endpoint.
*/
package observability

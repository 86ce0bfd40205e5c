// Package pulse adapts the callback-driven native client API to poll-based
// futures and streams.
//
// A Context owns one native connection and the loop driver chosen for it.
// Every request returns a future that, when polled, first asks the driver to
// make progress and then inspects the request's state. Results travel from
// the request's completion callback to the future through a result cell that
// is written only by the callback and taken exactly once by the future.
//
// Nothing in this package is safe for concurrent use: a Context, its futures
// and its subscription must be driven from a single goroutine.
package pulse

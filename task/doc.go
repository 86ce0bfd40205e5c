// Package task defines the poll-based Future and Stream contracts used by
// pulsefut and the small single-goroutine executors that drive them.
//
// A Future is polled with a Waker. When it cannot make progress it returns a
// pending Poll and arranges for the Waker to be invoked once polling again is
// useful. Futures and streams are not safe for concurrent use; an executor
// confines them to one goroutine.
package task

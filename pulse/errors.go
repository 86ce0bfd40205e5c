package pulse

import "errors"

// Failures carry no payload beyond their kind. Callers that only care about
// success can test err != nil.
var (
	// ErrLoop reports that the driving loop quit or failed. It is fatal for
	// every future and stream sharing that loop.
	ErrLoop = errors.New("pulse: event loop quit or failed")
	// ErrConnection reports that the connection reached a failed or
	// terminated state.
	ErrConnection = errors.New("pulse: connection failed")
	// ErrOperation reports that a request completed unsuccessfully.
	ErrOperation = errors.New("pulse: operation failed")
	// ErrCancelled reports that a request was cancelled before completion.
	ErrCancelled = errors.New("pulse: operation cancelled")
	// ErrSubscription reports that enabling change notifications failed.
	ErrSubscription = errors.New("pulse: subscription failed")
	// ErrDisconnected is returned for calls made after Disconnect.
	ErrDisconnected = errors.New("pulse: context disconnected")
)

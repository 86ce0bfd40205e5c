// Package native describes the callback-driven client library wrapped by
// pulsefut. Every request takes a completion callback and returns an
// Operation handle; callbacks only fire while the owning event loop is
// advanced, either by Mainloop.Iterate or by a host loop dispatching them.
//
// Record views handed to callbacks (SinkInfo, ServerInfo, ...) are transient:
// implementations may reuse their slices and maps as soon as the callback
// returns, so consumers must copy anything they keep.
package native

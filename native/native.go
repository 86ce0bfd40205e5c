package native

// IterateResult is the outcome of one Mainloop iteration.
type IterateResult int

const (
	IterateSuccess IterateResult = iota
	IterateQuit
	IterateErr
)

// Mainloop is an event loop owned by the caller and advanced by hand.
type Mainloop interface {
	// Iterate runs one iteration. With block=false it dispatches whatever is
	// pending and returns immediately.
	Iterate(block bool) IterateResult
}

// HostLoop is an externally owned event loop the library can integrate into.
type HostLoop interface {
	// DeferIdle schedules fn at idle priority, after all pending normal
	// priority work of the host.
	DeferIdle(fn func())
}

// ContextState is the connection state reported by Context.State.
type ContextState int

const (
	StateUnconnected ContextState = iota
	StateConnecting
	StateAuthorizing
	StateSettingName
	StateReady
	StateFailed
	StateTerminated
)

func (s ContextState) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthorizing:
		return "authorizing"
	case StateSettingName:
		return "setting_name"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// ConnectFlags modify Context.Connect.
type ConnectFlags uint32

const (
	FlagNoFlags     ConnectFlags = 0
	FlagNoAutoSpawn ConnectFlags = 1 << 0
	FlagNoFail      ConnectFlags = 1 << 1
)

// OperationState is the lifecycle state of a pending request.
type OperationState int

const (
	OperationRunning OperationState = iota
	OperationDone
	OperationCancelled
)

func (s OperationState) String() string {
	switch s {
	case OperationRunning:
		return "running"
	case OperationDone:
		return "done"
	case OperationCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Operation is the handle of one in-flight request.
type Operation interface {
	State() OperationState
	// Cancel stops the request; its callback will not be invoked again.
	Cancel()
}

// ListKind tags a ListResult.
type ListKind int

const (
	ListItem ListKind = iota
	ListEnd
	ListError
)

// ListResult is delivered to list-shaped request callbacks: zero or more
// items followed by exactly one End or Error.
type ListResult[T any] struct {
	Kind ListKind
	Item T
}

// Context is the client connection object.
type Context interface {
	// Connect starts connecting to server, or to the default server when
	// server is empty. An error means the request was refused outright.
	Connect(server string, flags ConnectFlags) error
	Disconnect()
	State() ContextState
	Introspect() Introspector
	// SetSubscribeCallback installs the persistent change-notification
	// callback; nil removes it.
	SetSubscribeCallback(cb func(f Facility, op EventOperation, index uint32))
	// Subscribe enables notifications for the facilities in mask.
	Subscribe(mask InterestMask, cb func(success bool)) Operation
}

// Introspector issues introspection requests on a Context.
type Introspector interface {
	GetSinkInfoList(cb func(ListResult[*SinkInfo])) Operation
	GetSinkInfoByName(name string, cb func(ListResult[*SinkInfo])) Operation
	GetSinkInfoByIndex(index uint32, cb func(ListResult[*SinkInfo])) Operation
	GetServerInfo(cb func(*ServerInfo)) Operation

	SetSinkVolumeByIndex(index uint32, volume ChannelVolumes, cb func(success bool)) Operation
	SetSinkVolumeByName(name string, volume ChannelVolumes, cb func(success bool)) Operation
	SetSinkMuteByIndex(index uint32, mute bool, cb func(success bool)) Operation
	SetSinkMuteByName(name string, mute bool, cb func(success bool)) Operation
	SetSinkPortByIndex(index uint32, port string, cb func(success bool)) Operation
	SetSinkPortByName(name string, port string, cb func(success bool)) Operation
}

package native

// ContextState represents the life-cycle state of a connection context
type ContextState int

const (
	ContextUnconnected ContextState = iota // Not yet connected
	ContextConnecting                      // Socket dialed, handshake not started
	ContextAuthorizing                     // AUTH sent, waiting for server
	ContextSettingName                     // SET_CLIENT_NAME sent
	ContextReady                           // Connection established and usable
	ContextFailed                          // Connection failed or was lost
	ContextTerminated                      // Connection closed by Disconnect
)

// IsGood reports whether the context is in a state where requests can be
// issued
func (s ContextState) IsGood() bool {
	return s == ContextReady
}

// Terminal reports whether no further transitions can occur from this state
func (s ContextState) Terminal() bool {
	return s == ContextFailed || s == ContextTerminated
}

func (s ContextState) String() string {
	switch s {
	case ContextUnconnected:
		return "unconnected"
	case ContextConnecting:
		return "connecting"
	case ContextAuthorizing:
		return "authorizing"
	case ContextSettingName:
		return "setting-name"
	case ContextReady:
		return "ready"
	case ContextFailed:
		return "failed"
	case ContextTerminated:
		return "terminated"
	}
	return "unknown"
}

// OperationState represents the life-cycle state of a server-side operation
type OperationState int

const (
	OperationRunning   OperationState = iota // Request in flight
	OperationDone                            // Server replied
	OperationCancelled                       // Operation was killed before completion
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

// ContextFlags modify connection behavior
type ContextFlags uint32

const (
	ContextNoFlags     ContextFlags = 0
	ContextNoAutospawn ContextFlags = 1 << 0 // Never start a daemon on connect
	ContextNoFail      ContextFlags = 1 << 1 // Stay in connecting state if the daemon is unavailable
)

// SpawnAPI configures daemon autospawning when no server is reachable.
// All fields are optional hooks invoked around the fork of the child.
type SpawnAPI struct {
	Prefork  func()
	Postfork func()
	AtFork   func()
}

// Volume is a playback volume in the server's linear scale
type Volume uint32

const (
	// VolumeInvalid leaves the volume decision to the server
	VolumeInvalid Volume = 0xFFFFFFFF
	// VolumeNorm is 100% volume
	VolumeNorm Volume = 0x10000
	// VolumeMuted is silence
	VolumeMuted Volume = 0
)

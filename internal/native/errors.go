package native

import "fmt"

// Code is a protocol-level error code as reported by the server
type Code uint32

const (
	CodeOK             Code = iota // No error
	CodeAccess                     // Access denied
	CodeCommand                    // Unknown command
	CodeInvalid                    // Invalid argument
	CodeExist                      // Entity already exists
	CodeNoEntity                   // No such entity
	CodeConnectionRefused
	CodeProtocol
	CodeTimeout
	CodeAuthKey
	CodeInternal
	CodeConnectionTerminated
	CodeKilled // Entity killed before the request completed
	CodeInvalidServer
	CodeModInitFailed
	CodeBadState
	CodeNoData
	CodeVersion // Incompatible protocol version
	CodeTooLarge
	CodeNotSupported
	CodeUnknown
	CodeNoExtension
	CodeObsolete
	CodeNotImplemented
	CodeForked
	CodeIO
	CodeBusy
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeAccess:
		return "access denied"
	case CodeCommand:
		return "unknown command"
	case CodeInvalid:
		return "invalid argument"
	case CodeExist:
		return "entity exists"
	case CodeNoEntity:
		return "no such entity"
	case CodeConnectionRefused:
		return "connection refused"
	case CodeProtocol:
		return "protocol error"
	case CodeTimeout:
		return "timeout"
	case CodeAuthKey:
		return "no authentication key"
	case CodeInternal:
		return "internal error"
	case CodeConnectionTerminated:
		return "connection terminated"
	case CodeKilled:
		return "entity killed"
	case CodeInvalidServer:
		return "invalid server"
	case CodeBadState:
		return "bad state"
	case CodeNoData:
		return "no data"
	case CodeVersion:
		return "incompatible protocol version"
	case CodeTooLarge:
		return "data too large"
	case CodeNotSupported:
		return "operation not supported"
	case CodeNoExtension:
		return "no such extension"
	case CodeObsolete:
		return "obsolete functionality"
	case CodeNotImplemented:
		return "not implemented"
	case CodeForked:
		return "client forked"
	case CodeIO:
		return "input/output error"
	case CodeBusy:
		return "device busy"
	}
	return "unknown error"
}

// Error is a failure reported by the native layer or the server
type Error struct {
	Code Code
}

func (e *Error) Error() string {
	return fmt.Sprintf("pulse: %s", e.Code)
}

// Is allows errors.Is matching on the code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// ErrKilled is returned when an operation is cancelled before completing
var ErrKilled = &Error{Code: CodeKilled}

func codeError(c Code) *Error {
	return &Error{Code: c}
}

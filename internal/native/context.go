// Package native implements a minimal client for the PulseAudio native
// protocol: a connection context, in-flight operation handles, and the
// sample-cache and client-management commands built on them. State queries
// are synchronous; completion is reported through one-shot state-change
// triggers invoked from the connection's reader goroutine.
package native

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	dialTimeout = 5 * time.Second
	cookieSize  = 256
)

// pendingReply tracks one request awaiting a server reply
type pendingReply struct {
	// complete receives the reply or error code plus any reply payload
	complete func(code Code, r *tagReader)
	// abort runs instead of complete when the connection dies first
	abort func()
}

// Context is a connection to a PulseAudio daemon. It must be connected
// with Connect before any request can be issued. All methods are safe for
// concurrent use; state-change triggers run on the reader goroutine.
type Context struct {
	name  string
	props Proplist

	mu      sync.Mutex
	state   ContextState
	stateCB func()
	lastErr Code

	conn    net.Conn
	wmu     sync.Mutex // serializes frame writes
	flags   ContextFlags
	server  string
	local   bool
	nextTag uint32
	pending map[uint32]pendingReply

	serverVersion uint32
	clientIndex   uint32
}

// NewContext constructs an unconnected context identified by name
func NewContext(name string) *Context {
	return NewContextWithProplist(name, Proplist{PropApplicationName: name})
}

// NewContextWithProplist constructs an unconnected context carrying the
// given initial client properties
func NewContextWithProplist(name string, props Proplist) *Context {
	return &Context{
		name:    name,
		props:   props.Clone(),
		state:   ContextUnconnected,
		pending: make(map[uint32]pendingReply),
	}
}

// State returns the current connection state
func (c *Context) State() ContextState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnStateChange registers a one-shot trigger invoked on the next state
// transition, overwriting any previous registration. Registering while the
// state is already ready or terminal fires the trigger immediately so a
// transition slipping in between a state query and the registration cannot
// strand a waiter.
func (c *Context) OnStateChange(fn func()) {
	c.mu.Lock()
	s := c.state
	if fn != nil && (s == ContextReady || s.Terminal()) {
		c.mu.Unlock()
		fn()
		return
	}
	c.stateCB = fn
	c.mu.Unlock()
}

// Connect dials the given server and starts the handshake. An empty server
// selects $PULSE_SERVER or the default per-user socket. Connect returns an
// error only for failures detected synchronously; later progress and
// failure are reported through the state and its trigger. The spawn policy
// hooks are accepted for interface compatibility; autospawning a daemon is
// not performed by this client.
func (c *Context) Connect(server string, flags ContextFlags, spawn *SpawnAPI) error {
	c.mu.Lock()
	if c.state != ContextUnconnected {
		c.mu.Unlock()
		return codeError(CodeBadState)
	}
	c.state = ContextConnecting
	c.mu.Unlock()

	network, addr := resolveServer(server)
	conn, err := net.DialTimeout(network, addr, dialTimeout)
	if err != nil {
		c.fail(CodeConnectionRefused)
		return fmt.Errorf("dial %s %s: %w", network, addr, err)
	}

	c.mu.Lock()
	c.flags = flags
	c.conn = conn
	c.server = addr
	c.local = network == "unix"
	c.mu.Unlock()

	go c.readLoop(conn)
	c.startHandshake()
	return nil
}

// startHandshake sends AUTH and chains SET_CLIENT_NAME from its reply
func (c *Context) startHandshake() {
	c.setState(ContextAuthorizing)
	err := c.sendRequest(opAuth, func(w *tagWriter) {
		w.putU32(protocolVersion)
		w.putArbitrary(loadCookie())
	}, pendingReply{
		complete: func(code Code, r *tagReader) {
			if code != CodeOK {
				c.fail(code)
				return
			}
			if v, err := r.getU32(); err == nil {
				c.mu.Lock()
				c.serverVersion = v & versionMask
				c.mu.Unlock()
			}
			c.sendClientName()
		},
	})
	if err != nil {
		c.fail(CodeConnectionTerminated)
	}
}

func (c *Context) sendClientName() {
	c.setState(ContextSettingName)
	err := c.sendRequest(opSetClientName, func(w *tagWriter) {
		w.putProplist(c.props)
	}, pendingReply{
		complete: func(code Code, r *tagReader) {
			if code != CodeOK {
				c.fail(code)
				return
			}
			if idx, err := r.getU32(); err == nil {
				c.mu.Lock()
				c.clientIndex = idx
				c.mu.Unlock()
			}
			c.setState(ContextReady)
		},
	})
	if err != nil {
		c.fail(CodeConnectionTerminated)
	}
}

// Disconnect terminates the connection immediately. Outstanding operations
// are cancelled.
func (c *Context) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	// Terminate before closing so the reader goroutine observing the
	// closed socket does not mistake this for a connection failure.
	c.setState(ContextTerminated)
	if conn != nil {
		conn.Close()
	}
	c.abortPending()
}

// LastError returns the most recent error reported by the server, or nil
func (c *Context) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastErr == CodeOK {
		return nil
	}
	return codeError(c.lastErr)
}

// Server returns the resolved address of the daemon this context dialed
func (c *Context) Server() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.server
}

// ProtocolVersion returns the protocol version this client speaks
func (c *Context) ProtocolVersion() uint32 {
	return protocolVersion
}

// ServerProtocolVersion returns the version negotiated during AUTH, or 0
// before the handshake completed
func (c *Context) ServerProtocolVersion() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverVersion
}

// IsLocal reports whether the connection is to a local daemon
func (c *Context) IsLocal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

// Index returns the client index the server assigned to this context, or 0
// before the handshake completed
func (c *Context) Index() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientIndex
}

// IsPending reports whether any request is still awaiting a reply
func (c *Context) IsPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending) > 0
}

// PlaySample plays a sample from the server's sample cache on the named
// sink, or the default sink when dev is empty. The done callback receives
// the server's verdict; it runs on the reader goroutine before the
// operation reaches a terminal state.
func (c *Context) PlaySample(name, dev string, volume Volume, done func(bool)) (*Operation, error) {
	return c.playSample(name, dev, volume, Proplist{}, done)
}

// PlaySampleWithProplist is PlaySample with a property list merged into the
// cached entry's for this playback
func (c *Context) PlaySampleWithProplist(name, dev string, volume Volume, props Proplist, done func(bool)) (*Operation, error) {
	return c.playSample(name, dev, volume, props, done)
}

func (c *Context) playSample(name, dev string, volume Volume, props Proplist, done func(bool)) (*Operation, error) {
	return c.issue(opPlaySample, func(w *tagWriter) {
		w.putU32(0xFFFFFFFF) // sink index: select by name
		w.putString(dev)
		w.putVolume(volume)
		w.putString(name)
		w.putProplist(props)
	}, done)
}

// RemoveSample removes a sample from the server's sample cache
func (c *Context) RemoveSample(name string, done func(bool)) (*Operation, error) {
	return c.issue(opRemoveSample, func(w *tagWriter) {
		w.putString(name)
	}, done)
}

// SetDefaultSink makes the named sink the server default
func (c *Context) SetDefaultSink(name string, done func(bool)) (*Operation, error) {
	return c.issue(opSetDefaultSink, func(w *tagWriter) {
		w.putString(name)
	}, done)
}

// SetDefaultSource makes the named source the server default
func (c *Context) SetDefaultSource(name string, done func(bool)) (*Operation, error) {
	return c.issue(opSetDefaultSource, func(w *tagWriter) {
		w.putString(name)
	}, done)
}

// SetName renames this client on the server
func (c *Context) SetName(name string, done func(bool)) (*Operation, error) {
	c.mu.Lock()
	c.name = name
	c.props[PropApplicationName] = name
	props := c.props.Clone()
	c.mu.Unlock()
	return c.issue(opSetClientName, func(w *tagWriter) {
		w.putProplist(props)
	}, done)
}

// ProplistUpdate merges entries into this client's server-side property
// list according to mode
func (c *Context) ProplistUpdate(mode UpdateMode, props Proplist, done func(bool)) (*Operation, error) {
	return c.issue(opUpdateClientProplist, func(w *tagWriter) {
		w.putU32(uint32(mode))
		w.putProplist(props)
	}, done)
}

// ProplistRemove removes the named entries from this client's server-side
// property list
func (c *Context) ProplistRemove(keys []string, done func(bool)) (*Operation, error) {
	return c.issue(opRemoveClientProplist, func(w *tagWriter) {
		for _, k := range keys {
			w.putString(k)
		}
		w.putString("")
	}, done)
}

// ExitDaemon asks the daemon to terminate. The connection usually drops
// before a reply arrives, in which case the operation is cancelled rather
// than completed.
func (c *Context) ExitDaemon(done func(bool)) (*Operation, error) {
	return c.issue(opExit, nil, done)
}

// issue sends a command and wraps the reply in an Operation. The done
// verdict is always written before the operation turns terminal.
func (c *Context) issue(command uint32, args func(*tagWriter), done func(bool)) (*Operation, error) {
	c.mu.Lock()
	if c.state != ContextReady {
		c.mu.Unlock()
		return nil, codeError(CodeBadState)
	}
	c.mu.Unlock()

	op := newOperation()
	err := c.sendRequest(command, args, pendingReply{
		complete: func(code Code, r *tagReader) {
			if code != CodeOK {
				c.setLastError(code)
			}
			if done != nil {
				done(code == CodeOK)
			}
			op.finish()
		},
		abort: op.Cancel,
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

// sendRequest allocates a sequence tag, registers the pending reply and
// writes the frame
func (c *Context) sendRequest(command uint32, args func(*tagWriter), p pendingReply) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return codeError(CodeConnectionTerminated)
	}
	tag := c.nextTag
	c.nextTag++
	c.pending[tag] = p
	c.mu.Unlock()

	c.wmu.Lock()
	err := writeFrame(conn, request(command, tag, args))
	c.wmu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, tag)
		c.mu.Unlock()
		c.fail(CodeConnectionTerminated)
		return fmt.Errorf("send command %d: %w", command, err)
	}
	return nil
}

// readLoop dispatches server frames until the connection dies. Completion
// callbacks and state triggers run on this goroutine.
func (c *Context) readLoop(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		f, err := readFrame(r)
		if err != nil {
			c.connectionLost()
			return
		}
		if f.Channel != channelControl {
			// Stream payload; this client only issues control requests
			continue
		}
		c.dispatch(f)
	}
}

func (c *Context) dispatch(f *frame) {
	tr := newTagReader(f.Payload)
	command, err := tr.getU32()
	if err != nil {
		return
	}
	tag, err := tr.getU32()
	if err != nil {
		return
	}

	switch command {
	case opReply:
		c.deliver(tag, CodeOK, tr)
	case opError:
		code, err := tr.getU32()
		if err != nil {
			code = uint32(CodeProtocol)
		}
		c.deliver(tag, Code(code), tr)
	default:
		// Server-initiated event; nothing subscribes to those here
	}
}

func (c *Context) deliver(tag uint32, code Code, tr *tagReader) {
	c.mu.Lock()
	p, ok := c.pending[tag]
	delete(c.pending, tag)
	c.mu.Unlock()
	if ok && p.complete != nil {
		p.complete(code, tr)
	}
}

// connectionLost moves the context to failed unless it was deliberately
// terminated, then cancels every outstanding operation
func (c *Context) connectionLost() {
	c.mu.Lock()
	terminated := c.state == ContextTerminated
	if !terminated && c.lastErr == CodeOK {
		c.lastErr = CodeConnectionTerminated
	}
	c.mu.Unlock()
	if !terminated {
		c.setState(ContextFailed)
	}
	c.abortPending()
}

func (c *Context) fail(code Code) {
	c.setLastError(code)
	c.setState(ContextFailed)
	c.abortPending()
}

func (c *Context) abortPending() {
	c.mu.Lock()
	aborted := make([]pendingReply, 0, len(c.pending))
	for tag, p := range c.pending {
		aborted = append(aborted, p)
		delete(c.pending, tag)
	}
	c.mu.Unlock()
	for _, p := range aborted {
		if p.abort != nil {
			p.abort()
		}
	}
}

func (c *Context) setLastError(code Code) {
	c.mu.Lock()
	c.lastErr = code
	c.mu.Unlock()
}

// setState performs a transition and fires the one-shot trigger. Terminal
// states are sticky.
func (c *Context) setState(s ContextState) {
	c.mu.Lock()
	if c.state.Terminal() || c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	cb := c.stateCB
	c.stateCB = nil
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// resolveServer maps a server specification to a dialable address.
// Accepted forms: empty (environment, then the per-user socket), an
// absolute unix socket path, "unix:PATH", and "HOST[:PORT]" for TCP.
func resolveServer(server string) (network, addr string) {
	if server == "" {
		server = os.Getenv("PULSE_SERVER")
	}
	if server == "" {
		runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
		if runtimeDir == "" {
			runtimeDir = fmt.Sprintf("/run/user/%d", os.Getuid())
		}
		return "unix", filepath.Join(runtimeDir, "pulse", "native")
	}
	if path, ok := strings.CutPrefix(server, "unix:"); ok {
		return "unix", path
	}
	if strings.HasPrefix(server, "/") {
		return "unix", server
	}
	if !strings.Contains(server, ":") {
		return "tcp", server + ":4713"
	}
	return "tcp", server
}

// loadCookie reads the authentication cookie, preferring $PULSE_COOKIE.
// A missing cookie is replaced with zeros; local servers typically accept
// the connection based on socket credentials anyway.
func loadCookie() []byte {
	paths := []string{os.Getenv("PULSE_COOKIE")}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "pulse", "cookie"),
			filepath.Join(home, ".pulse-cookie"),
		)
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err == nil && len(data) >= cookieSize {
			return data[:cookieSize]
		}
	}
	return make([]byte, cookieSize)
}

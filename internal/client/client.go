// Package client exposes the daemon's sample-cache and client-management
// commands as plain blocking calls. Every remote procedure follows the
// same shape: allocate a success cell, issue the request with a completion
// callback that stores the server's verdict, await the operation through
// the bridge, then read the cell. The store and load go through an atomic,
// because the callback runs on the connection's reader goroutine while the
// caller reads from its own; the operation turning terminal alone does not
// order the two.
package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/audiofog/pulsebridge/internal/bridge"
	"github.com/audiofog/pulsebridge/internal/native"
)

// Client drives remote procedures against one daemon connection. It is
// not safe for concurrent use while a Connect is outstanding; individual
// requests after that may run from multiple goroutines.
type Client struct {
	conn Conn
	log  *zap.Logger

	server string
	flags  native.ContextFlags
	spawn  *native.SpawnAPI
}

// Option configures a Client
type Option func(*Client)

// WithLogger attaches a logger for request-level diagnostics
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithConnectFlags sets the flags used when Connect dials the daemon
func WithConnectFlags(flags native.ContextFlags) Option {
	return func(c *Client) { c.flags = flags }
}

// WithSpawnAPI sets the daemon autospawn policy passed to Connect
func WithSpawnAPI(spawn *native.SpawnAPI) Option {
	return func(c *Client) { c.spawn = spawn }
}

// New builds a client around an unconnected native context. The server
// address may be empty to use the environment or the per-user socket.
func New(ctx *native.Context, server string, opts ...Option) *Client {
	if ctx == nil {
		panic("client: nil native context")
	}
	return NewWithConn(nativeConn{ctx}, server, opts...)
}

// NewWithConn builds a client around any connection capability
func NewWithConn(conn Conn, server string, opts ...Option) *Client {
	c := &Client{
		conn:   conn,
		log:    zap.NewNop(),
		server: server,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the daemon and blocks until the connection attempt has
// finished trying. A handle that settles in a non-ready state is reported
// with the connection's last error.
func (c *Client) Connect(ctx context.Context) error {
	if err := bridge.AwaitReady(ctx, c.conn, c.server, c.flags, c.spawn); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if s := c.conn.State(); !s.IsGood() {
		err := c.conn.LastError()
		if err == nil {
			err = &native.Error{Code: native.CodeConnectionRefused}
		}
		return fmt.Errorf("connect: state %s: %w", s, err)
	}
	c.log.Debug("connected",
		zap.String("server", c.conn.Server()),
		zap.Uint32("protocol", c.conn.ServerProtocolVersion()))
	return nil
}

// Disconnect terminates the connection immediately
func (c *Client) Disconnect() {
	c.conn.Disconnect()
}

// await runs one remote procedure through the success-capture idiom
func (c *Client) await(ctx context.Context, what string, issue func(done func(bool)) (bridge.OpHandle, error)) error {
	var verdict atomic.Bool
	op, err := issue(func(ok bool) { verdict.Store(ok) })
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if err := bridge.AwaitOperation(ctx, op); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if !verdict.Load() {
		err := c.conn.LastError()
		if err == nil {
			err = &native.Error{Code: native.CodeUnknown}
		}
		return fmt.Errorf("%s: %w", what, err)
	}
	c.log.Debug("request completed", zap.String("request", what))
	return nil
}

// PlaySample plays a sample from the server's cache on the named sink, or
// the default sink when dev is empty. VolumeInvalid leaves the volume
// decision to the server, which is usually the right call.
func (c *Client) PlaySample(ctx context.Context, name, dev string, volume native.Volume) error {
	return c.await(ctx, "play sample", func(done func(bool)) (bridge.OpHandle, error) {
		return c.conn.PlaySample(name, dev, volume, done)
	})
}

// PlaySampleWithProplist is PlaySample with a property list merged into
// the cached entry's for this playback
func (c *Client) PlaySampleWithProplist(ctx context.Context, name, dev string, volume native.Volume, props native.Proplist) error {
	return c.await(ctx, "play sample", func(done func(bool)) (bridge.OpHandle, error) {
		return c.conn.PlaySampleWithProplist(name, dev, volume, props, done)
	})
}

// RemoveSample removes a sample from the server's cache
func (c *Client) RemoveSample(ctx context.Context, name string) error {
	return c.await(ctx, "remove sample", func(done func(bool)) (bridge.OpHandle, error) {
		return c.conn.RemoveSample(name, done)
	})
}

// SetDefaultSink makes the named sink the server default
func (c *Client) SetDefaultSink(ctx context.Context, name string) error {
	return c.await(ctx, "set default sink", func(done func(bool)) (bridge.OpHandle, error) {
		return c.conn.SetDefaultSink(name, done)
	})
}

// SetDefaultSource makes the named source the server default
func (c *Client) SetDefaultSource(ctx context.Context, name string) error {
	return c.await(ctx, "set default source", func(done func(bool)) (bridge.OpHandle, error) {
		return c.conn.SetDefaultSource(name, done)
	})
}

// SetName renames this client on the server
func (c *Client) SetName(ctx context.Context, name string) error {
	return c.await(ctx, "set client name", func(done func(bool)) (bridge.OpHandle, error) {
		return c.conn.SetName(name, done)
	})
}

// ProplistUpdate merges entries into this client's server-side properties
func (c *Client) ProplistUpdate(ctx context.Context, mode native.UpdateMode, props native.Proplist) error {
	return c.await(ctx, "update proplist", func(done func(bool)) (bridge.OpHandle, error) {
		return c.conn.ProplistUpdate(mode, props, done)
	})
}

// ProplistRemove removes the named entries from this client's server-side
// properties
func (c *Client) ProplistRemove(ctx context.Context, keys []string) error {
	return c.await(ctx, "remove proplist entries", func(done func(bool)) (bridge.OpHandle, error) {
		return c.conn.ProplistRemove(keys, done)
	})
}

// ExitDaemon asks the daemon to terminate and reports whether a success
// notification made it back. The daemon usually exits before one can, so
// false is the common outcome and callers should bound ctx accordingly.
func (c *Client) ExitDaemon(ctx context.Context) bool {
	var verdict atomic.Bool
	op, err := c.conn.ExitDaemon(func(ok bool) { verdict.Store(ok) })
	if err != nil {
		return false
	}
	if err := bridge.AwaitOperation(ctx, op); err != nil {
		return false
	}
	return verdict.Load()
}

// Server returns the resolved address of the daemon
func (c *Client) Server() string { return c.conn.Server() }

// ProtocolVersion returns the protocol version the client speaks
func (c *Client) ProtocolVersion() uint32 { return c.conn.ProtocolVersion() }

// ServerProtocolVersion returns the version negotiated with the daemon
func (c *Client) ServerProtocolVersion() uint32 { return c.conn.ServerProtocolVersion() }

// IsLocal reports whether the daemon is local to this machine
func (c *Client) IsLocal() bool { return c.conn.IsLocal() }

// Index returns the client index assigned by the server
func (c *Client) Index() uint32 { return c.conn.Index() }

// IsPending reports whether any request is still awaiting a reply
func (c *Client) IsPending() bool { return c.conn.IsPending() }

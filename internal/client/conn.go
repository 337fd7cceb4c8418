package client

import (
	"github.com/audiofog/pulsebridge/internal/bridge"
	"github.com/audiofog/pulsebridge/internal/native"
)

// Conn is the connection capability the client is built on. It is the
// bridge's ConnHandle plus request issuance and diagnostics. Requests
// return the in-flight operation as an awaitable handle; the done callback
// receives the server's verdict before the handle turns terminal.
type Conn interface {
	bridge.ConnHandle

	Disconnect()
	LastError() error

	Server() string
	ProtocolVersion() uint32
	ServerProtocolVersion() uint32
	IsLocal() bool
	Index() uint32
	IsPending() bool

	PlaySample(name, dev string, volume native.Volume, done func(bool)) (bridge.OpHandle, error)
	PlaySampleWithProplist(name, dev string, volume native.Volume, props native.Proplist, done func(bool)) (bridge.OpHandle, error)
	RemoveSample(name string, done func(bool)) (bridge.OpHandle, error)
	SetDefaultSink(name string, done func(bool)) (bridge.OpHandle, error)
	SetDefaultSource(name string, done func(bool)) (bridge.OpHandle, error)
	SetName(name string, done func(bool)) (bridge.OpHandle, error)
	ProplistUpdate(mode native.UpdateMode, props native.Proplist, done func(bool)) (bridge.OpHandle, error)
	ProplistRemove(keys []string, done func(bool)) (bridge.OpHandle, error)
	ExitDaemon(done func(bool)) (bridge.OpHandle, error)
}

// nativeConn adapts *native.Context to Conn, narrowing the concrete
// operation type to the awaitable handle interface.
type nativeConn struct {
	*native.Context
}

func (n nativeConn) PlaySample(name, dev string, volume native.Volume, done func(bool)) (bridge.OpHandle, error) {
	return n.Context.PlaySample(name, dev, volume, done)
}

func (n nativeConn) PlaySampleWithProplist(name, dev string, volume native.Volume, props native.Proplist, done func(bool)) (bridge.OpHandle, error) {
	return n.Context.PlaySampleWithProplist(name, dev, volume, props, done)
}

func (n nativeConn) RemoveSample(name string, done func(bool)) (bridge.OpHandle, error) {
	return n.Context.RemoveSample(name, done)
}

func (n nativeConn) SetDefaultSink(name string, done func(bool)) (bridge.OpHandle, error) {
	return n.Context.SetDefaultSink(name, done)
}

func (n nativeConn) SetDefaultSource(name string, done func(bool)) (bridge.OpHandle, error) {
	return n.Context.SetDefaultSource(name, done)
}

func (n nativeConn) SetName(name string, done func(bool)) (bridge.OpHandle, error) {
	return n.Context.SetName(name, done)
}

func (n nativeConn) ProplistUpdate(mode native.UpdateMode, props native.Proplist, done func(bool)) (bridge.OpHandle, error) {
	return n.Context.ProplistUpdate(mode, props, done)
}

func (n nativeConn) ProplistRemove(keys []string, done func(bool)) (bridge.OpHandle, error) {
	return n.Context.ProplistRemove(keys, done)
}

func (n nativeConn) ExitDaemon(done func(bool)) (bridge.OpHandle, error) {
	return n.Context.ExitDaemon(done)
}

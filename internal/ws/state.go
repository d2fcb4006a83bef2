// Package ws holds shared websocket session state primitives.
package ws

import "sync/atomic"

// ConnState represents the lifecycle state of a websocket session.
type ConnState int32

// Session lifecycle states. A session moves Disconnected -> Connecting ->
// Connected -> Subscribing -> Active and terminates in Closed (caller
// initiated) or Failed (unrecoverable connection error).
const (
	// StateDisconnected indicates the session has never connected.
	StateDisconnected ConnState = iota
	// StateConnecting indicates the handshake is in progress.
	StateConnecting
	// StateConnected indicates the socket is open but not yet serving.
	StateConnected
	// StateSubscribing indicates subscribe frames are being delivered.
	StateSubscribing
	// StateActive indicates the receive loop and keepalive are running.
	StateActive
	// StateClosed indicates the session was shut down by its owner.
	StateClosed
	// StateFailed indicates the session died on an unrecoverable error.
	StateFailed
)

// String returns the string representation of the connection state.
func (s ConnState) String() string {
	return [...]string{
		"disconnected",
		"connecting",
		"connected",
		"subscribing",
		"active",
		"closed",
		"failed",
	}[s]
}

// Terminal reports whether the state is an end state.
func (s ConnState) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// State provides thread-safe atomic access to a ConnState value.
type State struct {
	state atomic.Int32
}

// Load returns the current connection state.
func (s *State) Load() ConnState {
	return ConnState(s.state.Load())
}

// Store sets the connection state to the given value.
func (s *State) Store(state ConnState) {
	s.state.Store(int32(state))
}

// CompareAndSwap atomically compares the current state with old and swaps to
// new if equal. It returns true if the swap was performed.
func (s *State) CompareAndSwap(old, new ConnState) bool {
	return s.state.CompareAndSwap(int32(old), int32(new))
}

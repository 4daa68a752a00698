// Package marketplace defines the contract every sync adapter
// implements and the shared connection state machine. The lifecycle
// engine never talks to a marketplace directly; adapters translate
// between one remote API's vocabulary and the engine's status enum.
package marketplace

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotConnected is returned for any sync attempt before Connect.
	ErrNotConnected = errors.New("adapter not connected")
	// ErrSyncInProgress is returned when a pull or push is rejected
	// because one is already in flight for this adapter.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrUnsupported marks operations a platform has no API for.
	ErrUnsupported = errors.New("operation not supported on this platform")
)

// ConnState is one adapter's connection lifecycle state.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// Adapter is the boundary contract for one external marketplace. Pull
// reconciles local state from the remote; Push/Publish/End mutate the
// remote and mirror the change locally through the engine's transition
// API.
type Adapter interface {
	// Platform returns the engine's name for this marketplace.
	Platform() string
	// Available reports whether the adapter has usable credentials.
	Available() bool

	Connect(ctx context.Context) error
	Disconnect()
	State() ConnState
	Syncing() bool

	// Pull pages through remote listings and recent orders, driving
	// engine transitions for anything that changed remotely.
	Pull(ctx context.Context) (*PullResult, error)
	// Push creates or updates the remote listing draft for an item.
	Push(ctx context.Context, itemID string) (*PushResult, error)
	// Publish turns the remote draft into a live listing.
	Publish(ctx context.Context, itemID string) (*PushResult, error)
	// End removes the listing from sale (remote quantity zero) and
	// delists locally.
	End(ctx context.Context, itemID string) (*PushResult, error)
}

// Conn is the shared connection state machine, embedded by each
// adapter. The syncing flag is a per-adapter mutual exclusion guard:
// two pulls for the same platform must never interleave, while pulls
// on different platforms run concurrently.
type Conn struct {
	mu      sync.Mutex
	state   ConnState
	syncing bool
}

// State returns the current connection state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == "" {
		return StateDisconnected
	}
	return c.state
}

// Syncing reports whether a pull or push is in flight.
func (c *Conn) Syncing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncing
}

// MarkConnecting moves the adapter into the connecting state.
func (c *Conn) MarkConnecting() {
	c.mu.Lock()
	c.state = StateConnecting
	c.mu.Unlock()
}

// MarkConnected moves the adapter into the connected state.
func (c *Conn) MarkConnected() {
	c.mu.Lock()
	c.state = StateConnected
	c.mu.Unlock()
}

// MarkDisconnected resets the adapter. Any in-flight sync completes
// and applies its effects regardless; there is no cancellation.
func (c *Conn) MarkDisconnected() {
	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()
}

// BeginSync acquires the per-adapter sync guard. Fails fast when the
// adapter is not connected or another sync is running.
func (c *Conn) BeginSync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return ErrNotConnected
	}
	if c.syncing {
		return ErrSyncInProgress
	}
	c.syncing = true
	return nil
}

// EndSync releases the sync guard.
func (c *Conn) EndSync() {
	c.mu.Lock()
	c.syncing = false
	c.mu.Unlock()
}

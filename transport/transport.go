// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transport defines the contract a reliable, ordered,
// authenticated byte transport must satisfy to carry messages between
// nodes, plus an in-memory implementation used by tests.
package transport

import (
	"context"
	"errors"
)

// ErrPeerUnknown is returned by Send when addr has no registered peer.
var ErrPeerUnknown = errors.New("transport: peer unknown")

// Event reports a connection-state change.
type Event struct {
	Addr      string
	Connected bool // false == PeerLost
}

// Transport is the contract a node depends on to exchange bytes with
// named peers. Implementations are responsible for framing, ordering,
// and authenticating the underlying connection; this package does not
// interpret the bytes it carries.
type Transport interface {
	// Send delivers raw to addr. Ordering is preserved per-peer.
	Send(ctx context.Context, addr string, raw []byte) error

	// Inbox returns the channel of bytes received from any peer,
	// tagged with the sender's address.
	Inbox() <-chan Inbound

	// Events reports ConnectedTo/PeerLost transitions.
	Events() <-chan Event

	// Close releases all resources and connections.
	Close() error
}

// Inbound is one received message tagged with its sender.
type Inbound struct {
	From string
	Raw  []byte
}

// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"context"
	"sync"
)

// Network is a shared in-process registry of Memory transports,
// standing in for an actual IP network in tests.
type Network struct {
	mu    sync.Mutex
	peers map[string]*Memory
}

// NewNetwork returns an empty in-memory network.
func NewNetwork() *Network {
	return &Network{peers: make(map[string]*Memory)}
}

// Memory is an in-memory Transport bound to one address within a Network.
type Memory struct {
	net    *Network
	addr   string
	inbox  chan Inbound
	events chan Event
	once   sync.Once
}

// Join registers a new Memory transport at addr within net, announcing
// its arrival to every already-registered peer and them to it.
func (n *Network) Join(addr string) *Memory {
	n.mu.Lock()
	defer n.mu.Unlock()

	m := &Memory{
		net:    n,
		addr:   addr,
		inbox:  make(chan Inbound, 256),
		events: make(chan Event, 256),
	}
	for other := range n.peers {
		m.events <- Event{Addr: other, Connected: true}
		n.peers[other].events <- Event{Addr: addr, Connected: true}
	}
	n.peers[addr] = m
	return m
}

// Send implements Transport.
func (m *Memory) Send(ctx context.Context, addr string, raw []byte) error {
	m.net.mu.Lock()
	peer, ok := m.net.peers[addr]
	m.net.mu.Unlock()
	if !ok {
		return ErrPeerUnknown
	}
	select {
	case peer.inbox <- Inbound{From: m.addr, Raw: raw}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inbox implements Transport.
func (m *Memory) Inbox() <-chan Inbound { return m.inbox }

// Events implements Transport.
func (m *Memory) Events() <-chan Event { return m.events }

// Close implements Transport, deregistering m and notifying peers it
// is gone.
func (m *Memory) Close() error {
	m.once.Do(func() {
		m.net.mu.Lock()
		delete(m.net.peers, m.addr)
		peers := make([]*Memory, 0, len(m.net.peers))
		for _, p := range m.net.peers {
			peers = append(peers, p)
		}
		m.net.mu.Unlock()
		for _, p := range peers {
			select {
			case p.events <- Event{Addr: m.addr, Connected: false}:
			default:
			}
		}
		close(m.inbox)
		close(m.events)
	})
	return nil
}

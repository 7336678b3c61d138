// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import "github.com/luxfi/corenet/name"

// EventKind discriminates Event variants delivered on Node.Events().
type EventKind int

const (
	// StateChanged reports a lifecycle transition; see Event.From/To.
	StateChanged EventKind = iota
	// MemberOnline reports a member (possibly self) becoming Joined.
	MemberOnline
	// MemberOffline reports a member leaving.
	MemberOffline
	// Relocated reports self having completed a relocation.
	Relocated
	// SectionSplit reports this node's section having split.
	SectionSplit
	// PeerDisconnected reports a peer that reached MaxSignatureFailures
	// consecutive signature failures and was evicted by the peer tracker.
	PeerDisconnected
	// Fatal reports an unrecoverable condition; the node has already
	// transitioned to RestartRequired or Terminate.
	Fatal
)

// Event is a tagged notification pushed to external observers (the
// application embedding this module).
type Event struct {
	Kind EventKind
	From State
	To   State
	Who  name.Name
	Err  error
}

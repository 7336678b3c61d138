// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package consensus defines the contract a Byzantine agreement engine
// must satisfy to drive section membership and routing state. The
// engine itself is treated as an external black box: this package only
// describes what gets voted on and how votes are polled out.
package consensus

import (
	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/name"
)

// EventKind discriminates the AccumulatingEvent payload variants.
type EventKind int

const (
	Online EventKind = iota
	Offline
	Relocate
	RelocatePrepare
	SectionInfo
	NeighbourInfo
	TheirKeyInfo
	AckMessage
	ParsecPrune
	User
)

func (k EventKind) String() string {
	switch k {
	case Online:
		return "Online"
	case Offline:
		return "Offline"
	case Relocate:
		return "Relocate"
	case RelocatePrepare:
		return "RelocatePrepare"
	case SectionInfo:
		return "SectionInfo"
	case NeighbourInfo:
		return "NeighbourInfo"
	case TheirKeyInfo:
		return "TheirKeyInfo"
	case AckMessage:
		return "AckMessage"
	case ParsecPrune:
		return "ParsecPrune"
	case User:
		return "User"
	default:
		return "Unknown"
	}
}

// AccumulatingEvent is a single votable fact: a member going online or
// offline, a new EldersInfo taking effect, a neighbour announcement,
// and so on. Payload holds the kind-specific encoded value (e.g. a
// serialized MemberInfo, EldersInfo, or raw user bytes).
type AccumulatingEvent struct {
	Kind      EventKind
	Payload   []byte
	RelatedTo name.Name // the subject node, when applicable
}

// Block is what the engine hands back from Poll: an event together
// with the quorum of signatures that accumulated it.
type Block struct {
	Event AccumulatingEvent
	Proof keyshare.Signature // the engine's own output signature, or a representative share
}

// GossipRequest and GossipResponse are the opaque wire payloads a
// consensus engine exchanges with a gossip partner; their internal
// structure is engine-specific and not interpreted by this package.
type GossipRequest struct {
	Payload []byte
}

type GossipResponse struct {
	Payload []byte
}

// Engine is the contract any Byzantine agreement backend must satisfy.
// Implementations are expected to be single-threaded and called only
// from the owning node's event loop.
type Engine interface {
	// VoteFor submits ev for agreement. Returns immediately; the event
	// is not guaranteed to accumulate.
	VoteFor(ev AccumulatingEvent) error

	// Poll returns the next accumulated block, if any is ready.
	Poll() (Block, bool)

	// HasUnpolledObservations reports whether Poll would currently
	// return something.
	HasUnpolledObservations() bool

	// CreateGossip builds a gossip request to send to peer, or nil if
	// this node has nothing to offer it right now.
	CreateGossip(peer name.Name) (*GossipRequest, error)

	// HandleRequest processes an inbound gossip request from peer and
	// returns the response to send back.
	HandleRequest(peer name.Name, req GossipRequest) (GossipResponse, error)

	// HandleResponse processes an inbound gossip response from peer.
	HandleResponse(peer name.Name, resp GossipResponse) error

	// GossipRecipients returns the candidate peers to gossip with next.
	GossipRecipients() []name.Name
}

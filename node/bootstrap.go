// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"encoding/json"

	"github.com/luxfi/corenet/corelog"
	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/message"
	"github.com/luxfi/corenet/name"
	"github.com/luxfi/corenet/section"
)

// Bootstrap/join handshake variant kinds, reserved just below message's
// own bounce variants so neither package's reserved range collides with
// an embedding application's own VariantKind numbering.
const (
	variantBootstrapRequest  uint16 = 0xFFF9
	variantBootstrapResponse uint16 = 0xFFFA
	variantJoinRequest       uint16 = 0xFFFB
	variantNodeApproval      uint16 = 0xFFFC
)

// bootstrapRequestPayload is sent to each hard-coded contact on startup.
type bootstrapRequestPayload struct {
	Name name.Name
}

// bootstrapResponseKind discriminates BootstrapResponse variants.
type bootstrapResponseKind int

const (
	bootstrapJoin bootstrapResponseKind = iota
	bootstrapRebootstrap
)

// bootstrapResponsePayload answers a BootstrapRequest: either an
// invitation naming the section to send a JoinRequest to, or a fresher
// contact list to retry bootstrapping against.
type bootstrapResponsePayload struct {
	Kind     bootstrapResponseKind
	Elders   section.EldersInfo
	Contacts []string
}

// joinRequestPayload is sent to a section's elders once a
// BootstrapResponse has pointed the node at them.
type joinRequestPayload struct {
	Name       name.Name
	SectionKey keyshare.PublicKey
}

// nodeApprovalPayload carries the proven EldersInfo that admits the
// joining node, once its Online vote has accumulated.
type nodeApprovalPayload struct {
	Value section.EldersInfo
	Proof section.Proof
}

// sendBootstrapRequests sends a BootstrapRequest to every hard-coded
// contact. Called once on entering Bootstrapping; a Rebootstrap
// response calls it again against the fresher contact list it carries.
func (n *Node) sendBootstrapRequests(ctx context.Context) {
	payload, err := json.Marshal(bootstrapRequestPayload{Name: n.self})
	if err != nil {
		n.log.Warn("failed to encode bootstrap request", corelog.Err(err))
		return
	}
	msg := message.SignAsNode(message.Message{
		ID:          message.NewID(),
		Dst:         message.DstLocation{Kind: message.DstDirectUnrouted},
		VariantKind: variantBootstrapRequest,
		Payload:     payload,
	}, n.self, n.sk)
	raw := message.Encode(msg)
	for _, addr := range n.cfg.Transport.HardCodedContacts {
		if err := n.transport.Send(ctx, addr, raw); err != nil {
			n.log.Warn("bootstrap request send failed", corelog.String("addr", addr), corelog.Err(err))
		}
	}
}

// handleBootstrapRequest answers a peer's BootstrapRequest: invite it to
// join this section if there's room, else point it at our own contacts
// to try again (a real deployment would name less-loaded neighbours;
// this node has no broader view than its own section).
func (n *Node) handleBootstrapRequest(ctx context.Context, msg message.Message) {
	var req bootstrapRequestPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		n.log.Warn("failed to decode bootstrap request", corelog.Err(err))
		return
	}
	resp := bootstrapResponsePayload{Kind: bootstrapJoin, Elders: n.section.EldersInfo.Value}
	if !n.section.AcceptsBootstrap(n.cfg.EffectiveSafeSectionSize()) {
		resp = bootstrapResponsePayload{Kind: bootstrapRebootstrap, Contacts: n.cfg.Transport.HardCodedContacts}
	}
	n.replyBootstrap(ctx, req.Name, resp)
}

func (n *Node) replyBootstrap(ctx context.Context, to name.Name, p bootstrapResponsePayload) {
	payload, err := json.Marshal(p)
	if err != nil {
		n.log.Warn("failed to encode bootstrap response", corelog.Err(err))
		return
	}
	resp := message.SignAsNode(message.Message{
		ID:          message.NewID(),
		Dst:         message.DstLocation{Kind: message.DstDirectUnrouted, Name: to},
		VariantKind: variantBootstrapResponse,
		Payload:     payload,
	}, n.self, n.sk)
	// to has no section/network address record yet (it isn't a member of
	// anything we know of) — this network's addresses are a node's own
	// name string (see PeerAddress.Addr throughout), so that's also the
	// reply address for a node we've never seen before.
	if err := n.transport.Send(ctx, to.String(), message.Encode(resp)); err != nil {
		n.log.Warn("bootstrap response send failed", corelog.Err(err))
	}
}

// handleBootstrapResponse drives Bootstrapping -> Joining on an
// invitation, or restarts bootstrapping against a fresher contact list
// on a Rebootstrap response.
func (n *Node) handleBootstrapResponse(ctx context.Context, msg message.Message) {
	if n.state != Bootstrapping {
		return
	}
	var p bootstrapResponsePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		n.log.Warn("failed to decode bootstrap response", corelog.Err(err))
		return
	}
	switch p.Kind {
	case bootstrapRebootstrap:
		n.cfg.Transport.HardCodedContacts = p.Contacts
		n.sendBootstrapRequests(ctx)
	case bootstrapJoin:
		if err := n.transition(Joining); err != nil {
			n.log.Warn("failed to transition to joining", corelog.Err(err))
			return
		}
		n.sendJoinRequest(ctx, p.Elders)
	}
}

// sendJoinRequest sends a JoinRequest to every elder named in elders.
func (n *Node) sendJoinRequest(ctx context.Context, elders section.EldersInfo) {
	payload, err := json.Marshal(joinRequestPayload{Name: n.self, SectionKey: n.section.Chain.LastKey()})
	if err != nil {
		n.log.Warn("failed to encode join request", corelog.Err(err))
		return
	}
	msg := message.SignAsNode(message.Message{
		ID:          message.NewID(),
		Dst:         message.DstLocation{Kind: message.DstSection, Prefix: elders.Prefix},
		VariantKind: variantJoinRequest,
		Payload:     payload,
	}, n.self, n.sk)
	raw := message.Encode(msg)
	for _, addr := range elderAddrs(elders) {
		if err := n.transport.Send(ctx, addr, raw); err != nil {
			n.log.Warn("join request send failed", corelog.Err(err))
		}
	}
}

func elderAddrs(elders section.EldersInfo) []string {
	out := make([]string, 0, len(elders.Elders))
	for _, a := range elders.Elders {
		out = append(out, a.Addr)
	}
	return out
}

// handleJoinRequest is the elder side of a JoinRequest. Casting the
// Online vote that eventually produces a NodeApproval is the elder's
// consensus engine's job, driven by whatever discovers new joiners
// (out of this package's scope, same as every other vote-triggering
// condition); this only logs the request for now.
func (n *Node) handleJoinRequest(msg message.Message) {
	n.log.Debug("join request received", corelog.String("from", msg.Src.Name.String()))
}

// handleNodeApproval installs the proven EldersInfo that admits this
// node and completes Joining -> Adult (or Elder, if it places self
// among the section's elders).
func (n *Node) handleNodeApproval(msg message.Message) {
	if n.state != Joining {
		return
	}
	var p nodeApprovalPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		n.log.Warn("failed to decode node approval", corelog.Err(err))
		return
	}
	pv := section.ProvenValue[section.EldersInfo]{Value: p.Value, Proof: p.Proof}
	if !section.Verify(pv, section.EldersInfo.Serialize) {
		n.log.Warn("node approval proof did not verify")
		return
	}
	if !n.trusted[pv.Proof.PublicKey.Bytes()] {
		n.log.Warn("node approval signed by untrusted key")
		return
	}
	n.section.EldersInfo = pv
	if err := n.transition(Adult); err != nil {
		n.log.Warn("failed to transition to adult", corelog.Err(err))
		return
	}
	if pv.Value.IsElder(n.self) {
		if err := n.transition(Elder); err != nil {
			n.log.Warn("failed to transition to elder", corelog.Err(err))
		}
	}
}

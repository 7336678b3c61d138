// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package accumulate turns accumulated consensus blocks into mutations
// of a node's Section and Network state. Each event kind maps to
// exactly one mutation, applied idempotently so a duplicate delivery
// of the same block is a no-op.
package accumulate

import (
	"encoding/json"
	"fmt"

	"github.com/luxfi/corenet/consensus"
	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/name"
	"github.com/luxfi/corenet/network"
	"github.com/luxfi/corenet/section"
)

// State is the mutable state a node keeps that accumulated events act
// upon.
type State struct {
	Section *section.Section
	Network *network.Network
	Trusted map[[32]byte]bool

	// ElderSize bounds how many members PromoteAndDemoteElders selects
	// on a membership change; it should track config.NetworkParams.ElderSize.
	ElderSize int

	// PendingElders holds the elder set(s) promote_and_demote_elders
	// last computed after a membership change, awaiting a caller to
	// sign and vote them as a SectionInfo event (§4.2); it is not
	// applied automatically, since doing so requires a section key
	// Apply has no access to.
	PendingElders []section.EldersInfo
}

// Apply applies block.Event to s, returning whether it changed state.
// Unknown or malformed payloads are reported as an error but never
// panic: a Byzantine or buggy peer must not be able to crash a node by
// getting a bad block accumulated.
func Apply(s *State, block consensus.Block) (bool, error) {
	switch block.Event.Kind {
	case consensus.Online:
		return applyOnlineOffline(s, block.Event, true)
	case consensus.Offline:
		return applyOnlineOffline(s, block.Event, false)
	case consensus.Relocate:
		return applyRelocate(s, block.Event)
	case consensus.RelocatePrepare:
		return applyRelocatePrepare(s, block.Event)
	case consensus.SectionInfo:
		return applySectionInfo(s, block.Event)
	case consensus.NeighbourInfo:
		return applyNeighbourInfo(s, block.Event)
	case consensus.TheirKeyInfo:
		return applyTheirKeyInfo(s, block.Event)
	case consensus.AckMessage:
		return applyAckMessage(s, block.Event)
	case consensus.ParsecPrune, consensus.User:
		// These event kinds carry no section/network mutation; they are
		// consumed directly by prune/the application layer.
		return false, nil
	default:
		return false, fmt.Errorf("accumulate: unknown event kind %d", block.Event.Kind)
	}
}

type memberPayload struct {
	Value section.MemberInfo
	Proof section.Proof
}

// applyOnlineOffline updates the member table for a Joined/Left vote,
// then increments every other member's age counter (the churn that
// Online/Offline events trigger per spec.md §4.2) and recomputes the
// candidate elder set so a caller can propose it as SectionInfo if it
// changed.
func applyOnlineOffline(s *State, ev consensus.AccumulatingEvent, online bool) (bool, error) {
	var p memberPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return false, fmt.Errorf("accumulate: decode member payload: %w", err)
	}
	pv := section.ProvenValue[section.MemberInfo]{Value: p.Value, Proof: p.Proof}
	if !s.Section.UpdateMember(pv, s.Trusted) {
		return false, nil
	}
	s.Section.IncrementAgeCounters(p.Value.Name)
	s.PendingElders = s.Section.PromoteAndDemoteElders(s.ElderSize)
	return true, nil
}

// applyRelocate marks the member Relocating at its signed destination;
// it carries no age-counter churn of its own (Online/Offline already
// cover that).
func applyRelocate(s *State, ev consensus.AccumulatingEvent) (bool, error) {
	var p memberPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return false, fmt.Errorf("accumulate: decode relocate payload: %w", err)
	}
	pv := section.ProvenValue[section.MemberInfo]{Value: p.Value, Proof: p.Proof}
	return s.Section.UpdateMember(pv, s.Trusted), nil
}

// relocatePreparePayload carries the member's current Preparing state
// (Destination/NodeKnowledge already decided) and the countdown value
// that applies after this vote.
type relocatePreparePayload struct {
	Value     section.MemberInfo
	Proof     section.Proof
	CountDown int
}

// applyRelocatePrepare decrements the relocation countdown; at zero it
// converts the member straight to Relocating instead of storing a
// Preparing state, per spec.md §4.4's "decrement count; if zero,
// convert to Relocate". The proof attests the pre-decrement vote, so
// the derived post-decrement record is written directly rather than
// through UpdateMember's generic re-verification.
func applyRelocatePrepare(s *State, ev consensus.AccumulatingEvent) (bool, error) {
	var p relocatePreparePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return false, fmt.Errorf("accumulate: decode relocate-prepare payload: %w", err)
	}
	pv := section.ProvenValue[section.MemberInfo]{Value: p.Value, Proof: p.Proof}
	if !s.Trusted[pv.Proof.PublicKey.Bytes()] || !section.Verify(pv, section.MemberInfo.Serialize) {
		return false, nil
	}
	existing, ok := s.Section.Members[p.Value.Name]
	if !ok {
		return false, nil
	}

	remaining := p.CountDown - 1
	var next section.MemberState
	if remaining <= 0 {
		next = section.MemberState{Kind: section.Relocating, Destination: p.Value.State.Destination, NodeKnowledge: p.Value.State.NodeKnowledge}
	} else {
		next = section.MemberState{Kind: section.Preparing, Destination: p.Value.State.Destination, NodeKnowledge: p.Value.State.NodeKnowledge, CountDown: remaining}
	}
	if existing.State == next && existing.AgeCounter >= p.Value.AgeCounter {
		return false, nil
	}
	existing.State = next
	existing.AgeCounter = p.Value.AgeCounter
	s.Section.Members[p.Value.Name] = existing
	return true, nil
}

// eldersPayload mirrors SectionInfo's wire shape: the new EldersInfo
// plus the new section key and its signature under the chain's current
// last key, so the key chain grows in lock-step with elder turnover
// (spec.md §3, §4.4, §8 Property 1).
type eldersPayload struct {
	Value  section.EldersInfo
	Proof  section.Proof
	NewKey keyshare.PublicKey
	KeySig keyshare.Signature
}

func applySectionInfo(s *State, ev consensus.AccumulatingEvent) (bool, error) {
	var p eldersPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return false, fmt.Errorf("accumulate: decode elders payload: %w", err)
	}
	pv := section.ProvenValue[section.EldersInfo]{Value: p.Value, Proof: p.Proof}
	if !section.Verify(pv, section.EldersInfo.Serialize) {
		return false, nil
	}
	if pv.Value.Version <= s.Section.EldersInfo.Value.Version {
		return false, nil
	}
	if !s.Section.Chain.LastKey().Equal(p.NewKey) {
		if !s.Section.Chain.Push(p.NewKey, p.KeySig) {
			return false, fmt.Errorf("accumulate: section key chain push failed to verify")
		}
	}
	s.Section.EldersInfo = pv
	s.Trusted[pv.Proof.PublicKey.Bytes()] = true
	return true, nil
}

func applyNeighbourInfo(s *State, ev consensus.AccumulatingEvent) (bool, error) {
	var p eldersPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return false, fmt.Errorf("accumulate: decode neighbour payload: %w", err)
	}
	pv := section.ProvenValue[section.EldersInfo]{Value: p.Value, Proof: p.Proof}
	return s.Network.UpdateNeighbour(pv), nil
}

type theirKeyPayload struct {
	Prefix [32]byte
	Bits   int
	Key    [32]byte
}

func applyTheirKeyInfo(s *State, ev consensus.AccumulatingEvent) (bool, error) {
	var p theirKeyPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return false, fmt.Errorf("accumulate: decode their-key payload: %w", err)
	}
	key, err := keyshare.PublicKeyFromBytes(p.Key)
	if err != nil {
		return false, fmt.Errorf("accumulate: bad their-key point: %w", err)
	}
	prefix := name.New(name.Name(p.Prefix), p.Bits)
	if existing, ok := s.Network.TheirKeys[prefix]; ok && existing.Equal(key) {
		return false, nil
	}
	s.Network.UpdateTheirKey(prefix, key)
	return true, nil
}

// ackPayload mirrors AckMessage's wire shape: the prefix of the section
// that sent the ack and the key, from our own chain, that it
// demonstrated knowledge of.
type ackPayload struct {
	SrcPrefix [32]byte
	Bits      int
	AckKey    [32]byte
}

// applyAckMessage resolves AckKey to its position in our own section's
// key chain and raises network.TheirKnowledge[SrcPrefix] to it, per
// spec.md §4.4 ("their_knowledge[src_prefix] := max(existing, ack_key)
// by chain position"). An ack naming a key we don't recognise is
// ignored rather than erroring — the sender may simply be ahead of us.
func applyAckMessage(s *State, ev consensus.AccumulatingEvent) (bool, error) {
	var p ackPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return false, fmt.Errorf("accumulate: decode ack payload: %w", err)
	}
	key, err := keyshare.PublicKeyFromBytes(p.AckKey)
	if err != nil {
		return false, fmt.Errorf("accumulate: bad ack key: %w", err)
	}
	idx := s.Section.Chain.IndexOf(key)
	if idx == -1 {
		return false, nil
	}
	prefix := name.New(name.Name(p.SrcPrefix), p.Bits)
	if existing, ok := s.Network.TheirKnowledge[prefix]; ok && existing >= idx {
		return false, nil
	}
	s.Network.UpdateTheirKnowledge(prefix, idx)
	return true, nil
}

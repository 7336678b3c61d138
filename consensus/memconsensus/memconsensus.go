// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memconsensus is an in-memory, deterministic stand-in for a
// real Byzantine agreement engine. It is not a production consensus
// protocol: it accumulates an event the moment a caller-supplied
// quorum of distinct voters have voted for byte-identical payloads,
// and exchanges raw vote sets as gossip. It exists so the rest of this
// module — section, network, node, routing — can be exercised and
// tested end to end without depending on a concrete BFT/DAG engine.
package memconsensus

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/luxfi/corenet/consensus"
	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/internal/sampler"
	"github.com/luxfi/corenet/name"
)

type voteKey [32]byte

func keyFor(ev consensus.AccumulatingEvent) voteKey {
	h := sha256.New()
	h.Write([]byte{byte(ev.Kind)})
	h.Write(ev.RelatedTo[:])
	h.Write(ev.Payload)
	var out voteKey
	copy(out[:], h.Sum(nil))
	return out
}

type observation struct {
	event   consensus.AccumulatingEvent
	voters  map[name.Name]bool
	settled bool
}

// Engine is a memconsensus.Engine instance local to one node.
type Engine struct {
	mu        sync.Mutex
	self      name.Name
	quorum    func() int
	sk        keyshare.SecretKey
	obs       map[voteKey]*observation
	unpolled  []consensus.Block
	gossipSrc sampler.Uniform
	peers     []name.Name
}

// New returns an Engine for self, using quorumFn to determine the
// current required vote count (typically the section's elder quorum,
// which may change as elders are promoted/demoted).
func New(self name.Name, sk keyshare.SecretKey, quorumFn func() int, seed int64) *Engine {
	src := sampler.NewSource(seed)
	return &Engine{
		self:      self,
		sk:        sk,
		quorum:    quorumFn,
		obs:       make(map[voteKey]*observation),
		gossipSrc: sampler.NewUniform(src),
	}
}

// SetPeers updates the set of known gossip partners.
func (e *Engine) SetPeers(peers []name.Name) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.peers = append([]name.Name(nil), peers...)
}

// VoteFor implements consensus.Engine.
func (e *Engine) VoteFor(ev consensus.AccumulatingEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.voteLocked(ev, e.self)
	return nil
}

func (e *Engine) voteLocked(ev consensus.AccumulatingEvent, voter name.Name) {
	key := keyFor(ev)
	o, ok := e.obs[key]
	if !ok {
		o = &observation{event: ev, voters: make(map[name.Name]bool)}
		e.obs[key] = o
	}
	if o.settled || o.voters[voter] {
		return
	}
	o.voters[voter] = true
	if len(o.voters) >= e.quorum() {
		o.settled = true
		e.unpolled = append(e.unpolled, consensus.Block{
			Event: ev,
			Proof: e.sk.Sign(key[:]),
		})
	}
}

// Poll implements consensus.Engine.
func (e *Engine) Poll() (consensus.Block, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.unpolled) == 0 {
		return consensus.Block{}, false
	}
	b := e.unpolled[0]
	e.unpolled = e.unpolled[1:]
	return b, true
}

// HasUnpolledObservations implements consensus.Engine.
func (e *Engine) HasUnpolledObservations() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.unpolled) > 0
}

// wireVote is the gossip wire representation of one vote.
type wireVote struct {
	key   voteKey
	event consensus.AccumulatingEvent
	voter name.Name
}

// CreateGossip implements consensus.Engine. The payload is every vote
// this engine knows of, in the flat encoding of encodeVotes.
func (e *Engine) CreateGossip(peer name.Name) (*consensus.GossipRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	votes := e.snapshotVotesLocked()
	if len(votes) == 0 {
		return nil, nil
	}
	return &consensus.GossipRequest{Payload: encodeVotes(votes)}, nil
}

func (e *Engine) snapshotVotesLocked() []wireVote {
	var out []wireVote
	for key, o := range e.obs {
		for voter := range o.voters {
			out = append(out, wireVote{key: key, event: o.event, voter: voter})
		}
	}
	return out
}

// HandleRequest implements consensus.Engine: merge the peer's votes
// into our own observation set, then answer with ours.
func (e *Engine) HandleRequest(peer name.Name, req consensus.GossipRequest) (consensus.GossipResponse, error) {
	e.mu.Lock()
	votes := decodeVotes(req.Payload)
	for _, v := range votes {
		e.voteLocked(v.event, v.voter)
	}
	resp := consensus.GossipResponse{Payload: encodeVotes(e.snapshotVotesLocked())}
	e.mu.Unlock()
	return resp, nil
}

// HandleResponse implements consensus.Engine.
func (e *Engine) HandleResponse(peer name.Name, resp consensus.GossipResponse) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range decodeVotes(resp.Payload) {
		e.voteLocked(v.event, v.voter)
	}
	return nil
}

// GossipRecipients implements consensus.Engine, picking one peer
// uniformly at random per call.
func (e *Engine) GossipRecipients() []name.Name {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.peers) == 0 {
		return nil
	}
	e.gossipSrc.Initialize(len(e.peers))
	idx, ok := e.gossipSrc.Next()
	if !ok {
		return nil
	}
	return []name.Name{e.peers[idx]}
}

// encodeVotes/decodeVotes round-trip wireVote slices through a flat,
// length-prefixed byte encoding: per vote, the key, the event kind, the
// related name, a 4-byte little-endian payload length, the payload and
// the voter. It is not the message/codec wire format.
func encodeVotes(votes []wireVote) []byte {
	var buf bytes.Buffer
	var plen [4]byte
	for _, v := range votes {
		buf.Write(v.key[:])
		buf.WriteByte(byte(v.event.Kind))
		buf.Write(v.event.RelatedTo[:])
		binary.LittleEndian.PutUint32(plen[:], uint32(len(v.event.Payload)))
		buf.Write(plen[:])
		buf.Write(v.event.Payload)
		buf.Write(v.voter[:])
	}
	return buf.Bytes()
}

func decodeVotes(raw []byte) []wireVote {
	var out []wireVote
	for len(raw) > 0 {
		if len(raw) < 32+1+name.Size+4 {
			break
		}
		var v wireVote
		copy(v.key[:], raw[:32])
		raw = raw[32:]
		v.event.Kind = consensus.EventKind(raw[0])
		raw = raw[1:]
		copy(v.event.RelatedTo[:], raw[:name.Size])
		raw = raw[name.Size:]
		plen := int(binary.LittleEndian.Uint32(raw[:4]))
		raw = raw[4:]
		if len(raw) < plen+name.Size {
			break
		}
		v.event.Payload = append([]byte(nil), raw[:plen]...)
		raw = raw[plen:]
		copy(v.voter[:], raw[:name.Size])
		raw = raw[name.Size:]
		out = append(out, v)
	}
	return out
}

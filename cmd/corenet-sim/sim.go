// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command corenet-sim drives a single-process, multi-elder simulation
// of one or more sections, useful for exercising splits, relocations,
// and consensus edge cases without standing up real node processes.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/luxfi/corenet/accumulate"
	"github.com/luxfi/corenet/config"
	"github.com/luxfi/corenet/consensus"
	"github.com/luxfi/corenet/consensus/memconsensus"
	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/name"
	"github.com/luxfi/corenet/network"
	"github.com/luxfi/corenet/section"
	"github.com/luxfi/corenet/section/keychain"
)

// simNode is one simulated participant's identity and signing key.
type simNode struct {
	name name.Name
	sk   keyshare.SecretKey
}

func newSimNode() simNode {
	sk, err := keyshare.Generate()
	if err != nil {
		panic(err) // Generate only fails on a broken CSPRNG
	}
	return simNode{name: name.Generate(), sk: sk}
}

// nameForSide returns a freshly generated name that falls under
// prefix.Pushed(side), for deterministically populating one half of a
// section about to split.
func nameForSide(prefix name.Prefix, side uint8) name.Name {
	target := prefix.Pushed(side)
	for {
		n := name.Generate()
		if target.Matches(n) {
			return n
		}
	}
}

// genesisSection builds a one-elder section at the given prefix,
// signed by founder's own key, which also roots the section's key
// chain.
func genesisSection(prefix name.Prefix, founder simNode) *section.Section {
	info := section.EldersInfo{
		Prefix:  prefix,
		Version: 1,
		Elders:  map[name.Name]section.PeerAddress{founder.name: {Addr: founder.name.String()}},
	}
	proven := section.NewProven(info, founder.sk, section.EldersInfo.Serialize)
	return section.New(keychain.New(founder.sk.PublicKey()), proven)
}

// cluster simulates one section's elders each running their own
// consensus engine, gossiping votes to each other, and draining
// accumulated blocks into one shared ground-truth State. Real peers
// each keep an independent Section/Network view reconciled by gossip;
// collapsing that to one shared State is the simplification this
// simulator makes so scenarios can assert on "what every elder ends up
// agreeing on" without standing up a transport per elder.
type cluster struct {
	sectionKey keyshare.SecretKey // signs member/elders-info proofs
	engines    map[name.Name]*memconsensus.Engine
	state      *accumulate.State
}

func newCluster(sec *section.Section, nw *network.Network, sectionKey keyshare.SecretKey, trusted map[[32]byte]bool) *cluster {
	c := &cluster{
		sectionKey: sectionKey,
		engines:    make(map[name.Name]*memconsensus.Engine),
		state:      &accumulate.State{Section: sec, Network: nw, Trusted: trusted, ElderSize: config.DefaultNetworkParams().ElderSize},
	}
	quorumFn := func() int { return sec.EldersInfo.Value.Quorum() }
	names := sec.EldersInfo.Value.Names()
	for i, n := range names {
		sk, err := keyshare.Generate()
		if err != nil {
			panic(err)
		}
		c.engines[n] = memconsensus.New(n, sk, quorumFn, int64(i)+1)
	}
	peers := names
	for _, n := range names {
		others := make([]name.Name, 0, len(peers)-1)
		for _, p := range peers {
			if p != n {
				others = append(others, p)
			}
		}
		c.engines[n].SetPeers(others)
	}
	return c
}

// voteAll has every named elder vote ev, converges gossip across the
// whole elder set, then drains every engine's accumulated blocks into
// the shared state.
func (c *cluster) voteAll(ev consensus.AccumulatingEvent, voters []name.Name) []error {
	for _, v := range voters {
		e, ok := c.engines[v]
		if !ok {
			continue
		}
		_ = e.VoteFor(ev)
	}
	c.gossipConverge(3)
	return c.drainAll()
}

func (c *cluster) gossipConverge(rounds int) {
	engines := make([]*memconsensus.Engine, 0, len(c.engines))
	for _, e := range c.engines {
		engines = append(engines, e)
	}
	convergeEngines(engines, rounds)
}

// convergeEngines runs exactly rounds rounds of gossip, each round
// exchanging a request and response between every ordered pair of
// engines, the same all-pairs exchange a real gossip schedule would
// eventually reach given enough ticks.
func convergeEngines(engines []*memconsensus.Engine, rounds int) {
	for r := 0; r < rounds; r++ {
		for _, ea := range engines {
			for _, eb := range engines {
				if ea == eb {
					continue
				}
				req, err := ea.CreateGossip(name.Name{})
				if err != nil || req == nil {
					continue
				}
				resp, err := eb.HandleRequest(name.Name{}, *req)
				if err != nil {
					continue
				}
				_ = ea.HandleResponse(name.Name{}, resp)
			}
		}
	}
}

// pubKeyBytes returns the bytes a key's signature must cover to chain
// the next key onto a keychain.Chain, matching keychain's own
// (unexported) serialization so a caller outside that package can
// build a valid Push signature.
func pubKeyBytes(pk keyshare.PublicKey) []byte {
	b := pk.Bytes()
	return b[:]
}

func (c *cluster) drainAll() []error {
	var errs []error
	for _, e := range c.engines {
		for e.HasUnpolledObservations() {
			block, ok := e.Poll()
			if !ok {
				break
			}
			if _, err := accumulate.Apply(c.state, block); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// names returns the cluster's elder names, in no particular order.
func (c *cluster) names() []name.Name {
	out := make([]name.Name, 0, len(c.engines))
	for n := range c.engines {
		out = append(out, n)
	}
	return out
}

// memberPayload mirrors accumulate's private wire shape for
// Online/Offline/Relocate/RelocatePrepare events: a proven MemberInfo.
type memberPayload struct {
	Value section.MemberInfo
	Proof section.Proof
}

// memberEvent builds the accumulating event a section votes to admit,
// remove, or relocate m, signed by the cluster's section key.
func (c *cluster) memberEvent(kind consensus.EventKind, m section.MemberInfo) consensus.AccumulatingEvent {
	proven := section.NewProven(m, c.sectionKey, section.MemberInfo.Serialize)
	payload, err := json.Marshal(memberPayload{Value: m, Proof: proven.Proof})
	if err != nil {
		panic(err)
	}
	return consensus.AccumulatingEvent{Kind: kind, Payload: payload, RelatedTo: m.Name}
}

// theirKeyPayload mirrors accumulate's private wire shape for
// TheirKeyInfo events.
type theirKeyPayload struct {
	Prefix [32]byte
	Bits   int
	Key    [32]byte
}

func theirKeyEvent(prefix name.Prefix, key keyshare.PublicKey) consensus.AccumulatingEvent {
	payload, err := json.Marshal(theirKeyPayload{Prefix: [32]byte(prefix.Bits), Bits: prefix.BitCount, Key: key.Bytes()})
	if err != nil {
		panic(err)
	}
	return consensus.AccumulatingEvent{Kind: consensus.TheirKeyInfo, Payload: payload}
}

func main() {
	cfg := config.Genesis()
	if err := cfg.Valid(); err != nil {
		panic(err)
	}
	founder := newSimNode()
	sec := genesisSection(name.Root, founder)
	fmt.Printf("genesis section %q started with 1 elder (%s)\n", sec.Prefix(), founder.name)
}

// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package network holds a node's knowledge of sections other than its
// own: neighbouring EldersInfos, their signing keys, and the highest
// chain index each of them is known to trust ("their knowledge").
package network

import (
	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/name"
	"github.com/luxfi/corenet/section"
)

// Network is the consensus-maintained view of sections other than our
// own.
type Network struct {
	Neighbours     map[name.Prefix]section.ProvenValue[section.EldersInfo]
	TheirKeys      map[name.Prefix]keyshare.PublicKey
	TheirKnowledge map[name.Prefix]int
}

// New returns an empty Network.
func New() *Network {
	return &Network{
		Neighbours:     make(map[name.Prefix]section.ProvenValue[section.EldersInfo]),
		TheirKeys:      make(map[name.Prefix]keyshare.PublicKey),
		TheirKnowledge: make(map[name.Prefix]int),
	}
}

// UpdateNeighbour records a proven EldersInfo for a neighbouring
// prefix, replacing any prior entry with a lower version. Returns
// whether the entry changed.
func (nw *Network) UpdateNeighbour(pv section.ProvenValue[section.EldersInfo]) bool {
	if !section.Verify(pv, section.EldersInfo.Serialize) {
		return false
	}
	prefix := pv.Value.Prefix
	if existing, ok := nw.Neighbours[prefix]; ok && existing.Value.Version >= pv.Value.Version {
		return false
	}
	nw.Neighbours[prefix] = pv
	return true
}

// UpdateTheirKey records the latest known signing key for prefix.
func (nw *Network) UpdateTheirKey(prefix name.Prefix, key keyshare.PublicKey) {
	nw.TheirKeys[prefix] = key
}

// UpdateTheirKnowledge records index as the chain index known to be
// trusted by the section at prefix, if it is higher than the one
// recorded; the recorded index never decreases.
func (nw *Network) UpdateTheirKnowledge(prefix name.Prefix, index int) {
	if existing, ok := nw.TheirKnowledge[prefix]; !ok || index > existing {
		nw.TheirKnowledge[prefix] = index
	}
}

// ClosestNeighbour returns the neighbouring prefix whose bits are
// closest to target by XOR distance (so a prefix matching target wins),
// among prefixes not compatible with (not overlapping) ourPrefix.
// Returns ok=false if there is no such neighbour.
func ClosestNeighbour(nw *Network, ourPrefix name.Prefix, target name.Name) (name.Prefix, bool) {
	var best name.Prefix
	found := false
	for prefix := range nw.Neighbours {
		if prefix.IsCompatible(ourPrefix) {
			continue
		}
		if !found || prefix.Bits.CloserTo(best.Bits, target) {
			best = prefix
			found = true
		}
	}
	return best, found
}

// CoversWholeSpace reports whether ourPrefix together with every
// neighbouring prefix partitions the name space with no gaps and no
// overlaps (spec Property 3).
func CoversWholeSpace(nw *Network, ourPrefix name.Prefix) bool {
	prefixes := []name.Prefix{ourPrefix}
	for p := range nw.Neighbours {
		prefixes = append(prefixes, p)
	}
	for i, a := range prefixes {
		for j, b := range prefixes {
			if i == j {
				continue
			}
			if a.IsCompatible(b) {
				return false // overlap
			}
		}
	}
	// Every non-root prefix must have its sibling present among the set,
	// or be covered by a shorter compatible ancestor — checked by walking
	// up from the deepest prefixes and requiring a sibling at each level.
	seen := make(map[name.Prefix]bool, len(prefixes))
	for _, p := range prefixes {
		seen[p] = true
	}
	for _, p := range prefixes {
		cur := p
		for cur.BitCount > 0 {
			sib := cur.Sibling()
			if !seen[sib] && !coveredByAncestor(seen, sib) {
				return false
			}
			cur = name.Prefix{Bits: cur.Bits, BitCount: cur.BitCount - 1}
		}
	}
	return true
}

func coveredByAncestor(seen map[name.Prefix]bool, p name.Prefix) bool {
	cur := p
	for cur.BitCount >= 0 {
		if seen[cur] {
			return true
		}
		if cur.BitCount == 0 {
			break
		}
		cur = name.Prefix{Bits: cur.Bits, BitCount: cur.BitCount - 1}
	}
	return false
}

// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package section holds the consensus-maintained state a node keeps
// about its own section: its key chain, its current elders, and its
// member table.
package section

import (
	"sort"

	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/name"
	"github.com/luxfi/corenet/section/keychain"
)

// SafeSectionSize is the minimum number of mature members each half of
// a split section must retain; below this a split is deferred.
const SafeSectionSize = 8

// Section is the full consensus-maintained view of the section a node
// belongs to.
type Section struct {
	Chain      *keychain.Chain
	EldersInfo ProvenValue[EldersInfo]
	Members    map[name.Name]MemberInfo
}

// New creates a section rooted at genesis, with the given founding
// elders as its first EldersInfo.
func New(genesisChain *keychain.Chain, elders ProvenValue[EldersInfo]) *Section {
	s := &Section{
		Chain:      genesisChain,
		EldersInfo: elders,
		Members:    make(map[name.Name]MemberInfo),
	}
	for _, n := range elders.Value.Names() {
		s.Members[n] = MemberInfo{Name: n, State: MemberState{Kind: Joined}, AgeCounter: MatureAgeCounter}
	}
	return s
}

// Prefix returns the section's current prefix.
func (s *Section) Prefix() name.Prefix {
	return s.EldersInfo.Value.Prefix
}

// UpdateMember applies a proven MemberInfo update, rejecting it if the
// proof does not verify under a currently trusted key. Returns whether
// the member table changed.
func (s *Section) UpdateMember(pv ProvenValue[MemberInfo], trusted map[[32]byte]bool) bool {
	if !trusted[pv.Proof.PublicKey.Bytes()] {
		return false
	}
	if !Verify(pv, serializeMember) {
		return false
	}
	existing, ok := s.Members[pv.Value.Name]
	if ok && existing.AgeCounter >= pv.Value.AgeCounter && existing.State.Kind == pv.Value.State.Kind {
		return false
	}
	s.Members[pv.Value.Name] = pv.Value
	return true
}

// MatureMembers returns the members in state Joined with a mature age
// counter, sorted by name.
func (s *Section) MatureMembers() []MemberInfo {
	var out []MemberInfo
	for _, m := range s.Members {
		if m.State.Kind == Joined && m.IsMature() {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name.Less(out[j].Name) })
	return out
}

// AcceptsBootstrap reports whether the section is large enough to take
// on another joiner. A section cannot afford to admit a new, unaged
// member until it has more than safeSectionSize members of its own:
// doing so earlier would leave it unable to reach quorum
// if an existing member dropped out mid-join.
func (s *Section) AcceptsBootstrap(safeSectionSize int) bool {
	return len(s.Members) > safeSectionSize
}

// CanSplit reports whether both candidate sub-prefixes of s would retain
// at least SafeSectionSize mature members.
func (s *Section) CanSplit() bool {
	prefix := s.Prefix()
	var zero, one int
	for _, m := range s.MatureMembers() {
		if prefix.Pushed(0).Matches(m.Name) {
			zero++
		} else {
			one++
		}
	}
	return zero >= SafeSectionSize && one >= SafeSectionSize
}

// IncrementAgeCounters adds one to the age counter of every Joined
// member other than triggerName on a churn event triggered by
// triggerName. Returns the names whose new counter is a power of two
// (they matured on this event), the input to the relocation-candidate
// rule.
func (s *Section) IncrementAgeCounters(triggerName name.Name) []name.Name {
	var matured_ []name.Name
	for n, m := range s.Members {
		if m.State.Kind != Joined || n == triggerName {
			continue
		}
		old := m.AgeCounter
		m.AgeCounter++
		s.Members[n] = m
		if matured(old) {
			matured_ = append(matured_, n)
		}
	}
	return matured_
}

// PromoteAndDemoteElders computes the section's next elder set(s): up to
// elderSize members with the highest age counter, breaking ties by
// XOR-distance to the prefix centre then by name (spec.md §4.2). If the
// section can split, returns one EldersInfo per sub-prefix instead of
// one for the whole section.
func (s *Section) PromoteAndDemoteElders(elderSize int) []EldersInfo {
	if s.CanSplit() {
		prefix := s.Prefix()
		left := s.electElders(prefix.Pushed(0), elderSize)
		right := s.electElders(prefix.Pushed(1), elderSize)
		left.Version = s.EldersInfo.Value.Version + 1
		right.Version = s.EldersInfo.Value.Version + 1
		return []EldersInfo{left, right}
	}
	info := s.electElders(s.Prefix(), elderSize)
	info.Version = s.EldersInfo.Value.Version + 1
	return []EldersInfo{info}
}

// electElders selects the up-to-elderSize Joined members of s matching
// prefix with the highest age counter, tie-broken by XOR-distance to
// prefix's centre and then by name.
func (s *Section) electElders(prefix name.Prefix, elderSize int) EldersInfo {
	var candidates []MemberInfo
	for _, m := range s.Members {
		if m.State.Kind == Joined && prefix.Matches(m.Name) {
			candidates = append(candidates, m)
		}
	}
	centre := prefix.Centre()
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.AgeCounter != b.AgeCounter {
			return a.AgeCounter > b.AgeCounter
		}
		da, db := centre.Xor(a.Name), centre.Xor(b.Name)
		if da != db {
			return da.Less(db)
		}
		return a.Name.Less(b.Name)
	})
	if len(candidates) > elderSize {
		candidates = candidates[:elderSize]
	}
	elders := make(map[name.Name]PeerAddress, len(candidates))
	for _, m := range candidates {
		elders[m.Name] = PeerAddress{Addr: m.Name.String()}
	}
	return EldersInfo{Prefix: prefix, Elders: elders}
}

// Split partitions s into two child sections along the bit after its
// current prefix, once CanSplit reports true. Each child keeps every
// member whose name falls in its half; its elder set is chosen by
// electElders rather than promoting every member, and its section key
// is pushed onto a copy of the parent's chain, signed by the parent's
// current last key so a holder of the parent's trust can verify the
// successor.
func (s *Section) Split(elderSize int, leftKey, rightKey keyshare.SecretKey, signer keyshare.SecretKey) (left, right *Section) {
	prefix := s.Prefix()
	leftPrefix := prefix.Pushed(0)
	rightPrefix := prefix.Pushed(1)

	leftChain := s.Chain.Slice(0, s.Chain.Len())
	rightChain := s.Chain.Slice(0, s.Chain.Len())
	leftChain.MustPush(leftKey.PublicKey(), signer.Sign(chainPushBytes(leftKey)))
	rightChain.MustPush(rightKey.PublicKey(), signer.Sign(chainPushBytes(rightKey)))

	left = &Section{Chain: leftChain, Members: make(map[name.Name]MemberInfo)}
	right = &Section{Chain: rightChain, Members: make(map[name.Name]MemberInfo)}
	for n, m := range s.Members {
		if leftPrefix.Matches(n) {
			left.Members[n] = m
		} else {
			right.Members[n] = m
		}
	}

	leftElders := left.electElders(leftPrefix, elderSize)
	leftElders.Version = s.EldersInfo.Value.Version + 1
	rightElders := right.electElders(rightPrefix, elderSize)
	rightElders.Version = s.EldersInfo.Value.Version + 1

	left.EldersInfo = NewProven(leftElders, leftKey, EldersInfo.Serialize)
	right.EldersInfo = NewProven(rightElders, rightKey, EldersInfo.Serialize)
	return left, right
}

func chainPushBytes(k keyshare.SecretKey) []byte {
	b := k.PublicKey().Bytes()
	return b[:]
}

func serializeMember(m MemberInfo) []byte {
	buf := make([]byte, 0, name.Size+8+1)
	buf = append(buf, m.Name[:]...)
	buf = appendUint64(buf, uint64(m.AgeCounter))
	buf = append(buf, byte(m.State.Kind))
	return buf
}

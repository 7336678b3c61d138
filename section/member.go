// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package section

import "github.com/luxfi/corenet/name"

// MinAge is the minimum age exponent; a freshly-joined member's age
// counter starts at 2^MinAge.
const MinAge = 4

// MinAgeCounter is the starting age counter for a newly joined member.
const MinAgeCounter = 1 << MinAge

// MatureAgeCounter is the age counter at which a member is "mature"
// (age counter >= 2^(MinAge+1)).
const MatureAgeCounter = 1 << (MinAge + 1)

// StateKind is the discriminant of MemberState.
type StateKind int

const (
	// Joined means the member is an active participant.
	Joined StateKind = iota
	// Preparing means a RelocatePrepare vote has started a countdown
	// toward relocation, deferring it until the section is stable.
	Preparing
	// Relocating means the member has been voted to move to another
	// section and is waiting to re-bootstrap there.
	Relocating
	// Left means the member has departed (Offline or completed a
	// relocation) and is retained only for historical lookups.
	Left
)

// MemberState is the {Joined, Preparing, Relocating, Left} variant from
// spec.md §3.
type MemberState struct {
	Kind StateKind

	// Destination and NodeKnowledge are only meaningful when
	// Kind is Preparing or Relocating.
	Destination   name.Prefix
	NodeKnowledge int // chain length at the source when relocation was voted

	// CountDown is only meaningful when Kind == Preparing: the number
	// of further RelocatePrepare accumulations before it converts to
	// Relocating.
	CountDown int
}

// MemberInfo is the per-section-member record.
type MemberInfo struct {
	Name       name.Name
	State      MemberState
	AgeCounter uint32
}

// IsMature reports whether m's age counter has reached MatureAgeCounter.
func (m MemberInfo) IsMature() bool {
	return m.AgeCounter >= MatureAgeCounter
}

// Serialize returns m's canonical byte representation, the same bytes
// a section key must sign to produce a ProvenValue[MemberInfo] that
// UpdateMember will accept.
func (m MemberInfo) Serialize() []byte {
	return serializeMember(m)
}

// matured reports whether incrementing old by one crosses a power of
// two boundary (the member "matures" on this churn event).
func matured(old uint32) bool {
	next := old + 1
	return next&(next-1) == 0 && next > old
}

// nextPowerOfTwo returns the smallest power of two that is >= v (1 for
// v <= 1).
func nextPowerOfTwo(v uint32) uint32 {
	if v <= 1 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	return v + 1
}

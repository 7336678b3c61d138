// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package relocate implements the age-triggered member relocation
// rule: which member of a section must move on a churn event, where
// it moves to, and the signed details that accompany it there.
package relocate

import (
	"crypto/sha256"
	"math/bits"

	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/name"
	"github.com/luxfi/corenet/section"
)

// Candidate picks, among names that matured on this churn event, the
// one the deterministic oldest-member rule selects: the member whose
// age-counter trailing-zero count equals churnCount, the number of
// churn events processed since the section's current elder epoch
// began. Returns ok=false if no candidate matches.
func Candidate(matured []name.Name, members map[name.Name]section.MemberInfo, churnCount int) (name.Name, bool) {
	for _, n := range matured {
		m, ok := members[n]
		if !ok {
			continue
		}
		if bits.TrailingZeros32(m.AgeCounter) == churnCount {
			return n, true
		}
	}
	return name.Name{}, false
}

// Destination computes the deterministic relocation target for
// relocating name n, given the churn event hash h: H(n || h), then the
// closest known neighbouring prefix to that hash among candidates.
func Destination(n name.Name, h [32]byte, candidates []name.Prefix) (name.Prefix, bool) {
	target := destinationHash(n, h)
	var best name.Prefix
	found := false
	for _, p := range candidates {
		if !found || closerPrefix(p, best, target) {
			best = p
			found = true
		}
	}
	return best, found
}

func destinationHash(n name.Name, h [32]byte) name.Name {
	hasher := sha256.New()
	hasher.Write(n[:])
	hasher.Write(h[:])
	var out name.Name
	copy(out[:], hasher.Sum(nil))
	return out
}

// closerPrefix reports whether candidate's bit-string is closer to
// target (by XOR distance on the bits it specifies) than current is.
func closerPrefix(candidate, current name.Prefix, target name.Name) bool {
	return candidate.Bits.CloserTo(current.Bits, target)
}

// Details is the unsigned relocation payload handed to a relocating
// member once it has been voted for.
type Details struct {
	Name          name.Name
	Destination   name.Prefix
	NodeKnowledge int // source chain index the destination section must extend from
}

// Signed pairs Details with the source section's proof that it was
// legitimately voted for.
type Signed struct {
	Details Details
	Proof   section.Proof
}

// Serialize returns the canonical bytes of d, the form signed over.
func (d Details) Serialize() []byte {
	buf := make([]byte, 0, name.Size+name.Size+4+4)
	buf = append(buf, d.Name[:]...)
	buf = append(buf, d.Destination.Bits[:]...)
	buf = appendUint32(buf, uint32(d.Destination.BitCount))
	buf = appendUint32(buf, uint32(d.NodeKnowledge))
	return buf
}

func appendUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// Sign produces a Signed relocation detail, as a source-section elder
// would when voting RelocatePrepare -> Relocate has accumulated.
func Sign(d Details, sk keyshare.SecretKey) Signed {
	return Signed{
		Details: d,
		Proof: section.Proof{
			PublicKey: sk.PublicKey(),
			Signature: sk.Sign(d.Serialize()),
		},
	}
}

// Verify checks that s.Proof actually signs s.Details.
func Verify(s Signed) bool {
	return s.Proof.Signature.Verify(s.Proof.PublicKey, s.Details.Serialize())
}

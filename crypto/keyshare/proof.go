// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package keyshare

// Share is one elder's independent signature over a message, standing in
// for a BLS partial signature (spec.md §4.7's ProofShare).
type Share struct {
	Signer PublicKey
	Sig    Signature
}

// Proof is a quorum of elder Shares collected for the same message.
type Proof struct {
	Shares []Share
}

// NewProof returns an empty proof.
func NewProof() *Proof {
	return &Proof{}
}

// Add verifies share against msg and appends it, unless that signer
// already contributed a share.
func (p *Proof) Add(share Share, msg []byte) error {
	if !share.Sig.Verify(share.Signer, msg) {
		return ErrInvalidSignature
	}
	for _, existing := range p.Shares {
		if existing.Signer.Equal(share.Signer) {
			return nil
		}
	}
	p.Shares = append(p.Shares, share)
	return nil
}

// Len returns the number of distinct shares collected.
func (p *Proof) Len() int {
	return len(p.Shares)
}

// Verify reports whether p contains at least quorum valid, distinct
// shares, all over msg, and all signed by a key in elders.
func (p *Proof) Verify(msg []byte, elders []PublicKey, quorum int) bool {
	if len(p.Shares) < quorum {
		return false
	}
	allowed := make(map[[32]byte]bool, len(elders))
	for _, e := range elders {
		allowed[e.Bytes()] = true
	}
	seen := make(map[[32]byte]bool, len(p.Shares))
	valid := 0
	for _, share := range p.Shares {
		key := share.Signer.Bytes()
		if seen[key] || !allowed[key] {
			continue
		}
		if !share.Sig.Verify(share.Signer, msg) {
			continue
		}
		seen[key] = true
		valid++
	}
	return valid >= quorum
}

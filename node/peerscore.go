// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import "github.com/luxfi/corenet/name"

// MaxSignatureFailures is the number of consecutive message signature
// verification failures from one peer before it is disconnected.
const MaxSignatureFailures = 5

// peerScore tracks consecutive signature failures per peer so a buggy
// or actively hostile peer gets disconnected rather than retried
// forever.
type peerScore struct {
	failures map[name.Name]int
}

func newPeerScore() *peerScore {
	return &peerScore{failures: make(map[name.Name]int)}
}

// RecordFailure increments peer's consecutive failure count and
// reports whether it has now crossed MaxSignatureFailures.
func (p *peerScore) RecordFailure(peer name.Name) bool {
	p.failures[peer]++
	return p.failures[peer] >= MaxSignatureFailures
}

// RecordSuccess resets peer's failure count — one good message forgives
// past failures, since the aim is to catch sustained misbehaviour, not
// penalize a single transient decode error.
func (p *peerScore) RecordSuccess(peer name.Name) {
	delete(p.failures, peer)
}

// Forget drops all tracking for peer (it disconnected or relocated away).
func (p *peerScore) Forget(peer name.Name) {
	delete(p.failures, peer)
}

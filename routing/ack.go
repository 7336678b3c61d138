// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routing

import (
	"sync"

	"github.com/luxfi/corenet/message"
	"github.com/luxfi/corenet/name"
)

// pending tracks delivery of one forwarded message across its fan-out
// set of next hops.
type pending struct {
	hops    map[name.Name]bool // hop -> acked
	quorum  int
}

// AckTracker tracks which of a message's fanned-out next hops have
// acknowledged receipt, so the sender can re-forward to the hops that
// haven't once a retry interval elapses.
type AckTracker struct {
	mu      sync.Mutex
	pending map[message.DedupKey]*pending
}

// NewAckTracker returns an empty tracker.
func NewAckTracker() *AckTracker {
	return &AckTracker{pending: make(map[message.DedupKey]*pending)}
}

// Track begins tracking acks for key across hops, requiring quorum of
// them to ack before the send is considered complete.
func (a *AckTracker) Track(key message.DedupKey, hops []name.Name, quorum int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := &pending{hops: make(map[name.Name]bool, len(hops)), quorum: quorum}
	for _, h := range hops {
		p.hops[h] = false
	}
	a.pending[key] = p
}

// Ack records an acknowledgement from hop for key. Returns whether
// quorum has now been reached (the caller can stop retrying).
func (a *AckTracker) Ack(key message.DedupKey, hop name.Name) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pending[key]
	if !ok {
		return true // nothing tracked — already settled or never sent
	}
	if _, tracked := p.hops[hop]; !tracked {
		return a.ackedLocked(p)
	}
	p.hops[hop] = true
	settled := a.ackedLocked(p)
	if settled {
		delete(a.pending, key)
	}
	return settled
}

func (a *AckTracker) ackedLocked(p *pending) bool {
	count := 0
	for _, acked := range p.hops {
		if acked {
			count++
		}
	}
	return count >= p.quorum
}

// Outstanding returns the hops for key that have not yet acked, or nil
// if key is not (or no longer) tracked.
func (a *AckTracker) Outstanding(key message.DedupKey) []name.Name {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pending[key]
	if !ok {
		return nil
	}
	var out []name.Name
	for h, acked := range p.hops {
		if !acked {
			out = append(out, h)
		}
	}
	return out
}

// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routing

import (
	"sync"
	"time"

	"github.com/luxfi/corenet/message"
)

// DedupExpiry is how long a (MessageID, RouteIndex) pair is remembered
// before it is allowed to be forwarded again.
const DedupExpiry = 20 * time.Minute

// Dedup remembers recently-forwarded (MessageID, RouteIndex) pairs so a
// gossiped retransmission of the same message along the same route
// isn't forwarded twice. Entries expire after DedupExpiry.
type Dedup struct {
	mu      sync.Mutex
	seen    map[message.DedupKey]time.Time
	nowFunc func() time.Time
}

// NewDedup returns an empty Dedup cache.
func NewDedup() *Dedup {
	return &Dedup{seen: make(map[message.DedupKey]time.Time), nowFunc: time.Now}
}

// Seen records key as forwarded now and reports whether it had already
// been seen (and not yet expired). A Byzantine peer replaying an old
// message after expiry is treated as a fresh forward, matching the
// gossip protocol's own amnesia window.
func (d *Dedup) Seen(key message.DedupKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.nowFunc()
	d.evictLocked(now)
	if t, ok := d.seen[key]; ok && now.Sub(t) < DedupExpiry {
		return true
	}
	d.seen[key] = now
	return false
}

// evictLocked removes entries older than DedupExpiry. Called with mu held.
func (d *Dedup) evictLocked(now time.Time) {
	for k, t := range d.seen {
		if now.Sub(t) >= DedupExpiry {
			delete(d.seen, k)
		}
	}
}

// Len reports the number of entries currently cached (test/metrics use).
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

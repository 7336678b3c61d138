// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package routing picks next hops for outgoing messages, de-duplicates
// in-flight retransmissions, and tracks which forwarded messages have
// been acknowledged.
package routing

import (
	"github.com/luxfi/corenet/name"
)

// FanoutQuorum is the default number of next hops a Section-destined
// message is forwarded to in parallel, so delivery survives the loss
// of any minority of them.
const FanoutQuorum = 3

// NextHops returns up to fanout peers from candidates, sorted by XOR
// closeness to dst, excluding self. If len(candidates) <= fanout, all
// of them (minus self) are returned.
func NextHops(self, dst name.Name, candidates []name.Name, fanout int) []name.Name {
	filtered := make([]name.Name, 0, len(candidates))
	for _, c := range candidates {
		if c != self {
			filtered = append(filtered, c)
		}
	}
	closest := name.ByClosenessTo(dst, filtered)
	if fanout > 0 && len(closest) > fanout {
		closest = closest[:fanout]
	}
	return closest
}

// IsCloserToDstThanSelf reports whether any candidate is strictly
// closer to dst than self is — used to decide whether self should
// forward at all or is already the terminal hop.
func IsCloserToDstThanSelf(self, dst name.Name, candidates []name.Name) bool {
	for _, c := range candidates {
		if c != self && c.CloserTo(self, dst) {
			return true
		}
	}
	return false
}

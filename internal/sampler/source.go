// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sampler provides uniform random sampling without replacement,
// used by consensus/memconsensus to pick gossip recipients
// deterministically.
package sampler

import "math/rand"

// Source is a source of randomness.
type Source interface {
	Seed(int64)
	Uint64() uint64
}

// source wraps a rand.Rand to implement Source.
type source struct {
	*rand.Rand
}

// NewSource returns a new Source seeded with seed.
func NewSource(seed int64) Source {
	return &source{
		Rand: rand.New(rand.NewSource(seed)),
	}
}

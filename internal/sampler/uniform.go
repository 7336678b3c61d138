// Copyright (C) 2019-2024, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sampler

// Uniform samples indices in [0, count) without replacement.
type Uniform interface {
	Initialize(count int)
	// Sample returns size distinct indices, or ok=false if size > count.
	Sample(size int) (indices []int, ok bool)
	// Next draws one index uniformly from [0, count). Used for the "at
	// most one uniformly-random gossip recipient" pick per tick.
	Next() (int, bool)
}

type uniform struct {
	count int
	rng   Source
}

// NewUniform returns a Uniform sampler drawing from src.
func NewUniform(src Source) Uniform {
	return &uniform{rng: src}
}

func (u *uniform) Initialize(count int) {
	u.count = count
}

func (u *uniform) Next() (int, bool) {
	if u.count <= 0 {
		return 0, false
	}
	return int(u.rng.Uint64() % uint64(u.count)), true
}

func (u *uniform) Sample(size int) ([]int, bool) {
	if size > u.count {
		return nil, false
	}
	indices := make([]int, 0, size)
	selected := make(map[int]bool, size)
	for len(indices) < size {
		idx := int(u.rng.Uint64() % uint64(u.count))
		if !selected[idx] {
			selected[idx] = true
			indices = append(indices, idx)
		}
	}
	return indices, true
}

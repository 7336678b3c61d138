// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package name

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucketIndex(t *testing.T) {
	var a, b Name
	a[0] = 0b10110000
	b[0] = 0b10100000
	require.Equal(t, 3, a.BucketIndex(b))

	require.Equal(t, MaxBits, a.BucketIndex(a))
}

func TestCloserTo(t *testing.T) {
	var target, near, far Name
	target[0] = 0b00000000
	near[0] = 0b00000001
	far[0] = 0b11111111

	require.True(t, near.CloserTo(far, target))
	require.False(t, far.CloserTo(near, target))
}

func TestByClosenessToOrdersNearestFirstDeterministically(t *testing.T) {
	var target, a, b Name
	target[0] = 0b00000000
	a[0] = 0b00000001
	b[0] = 0b00000010
	// a is at distance 1 from target and b at distance 2, so a sorts
	// first; sorting twice yields the same order.
	names := []Name{b, a}
	out1 := ByClosenessTo(target, names)
	out2 := ByClosenessTo(target, names)
	require.Equal(t, out1, out2)
	require.Equal(t, a, out1[0])
}

func TestWithFlippedBit(t *testing.T) {
	var n Name
	flipped := n.WithFlippedBit(0)
	require.Equal(t, uint8(1), flipped.Bit(0))
	require.Equal(t, uint8(0), n.Bit(0))

	flipped = flipped.WithFlippedBit(0)
	require.Equal(t, n, flipped)
}

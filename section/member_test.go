// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package section

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemberInfoIsMature(t *testing.T) {
	m := MemberInfo{AgeCounter: MinAgeCounter}
	require.False(t, m.IsMature())

	m.AgeCounter = MatureAgeCounter
	require.True(t, m.IsMature())
}

func TestMaturedDetectsPowerOfTwoCrossing(t *testing.T) {
	require.True(t, matured(1))
	require.True(t, matured(3))
	require.True(t, matured(7))
	require.False(t, matured(2))
	require.False(t, matured(5))
}

func TestNextPowerOfTwo(t *testing.T) {
	require.Equal(t, uint32(1), nextPowerOfTwo(0))
	require.Equal(t, uint32(1), nextPowerOfTwo(1))
	require.Equal(t, uint32(4), nextPowerOfTwo(3))
	require.Equal(t, uint32(8), nextPowerOfTwo(8))
	require.Equal(t, uint32(16), nextPowerOfTwo(9))
}

// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAllowWithinCapacity(t *testing.T) {
	l := New(1000)
	require.True(t, l.Allow("1.2.3.4", 500))
	require.True(t, l.Allow("1.2.3.4", 500))
}

func TestAllowRejectsOverCapacity(t *testing.T) {
	l := New(1000)
	require.True(t, l.Allow("1.2.3.4", 900))
	require.False(t, l.Allow("1.2.3.4", 200))
}

func TestAllowLeaksOverTime(t *testing.T) {
	l := New(1000)
	start := time.Now()
	l.nowFunc = func() time.Time { return start }

	require.True(t, l.Allow("1.2.3.4", 1000))
	require.False(t, l.Allow("1.2.3.4", 1))

	l.nowFunc = func() time.Time { return start.Add(time.Second) }
	require.True(t, l.Allow("1.2.3.4", 1000))
}

func TestDistinctKeysHaveIndependentBuckets(t *testing.T) {
	l := New(100)
	require.True(t, l.Allow("a", 100))
	require.True(t, l.Allow("b", 100))
}

func TestForgetResetsBucket(t *testing.T) {
	l := New(100)
	require.True(t, l.Allow("a", 100))
	require.False(t, l.Allow("a", 1))

	l.Forget("a")
	require.True(t, l.Allow("a", 100))
}

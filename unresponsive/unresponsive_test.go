// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package unresponsive

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/corenet/name"
)

func TestTrackerFlagsElderAtThreshold(t *testing.T) {
	tr := NewTracker()
	elder := name.Generate()

	for i := 0; i < Threshold-1; i++ {
		tr.Record(elder, false)
	}
	require.False(t, tr.IsUnresponsive(elder))

	tr.Record(elder, false)
	require.True(t, tr.IsUnresponsive(elder))
}

func TestTrackerWindowSlidesOffOldMisses(t *testing.T) {
	tr := NewTracker()
	elder := name.Generate()

	for i := 0; i < Threshold; i++ {
		tr.Record(elder, false)
	}
	require.True(t, tr.IsUnresponsive(elder))

	// push Window participations so all the old misses age out
	for i := 0; i < Window; i++ {
		tr.Record(elder, true)
	}
	require.False(t, tr.IsUnresponsive(elder))
}

func TestTrackerResetClearsHistory(t *testing.T) {
	tr := NewTracker()
	elder := name.Generate()
	for i := 0; i < Threshold; i++ {
		tr.Record(elder, false)
	}
	tr.Reset(elder)
	require.False(t, tr.IsUnresponsive(elder))
}

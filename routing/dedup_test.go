// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/corenet/message"
)

func TestDedupSeenTwiceReturnsTrue(t *testing.T) {
	d := NewDedup()
	key := message.DedupKey{ID: message.NewID(), Route: 0}

	require.False(t, d.Seen(key))
	require.True(t, d.Seen(key))
}

func TestDedupExpiresAfterWindow(t *testing.T) {
	d := NewDedup()
	key := message.DedupKey{ID: message.NewID(), Route: 0}
	start := time.Now()
	d.nowFunc = func() time.Time { return start }

	require.False(t, d.Seen(key))

	d.nowFunc = func() time.Time { return start.Add(DedupExpiry + time.Second) }
	require.False(t, d.Seen(key)) // expired, treated as fresh
}

func TestDedupDistinctRouteIndicesAreIndependent(t *testing.T) {
	d := NewDedup()
	id := message.NewID()
	require.False(t, d.Seen(message.DedupKey{ID: id, Route: 0}))
	require.False(t, d.Seen(message.DedupKey{ID: id, Route: 1}))
}

// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package network

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/name"
	"github.com/luxfi/corenet/section"
)

func provenElders(t *testing.T, prefix name.Prefix, version uint64) (section.ProvenValue[section.EldersInfo], keyshare.SecretKey) {
	t.Helper()
	sk, err := keyshare.Generate()
	require.NoError(t, err)
	info := section.EldersInfo{
		Prefix:  prefix,
		Version: version,
		Elders:  map[name.Name]section.PeerAddress{name.Generate(): {Addr: "x"}},
	}
	return section.NewProven(info, sk, section.EldersInfo.Serialize), sk
}

func TestUpdateNeighbourRejectsStaleVersion(t *testing.T) {
	nw := New()
	prefix := name.Root.Pushed(0)

	v2, _ := provenElders(t, prefix, 2)
	require.True(t, nw.UpdateNeighbour(v2))

	v1, sk1 := provenElders(t, prefix, 1)
	_ = sk1
	require.False(t, nw.UpdateNeighbour(v1))
	require.Equal(t, uint64(2), nw.Neighbours[prefix].Value.Version)
}

func TestUpdateNeighbourRejectsBadProof(t *testing.T) {
	nw := New()
	prefix := name.Root.Pushed(1)
	pv, _ := provenElders(t, prefix, 1)

	forged := pv
	forged.Value.Version = 99 // tamper after signing
	require.False(t, nw.UpdateNeighbour(forged))
}

func TestCoversWholeSpaceDetectsOverlap(t *testing.T) {
	nw := New()
	ourPrefix := name.Root.Pushed(0)
	overlap, _ := provenElders(t, name.Root, 1) // root overlaps with ourPrefix
	nw.UpdateNeighbour(overlap)

	require.False(t, CoversWholeSpace(nw, ourPrefix))
}

func TestCoversWholeSpaceAcceptsSiblingSplit(t *testing.T) {
	nw := New()
	ourPrefix := name.Root.Pushed(0)
	sibling, _ := provenElders(t, name.Root.Pushed(1), 1)
	nw.UpdateNeighbour(sibling)

	require.True(t, CoversWholeSpace(nw, ourPrefix))
}

func TestUpdateTheirKnowledgeKeepsMaximum(t *testing.T) {
	nw := New()
	prefix := name.Root.Pushed(0)

	nw.UpdateTheirKnowledge(prefix, 3)
	nw.UpdateTheirKnowledge(prefix, 1)
	require.Equal(t, 3, nw.TheirKnowledge[prefix])

	nw.UpdateTheirKnowledge(prefix, 5)
	require.Equal(t, 5, nw.TheirKnowledge[prefix])
}

// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/name"
	"github.com/luxfi/corenet/network"
	"github.com/luxfi/corenet/section"
	"github.com/luxfi/corenet/section/keychain"
)

func TestSnapshotMarshalUnmarshalRoundTrip(t *testing.T) {
	genesisKey, err := keyshare.Generate()
	require.NoError(t, err)

	self := name.Generate()
	elders := map[name.Name]section.PeerAddress{self: {Addr: "addr"}}
	info := section.EldersInfo{Prefix: name.Root, Version: 1, Elders: elders}
	proven := section.NewProven(info, genesisKey, section.EldersInfo.Serialize)
	sec := section.New(keychain.New(genesisKey.PublicKey()), proven)

	snap := Snapshot{Self: self, State: Adult, Section: *sec, Network: *network.New()}

	raw, err := Marshal(snap)
	require.NoError(t, err)

	decoded, err := Unmarshal(raw)
	require.NoError(t, err)

	require.Equal(t, snap.Self, decoded.Self)
	require.Equal(t, snap.State, decoded.State)
	require.Equal(t, snap.Section.EldersInfo.Value.Version, decoded.Section.EldersInfo.Value.Version)
	require.True(t, decoded.Section.Chain.LastKey().Equal(genesisKey.PublicKey()))
	require.Contains(t, decoded.Section.Members, self)
}

func TestUnmarshalRejectsWrongVersion(t *testing.T) {
	raw := []byte{99, 0, 0, 0, 0, 0, 0, 0}
	_, err := Unmarshal(raw)
	require.Error(t, err)
}

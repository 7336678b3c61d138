// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/corenet/name"
)

func TestEldersInfoNamesSortedAndQuorum(t *testing.T) {
	elders := map[name.Name]PeerAddress{
		name.Generate(): {Addr: "a"},
		name.Generate(): {Addr: "b"},
		name.Generate(): {Addr: "c"},
		name.Generate(): {Addr: "d"},
		name.Generate(): {Addr: "e"},
		name.Generate(): {Addr: "f"},
		name.Generate(): {Addr: "g"},
	}
	info := EldersInfo{Prefix: name.Root, Version: 1, Elders: elders}

	names := info.Names()
	require.Len(t, names, 7)
	for i := 1; i < len(names); i++ {
		require.True(t, names[i-1].Less(names[i]))
	}
	require.Equal(t, 5, info.Quorum()) // floor(7*2/3)+1 = 5
}

func TestEldersInfoIsElder(t *testing.T) {
	n := name.Generate()
	info := EldersInfo{Prefix: name.Root, Elders: map[name.Name]PeerAddress{n: {Addr: "x"}}}

	require.True(t, info.IsElder(n))
	require.False(t, info.IsElder(name.Generate()))
}

func TestEldersInfoSerializeDeterministic(t *testing.T) {
	elders := map[name.Name]PeerAddress{
		name.Generate(): {Addr: "a"},
		name.Generate(): {Addr: "b"},
	}
	info := EldersInfo{Prefix: name.Root, Version: 3, Elders: elders}

	require.Equal(t, info.Serialize(), info.Serialize())
}

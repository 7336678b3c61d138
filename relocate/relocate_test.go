// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package relocate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/name"
	"github.com/luxfi/corenet/section"
)

func TestCandidatePicksMatchingTrailingZeroCount(t *testing.T) {
	a, b := name.Generate(), name.Generate()
	members := map[name.Name]section.MemberInfo{
		a: {Name: a, AgeCounter: 0b1000}, // trailing zeros = 3
		b: {Name: b, AgeCounter: 0b0100}, // trailing zeros = 2
	}

	n, ok := Candidate([]name.Name{a, b}, members, 2)
	require.True(t, ok)
	require.Equal(t, b, n)
}

func TestCandidateNoMatchReturnsFalse(t *testing.T) {
	a := name.Generate()
	members := map[name.Name]section.MemberInfo{a: {Name: a, AgeCounter: 0b1}}
	_, ok := Candidate([]name.Name{a}, members, 5)
	require.False(t, ok)
}

func TestDestinationPicksClosestCandidate(t *testing.T) {
	n := name.Generate()
	var h [32]byte
	target := destinationHash(n, h)

	// one candidate prefix built directly from target bits is trivially closest
	exact := name.New(target, 8)
	other := exact.Sibling()

	dst, ok := Destination(n, h, []name.Prefix{other, exact})
	require.True(t, ok)
	require.True(t, dst.Equal(exact))
}

func TestSignAndVerifyRelocationDetails(t *testing.T) {
	sk, err := keyshare.Generate()
	require.NoError(t, err)

	d := Details{Name: name.Generate(), Destination: name.Root.Pushed(1), NodeKnowledge: 3}
	signed := Sign(d, sk)
	require.True(t, Verify(signed))

	signed.Details.NodeKnowledge = 99
	require.False(t, Verify(signed))
}

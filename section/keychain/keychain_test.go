// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package keychain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/corenet/crypto/keyshare"
)

func genKey(t *testing.T) keyshare.SecretKey {
	t.Helper()
	sk, err := keyshare.Generate()
	require.NoError(t, err)
	return sk
}

func TestNewChainTrustsItself(t *testing.T) {
	k0 := genKey(t)
	c := New(k0.PublicKey())

	trusted := map[[32]byte]bool{k0.PublicKey().Bytes(): true}
	require.Equal(t, Trusted, c.CheckTrust(trusted))
}

func TestPushExtendsLastKey(t *testing.T) {
	k0 := genKey(t)
	k1 := genKey(t)
	c := New(k0.PublicKey())

	sig := k0.Sign(serializeKey(k1.PublicKey()))
	require.True(t, c.Push(k1.PublicKey(), sig))
	require.True(t, c.LastKey().Equal(k1.PublicKey()))
	require.Equal(t, 2, c.Len())
}

func TestPushRejectsBadSignature(t *testing.T) {
	k0 := genKey(t)
	k1 := genKey(t)
	k2 := genKey(t)
	c := New(k0.PublicKey())

	badSig := k2.Sign(serializeKey(k1.PublicKey())) // signed by the wrong key
	require.False(t, c.Push(k1.PublicKey(), badSig))
	require.True(t, c.LastKey().Equal(k0.PublicKey()))
}

func chainOf(t *testing.T, keys ...keyshare.SecretKey) *Chain {
	t.Helper()
	c := New(keys[0].PublicKey())
	for i := 1; i < len(keys); i++ {
		sig := keys[i-1].Sign(serializeKey(keys[i].PublicKey()))
		require.True(t, c.Push(keys[i].PublicKey(), sig))
	}
	return c
}

func TestCheckTrustPicksLatestTrustedKey(t *testing.T) {
	k0, k1, k2 := genKey(t), genKey(t), genKey(t)
	c := chainOf(t, k0, k1, k2)

	trusted := map[[32]byte]bool{
		k0.PublicKey().Bytes(): true,
		k1.PublicKey().Bytes(): true,
	}
	require.Equal(t, Trusted, c.CheckTrust(trusted))
}

func TestCheckTrustUnknownWhenNoKeyTrusted(t *testing.T) {
	k0, k1 := genKey(t), genKey(t)
	c := chainOf(t, k0, k1)

	trusted := map[[32]byte]bool{genKey(t).PublicKey().Bytes(): true}
	require.Equal(t, Unknown, c.CheckTrust(trusted))
}

func TestCheckTrustInvalidWhenChainBroken(t *testing.T) {
	k0, k1, k2 := genKey(t), genKey(t), genKey(t)
	c := New(k0.PublicKey())
	// forge tail block with a signature that does not verify
	c.tail = append(c.tail, block{key: k1.PublicKey(), sig: k2.Sign(serializeKey(k2.PublicKey()))})

	trusted := map[[32]byte]bool{k0.PublicKey().Bytes(): true}
	require.Equal(t, Invalid, c.CheckTrust(trusted))
}

func TestSliceClampsAndNeverEmpty(t *testing.T) {
	k0, k1, k2 := genKey(t), genKey(t), genKey(t)
	c := chainOf(t, k0, k1, k2)

	s := c.Slice(-5, 1000)
	require.Equal(t, 3, s.Len())
	require.True(t, s.LastKey().Equal(c.LastKey()))

	single := c.Slice(5, 5)
	require.Equal(t, 1, single.Len())
}

func TestExtendPreservesLastKey(t *testing.T) {
	k0, k1, k2 := genKey(t), genKey(t), genKey(t)
	longer := chainOf(t, k0, k1, k2)
	short := longer.Slice(2, 3) // just k2

	extended := short.Extend(k0.PublicKey(), longer)
	require.True(t, extended.RootKey().Equal(k0.PublicKey()))
	require.True(t, extended.LastKey().Equal(short.LastKey()))
}

func TestExtendFallsBackToRoot(t *testing.T) {
	k0, k1, k2 := genKey(t), genKey(t), genKey(t)
	longer := chainOf(t, k0, k1, k2)
	short := longer.Slice(2, 3)

	unrelated := genKey(t)
	extended := short.Extend(unrelated.PublicKey(), longer)
	require.True(t, extended.RootKey().Equal(k0.PublicKey()))
}

func TestChainMonotonicityNeverRewinds(t *testing.T) {
	k0, k1, k2 := genKey(t), genKey(t), genKey(t)
	c := New(k0.PublicKey())
	last := c.LastKey()

	sig1 := k0.Sign(serializeKey(k1.PublicKey()))
	require.True(t, c.Push(k1.PublicKey(), sig1))
	require.NotEqual(t, last, c.LastKey())
	last = c.LastKey()

	sig2 := k1.Sign(serializeKey(k2.PublicKey()))
	require.True(t, c.Push(k2.PublicKey(), sig2))
	require.NotEqual(t, last, c.LastKey())
}

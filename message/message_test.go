// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package message

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/name"
	"github.com/luxfi/corenet/section"
	"github.com/luxfi/corenet/section/keychain"
)

func TestSignAsNodeAndVerify(t *testing.T) {
	sk, err := keyshare.Generate()
	require.NoError(t, err)
	self := name.Generate()

	m := Message{ID: NewID(), Dst: DstLocation{Kind: DstNode, Name: name.Generate()}, VariantKind: 1, Payload: []byte("ping")}
	m = SignAsNode(m, self, sk)

	err = VerifySrc(m, nil, nil, 0)
	require.NoError(t, err)
}

func TestVerifySrcRejectsTamperedPayload(t *testing.T) {
	sk, err := keyshare.Generate()
	require.NoError(t, err)
	m := SignAsNode(Message{ID: NewID(), Dst: DstLocation{Kind: DstNode}, Payload: []byte("a")}, name.Generate(), sk)

	m.Payload = []byte("b")
	err = VerifySrc(m, nil, nil, 0)
	require.ErrorIs(t, err, ErrUntrustedSource)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sk, err := keyshare.Generate()
	require.NoError(t, err)
	self := name.Generate()
	dst := DstLocation{Kind: DstSection, Prefix: name.Root.Pushed(1)}

	m := SignAsNode(Message{ID: NewID(), Dst: dst, VariantKind: 7, Payload: []byte("payload-bytes")}, self, sk)

	raw := Encode(m)
	decoded, err := Decode(raw)
	require.NoError(t, err)

	require.Equal(t, m.ID, decoded.ID)
	require.Equal(t, m.VariantKind, decoded.VariantKind)
	require.Equal(t, m.Payload, decoded.Payload)
	require.Equal(t, m.Dst.Kind, decoded.Dst.Kind)
	require.True(t, m.Dst.Prefix.Equal(decoded.Dst.Prefix))
	require.NoError(t, VerifySrc(decoded, nil, nil, 0))
}

func TestEncodeDecodeSectionSourcedMessage(t *testing.T) {
	sectionKey, err := keyshare.Generate()
	require.NoError(t, err)

	m := Message{
		ID:  NewID(),
		Src: SrcAuthority{Kind: SrcSection, Prefix: name.Root},
		Dst: DstLocation{Kind: DstNode, Name: name.Generate()},
	}
	m.Payload = []byte("section says hi")
	sig := sectionKey.Sign(m.signedBytes())
	m.Src.Proof = section.Proof{PublicKey: sectionKey.PublicKey(), Signature: sig}

	raw := Encode(m)
	decoded, err := Decode(raw)
	require.NoError(t, err)
	trusted := map[[32]byte]bool{sectionKey.PublicKey().Bytes(): true}
	require.NoError(t, VerifySrc(decoded, trusted, nil, 0))
}

func TestEncodeDecodeRoundTripsProofChainAndAggregation(t *testing.T) {
	k0, err := keyshare.Generate()
	require.NoError(t, err)
	k1, err := keyshare.Generate()
	require.NoError(t, err)

	k1Bytes := k1.PublicKey().Bytes()
	chain := keychain.New(k0.PublicKey())
	chain.MustPush(k1.PublicKey(), k0.Sign(k1Bytes[:]))

	m := Message{ID: NewID(), ProofChain: chain, Aggregation: AggregationAtDestination}
	raw := Encode(m)
	decoded, err := Decode(raw)
	require.NoError(t, err)

	require.Equal(t, AggregationAtDestination, decoded.Aggregation)
	require.NotNil(t, decoded.ProofChain)
	require.Equal(t, chain.Len(), decoded.ProofChain.Len())
	require.True(t, decoded.ProofChain.LastKey().Equal(k1.PublicKey()))
}

func TestCheckReceiveBouncesUntrustedProofChain(t *testing.T) {
	k0, err := keyshare.Generate()
	require.NoError(t, err)
	other, err := keyshare.Generate()
	require.NoError(t, err)

	chain := keychain.New(k0.PublicKey())
	m := Message{ID: NewID(), ProofChain: chain, Src: SrcAuthority{Kind: SrcNode, Name: name.Generate()}, Dst: DstLocation{Kind: DstNode, Name: name.Generate()}}

	outcome := CheckReceive(m, map[[32]byte]bool{other.PublicKey().Bytes(): true}, nil)
	require.Equal(t, BounceUntrusted, outcome)

	bounced, err := Bounce(outcome, m, k0.PublicKey())
	require.NoError(t, err)
	require.Equal(t, VariantBouncedUntrustedMessage, bounced.VariantKind)
	require.Equal(t, m.Src.Name, bounced.Dst.Name)

	original, knownKey, err := Unbounce(bounced)
	require.NoError(t, err)
	require.Equal(t, m.ID, original.ID)
	require.True(t, knownKey.Equal(k0.PublicKey()))
}

func TestCheckReceiveAcceptsTrustedChainAndKnownVariant(t *testing.T) {
	k0, err := keyshare.Generate()
	require.NoError(t, err)
	chain := keychain.New(k0.PublicKey())
	m := Message{ID: NewID(), ProofChain: chain, VariantKind: 3}

	outcome := CheckReceive(m, map[[32]byte]bool{k0.PublicKey().Bytes(): true}, func(kind uint16) bool { return kind == 3 })
	require.Equal(t, Accept, outcome)
}

func TestCheckReceiveBouncesUnknownVariant(t *testing.T) {
	m := Message{ID: NewID(), Src: SrcAuthority{Kind: SrcNode, Name: name.Generate()}, Dst: DstLocation{Kind: DstNode, Name: name.Generate()}, VariantKind: 99}
	outcome := CheckReceive(m, nil, func(kind uint16) bool { return kind != 99 })
	require.Equal(t, BounceUnknownVariant, outcome)

	bounced, err := Bounce(outcome, m, keyshare.PublicKey{})
	require.NoError(t, err)
	require.Equal(t, VariantBouncedUnknownMessage, bounced.VariantKind)
}

// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package accumulate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/corenet/consensus"
	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/name"
	"github.com/luxfi/corenet/network"
	"github.com/luxfi/corenet/section"
	"github.com/luxfi/corenet/section/keychain"
)

func newState(t *testing.T) (*State, keyshare.SecretKey) {
	t.Helper()
	genesisKey, err := keyshare.Generate()
	require.NoError(t, err)

	elders := map[name.Name]section.PeerAddress{name.Generate(): {Addr: "x"}}
	info := section.EldersInfo{Prefix: name.Root, Version: 1, Elders: elders}
	proven := section.NewProven(info, genesisKey, section.EldersInfo.Serialize)

	sec := section.New(keychain.New(genesisKey.PublicKey()), proven)
	return &State{
		Section:   sec,
		Network:   network.New(),
		Trusted:   map[[32]byte]bool{genesisKey.PublicKey().Bytes(): true},
		ElderSize: 8,
	}, genesisKey
}

func marshalMember(t *testing.T, m section.MemberInfo, signer keyshare.SecretKey) []byte {
	t.Helper()
	pv := section.NewProven(m, signer, section.MemberInfo.Serialize)
	payload, err := json.Marshal(memberPayload{Value: m, Proof: pv.Proof})
	require.NoError(t, err)
	return payload
}

func TestApplyOnlineAddsMemberAndIncrementsOthersAge(t *testing.T) {
	s, genesisKey := newState(t)
	existingName := s.Section.MatureMembers()[0].Name

	m := section.MemberInfo{Name: name.Generate(), State: section.MemberState{Kind: section.Joined}, AgeCounter: section.MinAgeCounter}
	payload := marshalMember(t, m, genesisKey)

	changed, err := Apply(s, consensus.Block{Event: consensus.AccumulatingEvent{Kind: consensus.Online, Payload: payload, RelatedTo: m.Name}})
	require.NoError(t, err)
	require.True(t, changed)
	require.Contains(t, s.Section.Members, m.Name)

	existing := s.Section.Members[existingName]
	require.Equal(t, section.MatureAgeCounter+1, existing.AgeCounter)
	require.NotEmpty(t, s.PendingElders)
}

func TestApplyOfflineIncrementsRemainingMembersAge(t *testing.T) {
	s, genesisKey := newState(t)
	var survivor name.Name
	for n := range s.Section.Members {
		survivor = n
		break
	}
	before := s.Section.Members[survivor].AgeCounter

	// A distinct departing member, not survivor, so survivor's counter is
	// the one incremented by the churn.
	departing := section.MemberInfo{Name: name.Generate(), State: section.MemberState{Kind: section.Joined}, AgeCounter: section.MinAgeCounter}
	_, err := Apply(s, consensus.Block{Event: consensus.AccumulatingEvent{
		Kind:      consensus.Online,
		Payload:   marshalMember(t, departing, genesisKey),
		RelatedTo: departing.Name,
	}})
	require.NoError(t, err)

	offlinePayload := marshalMember(t, section.MemberInfo{Name: departing.Name, State: section.MemberState{Kind: section.Left}, AgeCounter: section.MinAgeCounter + 1}, genesisKey)
	changed, err := Apply(s, consensus.Block{Event: consensus.AccumulatingEvent{Kind: consensus.Offline, Payload: offlinePayload, RelatedTo: departing.Name}})
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, section.Left, s.Section.Members[departing.Name].State.Kind)
	require.Greater(t, s.Section.Members[survivor].AgeCounter, before)
}

func TestApplyRelocatePrepareCountsDownThenConvertsToRelocating(t *testing.T) {
	s, genesisKey := newState(t)
	var target name.Name
	for n := range s.Section.Members {
		target = n
		break
	}
	dest := name.Root.Pushed(1)

	prepare := func(countDown int) (bool, error) {
		m := section.MemberInfo{
			Name:       target,
			State:      section.MemberState{Kind: section.Preparing, Destination: dest, CountDown: countDown},
			AgeCounter: section.MatureAgeCounter,
		}
		pv := section.NewProven(m, genesisKey, section.MemberInfo.Serialize)
		payload, err := json.Marshal(relocatePreparePayload{Value: m, Proof: pv.Proof, CountDown: countDown})
		require.NoError(t, err)
		return Apply(s, consensus.Block{Event: consensus.AccumulatingEvent{Kind: consensus.RelocatePrepare, Payload: payload, RelatedTo: target}})
	}

	changed, err := prepare(2)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, section.Preparing, s.Section.Members[target].State.Kind)
	require.Equal(t, 1, s.Section.Members[target].State.CountDown)

	changed, err = prepare(1)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, section.Relocating, s.Section.Members[target].State.Kind)
	require.True(t, s.Section.Members[target].State.Destination.Equal(dest))
}

func TestApplyUnknownEventKindErrors(t *testing.T) {
	s, _ := newState(t)
	_, err := Apply(s, consensus.Block{Event: consensus.AccumulatingEvent{Kind: consensus.EventKind(99)}})
	require.Error(t, err)
}

func TestApplyAckMessageRaisesTheirKnowledge(t *testing.T) {
	s, genesisKey := newState(t)
	nextKey, err := keyshare.Generate()
	require.NoError(t, err)
	s.Section.Chain.MustPush(nextKey.PublicKey(), genesisKey.Sign(pubKeyBytesForTest(nextKey.PublicKey())))

	prefix := name.Root.Pushed(0)
	payload, err := json.Marshal(ackPayload{SrcPrefix: [32]byte(prefix.Bits), Bits: prefix.BitCount, AckKey: nextKey.PublicKey().Bytes()})
	require.NoError(t, err)

	changed, err := Apply(s, consensus.Block{Event: consensus.AccumulatingEvent{Kind: consensus.AckMessage, Payload: payload}})
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 1, s.Network.TheirKnowledge[prefix])

	// A stale ack (pointing at the root key, index 0) no longer advances
	// their_knowledge once a higher index is recorded.
	stalePayload, err := json.Marshal(ackPayload{SrcPrefix: [32]byte(prefix.Bits), Bits: prefix.BitCount, AckKey: genesisKey.PublicKey().Bytes()})
	require.NoError(t, err)
	changed, err = Apply(s, consensus.Block{Event: consensus.AccumulatingEvent{Kind: consensus.AckMessage, Payload: stalePayload}})
	require.NoError(t, err)
	require.False(t, changed)
}

func TestApplyAckMessageIgnoresUnrecognisedKey(t *testing.T) {
	s, _ := newState(t)
	unknownKey, err := keyshare.Generate()
	require.NoError(t, err)
	payload, err := json.Marshal(ackPayload{AckKey: unknownKey.PublicKey().Bytes()})
	require.NoError(t, err)

	changed, err := Apply(s, consensus.Block{Event: consensus.AccumulatingEvent{Kind: consensus.AckMessage, Payload: payload}})
	require.NoError(t, err)
	require.False(t, changed)
}

func TestApplySectionInfoAdvancesVersionTrustAndPushesChainKey(t *testing.T) {
	s, genesisKey := newState(t)
	newKey, err := keyshare.Generate()
	require.NoError(t, err)

	info := section.EldersInfo{Prefix: name.Root, Version: 2, Elders: map[name.Name]section.PeerAddress{name.Generate(): {Addr: "y"}}}
	proven := section.NewProven(info, newKey, section.EldersInfo.Serialize)
	payload, err := json.Marshal(eldersPayload{
		Value:  info,
		Proof:  proven.Proof,
		NewKey: newKey.PublicKey(),
		KeySig: genesisKey.Sign(pubKeyBytesForTest(newKey.PublicKey())),
	})
	require.NoError(t, err)

	changed, err := Apply(s, consensus.Block{Event: consensus.AccumulatingEvent{Kind: consensus.SectionInfo, Payload: payload}})
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, uint64(2), s.Section.EldersInfo.Value.Version)
	require.True(t, s.Trusted[newKey.PublicKey().Bytes()])
	require.Equal(t, 2, s.Section.Chain.Len())
	require.True(t, s.Section.Chain.LastKey().Equal(newKey.PublicKey()))
}

func TestApplySectionInfoRejectsBadChainSignature(t *testing.T) {
	s, _ := newState(t)
	newKey, err := keyshare.Generate()
	require.NoError(t, err)
	wrongSigner, err := keyshare.Generate()
	require.NoError(t, err)

	info := section.EldersInfo{Prefix: name.Root, Version: 2, Elders: map[name.Name]section.PeerAddress{name.Generate(): {Addr: "y"}}}
	proven := section.NewProven(info, newKey, section.EldersInfo.Serialize)
	payload, err := json.Marshal(eldersPayload{
		Value:  info,
		Proof:  proven.Proof,
		NewKey: newKey.PublicKey(),
		KeySig: wrongSigner.Sign(pubKeyBytesForTest(newKey.PublicKey())),
	})
	require.NoError(t, err)

	_, err = Apply(s, consensus.Block{Event: consensus.AccumulatingEvent{Kind: consensus.SectionInfo, Payload: payload}})
	require.Error(t, err)
	require.Equal(t, 1, s.Section.Chain.Len())
}

func TestApplyMalformedPayloadErrors(t *testing.T) {
	s, _ := newState(t)
	_, err := Apply(s, consensus.Block{Event: consensus.AccumulatingEvent{Kind: consensus.Online, Payload: []byte("not json")}})
	require.Error(t, err)
}

// pubKeyBytesForTest mirrors keychain's own (unexported) key-push
// serialization so tests can build a valid Push/Chain.Push signature.
func pubKeyBytesForTest(pk keyshare.PublicKey) []byte {
	b := pk.Bytes()
	return b[:]
}

// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package message defines the wire message format routed between
// nodes: its source and destination authorities, its signature proof,
// and the bounce/re-shard rules applied at send and receive time.
package message

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/luxfi/corenet/crypto/keyshare"
	"github.com/luxfi/corenet/message/codec"
	"github.com/luxfi/corenet/name"
	"github.com/luxfi/corenet/section"
	"github.com/luxfi/corenet/section/keychain"
)

// ID uniquely identifies one logical message across all the routes it
// may be forwarded along.
type ID [16]byte

// NewID returns a fresh random message ID.
func NewID() ID {
	var id ID
	_, _ = rand.Read(id[:])
	return id
}

// SrcKind discriminates SrcAuthority variants.
type SrcKind uint8

const (
	// SrcNode: sent by a single node, authenticated by its own key.
	SrcNode SrcKind = iota
	// SrcSection: sent on behalf of a whole section, authenticated by a
	// quorum of elder signatures under the section's current key.
	SrcSection
	// SrcBlsShare: one elder's individual share of a section-authority
	// message, en route to being combined into SrcSection.
	SrcBlsShare
)

// SrcAuthority identifies who is asserting a message's contents.
type SrcAuthority struct {
	Kind      SrcKind
	Name      name.Name        // Node, BlsShare
	Prefix    name.Prefix      // Section, BlsShare
	PublicKey keyshare.PublicKey // Node
	Proof     section.Proof      // Section: quorum proof; BlsShare: one share
}

// DstKind discriminates DstLocation variants.
type DstKind uint8

const (
	// DstNode routes to a single named node, relayed hop by hop.
	DstNode DstKind = iota
	// DstSection routes to whichever elders currently serve Prefix.
	DstSection
	// DstDirect routes to Addr over an already-established connection,
	// without further name-based routing.
	DstDirect
	// DstDirectUnrouted is DstDirect but exempt from dedup/ack tracking
	// (used for bootstrap handshakes before a node has an identity).
	DstDirectUnrouted
)

// DstLocation identifies where a message is headed.
type DstLocation struct {
	Kind   DstKind
	Name   name.Name
	Prefix name.Prefix
	Addr   string
}

// AggregationKind discriminates Aggregation variants.
type AggregationKind uint8

const (
	// AggregationNone: the message is already individually authenticated
	// (SrcNode, or a complete SrcSection proof) and needs no combining.
	AggregationNone AggregationKind = iota
	// AggregationAtDestination: the message is one BLS share of many
	// (SrcBlsShare) that the destination elders combine into a single
	// SrcSection-authenticated message once a quorum of shares arrives.
	AggregationAtDestination
)

// Message is one routed unit: a message ID, its asserted source and
// intended destination, a variant-tagged payload, whatever signature
// proves Src's claim, an optional proof of the sender's section key
// chain, and how (if at all) the receiver must aggregate it before
// acting on it.
type Message struct {
	ID          ID
	Src         SrcAuthority
	Dst         DstLocation
	VariantKind uint16
	Payload     []byte
	Signature   keyshare.Signature // meaningful only for Src.Kind == SrcNode

	// ProofChain is Option<SectionKeyChain>: present on a SrcSection or
	// SrcBlsShare message, it is the sender section's key chain from a
	// key the sender believes the receiver trusts up to the key that
	// produced Src.Proof, so the receiver can extend its own trust to
	// cover the proof without a prior round trip.
	ProofChain *keychain.Chain

	Aggregation AggregationKind
}

// RouteIndex disambiguates retransmissions of the same ID sent along
// different routes (e.g. after a bounce), for the dedup cache key.
type RouteIndex uint32

// DedupKey is what routing dedup caches key entries by.
type DedupKey struct {
	ID    ID
	Route RouteIndex
}

var (
	// ErrUntrustedSource is returned when Src's proof does not verify
	// under a section key the verifier currently trusts.
	ErrUntrustedSource = errors.New("message: source authority not trusted")
	// ErrUnknownVariant is returned when VariantKind has no registered
	// handler at the receiver — triggers a bounce, not a drop.
	ErrUnknownVariant = errors.New("message: unknown variant")
)

// signedBytes returns the bytes a message's Signature or source proof
// covers: ID, Dst (kind, name, prefix and address), VariantKind and
// Payload. Src, ProofChain and Aggregation are not covered.
func (m Message) signedBytes() []byte {
	p := codec.NewPacker(64 + len(m.Payload))
	p.PutBytes(m.ID[:])
	p.PutUint8(uint8(m.Dst.Kind))
	p.PutBytes(m.Dst.Name[:])
	p.PutBytes(m.Dst.Prefix.Bits[:])
	p.PutUint32(uint32(m.Dst.Prefix.BitCount))
	p.PutBlob([]byte(m.Dst.Addr))
	p.PutUint16(m.VariantKind)
	p.PutBlob(m.Payload)
	return p.Bytes()
}

// SignAsNode sets m.Src to a Node authority for self and signs it with
// sk. Returns the signed message.
func SignAsNode(m Message, self name.Name, sk keyshare.SecretKey) Message {
	m.Src = SrcAuthority{Kind: SrcNode, Name: self, PublicKey: sk.PublicKey()}
	m.Signature = sk.Sign(m.signedBytes())
	return m
}

// VerifySrc checks m's source authority, given the set of section
// public keys the verifier currently trusts (keyed by Bytes()) and the
// section's elder keys. A SrcSection proof is a single key/signature
// pair: its key must be trusted or one of sectionElders, and its
// signature must verify. quorum is not consulted.
func VerifySrc(m Message, trustedKeys map[[32]byte]bool, sectionElders []keyshare.PublicKey, quorum int) error {
	switch m.Src.Kind {
	case SrcNode:
		if !m.Signature.Verify(m.Src.PublicKey, m.signedBytes()) {
			return fmt.Errorf("%w: node signature invalid", ErrUntrustedSource)
		}
		return nil
	case SrcSection:
		proofKey := m.Src.Proof.PublicKey.Bytes()
		known := trustedKeys[proofKey]
		for _, k := range sectionElders {
			if k.Bytes() == proofKey {
				known = true
			}
		}
		if !known {
			return fmt.Errorf("%w: no trusted section key", ErrUntrustedSource)
		}
		proof := &section.Proof{}
		*proof = m.Src.Proof
		if !proof.Signature.Verify(proof.PublicKey, m.signedBytes()) {
			return fmt.Errorf("%w: section proof invalid", ErrUntrustedSource)
		}
		return nil
	case SrcBlsShare:
		if !m.Src.Proof.Signature.Verify(m.Src.Proof.PublicKey, m.signedBytes()) {
			return fmt.Errorf("%w: share signature invalid", ErrUntrustedSource)
		}
		return nil
	default:
		return fmt.Errorf("%w: unrecognised src kind %d", ErrUntrustedSource, m.Src.Kind)
	}
}

// Encode serializes m to bytes using the little-endian wire codec.
func Encode(m Message) []byte {
	p := codec.NewPacker(128 + len(m.Payload))
	p.PutBytes(m.ID[:])

	p.PutUint8(uint8(m.Src.Kind))
	p.PutBytes(m.Src.Name[:])
	p.PutBytes(m.Src.Prefix.Bits[:])
	p.PutUint32(uint32(m.Src.Prefix.BitCount))
	srcKey := m.Src.PublicKey.Bytes()
	p.PutBytes(srcKey[:])
	proofKey := m.Src.Proof.PublicKey.Bytes()
	p.PutBytes(proofKey[:])
	p.PutBytes(m.Src.Proof.Signature.R[:])
	p.PutBytes(m.Src.Proof.Signature.S[:])

	p.PutUint8(uint8(m.Dst.Kind))
	p.PutBytes(m.Dst.Name[:])
	p.PutBytes(m.Dst.Prefix.Bits[:])
	p.PutUint32(uint32(m.Dst.Prefix.BitCount))
	p.PutBlob([]byte(m.Dst.Addr))

	p.PutUint16(m.VariantKind)
	p.PutBlob(m.Payload)

	p.PutBytes(m.Signature.R[:])
	p.PutBytes(m.Signature.S[:])

	putProofChain(p, m.ProofChain)
	p.PutUint8(uint8(m.Aggregation))
	return p.Bytes()
}

// putProofChain writes chain's presence flag and, if present, its root
// key followed by every (key, signature) tail link.
func putProofChain(p *codec.Packer, chain *keychain.Chain) {
	if chain == nil {
		p.PutUint8(0)
		return
	}
	p.PutUint8(1)
	root, tail := chain.Export()
	rootBytes := root.Bytes()
	p.PutBytes(rootBytes[:])
	p.PutUint32(uint32(len(tail)))
	for _, b := range tail {
		keyBytes := b.Key.Bytes()
		p.PutBytes(keyBytes[:])
		p.PutBytes(b.Sig.R[:])
		p.PutBytes(b.Sig.S[:])
	}
}

// Decode parses bytes produced by Encode.
func Decode(raw []byte) (Message, error) {
	u := codec.NewUnpacker(raw)
	var m Message

	idBytes, err := u.GetBytes(16)
	if err != nil {
		return m, fmt.Errorf("message: decode id: %w", err)
	}
	copy(m.ID[:], idBytes)

	srcKind, err := u.GetUint8()
	if err != nil {
		return m, fmt.Errorf("message: decode src kind: %w", err)
	}
	m.Src.Kind = SrcKind(srcKind)
	if err := readName(u, &m.Src.Name); err != nil {
		return m, err
	}
	if err := readPrefix(u, &m.Src.Prefix); err != nil {
		return m, err
	}
	if err := readPublicKey(u, &m.Src.PublicKey); err != nil {
		return m, err
	}
	if err := readPublicKey(u, &m.Src.Proof.PublicKey); err != nil {
		return m, err
	}
	if err := readSignature(u, &m.Src.Proof.Signature); err != nil {
		return m, err
	}

	dstKind, err := u.GetUint8()
	if err != nil {
		return m, fmt.Errorf("message: decode dst kind: %w", err)
	}
	m.Dst.Kind = DstKind(dstKind)
	if err := readName(u, &m.Dst.Name); err != nil {
		return m, err
	}
	if err := readPrefix(u, &m.Dst.Prefix); err != nil {
		return m, err
	}
	addr, err := u.GetBlob()
	if err != nil {
		return m, fmt.Errorf("message: decode dst addr: %w", err)
	}
	m.Dst.Addr = string(addr)

	variant, err := u.GetUint16()
	if err != nil {
		return m, fmt.Errorf("message: decode variant: %w", err)
	}
	m.VariantKind = variant

	payload, err := u.GetBlob()
	if err != nil {
		return m, fmt.Errorf("message: decode payload: %w", err)
	}
	m.Payload = payload

	if err := readSignature(u, &m.Signature); err != nil {
		return m, err
	}

	chain, err := getProofChain(u)
	if err != nil {
		return m, err
	}
	m.ProofChain = chain

	aggregation, err := u.GetUint8()
	if err != nil {
		return m, fmt.Errorf("message: decode aggregation: %w", err)
	}
	m.Aggregation = AggregationKind(aggregation)
	return m, nil
}

// getProofChain is the Decode-side counterpart to putProofChain.
func getProofChain(u *codec.Unpacker) (*keychain.Chain, error) {
	present, err := u.GetUint8()
	if err != nil {
		return nil, fmt.Errorf("message: decode proof chain presence: %w", err)
	}
	if present == 0 {
		return nil, nil
	}
	var root keyshare.PublicKey
	if err := readPublicKey(u, &root); err != nil {
		return nil, err
	}
	count, err := u.GetUint32()
	if err != nil {
		return nil, fmt.Errorf("message: decode proof chain length: %w", err)
	}
	tail := make([]keychain.KeyBlock, 0, count)
	for i := uint32(0); i < count; i++ {
		var b keychain.KeyBlock
		if err := readPublicKey(u, &b.Key); err != nil {
			return nil, err
		}
		if err := readSignature(u, &b.Sig); err != nil {
			return nil, err
		}
		tail = append(tail, b)
	}
	return keychain.Import(root, tail), nil
}

func readName(u *codec.Unpacker, out *name.Name) error {
	b, err := u.GetBytes(name.Size)
	if err != nil {
		return fmt.Errorf("message: decode name: %w", err)
	}
	copy(out[:], b)
	return nil
}

func readPrefix(u *codec.Unpacker, out *name.Prefix) error {
	if err := readName(u, &out.Bits); err != nil {
		return err
	}
	bitCount, err := u.GetUint32()
	if err != nil {
		return fmt.Errorf("message: decode prefix bitcount: %w", err)
	}
	out.BitCount = int(bitCount)
	return nil
}

func readPublicKey(u *codec.Unpacker, out *keyshare.PublicKey) error {
	b, err := u.GetBytes(32)
	if err != nil {
		return fmt.Errorf("message: decode public key: %w", err)
	}
	var arr [32]byte
	copy(arr[:], b)
	// An all-zero key means "absent" (e.g. a Node-source message has no
	// Src.Proof.PublicKey); decode it as the zero value without failing.
	if arr == ([32]byte{}) {
		*out = keyshare.PublicKey{}
		return nil
	}
	pk, err := keyshare.PublicKeyFromBytes(arr)
	if err != nil {
		return fmt.Errorf("message: bad public key point: %w", err)
	}
	*out = pk
	return nil
}

// Bounce variant kinds are reserved just below ShardVariant so they
// never collide with application-registered variants.
const (
	// VariantBouncedUntrustedMessage wraps a message the receiver could
	// not extend trust to from its proof_chain.
	VariantBouncedUntrustedMessage uint16 = 0xFFFD
	// VariantBouncedUnknownMessage wraps a message whose VariantKind the
	// receiver has no handler registered for.
	VariantBouncedUnknownMessage uint16 = 0xFFFE
)

// ReceiveOutcome is what a receiver should do with an inbound message
// once its proof_chain and variant have been checked, per spec.md §4.7.
type ReceiveOutcome int

const (
	// Accept: deliver or forward m as normal.
	Accept ReceiveOutcome = iota
	// BounceUntrusted: m's proof_chain didn't resolve to Trusted; send it
	// back wrapped in a BouncedUntrustedMessage carrying the receiver's
	// last trusted key so the sender can retry with a longer chain.
	BounceUntrusted
	// BounceUnknownVariant: m's VariantKind has no handler here; send it
	// back wrapped in a BouncedUnknownMessage unchanged, in case the
	// sender is running newer code the receiver doesn't understand yet.
	BounceUnknownVariant
)

// KnownVariant reports whether kind has a registered handler at the
// receiver.
type KnownVariant func(kind uint16) bool

// CheckReceive evaluates m against trusted section keys and the set of
// variants the receiver understands. A message with no ProofChain is
// trust-checked only by its Signature (handled by VerifySrc, called
// separately); CheckReceive only adjudicates the additional proof_chain
// trust-extension and variant-recognition steps of §4.7's receive flow.
func CheckReceive(m Message, trusted map[[32]byte]bool, knownVariant KnownVariant) ReceiveOutcome {
	if m.ProofChain != nil {
		if m.ProofChain.CheckTrust(trusted) != keychain.Trusted {
			return BounceUntrusted
		}
	}
	if knownVariant != nil && !knownVariant(m.VariantKind) {
		return BounceUnknownVariant
	}
	return Accept
}

// bouncePayload is what travels inside a bounce message's Payload: the
// original message (re-encoded) and, for an untrusted bounce, the
// receiver's own last known section key so the sender can Extend its
// proof_chain and retry.
type bouncePayload struct {
	Original []byte
	KnownKey keyshare.PublicKey
}

// Bounce wraps original as a BouncedUntrustedMessage or
// BouncedUnknownMessage addressed back to its sender, per outcome.
// knownKey is the receiver's last trusted section key; it is ignored
// (left zero) for BounceUnknownVariant, which carries no chain hint.
func Bounce(outcome ReceiveOutcome, original Message, knownKey keyshare.PublicKey) (Message, error) {
	var variant uint16
	switch outcome {
	case BounceUntrusted:
		variant = VariantBouncedUntrustedMessage
	case BounceUnknownVariant:
		variant = VariantBouncedUnknownMessage
		knownKey = keyshare.PublicKey{}
	default:
		return Message{}, fmt.Errorf("message: Bounce called with non-bounce outcome %d", outcome)
	}

	payload, err := json.Marshal(bouncePayload{Original: Encode(original), KnownKey: knownKey})
	if err != nil {
		return Message{}, fmt.Errorf("message: encode bounce payload: %w", err)
	}

	bounced := original
	bounced.Src, bounced.Dst = dstToSrc(original), srcToDst(original)
	bounced.VariantKind = variant
	bounced.Payload = payload
	bounced.ProofChain = nil
	bounced.Aggregation = AggregationNone
	return bounced, nil
}

// dstToSrc and srcToDst swap a message's direction for a bounce: the
// bounce is sent by whoever received the original, addressed to
// whoever the original claimed to be from. Only the Node authority
// form is supported, matching how bounces are actually sent (direct,
// node to node) rather than re-authenticated as a section.
func dstToSrc(m Message) SrcAuthority {
	return SrcAuthority{Kind: SrcNode, Name: m.Dst.Name}
}

func srcToDst(m Message) DstLocation {
	return DstLocation{Kind: DstNode, Name: m.Src.Name}
}

// Unbounce decodes a BouncedUntrustedMessage/BouncedUnknownMessage
// payload back into the original message and the receiver's reported
// known key (zero for BounceUnknownVariant).
func Unbounce(m Message) (Message, keyshare.PublicKey, error) {
	var p bouncePayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return Message{}, keyshare.PublicKey{}, fmt.Errorf("message: decode bounce payload: %w", err)
	}
	original, err := Decode(p.Original)
	if err != nil {
		return Message{}, keyshare.PublicKey{}, fmt.Errorf("message: decode bounced original: %w", err)
	}
	return original, p.KnownKey, nil
}

func readSignature(u *codec.Unpacker, out *keyshare.Signature) error {
	r, err := u.GetBytes(32)
	if err != nil {
		return fmt.Errorf("message: decode signature R: %w", err)
	}
	s, err := u.GetBytes(32)
	if err != nil {
		return fmt.Errorf("message: decode signature S: %w", err)
	}
	copy(out.R[:], r)
	copy(out.S[:], s)
	return nil
}

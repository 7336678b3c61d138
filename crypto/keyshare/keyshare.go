// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package keyshare implements the section's threshold-style signing keys.
//
// Real BLS threshold signatures aggregate arbitrarily many partial
// signatures into one constant-size signature because pairing-based
// verification is linear in the public key. Without a pairing library in
// the dependency set, this package stands in with a Schnorr-style
// signature built directly on filippo.io/edwards25519's scalar and point
// arithmetic: every elder signs independently and a Proof is the quorum
// of individually-verifiable signatures rather than one aggregated
// signature. See DESIGN.md for why this simplification was chosen over
// vendoring a pairing library.
package keyshare

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

// ErrInvalidSignature is returned when a signature fails verification.
var ErrInvalidSignature = errors.New("keyshare: invalid signature")

// PublicKey is a section or elder signing public key.
type PublicKey struct {
	point *edwards25519.Point
}

// SecretKey is the corresponding secret scalar.
type SecretKey struct {
	scalar *edwards25519.Scalar
	pub    PublicKey
}

// Signature is a Schnorr signature (R, s) over the curve group.
type Signature struct {
	R [32]byte
	S [32]byte
}

// Generate returns a fresh keypair.
func Generate() (SecretKey, error) {
	var buf [64]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return SecretKey{}, fmt.Errorf("keyshare: generate: %w", err)
	}
	s, err := new(edwards25519.Scalar).SetUniformBytes(buf[:])
	if err != nil {
		return SecretKey{}, fmt.Errorf("keyshare: generate: %w", err)
	}
	pubPoint := new(edwards25519.Point).ScalarBaseMult(s)
	return SecretKey{scalar: s, pub: PublicKey{point: pubPoint}}, nil
}

// PublicKey returns the public half of sk.
func (sk SecretKey) PublicKey() PublicKey {
	return sk.pub
}

// Bytes returns the 32-byte compressed encoding of pk. The zero
// PublicKey (no point set, meaning "absent") encodes as all zeros.
func (pk PublicKey) Bytes() [32]byte {
	var out [32]byte
	if pk.point == nil {
		return out
	}
	copy(out[:], pk.point.Bytes())
	return out
}

// IsZero reports whether pk is the zero value (no point set).
func (pk PublicKey) IsZero() bool {
	return pk.point == nil
}

// String renders pk as hex, for logs.
func (pk PublicKey) String() string {
	b := pk.Bytes()
	return fmt.Sprintf("%x", b[:4])
}

// Equal reports whether pk and other are the same public key.
func (pk PublicKey) Equal(other PublicKey) bool {
	return pk.Bytes() == other.Bytes()
}

// MarshalJSON encodes pk as a hex string of its compressed bytes, so it
// can travel inside accumulated-event and message payloads.
func (pk PublicKey) MarshalJSON() ([]byte, error) {
	b := pk.Bytes()
	return json.Marshal(hex.EncodeToString(b[:]))
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (pk *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("keyshare: decode public key hex: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("keyshare: public key must be 32 bytes, got %d", len(raw))
	}
	var b [32]byte
	copy(b[:], raw)
	decoded, err := PublicKeyFromBytes(b)
	if err != nil {
		return err
	}
	*pk = decoded
	return nil
}

// PublicKeyFromBytes decodes a compressed public key.
func PublicKeyFromBytes(b [32]byte) (PublicKey, error) {
	p, err := new(edwards25519.Point).SetBytes(b[:])
	if err != nil {
		return PublicKey{}, fmt.Errorf("keyshare: decode public key: %w", err)
	}
	return PublicKey{point: p}, nil
}

// Sign produces a Schnorr signature of msg under sk.
func (sk SecretKey) Sign(msg []byte) Signature {
	var nonceSeed [64]byte
	_, _ = rand.Read(nonceSeed[:])
	r, err := new(edwards25519.Scalar).SetUniformBytes(nonceSeed[:])
	if err != nil {
		// SetUniformBytes only fails on wrong input length; 64 is always valid.
		panic(err)
	}
	R := new(edwards25519.Point).ScalarBaseMult(r)

	e := challenge(R, sk.pub, msg)
	s := new(edwards25519.Scalar).Multiply(e, sk.scalar)
	s.Add(s, r)

	var sig Signature
	copy(sig.R[:], R.Bytes())
	copy(sig.S[:], s.Bytes())
	return sig
}

// Verify checks sig against msg under pk. A zero (absent) public key
// never verifies — an adversary or a decode of an unset field must not
// be able to crash the caller.
func (sig Signature) Verify(pk PublicKey, msg []byte) bool {
	if pk.IsZero() {
		return false
	}
	R, err := new(edwards25519.Point).SetBytes(sig.R[:])
	if err != nil {
		return false
	}
	s, err := new(edwards25519.Scalar).SetCanonicalBytes(sig.S[:])
	if err != nil {
		return false
	}
	e := challenge(R, pk, msg)

	lhs := new(edwards25519.Point).ScalarBaseMult(s)
	rhs := new(edwards25519.Point).ScalarMult(e, pk.point)
	rhs.Add(rhs, R)
	return lhs.Equal(rhs) == 1
}

// challenge computes the Fiat-Shamir challenge scalar e = H(R || A || msg).
func challenge(R *edwards25519.Point, pk PublicKey, msg []byte) *edwards25519.Scalar {
	h := sha512.New()
	h.Write(R.Bytes())
	h.Write(pk.point.Bytes())
	h.Write(msg)
	digest := h.Sum(nil)
	e, err := new(edwards25519.Scalar).SetUniformBytes(digest)
	if err != nil {
		// sha512.Size is always 64, SetUniformBytes never fails for it.
		panic(err)
	}
	return e
}

// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package section

import "github.com/luxfi/corenet/crypto/keyshare"

// ProvenValue pairs a value with a signature proving a section key
// vouched for it.
type ProvenValue[T any] struct {
	Value T
	Proof Proof
}

// Proof is a single public-key/signature pair proving a ProvenValue.
type Proof struct {
	PublicKey keyshare.PublicKey
	Signature keyshare.Signature
}

// Verify reports whether proof.Signature verifies against serialize(value)
// under proof.PublicKey.
func Verify[T any](pv ProvenValue[T], serialize func(T) []byte) bool {
	return pv.Proof.Signature.Verify(pv.Proof.PublicKey, serialize(pv.Value))
}

// NewProven signs value with sk and wraps it in a ProvenValue.
func NewProven[T any](value T, sk keyshare.SecretKey, serialize func(T) []byte) ProvenValue[T] {
	return ProvenValue[T]{
		Value: value,
		Proof: Proof{
			PublicKey: sk.PublicKey(),
			Signature: sk.Sign(serialize(value)),
		},
	}
}

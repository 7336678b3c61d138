// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package keychain implements the section key chain: an append-only list
// of signing keys where each non-root key is signed by the previous one.
package keychain

import (
	"encoding/json"
	"errors"

	"github.com/luxfi/corenet/crypto/keyshare"
)

// Trust is the result of checking a chain against a set of trusted keys.
type Trust int

const (
	// Invalid means the chain does not self-verify.
	Invalid Trust = iota
	// Unknown means the chain self-verifies but no key in it is trusted.
	Unknown
	// Trusted means a key in the chain is trusted and every block from
	// that key onward verifies.
	Trusted
)

// ErrPushVerifyFailed is logged (production) when a pushed key's
// signature does not verify under the current last key.
var ErrPushVerifyFailed = errors.New("keychain: push signature does not verify")

// block is one non-root entry: a key signed by its predecessor.
type block struct {
	key keyshare.PublicKey
	sig keyshare.Signature
}

// Chain is an append-only, self-verifying list of section signing keys.
type Chain struct {
	root keyshare.PublicKey
	tail []block
}

// New returns a one-key chain rooted at first.
func New(first keyshare.PublicKey) *Chain {
	return &Chain{root: first}
}

// RootKey returns the chain's genesis key — implicitly trusted.
func (c *Chain) RootKey() keyshare.PublicKey {
	return c.root
}

// LastKey returns the chain's current (most recent) signing key.
func (c *Chain) LastKey() keyshare.PublicKey {
	if len(c.tail) == 0 {
		return c.root
	}
	return c.tail[len(c.tail)-1].key
}

// Len returns the number of keys in the chain, including the root.
func (c *Chain) Len() int {
	return len(c.tail) + 1
}

// Keys returns every key in the chain, oldest first.
func (c *Chain) Keys() []keyshare.PublicKey {
	out := make([]keyshare.PublicKey, 0, c.Len())
	out = append(out, c.root)
	for _, b := range c.tail {
		out = append(out, b.key)
	}
	return out
}

// Push appends key to the chain if sig is a valid signature of key's
// bytes under the current last key. Returns false (chain unchanged) if
// verification fails.
func (c *Chain) Push(key keyshare.PublicKey, sig keyshare.Signature) bool {
	if !sig.Verify(c.LastKey(), serializeKey(key)) {
		return false
	}
	c.tail = append(c.tail, block{key: key, sig: sig})
	return true
}

// MustPush is Push but panics on verification failure — for test setup
// where a bad push indicates a test bug, not a Byzantine peer.
func (c *Chain) MustPush(key keyshare.PublicKey, sig keyshare.Signature) {
	if !c.Push(key, sig) {
		panic(ErrPushVerifyFailed)
	}
}

// KeyBlock is one exported link of a Chain (its public key and the
// signature chaining it to the previous key), for transmission over
// the wire as part of a message's proof_chain.
type KeyBlock struct {
	Key keyshare.PublicKey
	Sig keyshare.Signature
}

// Export returns c's root key and its tail blocks, for wire
// transmission.
func (c *Chain) Export() (keyshare.PublicKey, []KeyBlock) {
	tail := make([]KeyBlock, len(c.tail))
	for i, b := range c.tail {
		tail[i] = KeyBlock{Key: b.key, Sig: b.sig}
	}
	return c.root, tail
}

// Import rebuilds a Chain from an exported root key and tail blocks,
// without re-verifying — same caveat as UnmarshalJSON: callers should
// call CheckTrust before relying on the result, since this may be
// attacker-supplied wire data.
func Import(root keyshare.PublicKey, tail []KeyBlock) *Chain {
	c := &Chain{root: root}
	for _, b := range tail {
		c.tail = append(c.tail, block{key: b.Key, sig: b.Sig})
	}
	return c
}

// IndexOf returns the position of key in the chain (0 == root), or -1.
func (c *Chain) IndexOf(key keyshare.PublicKey) int {
	if c.root.Equal(key) {
		return 0
	}
	for i, b := range c.tail {
		if b.key.Equal(key) {
			return i + 1
		}
	}
	return -1
}

// verifiesFromRoot reports whether every block of the chain verifies,
// each under the key before it, starting from the root key.
func (c *Chain) verifiesFromRoot() bool {
	prev := c.root
	for _, b := range c.tail {
		if !b.sig.Verify(prev, serializeKey(b.key)) {
			return false
		}
		prev = b.key
	}
	return true
}

// CheckTrust checks the chain against a set of trusted keys, returning
// the strongest trust level that holds. Self-verification is always
// checked first; Trusted requires a trusted key at or after which every
// block verifies.
func (c *Chain) CheckTrust(trusted map[[32]byte]bool) Trust {
	if !c.verifiesFromRoot() {
		return Invalid
	}
	keys := c.Keys()
	// Walk from the latest key backwards so the first trusted key found
	// is the latest one — shortest verification path, per the tie-break
	// rule in spec.md §4.1.
	for i := len(keys) - 1; i >= 0; i-- {
		if trusted[keys[i].Bytes()] {
			return Trusted
		}
	}
	return Unknown
}

// Slice returns the sub-chain covering positions [from, to) (0-indexed,
// 0 == root). Bounds are clamped to the chain's length and the result
// always has at least one key.
func (c *Chain) Slice(from, to int) *Chain {
	keys := c.Keys()
	if from < 0 {
		from = 0
	}
	if to > len(keys) {
		to = len(keys)
	}
	if from >= to {
		from = to - 1
	}
	if from < 0 {
		from = 0
	}

	out := &Chain{root: keys[from]}
	for i := from + 1; i < to; i++ {
		out.tail = append(out.tail, findBlock(c, keys[i]))
	}
	return out
}

func findBlock(c *Chain, key keyshare.PublicKey) block {
	for _, b := range c.tail {
		if b.key.Equal(key) {
			return b
		}
	}
	return block{}
}

// Extend returns a new chain whose first key is newFirst and whose last
// key equals c's, built from longer's blocks. If newFirst does not lead
// to c's first key within longer, falls back to extending from longer's
// root key (the implicitly-trusted genesis).
func (c *Chain) Extend(newFirst keyshare.PublicKey, longer *Chain) *Chain {
	startIdx := longer.IndexOf(newFirst)
	if startIdx == -1 || !leadsTo(longer, startIdx, c.root) {
		startIdx = 0
	}

	keys := longer.Keys()
	out := &Chain{root: keys[startIdx]}
	for i := startIdx + 1; i < len(keys); i++ {
		b := findBlock(longer, keys[i])
		out.tail = append(out.tail, b)
		if keys[i].Equal(c.LastKey()) {
			break
		}
	}
	return out
}

// leadsTo reports whether, walking longer's keys forward from idx, we
// eventually reach target.
func leadsTo(longer *Chain, idx int, target keyshare.PublicKey) bool {
	keys := longer.Keys()
	for i := idx; i < len(keys); i++ {
		if keys[i].Equal(target) {
			return true
		}
	}
	return false
}

// serializeKey is the canonical byte representation signed when chaining
// one key to the next.
func serializeKey(key keyshare.PublicKey) []byte {
	b := key.Bytes()
	return b[:]
}

// jsonBlock is block's exported-field mirror, for JSON round-tripping
// (block itself is unexported so its fields stay out of reach of
// anything but this package and Push/verifiesFromRoot).
type jsonBlock struct {
	Key keyshare.PublicKey
	Sig keyshare.Signature
}

type jsonChain struct {
	Root keyshare.PublicKey
	Tail []jsonBlock
}

// MarshalJSON lets a Chain travel inside a node snapshot.
func (c *Chain) MarshalJSON() ([]byte, error) {
	jc := jsonChain{Root: c.root}
	for _, b := range c.tail {
		jc.Tail = append(jc.Tail, jsonBlock{Key: b.key, Sig: b.sig})
	}
	return json.Marshal(jc)
}

// UnmarshalJSON is the inverse of MarshalJSON. It trusts its input — a
// snapshot is only ever produced by this node's own MarshalJSON — so it
// does not re-verify the chain; callers resuming from an external
// source should call CheckTrust before relying on it.
func (c *Chain) UnmarshalJSON(data []byte) error {
	var jc jsonChain
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}
	c.root = jc.Root
	c.tail = c.tail[:0]
	for _, b := range jc.Tail {
		c.tail = append(c.tail, block{key: b.Key, sig: b.Sig})
	}
	return nil
}

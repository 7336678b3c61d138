// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package message

import (
	"errors"
	"fmt"

	"github.com/luxfi/corenet/message/codec"
)

// DefaultMTU is the largest encoded message this module will hand to
// transport without sharding it first.
const DefaultMTU = 1500

// ErrShardMismatch is returned by Reassemble when the shards supplied
// do not all belong to the same original message.
var ErrShardMismatch = errors.New("message: shard set mismatch")

// Shard is one piece of a message too large to fit under the MTU. Each
// shard is itself wrapped as an ordinary Message (VariantKind
// ShardVariant) so it routes through the same path as anything else.
type Shard struct {
	ID    ID // the ORIGINAL message's id, not the shard's own
	Index int
	Total int
	Chunk []byte
}

// ShardVariant is the VariantKind value used for shard carrier
// messages; the message layer treats it as a reserved/internal variant.
const ShardVariant uint16 = 0xFFFF

// EncodeShard serializes a Shard for use as a Message payload.
func EncodeShard(s Shard) []byte {
	p := codec.NewPacker(32 + len(s.Chunk))
	p.PutBytes(s.ID[:])
	p.PutUint32(uint32(s.Index))
	p.PutUint32(uint32(s.Total))
	p.PutBlob(s.Chunk)
	return p.Bytes()
}

// DecodeShard is the inverse of EncodeShard.
func DecodeShard(raw []byte) (Shard, error) {
	u := codec.NewUnpacker(raw)
	var s Shard
	idBytes, err := u.GetBytes(16)
	if err != nil {
		return s, fmt.Errorf("message: decode shard id: %w", err)
	}
	copy(s.ID[:], idBytes)
	idx, err := u.GetUint32()
	if err != nil {
		return s, fmt.Errorf("message: decode shard index: %w", err)
	}
	total, err := u.GetUint32()
	if err != nil {
		return s, fmt.Errorf("message: decode shard total: %w", err)
	}
	chunk, err := u.GetBlob()
	if err != nil {
		return s, fmt.Errorf("message: decode shard chunk: %w", err)
	}
	s.Index, s.Total, s.Chunk = int(idx), int(total), chunk
	return s, nil
}

// ShardPayload splits payload into chunks sized to fit encoded Shards
// under mtu. A payload already under mtu returns a single shard with
// Total == 1, so callers can always go through the shard path uniformly.
func ShardPayload(id ID, payload []byte, mtu int) []Shard {
	const shardOverhead = 16 + 4 + 4 + 4 // id + index + total + blob length prefix
	chunkSize := mtu - shardOverhead
	if chunkSize <= 0 {
		chunkSize = 1
	}
	if len(payload) == 0 {
		return []Shard{{ID: id, Index: 0, Total: 1, Chunk: nil}}
	}

	total := (len(payload) + chunkSize - 1) / chunkSize
	shards := make([]Shard, 0, total)
	for i := 0; i < total; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		shards = append(shards, Shard{ID: id, Index: i, Total: total, Chunk: payload[start:end]})
	}
	return shards
}

// Reassembler accumulates shards for one message ID until all Total
// pieces have arrived.
type Reassembler struct {
	total int
	have  map[int][]byte
}

// NewReassembler starts accumulating shards for a message of the given
// total shard count.
func NewReassembler(total int) *Reassembler {
	return &Reassembler{total: total, have: make(map[int][]byte, total)}
}

// Add records one shard. Returns the reassembled payload and true once
// every shard has arrived.
func (r *Reassembler) Add(s Shard) ([]byte, bool, error) {
	if s.Total != r.total {
		return nil, false, fmt.Errorf("%w: expected %d shards, got %d", ErrShardMismatch, r.total, s.Total)
	}
	if s.Index < 0 || s.Index >= r.total {
		return nil, false, fmt.Errorf("%w: index %d out of range [0,%d)", ErrShardMismatch, s.Index, r.total)
	}
	if _, ok := r.have[s.Index]; ok {
		return nil, false, nil // duplicate shard delivery, ignore
	}
	r.have[s.Index] = s.Chunk
	if len(r.have) < r.total {
		return nil, false, nil
	}

	out := make([]byte, 0)
	for i := 0; i < r.total; i++ {
		out = append(out, r.have[i]...)
	}
	return out, true, nil
}

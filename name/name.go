// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package name implements the 256-bit address space names and section
// prefixes live in, and the XOR metric that defines closeness between
// them.
package name

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/bits"
)

// Size is the length of a Name in bytes (256 bits).
const Size = 32

var errShortName = errors.New("name: decoded text is not 32 bytes")

// Name is a fixed 256-bit network identifier.
type Name [Size]byte

// Generate returns a cryptographically random Name.
func Generate() Name {
	var n Name
	_, _ = rand.Read(n[:])
	return n
}

// String returns the hex encoding of n.
func (n Name) String() string {
	return hex.EncodeToString(n[:])
}

// MarshalText implements encoding.TextMarshaler, so a Name can be used
// as a JSON object/map key.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Name) UnmarshalText(text []byte) error {
	decoded, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(decoded) != Size {
		return errShortName
	}
	copy(n[:], decoded)
	return nil
}

// Xor returns the bitwise XOR distance between n and other.
func (n Name) Xor(other Name) Name {
	var out Name
	for i := range n {
		out[i] = n[i] ^ other[i]
	}
	return out
}

// Less reports whether n is numerically less than other, treating both
// as big-endian unsigned integers. Used to break ties deterministically
// when two names are equidistant from some target.
func (n Name) Less(other Name) bool {
	for i := range n {
		if n[i] != other[i] {
			return n[i] < other[i]
		}
	}
	return false
}

// CloserTo reports whether n is strictly closer to target than other is,
// under the XOR metric.
func (n Name) CloserTo(other, target Name) bool {
	da := n.Xor(target)
	db := other.Xor(target)
	return da.Less(db)
}

// BucketIndex returns the length of the common bit-prefix between n and
// other — the k-bucket index in Kademlia terms.
func (n Name) BucketIndex(other Name) int {
	return commonPrefixLen(n[:], other[:])
}

// Bit returns the value (0 or 1) of the i-th bit of n, counting from the
// most significant bit of the first byte.
func (n Name) Bit(i int) uint8 {
	byteIdx := i / 8
	bitIdx := 7 - uint(i%8)
	return (n[byteIdx] >> bitIdx) & 1
}

// WithFlippedBit returns a copy of n with bit i flipped.
func (n Name) WithFlippedBit(i int) Name {
	out := n
	byteIdx := i / 8
	bitIdx := 7 - uint(i%8)
	out[byteIdx] ^= 1 << bitIdx
	return out
}

// commonPrefixLen returns the number of leading bits shared by a and b.
func commonPrefixLen(a, b []byte) int {
	count := 0
	for i := range a {
		x := a[i] ^ b[i]
		if x == 0 {
			count += 8
			continue
		}
		count += bits.LeadingZeros8(x)
		break
	}
	return count
}

// ByClosenessTo sorts names by XOR distance to target, nearest first,
// breaking exact ties by numeric value for determinism.
func ByClosenessTo(target Name, names []Name) []Name {
	out := make([]Name, len(names))
	copy(out, names)
	sortByCloseness(target, out)
	return out
}

func sortByCloseness(target Name, names []Name) {
	// Simple insertion sort: section/elder-set sizes are small (O(tens)),
	// so an allocation-free O(n^2) sort avoids pulling in sort.Slice's
	// closure overhead for the hot path of picking elders.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j].CloserTo(names[j-1], target); j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}

// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package section

import (
	"sort"

	"github.com/luxfi/corenet/name"
)

// PeerAddress is the contact information published for an elder. It is
// intentionally opaque to the section package — transport owns the real
// connection, this is just what gets gossiped.
type PeerAddress struct {
	Addr string
}

// EldersInfo names the elders serving a section prefix at a given version.
type EldersInfo struct {
	Prefix  name.Prefix
	Version uint64
	Elders  map[name.Name]PeerAddress
}

// Names returns the elder names in ascending order, for deterministic
// iteration and serialization.
func (e EldersInfo) Names() []name.Name {
	out := make([]name.Name, 0, len(e.Elders))
	for n := range e.Elders {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// IsElder reports whether n is one of e's elders.
func (e EldersInfo) IsElder(n name.Name) bool {
	_, ok := e.Elders[n]
	return ok
}

// Quorum is the number of distinct elder signatures required to treat a
// vote as accumulated: floor(2/3 * len) + 1.
func (e EldersInfo) Quorum() int {
	return len(e.Elders)*2/3 + 1
}

// Serialize returns the canonical bytes of e, for signing and for
// feeding into ProvenValue verification.
func (e EldersInfo) Serialize() []byte {
	buf := make([]byte, 0, name.Size+4+8+len(e.Elders)*(name.Size+8))
	buf = append(buf, e.Prefix.Bits[:]...)
	buf = append(buf, byte(e.Prefix.BitCount), byte(e.Prefix.BitCount>>8), byte(e.Prefix.BitCount>>16), byte(e.Prefix.BitCount>>24))
	buf = appendUint64(buf, e.Version)
	for _, n := range e.Names() {
		buf = append(buf, n[:]...)
		addr := e.Elders[n].Addr
		buf = appendUint64(buf, uint64(len(addr)))
		buf = append(buf, addr...)
	}
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(v>>(8*i)))
	}
	return buf
}

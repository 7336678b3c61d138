// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package codec implements the little-endian, length-prefixed wire
// encoding messages are packed into before being handed to transport.
package codec

import (
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when an Unpacker runs out of bytes mid-read.
var ErrShortBuffer = errors.New("codec: short buffer")

// Packer builds up a byte buffer field by field, little-endian.
type Packer struct {
	buf []byte
}

// NewPacker returns an empty Packer with capacity hinted by size.
func NewPacker(size int) *Packer {
	return &Packer{buf: make([]byte, 0, size)}
}

// Bytes returns the packed buffer.
func (p *Packer) Bytes() []byte { return p.buf }

// Len returns the number of bytes packed so far.
func (p *Packer) Len() int { return len(p.buf) }

func (p *Packer) PutUint8(v uint8) {
	p.buf = append(p.buf, v)
}

func (p *Packer) PutUint16(v uint16) {
	p.buf = append(p.buf, byte(v), byte(v>>8))
}

func (p *Packer) PutUint32(v uint32) {
	p.buf = append(p.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (p *Packer) PutUint64(v uint64) {
	for i := 0; i < 8; i++ {
		p.buf = append(p.buf, byte(v>>(8*i)))
	}
}

// PutBytes writes raw bytes with no length prefix — use PutBlob when the
// reader needs to know where it ends.
func (p *Packer) PutBytes(b []byte) {
	p.buf = append(p.buf, b...)
}

// PutBlob writes a uint32 length prefix followed by b.
func (p *Packer) PutBlob(b []byte) {
	p.PutUint32(uint32(len(b)))
	p.PutBytes(b)
}

// Unpacker reads fields back out of a buffer in the order Packer wrote
// them, little-endian.
type Unpacker struct {
	buf []byte
	pos int
}

// NewUnpacker wraps buf for sequential reads.
func NewUnpacker(buf []byte) *Unpacker {
	return &Unpacker{buf: buf}
}

// Remaining returns the number of unread bytes.
func (u *Unpacker) Remaining() int { return len(u.buf) - u.pos }

func (u *Unpacker) need(n int) error {
	if u.Remaining() < n {
		return fmt.Errorf("%w: need %d, have %d", ErrShortBuffer, n, u.Remaining())
	}
	return nil
}

func (u *Unpacker) GetUint8() (uint8, error) {
	if err := u.need(1); err != nil {
		return 0, err
	}
	v := u.buf[u.pos]
	u.pos++
	return v, nil
}

func (u *Unpacker) GetUint16() (uint16, error) {
	if err := u.need(2); err != nil {
		return 0, err
	}
	v := uint16(u.buf[u.pos]) | uint16(u.buf[u.pos+1])<<8
	u.pos += 2
	return v, nil
}

func (u *Unpacker) GetUint32() (uint32, error) {
	if err := u.need(4); err != nil {
		return 0, err
	}
	v := uint32(u.buf[u.pos]) | uint32(u.buf[u.pos+1])<<8 | uint32(u.buf[u.pos+2])<<16 | uint32(u.buf[u.pos+3])<<24
	u.pos += 4
	return v, nil
}

func (u *Unpacker) GetUint64() (uint64, error) {
	if err := u.need(8); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(u.buf[u.pos+i]) << (8 * i)
	}
	u.pos += 8
	return v, nil
}

// GetBytes reads exactly n raw bytes.
func (u *Unpacker) GetBytes(n int) ([]byte, error) {
	if err := u.need(n); err != nil {
		return nil, err
	}
	out := u.buf[u.pos : u.pos+n]
	u.pos += n
	return out, nil
}

// GetBlob reads a uint32-length-prefixed blob.
func (u *Unpacker) GetBlob() ([]byte, error) {
	n, err := u.GetUint32()
	if err != nil {
		return nil, err
	}
	return u.GetBytes(int(n))
}

// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import (
	"encoding/binary"
	"math"

	"golang.org/x/text/encoding/unicode"
)

// Cursor is a random-access reader/writer over an in-memory buffer. It
// tracks a current position, grows the backing buffer on demand when
// writing, and exposes the little-endian primitives, alignment, and
// deferred string-table machinery the Object Stream codec and the
// container codecs are built on. Cursor never performs file I/O; the
// host owns reading the bytes in and writing them back out.
type Cursor struct {
	buf []byte
	pos int

	pending []pendingString
}

type pendingString struct {
	patchAt int
	value   string
}

var utf16LEDecoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
var utf16LEEncoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()

// NewCursor wraps an existing buffer for reading (and in-place writing).
func NewCursor(data []byte) *Cursor {
	return &Cursor{buf: data}
}

// NewWriteCursor returns an empty, growable Cursor suited for building a
// file from scratch.
func NewWriteCursor() *Cursor {
	return &Cursor{buf: make([]byte, 0, 4096)}
}

// Bytes returns the backing buffer up to the current length (not position).
func (c *Cursor) Bytes() []byte { return c.buf }

// Len returns the size of the backing buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Tell returns the current position.
func (c *Cursor) Tell() int { return c.pos }

// Seek moves to an absolute position. Negative positions are rejected.
func (c *Cursor) Seek(pos int) error {
	if pos < 0 {
		return &InvalidSeekError{Offset: pos}
	}
	c.pos = pos
	return nil
}

// WithSeek runs fn with the cursor temporarily moved to pos, restoring the
// original position on every exit path including a panic unwinding through
// fn.
func (c *Cursor) WithSeek(pos int, fn func() error) error {
	saved := c.pos
	defer func() { c.pos = saved }()
	if err := c.Seek(pos); err != nil {
		return err
	}
	return fn()
}

func (c *Cursor) growTo(n int) {
	if n <= len(c.buf) {
		return
	}
	if n <= cap(c.buf) {
		c.buf = c.buf[:n]
		return
	}
	grown := make([]byte, n)
	copy(grown, c.buf)
	c.buf = grown
}

// EnsureCapacity grows the backing buffer to at least n bytes, zero-filling
// the new region.
func (c *Cursor) EnsureCapacity(n int) { c.growTo(n) }

func (c *Cursor) requireAvailable(n int) error {
	if n < 0 || c.pos < 0 {
		return &TruncatedError{Offset: c.pos, Expected: n, Actual: 0}
	}
	avail := len(c.buf) - c.pos
	if avail < n {
		if avail < 0 {
			avail = 0
		}
		return &TruncatedError{Offset: c.pos, Expected: n, Actual: avail}
	}
	return nil
}

// ReadBytes reads n raw bytes and advances the position.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.requireAvailable(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, c.buf[c.pos:c.pos+n])
	c.pos += n
	return out, nil
}

// WriteBytes writes raw bytes at the current position, growing the buffer
// as needed, and advances the position.
func (c *Cursor) WriteBytes(b []byte) {
	c.growTo(c.pos + len(b))
	copy(c.buf[c.pos:c.pos+len(b)], b)
	c.pos += len(b)
}

// Align pads the read position up to the next multiple of n, without
// writing anything (the bytes are assumed to already be zero-padding in
// the source buffer).
func (c *Cursor) Align(n int) {
	if n <= 1 {
		return
	}
	rem := c.pos % n
	if rem != 0 {
		c.pos += n - rem
	}
}

// AlignBase is like Align but computes the remainder relative to an
// alignment base (see the Object Stream codec's alignment-base rule)
// instead of the cursor's own absolute position.
func (c *Cursor) AlignBase(n, base int) {
	if n <= 1 {
		return
	}
	rem := (c.pos + base) % n
	if rem != 0 {
		c.pos += n - rem
	}
}

// AlignWrite pads the write position up to the next multiple of n with
// zero bytes.
func (c *Cursor) AlignWrite(n int) {
	if n <= 1 {
		return
	}
	rem := c.pos % n
	if rem != 0 {
		c.WriteBytes(make([]byte, n-rem))
	}
}

// AlignWriteBase is AlignWrite computed relative to an alignment base.
func (c *Cursor) AlignWriteBase(n, base int) {
	if n <= 1 {
		return
	}
	rem := (c.pos + base) % n
	if rem != 0 {
		c.WriteBytes(make([]byte, n-rem))
	}
}

// --- primitive scalars -------------------------------------------------

func (c *Cursor) ReadU8() (uint8, error) {
	b, err := c.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) ReadI8() (int8, error) {
	v, err := c.ReadU8()
	return int8(v), err
}

func (c *Cursor) ReadBool() (bool, error) {
	v, err := c.ReadU8()
	return v != 0, err
}

func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *Cursor) ReadI16() (int16, error) {
	v, err := c.ReadU16()
	return int16(v), err
}

func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

func (c *Cursor) ReadU64() (uint64, error) {
	b, err := c.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *Cursor) ReadI64() (int64, error) {
	v, err := c.ReadU64()
	return int64(v), err
}

func (c *Cursor) ReadF32() (float32, error) {
	v, err := c.ReadU32()
	return math.Float32frombits(v), err
}

func (c *Cursor) ReadF64() (float64, error) {
	v, err := c.ReadU64()
	return math.Float64frombits(v), err
}

func (c *Cursor) WriteU8(v uint8)   { c.WriteBytes([]byte{v}) }
func (c *Cursor) WriteI8(v int8)    { c.WriteU8(uint8(v)) }
func (c *Cursor) WriteBool(v bool)  { c.WriteU8(boolToByte(v)) }

func boolToByte(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

func (c *Cursor) WriteU16(v uint16) {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	c.WriteBytes(b)
}
func (c *Cursor) WriteI16(v int16) { c.WriteU16(uint16(v)) }

func (c *Cursor) WriteU32(v uint32) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	c.WriteBytes(b)
}
func (c *Cursor) WriteI32(v int32) { c.WriteU32(uint32(v)) }

func (c *Cursor) WriteU64(v uint64) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	c.WriteBytes(b)
}
func (c *Cursor) WriteI64(v int64) { c.WriteU64(uint64(v)) }

func (c *Cursor) WriteF32(v float32) { c.WriteU32(math.Float32bits(v)) }
func (c *Cursor) WriteF64(v float64) { c.WriteU64(math.Float64bits(v)) }

// --- strings -------------------------------------------------------------

// ReadWString reads a UTF-16LE string terminated by a 0x0000 code unit,
// leaving the cursor just past the terminator.
func (c *Cursor) ReadWString() (string, error) {
	start := c.pos
	end := start
	for {
		if end+2 > len(c.buf) {
			return "", &TruncatedError{Offset: end, Expected: 2, Actual: len(c.buf) - end}
		}
		if c.buf[end] == 0 && c.buf[end+1] == 0 {
			break
		}
		end += 2
	}
	s, err := utf16LEDecoder.String(string(c.buf[start:end]))
	if err != nil {
		s = ""
	}
	c.pos = end + 2
	return s, nil
}

// WriteWString writes a UTF-16LE string followed by a 0x0000 terminator.
func (c *Cursor) WriteWString(s string) error {
	enc, err := utf16LEEncoder.String(s)
	if err != nil {
		return err
	}
	c.WriteBytes([]byte(enc))
	c.WriteBytes([]byte{0, 0})
	return nil
}

// ReadCountedWString reads a u32 character count (code units, including a
// terminator if the source counted one) followed by that many UTF-16LE
// code units. It does not assume a terminator is present in the count;
// callers that need the Object Stream's "count includes terminator"
// convention handle that at a higher layer (see FieldValue String/Resource).
func (c *Cursor) ReadCountedWString(units int) (string, error) {
	b, err := c.ReadBytes(units * 2)
	if err != nil {
		return "", err
	}
	s, err := utf16LEDecoder.String(string(b))
	if err != nil {
		return "", nil
	}
	return s, nil
}

// ReadStringPrefixed reads a u32 count then the payload: that many UTF-16LE
// code units when utf16 is true, otherwise that many UTF-8 bytes.
func (c *Cursor) ReadStringPrefixed(utf16 bool) (string, error) {
	count, err := c.ReadU32()
	if err != nil {
		return "", err
	}
	if utf16 {
		return c.ReadCountedWString(int(count))
	}
	b, err := c.ReadBytes(int(count))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// --- deferred string table -------------------------------------------------

// QueueString records an 8-byte placeholder slot at the current position
// (which is advanced past it) and remembers that it must later be
// back-patched with the absolute offset where value gets emitted.
func (c *Cursor) QueueString(value string) {
	at := c.pos
	c.WriteU64(0)
	c.pending = append(c.pending, pendingString{patchAt: at, value: value})
}

// FlushStringTable emits each unique queued string exactly once, in
// queueing order, at the current position, and back-patches every
// placeholder that named it with the resulting absolute offset.
func (c *Cursor) FlushStringTable() error {
	seen := make(map[string]int64, len(c.pending))
	for _, p := range c.pending {
		offset, ok := seen[p.value]
		if !ok {
			offset = int64(c.pos)
			seen[p.value] = offset
			if err := c.WriteWString(p.value); err != nil {
				return err
			}
		}
		c.WriteU64At(p.patchAt, uint64(offset))
	}
	c.pending = c.pending[:0]
	return nil
}

// WriteU64At back-patches a u64 at an absolute offset without disturbing
// the current write position.
func (c *Cursor) WriteU64At(offset int, v uint64) {
	saved := c.pos
	c.pos = offset
	c.WriteU64(v)
	c.pos = saved
}

// WriteU32At back-patches a u32 at an absolute offset without disturbing
// the current write position.
func (c *Cursor) WriteU32At(offset int, v uint32) {
	saved := c.pos
	c.pos = offset
	c.WriteU32(v)
	c.pos = saved
}

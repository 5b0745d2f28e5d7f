// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import "testing"

func TestCursorScalarRoundTrip(t *testing.T) {
	w := NewWriteCursor()
	w.WriteU8(0xAB)
	w.WriteI16(-7)
	w.WriteU32(0xCAFEBABE)
	w.WriteF32(3.5)
	w.WriteF64(-2.25)
	w.WriteBool(true)

	r := NewCursor(w.Bytes())
	if v, err := r.ReadU8(); err != nil || v != 0xAB {
		t.Fatalf("ReadU8 = %v, %v", v, err)
	}
	if v, err := r.ReadI16(); err != nil || v != -7 {
		t.Fatalf("ReadI16 = %v, %v", v, err)
	}
	if v, err := r.ReadU32(); err != nil || v != 0xCAFEBABE {
		t.Fatalf("ReadU32 = %v, %v", v, err)
	}
	if v, err := r.ReadF32(); err != nil || v != 3.5 {
		t.Fatalf("ReadF32 = %v, %v", v, err)
	}
	if v, err := r.ReadF64(); err != nil || v != -2.25 {
		t.Fatalf("ReadF64 = %v, %v", v, err)
	}
	if v, err := r.ReadBool(); err != nil || !v {
		t.Fatalf("ReadBool = %v, %v", v, err)
	}
}

func TestCursorTruncatedRead(t *testing.T) {
	r := NewCursor([]byte{1, 2})
	if _, err := r.ReadU32(); err == nil {
		t.Fatal("expected a truncation error reading past the end of a 2-byte buffer")
	}
}

func TestCursorAlign(t *testing.T) {
	r := NewCursor(make([]byte, 32))
	if _, err := r.ReadBytes(3); err != nil {
		t.Fatal(err)
	}
	r.Align(4)
	if r.Tell() != 4 {
		t.Fatalf("Align(4) from position 3 = %d, want 4", r.Tell())
	}
	r.Align(4)
	if r.Tell() != 4 {
		t.Fatalf("Align(4) from an already-aligned position moved to %d", r.Tell())
	}
}

func TestCursorAlignBaseMatchesAbsoluteAlignment(t *testing.T) {
	// The alignment-base formula (local_offset + alignment_base) mod n is
	// equivalent to plain absolute_position mod n whenever n divides 16,
	// which holds for every alignment this format uses.
	for _, n := range []int{1, 2, 4, 8, 16} {
		for base := 0; base < 16; base++ {
			// A cursor at local offset 5 over a region whose data origin sits
			// at absolute offset 32+base, so origin mod 16 == base.
			origin := 32 + base
			r := NewCursor(make([]byte, 64))
			if err := r.Seek(5); err != nil {
				t.Fatal(err)
			}
			abs := origin + r.Tell()
			rem := abs % n
			if rem != 0 {
				abs += n - rem
			}
			want := abs - origin
			r.AlignBase(n, base)
			if r.Tell() != want {
				t.Fatalf("AlignBase(%d, %d) = %d, want %d (absolute alignment)", n, base, r.Tell(), want)
			}
		}
	}
}

func TestCursorWStringRoundTrip(t *testing.T) {
	w := NewWriteCursor()
	if err := w.WriteWString("hello"); err != nil {
		t.Fatal(err)
	}
	r := NewCursor(w.Bytes())
	s, err := r.ReadWString()
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello" {
		t.Fatalf("ReadWString = %q, want %q", s, "hello")
	}
	if r.Tell() != w.Tell() {
		t.Fatalf("reader stopped at %d, writer ended at %d", r.Tell(), w.Tell())
	}
}

func TestCursorStringTableDeduplication(t *testing.T) {
	w := NewWriteCursor()
	w.QueueString("path/a.mesh")
	w.QueueString("path/a.mesh")
	w.QueueString("other.mesh")
	if err := w.FlushStringTable(); err != nil {
		t.Fatal(err)
	}

	r := NewCursor(w.Bytes())
	off1, err := r.ReadU64()
	if err != nil {
		t.Fatal(err)
	}
	off2, err := r.ReadU64()
	if err != nil {
		t.Fatal(err)
	}
	off3, err := r.ReadU64()
	if err != nil {
		t.Fatal(err)
	}
	if off1 != off2 {
		t.Fatalf("duplicate strings got different offsets: %d vs %d", off1, off2)
	}
	if off1 == off3 {
		t.Fatal("distinct strings collapsed onto the same offset")
	}

	if err := r.Seek(int(off1)); err != nil {
		t.Fatal(err)
	}
	s, err := r.ReadWString()
	if err != nil {
		t.Fatal(err)
	}
	if s != "path/a.mesh" {
		t.Fatalf("string at offset %d = %q, want %q", off1, s, "path/a.mesh")
	}
}

func TestCursorBackpatch(t *testing.T) {
	w := NewWriteCursor()
	w.WriteU32(0)
	w.WriteBytes([]byte{1, 2, 3, 4})
	w.WriteU32At(0, 0xDEADBEEF)

	r := NewCursor(w.Bytes())
	v, err := r.ReadU32()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xDEADBEEF {
		t.Fatalf("backpatched value = %#x, want %#x", v, 0xDEADBEEF)
	}
}

// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import (
	"bytes"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// MappedFile is a container file memory-mapped read-only, the way the
// teacher's own File type avoids copying large binaries into the heap
// before parsing them.
type MappedFile struct {
	data mmap.MMap
	f    *os.File
}

// OpenFile memory-maps path for reading. The caller must Close it once
// done; Bytes() stays valid only until then.
func OpenFile(path string) (*MappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &MappedFile{data: data, f: f}, nil
}

// Bytes returns the mapped file's contents.
func (m *MappedFile) Bytes() []byte { return m.data }

// Close unmaps the file and releases its descriptor.
func (m *MappedFile) Close() error {
	if m.data != nil {
		_ = m.data.Unmap()
	}
	return m.f.Close()
}

// VariantHint names an explicit container variant for cases a bare magic
// can't disambiguate: PFB and PFB.16 share one magic, and SCN.18/.19 differ
// from each other and from the standard Scene variant only in field order.
type VariantHint string

const (
	HintSCN   VariantHint = "scn"
	HintPFB   VariantHint = "pfb"
	HintUSR   VariantHint = "usr"
	HintPFB16 VariantHint = "pfb16"
	HintSCN18 VariantHint = "scn18"
	HintSCN19 VariantHint = "scn19"
)

// PickCodec resolves which ContainerCodec to use for data, honoring an
// explicit hint when one is given and otherwise sniffing the 4-byte magic.
func PickCodec(data []byte, hint VariantHint) (ContainerCodec, error) {
	switch hint {
	case HintSCN:
		return SCNCodec{}, nil
	case HintPFB:
		return PFBCodec{}, nil
	case HintUSR:
		return USRCodec{}, nil
	case HintPFB16:
		return PFB16Codec{}, nil
	case HintSCN18:
		return SCNLegacyCodec{LegacyMinor: 18}, nil
	case HintSCN19:
		return SCNLegacyCodec{LegacyMinor: 19}, nil
	case "":
		// fall through to magic sniffing
	default:
		return nil, &UnknownVariantHintError{Hint: string(hint)}
	}
	if len(data) < 4 {
		return nil, &MalformedMagicError{Got: data}
	}
	switch {
	case bytes.Equal(data[:3], []byte("SCN")):
		return SCNCodec{}, nil
	case bytes.Equal(data[:3], []byte("PFB")):
		return PFBCodec{}, nil
	case bytes.Equal(data[:3], []byte("USR")):
		return USRCodec{}, nil
	default:
		return nil, &MalformedMagicError{Got: data[:4]}
	}
}

// ParseFile memory-maps path, picks a ContainerCodec (via hint or magic
// sniff), and parses it. The returned Container's string/byte slices may
// reference the mapped region, so callers that need it to outlive the file
// should copy what they keep before closing.
func ParseFile(path string, hint VariantHint, registry *TypeRegistry) (*Container, *MappedFile, error) {
	mf, err := OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	codec, err := PickCodec(mf.Bytes(), hint)
	if err != nil {
		mf.Close()
		return nil, nil, err
	}
	c, err := codec.Parse(mf.Bytes(), registry)
	if err != nil {
		mf.Close()
		return nil, nil, err
	}
	return c, mf, nil
}

// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import "sort"

// RebuildOptions controls the one behavior spec.md §4.8 leaves as a toggle:
// whether the Object Stream section is forced onto a 16-byte boundary, and
// likewise the instance table that follows the object table within it.
// Grounded in
// `special_align_enabled` from original_source/file_handlers/rsz/rsz_file.py.
type RebuildOptions struct {
	SpecialAlignEnabled bool
}

// align16 rounds n up to the next multiple of 16.
func align16(n int) int {
	if rem := n % 16; rem != 0 {
		return n + (16 - rem)
	}
	return n
}

// encodeObjectStream writes the RszHeader, object table, instance info
// table, userdata table (with strings), and the per-instance field data, in
// the canonical order spec.md §4.8 step 8 describes. It leaves cur
// positioned at the end of the section.
//
// Every field decodes/encodes against the cursor's absolute position, so
// alignBase is always 0 here: see decodeObjectStream's doc comment.
func encodeObjectStream(cur *Cursor, graph *InstanceGraph, registry *TypeRegistry, objectTable []int32, userdata []UserDataInfo, rszVersion uint32, opts RebuildOptions) error {
	rszStart := cur.Tell()

	headerSize := 32
	if rszHeaderHasUserData(rszVersion) {
		headerSize = 48
	}
	cur.WriteBytes(make([]byte, headerSize)) // placeholder, backpatched below

	for _, obj := range objectTable {
		cur.WriteI32(obj)
	}

	if opts.SpecialAlignEnabled {
		cur.AlignWrite(16)
	}
	instanceOffset := cur.Tell() - rszStart

	for i := 0; i < len(graph.Instances); i++ {
		info := graph.Instances[i]
		cur.WriteU32(info.TypeID)
		cur.WriteU32(info.CRC)
	}

	cur.AlignWrite(16)
	userdataOffset := cur.Tell() - rszStart

	sorted := append([]UserDataInfo{}, userdata...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].InstanceID < sorted[j].InstanceID })

	type patchSlot struct {
		absOffset int
		path      string
	}
	var slots []patchSlot
	for _, u := range sorted {
		entryAbs := cur.Tell()
		cur.WriteU32(u.InstanceID)
		cur.WriteU32(u.Hash)
		cur.WriteU64(0) // placeholder string_offset, patched after strings are laid out
		slots = append(slots, patchSlot{absOffset: entryAbs + 8, path: u.Path})
	}
	for _, slot := range slots {
		strAbs := cur.Tell()
		if err := cur.WriteWString(slot.path); err != nil {
			return err
		}
		cur.WriteU64At(slot.absOffset, uint64(strAbs-rszStart))
	}

	cur.AlignWrite(16)
	dataOffset := cur.Tell() - rszStart

	codec := NewObjectStreamCodec(registry)
	for idx := 1; idx < len(graph.Instances); idx++ {
		info := graph.Instances[idx]
		ti, ok := registry.Get(info.TypeID)
		if !ok {
			continue // unknown type: no fields were ever decoded, nothing to write
		}
		if err := codec.EncodeInstance(cur, 0, ti.Fields, graph.Parsed[idx]); err != nil {
			return err
		}
	}

	endPos := cur.Tell()

	cur.WriteU32At(rszStart, rszMagicFor(rszVersion))
	cur.WriteU32At(rszStart+4, rszVersion)
	cur.WriteU32At(rszStart+8, uint32(len(objectTable)))
	cur.WriteU32At(rszStart+12, uint32(len(graph.Instances)))
	if rszHeaderHasUserData(rszVersion) {
		cur.WriteU32At(rszStart+16, uint32(len(userdata)))
		cur.WriteU32At(rszStart+20, 0) // reserved
		cur.WriteU64At(rszStart+24, uint64(instanceOffset))
		cur.WriteU64At(rszStart+32, uint64(dataOffset))
		cur.WriteU64At(rszStart+40, uint64(userdataOffset))
	} else {
		cur.WriteU64At(rszStart+16, uint64(instanceOffset))
		cur.WriteU64At(rszStart+24, uint64(dataOffset))
	}

	return cur.Seek(endPos)
}

// rszMagicFor returns the little-endian "RSZ\0" magic every Object Stream
// opens with, independent of container variant.
func rszMagicFor(uint32) uint32 {
	return uint32('R') | uint32('S')<<8 | uint32('Z')<<16
}

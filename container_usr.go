// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

// usrHeaderSize is the UserRoot variant's fixed 48-byte prologue.
const usrHeaderSize = 48

// USRCodec implements ContainerCodec for the UserRoot variant: no
// gameobjects or folders, just resources, userdata, and an Object Stream.
type USRCodec struct{}

func (USRCodec) Parse(data []byte, registry *TypeRegistry) (*Container, error) {
	cur := NewCursor(data)

	magic, err := cur.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(magic) != string(magicUSR[:]) {
		return nil, &MalformedMagicError{Got: magic}
	}

	resourceCount, err := cur.ReadU32()
	if err != nil {
		return nil, err
	}
	userdataCount, err := cur.ReadU32()
	if err != nil {
		return nil, err
	}
	if _, err = cur.ReadU32(); err != nil { // info_count: unused, the Object Stream carries the real count
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
	if _, err = cur.ReadU64(); err != nil { // reserved
		return nil, err
	}

	c := &Container{Variant: VariantUSR, Registry: registry}

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
	graph, rszHeader, objectTable, _, _, err := decodeObjectStream(cur, registry, nil)
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

func (USRCodec) Rebuild(c *Container, opts RebuildOptions) ([]byte, error) {
	cur := NewWriteCursor()
	cur.WriteBytes(make([]byte, usrHeaderSize))

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

	cur.WriteU32At(0, leBytesToU32(magicUSR))
	cur.WriteU32At(4, uint32(len(c.Resources)))
	cur.WriteU32At(8, uint32(len(c.UserData)))
	cur.WriteU32At(12, uint32(len(c.Graph.Instances)-1))
	cur.WriteU64At(16, uint64(resourceTbl))
	cur.WriteU64At(24, uint64(userdataTbl))
	cur.WriteU64At(32, uint64(dataOffset))
	cur.WriteU64At(40, 0)

	return cur.Bytes(), nil
}


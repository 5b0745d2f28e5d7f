// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

// pfb16HeaderSize is Prefab-legacy-16's fixed 40-byte prologue: as PFB, but
// with no userdata table (spec.md §6).
const pfb16HeaderSize = 40

// PFB16Codec implements ContainerCodec for Prefab-legacy-16: identical to
// PFB except resource descriptors carry their string inline, directly
// after the descriptor, instead of through an offset into a shared heap.
// Grounded on original_source's pfb_16/pfb_structure.parse_pfb16_resources.
type PFB16Codec struct{}

func (PFB16Codec) Parse(data []byte, registry *TypeRegistry) (*Container, error) {
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
	refInfoTbl, err := cur.ReadU64()
	if err != nil {
		return nil, err
	}
	resourceTbl, err := cur.ReadU64()
	if err != nil {
		return nil, err
	}
	dataOffset, err := cur.ReadU64()
	if err != nil {
		return nil, err
	}

	c := &Container{Variant: VariantPFB16, Registry: registry}

	if err := cur.Seek(pfb16HeaderSize); err != nil {
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
	c.Pfb16Resources = make([]Pfb16ResourceInfo, resourceCount)
	for i := range c.Pfb16Resources {
		s, err := cur.ReadWString()
		if err != nil {
			return nil, err
		}
		c.Pfb16Resources[i] = Pfb16ResourceInfo{Path: s}
	}

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

func (PFB16Codec) Rebuild(c *Container, opts RebuildOptions) ([]byte, error) {
	cur := NewWriteCursor()
	cur.WriteBytes(make([]byte, pfb16HeaderSize))

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
	for _, r := range c.Pfb16Resources {
		if err := cur.WriteWString(r.Path); err != nil {
			return nil, err
		}
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
	cur.WriteU32At(8, uint32(len(c.Pfb16Resources)))
	cur.WriteU32At(12, uint32(len(c.GameObjectRefInfos)))
	cur.WriteU64At(16, uint64(refInfoTbl))
	cur.WriteU64At(24, uint64(resourceTbl))
	cur.WriteU64At(32, uint64(dataOffset))

	return cur.Bytes(), nil
}

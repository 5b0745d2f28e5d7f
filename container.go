// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import "fmt"

// Variant discriminates the container formats a ContainerCodec can parse,
// per spec.md §4.6's table.
type Variant int

const (
	VariantSCN Variant = iota
	VariantPFB
	VariantUSR
	VariantPFB16
	VariantSCNLegacy
)

func (v Variant) String() string {
	switch v {
	case VariantSCN:
		return "SCN"
	case VariantPFB:
		return "PFB"
	case VariantUSR:
		return "USR"
	case VariantPFB16:
		return "PFB.16"
	case VariantSCNLegacy:
		return "SCN.legacy"
	default:
		return "unknown"
	}
}

var (
	magicSCN = [4]byte{'S', 'C', 'N', 0}
	magicPFB = [4]byte{'P', 'F', 'B', 0}
	magicUSR = [4]byte{'U', 'S', 'R', 0}
)

// GameObjectRecord is the Scene variant's 32-byte gameobject entry.
type GameObjectRecord struct {
	GUID           [16]byte
	ID             int32
	ParentID       int32
	ComponentCount uint16
	Ukn            int16
	PrefabID       int32
}

// PfbGameObjectRecord is the Prefab variant's 12-byte gameobject entry
// (no GUID).
type PfbGameObjectRecord struct {
	ID             int32
	ParentID       int32
	ComponentCount int32
}

// GameObjectRefInfo connects a Prefab gameobject's property/array slot to
// another object, 16 bytes on disk.
type GameObjectRefInfo struct {
	ObjectID   int32
	PropertyID int32
	ArrayIndex int32
	TargetID   int32
}

// FolderInfo is the Scene variant's 8-byte folder entry.
type FolderInfo struct {
	ID       int32
	ParentID int32
}

// ResourceInfo is an offset-encoded resource string descriptor (8 bytes on
// disk, plus the resolved string).
type ResourceInfo struct {
	StringOffset uint32
	Reserved     uint32
	Path         string
}

// Pfb16ResourceInfo is Prefab-legacy-16's inline resource descriptor: the
// string itself follows the descriptor directly instead of living in a
// shared heap addressed by offset.
type Pfb16ResourceInfo struct {
	Path string
}

// PrefabInfo is a Scene variant's prefab-reference descriptor, 8 bytes on
// disk (string_offset, parent_id).
type PrefabInfo struct {
	StringOffset uint32
	ParentID     uint32
	Path         string
}

// UserDataInfo is an RszUserDataInfo table entry: the instance it attaches
// to, a type hash, and an offset-encoded string naming the userdata file.
type UserDataInfo struct {
	InstanceID   uint32
	Hash         uint32
	StringOffset uint64
	Path         string

	// Embedded is never populated by any codec: no variant, SCN.18/.19
	// included, parses a userdata entry's embedded Object Stream, so it is
	// nil after every Parse and ignored by every Rebuild.
	Embedded *Container
}

// RszHeaderInfo is the RszHeader prologue of the Object Stream (spec.md §6).
type RszHeaderInfo struct {
	Magic          uint32
	Version        uint32
	ObjectCount    uint32
	InstanceCount  uint32
	UserDataCount  uint32
	Reserved       uint32
	InstanceOffset uint64
	DataOffset     uint64
	UserDataOffset uint64
}

// rszHeaderHasUserData reports whether this RszHeader version carries the
// v≥4 userdata_count/reserved/userdata_offset fields (spec.md §6).
func rszHeaderHasUserData(version uint32) bool { return version >= 4 }

// Container is the decoded aggregate for any of the five variants. Only the
// fields relevant to the parsed Variant are populated; the rest stay at
// their zero value, which the matching Rebuild implementation never reads.
type Container struct {
	Variant Variant

	GameObjects        []GameObjectRecord
	PfbGameObjects     []PfbGameObjectRecord
	Folders            []FolderInfo
	Resources          []ResourceInfo
	Pfb16Resources     []Pfb16ResourceInfo
	Prefabs            []PrefabInfo
	GameObjectRefInfos []GameObjectRefInfo
	UserData           []UserDataInfo

	RszHeader   RszHeaderInfo
	ObjectTable []int32
	Instances   []InstanceInfo
	Graph       *InstanceGraph

	Registry *TypeRegistry
	Warnings []string
}

// ContainerCodec is implemented by each variant's parser/rebuilder.
type ContainerCodec interface {
	Parse(data []byte, registry *TypeRegistry) (*Container, error)
	Rebuild(c *Container, opts RebuildOptions) ([]byte, error)
}

// readHeapString resolves an absolute 8-byte string-table offset into its
// UTF-16LE, NUL-terminated string. offset == 0 conventionally means "no
// string" and resolves to "". An offset past the end of the buffer is a
// recoverable InvalidStringOffset: it resolves to "" with a warning instead
// of failing the whole parse.
func readHeapString(cur *Cursor, offset uint64, warnings *[]string) string {
	if offset == 0 {
		return ""
	}
	if offset >= uint64(cur.Len()) {
		*warnings = append(*warnings, invalidStringOffsetWarning(offset, cur.Len()))
		return ""
	}
	saved := cur.Tell()
	defer func() { _ = cur.Seek(saved) }()
	if err := cur.Seek(int(offset)); err != nil {
		*warnings = append(*warnings, invalidStringOffsetWarning(offset, cur.Len()))
		return ""
	}
	s, err := cur.ReadWString()
	if err != nil {
		*warnings = append(*warnings, invalidStringOffsetWarning(offset, cur.Len()))
		return ""
	}
	return s
}

// decodeRszHeader reads the RszHeader prologue at the cursor's current
// (absolute) position and returns it along with the header's byte size.
func decodeRszHeader(cur *Cursor) (RszHeaderInfo, int, error) {
	var h RszHeaderInfo
	var err error
	if h.Magic, err = cur.ReadU32(); err != nil {
		return h, 0, err
	}
	if h.Version, err = cur.ReadU32(); err != nil {
		return h, 0, err
	}
	if h.ObjectCount, err = cur.ReadU32(); err != nil {
		return h, 0, err
	}
	if h.InstanceCount, err = cur.ReadU32(); err != nil {
		return h, 0, err
	}
	if rszHeaderHasUserData(h.Version) {
		if h.UserDataCount, err = cur.ReadU32(); err != nil {
			return h, 0, err
		}
		if h.Reserved, err = cur.ReadU32(); err != nil {
			return h, 0, err
		}
		if h.InstanceOffset, err = cur.ReadU64(); err != nil {
			return h, 0, err
		}
		if h.DataOffset, err = cur.ReadU64(); err != nil {
			return h, 0, err
		}
		if h.UserDataOffset, err = cur.ReadU64(); err != nil {
			return h, 0, err
		}
		return h, 48, nil
	}
	if h.InstanceOffset, err = cur.ReadU64(); err != nil {
		return h, 0, err
	}
	if h.DataOffset, err = cur.ReadU64(); err != nil {
		return h, 0, err
	}
	return h, 32, nil
}

// decodeObjectStream decodes the full Object Stream (RszHeader, object
// table, instance infos, userdata infos/strings, and every instance's field
// payload) starting at the cursor's current absolute position, which must
// be the RszHeader's first byte (rsz_start).
//
// Field alignment is computed from the cursor's absolute position: every
// alignment this format uses (1/2/4/8/16) divides 16, so the alignment-base
// correction spec.md §4.4 describes collapses to plain absolute-position
// alignment and the codec is always invoked with alignBase 0. See
// DESIGN.md for the derivation.
func decodeObjectStream(cur *Cursor, registry *TypeRegistry, classify func(index int) bool) (*InstanceGraph, RszHeaderInfo, []int32, []UserDataInfo, []string, error) {
	rszStart := cur.Tell()
	header, _, err := decodeRszHeader(cur)
	if err != nil {
		return nil, header, nil, nil, nil, err
	}

	// Object table immediately follows the header.
	objectTable := make([]int32, header.ObjectCount)
	for i := range objectTable {
		v, err := cur.ReadI32()
		if err != nil {
			return nil, header, nil, nil, nil, err
		}
		objectTable[i] = v
	}

	if err := cur.Seek(rszStart + int(header.InstanceOffset)); err != nil {
		return nil, header, nil, nil, nil, err
	}

	graph := NewInstanceGraph()
	for i := uint32(0); i < header.InstanceCount; i++ {
		typeID, err := cur.ReadU32()
		if err != nil {
			return nil, header, nil, nil, nil, err
		}
		crc, err := cur.ReadU32()
		if err != nil {
			return nil, header, nil, nil, nil, err
		}
		if i == 0 {
			continue // NULL sentinel already seated by NewInstanceGraph
		}
		graph.AppendInstance(InstanceInfo{TypeID: typeID, CRC: crc})
	}

	var userdata []UserDataInfo
	if rszHeaderHasUserData(header.Version) && header.UserDataCount > 0 {
		if err := cur.Seek(rszStart + int(header.UserDataOffset)); err != nil {
			return nil, header, nil, nil, nil, err
		}
		userdata = make([]UserDataInfo, header.UserDataCount)
		for i := range userdata {
			instID, err := cur.ReadU32()
			if err != nil {
				return nil, header, nil, nil, nil, err
			}
			hash, err := cur.ReadU32()
			if err != nil {
				return nil, header, nil, nil, nil, err
			}
			strOff, err := cur.ReadU64()
			if err != nil {
				return nil, header, nil, nil, nil, err
			}
			userdata[i] = UserDataInfo{InstanceID: instID, Hash: hash, StringOffset: strOff}
		}
		for i := range userdata {
			// encodeObjectStream writes these offsets relative to rszStart,
			// like every other offset inside the Object Stream.
			off := userdata[i].StringOffset
			if off != 0 {
				off += uint64(rszStart)
			}
			userdata[i].Path = readHeapString(cur, off, &graph.Warnings)
			graph.UserDataInstances[int(userdata[i].InstanceID)] = true
		}
	}

	userdataLookup := make(map[int]string, len(userdata))
	for _, u := range userdata {
		userdataLookup[int(u.InstanceID)] = u.Path
	}

	for idx := range objectTable {
		root := int(objectTable[idx])
		if root > 0 && root < len(graph.Instances) {
			if classify != nil && classify(idx) {
				graph.GameObjectInstances[root] = true
			}
		}
	}

	if err := cur.Seek(rszStart + int(header.DataOffset)); err != nil {
		return nil, header, nil, nil, nil, err
	}

	codec := NewObjectStreamCodec(registry)
	for idx := 1; idx < len(graph.Instances); idx++ {
		if graph.UserDataInstances[idx] {
			continue // userdata instances carry no field stream; Parsed[idx] stays empty
		}
		info := graph.Instances[idx]
		ti, ok := registry.Get(info.TypeID)
		if !ok {
			graph.Warnings = append(graph.Warnings, unknownTypeWarning(info.TypeID, idx))
			continue
		}
		pos, err := codec.DecodeInstance(cur, cur.Tell(), 0, idx, ti.Fields, graph, userdataLookup)
		if err != nil {
			return nil, header, nil, nil, nil, fmt.Errorf("rsz: decode instance %d (type %s): %w", idx, ti.Name, err)
		}
		if err := cur.Seek(pos); err != nil {
			return nil, header, nil, nil, nil, err
		}
	}

	return graph, header, objectTable, userdata, nil, nil
}

func objectTableSize(h RszHeaderInfo) int { return int(h.ObjectCount) * 4 }

// heapEntry is one pending string in a container's resource/prefab/userdata
// string heap, keyed by its pre-walked absolute offset.
type heapEntry struct {
	offset int
	value  string
}

// sortHeapEntries orders heap entries by offset, the order the rebuild
// pipeline must emit them in (spec.md §4.8 step 7).
func sortHeapEntries(h []heapEntry) {
	for i := 1; i < len(h); i++ {
		for j := i; j > 0 && h[j-1].offset > h[j].offset; j-- {
			h[j-1], h[j] = h[j], h[j-1]
		}
	}
}

// planStringHeap assigns each non-empty path in paths (walked in table
// order: resources, then prefabs, then userdata) an absolute offset into the
// shared string heap starting at start. Identical strings collapse onto one
// offset and one heap entry, so the heap holds each distinct string exactly
// once no matter how many descriptors name it (spec.md §8 scenario 3).
func planStringHeap(start int, paths []string) (offsets []int, heap []heapEntry) {
	offsets = make([]int, len(paths))
	seen := make(map[string]int, len(paths))
	cursor := start
	for i, p := range paths {
		if p == "" {
			continue
		}
		if off, ok := seen[p]; ok {
			offsets[i] = off
			continue
		}
		offsets[i] = cursor
		seen[p] = cursor
		heap = append(heap, heapEntry{cursor, p})
		cursor += utf16ByteLen(p) + 2
	}
	return offsets, heap
}

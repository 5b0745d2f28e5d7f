// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/fenrir-tools/rszkit/internal/rszlog"
)

// FieldDef describes one field of a registry type, in on-disk order.
type FieldDef struct {
	Name               string `json:"name"`
	Type               string `json:"type"`
	Size               int    `json:"size"`
	Align              int    `json:"align"`
	IsArray            bool   `json:"array,omitempty"`
	IsNative           bool   `json:"native,omitempty"`
	OriginalType       string `json:"original_type,omitempty"`
	SizeBytesElement   int    `json:"-"`

	dispatch *fieldDispatch // lazily resolved, cached on first decode/encode
}

// TypeInfo is the immutable, registry-derived description of one object
// type: its id, crc, optional parent, and ordered field layout.
type TypeInfo struct {
	TypeID     uint32
	CRC        uint32
	Name       string
	ParentName string
	Fields     []*FieldDef
}

// TypeRegistry is a read-only, shareable type-id → TypeInfo lookup loaded
// from the external Type Registry JSON. It is immutable once constructed;
// many concurrent parses may share one instance as long as each uses its
// own Cursor and InstanceGraph.
type TypeRegistry struct {
	byID   map[uint32]*TypeInfo
	byName map[string]*TypeInfo
	log    *rszlog.Helper
}

type rawFieldDef struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Size         int    `json:"size"`
	Align        int    `json:"align"`
	Array        bool   `json:"array"`
	Native       bool   `json:"native"`
	OriginalType string `json:"original_type"`
}

type rawTypeInfo struct {
	Name   string        `json:"name"`
	CRC    uint32        `json:"crc"`
	Parent string        `json:"parent"`
	Fields []rawFieldDef `json:"fields"`
}

// LoadRegistry reads the Type Registry JSON at path, applies the
// duplicate-field-name patch pass, and returns an immutable TypeRegistry.
// If cache is non-nil, a previously patched registry for the same path and
// mtime is reused instead of re-running the patch pass.
func LoadRegistry(path string, cache *RegistryCache, log *rszlog.Helper) (*TypeRegistry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("rsz: stat registry %s: %w", path, err)
	}
	mtime := info.ModTime().UnixNano()

	if cache != nil {
		if body, ok, err := cache.Get(path, mtime); err == nil && ok {
			var cached map[string]rawTypeInfo
			if err := json.Unmarshal(body, &cached); err == nil {
				if log != nil {
					log.Infof("using cached patched registry for %s", path)
				}
				return buildRegistry(cached, log)
			}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rsz: read registry %s: %w", path, err)
	}

	var raw map[string]rawTypeInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("rsz: parse registry %s: %w", path, err)
	}

	patchFields(raw, log)

	if cache != nil {
		if patched, err := json.Marshal(raw); err == nil {
			_ = cache.Put(path, mtime, patched)
		}
	}

	return buildRegistry(raw, log)
}

func buildRegistry(raw map[string]rawTypeInfo, log *rszlog.Helper) (*TypeRegistry, error) {
	r := &TypeRegistry{
		byID:   make(map[uint32]*TypeInfo, len(raw)),
		byName: make(map[string]*TypeInfo, len(raw)),
		log:    log,
	}
	for key, rt := range raw {
		id, err := strconv.ParseUint(key, 16, 32)
		if err != nil {
			continue
		}
		ti := &TypeInfo{
			TypeID:     uint32(id),
			CRC:        rt.CRC,
			Name:       rt.Name,
			ParentName: rt.Parent,
			Fields:     make([]*FieldDef, 0, len(rt.Fields)),
		}
		for _, rf := range rt.Fields {
			ti.Fields = append(ti.Fields, &FieldDef{
				Name:         rf.Name,
				Type:         rf.Type,
				Size:         rf.Size,
				Align:        rf.Align,
				IsArray:      rf.Array,
				IsNative:     rf.Native,
				OriginalType: rf.OriginalType,
			})
		}
		r.byID[uint32(id)] = ti
		if ti.Name != "" {
			r.byName[ti.Name] = ti
		}
	}
	return r, nil
}

// patchFields uniquifies duplicate field names within the same type by
// appending "_<n>" to collisions, preserving declaration order. Grounded
// on original_source/utils/type_registry_patcher.py's _patch_fields.
func patchFields(raw map[string]rawTypeInfo, log *rszlog.Helper) {
	for key, rt := range raw {
		if len(rt.Fields) == 0 {
			continue
		}
		seen := make(map[string]int, len(rt.Fields))
		for i := range rt.Fields {
			name := rt.Fields[i].Name
			if name == "" {
				continue
			}
			seen[name]++
			if n := seen[name]; n > 1 {
				newName := fmt.Sprintf("%s_%d", name, n)
				if log != nil {
					log.Debugf("renamed duplicate field %q to %q in type %s", name, newName, key)
				}
				rt.Fields[i].Name = newName
			}
		}
		raw[key] = rt
	}
}

// Get looks up a TypeInfo by numeric type id.
func (r *TypeRegistry) Get(typeID uint32) (*TypeInfo, bool) {
	ti, ok := r.byID[typeID]
	return ti, ok
}

// FindByName looks up a TypeInfo and its numeric id by type name.
func (r *TypeRegistry) FindByName(name string) (*TypeInfo, uint32, bool) {
	ti, ok := r.byName[name]
	if !ok {
		return nil, 0, false
	}
	return ti, ti.TypeID, true
}

// ParentChain returns the ordered ancestor names for typeName, nearest
// parent first, stopping at the first unresolved ancestor or at a cycle.
// Grounded on original_source/utils/type_registry.py's getTypeParents.
func (r *TypeRegistry) ParentChain(typeName string) []string {
	var parents []string
	seen := make(map[string]bool)
	current := typeName
	for {
		ti, ok := r.byName[current]
		if !ok {
			break
		}
		parent := ti.ParentName
		if parent == "" {
			break
		}
		if seen[parent] {
			break
		}
		parents = append(parents, parent)
		seen[parent] = true
		current = parent
	}
	return parents
}

// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

// ResourceHarvester walks a decoded instance graph collecting every
// resource path it references, in first-occurrence order. Grounded on
// original_source's scn_file.py get_resource_str_list / the RSZ viewer's
// resource-list panel, re-expressed as a standalone walker over FieldValue
// rather than a method mixed into the file-handler class.
type ResourceHarvester struct {
	Registry *TypeRegistry
}

// NewResourceHarvester constructs a harvester bound to the type registry
// used to resolve OriginalType on nested struct fields.
func NewResourceHarvester(registry *TypeRegistry) *ResourceHarvester {
	return &ResourceHarvester{Registry: registry}
}

// Harvest returns every resource path reachable from graph, deduplicated
// while preserving the order paths were first seen.
func (h *ResourceHarvester) Harvest(graph *InstanceGraph) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		out = append(out, path)
	}

	for idx, info := range graph.Instances {
		if idx == 0 {
			continue
		}
		ti, ok := h.Registry.Get(info.TypeID)
		if !ok {
			continue
		}
		h.harvestInstance(ti, graph.Parsed[idx], add)
	}
	return out
}

func (h *ResourceHarvester) harvestInstance(ti *TypeInfo, values map[string]FieldValue, add func(string)) {
	switch ti.Name {
	case "via.Prefab", "app.global.ResourcePrefab":
		h.harvestFlaggedPath(ti, values, 0, 1, add)
		return
	case "via.Folder":
		h.harvestFlaggedPath(ti, values, 4, 5, add)
		return
	}
	for _, fd := range ti.Fields {
		v, ok := values[fd.Name]
		if !ok {
			continue
		}
		h.harvestField(fd, v, add)
	}
}

// harvestFlaggedPath handles the two special-cased types whose resource
// path is gated by a sibling enable flag, per spec.md §4.7: via.Prefab and
// app.global.ResourcePrefab gate their 2nd field (index 1) on their 1st
// (index 0); via.Folder gates its 6th field (index 5) on its 5th (index 4).
func (h *ResourceHarvester) harvestFlaggedPath(ti *TypeInfo, values map[string]FieldValue, flagIdx, pathIdx int, add func(string)) {
	if flagIdx >= len(ti.Fields) || pathIdx >= len(ti.Fields) {
		return
	}
	flagField := ti.Fields[flagIdx]
	pathField := ti.Fields[pathIdx]
	flagVal, ok := values[flagField.Name]
	if !ok {
		return
	}
	b, ok := flagVal.(BoolValue)
	if !ok || !b.Value {
		return
	}
	pathVal, ok := values[pathField.Name]
	if !ok {
		return
	}
	switch s := pathVal.(type) {
	case ResourceValue:
		add(s.Value)
	case StringValue:
		add(s.Value)
	}
}

func (h *ResourceHarvester) harvestField(fd *FieldDef, v FieldValue, add func(string)) {
	if fd.IsArray {
		arr, ok := v.(ArrayValue)
		if !ok {
			return
		}
		for _, elem := range arr.Elements {
			h.harvestScalar(fd, elem, add)
		}
		return
	}
	h.harvestScalar(fd, v, add)
}

func (h *ResourceHarvester) harvestScalar(fd *FieldDef, v FieldValue, add func(string)) {
	switch val := v.(type) {
	case ResourceValue:
		add(val.Value)
	case StructValue:
		nestedType := val.OriginalType
		if nestedType == "" {
			nestedType = fd.OriginalType
		}
		ti, _, ok := h.Registry.FindByName(nestedType)
		if !ok {
			return
		}
		h.harvestInstance(ti, val.Fields, add)
	}
}

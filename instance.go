// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

// InstanceInfo is the type_id/crc pair stored per instance. Index 0 is
// always the NULL sentinel and never carries field data.
type InstanceInfo struct {
	TypeID uint32
	CRC    uint32
}

// HierarchyEdge records one instance's parent (the instance whose
// ObjectRef/UserDataRef field references it, if any) and children (the
// earlier instances its own reference fields point at).
type HierarchyEdge struct {
	Parent   *int
	Children []int
}

// InstanceGraph is the decoded object graph for one Object Stream: the
// ordered instance list, their parsed field maps, parent/child edges, and
// the GameObject/Folder/UserData classification sets the codec consults
// when resolving polymorphic scalar fields. It is destroyed along with the
// container that produced it.
type InstanceGraph struct {
	Instances []InstanceInfo
	Parsed    []map[string]FieldValue
	Hierarchy []HierarchyEdge

	GameObjectInstances map[int]bool
	FolderInstances     map[int]bool
	UserDataInstances    map[int]bool

	Warnings []string

	ids *idManager
}

// NewInstanceGraph returns an InstanceGraph with instance 0 already seated
// as the NULL sentinel.
func NewInstanceGraph() *InstanceGraph {
	g := &InstanceGraph{
		GameObjectInstances: make(map[int]bool),
		FolderInstances:     make(map[int]bool),
		UserDataInstances:   make(map[int]bool),
		ids:                 newIDManager(),
	}
	g.appendSentinel()
	return g
}

func (g *InstanceGraph) appendSentinel() {
	g.Instances = append(g.Instances, InstanceInfo{})
	g.Parsed = append(g.Parsed, map[string]FieldValue{})
	g.Hierarchy = append(g.Hierarchy, HierarchyEdge{})
}

// AppendInstance appends a new InstanceInfo and returns its index.
func (g *InstanceGraph) AppendInstance(info InstanceInfo) int {
	g.Instances = append(g.Instances, info)
	g.Parsed = append(g.Parsed, map[string]FieldValue{})
	g.Hierarchy = append(g.Hierarchy, HierarchyEdge{})
	return len(g.Instances) - 1
}

// IsValidReference reports whether candidate is a valid backward reference
// from instance `from`: it must be strictly between the NULL sentinel and
// `from`, and must not be a GameObject/Folder root (spec.md invariant 2).
func (g *InstanceGraph) IsValidReference(candidate, from int) bool {
	if candidate <= 0 || candidate >= from {
		return false
	}
	if g.GameObjectInstances[candidate] || g.FolderInstances[candidate] {
		return false
	}
	return true
}

// SetParent records that child's parent is parent, appending child to
// parent's children list.
func (g *InstanceGraph) SetParent(child, parent int) {
	if child < 0 || child >= len(g.Hierarchy) {
		g.Warnings = append(g.Warnings, invalidReferenceWarning("<edge>", child, parent))
		return
	}
	p := parent
	g.Hierarchy[child].Parent = &p
	if parent >= 0 && parent < len(g.Hierarchy) {
		g.Hierarchy[parent].Children = append(g.Hierarchy[parent].Children, child)
	}
}

// FindNestedObjects returns the transitive closure of ObjectRef/UserDataRef
// children reachable from root, excluding indices already classified as
// GameObject/Folder roots (those are addressed via the Object Table, not
// as nested field references).
func (g *InstanceGraph) FindNestedObjects(root int) []int {
	seen := make(map[int]bool)
	var order []int
	var walk func(idx int)
	walk = func(idx int) {
		if idx < 0 || idx >= len(g.Hierarchy) {
			return
		}
		for _, child := range g.Hierarchy[idx].Children {
			if g.GameObjectInstances[child] || g.FolderInstances[child] {
				continue
			}
			if seen[child] {
				continue
			}
			seen[child] = true
			order = append(order, child)
			walk(child)
		}
	}
	walk(root)
	return order
}

// FindUserDataReferences returns every UserDataRef-typed field value
// reachable from root's decoded fields (direct fields only; userdata
// instances are never decoded as field streams per invariant 3).
func (g *InstanceGraph) FindUserDataReferences(root int) []UserDataRefValue {
	var out []UserDataRefValue
	if root < 0 || root >= len(g.Parsed) {
		return out
	}
	for _, fv := range g.Parsed[root] {
		collectUserDataRefs(fv, &out)
	}
	return out
}

func collectUserDataRefs(fv FieldValue, out *[]UserDataRefValue) {
	switch v := fv.(type) {
	case UserDataRefValue:
		*out = append(*out, v)
	case ArrayValue:
		for _, e := range v.Elements {
			collectUserDataRefs(e, out)
		}
	case StructValue:
		for _, e := range v.Fields {
			collectUserDataRefs(e, out)
		}
	}
}

// InsertInstanceAndUpdateReferences inserts newInfo at index `at`, shifting
// every existing instance at or after `at` up by one, and rewrites every
// ObjectRef/UserDataRef/MaybeObject-as-reference value (and every
// hierarchy edge) whose index is >= at to point one higher. Host ids from
// AssignID move with their instances.
func (g *InstanceGraph) InsertInstanceAndUpdateReferences(at int, newInfo InstanceInfo) {
	if at < 0 || at > len(g.Instances) {
		return
	}

	shift := func(idx int) int {
		if idx >= at {
			return idx + 1
		}
		return idx
	}

	g.Instances = append(g.Instances, InstanceInfo{})
	copy(g.Instances[at+1:], g.Instances[at:])
	g.Instances[at] = newInfo

	g.Parsed = append(g.Parsed, nil)
	copy(g.Parsed[at+1:], g.Parsed[at:])
	g.Parsed[at] = map[string]FieldValue{}

	g.Hierarchy = append(g.Hierarchy, HierarchyEdge{})
	copy(g.Hierarchy[at+1:], g.Hierarchy[at:])
	g.Hierarchy[at] = HierarchyEdge{}

	for i := range g.Hierarchy {
		if i == at {
			continue
		}
		h := &g.Hierarchy[i]
		if h.Parent != nil {
			p := shift(*h.Parent)
			h.Parent = &p
		}
		for j, c := range h.Children {
			h.Children[j] = shift(c)
		}
	}

	reclassify := func(set map[int]bool) map[int]bool {
		shifted := make(map[int]bool, len(set))
		for idx := range set {
			shifted[shift(idx)] = true
		}
		return shifted
	}
	g.GameObjectInstances = reclassify(g.GameObjectInstances)
	g.FolderInstances = reclassify(g.FolderInstances)
	g.UserDataInstances = reclassify(g.UserDataInstances)

	for i := range g.Parsed {
		if i == at {
			continue
		}
		for name, fv := range g.Parsed[i] {
			g.Parsed[i][name] = shiftReferences(fv, at, shift)
		}
	}

	if g.ids != nil {
		shiftedIdx := make(map[int]int, len(g.ids.idxToID))
		for id, idx := range g.ids.idToIdx {
			g.ids.idToIdx[id] = shift(idx)
			shiftedIdx[shift(idx)] = id
		}
		g.ids.idxToID = shiftedIdx
	}
}

func shiftReferences(fv FieldValue, at int, shift func(int) int) FieldValue {
	switch v := fv.(type) {
	case ObjectRefValue:
		if int(v.Index) >= at {
			v.Index = uint32(shift(int(v.Index)))
		}
		return v
	case UserDataRefValue:
		if int(v.Index) >= at {
			v.Index = uint32(shift(int(v.Index)))
		}
		return v
	case ArrayValue:
		for i, e := range v.Elements {
			v.Elements[i] = shiftReferences(e, at, shift)
		}
		return v
	case StructValue:
		for name, e := range v.Fields {
			v.Fields[name] = shiftReferences(e, at, shift)
		}
		return v
	default:
		return fv
	}
}

// idManager assigns stable host-side ids for editing, independent of
// in-file indices, so a host can track an instance across an
// InsertInstanceAndUpdateReferences call.
type idManager struct {
	next     int
	idToIdx  map[int]int
	idxToID  map[int]int
}

func newIDManager() *idManager {
	return &idManager{
		next:    1,
		idToIdx: make(map[int]int),
		idxToID: make(map[int]int),
	}
}

// Assign returns a stable id for index, creating one if it doesn't exist.
func (m *idManager) Assign(index int) int {
	if id, ok := m.idxToID[index]; ok {
		return id
	}
	id := m.next
	m.next++
	m.idToIdx[id] = index
	m.idxToID[index] = id
	return id
}

// Resolve returns the current instance index for a previously assigned id.
func (m *idManager) Resolve(id int) (int, bool) {
	idx, ok := m.idToIdx[id]
	return idx, ok
}

// Rebind updates the index an id maps to, e.g. after an insert shifts it.
func (m *idManager) Rebind(id, newIndex int) {
	if oldIdx, ok := m.idToIdx[id]; ok {
		delete(m.idxToID, oldIdx)
	}
	m.idToIdx[id] = newIndex
	m.idxToID[newIndex] = id
}

// AssignID exposes idManager.Assign on the graph's embedded manager.
func (g *InstanceGraph) AssignID(index int) int { return g.ids.Assign(index) }

// ResolveID exposes idManager.Resolve on the graph's embedded manager.
func (g *InstanceGraph) ResolveID(id int) (int, bool) { return g.ids.Resolve(id) }

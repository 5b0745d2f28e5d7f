// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import "testing"

func TestInstanceGraphBackwardReference(t *testing.T) {
	g := NewInstanceGraph()
	g.AppendInstance(InstanceInfo{TypeID: 1}) // index 1
	g.AppendInstance(InstanceInfo{TypeID: 1}) // index 2

	if !g.IsValidReference(1, 2) {
		t.Fatal("index 1 should be a valid backward reference from index 2")
	}
	if g.IsValidReference(2, 1) {
		t.Fatal("forward references must never be valid")
	}
	if g.IsValidReference(0, 2) {
		t.Fatal("the NULL sentinel is never a valid reference")
	}

	g.SetParent(1, 2)
	if g.Hierarchy[1].Parent == nil || *g.Hierarchy[1].Parent != 2 {
		t.Fatalf("instance 1's parent = %v, want 2", g.Hierarchy[1].Parent)
	}
	if len(g.Hierarchy[2].Children) != 1 || g.Hierarchy[2].Children[0] != 1 {
		t.Fatalf("instance 2's children = %v, want [1]", g.Hierarchy[2].Children)
	}
}

func TestInstanceGraphRootsAreNeverValidReferences(t *testing.T) {
	g := NewInstanceGraph()
	g.AppendInstance(InstanceInfo{TypeID: 1})
	g.AppendInstance(InstanceInfo{TypeID: 1})
	g.GameObjectInstances[1] = true

	if g.IsValidReference(1, 2) {
		t.Fatal("a GameObject-classified root must never be a valid field reference")
	}
}

func TestInstanceGraphFindNestedObjects(t *testing.T) {
	g := NewInstanceGraph()
	g.AppendInstance(InstanceInfo{TypeID: 1}) // 1
	g.AppendInstance(InstanceInfo{TypeID: 1}) // 2
	g.AppendInstance(InstanceInfo{TypeID: 1}) // 3
	g.SetParent(1, 3)
	g.SetParent(2, 1)

	nested := g.FindNestedObjects(3)
	if len(nested) != 2 || nested[0] != 1 || nested[1] != 2 {
		t.Fatalf("FindNestedObjects(3) = %v, want [1 2]", nested)
	}
}

func TestInsertInstanceAndUpdateReferencesShiftsEdgesAndFields(t *testing.T) {
	g := NewInstanceGraph()
	g.AppendInstance(InstanceInfo{TypeID: 1}) // 1
	g.AppendInstance(InstanceInfo{TypeID: 1}) // 2
	g.SetParent(1, 2)
	g.Parsed[2]["ref"] = ObjectRefValue{Index: 1}

	g.InsertInstanceAndUpdateReferences(1, InstanceInfo{TypeID: 99})

	if g.Instances[1].TypeID != 99 {
		t.Fatalf("inserted instance landed at the wrong index: %+v", g.Instances[1])
	}
	if g.Instances[2].TypeID != 1 {
		t.Fatalf("original instance 1 should now be at index 2, got %+v", g.Instances[2])
	}
	// instance that was at 2 (parent of instance 1 through its ref field) is
	// now at 3, and its ref follows instance 1 to index 2
	ref, ok := g.Parsed[3]["ref"].(ObjectRefValue)
	if !ok || ref.Index != 2 {
		t.Fatalf("shifted ObjectRef = %+v, want Index 2", g.Parsed[3]["ref"])
	}
	if g.Hierarchy[2].Parent == nil || *g.Hierarchy[2].Parent != 3 {
		t.Fatalf("shifted parent edge = %v, want 3", g.Hierarchy[2].Parent)
	}
}

func TestIDManagerSurvivesInsert(t *testing.T) {
	g := NewInstanceGraph()
	g.AppendInstance(InstanceInfo{TypeID: 1}) // index 1
	id := g.AssignID(1)

	g.InsertInstanceAndUpdateReferences(1, InstanceInfo{TypeID: 2})
	// The insert shifts the original instance from index 1 to index 2; its
	// host id follows it there.
	if idx, ok := g.ResolveID(id); !ok || idx != 2 {
		t.Fatalf("ResolveID after insert = %d, %v, want 2, true", idx, ok)
	}
}

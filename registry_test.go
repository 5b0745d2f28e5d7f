// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import (
	"os"
	"path/filepath"
	"testing"
)

func loadTestRegistry(t *testing.T, raw string) *TypeRegistry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, err := LoadRegistry(path, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestRegistryDuplicateFieldNamesGetPatched(t *testing.T) {
	reg := loadTestRegistry(t, `{
		"1": {
			"name": "test.Dup",
			"crc": 0,
			"fields": [
				{"name": "v", "type": "u32", "size": 4, "align": 4},
				{"name": "v", "type": "u32", "size": 4, "align": 4},
				{"name": "v", "type": "u32", "size": 4, "align": 4}
			]
		}
	}`)
	ti, ok := reg.Get(1)
	if !ok {
		t.Fatal("registry missing type 1")
	}
	names := []string{ti.Fields[0].Name, ti.Fields[1].Name, ti.Fields[2].Name}
	want := []string{"v", "v_2", "v_3"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("field %d name = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegistryParentChain(t *testing.T) {
	reg := loadTestRegistry(t, `{
		"1": {"name": "A", "crc": 0, "parent": "B", "fields": []},
		"2": {"name": "B", "crc": 0, "parent": "C", "fields": []},
		"3": {"name": "C", "crc": 0, "fields": []}
	}`)
	chain := reg.ParentChain("A")
	want := []string{"B", "C"}
	if len(chain) != len(want) {
		t.Fatalf("ParentChain(A) = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Fatalf("ParentChain(A)[%d] = %q, want %q", i, chain[i], want[i])
		}
	}
}

func TestRegistryParentChainStopsOnCycle(t *testing.T) {
	reg := loadTestRegistry(t, `{
		"1": {"name": "A", "crc": 0, "parent": "B", "fields": []},
		"2": {"name": "B", "crc": 0, "parent": "A", "fields": []}
	}`)
	chain := reg.ParentChain("A")
	if len(chain) != 2 {
		t.Fatalf("ParentChain on a 2-cycle should stop after visiting each ancestor once, got %v", chain)
	}
}

func TestRegistryFindByNameAndGet(t *testing.T) {
	reg := loadTestRegistry(t, `{
		"2a": {"name": "test.Hex", "crc": 7, "fields": []}
	}`)
	ti, id, ok := reg.FindByName("test.Hex")
	if !ok {
		t.Fatal("FindByName(test.Hex) not found")
	}
	if id != 0x2a {
		t.Fatalf("type id = %#x, want %#x", id, 0x2a)
	}
	ti2, ok := reg.Get(0x2a)
	if !ok || ti2 != ti {
		t.Fatal("Get(0x2a) did not return the same TypeInfo as FindByName")
	}
}

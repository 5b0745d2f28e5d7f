// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import "testing"

// These tests exercise each ContainerCodec's Parse/Rebuild pair against
// fixtures built from Go struct literals rather than hand-derived byte
// layouts: Rebuild produces the canonical bytes, Parse must recover the same
// decoded semantics, and rebuilding the parsed result again must reproduce
// the exact same bytes (spec.md §8's round-trip property).
//
// Alignment spillover and MaybeObject array discrimination are already
// covered at the instance-codec level in codec_test.go; they are not
// duplicated here.

func TestRoundTripMinimalUSR(t *testing.T) {
	registry := loadTestRegistry(t, `{
		"1": {
			"name": "test.Value",
			"crc": 0,
			"fields": [
				{"name": "value", "type": "u32", "size": 4, "align": 4}
			]
		}
	}`)

	graph := NewInstanceGraph()
	idx := graph.AppendInstance(InstanceInfo{TypeID: 1})
	graph.Parsed[idx] = map[string]FieldValue{
		"value": IntValue{K: KindU32, Value: 0xCAFEBABE},
	}

	c := &Container{
		Variant:     VariantUSR,
		Registry:    registry,
		Graph:       graph,
		ObjectTable: []int32{int32(idx)},
		RszHeader:   RszHeaderInfo{Version: 3},
	}

	codec := USRCodec{}
	bytes1, err := codec.Rebuild(c, RebuildOptions{})
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := codec.Parse(bytes1, registry)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := parsed.Graph.Parsed[1]["value"].(IntValue)
	if !ok || got.Value != 0xCAFEBABE {
		t.Fatalf("parsed value = %+v, want 0xCAFEBABE", parsed.Graph.Parsed[1]["value"])
	}

	bytes2, err := codec.Rebuild(parsed, RebuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if string(bytes1) != string(bytes2) {
		t.Fatal("rebuild(parse(rebuild(c))) produced different bytes than rebuild(c)")
	}
}

func TestRoundTripSCNBackwardReference(t *testing.T) {
	registry := loadTestRegistry(t, `{
		"1": {"name": "test.Leaf", "crc": 0, "fields": []},
		"2": {
			"name": "test.Root",
			"crc": 0,
			"fields": [
				{"name": "child", "type": "object", "size": 4, "align": 4}
			]
		}
	}`)

	graph := NewInstanceGraph()
	leaf := graph.AppendInstance(InstanceInfo{TypeID: 1}) // index 1
	root := graph.AppendInstance(InstanceInfo{TypeID: 2}) // index 2
	graph.Parsed[leaf] = map[string]FieldValue{}
	graph.Parsed[root] = map[string]FieldValue{
		"child": ObjectRefValue{Index: uint32(leaf)},
	}

	// ObjectTable names root (index 2) as the only scene root: the leaf must
	// stay unclassified so it remains a valid backward-reference target.
	c := &Container{
		Variant:     VariantSCN,
		Registry:    registry,
		Graph:       graph,
		ObjectTable: []int32{int32(root)},
		RszHeader:   RszHeaderInfo{Version: 3},
	}

	codec := SCNCodec{}
	bytes1, err := codec.Rebuild(c, RebuildOptions{})
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := codec.Parse(bytes1, registry)
	if err != nil {
		t.Fatal(err)
	}
	ref, ok := parsed.Graph.Parsed[2]["child"].(ObjectRefValue)
	if !ok || ref.Index != 1 {
		t.Fatalf("child = %+v, want ObjectRefValue{Index: 1}", parsed.Graph.Parsed[2]["child"])
	}
	if parsed.Graph.Hierarchy[1].Parent == nil || *parsed.Graph.Hierarchy[1].Parent != 2 {
		t.Fatalf("leaf's parent = %v, want 2", parsed.Graph.Hierarchy[1].Parent)
	}

	bytes2, err := codec.Rebuild(parsed, RebuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if string(bytes1) != string(bytes2) {
		t.Fatal("rebuild(parse(rebuild(c))) produced different bytes than rebuild(c)")
	}
}

func TestRoundTripStringHeapDeduplication(t *testing.T) {
	registry := loadTestRegistry(t, `{
		"1": {"name": "test.Leaf", "crc": 0, "fields": []}
	}`)

	graph := NewInstanceGraph()
	graph.AppendInstance(InstanceInfo{TypeID: 1})

	c := &Container{
		Variant:  VariantUSR,
		Registry: registry,
		Graph:    graph,
		Resources: []ResourceInfo{
			{Path: "path/a.mesh"},
			{Path: "path/a.mesh"},
			{Path: "other.mesh"},
		},
		RszHeader: RszHeaderInfo{Version: 3},
	}

	codec := USRCodec{}
	bytes1, err := codec.Rebuild(c, RebuildOptions{})
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := codec.Parse(bytes1, registry)
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.Resources) != 3 {
		t.Fatalf("len(Resources) = %d, want 3", len(parsed.Resources))
	}
	if parsed.Resources[0].Path != "path/a.mesh" || parsed.Resources[1].Path != "path/a.mesh" {
		t.Fatalf("Resources[0:2] = %+v, want both path/a.mesh", parsed.Resources[:2])
	}
	if parsed.Resources[0].StringOffset != parsed.Resources[1].StringOffset {
		t.Fatalf("duplicate paths got different heap offsets: %d vs %d",
			parsed.Resources[0].StringOffset, parsed.Resources[1].StringOffset)
	}
	if parsed.Resources[2].Path != "other.mesh" {
		t.Fatalf("Resources[2].Path = %q, want other.mesh", parsed.Resources[2].Path)
	}
	if parsed.Resources[2].StringOffset == parsed.Resources[0].StringOffset {
		t.Fatal("distinct strings collapsed onto the same heap offset")
	}

	bytes2, err := codec.Rebuild(parsed, RebuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if string(bytes1) != string(bytes2) {
		t.Fatal("rebuild(parse(rebuild(c))) produced different bytes than rebuild(c)")
	}
}

func TestRoundTripPFB16InlineResources(t *testing.T) {
	registry := loadTestRegistry(t, `{
		"1": {"name": "test.Leaf", "crc": 0, "fields": []}
	}`)

	graph := NewInstanceGraph()
	graph.AppendInstance(InstanceInfo{TypeID: 1})

	c := &Container{
		Variant:  VariantPFB16,
		Registry: registry,
		Graph:    graph,
		Pfb16Resources: []Pfb16ResourceInfo{
			{Path: "a"},
			{Path: "bb"},
		},
		RszHeader: RszHeaderInfo{Version: 3},
	}

	codec := PFB16Codec{}
	bytes1, err := codec.Rebuild(c, RebuildOptions{})
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := codec.Parse(bytes1, registry)
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.Pfb16Resources) != 2 || parsed.Pfb16Resources[0].Path != "a" || parsed.Pfb16Resources[1].Path != "bb" {
		t.Fatalf("Pfb16Resources = %+v, want [a bb]", parsed.Pfb16Resources)
	}

	bytes2, err := codec.Rebuild(parsed, RebuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if string(bytes1) != string(bytes2) {
		t.Fatal("rebuild(parse(rebuild(c))) produced different bytes than rebuild(c)")
	}
}

// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import (
	"os"
	"path/filepath"
	"testing"
)

// writeRegistry writes a minimal Type Registry JSON fixture to a temp file
// and loads it, mirroring how the CLI loads a real registry from disk.
func writeRegistry(t *testing.T, raw string) *TypeRegistry {
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

func TestCodecScalarRoundTrip(t *testing.T) {
	registry := writeRegistry(t, `{
		"1": {
			"name": "test.Simple",
			"crc": 0,
			"fields": [
				{"name": "flag", "type": "bool", "size": 1, "align": 1},
				{"name": "value", "type": "u32", "size": 4, "align": 4},
				{"name": "label", "type": "string", "size": 0, "align": 4}
			]
		}
	}`)

	ti, _, ok := registry.FindByName("test.Simple")
	if !ok {
		t.Fatal("registry missing test.Simple")
	}

	graph := NewInstanceGraph()
	idx := graph.AppendInstance(InstanceInfo{TypeID: 1})
	graph.Parsed[idx] = map[string]FieldValue{
		"flag":  BoolValue{Value: true},
		"value": IntValue{K: KindU32, Value: 0xCAFEBABE},
		"label": StringValue{Value: "hi", HadTerminator: true},
	}

	codec := NewObjectStreamCodec(registry)
	w := NewWriteCursor()
	if err := codec.EncodeInstance(w, 0, ti.Fields, graph.Parsed[idx]); err != nil {
		t.Fatal(err)
	}

	decodeGraph := NewInstanceGraph()
	decodeGraph.AppendInstance(InstanceInfo{TypeID: 1})
	r := NewCursor(w.Bytes())
	if _, err := codec.DecodeInstance(r, 0, 0, 1, ti.Fields, decodeGraph, nil); err != nil {
		t.Fatal(err)
	}

	got := decodeGraph.Parsed[1]
	if b, ok := got["flag"].(BoolValue); !ok || !b.Value {
		t.Fatalf("flag = %+v, want true", got["flag"])
	}
	if v, ok := got["value"].(IntValue); !ok || v.Value != 0xCAFEBABE {
		t.Fatalf("value = %+v, want 0xCAFEBABE", got["value"])
	}
	if s, ok := got["label"].(StringValue); !ok || s.Value != "hi" {
		t.Fatalf("label = %+v, want %q", got["label"], "hi")
	}
}

func TestCodecAlignmentSpillover(t *testing.T) {
	// A f32 followed by a double: at data origin absolute offset 8, the f32
	// ends at 12 and the double's 8-byte alignment must insert 4 bytes of
	// padding.
	registry := writeRegistry(t, `{
		"1": {
			"name": "test.Aligned",
			"crc": 0,
			"fields": [
				{"name": "a", "type": "f32", "size": 4, "align": 4},
				{"name": "b", "type": "f64", "size": 8, "align": 8}
			]
		}
	}`)
	ti, _, _ := registry.FindByName("test.Aligned")

	graph := NewInstanceGraph()
	idx := graph.AppendInstance(InstanceInfo{TypeID: 1})
	graph.Parsed[idx] = map[string]FieldValue{
		"a": FloatValue{K: KindF32, Value: 1},
		"b": FloatValue{K: KindF64, Value: 2},
	}

	codec := NewObjectStreamCodec(registry)
	w := NewWriteCursor()
	w.WriteBytes(make([]byte, 8)) // push data origin to absolute offset 8
	if err := codec.EncodeInstance(w, 0, ti.Fields, graph.Parsed[idx]); err != nil {
		t.Fatal(err)
	}

	// a at offset 8..12, then 4 bytes padding to reach offset 16 (next
	// multiple of 8), then b at 16..24.
	want := 8 + 4 + 4 + 8
	if w.Tell() != want {
		t.Fatalf("encoded length = %d, want %d (padding not inserted)", w.Tell(), want)
	}

	decodeGraph := NewInstanceGraph()
	decodeGraph.AppendInstance(InstanceInfo{TypeID: 1})
	r := NewCursor(w.Bytes())
	if err := r.Seek(8); err != nil {
		t.Fatal(err)
	}
	if _, err := codec.DecodeInstance(r, 8, 0, 1, ti.Fields, decodeGraph, nil); err != nil {
		t.Fatal(err)
	}
	b := decodeGraph.Parsed[1]["b"].(FloatValue)
	if b.Value != 2 {
		t.Fatalf("b = %v, want 2 (padding not skipped on decode)", b.Value)
	}
}

func TestCodecMaybeObjectArrayDiscrimination(t *testing.T) {
	registry := writeRegistry(t, `{
		"1": {
			"name": "test.Holder",
			"crc": 0,
			"fields": [
				{"name": "refs", "type": "maybe_object", "size": 4, "align": 4, "array": true}
			]
		}
	}`)
	ti, _, _ := registry.FindByName("test.Holder")

	graph := NewInstanceGraph()
	for i := 0; i < 6; i++ {
		graph.AppendInstance(InstanceInfo{TypeID: 1})
	}

	w := NewWriteCursor()
	w.WriteU32(3) // count
	w.WriteU32(2)
	w.WriteU32(3)
	w.WriteU32(4)

	codec := NewObjectStreamCodec(registry)
	r := NewCursor(w.Bytes())
	if _, err := codec.DecodeInstance(r, 0, 0, 5, ti.Fields, graph, nil); err != nil {
		t.Fatal(err)
	}

	arr := graph.Parsed[5]["refs"].(ArrayValue)
	if arr.ElementKind != KindObjectRef {
		t.Fatalf("ElementKind = %v, want ObjectRef", arr.ElementKind)
	}
	if len(arr.Elements) != 3 {
		t.Fatalf("len(Elements) = %d, want 3", len(arr.Elements))
	}

	out := NewWriteCursor()
	if err := codec.EncodeInstance(out, 0, ti.Fields, graph.Parsed[5]); err != nil {
		t.Fatal(err)
	}
	if string(out.Bytes()) != string(w.Bytes()) {
		t.Fatalf("re-encoded bytes differ from input:\n got %v\nwant %v", out.Bytes(), w.Bytes())
	}
}

func TestCodecArrayCountPrefixAlwaysFourAligned(t *testing.T) {
	// The count prefix must land on a 4-aligned offset even when the
	// element type declares a wider alignment: the prefix itself is never
	// padded out to the field's own alignment.
	registry := writeRegistry(t, `{
		"1": {
			"name": "test.U64Array",
			"crc": 0,
			"fields": [
				{"name": "values", "type": "u64", "size": 8, "align": 8, "array": true}
			]
		}
	}`)
	ti, _, _ := registry.FindByName("test.U64Array")

	graph := NewInstanceGraph()
	idx := graph.AppendInstance(InstanceInfo{TypeID: 1})
	graph.Parsed[idx] = map[string]FieldValue{
		"values": ArrayValue{
			ElementKind: KindU64,
			Elements: []FieldValue{
				IntValue{K: KindU64, Value: 1},
				IntValue{K: KindU64, Value: 2},
			},
		},
	}

	codec := NewObjectStreamCodec(registry)
	w := NewWriteCursor()
	w.WriteBytes(make([]byte, 4)) // push the field's start to absolute offset 4
	if err := codec.EncodeInstance(w, 0, ti.Fields, graph.Parsed[idx]); err != nil {
		t.Fatal(err)
	}

	// count at 4..8 (no pre-padding since 4 is already 4-aligned), then two
	// u64s at 8..24 (8 is already 8-aligned, so no element padding). Padding
	// the count out to 8 would instead give 32.
	want := 4 + 4 + 8 + 8
	if w.Tell() != want {
		t.Fatalf("encoded length = %d, want %d (count prefix padded to element alignment)", w.Tell(), want)
	}

	decodeGraph := NewInstanceGraph()
	decodeGraph.AppendInstance(InstanceInfo{TypeID: 1})
	r := NewCursor(w.Bytes())
	if err := r.Seek(4); err != nil {
		t.Fatal(err)
	}
	if _, err := codec.DecodeInstance(r, 4, 0, 1, ti.Fields, decodeGraph, nil); err != nil {
		t.Fatal(err)
	}
	arr := decodeGraph.Parsed[1]["values"].(ArrayValue)
	if len(arr.Elements) != 2 {
		t.Fatalf("len(Elements) = %d, want 2", len(arr.Elements))
	}
	if v := arr.Elements[1].(IntValue).Value; v != 2 {
		t.Fatalf("Elements[1] = %v, want 2", v)
	}
}

func TestCodecStructArrayAlignsOncePerArray(t *testing.T) {
	// A struct array aligns to the field's declared alignment once, before
	// its first element, not between every element: when the element size
	// doesn't evenly divide the alignment, re-aligning per element would
	// insert padding the source format never has.
	registry := writeRegistry(t, `{
		"1": {
			"name": "test.Elem",
			"crc": 0,
			"fields": [
				{"name": "v", "type": "u32", "size": 4, "align": 4}
			]
		},
		"2": {
			"name": "test.Holder2",
			"crc": 0,
			"fields": [
				{"name": "items", "type": "struct", "size": 4, "align": 8, "array": true, "original_type": "test.Elem"}
			]
		}
	}`)
	ti, _, _ := registry.FindByName("test.Holder2")

	graph := NewInstanceGraph()
	idx := graph.AppendInstance(InstanceInfo{TypeID: 2})
	elem := func(v uint32) FieldValue {
		return StructValue{
			Fields:       map[string]FieldValue{"v": IntValue{K: KindU32, Value: int64(v)}},
			OriginalType: "test.Elem",
		}
	}
	graph.Parsed[idx] = map[string]FieldValue{
		"items": ArrayValue{
			ElementKind:  KindStruct,
			Elements:     []FieldValue{elem(1), elem(2), elem(3)},
			OriginalType: "test.Elem",
		},
	}

	codec := NewObjectStreamCodec(registry)
	w := NewWriteCursor()
	if err := codec.EncodeInstance(w, 0, ti.Fields, graph.Parsed[idx]); err != nil {
		t.Fatal(err)
	}

	// count (4 bytes, already 4-aligned) + align to 8 once (4 bytes) + three
	// 4-byte elements back to back with no inter-element padding.
	want := 4 + 4 + 4*3
	if w.Tell() != want {
		t.Fatalf("encoded length = %d, want %d (re-aligned between struct-array elements)", w.Tell(), want)
	}

	decodeGraph := NewInstanceGraph()
	decodeGraph.AppendInstance(InstanceInfo{TypeID: 2})
	r := NewCursor(w.Bytes())
	if _, err := codec.DecodeInstance(r, 0, 0, 1, ti.Fields, decodeGraph, nil); err != nil {
		t.Fatal(err)
	}
	arr := decodeGraph.Parsed[1]["items"].(ArrayValue)
	if len(arr.Elements) != 3 {
		t.Fatalf("len(Elements) = %d, want 3", len(arr.Elements))
	}
	for i, want := range []int64{1, 2, 3} {
		got := arr.Elements[i].(StructValue).Fields["v"].(IntValue).Value
		if got != want {
			t.Fatalf("Elements[%d].v = %v, want %v", i, got, want)
		}
	}

	out := NewWriteCursor()
	if err := codec.EncodeInstance(out, 0, ti.Fields, decodeGraph.Parsed[1]); err != nil {
		t.Fatal(err)
	}
	if string(out.Bytes()) != string(w.Bytes()) {
		t.Fatal("re-encoded bytes differ from original encoding")
	}
}

// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import "fmt"

// FieldKind discriminates the closed set of FieldValue variants the Object
// Stream can hold. It doubles as the registry type-tag once normalized by
// fieldKindForTag.
type FieldKind int

// The full set of FieldValue variants, per spec.md §3.
const (
	KindBool FieldKind = iota
	KindS8
	KindU8
	KindS16
	KindU16
	KindS32
	KindU32
	KindS64
	KindU64
	KindF32
	KindF64

	// Fixed-width float-tuple compounds: geometry and small vectors share
	// one representation (FloatVecValue) because on the wire they are all
	// "N little-endian float32s, including any engine padding floats",
	// and decode/encode never needs to interpret the padding — only
	// preserve it.
	KindVec2
	KindFloat2
	KindFloat3
	KindFloat4
	KindVec3
	KindVec3Color
	KindVec4
	KindQuaternion
	KindMat4
	KindOBB
	KindAABB
	KindCapsule
	KindSphere
	KindCylinder
	KindCone
	KindLineSegment
	KindPoint
	KindSize
	KindRect
	KindArea
	KindRange

	KindPosition // double3

	KindInt2
	KindInt3
	KindInt4
	KindRangeI

	KindUint2
	KindUint3

	KindColor // rgba8

	KindString
	KindRuntimeType
	KindResource

	KindGuid
	KindGameObjectRef

	KindObjectRef
	KindUserDataRef
	KindMaybeObject // resolved to ObjectRef or RawBytes at decode time

	KindStruct
	KindArray
	KindRawBytes
)

// FieldValue is the closed sum type every decoded field value satisfies.
// Dispatch is by Kind(), never by a virtual table: see spec.md §9.
type FieldValue interface {
	Kind() FieldKind
}

// BoolValue holds a single byte boolean.
type BoolValue struct{ Value bool }

func (BoolValue) Kind() FieldKind { return KindBool }

// IntValue holds any of the signed/unsigned integer scalar kinds; Kind
// says which width/signedness the raw bytes represent.
type IntValue struct {
	K     FieldKind
	Value int64
}

func (v IntValue) Kind() FieldKind { return v.K }

// FloatValue holds an F32 or F64 scalar.
type FloatValue struct {
	K     FieldKind
	Value float64
}

func (v FloatValue) Kind() FieldKind { return v.K }

// FloatVecValue holds every fixed-width float32-tuple compound (vectors,
// geometry primitives, matrices). Values is exactly size_bytes/4 float32
// lexemes in on-disk order, padding floats included verbatim so re-encode
// reproduces the exact byte layout without the codec needing to know each
// shape's internal padding convention.
type FloatVecValue struct {
	K      FieldKind
	Values []float32
}

func (v FloatVecValue) Kind() FieldKind { return v.K }

// DoubleVecValue holds the Position (double3) compound.
type DoubleVecValue struct {
	Values [3]float64
}

func (DoubleVecValue) Kind() FieldKind { return KindPosition }

// IntVecValue holds Int2/Int3/Int4/RangeI.
type IntVecValue struct {
	K      FieldKind
	Values []int32
}

func (v IntVecValue) Kind() FieldKind { return v.K }

// UIntVecValue holds Uint2/Uint3.
type UIntVecValue struct {
	K      FieldKind
	Values []uint32
}

func (v UIntVecValue) Kind() FieldKind { return v.K }

// ColorValue holds a packed rgba8 color.
type ColorValue struct{ R, G, B, A uint8 }

func (ColorValue) Kind() FieldKind { return KindColor }

// StringValue holds a String field: UTF-16LE, length-prefixed by a u32
// code-unit count that includes the terminator when one was present.
type StringValue struct {
	Value         string
	HadTerminator bool
}

func (StringValue) Kind() FieldKind { return KindString }

// RuntimeTypeValue holds a RuntimeType field: UTF-8, length-prefixed by a
// u32 count that includes the terminator when present.
type RuntimeTypeValue struct {
	Value         string
	HadTerminator bool
}

func (RuntimeTypeValue) Kind() FieldKind { return KindRuntimeType }

// ResourceValue holds a Resource field: UTF-16LE, terminated, like String.
type ResourceValue struct {
	Value string
}

func (ResourceValue) Kind() FieldKind { return KindResource }

// GuidValue holds a 16-byte GUID plus its canonical string form. Both are
// kept so re-encoding round-trips exactly even when only the string was
// inspected and never mutated.
type GuidValue struct {
	Raw        [16]byte
	Canonical  string
}

func (GuidValue) Kind() FieldKind { return KindGuid }

// GameObjectRefValue is byte-identical to GuidValue on the wire but refers
// to a GameObject's guid rather than an arbitrary GUID field.
type GameObjectRefValue struct {
	Raw       [16]byte
	Canonical string
}

func (GameObjectRefValue) Kind() FieldKind { return KindGameObjectRef }

// ObjectRefValue holds a resolved backward reference to another instance.
type ObjectRefValue struct {
	Index uint32
}

func (ObjectRefValue) Kind() FieldKind { return KindObjectRef }

// UserDataRefValue holds a resolved backward reference into the userdata
// table, plus the string the userdata table resolved it to.
type UserDataRefValue struct {
	Index    uint32
	Resolved string
}

func (UserDataRefValue) Kind() FieldKind { return KindUserDataRef }

// RawBytesValue is the fallback: an uninterpreted byte window, used for
// unknown type tags and for the scalar branch of a MaybeObject field.
type RawBytesValue struct {
	Data         []byte
	DeclaredSize int
}

func (RawBytesValue) Kind() FieldKind { return KindRawBytes }

// StructValue holds one nested instance's decoded field map, keyed by
// field name, for a Struct-typed field.
type StructValue struct {
	Fields       map[string]FieldValue
	OriginalType string
}

func (StructValue) Kind() FieldKind { return KindStruct }

// ArrayValue holds a length-prefixed array field. ElementKind is the kind
// every element actually decoded as (for MaybeObject arrays, this is
// either KindObjectRef or KindRawBytes for every element: spec.md §4.4
// forbids mixed arrays).
type ArrayValue struct {
	ElementKind  FieldKind
	Elements     []FieldValue
	OriginalType string
}

func (ArrayValue) Kind() FieldKind { return KindArray }

// fieldKindForTag maps a registry type-tag string to a FieldKind, or
// reports false for tags the codec does not recognize (UnknownFieldType,
// spec.md §7 — the caller falls back to RawBytes of the declared size).
func fieldKindForTag(tag string) (FieldKind, bool) {
	k, ok := tagToKind[tag]
	return k, ok
}

var tagToKind = map[string]FieldKind{
	"bool":          KindBool,
	"s8":            KindS8,
	"u8":            KindU8,
	"s16":           KindS16,
	"u16":           KindU16,
	"s32":           KindS32,
	"u32":           KindU32,
	"s64":           KindS64,
	"u64":           KindU64,
	"f32":           KindF32,
	"f64":           KindF64,
	"vec2":          KindVec2,
	"float2":        KindFloat2,
	"float3":        KindFloat3,
	"float4":        KindFloat4,
	"vec3":          KindVec3,
	"vec3_color":    KindVec3Color,
	"vec4":          KindVec4,
	"quaternion":    KindQuaternion,
	"mat4":          KindMat4,
	"obb":           KindOBB,
	"aabb":          KindAABB,
	"capsule":       KindCapsule,
	"sphere":        KindSphere,
	"cylinder":      KindCylinder,
	"cone":          KindCone,
	"line_segment":  KindLineSegment,
	"point":         KindPoint,
	"size":          KindSize,
	"rect":          KindRect,
	"area":          KindArea,
	"range":         KindRange,
	"position":      KindPosition,
	"int2":          KindInt2,
	"int3":          KindInt3,
	"int4":          KindInt4,
	"range_i":       KindRangeI,
	"uint2":         KindUint2,
	"uint3":         KindUint3,
	"color":         KindColor,
	"string":        KindString,
	"runtime_type":  KindRuntimeType,
	"resource":      KindResource,
	"guid":          KindGuid,
	"gameobject_ref": KindGameObjectRef,
	"object":        KindObjectRef,
	"user_data":     KindUserDataRef,
	"maybe_object":  KindMaybeObject,
	"struct":        KindStruct,
}

// floatVecLen returns how many float32 lexemes a fixed-width compound of
// this kind occupies given its registry-declared byte size.
func floatVecLen(size int) int {
	if size <= 0 {
		return 0
	}
	return size / 4
}

func (k FieldKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

var kindNames = map[FieldKind]string{
	KindBool: "bool", KindS8: "s8", KindU8: "u8", KindS16: "s16", KindU16: "u16",
	KindS32: "s32", KindU32: "u32", KindS64: "s64", KindU64: "u64",
	KindF32: "f32", KindF64: "f64",
	KindVec2: "vec2", KindFloat2: "float2", KindFloat3: "float3", KindFloat4: "float4",
	KindVec3: "vec3", KindVec3Color: "vec3_color", KindVec4: "vec4",
	KindQuaternion: "quaternion", KindMat4: "mat4", KindOBB: "obb", KindAABB: "aabb",
	KindCapsule: "capsule", KindSphere: "sphere", KindCylinder: "cylinder", KindCone: "cone",
	KindLineSegment: "line_segment", KindPoint: "point", KindSize: "size", KindRect: "rect",
	KindArea: "area", KindRange: "range", KindPosition: "position",
	KindInt2: "int2", KindInt3: "int3", KindInt4: "int4", KindRangeI: "range_i",
	KindUint2: "uint2", KindUint3: "uint3", KindColor: "color",
	KindString: "string", KindRuntimeType: "runtime_type", KindResource: "resource",
	KindGuid: "guid", KindGameObjectRef: "gameobject_ref",
	KindObjectRef: "object", KindUserDataRef: "user_data", KindMaybeObject: "maybe_object",
	KindStruct: "struct", KindArray: "array", KindRawBytes: "raw_bytes",
}

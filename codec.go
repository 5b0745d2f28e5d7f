// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

// ObjectStreamCodec decodes and encodes one instance's field sequence at a
// time, driven by a TypeRegistry field list and an alignment base (the
// absolute file offset, mod 16, of the Object Stream's data origin). It
// never performs I/O: it only ever touches the Cursor it is given.
type ObjectStreamCodec struct {
	Registry *TypeRegistry
}

// NewObjectStreamCodec returns a codec bound to registry, used to resolve
// named struct field types (FieldDef.OriginalType).
func NewObjectStreamCodec(registry *TypeRegistry) *ObjectStreamCodec {
	return &ObjectStreamCodec{Registry: registry}
}

// decodeCtx threads the per-instance state the field loop needs: which
// instance we're decoding (for backward-reference validity), the graph to
// register hierarchy edges on, and the resolved userdata strings.
type decodeCtx struct {
	cur       *Cursor
	alignBase int
	index     int
	graph     *InstanceGraph
	userdata  map[int]string
	warnings  *[]string
}

// DecodeInstance decodes one instance's fields starting at pos, storing the
// result in graph.Parsed[index] and registering any backward-reference
// hierarchy edges it discovers. It returns the cursor position just past
// the last field.
func (c *ObjectStreamCodec) DecodeInstance(
	cur *Cursor, pos int, alignBase int, index int,
	fields []*FieldDef, graph *InstanceGraph, userdata map[int]string,
) (int, error) {
	ctx := &decodeCtx{cur: cur, alignBase: alignBase, index: index, graph: graph, userdata: userdata, warnings: &graph.Warnings}

	if err := cur.Seek(pos); err != nil {
		return 0, err
	}

	values := graph.Parsed[index]
	if values == nil {
		values = make(map[string]FieldValue, len(fields))
		graph.Parsed[index] = values
	}

	for _, fd := range fields {
		c.ensureDispatch(fd)

		if fd.IsArray {
			fv, err := c.decodeArrayField(ctx, fd)
			if err != nil {
				return 0, err
			}
			values[fd.Name] = fv
			continue
		}

		fv, err := c.decodeScalarField(ctx, fd)
		if err != nil {
			return 0, err
		}
		values[fd.Name] = fv
	}

	return cur.Tell(), nil
}

// EncodeInstance writes one instance's fields, in declared order, to cur.
func (c *ObjectStreamCodec) EncodeInstance(cur *Cursor, alignBase int, fields []*FieldDef, values map[string]FieldValue) error {
	for _, fd := range fields {
		c.ensureDispatch(fd)
		fv, ok := values[fd.Name]
		if !ok {
			// Field never decoded (e.g. unknown type carried forward):
			// nothing to write, the instance contributed no bytes here.
			continue
		}
		if fd.IsArray {
			if err := c.encodeArrayField(cur, alignBase, fd, fv); err != nil {
				return err
			}
			continue
		}
		if err := c.encodeScalarField(cur, alignBase, fd, fv); err != nil {
			return err
		}
	}
	return nil
}

// fieldDispatch caches the resolved FieldKind (and, for Struct fields, the
// registry-resolved nested TypeInfo) on a FieldDef so repeated decodes of
// the same type don't redo the tag→kind lookup or registry name lookup.
// Grounded on rsz_file.py's _prepare_field_definitions / _parse_cache.
type fieldDispatch struct {
	kind       FieldKind
	unknown    bool
	structType *TypeInfo
}

func (c *ObjectStreamCodec) ensureDispatch(fd *FieldDef) {
	if fd.dispatch != nil {
		return
	}
	d := &fieldDispatch{}
	k, ok := fieldKindForTag(fd.Type)
	if !ok {
		d.unknown = true
		d.kind = KindRawBytes
	} else {
		d.kind = k
	}
	if d.kind == KindStruct && c.Registry != nil && fd.OriginalType != "" {
		if ti, _, ok := c.Registry.FindByName(fd.OriginalType); ok {
			d.structType = ti
		}
	}
	fd.dispatch = d
}

// decodeScalarField decodes a single non-array field value.
func (c *ObjectStreamCodec) decodeScalarField(ctx *decodeCtx, fd *FieldDef) (FieldValue, error) {
	cur := ctx.cur
	kind := fd.dispatch.kind

	if fd.dispatch.unknown {
		cur.AlignBase(fd.Align, ctx.alignBase)
		data, err := cur.ReadBytes(fd.Size)
		if err != nil {
			return nil, err
		}
		return RawBytesValue{Data: data, DeclaredSize: fd.Size}, nil
	}

	switch kind {
	case KindBool:
		cur.AlignBase(fd.Align, ctx.alignBase)
		v, err := cur.ReadBool()
		return BoolValue{Value: v}, err

	case KindS8:
		cur.AlignBase(fd.Align, ctx.alignBase)
		v, err := cur.ReadI8()
		return IntValue{K: kind, Value: int64(v)}, err
	case KindU8:
		cur.AlignBase(fd.Align, ctx.alignBase)
		v, err := cur.ReadU8()
		return IntValue{K: kind, Value: int64(v)}, err
	case KindS16:
		cur.AlignBase(fd.Align, ctx.alignBase)
		v, err := cur.ReadI16()
		return IntValue{K: kind, Value: int64(v)}, err
	case KindU16:
		cur.AlignBase(fd.Align, ctx.alignBase)
		v, err := cur.ReadU16()
		return IntValue{K: kind, Value: int64(v)}, err
	case KindS32:
		cur.AlignBase(fd.Align, ctx.alignBase)
		v, err := cur.ReadI32()
		return IntValue{K: kind, Value: int64(v)}, err
	case KindU32:
		cur.AlignBase(fd.Align, ctx.alignBase)
		v, err := cur.ReadU32()
		return IntValue{K: kind, Value: int64(v)}, err
	case KindS64:
		cur.AlignBase(fd.Align, ctx.alignBase)
		v, err := cur.ReadI64()
		return IntValue{K: kind, Value: v}, err
	case KindU64:
		cur.AlignBase(fd.Align, ctx.alignBase)
		v, err := cur.ReadU64()
		return IntValue{K: kind, Value: int64(v)}, err

	case KindF32:
		cur.AlignBase(fd.Align, ctx.alignBase)
		v, err := cur.ReadF32()
		return FloatValue{K: kind, Value: float64(v)}, err
	case KindF64:
		cur.AlignBase(fd.Align, ctx.alignBase)
		v, err := cur.ReadF64()
		return FloatValue{K: kind, Value: v}, err

	case KindPosition:
		cur.AlignBase(fd.Align, ctx.alignBase)
		var out DoubleVecValue
		for i := 0; i < 3; i++ {
			v, err := cur.ReadF64()
			if err != nil {
				return nil, err
			}
			out.Values[i] = v
		}
		return out, nil

	case KindInt2, KindInt3, KindInt4, KindRangeI:
		cur.AlignBase(fd.Align, ctx.alignBase)
		n := floatVecLen(fd.Size)
		vals := make([]int32, n)
		for i := 0; i < n; i++ {
			v, err := cur.ReadI32()
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return IntVecValue{K: kind, Values: vals}, nil

	case KindUint2, KindUint3:
		cur.AlignBase(fd.Align, ctx.alignBase)
		n := floatVecLen(fd.Size)
		vals := make([]uint32, n)
		for i := 0; i < n; i++ {
			v, err := cur.ReadU32()
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return UIntVecValue{K: kind, Values: vals}, nil

	case KindColor:
		cur.AlignBase(fd.Align, ctx.alignBase)
		b, err := cur.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		return ColorValue{R: b[0], G: b[1], B: b[2], A: b[3]}, nil

	case KindVec2, KindFloat2, KindFloat3, KindFloat4, KindVec3, KindVec3Color, KindVec4,
		KindQuaternion, KindMat4, KindOBB, KindAABB, KindCapsule, KindSphere, KindCylinder,
		KindCone, KindLineSegment, KindPoint, KindSize, KindRect, KindArea, KindRange:
		cur.AlignBase(fd.Align, ctx.alignBase)
		n := floatVecLen(fd.Size)
		vals := make([]float32, n)
		for i := 0; i < n; i++ {
			v, err := cur.ReadF32()
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return FloatVecValue{K: kind, Values: vals}, nil

	case KindGuid, KindGameObjectRef:
		cur.AlignBase(fd.Align, ctx.alignBase)
		data, err := cur.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		var raw [16]byte
		copy(raw[:], data)
		canon := guidRawToCanonical(raw)
		if kind == KindGuid {
			return GuidValue{Raw: raw, Canonical: canon}, nil
		}
		return GameObjectRefValue{Raw: raw, Canonical: canon}, nil

	case KindString:
		return c.decodeWString(cur, fd.Align, ctx.alignBase, false)
	case KindResource:
		v, err := c.decodeWString(cur, fd.Align, ctx.alignBase, true)
		if err != nil {
			return nil, err
		}
		return ResourceValue{Value: v.(StringValue).Value}, nil
	case KindRuntimeType:
		return c.decodeRuntimeType(cur, fd.Align, ctx.alignBase)

	case KindObjectRef, KindMaybeObject:
		cur.AlignBase(fd.Align, ctx.alignBase)
		v, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		if ctx.graph.IsValidReference(int(v), ctx.index) {
			ctx.graph.SetParent(int(v), ctx.index)
			return ObjectRefValue{Index: v}, nil
		}
		*ctx.warnings = append(*ctx.warnings, invalidReferenceWarning(fd.Name, int(v), ctx.index))
		return RawBytesValue{Data: u32LEBytes(v), DeclaredSize: 4}, nil

	case KindUserDataRef:
		cur.AlignBase(fd.Align, ctx.alignBase)
		v, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		resolved := ""
		if ctx.userdata != nil {
			resolved = ctx.userdata[int(v)]
		}
		if ctx.graph.IsValidReference(int(v), ctx.index) {
			ctx.graph.SetParent(int(v), ctx.index)
		}
		return UserDataRefValue{Index: v, Resolved: resolved}, nil

	case KindStruct:
		cur.AlignBase(fd.Align, ctx.alignBase)
		return c.decodeStructElement(ctx, fd)

	default:
		cur.AlignBase(fd.Align, ctx.alignBase)
		data, err := cur.ReadBytes(fd.Size)
		if err != nil {
			return nil, err
		}
		return RawBytesValue{Data: data, DeclaredSize: fd.Size}, nil
	}
}

// decodeStructElement decodes one Struct-kind field's nested instance
// without performing the field's own alignment. A lone struct field aligns
// itself in decodeScalarField before calling this; a struct array aligns
// once before its whole element loop and calls this directly per element
// (see decodeArrayField).
func (c *ObjectStreamCodec) decodeStructElement(ctx *decodeCtx, fd *FieldDef) (FieldValue, error) {
	cur := ctx.cur
	if fd.dispatch.structType == nil {
		data, err := cur.ReadBytes(fd.Size)
		if err != nil {
			return nil, err
		}
		return RawBytesValue{Data: data, DeclaredSize: fd.Size}, nil
	}
	// A nested Struct field decodes as its own instance, sharing the
	// enclosing graph's classification sets and reference validity
	// rules but landing in a scratch slot so its index never collides
	// with a top-level instance index.
	nested := map[string]FieldValue{}
	tmpGraph := &InstanceGraph{
		Instances:           ctx.graph.Instances,
		Parsed:              append(append([]map[string]FieldValue{}, ctx.graph.Parsed...), nested),
		Hierarchy:           append(append([]HierarchyEdge{}, ctx.graph.Hierarchy...), HierarchyEdge{}),
		GameObjectInstances: ctx.graph.GameObjectInstances,
		FolderInstances:     ctx.graph.FolderInstances,
		UserDataInstances:   ctx.graph.UserDataInstances,
		Warnings:            ctx.graph.Warnings,
	}
	nestedIdx := len(tmpGraph.Parsed) - 1
	if _, err := c.DecodeInstance(cur, cur.Tell(), ctx.alignBase, nestedIdx, fd.dispatch.structType.Fields, tmpGraph, ctx.userdata); err != nil {
		return nil, err
	}
	ctx.graph.Warnings = tmpGraph.Warnings
	return StructValue{Fields: nested, OriginalType: fd.OriginalType}, nil
}

func (c *ObjectStreamCodec) decodeWString(cur *Cursor, align, alignBase int, resource bool) (FieldValue, error) {
	cur.AlignBase(align, alignBase)
	count, err := cur.ReadU32()
	if err != nil {
		return nil, err
	}
	raw, err := cur.ReadBytes(int(count) * 2)
	if err != nil {
		return nil, err
	}
	hadTerm := len(raw) >= 2 && raw[len(raw)-2] == 0 && raw[len(raw)-1] == 0
	payload := raw
	if hadTerm {
		payload = raw[:len(raw)-2]
	}
	s, err := utf16LEDecoder.Bytes(payload)
	if err != nil {
		s = nil
	}
	return StringValue{Value: string(s), HadTerminator: hadTerm}, nil
}

func (c *ObjectStreamCodec) decodeRuntimeType(cur *Cursor, align, alignBase int) (FieldValue, error) {
	cur.AlignBase(align, alignBase)
	count, err := cur.ReadU32()
	if err != nil {
		return nil, err
	}
	raw, err := cur.ReadBytes(int(count))
	if err != nil {
		return nil, err
	}
	// The source always appends a two-byte null pair after the UTF-8
	// payload, independent of whatever the payload itself contains.
	term, err := cur.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	hadTerm := term[0] == 0 && term[1] == 0
	return RuntimeTypeValue{Value: string(raw), HadTerminator: hadTerm}, nil
}

func u32LEBytes(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// decodeArrayField decodes a length-prefixed array field: a u32 element
// count followed by that many elements, each laid out the way the same
// FieldDef would decode as a scalar. MaybeObject arrays are classified as a
// whole (spec.md §4.4: a mixed array is never produced) by the validity of
// their first element.
func (c *ObjectStreamCodec) decodeArrayField(ctx *decodeCtx, fd *FieldDef) (FieldValue, error) {
	cur := ctx.cur
	// The count prefix is always 4-aligned, regardless of the field's own
	// declared alignment (rsz_file.py:2254-2255 always aligns to 4 here).
	cur.AlignBase(4, ctx.alignBase)
	count, err := cur.ReadU32()
	if err != nil {
		return nil, err
	}

	if fd.dispatch.kind == KindMaybeObject {
		return c.decodeMaybeObjectArray(ctx, fd, int(count))
	}

	if fd.dispatch.kind == KindStruct {
		// field_align applies once, before the first element, not between
		// elements (rsz_file.py:2259-2266): a struct's own trailing fields
		// already land the cursor wherever the next element starts.
		cur.AlignBase(fd.Align, ctx.alignBase)
		elems := make([]FieldValue, 0, count)
		for i := 0; i < int(count); i++ {
			fv, err := c.decodeStructElement(ctx, fd)
			if err != nil {
				return nil, err
			}
			elems = append(elems, fv)
		}
		return ArrayValue{ElementKind: fd.dispatch.kind, Elements: elems, OriginalType: fd.OriginalType}, nil
	}

	elems := make([]FieldValue, 0, count)
	for i := 0; i < int(count); i++ {
		fv, err := c.decodeScalarField(ctx, fd)
		if err != nil {
			return nil, err
		}
		elems = append(elems, fv)
	}
	return ArrayValue{ElementKind: fd.dispatch.kind, Elements: elems, OriginalType: fd.OriginalType}, nil
}

// decodeMaybeObjectArray classifies the whole array as object references or
// raw element bytes by peeking at the first element without consuming it,
// then decodes every element under that single classification.
func (c *ObjectStreamCodec) decodeMaybeObjectArray(ctx *decodeCtx, fd *FieldDef, count int) (FieldValue, error) {
	cur := ctx.cur
	if count == 0 {
		return ArrayValue{ElementKind: KindObjectRef, OriginalType: fd.OriginalType}, nil
	}

	peekPos := cur.Tell()
	first, err := cur.ReadU32()
	if err != nil {
		return nil, err
	}
	asRef := ctx.graph.IsValidReference(int(first), ctx.index)
	if err := cur.Seek(peekPos); err != nil {
		return nil, err
	}

	elemSize := fd.Size
	if elemSize <= 0 {
		elemSize = 4
	}

	elems := make([]FieldValue, 0, count)
	for i := 0; i < count; i++ {
		cur.AlignBase(fd.Align, ctx.alignBase)
		if asRef {
			v, err := cur.ReadU32()
			if err != nil {
				return nil, err
			}
			ctx.graph.SetParent(int(v), ctx.index)
			elems = append(elems, ObjectRefValue{Index: v})
			continue
		}
		data, err := cur.ReadBytes(elemSize)
		if err != nil {
			return nil, err
		}
		elems = append(elems, RawBytesValue{Data: data, DeclaredSize: elemSize})
	}

	kind := KindRawBytes
	if asRef {
		kind = KindObjectRef
	}
	return ArrayValue{ElementKind: kind, Elements: elems, OriginalType: fd.OriginalType}, nil
}

// encodeScalarField writes a single FieldValue, dispatching on its concrete
// Go type (not on the FieldDef's declared tag, so a MaybeObject field whose
// array was classified as either ObjectRef or RawBytes encodes correctly
// through the same path as any other field of that value type).
func (c *ObjectStreamCodec) encodeScalarField(cur *Cursor, alignBase int, fd *FieldDef, fv FieldValue) error {
	switch v := fv.(type) {
	case BoolValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		cur.WriteBool(v.Value)

	case IntValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		switch v.K {
		case KindS8:
			cur.WriteI8(int8(v.Value))
		case KindU8:
			cur.WriteU8(uint8(v.Value))
		case KindS16:
			cur.WriteI16(int16(v.Value))
		case KindU16:
			cur.WriteU16(uint16(v.Value))
		case KindS32:
			cur.WriteI32(int32(v.Value))
		case KindU32:
			cur.WriteU32(uint32(v.Value))
		case KindS64:
			cur.WriteI64(v.Value)
		case KindU64:
			cur.WriteU64(uint64(v.Value))
		default:
			return &TypeValueMismatchError{Field: fd.Name, Tag: fd.Type}
		}

	case FloatValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		if v.K == KindF64 {
			cur.WriteF64(v.Value)
		} else {
			cur.WriteF32(float32(v.Value))
		}

	case DoubleVecValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		for _, x := range v.Values {
			cur.WriteF64(x)
		}

	case IntVecValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		for _, x := range v.Values {
			cur.WriteI32(x)
		}

	case UIntVecValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		for _, x := range v.Values {
			cur.WriteU32(x)
		}

	case ColorValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		cur.WriteBytes([]byte{v.R, v.G, v.B, v.A})

	case FloatVecValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		for _, x := range v.Values {
			cur.WriteF32(x)
		}

	case GuidValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		cur.WriteBytes(v.Raw[:])

	case GameObjectRefValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		cur.WriteBytes(v.Raw[:])

	case StringValue:
		return c.encodeWString(cur, fd.Align, alignBase, v.Value, v.HadTerminator)

	case ResourceValue:
		return c.encodeWString(cur, fd.Align, alignBase, v.Value, true)

	case RuntimeTypeValue:
		return c.encodeRuntimeType(cur, fd.Align, alignBase, v)

	case ObjectRefValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		cur.WriteU32(v.Index)

	case UserDataRefValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		cur.WriteU32(v.Index)

	case RawBytesValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		cur.WriteBytes(v.Data)

	case StructValue:
		cur.AlignWriteBase(fd.Align, alignBase)
		return c.encodeStructElement(cur, alignBase, fd, v)

	default:
		return &TypeValueMismatchError{Field: fd.Name, Tag: fd.Type}
	}
	return nil
}

// encodeStructElement writes one Struct-kind field's value without
// performing the field's own alignment; mirrors decodeStructElement. A lone
// struct field aligns itself in encodeScalarField before calling this; a
// struct array aligns once before its whole element loop (see
// encodeArrayField).
func (c *ObjectStreamCodec) encodeStructElement(cur *Cursor, alignBase int, fd *FieldDef, fv FieldValue) error {
	switch v := fv.(type) {
	case StructValue:
		if fd.dispatch != nil && fd.dispatch.structType != nil {
			return c.EncodeInstance(cur, alignBase, fd.dispatch.structType.Fields, v.Fields)
		}
		return nil
	case RawBytesValue:
		cur.WriteBytes(v.Data)
		return nil
	default:
		return &TypeValueMismatchError{Field: fd.Name, Tag: fd.Type}
	}
}

// encodeWString writes a String/Resource field: a u32 code-unit count
// (including the terminator, when one was present at decode time) followed
// by the UTF-16LE payload and, if terminated, a trailing 0x0000.
func (c *ObjectStreamCodec) encodeWString(cur *Cursor, align, alignBase int, value string, hadTerminator bool) error {
	cur.AlignWriteBase(align, alignBase)
	enc, err := utf16LEEncoder.String(value)
	if err != nil {
		return err
	}
	units := len(enc) / 2
	if hadTerminator {
		units++
	}
	cur.WriteU32(uint32(units))
	cur.WriteBytes([]byte(enc))
	if hadTerminator {
		cur.WriteBytes([]byte{0, 0})
	}
	return nil
}

// encodeRuntimeType writes a RuntimeType field: a u32 byte count, the UTF-8
// payload exactly as decoded, then the fixed trailing null pair.
func (c *ObjectStreamCodec) encodeRuntimeType(cur *Cursor, align, alignBase int, v RuntimeTypeValue) error {
	cur.AlignWriteBase(align, alignBase)
	payload := []byte(v.Value)
	cur.WriteU32(uint32(len(payload)))
	cur.WriteBytes(payload)
	cur.WriteBytes([]byte{0, 0})
	return nil
}

// encodeArrayField writes a length-prefixed array: a u32 element count
// followed by each element encoded through encodeScalarField, or, for a
// struct array, aligned once and then each element encoded through
// encodeStructElement.
func (c *ObjectStreamCodec) encodeArrayField(cur *Cursor, alignBase int, fd *FieldDef, fv FieldValue) error {
	arr, ok := fv.(ArrayValue)
	if !ok {
		return &TypeValueMismatchError{Field: fd.Name, Tag: fd.Type}
	}
	// The count prefix is always 4-aligned, regardless of the field's own
	// declared alignment (rsz_file.py:2254-2255 always aligns to 4 here).
	cur.AlignWriteBase(4, alignBase)
	cur.WriteU32(uint32(len(arr.Elements)))

	if fd.dispatch.kind == KindStruct {
		// field_align applies once, before the first element, not between
		// elements: mirrors decodeArrayField's struct-array handling.
		cur.AlignWriteBase(fd.Align, alignBase)
		for _, e := range arr.Elements {
			if err := c.encodeStructElement(cur, alignBase, fd, e); err != nil {
				return err
			}
		}
		return nil
	}

	for _, e := range arr.Elements {
		if err := c.encodeScalarField(cur, alignBase, fd, e); err != nil {
			return err
		}
	}
	return nil
}

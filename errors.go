// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import "fmt"

// InvalidSeekError is returned when a Cursor is asked to seek to a
// negative absolute position.
type InvalidSeekError struct {
	Offset int
}

func (e *InvalidSeekError) Error() string {
	return fmt.Sprintf("rsz: invalid seek to negative offset %d", e.Offset)
}

// TruncatedError is returned when fewer bytes are available than a read
// requires. It is always fatal for the decode in progress.
type TruncatedError struct {
	Offset   int
	Expected int
	Actual   int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("rsz: truncated read at offset %d: expected %d bytes, got %d",
		e.Offset, e.Expected, e.Actual)
}

// MalformedMagicError is returned when a container's header magic does not
// match any known variant.
type MalformedMagicError struct {
	Got []byte
}

func (e *MalformedMagicError) Error() string {
	return fmt.Sprintf("rsz: malformed container magic %q", e.Got)
}

// UnknownVariantHintError is returned when a caller passes a VariantHint
// that names none of the five known container variants.
type UnknownVariantHintError struct {
	Hint string
}

func (e *UnknownVariantHintError) Error() string {
	return fmt.Sprintf("rsz: unknown variant hint %q", e.Hint)
}

// UnknownTypeError records that an instance's type id has no entry in the
// TypeRegistry. It is not fatal: the instance is carried forward with an
// empty field map so rebuild still reproduces it.
type UnknownTypeError struct {
	TypeID uint32
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("rsz: unknown type id 0x%x", e.TypeID)
}

// UnknownFieldTypeError records that the registry named a type tag the
// codec does not recognize; the field decodes as RawBytes instead.
type UnknownFieldTypeError struct {
	Tag string
}

func (e *UnknownFieldTypeError) Error() string {
	return fmt.Sprintf("rsz: unknown field type tag %q", e.Tag)
}

// TypeValueMismatchError is returned at write time when a FieldValue's
// variant does not match its FieldDef's declared type tag. Fatal.
type TypeValueMismatchError struct {
	Field string
	Tag   string
}

func (e *TypeValueMismatchError) Error() string {
	return fmt.Sprintf("rsz: field %q: value does not match declared type %q", e.Field, e.Tag)
}

// AlignmentViolationError is asserted on write when a host-provided field
// value's encoded length is inconsistent with the registry's declared size.
type AlignmentViolationError struct {
	Field  string
	Offset int
}

func (e *AlignmentViolationError) Error() string {
	return fmt.Sprintf("rsz: field %q: alignment violation at offset %d", e.Field, e.Offset)
}

// invalidStringOffsetWarning formats the non-fatal warning spec.md §7
// describes for InvalidStringOffset: the offset is recorded, decoding
// continues with an empty string.
func invalidStringOffsetWarning(offset uint64, bufLen int) string {
	return fmt.Sprintf("invalid string offset 0x%x (buffer size %d)", offset, bufLen)
}

// unknownTypeWarning formats the warning recorded when an instance's type
// id has no registry entry.
func unknownTypeWarning(typeID uint32, index int) string {
	return fmt.Sprintf("instance %d: unknown type id 0x%x, carried forward with no fields", index, typeID)
}

// invalidReferenceWarning formats the warning recorded when a scalar that
// might have been a reference points forward or at a root instance.
func invalidReferenceWarning(field string, candidate, current int) string {
	return fmt.Sprintf("field %q: candidate %d is not a valid backward reference from instance %d, kept as scalar",
		field, candidate, current)
}

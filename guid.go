// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package rsz

import "github.com/google/uuid"

// guidRawToCanonical converts the engine's 16-byte little-endian GUID
// layout to its canonical hyphenated string form.
func guidRawToCanonical(raw [16]byte) string {
	le := guidLEToBE(raw)
	id, err := uuid.FromBytes(le[:])
	if err != nil {
		return ""
	}
	return id.String()
}

// guidCanonicalToRaw converts a canonical GUID string back to the engine's
// 16-byte little-endian layout.
func guidCanonicalToRaw(s string) ([16]byte, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return [16]byte{}, err
	}
	be := [16]byte(id)
	return guidLEToBE(be), nil
}

// guidLEToBE swaps the first three grouped fields of a GUID between the
// engine's little-endian on-disk layout and RFC 4122's big-endian layout;
// the operation is its own inverse.
func guidLEToBE(b [16]byte) [16]byte {
	var out [16]byte
	out[0], out[1], out[2], out[3] = b[3], b[2], b[1], b[0]
	out[4], out[5] = b[5], b[4]
	out[6], out[7] = b[7], b[6]
	copy(out[8:], b[8:])
	return out
}

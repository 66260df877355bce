// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

// All errors produced by the storage layers wrap exactly one of the
// constants below, so callers can classify failures using errors.Is.
const (
	// ErrKeyNotFound is returned when a key is present neither in the live
	// data nor in the relevant defaults layer.
	ErrKeyNotFound = ConstError("key not found")

	// ErrInvalidSnapshotId is returned when a snapshot id is outside the
	// range of currently retained snapshots.
	ErrInvalidSnapshotId = ConstError("invalid snapshot id")

	// ErrKvsFileRead is returned when a required payload file is missing or
	// cannot be read.
	ErrKvsFileRead = ConstError("unable to read store file")

	// ErrKvsHashFileRead is returned when a checksum sidecar is missing or
	// cannot be read.
	ErrKvsHashFileRead = ConstError("unable to read hash file")

	// ErrJsonParser is returned when an encoded payload or defaults document
	// is syntactically malformed.
	ErrJsonParser = ConstError("malformed document")

	// ErrValidationFailed is returned on a checksum mismatch or a semantic
	// validation failure, like an unknown tag or a payload that does not
	// match its tag.
	ErrValidationFailed = ConstError("validation failed")

	// ErrInvalidValue is returned when an input value cannot be represented,
	// like a non-finite 64-bit float.
	ErrInvalidValue = ConstError("invalid value")

	// ErrTypeMismatch is returned when a typed payload is extracted from a
	// value carrying a different tag.
	ErrTypeMismatch = ConstError("type mismatch")
)

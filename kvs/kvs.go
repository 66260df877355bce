// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package kvs provides the public interface of the persistent key-value
// store: a typed in-memory map with defaults layered under it, persisted as
// a bounded ring of checksum-protected snapshots.
package kvs

import (
	"github.com/qorix-group/persistency/common"
)

// KVS is one open store instance. Reads compose the live data with the
// read-only defaults of the instance; writes touch the live data only and
// become durable with the next Flush.
//
// All operations are synchronous and safe for concurrent use by multiple
// goroutines of one process. Instances with the same identity must not be
// opened twice; the on-disk result of doing so is undefined.
type KVS interface {
	// GetValue returns a copy of the value bound to the given key, falling
	// back to the defaults layer when the live data has no binding. A key
	// bound in neither layer fails with ErrKeyNotFound.
	GetValue(key string) (common.Value, error)

	// GetDefaultValue returns a copy of the default of the given key,
	// ignoring the live data. A key without a default fails with
	// ErrKeyNotFound.
	GetDefaultValue(key string) (common.Value, error)

	// HasDefaultValue reports whether reading the given key currently
	// yields its default, either because the live value equals it or
	// because the live data has no binding. A key without a default fails
	// with ErrKeyNotFound.
	HasDefaultValue(key string) (bool, error)

	// KeyExists reports whether the live data binds the given key. The
	// defaults layer is not consulted.
	KeyExists(key string) bool

	// SetValue binds the given key in the live data, replacing any
	// previous binding. Empty keys and values that cannot be persisted
	// fail with ErrInvalidValue.
	SetValue(key string, value common.Value) error

	// RemoveKey drops the live binding of the given key. Removing an
	// unbound key succeeds and changes nothing.
	RemoveKey(key string) error

	// ResetKey drops the live binding of the given key so reads yield its
	// default again. A key without a default fails with ErrKeyNotFound and
	// keeps the live binding.
	ResetKey(key string) error

	// Reset drops all live bindings. Reads fall through to the defaults.
	Reset() error

	// GetAllKeys lists the keys bound in the live data, in no particular
	// order. Keys bound only in the defaults layer are not listed.
	GetAllKeys() []string

	// Flush persists the live data as the new most recent snapshot and
	// rotates older snapshots. After a flush failure that may have left
	// the snapshot ring inconsistent, the store accepts no further
	// mutations and reports ErrValidationFailed for them.
	Flush() error

	// SnapshotCount returns the number of snapshots currently persisted.
	SnapshotCount() common.SnapshotId

	// SnapshotMaxCount returns the configured snapshot retention bound.
	SnapshotMaxCount() common.SnapshotId

	// SnapshotRestore replaces the live data with the contents of the
	// given snapshot, id 0 being the most recent. Ids at or beyond
	// SnapshotCount() fail with ErrInvalidSnapshotId. On any failure the
	// live data is left unchanged.
	SnapshotRestore(snapshot common.SnapshotId) error

	// KvsFilename returns the canonical location of the payload of the
	// given snapshot without touching the filesystem.
	KvsFilename(snapshot common.SnapshotId) string

	// HashFilename returns the canonical location of the checksum sidecar
	// of the given snapshot without touching the filesystem.
	HashFilename(snapshot common.SnapshotId) string

	// Close releases the store. Unflushed live data is lost.
	Close() error
}

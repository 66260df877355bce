// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package backend defines the storage interface behind a store instance and
// a registry of named backend implementations. The store core talks to its
// backend exclusively through the SnapshotBackend interface, so alternative
// storage technologies can be plugged in by registering a factory.
package backend

//go:generate mockgen -source backend.go -destination backend_mocks.go -package backend

import (
	"fmt"

	"github.com/qorix-group/persistency/common"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// DefaultSnapshotMaxCount is the number of snapshots a backend retains when
// no explicit bound is configured.
const DefaultSnapshotMaxCount = 3

// SnapshotBackend provides persistent storage for one store instance. It
// owns a bounded ring of snapshots, id 0 being the most recent, and the
// read-only defaults document of the instance.
//
// Implementations are not safe for concurrent use; the owning store core
// serializes access.
type SnapshotBackend interface {
	// LoadSnapshot reads the snapshot with the given id, verifies its
	// integrity, and returns the decoded map. Ids at or beyond
	// SnapshotMaxCount() fail with ErrInvalidSnapshotId, a missing
	// snapshot with ErrKvsFileRead or ErrKvsHashFileRead, and a corrupted
	// one with ErrValidationFailed. Range checking against the current
	// count is left to the caller.
	LoadSnapshot(snapshot common.SnapshotId) (common.ValueMap, error)

	// LoadDefaults reads the defaults document of the instance. A missing
	// document fails with an error wrapping both ErrKvsFileRead and
	// fs.ErrNotExist, so callers can distinguish absence from a read
	// failure. Defaults carry no integrity protection.
	LoadDefaults() (common.ValueMap, error)

	// Flush persists the given map as the new snapshot 0 and shifts the
	// retained snapshots one position towards the end of the ring. The
	// oldest snapshot is dropped once the ring is full. An error indicates
	// that the ring may be in an inconsistent state.
	Flush(data common.ValueMap) error

	// SnapshotCount returns the number of snapshots currently retained.
	SnapshotCount() common.SnapshotId

	// SnapshotMaxCount returns the configured capacity of the ring.
	SnapshotMaxCount() common.SnapshotId

	// KvsFilename returns the canonical location of the payload of the
	// given snapshot without touching the storage.
	KvsFilename(snapshot common.SnapshotId) string

	// HashFilename returns the canonical location of the integrity sidecar
	// of the given snapshot without touching the storage.
	HashFilename(snapshot common.SnapshotId) string

	// Close releases resources held by the backend. The backend must not
	// be used afterwards.
	Close() error
}

// Parameters collects the inputs needed to construct a backend instance.
type Parameters struct {
	// Variant names the registered backend implementation. An empty
	// variant selects the JSON file backend.
	Variant Variant

	// Directory is the storage location. Semantics are variant-specific;
	// file backends place their files directly in it.
	Directory string

	// Instance identifies the logical store within the directory.
	Instance common.InstanceId

	// SnapshotMaxCount bounds the snapshot ring. Zero selects
	// DefaultSnapshotMaxCount, negative values are rejected.
	SnapshotMaxCount int
}

// Variant names a backend implementation technology.
type Variant string

// DefaultVariant is the backend used when no variant is configured.
const DefaultVariant = Variant("jsonfile")

// UnsupportedVariant is the error returned when a backend variant has no
// registered factory. NewBackend wraps it together with
// common.ErrValidationFailed.
const UnsupportedVariant = common.ConstError("unsupported backend variant")

// Factory constructs a backend instance for the given parameters.
type Factory func(params Parameters) (SnapshotBackend, error)

var backendFactoryRegistry = map[Variant]Factory{}

// RegisterFactory makes a backend variant available to NewBackend. It is
// intended to be called from init functions of implementation packages and
// panics on a duplicate registration.
func RegisterFactory(variant Variant, factory Factory) {
	if _, found := backendFactoryRegistry[variant]; found {
		panic(fmt.Sprintf("attempted to register multiple factories for %v", variant))
	}
	backendFactoryRegistry[variant] = factory
}

// GetAllRegisteredVariants returns the variants a backend can be constructed
// for, in no particular order.
func GetAllRegisteredVariants() []Variant {
	return maps.Keys(backendFactoryRegistry)
}

// NewBackend constructs the backend selected by the given parameters. If the
// requested variant is not registered, the error is an UnsupportedVariant
// error.
func NewBackend(params Parameters) (SnapshotBackend, error) {
	if params.Variant == "" {
		params.Variant = DefaultVariant
	}
	if params.SnapshotMaxCount == 0 {
		params.SnapshotMaxCount = DefaultSnapshotMaxCount
	}
	if params.SnapshotMaxCount < 1 {
		return nil, fmt.Errorf("%w: snapshot capacity must be positive, got %d",
			common.ErrValidationFailed, params.SnapshotMaxCount)
	}
	factory, found := backendFactoryRegistry[params.Variant]
	if !found {
		known := GetAllRegisteredVariants()
		slices.Sort(known)
		return nil, fmt.Errorf("%w: %w: no registered implementation for %q, have %v",
			UnsupportedVariant, common.ErrValidationFailed, params.Variant, known)
	}
	return factory(params)
}

// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package boltdb

import (
	"errors"
	"io/fs"
	"math"
	"testing"

	"github.com/qorix-group/persistency/backend"
	"github.com/qorix-group/persistency/common"
	bolt "go.etcd.io/bbolt"
)

func newTestBackend(t *testing.T, maxCount int) *boltBackend {
	t.Helper()
	res, err := NewSnapshotBackend(backend.Parameters{
		Directory:        t.TempDir(),
		Instance:         1,
		SnapshotMaxCount: maxCount,
	})
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	t.Cleanup(func() { res.Close() })
	return res.(*boltBackend)
}

func TestBoltBackend_RowKeyConvention(t *testing.T) {
	store := newTestBackend(t, 3)
	if got, want := store.KvsFilename(2), "kvs_1/snapshot/2"; got != want {
		t.Errorf("unexpected payload key, wanted %s, got %s", want, got)
	}
	if got, want := store.HashFilename(2), "kvs_1/hash/2"; got != want {
		t.Errorf("unexpected digest key, wanted %s, got %s", want, got)
	}
}

func TestBoltBackend_FlushedSnapshotCanBeLoaded(t *testing.T) {
	store := newTestBackend(t, 3)
	data := common.ValueMap{
		"negative zero": common.F64Value(math.Copysign(0, -1)),
		"wide":          common.U64Value(math.MaxUint64),
		"nested": common.ObjectValue(common.ValueMap{
			"list": common.ArrayValue(common.I64Value(-1), common.StringValue("x")),
		}),
	}
	if err := store.Flush(data); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	restored, err := store.LoadSnapshot(0)
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if !restored.Equal(data) {
		t.Errorf("restored map differs, wanted %v, got %v", data, restored)
	}
}

func TestBoltBackend_NumericWidthSurvivesRoundTrip(t *testing.T) {
	store := newTestBackend(t, 3)
	data := common.ValueMap{
		"i32": common.I32Value(1),
		"u32": common.U32Value(1),
		"i64": common.I64Value(1),
		"u64": common.U64Value(1),
		"f64": common.F64Value(1),
	}
	if err := store.Flush(data); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	restored, err := store.LoadSnapshot(0)
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	for key, value := range data {
		if restored[key].Kind() != value.Kind() {
			t.Errorf("row %q changed kind from %v to %v", key, value.Kind(), restored[key].Kind())
		}
	}
}

func TestBoltBackend_FlushSequenceRotatesSnapshots(t *testing.T) {
	const maxCount = 3
	store := newTestBackend(t, maxCount)
	for flush := 0; flush < 5; flush++ {
		if err := store.Flush(common.ValueMap{"counter": common.I32Value(int32(flush))}); err != nil {
			t.Fatalf("failed to flush: %v", err)
		}
		wantCount := flush + 1
		if wantCount > maxCount {
			wantCount = maxCount
		}
		if got := int(store.SnapshotCount()); got != wantCount {
			t.Errorf("unexpected count after %d flushes, wanted %d, got %d", flush+1, wantCount, got)
		}
		for id := 0; id < wantCount; id++ {
			restored, err := store.LoadSnapshot(common.SnapshotId(id))
			if err != nil {
				t.Fatalf("failed to load snapshot %d: %v", id, err)
			}
			want := common.ValueMap{"counter": common.I32Value(int32(flush - id))}
			if !restored.Equal(want) {
				t.Errorf("unexpected content of snapshot %d, wanted %v, got %v", id, want, restored)
			}
		}
	}
}

func TestBoltBackend_MissingSnapshotIsReported(t *testing.T) {
	store := newTestBackend(t, 3)
	if _, err := store.LoadSnapshot(0); !errors.Is(err, common.ErrKvsFileRead) {
		t.Errorf("expected file read error, got %v", err)
	}
	if _, err := store.LoadSnapshot(5); !errors.Is(err, common.ErrInvalidSnapshotId) {
		t.Errorf("expected invalid snapshot id, got %v", err)
	}
}

func TestBoltBackend_CorruptedDigestRowIsDetected(t *testing.T) {
	store := newTestBackend(t, 3)
	if err := store.Flush(common.ValueMap{"a": common.I32Value(1)}); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	err := store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(store.bucketName()).Put(digestKey(0), []byte("bogus\n"))
	})
	if err != nil {
		t.Fatalf("failed to overwrite digest row: %v", err)
	}
	if _, err := store.LoadSnapshot(0); !errors.Is(err, common.ErrValidationFailed) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestBoltBackend_MissingDigestRowIsReported(t *testing.T) {
	store := newTestBackend(t, 3)
	if err := store.Flush(common.ValueMap{"a": common.I32Value(1)}); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	err := store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(store.bucketName()).Delete(digestKey(0))
	})
	if err != nil {
		t.Fatalf("failed to delete digest row: %v", err)
	}
	if _, err := store.LoadSnapshot(0); !errors.Is(err, common.ErrKvsHashFileRead) {
		t.Errorf("expected hash file read error, got %v", err)
	}
	if got := store.SnapshotCount(); got != 0 {
		t.Errorf("incomplete pair counts as a snapshot, got count %d", got)
	}
}

func TestBoltBackend_DefaultsRoundTrip(t *testing.T) {
	store := newTestBackend(t, 3)
	if _, err := store.LoadDefaults(); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error for missing defaults, got %v", err)
	}
	defaults := common.ValueMap{"limit": common.U32Value(10)}
	if err := store.StoreDefaults(defaults); err != nil {
		t.Fatalf("failed to store defaults: %v", err)
	}
	loaded, err := store.LoadDefaults()
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if !loaded.Equal(defaults) {
		t.Errorf("unexpected defaults, wanted %v, got %v", defaults, loaded)
	}
}

func TestBoltBackend_NonFiniteFloatCannotBeFlushed(t *testing.T) {
	store := newTestBackend(t, 3)
	data := common.ValueMap{"f": common.F64Value(math.Inf(1))}
	if err := store.Flush(data); !errors.Is(err, common.ErrInvalidValue) {
		t.Errorf("expected invalid value error, got %v", err)
	}
	if got := store.SnapshotCount(); got != 0 {
		t.Errorf("failed flush left a snapshot behind, count %d", got)
	}
}

func TestBoltBackend_InstancesUseSeparateBuckets(t *testing.T) {
	dir := t.TempDir()
	first, err := NewSnapshotBackend(backend.Parameters{Directory: dir, Instance: 1})
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	defer first.Close()
	if err := first.Flush(common.ValueMap{"who": common.StringValue("first")}); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("failed to close backend: %v", err)
	}

	second, err := NewSnapshotBackend(backend.Parameters{Directory: dir, Instance: 2})
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	defer second.Close()
	if got := second.SnapshotCount(); got != 0 {
		t.Errorf("flush of one instance is visible in another, count %d", got)
	}
}

func TestBoltBackend_FactoryIsRegistered(t *testing.T) {
	store, err := backend.NewBackend(backend.Parameters{
		Variant:   Variant,
		Directory: t.TempDir(),
		Instance:  1,
	})
	if err != nil {
		t.Fatalf("failed to create backend through registry: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*boltBackend); !ok {
		t.Errorf("variant is not the bolt backend, got %T", store)
	}
}

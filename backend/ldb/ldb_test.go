// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ldb

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/qorix-group/persistency/backend"
	"github.com/qorix-group/persistency/common"
)

func newTestBackend(t *testing.T, maxCount int) *ldbBackend {
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
	return res.(*ldbBackend)
}

func TestLdbBackend_RowKeyConvention(t *testing.T) {
	store := newTestBackend(t, 3)
	if got, want := store.KvsFilename(2), "kvs/1/2"; got != want {
		t.Errorf("unexpected payload key, wanted %s, got %s", want, got)
	}
	if got, want := store.HashFilename(2), "kvs/1/2/hash"; got != want {
		t.Errorf("unexpected digest key, wanted %s, got %s", want, got)
	}
}

func TestLdbBackend_FlushedSnapshotCanBeLoaded(t *testing.T) {
	store := newTestBackend(t, 3)
	data := common.ValueMap{
		"text":   common.StringValue("hello"),
		"nested": common.ArrayValue(common.U64Value(9), common.NullValue()),
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

func TestLdbBackend_FlushSequenceRotatesSnapshots(t *testing.T) {
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

func TestLdbBackend_MissingSnapshotIsReported(t *testing.T) {
	store := newTestBackend(t, 3)
	if _, err := store.LoadSnapshot(0); !errors.Is(err, common.ErrKvsFileRead) {
		t.Errorf("expected file read error, got %v", err)
	}
	if _, err := store.LoadSnapshot(5); !errors.Is(err, common.ErrInvalidSnapshotId) {
		t.Errorf("expected invalid snapshot id, got %v", err)
	}
}

func TestLdbBackend_CorruptedDigestRowIsDetected(t *testing.T) {
	store := newTestBackend(t, 3)
	if err := store.Flush(common.ValueMap{"a": common.I32Value(1)}); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	if err := store.db.Put([]byte(store.HashFilename(0)), []byte("bogus\n"), nil); err != nil {
		t.Fatalf("failed to overwrite digest row: %v", err)
	}
	if _, err := store.LoadSnapshot(0); !errors.Is(err, common.ErrValidationFailed) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLdbBackend_MissingDigestRowIsReported(t *testing.T) {
	store := newTestBackend(t, 3)
	if err := store.Flush(common.ValueMap{"a": common.I32Value(1)}); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	if err := store.db.Delete([]byte(store.HashFilename(0)), nil); err != nil {
		t.Fatalf("failed to delete digest row: %v", err)
	}
	if _, err := store.LoadSnapshot(0); !errors.Is(err, common.ErrKvsHashFileRead) {
		t.Errorf("expected hash file read error, got %v", err)
	}
	if got := store.SnapshotCount(); got != 0 {
		t.Errorf("incomplete pair counts as a snapshot, got count %d", got)
	}
}

func TestLdbBackend_DefaultsRoundTrip(t *testing.T) {
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

func TestLdbBackend_StateSurvivesReopening(t *testing.T) {
	dir := t.TempDir()
	params := backend.Parameters{Directory: dir, Instance: 1}
	store, err := NewSnapshotBackend(params)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	data := common.ValueMap{"persisted": common.BoolValue(true)}
	if err := store.Flush(data); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close backend: %v", err)
	}

	store, err = NewSnapshotBackend(params)
	if err != nil {
		t.Fatalf("failed to reopen backend: %v", err)
	}
	defer store.Close()
	restored, err := store.LoadSnapshot(0)
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if !restored.Equal(data) {
		t.Errorf("restored map differs, wanted %v, got %v", data, restored)
	}
}

func TestLdbBackend_FactoryIsRegistered(t *testing.T) {
	store, err := backend.NewBackend(backend.Parameters{
		Variant:   Variant,
		Directory: t.TempDir(),
		Instance:  1,
	})
	if err != nil {
		t.Fatalf("failed to create backend through registry: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*ldbBackend); !ok {
		t.Errorf("variant is not the LevelDB backend, got %T", store)
	}
}

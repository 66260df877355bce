// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package boltdb provides a bbolt backed snapshot backend. Each instance
// owns one bucket in a single database file; snapshot payloads live under
// snapshot/<S> keys, their digests under hash/<S>, and the defaults document
// under the reserved key default. Rows are encoded as msgpack rather than
// JSON, using a typed record that keeps the integer width of every value.
// A flush rewrites the rows of the bucket inside one update transaction, so
// rotation is atomic.
package boltdb

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/qorix-group/persistency/backend"
	"github.com/qorix-group/persistency/common"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/sha3"
)

// Variant is the registry name of this backend.
const Variant = backend.Variant("boltdb")

// DatabaseFilename is the name of the database file within the configured
// directory. All instances share it, each in its own bucket.
const DatabaseFilename = "kvs.bolt"

func init() {
	backend.RegisterFactory(Variant, NewSnapshotBackend)
}

type boltBackend struct {
	db       *bolt.DB
	instance common.InstanceId
	maxCount int
}

// NewSnapshotBackend opens (or creates) the database file in the configured
// directory and ensures the bucket of the instance exists.
func NewSnapshotBackend(params backend.Parameters) (backend.SnapshotBackend, error) {
	maxCount := params.SnapshotMaxCount
	if maxCount == 0 {
		maxCount = backend.DefaultSnapshotMaxCount
	}
	if maxCount < 1 {
		return nil, fmt.Errorf("%w: snapshot capacity must be positive, got %d",
			common.ErrValidationFailed, maxCount)
	}
	db, err := bolt.Open(filepath.Join(params.Directory, DatabaseFilename), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
	}
	res := &boltBackend{
		db:       db,
		instance: params.Instance,
		maxCount: maxCount,
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(res.bucketName())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKvsFileRead, errors.Join(err, db.Close()))
	}
	return res, nil
}

func (b *boltBackend) bucketName() []byte {
	return []byte(fmt.Sprintf("kvs_%d", b.instance))
}

func payloadKey(snapshot common.SnapshotId) []byte {
	return []byte(fmt.Sprintf("snapshot/%d", snapshot))
}

func digestKey(snapshot common.SnapshotId) []byte {
	return []byte(fmt.Sprintf("hash/%d", snapshot))
}

var defaultsRowKey = []byte("default")

// KvsFilename returns the bucket-qualified key of the payload row. The
// backend has no per-snapshot files; the row key is the canonical location.
func (b *boltBackend) KvsFilename(snapshot common.SnapshotId) string {
	return fmt.Sprintf("%s/%s", b.bucketName(), payloadKey(snapshot))
}

// HashFilename returns the bucket-qualified key of the digest row.
func (b *boltBackend) HashFilename(snapshot common.SnapshotId) string {
	return fmt.Sprintf("%s/%s", b.bucketName(), digestKey(snapshot))
}

func (b *boltBackend) SnapshotCount() common.SnapshotId {
	count := common.SnapshotId(0)
	b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucketName())
		if bucket == nil {
			return nil
		}
		for int(count) < b.maxCount {
			if bucket.Get(payloadKey(count)) == nil || bucket.Get(digestKey(count)) == nil {
				break
			}
			count++
		}
		return nil
	})
	return count
}

func (b *boltBackend) SnapshotMaxCount() common.SnapshotId {
	return common.SnapshotId(b.maxCount)
}

func (b *boltBackend) LoadSnapshot(snapshot common.SnapshotId) (common.ValueMap, error) {
	if int(snapshot) >= b.maxCount {
		return nil, fmt.Errorf("%w: %d not in [0,%d)",
			common.ErrInvalidSnapshotId, snapshot, b.maxCount)
	}
	var payload, digest []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucketName())
		if bucket == nil {
			return fmt.Errorf("%w: no bucket for instance %d", common.ErrKvsFileRead, b.instance)
		}
		if row := bucket.Get(payloadKey(snapshot)); row != nil {
			payload = bytes.Clone(row)
		}
		if row := bucket.Get(digestKey(snapshot)); row != nil {
			digest = bytes.Clone(row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: no payload row for snapshot %d", common.ErrKvsFileRead, snapshot)
	}
	if digest == nil {
		return nil, fmt.Errorf("%w: no digest row for snapshot %d", common.ErrKvsHashFileRead, snapshot)
	}
	if !bytes.Equal(digest, digestOf(payload)) {
		return nil, fmt.Errorf("%w: checksum mismatch for snapshot %d",
			common.ErrValidationFailed, snapshot)
	}
	return decodeDocument(payload)
}

func (b *boltBackend) LoadDefaults() (common.ValueMap, error) {
	var payload []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucketName())
		if bucket == nil {
			return nil
		}
		if row := bucket.Get(defaultsRowKey); row != nil {
			payload = bytes.Clone(row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: defaults row missing: %w", common.ErrKvsFileRead, fs.ErrNotExist)
	}
	return decodeDocument(payload)
}

// StoreDefaults writes the defaults row. Defaults are external input for the
// store core; this is the administrative channel that replaces placing a
// kvs_<I>_default.json file next to a file backend.
func (b *boltBackend) StoreDefaults(data common.ValueMap) error {
	payload, err := encodeDocument(data)
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucketName()).Put(defaultsRowKey, payload)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
	}
	return nil
}

func (b *boltBackend) Flush(data common.ValueMap) error {
	payload, err := encodeDocument(data)
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucketName())
		count := 0
		for count < b.maxCount {
			if bucket.Get(payloadKey(common.SnapshotId(count))) == nil ||
				bucket.Get(digestKey(common.SnapshotId(count))) == nil {
				break
			}
			count++
		}
		for i := count - 1; i >= 0; i-- {
			if i+1 >= b.maxCount {
				continue
			}
			from, to := common.SnapshotId(i), common.SnapshotId(i+1)
			if err := bucket.Put(payloadKey(to), bucket.Get(payloadKey(from))); err != nil {
				return err
			}
			if err := bucket.Put(digestKey(to), bucket.Get(digestKey(from))); err != nil {
				return err
			}
		}
		if err := bucket.Put(payloadKey(0), payload); err != nil {
			return err
		}
		return bucket.Put(digestKey(0), digestOf(payload))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
	}
	return nil
}

func (b *boltBackend) Close() error {
	return b.db.Close()
}

func digestOf(payload []byte) []byte {
	digest := sha3.Sum256(payload)
	return []byte(hex.EncodeToString(digest[:]) + "\n")
}

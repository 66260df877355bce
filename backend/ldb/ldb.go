// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ldb provides a LevelDB backed snapshot backend. Each snapshot is a
// pair of rows, kvs/<I>/<S> holding the encoded payload and kvs/<I>/<S>/hash
// holding its digest, and the defaults document lives in the reserved row
// kvs/<I>/default. Rotation rewrites the rows of an instance in a single
// write batch, so a flush is atomic where the file backend can only offer a
// rename sequence.
package ldb

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"

	"github.com/qorix-group/persistency/backend"
	"github.com/qorix-group/persistency/codec"
	"github.com/qorix-group/persistency/common"
	"github.com/syndtr/goleveldb/leveldb"
	"golang.org/x/crypto/sha3"
)

// Variant is the registry name of this backend.
const Variant = backend.Variant("ldb")

func init() {
	backend.RegisterFactory(Variant, NewSnapshotBackend)
}

type ldbBackend struct {
	db       *leveldb.DB
	instance common.InstanceId
	maxCount int
}

// NewSnapshotBackend opens (or creates) a LevelDB database in the configured
// directory. Multiple instances share one database only if they share one
// backend process; the database directory is locked while open.
func NewSnapshotBackend(params backend.Parameters) (backend.SnapshotBackend, error) {
	maxCount := params.SnapshotMaxCount
	if maxCount == 0 {
		maxCount = backend.DefaultSnapshotMaxCount
	}
	if maxCount < 1 {
		return nil, fmt.Errorf("%w: snapshot capacity must be positive, got %d",
			common.ErrValidationFailed, maxCount)
	}
	db, err := leveldb.OpenFile(params.Directory, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
	}
	return &ldbBackend{
		db:       db,
		instance: params.Instance,
		maxCount: maxCount,
	}, nil
}

// KvsFilename returns the database key of the payload row. The backend has
// no per-snapshot files; the row key is the canonical location.
func (b *ldbBackend) KvsFilename(snapshot common.SnapshotId) string {
	return fmt.Sprintf("kvs/%d/%d", b.instance, snapshot)
}

// HashFilename returns the database key of the digest row.
func (b *ldbBackend) HashFilename(snapshot common.SnapshotId) string {
	return fmt.Sprintf("kvs/%d/%d/hash", b.instance, snapshot)
}

func (b *ldbBackend) defaultsKey() []byte {
	return []byte(fmt.Sprintf("kvs/%d/default", b.instance))
}

func (b *ldbBackend) SnapshotCount() common.SnapshotId {
	count := common.SnapshotId(0)
	for int(count) < b.maxCount {
		hasPayload, err := b.db.Has([]byte(b.KvsFilename(count)), nil)
		if err != nil || !hasPayload {
			break
		}
		hasDigest, err := b.db.Has([]byte(b.HashFilename(count)), nil)
		if err != nil || !hasDigest {
			break
		}
		count++
	}
	return count
}

func (b *ldbBackend) SnapshotMaxCount() common.SnapshotId {
	return common.SnapshotId(b.maxCount)
}

func (b *ldbBackend) LoadSnapshot(snapshot common.SnapshotId) (common.ValueMap, error) {
	if int(snapshot) >= b.maxCount {
		return nil, fmt.Errorf("%w: %d not in [0,%d)",
			common.ErrInvalidSnapshotId, snapshot, b.maxCount)
	}
	payload, err := b.db.Get([]byte(b.KvsFilename(snapshot)), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
	}
	digest, err := b.db.Get([]byte(b.HashFilename(snapshot)), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKvsHashFileRead, err)
	}
	if !bytes.Equal(digest, digestOf(payload)) {
		return nil, fmt.Errorf("%w: checksum mismatch for snapshot %d",
			common.ErrValidationFailed, snapshot)
	}
	return codec.Decode(payload)
}

func (b *ldbBackend) LoadDefaults() (common.ValueMap, error) {
	payload, err := b.db.Get(b.defaultsKey(), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: defaults row missing: %w", common.ErrKvsFileRead, fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
	}
	return codec.Decode(payload)
}

// StoreDefaults writes the defaults row. Defaults are external input for the
// store core; this is the administrative channel that replaces placing a
// kvs_<I>_default.json file next to a file backend.
func (b *ldbBackend) StoreDefaults(data common.ValueMap) error {
	payload, err := codec.Encode(data)
	if err != nil {
		return err
	}
	if err := b.db.Put(b.defaultsKey(), payload, nil); err != nil {
		return fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
	}
	return nil
}

func (b *ldbBackend) Flush(data common.ValueMap) error {
	payload, err := codec.Encode(data)
	if err != nil {
		return err
	}

	count := int(b.SnapshotCount())
	rows := make([][]byte, 0, 2*count)
	for i := 0; i < count; i++ {
		row, err := b.db.Get([]byte(b.KvsFilename(common.SnapshotId(i))), nil)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
		}
		digest, err := b.db.Get([]byte(b.HashFilename(common.SnapshotId(i))), nil)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrKvsHashFileRead, err)
		}
		rows = append(rows, row, digest)
	}

	batch := new(leveldb.Batch)
	batch.Put([]byte(b.KvsFilename(0)), payload)
	batch.Put([]byte(b.HashFilename(0)), digestOf(payload))
	for i := 0; i < count; i++ {
		target := i + 1
		if target >= b.maxCount {
			break
		}
		batch.Put([]byte(b.KvsFilename(common.SnapshotId(target))), rows[2*i])
		batch.Put([]byte(b.HashFilename(common.SnapshotId(target))), rows[2*i+1])
	}
	if err := b.db.Write(batch, nil); err != nil {
		return fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
	}
	return nil
}

func (b *ldbBackend) Close() error {
	return b.db.Close()
}

func digestOf(payload []byte) []byte {
	digest := sha3.Sum256(payload)
	return []byte(hex.EncodeToString(digest[:]) + "\n")
}

// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package jsonfile provides the file based snapshot backend. Snapshots are
// stored as plain files in a working directory, one JSON payload plus one
// checksum sidecar per snapshot. It is the default backend of the store.
//
// For instance I and snapshot S the payload lives at kvs_<I>_<S>.json and
// the sidecar at kvs_<I>_<S>.hash, both decimal without padding. The sidecar
// holds the lowercase hex SHA3-256 digest of the payload followed by a
// newline. Defaults are read from kvs_<I>_default.json, which is written
// externally and carries no sidecar.
//
// A flush writes the new pair to temporary paths first, then shifts the
// existing pairs one index up, and finally renames the new pair onto index
// 0, sidecar before payload. The new snapshot becomes observable only with
// the last rename, so a crash at any point leaves either the previous
// snapshot set intact or the new snapshot fully in place. An interrupted
// shift can at worst leave a payload next to a stale sidecar, which the
// checksum comparison catches at load time.
package jsonfile

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qorix-group/persistency/backend"
	"github.com/qorix-group/persistency/codec"
	"github.com/qorix-group/persistency/common"
	"golang.org/x/crypto/sha3"
)

func init() {
	backend.RegisterFactory(backend.DefaultVariant, NewSnapshotBackend)
}

type fileBackend struct {
	directory string
	instance  common.InstanceId
	maxCount  int
}

// NewSnapshotBackend creates a file based backend rooted in the configured
// directory, creating the directory if needed. The variant field of the
// parameters is ignored.
func NewSnapshotBackend(params backend.Parameters) (backend.SnapshotBackend, error) {
	maxCount := params.SnapshotMaxCount
	if maxCount == 0 {
		maxCount = backend.DefaultSnapshotMaxCount
	}
	if maxCount < 1 {
		return nil, fmt.Errorf("%w: snapshot capacity must be positive, got %d",
			common.ErrValidationFailed, maxCount)
	}
	if err := os.MkdirAll(params.Directory, 0700); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
	}
	return &fileBackend{
		directory: params.Directory,
		instance:  params.Instance,
		maxCount:  maxCount,
	}, nil
}

func (b *fileBackend) KvsFilename(snapshot common.SnapshotId) string {
	return filepath.Join(b.directory, fmt.Sprintf("kvs_%d_%d.json", b.instance, snapshot))
}

func (b *fileBackend) HashFilename(snapshot common.SnapshotId) string {
	return filepath.Join(b.directory, fmt.Sprintf("kvs_%d_%d.hash", b.instance, snapshot))
}

func (b *fileBackend) defaultsFilename() string {
	return filepath.Join(b.directory, fmt.Sprintf("kvs_%d_default.json", b.instance))
}

// SnapshotCount counts the consecutive snapshots present on disk, starting
// at index 0. An index counts only if both its payload and its sidecar
// exist; the first gap ends the count.
func (b *fileBackend) SnapshotCount() common.SnapshotId {
	count := common.SnapshotId(0)
	for int(count) < b.maxCount {
		if !fileExists(b.KvsFilename(count)) || !fileExists(b.HashFilename(count)) {
			break
		}
		count++
	}
	return count
}

func (b *fileBackend) SnapshotMaxCount() common.SnapshotId {
	return common.SnapshotId(b.maxCount)
}

func (b *fileBackend) LoadSnapshot(snapshot common.SnapshotId) (common.ValueMap, error) {
	if int(snapshot) >= b.maxCount {
		return nil, fmt.Errorf("%w: %d not in [0,%d)",
			common.ErrInvalidSnapshotId, snapshot, b.maxCount)
	}
	payload, err := os.ReadFile(b.KvsFilename(snapshot))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrKvsFileRead, err)
	}
	sidecar, err := os.ReadFile(b.HashFilename(snapshot))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrKvsHashFileRead, err)
	}
	if !bytes.Equal(sidecar, digestOf(payload)) {
		return nil, fmt.Errorf("%w: checksum mismatch for snapshot %d",
			common.ErrValidationFailed, snapshot)
	}
	return codec.Decode(payload)
}

func (b *fileBackend) LoadDefaults() (common.ValueMap, error) {
	payload, err := os.ReadFile(b.defaultsFilename())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrKvsFileRead, err)
	}
	return codec.Decode(payload)
}

func (b *fileBackend) Flush(data common.ValueMap) error {
	payload, err := codec.Encode(data)
	if err != nil {
		return err
	}

	tmpPayload := b.KvsFilename(0) + ".tmp"
	tmpSidecar := b.HashFilename(0) + ".tmp"
	if err := os.WriteFile(tmpPayload, payload, 0600); err != nil {
		return fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
	}
	if err := os.WriteFile(tmpSidecar, digestOf(payload), 0600); err != nil {
		return fmt.Errorf("%w: %v", common.ErrKvsHashFileRead, err)
	}

	count := int(b.SnapshotCount())
	if count == b.maxCount {
		oldest := common.SnapshotId(b.maxCount - 1)
		if err := os.Remove(b.KvsFilename(oldest)); err != nil {
			return fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
		}
		if err := os.Remove(b.HashFilename(oldest)); err != nil {
			return fmt.Errorf("%w: %v", common.ErrKvsHashFileRead, err)
		}
		count--
	}
	for i := count - 1; i >= 0; i-- {
		from, to := common.SnapshotId(i), common.SnapshotId(i+1)
		if err := os.Rename(b.KvsFilename(from), b.KvsFilename(to)); err != nil {
			return fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
		}
		if err := os.Rename(b.HashFilename(from), b.HashFilename(to)); err != nil {
			return fmt.Errorf("%w: %v", common.ErrKvsHashFileRead, err)
		}
	}

	// The sidecar goes first so that the payload rename alone publishes a
	// complete, verifiable snapshot.
	if err := os.Rename(tmpSidecar, b.HashFilename(0)); err != nil {
		return fmt.Errorf("%w: %v", common.ErrKvsHashFileRead, err)
	}
	if err := os.Rename(tmpPayload, b.KvsFilename(0)); err != nil {
		return fmt.Errorf("%w: %v", common.ErrKvsFileRead, err)
	}
	return nil
}

func (b *fileBackend) Close() error {
	return nil
}

func digestOf(payload []byte) []byte {
	digest := sha3.Sum256(payload)
	return []byte(hex.EncodeToString(digest[:]) + "\n")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

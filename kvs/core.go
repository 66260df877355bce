// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kvs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/qorix-group/persistency/backend"
	"github.com/qorix-group/persistency/common"
	"golang.org/x/exp/maps"
)

// coreKvs is the store implementation. It holds the live map, the read-only
// defaults, and the backend persisting snapshots. A mutex serializes all
// operations except the filename queries; none of them suspends while
// holding it apart from the backend work of Flush, SnapshotRestore,
// SnapshotCount, SnapshotMaxCount, and Close.
type coreKvs struct {
	mu       sync.Mutex
	backend  backend.SnapshotBackend
	live     common.ValueMap
	defaults common.ValueMap

	// poisoned is set when a failed flush may have left the snapshot ring
	// inconsistent. Reads keep working, mutations and snapshot operations
	// are refused.
	poisoned bool
}

func (k *coreKvs) failIfPoisoned() error {
	if k.poisoned {
		return fmt.Errorf("%w: store is poisoned by a failed flush", common.ErrValidationFailed)
	}
	return nil
}

func (k *coreKvs) GetValue(key string) (common.Value, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if value, exists := k.live[key]; exists {
		return value.Clone(), nil
	}
	if value, exists := k.defaults[key]; exists {
		return value.Clone(), nil
	}
	return common.Value{}, fmt.Errorf("%w: %q", common.ErrKeyNotFound, key)
}

func (k *coreKvs) GetDefaultValue(key string) (common.Value, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	value, exists := k.defaults[key]
	if !exists {
		return common.Value{}, fmt.Errorf("%w: no default for %q", common.ErrKeyNotFound, key)
	}
	return value.Clone(), nil
}

func (k *coreKvs) HasDefaultValue(key string) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	defaultValue, exists := k.defaults[key]
	if !exists {
		return false, fmt.Errorf("%w: no default for %q", common.ErrKeyNotFound, key)
	}
	if liveValue, exists := k.live[key]; exists {
		return liveValue.Equal(defaultValue), nil
	}
	return true, nil
}

func (k *coreKvs) KeyExists(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, exists := k.live[key]
	return exists
}

func (k *coreKvs) SetValue(key string, value common.Value) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.failIfPoisoned(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", common.ErrInvalidValue)
	}
	if err := value.Validate(); err != nil {
		return err
	}
	k.live[key] = value.Clone()
	return nil
}

func (k *coreKvs) RemoveKey(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.failIfPoisoned(); err != nil {
		return err
	}
	delete(k.live, key)
	return nil
}

func (k *coreKvs) ResetKey(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.failIfPoisoned(); err != nil {
		return err
	}
	if _, exists := k.defaults[key]; !exists {
		return fmt.Errorf("%w: no default for %q", common.ErrKeyNotFound, key)
	}
	delete(k.live, key)
	return nil
}

func (k *coreKvs) Reset() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.failIfPoisoned(); err != nil {
		return err
	}
	k.live = common.ValueMap{}
	return nil
}

func (k *coreKvs) GetAllKeys() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return maps.Keys(k.live)
}

func (k *coreKvs) Flush() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.failIfPoisoned(); err != nil {
		return err
	}
	if err := k.backend.Flush(k.live); err != nil {
		// A rejected value means the backend never touched the ring, so
		// the store stays usable. Anything else may have interrupted the
		// rotation midway.
		if !errors.Is(err, common.ErrInvalidValue) {
			k.poisoned = true
		}
		return err
	}
	return nil
}

func (k *coreKvs) SnapshotCount() common.SnapshotId {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.backend.SnapshotCount()
}

func (k *coreKvs) SnapshotMaxCount() common.SnapshotId {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.backend.SnapshotMaxCount()
}

func (k *coreKvs) SnapshotRestore(snapshot common.SnapshotId) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.failIfPoisoned(); err != nil {
		return err
	}
	if count := k.backend.SnapshotCount(); snapshot >= count {
		return fmt.Errorf("%w: %d not in [0,%d)", common.ErrInvalidSnapshotId, snapshot, count)
	}
	restored, err := k.backend.LoadSnapshot(snapshot)
	if err != nil {
		return err
	}
	k.live = restored
	return nil
}

func (k *coreKvs) KvsFilename(snapshot common.SnapshotId) string {
	return k.backend.KvsFilename(snapshot)
}

func (k *coreKvs) HashFilename(snapshot common.SnapshotId) string {
	return k.backend.HashFilename(snapshot)
}

func (k *coreKvs) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.backend.Close()
}

// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package demo exercises the store end to end: it opens an instance, stores
// a value, overwrites it, and recovers the original value from an older
// snapshot.
package demo

import (
	"fmt"
	"log/slog"

	"github.com/qorix-group/persistency/common"
	"github.com/qorix-group/persistency/kvs"

	_ "github.com/qorix-group/persistency/backend/jsonfile"
)

// Run performs the demo sequence in the given directory: create an instance,
// store data, read it back, overwrite it, restore the previous snapshot, and
// verify the original data reappears. The directory keeps the produced
// snapshot files after the run.
func Run(directory string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := kvs.New(kvs.Parameters{
		Instance:  common.InstanceId(0),
		Directory: directory,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create store instance: %w", err)
	}
	defer store.Close()
	logger.Info("instance created", "directory", directory)

	const key = "demo_key"
	const initial = "initial_value"
	if err := store.SetValue(key, common.StringValue(initial)); err != nil {
		return fmt.Errorf("failed to store initial value: %w", err)
	}
	if err := store.Flush(); err != nil {
		return fmt.Errorf("failed to flush initial value: %w", err)
	}
	logger.Info("stored", "key", key, "value", initial)

	read, err := store.GetValue(key)
	if err != nil {
		return fmt.Errorf("failed to read value back: %w", err)
	}
	logger.Info("read", "key", key, "value", read)

	const overwritten = "overwritten_value"
	if err := store.SetValue(key, common.StringValue(overwritten)); err != nil {
		return fmt.Errorf("failed to overwrite value: %w", err)
	}
	if err := store.Flush(); err != nil {
		return fmt.Errorf("failed to flush overwritten value: %w", err)
	}
	logger.Info("overwritten", "key", key, "value", overwritten)

	if err := store.SnapshotRestore(1); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	restored, err := store.GetValue(key)
	if err != nil {
		return fmt.Errorf("failed to read value after restore: %w", err)
	}
	logger.Info("restored", "key", key, "value", restored)

	if !restored.Equal(common.StringValue(initial)) {
		return fmt.Errorf("restored value is %v, want %q", restored, initial)
	}
	return nil
}

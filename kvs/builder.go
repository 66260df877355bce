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
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/qorix-group/persistency/backend"
	"github.com/qorix-group/persistency/common"
)

// Need is the tri-state controlling how the builder treats an optional
// input, like the defaults file or an existing snapshot.
type Need int

const (
	// NeedOptional uses the input when present and proceeds without it
	// otherwise. This is the default.
	NeedOptional Need = iota

	// NeedRequired fails construction when the input is missing.
	NeedRequired

	// NeedWithout ignores the input even when present.
	NeedWithout
)

func (n Need) String() string {
	switch n {
	case NeedOptional:
		return "optional"
	case NeedRequired:
		return "required"
	case NeedWithout:
		return "without"
	}
	return fmt.Sprintf("Need(%d)", int(n))
}

// ParseNeed converts the external configuration alias of a Need into its
// value. The legacy alias "ignored" has no defined semantics and is rejected
// like any unknown alias.
func ParseNeed(alias string) (Need, error) {
	switch alias {
	case "optional":
		return NeedOptional, nil
	case "required":
		return NeedRequired, nil
	case "without":
		return NeedWithout, nil
	}
	return 0, fmt.Errorf("%w: unknown need alias %q", common.ErrValidationFailed, alias)
}

// Parameters collects the configuration of a store instance. The zero value
// of every optional field selects a documented default, so a caller only
// fills in what deviates.
type Parameters struct {
	// Instance identifies the store within its directory.
	Instance common.InstanceId

	// Directory is where the backend keeps its files. Empty selects a
	// directory named kvs under the system temporary directory. Must be
	// left empty when Backend is set.
	Directory string

	// SnapshotMaxCount overrides the snapshot retention bound. Zero
	// selects the backend default, negative values are rejected. Must be
	// left zero when Backend is set.
	SnapshotMaxCount int

	// Variant selects the storage technology from the backend registry.
	// Empty selects the JSON file backend. Must be left empty when
	// Backend is set.
	Variant backend.Variant

	// Backend plugs in an already constructed backend instead of building
	// one from Directory, SnapshotMaxCount, and Variant. The store takes
	// ownership and closes it with the store.
	Backend backend.SnapshotBackend

	// Defaults controls the defaults layer: optional uses the defaults
	// document when present, required fails without one, without skips
	// loading even when present.
	Defaults Need

	// KvsLoad controls loading of the most recent snapshot: optional
	// starts empty when there is none, required fails without one,
	// without always starts empty.
	KvsLoad Need

	// Logger receives construction diagnostics. Nil selects the process
	// default logger.
	Logger *slog.Logger
}

// New validates the given parameters, discovers the current snapshot, and
// opens the store. Construction is the only place where missing-but-required
// state is distinguished from missing-but-optional state; all resulting
// errors match the shared taxonomy.
func New(params Parameters) (KVS, error) {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := resolveBackend(params)
	if err != nil {
		return nil, err
	}

	defaults, err := loadDefaults(store, params, logger)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	live, err := loadCurrentSnapshot(store, params, logger)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	return &coreKvs{
		backend:  store,
		live:     live,
		defaults: defaults,
	}, nil
}

func resolveBackend(params Parameters) (backend.SnapshotBackend, error) {
	if params.Backend != nil {
		if params.Directory != "" || params.SnapshotMaxCount != 0 || params.Variant != "" {
			return nil, fmt.Errorf(
				"%w: an explicit backend conflicts with directory, capacity, and variant settings",
				common.ErrValidationFailed)
		}
		return params.Backend, nil
	}
	directory := params.Directory
	if directory == "" {
		directory = filepath.Join(os.TempDir(), "kvs")
	}
	return backend.NewBackend(backend.Parameters{
		Variant:          params.Variant,
		Directory:        directory,
		Instance:         params.Instance,
		SnapshotMaxCount: params.SnapshotMaxCount,
	})
}

func loadDefaults(store backend.SnapshotBackend, params Parameters, logger *slog.Logger) (common.ValueMap, error) {
	switch params.Defaults {
	case NeedWithout:
		return common.ValueMap{}, nil
	case NeedOptional:
		defaults, err := store.LoadDefaults()
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("no defaults found, continuing without",
				"instance", uint64(params.Instance))
			return common.ValueMap{}, nil
		}
		return defaults, err
	case NeedRequired:
		return store.LoadDefaults()
	}
	return nil, fmt.Errorf("%w: unknown defaults mode %v", common.ErrValidationFailed, params.Defaults)
}

func loadCurrentSnapshot(store backend.SnapshotBackend, params Parameters, logger *slog.Logger) (common.ValueMap, error) {
	if params.KvsLoad == NeedWithout {
		return common.ValueMap{}, nil
	}
	if params.KvsLoad != NeedOptional && params.KvsLoad != NeedRequired {
		return nil, fmt.Errorf("%w: unknown load mode %v", common.ErrValidationFailed, params.KvsLoad)
	}
	count := store.SnapshotCount()
	logger.Debug("discovered snapshots",
		"instance", uint64(params.Instance),
		"count", uint32(count),
		"capacity", uint32(store.SnapshotMaxCount()))
	if count == 0 {
		if params.KvsLoad == NeedRequired {
			return nil, fmt.Errorf("%w: no snapshot to load for instance %d",
				common.ErrKvsFileRead, params.Instance)
		}
		return common.ValueMap{}, nil
	}
	return store.LoadSnapshot(0)
}

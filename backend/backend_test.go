// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package backend

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/qorix-group/persistency/common"
	"golang.org/x/exp/slices"
)

func TestNewBackend_DispatchesToRegisteredFactory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mock := NewMockSnapshotBackend(ctrl)

	var seen Parameters
	RegisterFactory("test-dispatch", func(params Parameters) (SnapshotBackend, error) {
		seen = params
		return mock, nil
	})

	instance, err := NewBackend(Parameters{
		Variant:   "test-dispatch",
		Directory: "/tmp/somewhere",
		Instance:  common.InstanceId(7),
	})
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	if instance != mock {
		t.Errorf("factory result was not returned")
	}
	if seen.Directory != "/tmp/somewhere" || seen.Instance != 7 {
		t.Errorf("factory received unexpected parameters: %+v", seen)
	}
	if seen.SnapshotMaxCount != DefaultSnapshotMaxCount {
		t.Errorf("unexpected default capacity, wanted %d, got %d",
			DefaultSnapshotMaxCount, seen.SnapshotMaxCount)
	}
}

func TestNewBackend_ExplicitCapacityIsForwarded(t *testing.T) {
	var seen Parameters
	RegisterFactory("test-capacity", func(params Parameters) (SnapshotBackend, error) {
		seen = params
		return nil, nil
	})
	if _, err := NewBackend(Parameters{Variant: "test-capacity", SnapshotMaxCount: 5}); err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	if seen.SnapshotMaxCount != 5 {
		t.Errorf("unexpected capacity, wanted 5, got %d", seen.SnapshotMaxCount)
	}
}

func TestNewBackend_NegativeCapacityIsRejected(t *testing.T) {
	_, err := NewBackend(Parameters{Variant: "test-never-registered", SnapshotMaxCount: -1})
	if !errors.Is(err, common.ErrValidationFailed) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestNewBackend_UnknownVariantFails(t *testing.T) {
	_, err := NewBackend(Parameters{Variant: "no-such-backend"})
	if !errors.Is(err, UnsupportedVariant) {
		t.Errorf("expected unsupported variant error, got %v", err)
	}
}

func TestRegisterFactory_DuplicateRegistrationPanics(t *testing.T) {
	factory := func(params Parameters) (SnapshotBackend, error) { return nil, nil }
	RegisterFactory("test-duplicate", factory)
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on duplicate registration")
		}
	}()
	RegisterFactory("test-duplicate", factory)
}

func TestGetAllRegisteredVariants_ListsRegistrations(t *testing.T) {
	RegisterFactory("test-listed", func(params Parameters) (SnapshotBackend, error) { return nil, nil })
	if !slices.Contains(GetAllRegisteredVariants(), Variant("test-listed")) {
		t.Errorf("registered variant is not listed")
	}
}

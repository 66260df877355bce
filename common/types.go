// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

// InstanceId identifies one logical store on disk. Instances with distinct
// ids coexist in the same working directory.
type InstanceId uint64

// SnapshotId addresses one retained snapshot of an instance. Id 0 always
// denotes the most recent snapshot, larger ids denote progressively older
// ones.
type SnapshotId uint32

// ValueMap is a mapping from keys to values. It is the in-memory shape of
// both the live data of a store and its defaults layer.
type ValueMap map[string]Value

// Clone produces a deep copy of the map. Modifications of the copy are not
// visible through the original and vice versa.
func (m ValueMap) Clone() ValueMap {
	res := make(ValueMap, len(m))
	for key, value := range m {
		res[key] = value.Clone()
	}
	return res
}

// Equal tests two maps for deep equality.
func (m ValueMap) Equal(other ValueMap) bool {
	if len(m) != len(other) {
		return false
	}
	for key, value := range m {
		otherValue, exists := other[key]
		if !exists || !value.Equal(otherValue) {
			return false
		}
	}
	return true
}

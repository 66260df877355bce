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

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// ValueKind enumerates the tags a Value can carry. Numeric kinds are
// distinguished even when a number is representable in several widths, so
// an I32(1) is never equal to an I64(1).
type ValueKind byte

const (
	KindNull ValueKind = iota
	KindBool
	KindI32
	KindU32
	KindI64
	KindU64
	KindF64
	KindString
	KindArray
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindI32:
		return "i32"
	case KindU32:
		return "u32"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindF64:
		return "f64"
	case KindString:
		return "str"
	case KindArray:
		return "arr"
	case KindObject:
		return "obj"
	}
	return fmt.Sprintf("ValueKind(%d)", byte(k))
}

// Value is a tagged recursive value. It represents scalars, strings, null,
// ordered arrays of values, and string-keyed objects of values. Values have
// value semantics: once constructed, a Value is never mutated through any
// operation of this package, and composite payloads are deep-copied on
// construction so no reference to external data is retained.
//
// The zero value is Null.
type Value struct {
	kind ValueKind
	num  uint64 // scalar payload, bit pattern for f64
	str  string
	arr  []Value
	obj  ValueMap
}

// NullValue returns the null value.
func NullValue() Value {
	return Value{}
}

// BoolValue returns a value tagged bool.
func BoolValue(b bool) Value {
	var num uint64
	if b {
		num = 1
	}
	return Value{kind: KindBool, num: num}
}

// I32Value returns a value tagged i32.
func I32Value(n int32) Value {
	return Value{kind: KindI32, num: uint64(n)}
}

// U32Value returns a value tagged u32.
func U32Value(n uint32) Value {
	return Value{kind: KindU32, num: uint64(n)}
}

// I64Value returns a value tagged i64.
func I64Value(n int64) Value {
	return Value{kind: KindI64, num: uint64(n)}
}

// U64Value returns a value tagged u64.
func U64Value(n uint64) Value {
	return Value{kind: KindU64, num: n}
}

// F64Value returns a value tagged f64. Non-finite payloads are representable
// in memory but rejected by Validate and by the codec.
func F64Value(f float64) Value {
	return Value{kind: KindF64, num: math.Float64bits(f)}
}

// StringValue returns a value tagged str.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// ArrayValue returns a value tagged arr holding a deep copy of the given
// elements.
func ArrayValue(elements ...Value) Value {
	arr := make([]Value, len(elements))
	for i, element := range elements {
		arr[i] = element.Clone()
	}
	return Value{kind: KindArray, arr: arr}
}

// ObjectValue returns a value tagged obj holding a deep copy of the given
// map.
func ObjectValue(fields ValueMap) Value {
	return Value{kind: KindObject, obj: fields.Clone()}
}

// Kind returns the tag of this value.
func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) typeError(want ValueKind) error {
	return fmt.Errorf("%w: have %v, want %v", ErrTypeMismatch, v.kind, want)
}

// AsBool extracts a bool payload.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.typeError(KindBool)
	}
	return v.num != 0, nil
}

// AsI32 extracts an i32 payload.
func (v Value) AsI32() (int32, error) {
	if v.kind != KindI32 {
		return 0, v.typeError(KindI32)
	}
	return int32(v.num), nil
}

// AsU32 extracts a u32 payload.
func (v Value) AsU32() (uint32, error) {
	if v.kind != KindU32 {
		return 0, v.typeError(KindU32)
	}
	return uint32(v.num), nil
}

// AsI64 extracts an i64 payload.
func (v Value) AsI64() (int64, error) {
	if v.kind != KindI64 {
		return 0, v.typeError(KindI64)
	}
	return int64(v.num), nil
}

// AsU64 extracts a u64 payload.
func (v Value) AsU64() (uint64, error) {
	if v.kind != KindU64 {
		return 0, v.typeError(KindU64)
	}
	return v.num, nil
}

// AsF64 extracts an f64 payload.
func (v Value) AsF64() (float64, error) {
	if v.kind != KindF64 {
		return 0, v.typeError(KindF64)
	}
	return math.Float64frombits(v.num), nil
}

// AsString extracts a str payload.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", v.typeError(KindString)
	}
	return v.str, nil
}

// AsArray extracts a copy of an arr payload.
func (v Value) AsArray() ([]Value, error) {
	if v.kind != KindArray {
		return nil, v.typeError(KindArray)
	}
	res := make([]Value, len(v.arr))
	for i, element := range v.arr {
		res[i] = element.Clone()
	}
	return res, nil
}

// AsObject extracts a copy of an obj payload.
func (v Value) AsObject() (ValueMap, error) {
	if v.kind != KindObject {
		return nil, v.typeError(KindObject)
	}
	return v.obj.Clone(), nil
}

// Clone produces a deep copy of this value.
func (v Value) Clone() Value {
	res := v
	if v.kind == KindArray {
		res.arr = make([]Value, len(v.arr))
		for i, element := range v.arr {
			res.arr[i] = element.Clone()
		}
	}
	if v.kind == KindObject {
		res.obj = v.obj.Clone()
	}
	return res
}

// Equal tests two values for deep equality. Values of different kinds are
// never equal. F64 payloads are compared by bit pattern, so -0 and 0 are
// distinct while equal NaN patterns compare equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindArray:
		return slices.EqualFunc(v.arr, other.arr, Value.Equal)
	case KindObject:
		return v.obj.Equal(other.obj)
	default:
		return v.num == other.num
	}
}

// Validate checks that this value and everything nested in it is
// representable in the persistent form. The only unrepresentable payloads
// are non-finite f64 values.
func (v Value) Validate() error {
	switch v.kind {
	case KindF64:
		f := math.Float64frombits(v.num)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite f64 %v", ErrInvalidValue, f)
		}
	case KindArray:
		for _, element := range v.arr {
			if err := element.Validate(); err != nil {
				return err
			}
		}
	case KindObject:
		for _, element := range v.obj {
			if err := element.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.num != 0 {
			return "bool(true)"
		}
		return "bool(false)"
	case KindI32:
		return fmt.Sprintf("i32(%d)", int32(v.num))
	case KindU32:
		return fmt.Sprintf("u32(%d)", uint32(v.num))
	case KindI64:
		return fmt.Sprintf("i64(%d)", int64(v.num))
	case KindU64:
		return fmt.Sprintf("u64(%d)", v.num)
	case KindF64:
		return fmt.Sprintf("f64(%v)", math.Float64frombits(v.num))
	case KindString:
		return fmt.Sprintf("str(%q)", v.str)
	case KindArray:
		return fmt.Sprintf("arr(%v)", v.arr)
	case KindObject:
		return fmt.Sprintf("obj(%v)", map[string]Value(v.obj))
	}
	return fmt.Sprintf("Value{kind:%d}", v.kind)
}

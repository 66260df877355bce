// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package boltdb

import (
	"bytes"
	"fmt"
	"math"

	"github.com/qorix-group/persistency/common"
	"github.com/vmihailenco/msgpack/v5"
)

// wireValue is the msgpack shape of one value. The kind byte keeps numeric
// widths apart, and scalar payloads travel as the raw 64-bit pattern, so an
// f64 row preserves negative zero and the exact bits of every float. Maps
// are encoded with sorted keys, which makes the row bytes, and with them the
// digest, deterministic.
type wireValue struct {
	Kind byte                 `msgpack:"k"`
	Num  uint64               `msgpack:"n,omitempty"`
	Str  string               `msgpack:"s,omitempty"`
	Arr  []wireValue          `msgpack:"a,omitempty"`
	Obj  map[string]wireValue `msgpack:"o,omitempty"`
}

func encodeDocument(data common.ValueMap) ([]byte, error) {
	document := make(map[string]wireValue, len(data))
	for key, value := range data {
		record, err := toWire(value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		document[key] = record
	}
	var buffer bytes.Buffer
	encoder := msgpack.NewEncoder(&buffer)
	encoder.SetSortMapKeys(true)
	if err := encoder.Encode(document); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidValue, err)
	}
	return buffer.Bytes(), nil
}

func decodeDocument(payload []byte) (common.ValueMap, error) {
	var document map[string]wireValue
	if err := msgpack.Unmarshal(payload, &document); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrJsonParser, err)
	}
	res := make(common.ValueMap, len(document))
	for key, record := range document {
		value, err := fromWire(record)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		res[key] = value
	}
	return res, nil
}

func toWire(value common.Value) (wireValue, error) {
	res := wireValue{Kind: byte(value.Kind())}
	switch value.Kind() {
	case common.KindNull:
	case common.KindBool:
		b, _ := value.AsBool()
		if b {
			res.Num = 1
		}
	case common.KindI32:
		n, _ := value.AsI32()
		res.Num = uint64(n)
	case common.KindU32:
		n, _ := value.AsU32()
		res.Num = uint64(n)
	case common.KindI64:
		n, _ := value.AsI64()
		res.Num = uint64(n)
	case common.KindU64:
		res.Num, _ = value.AsU64()
	case common.KindF64:
		f, _ := value.AsF64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return wireValue{}, fmt.Errorf("%w: non-finite f64 %v", common.ErrInvalidValue, f)
		}
		res.Num = math.Float64bits(f)
	case common.KindString:
		res.Str, _ = value.AsString()
	case common.KindArray:
		elements, _ := value.AsArray()
		res.Arr = make([]wireValue, len(elements))
		for i, element := range elements {
			record, err := toWire(element)
			if err != nil {
				return wireValue{}, err
			}
			res.Arr[i] = record
		}
	case common.KindObject:
		fields, _ := value.AsObject()
		res.Obj = make(map[string]wireValue, len(fields))
		for key, element := range fields {
			record, err := toWire(element)
			if err != nil {
				return wireValue{}, fmt.Errorf("key %q: %w", key, err)
			}
			res.Obj[key] = record
		}
	default:
		return wireValue{}, fmt.Errorf("%w: unknown kind %v", common.ErrInvalidValue, value.Kind())
	}
	return res, nil
}

func fromWire(record wireValue) (common.Value, error) {
	switch common.ValueKind(record.Kind) {
	case common.KindNull:
		return common.NullValue(), nil
	case common.KindBool:
		return common.BoolValue(record.Num != 0), nil
	case common.KindI32:
		n := int64(record.Num)
		if n < math.MinInt32 || n > math.MaxInt32 {
			return common.Value{}, fmt.Errorf("%w: i32 row out of range", common.ErrValidationFailed)
		}
		return common.I32Value(int32(n)), nil
	case common.KindU32:
		if record.Num > math.MaxUint32 {
			return common.Value{}, fmt.Errorf("%w: u32 row out of range", common.ErrValidationFailed)
		}
		return common.U32Value(uint32(record.Num)), nil
	case common.KindI64:
		return common.I64Value(int64(record.Num)), nil
	case common.KindU64:
		return common.U64Value(record.Num), nil
	case common.KindF64:
		f := math.Float64frombits(record.Num)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return common.Value{}, fmt.Errorf("%w: non-finite f64", common.ErrInvalidValue)
		}
		return common.F64Value(f), nil
	case common.KindString:
		return common.StringValue(record.Str), nil
	case common.KindArray:
		elements := make([]common.Value, len(record.Arr))
		for i, entry := range record.Arr {
			element, err := fromWire(entry)
			if err != nil {
				return common.Value{}, err
			}
			elements[i] = element
		}
		return common.ArrayValue(elements...), nil
	case common.KindObject:
		fields := make(common.ValueMap, len(record.Obj))
		for key, entry := range record.Obj {
			element, err := fromWire(entry)
			if err != nil {
				return common.Value{}, fmt.Errorf("key %q: %w", key, err)
			}
			fields[key] = element
		}
		return common.ObjectValue(fields), nil
	}
	return common.Value{}, fmt.Errorf("%w: unknown kind %d", common.ErrValidationFailed, record.Kind)
}

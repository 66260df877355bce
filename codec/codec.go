// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package codec converts between the in-memory value map and its persistent
// textual form.
//
// The persistent form is a single JSON document. The top level is an object
// mapping each key to a value record, and a value record is an object with
// exactly two fields: "t", the lowercase tag, and "v", the payload. Payloads
// of arrays are lists of value records, payloads of objects are objects of
// value records. Since every record carries its tag, decoding is lossless
// and distinguishes numeric widths that plain JSON would conflate.
//
// Encoding is deterministic: object keys are emitted in lexicographic byte
// order and floats use the shortest decimal representation that round-trips.
// Equal maps therefore encode to byte-identical documents, which keeps the
// checksum of a snapshot stable across runs and platforms.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/qorix-group/persistency/common"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Encode serializes the given map into its persistent form. It fails with
// ErrInvalidValue if the map contains a non-finite f64 payload.
func Encode(data common.ValueMap) ([]byte, error) {
	var buffer bytes.Buffer
	if err := encodeTopLevel(&buffer, data); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Decode parses a persistent document back into a value map. It fails with
// ErrJsonParser on malformed syntax, ErrValidationFailed on a value record
// missing its tag or carrying a payload incompatible with its tag, and
// ErrInvalidValue on a non-finite f64 payload.
func Decode(data []byte) (common.ValueMap, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var document any
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrJsonParser, err)
	}
	var tail any
	if err := decoder.Decode(&tail); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", common.ErrJsonParser)
	}

	topLevel, ok := document.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level is not an object", common.ErrValidationFailed)
	}
	res := make(common.ValueMap, len(topLevel))
	for key, record := range topLevel {
		value, err := decodeRecord(record)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		res[key] = value
	}
	return res, nil
}

func encodeTopLevel(buffer *bytes.Buffer, data common.ValueMap) error {
	keys := maps.Keys(data)
	slices.Sort(keys)
	buffer.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buffer.WriteByte(',')
		}
		if err := encodeString(buffer, key); err != nil {
			return err
		}
		buffer.WriteByte(':')
		if err := encodeRecord(buffer, data[key]); err != nil {
			return err
		}
	}
	buffer.WriteByte('}')
	return nil
}

func encodeRecord(buffer *bytes.Buffer, value common.Value) error {
	buffer.WriteString(`{"t":"`)
	buffer.WriteString(value.Kind().String())
	buffer.WriteString(`","v":`)
	if err := encodePayload(buffer, value); err != nil {
		return err
	}
	buffer.WriteByte('}')
	return nil
}

func encodePayload(buffer *bytes.Buffer, value common.Value) error {
	switch value.Kind() {
	case common.KindNull:
		buffer.WriteString("null")
	case common.KindBool:
		b, _ := value.AsBool()
		buffer.WriteString(strconv.FormatBool(b))
	case common.KindI32:
		n, _ := value.AsI32()
		buffer.WriteString(strconv.FormatInt(int64(n), 10))
	case common.KindU32:
		n, _ := value.AsU32()
		buffer.WriteString(strconv.FormatUint(uint64(n), 10))
	case common.KindI64:
		n, _ := value.AsI64()
		buffer.WriteString(strconv.FormatInt(n, 10))
	case common.KindU64:
		n, _ := value.AsU64()
		buffer.WriteString(strconv.FormatUint(n, 10))
	case common.KindF64:
		f, _ := value.AsF64()
		return encodeFloat(buffer, f)
	case common.KindString:
		s, _ := value.AsString()
		return encodeString(buffer, s)
	case common.KindArray:
		elements, _ := value.AsArray()
		buffer.WriteByte('[')
		for i, element := range elements {
			if i > 0 {
				buffer.WriteByte(',')
			}
			if err := encodeRecord(buffer, element); err != nil {
				return err
			}
		}
		buffer.WriteByte(']')
	case common.KindObject:
		fields, _ := value.AsObject()
		return encodeTopLevel(buffer, fields)
	default:
		return fmt.Errorf("%w: unknown kind %v", common.ErrInvalidValue, value.Kind())
	}
	return nil
}

// encodeFloat writes the shortest decimal representation that parses back to
// the identical bit pattern. A negative zero keeps its sign, and an integral
// float gains a trailing ".0" marker so the payload never degrades into a
// plain integer literal.
func encodeFloat(buffer *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: non-finite f64 %v", common.ErrInvalidValue, f)
	}
	repr := strconv.FormatFloat(f, 'g', -1, 64)
	if !bytes.ContainsAny([]byte(repr), ".eE") {
		repr += ".0"
	}
	buffer.WriteString(repr)
	return nil
}

func encodeString(buffer *bytes.Buffer, s string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidValue, err)
	}
	buffer.Write(encoded)
	return nil
}

func decodeRecord(record any) (common.Value, error) {
	fields, ok := record.(map[string]any)
	if !ok {
		return common.Value{}, fmt.Errorf("%w: value record is not an object", common.ErrValidationFailed)
	}
	tagField, hasTag := fields["t"]
	payload, hasPayload := fields["v"]
	if !hasTag || !hasPayload || len(fields) != 2 {
		return common.Value{}, fmt.Errorf("%w: value record must have exactly the fields t and v", common.ErrValidationFailed)
	}
	tag, ok := tagField.(string)
	if !ok {
		return common.Value{}, fmt.Errorf("%w: tag is not a string", common.ErrValidationFailed)
	}

	switch tag {
	case "null":
		if payload != nil {
			return common.Value{}, payloadError(tag)
		}
		return common.NullValue(), nil
	case "bool":
		b, ok := payload.(bool)
		if !ok {
			return common.Value{}, payloadError(tag)
		}
		return common.BoolValue(b), nil
	case "i32":
		n, err := decodeInt(payload, math.MinInt32, math.MaxInt32, tag)
		if err != nil {
			return common.Value{}, err
		}
		return common.I32Value(int32(n)), nil
	case "u32":
		n, err := decodeUint(payload, math.MaxUint32, tag)
		if err != nil {
			return common.Value{}, err
		}
		return common.U32Value(uint32(n)), nil
	case "i64":
		n, err := decodeInt(payload, math.MinInt64, math.MaxInt64, tag)
		if err != nil {
			return common.Value{}, err
		}
		return common.I64Value(n), nil
	case "u64":
		n, err := decodeUint(payload, math.MaxUint64, tag)
		if err != nil {
			return common.Value{}, err
		}
		return common.U64Value(n), nil
	case "f64":
		number, ok := payload.(json.Number)
		if !ok {
			return common.Value{}, payloadError(tag)
		}
		f, err := strconv.ParseFloat(number.String(), 64)
		if err != nil && !math.IsInf(f, 0) {
			return common.Value{}, payloadError(tag)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return common.Value{}, fmt.Errorf("%w: non-finite f64", common.ErrInvalidValue)
		}
		return common.F64Value(f), nil
	case "str":
		s, ok := payload.(string)
		if !ok {
			return common.Value{}, payloadError(tag)
		}
		return common.StringValue(s), nil
	case "arr":
		list, ok := payload.([]any)
		if !ok {
			return common.Value{}, payloadError(tag)
		}
		elements := make([]common.Value, len(list))
		for i, entry := range list {
			element, err := decodeRecord(entry)
			if err != nil {
				return common.Value{}, err
			}
			elements[i] = element
		}
		return common.ArrayValue(elements...), nil
	case "obj":
		object, ok := payload.(map[string]any)
		if !ok {
			return common.Value{}, payloadError(tag)
		}
		fields := make(common.ValueMap, len(object))
		for key, entry := range object {
			element, err := decodeRecord(entry)
			if err != nil {
				return common.Value{}, fmt.Errorf("key %q: %w", key, err)
			}
			fields[key] = element
		}
		return common.ObjectValue(fields), nil
	}
	return common.Value{}, fmt.Errorf("%w: unknown tag %q", common.ErrValidationFailed, tag)
}

func decodeInt(payload any, min, max int64, tag string) (int64, error) {
	number, ok := payload.(json.Number)
	if !ok {
		return 0, payloadError(tag)
	}
	n, err := strconv.ParseInt(number.String(), 10, 64)
	if err != nil || n < min || n > max {
		return 0, payloadError(tag)
	}
	return n, nil
}

func decodeUint(payload any, max uint64, tag string) (uint64, error) {
	number, ok := payload.(json.Number)
	if !ok {
		return 0, payloadError(tag)
	}
	n, err := strconv.ParseUint(number.String(), 10, 64)
	if err != nil || n > max {
		return 0, payloadError(tag)
	}
	return n, nil
}

func payloadError(tag string) error {
	return fmt.Errorf("%w: payload does not match tag %q", common.ErrValidationFailed, tag)
}

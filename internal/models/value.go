package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrUnsupportedValue is returned when a metadata value cannot be
// represented in the service's serialization.
var ErrUnsupportedValue = errors.New("unsupported metadata value")

type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
)

// Value is a metadata value: a string, a number, a boolean, null, or a
// nested mapping of further values. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	m    map[string]Value
}

// Metadata maps metadata keys to values.
type Metadata map[string]Value

func Null() Value                  { return Value{kind: KindNull} }
func String(s string) Value        { return Value{kind: KindString, str: s} }
func Number(f float64) Value       { return Value{kind: KindNumber, num: f} }
func Bool(b bool) Value            { return Value{kind: KindBool, b: b} }
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind { return v.kind }

// FromAny converts a dynamically-typed value into a Value. Supported inputs
// are strings, booleans, nil, all integer and float types, and
// map[string]any with supported values. Anything else fails with
// ErrUnsupportedValue.
func FromAny(value any) (Value, error) {
	switch v := value.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case float64:
		return Number(v), nil
	case float32:
		return Number(float64(v)), nil
	case int:
		return Number(float64(v)), nil
	case int8:
		return Number(float64(v)), nil
	case int16:
		return Number(float64(v)), nil
	case int32:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case uint:
		return Number(float64(v)), nil
	case uint8:
		return Number(float64(v)), nil
	case uint16:
		return Number(float64(v)), nil
	case uint32:
		return Number(float64(v)), nil
	case uint64:
		return Number(float64(v)), nil
	case map[string]any:
		m := make(map[string]Value, len(v))
		for key, item := range v {
			converted, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", key, err)
			}
			m[key] = converted
		}
		return Map(m), nil
	case Value:
		return v, nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}

// MetadataFromAny converts a dynamically-typed mapping into Metadata.
func MetadataFromAny(values map[string]any) (Metadata, error) {
	if values == nil {
		return Metadata{}, nil
	}
	metadata := make(Metadata, len(values))
	for key, value := range values {
		converted, err := FromAny(value)
		if err != nil {
			return nil, fmt.Errorf("metadata key %q: %w", key, err)
		}
		metadata[key] = converted
	}
	return metadata, nil
}

// StringValue returns the underlying string for KindString values.
func (v Value) StringValue() string { return v.str }

// NumberValue returns the underlying number for KindNumber values.
func (v Value) NumberValue() float64 { return v.num }

// BoolValue returns the underlying boolean for KindBool values.
func (v Value) BoolValue() bool { return v.b }

// MapValue returns the nested mapping for KindMap values.
func (v Value) MapValue() map[string]Value { return v.m }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindMap:
		return json.Marshal(v.m)
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnsupportedValue, v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	converted, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = converted
	return nil
}

// Keys returns the sorted keys of a metadata mapping.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

package dps

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ValueKind discriminates the variants of Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindMap:
		return "map"
	default:
		return "null"
	}
}

// Value is one raw DPS value.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	m    map[string]Value
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Map returns a nested object value.
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// FromAny converts a decoded JSON (or hand-built) Go value into a Value.
// Unknown types become their fmt representation as a string.
func FromAny(v any) Value {
	switch val := v.(type) {
	case nil:
		return Value{}
	case Value:
		return val
	case bool:
		return Bool(val)
	case int:
		return Int(int64(val))
	case int32:
		return Int(int64(val))
	case int64:
		return Int(val)
	case uint8:
		return Int(int64(val))
	case uint16:
		return Int(int64(val))
	case uint32:
		return Int(int64(val))
	case float32:
		return fromFloat(float64(val))
	case float64:
		return fromFloat(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i)
		}
		f, _ := val.Float64()
		return Float(f)
	case string:
		return String(val)
	case map[string]any:
		m := make(map[string]Value, len(val))
		for k, item := range val {
			m[k] = FromAny(item)
		}
		return Map(m)
	case map[string]Value:
		return Map(val)
	default:
		return String(fmt.Sprintf("%v", val))
	}
}

// fromFloat keeps integral floats (as produced by encoding/json) as ints.
func fromFloat(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Int(int64(f))
	}
	return Float(f)
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// AsBool returns the boolean for a KindBool value.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer for a KindInt value.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns a numeric value (int or float) as float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// AsString returns the string for a KindString value.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsMap returns the nested object for a KindMap value.
func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Truthy interprets the value as a power flag. Strings "0", "false", "off"
// and "" are false; numbers are true when non-zero.
func (v Value) Truthy() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindInt:
		return v.i != 0, true
	case KindFloat:
		return v.f != 0, true
	case KindString:
		switch v.s {
		case "", "0", "false", "False", "FALSE", "off", "OFF", "Off":
			return false, true
		}
		return true, true
	}
	return false, false
}

// Any converts the value back into plain Go types.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Any()
		}
		return out
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ", "
			}
			out += strconv.Quote(k) + ": " + v.m[k].String()
		}
		return out + "}"
	}
	return "null"
}

// MarshalJSON encodes the value as plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

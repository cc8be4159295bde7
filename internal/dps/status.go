package dps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Status is a read-only raw status payload.
type Status struct {
	values map[Key]Value
}

// FromMap builds a Status from string-keyed Go values, as decoded from JSON.
func FromMap(m map[string]any) Status {
	values := make(map[Key]Value, len(m))
	for k, v := range m {
		values[StringKey(k)] = FromAny(v)
	}
	return Status{values: values}
}

// FromAnyMap builds a Status from a map whose keys may be strings or ints.
func FromAnyMap(m map[any]any) Status {
	values := make(map[Key]Value, len(m))
	for k, v := range m {
		switch key := k.(type) {
		case int:
			values[IntKey(key)] = FromAny(v)
		case string:
			values[StringKey(key)] = FromAny(v)
		default:
			values[StringKey(fmt.Sprintf("%v", key))] = FromAny(v)
		}
	}
	return Status{values: values}
}

// ParseJSON decodes a JSON object into a Status. A top-level {"dps": {...}}
// envelope is unwrapped.
func ParseJSON(data []byte) (Status, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Status{}, fmt.Errorf("failed to decode status payload: %w", err)
	}
	if inner, ok := raw["dps"].(map[string]any); ok {
		raw = inner
	}
	return FromMap(raw), nil
}

// Len returns the number of entries.
func (s Status) Len() int {
	return len(s.values)
}

// Get returns the value stored under exactly k.
func (s Status) Get(k Key) (Value, bool) {
	v, ok := s.values[k]
	return v, ok
}

// Find returns the value under k, probing the alternate spelling of a
// numeric key as well. The key actually present is returned.
func (s Status) Find(k Key) (Key, Value, bool) {
	if v, ok := s.values[k]; ok {
		return k, v, true
	}
	if alt, ok := k.Alternate(); ok {
		if v, ok := s.values[alt]; ok {
			return alt, v, true
		}
	}
	return Key{}, Value{}, false
}

// Lookup returns the first alias present in the status.
func (s Status) Lookup(aliases []Key) (Key, Value, bool) {
	for _, alias := range aliases {
		if k, v, ok := s.Find(alias); ok {
			return k, v, true
		}
	}
	return Key{}, Value{}, false
}

// Resolve returns the value for a logical field using its alias table.
func (s Status) Resolve(f Field) (Key, Value, bool) {
	return s.Lookup(Aliases(f))
}

// Keys returns the keys in a stable order: numeric keys ascending, then names.
func (s Status) Keys() []Key {
	keys := make([]Key, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, iNum := numericOrder(keys[i])
		nj, jNum := numericOrder(keys[j])
		switch {
		case iNum && jNum:
			if ni != nj {
				return ni < nj
			}
			return keys[i].IsInt() && !keys[j].IsInt()
		case iNum != jNum:
			return iNum
		}
		return keys[i].String() < keys[j].String()
	})
	return keys
}

func numericOrder(k Key) (int, bool) {
	if k.IsInt() {
		return k.num, true
	}
	n, err := strconv.Atoi(k.name)
	return n, err == nil
}

// Map returns the payload as a plain string-keyed map.
func (s Status) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k.String()] = v.Any()
	}
	return out
}

// MarshalJSON encodes the status as a JSON object.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

func (s Status) String() string {
	parts := make([]string, 0, len(s.values))
	for _, k := range s.Keys() {
		parts = append(parts, strconv.Quote(k.String())+": "+s.values[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Package dps models the raw data-point set (DPS) a Tuya device reports.
//
// Payloads are loosely typed: keys arrive as strings or small integers, and
// values as booleans, numbers, strings or nested objects depending on the
// firmware. Status and Value hold that payload as a tagged variant so the
// conversion into a typed state happens in a single place.
package dps

import "strconv"

// Key is a DPS key. Firmwares use either a name ("colour_data") or a small
// integer ("24" or 24).
type Key struct {
	name    string
	num     int
	numeric bool
}

// StringKey returns a string-form key.
func StringKey(s string) Key {
	return Key{name: s}
}

// IntKey returns an integer-form key.
func IntKey(n int) Key {
	return Key{num: n, numeric: true}
}

// IsInt reports whether the key is in integer form.
func (k Key) IsInt() bool {
	return k.numeric
}

func (k Key) String() string {
	if k.numeric {
		return strconv.Itoa(k.num)
	}
	return k.name
}

// Alternate returns the other spelling of a numeric key: IntKey(24) for
// StringKey("24") and vice versa. Non-numeric string keys have none.
func (k Key) Alternate() (Key, bool) {
	if k.numeric {
		return StringKey(strconv.Itoa(k.num)), true
	}
	n, err := strconv.Atoi(k.name)
	if err != nil || strconv.Itoa(n) != k.name {
		return Key{}, false
	}
	return IntKey(n), true
}

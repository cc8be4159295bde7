package state

import (
	"math"
	"strconv"
	"strings"

	"github.com/dokzlo13/tuyactl/internal/dps"
)

const (
	// MaxLevel is the top of the canonical brightness scale.
	MaxLevel = 1000
	// maxNative is the widest native scale observed (12 bit).
	maxNative = 4095
)

// CoerceLevel converts a raw brightness-like value to the canonical 0-1000
// scale. Strings are parsed as decimal, then as bare hex. Values above 4095
// are masked to their low 12 bits, and the result is clamped to 0-1000.
func CoerceLevel(v dps.Value) (int, bool) {
	n, ok := coerceInt(v)
	if !ok {
		return 0, false
	}
	return clampLevel64(n), true
}

// ClampLevel applies the CoerceLevel range rules to an integer.
func ClampLevel(n int) int {
	return clampLevel64(int64(n))
}

func clampLevel64(n int64) int {
	if n > maxNative {
		n &= maxNative
	}
	switch {
	case n < 0:
		return 0
	case n > MaxLevel:
		return MaxLevel
	}
	return int(n)
}

// CoerceRaw parses an integer in raw device units without rescaling.
func CoerceRaw(v dps.Value) (int, bool) {
	n, ok := coerceInt(v)
	if !ok || n < 0 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

func coerceInt(v dps.Value) (int64, bool) {
	switch v.Kind() {
	case dps.KindInt:
		n, _ := v.AsInt()
		return n, true
	case dps.KindFloat:
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(math.Round(f)), true
	case dps.KindString:
		s, _ := v.AsString()
		return parseLevelString(s)
	}
	return 0, false
}

func parseLevelString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if !isHex(s) {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 16, 63)
	if err != nil {
		return 0, false
	}
	return int64(n), true
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

package color

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrFormat is returned when a hex string does not match the expected encoding.
	ErrFormat = errors.New("malformed colour encoding")
	// ErrDecode is returned when no supported encoding matches a colour string.
	ErrDecode = errors.New("unable to decode colour")
)

const (
	packedDigits = 12
	rgbDigits    = 6
)

// EncodeHex formats an RGB triplet as lower-case "#rrggbb".
func EncodeHex(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// DecodePackedHex parses the "hhhhssssvvvv" encoding.
func DecodePackedHex(s string) (Color, error) {
	h, sat, v, err := decodePacked(clean(s))
	if err != nil {
		return Color{}, err
	}
	return New(float64(h), float64(sat)/1000, float64(v)/1000), nil
}

// DecodeRGBHex parses "rrggbb" (with optional leading '#').
// Digits past the sixth are ignored.
func DecodeRGBHex(s string) (r, g, b uint8, err error) {
	hex := clean(s)
	if len(hex) < rgbDigits {
		return 0, 0, 0, fmt.Errorf("%w: %q is shorter than %d hex digits", ErrFormat, s, rgbDigits)
	}
	var ch [3]uint8
	for i := range ch {
		n, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrFormat, s)
		}
		ch[i] = uint8(n)
	}
	return ch[0], ch[1], ch[2], nil
}

// Decode parses a colour string, trying the packed form before the RGB form.
// For the packed form the value channel is also returned on the 0-1000 scale.
func Decode(s string) (c Color, embedded *int, err error) {
	hex := clean(s)

	if len(hex) >= packedDigits {
		if h, sat, v, err := decodePacked(hex); err == nil {
			value := int(math.Min(float64(v), 1000))
			return New(float64(h), float64(sat)/1000, float64(v)/1000), &value, nil
		}
	}

	r, g, b, err := DecodeRGBHex(hex)
	if err != nil {
		return Color{}, nil, fmt.Errorf("%w: %q", ErrDecode, s)
	}
	return FromRGB(r, g, b), nil, nil
}

func decodePacked(hex string) (h, s, v uint64, err error) {
	if len(hex) < packedDigits {
		return 0, 0, 0, fmt.Errorf("%w: %q is shorter than %d hex digits", ErrFormat, hex, packedDigits)
	}
	var groups [3]uint64
	for i := range groups {
		groups[i], err = strconv.ParseUint(hex[i*4:i*4+4], 16, 16)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrFormat, hex)
		}
	}
	return groups[0], groups[1], groups[2], nil
}

// clean strips a leading '#' and any spaces.
func clean(s string) string {
	return strings.ReplaceAll(strings.TrimLeft(strings.TrimSpace(s), "#"), " ", "")
}

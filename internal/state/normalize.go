package state

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dokzlo13/tuyactl/internal/color"
	"github.com/dokzlo13/tuyactl/internal/devices"
	"github.com/dokzlo13/tuyactl/internal/dps"
)

// FieldError reports a single raw field that could not be interpreted.
type FieldError struct {
	Field dps.Field
	Key   dps.Key
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s (key %q): %v", e.Field, e.Key.String(), e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

var errUnsupportedValue = errors.New("unsupported value")

// Normalize derives the canonical state of a device from its raw status.
//
// The returned State is always valid. A non-nil error joins one *FieldError
// per field that was present but could not be decoded; those fields are left
// unset. A missing power key leaves Power unknown and is not an error.
func Normalize(raw dps.Status, kind devices.Kind) (State, error) {
	var st State
	var errs []error

	if k, v, ok := raw.Resolve(dps.FieldPower); ok {
		if on, ok := v.Truthy(); ok {
			st.Power = Bool(on)
		} else {
			errs = append(errs, fieldError(dps.FieldPower, k, v))
		}
	}

	if kind == devices.KindPlug {
		return st, errors.Join(errs...)
	}

	st.Mode = ModeColour
	if k, v, ok := raw.Resolve(dps.FieldMode); ok {
		if s, ok := v.AsString(); ok {
			st.Mode = ParseMode(s)
		} else {
			errs = append(errs, fieldError(dps.FieldMode, k, v))
		}
	}

	if st.Mode == ModeColour {
		errs = append(errs, normalizeColour(raw, &st)...)
	} else {
		errs = append(errs, normalizeWhite(raw, &st)...)
	}

	return st, errors.Join(errs...)
}

func normalizeColour(raw dps.Status, st *State) []error {
	var errs []error

	if k, v, ok := raw.Resolve(dps.FieldColour); ok {
		c, embedded, err := DecodeColour(v)
		if err != nil {
			errs = append(errs, &FieldError{Field: dps.FieldColour, Key: k, Err: err})
		} else {
			st.Color = &c
			st.ColorValue = embedded
		}
	}

	if k, v, ok := raw.Resolve(dps.FieldBrightness); ok {
		if n, ok := CoerceLevel(v); ok {
			st.BrightnessValue = Int(n)
		} else {
			errs = append(errs, fieldError(dps.FieldBrightness, k, v))
		}
	}

	// A zero brightness key is treated as unset when the colour carries its own value.
	if st.ColorValue != nil && (st.BrightnessValue == nil || *st.BrightnessValue == 0) {
		st.BrightnessValue = Int(*st.ColorValue)
	}

	return errs
}

func normalizeWhite(raw dps.Status, st *State) []error {
	var errs []error

	if k, v, ok := raw.Resolve(dps.FieldBrightness); ok {
		if n, ok := CoerceLevel(v); ok {
			st.Brightness = Int(n)
		} else {
			errs = append(errs, fieldError(dps.FieldBrightness, k, v))
		}
	}

	if k, v, ok := raw.Resolve(dps.FieldTemperature); ok {
		if n, ok := CoerceRaw(v); ok {
			st.ColorTemp = Int(n)
		} else {
			errs = append(errs, fieldError(dps.FieldTemperature, k, v))
		}
	}

	return errs
}

// DecodeColour decodes a raw colour value: a packed or RGB hex string, or an
// object with h/s/v or r/g/b components. The embedded value is only returned
// for the packed string form.
func DecodeColour(v dps.Value) (color.Color, *int, error) {
	if s, ok := v.AsString(); ok {
		return color.Decode(s)
	}

	m, ok := v.AsMap()
	if !ok {
		return color.Color{}, nil, fmt.Errorf("%w: %s value", color.ErrDecode, v.Kind())
	}

	if h, s, val, ok := components(m, "h", "s", "v"); ok {
		return color.FromLooseHSV(h, s, val), nil, nil
	}
	if r, g, b, ok := components(m, "r", "g", "b"); ok {
		return color.FromRGB(toChannel(r), toChannel(g), toChannel(b)), nil, nil
	}
	return color.Color{}, nil, fmt.Errorf("%w: %s", color.ErrDecode, v.String())
}

func components(m map[string]dps.Value, a, b, c string) (float64, float64, float64, bool) {
	x, ok1 := number(m, a)
	y, ok2 := number(m, b)
	z, ok3 := number(m, c)
	return x, y, z, ok1 && ok2 && ok3
}

func number(m map[string]dps.Value, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	if f, ok := v.AsFloat(); ok {
		return f, true
	}
	if s, ok := v.AsString(); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return 0, false
}

func toChannel(f float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(f))))
}

func fieldError(f dps.Field, k dps.Key, v dps.Value) error {
	return &FieldError{Field: f, Key: k, Err: fmt.Errorf("%w: %s", errUnsupportedValue, v.String())}
}

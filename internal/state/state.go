// Package state defines the canonical, firmware-independent device state and
// the normalizer that derives it from a raw DPS payload.
package state

import (
	"errors"

	"github.com/dokzlo13/tuyactl/internal/color"
	"github.com/dokzlo13/tuyactl/internal/devices"
)

// Mode is a bulb's operating mode.
type Mode string

const (
	ModeColour Mode = "colour"
	ModeWhite  Mode = "white"
)

// ParseMode maps a raw mode string onto a Mode. "color" is accepted as a
// spelling of colour; anything else is treated as white.
func ParseMode(s string) Mode {
	switch s {
	case "colour", "color":
		return ModeColour
	}
	return ModeWhite
}

// State is the canonical state of one device.
// Levels are on the 0-1000 scale; ColorTemp is in raw device units.
type State struct {
	Power *bool `json:"on,omitempty"` // nil = unknown
	Mode  Mode  `json:"mode,omitempty"`

	// colour mode
	Color           *color.Color `json:"color,omitempty"`
	BrightnessValue *int         `json:"value,omitempty"`
	ColorValue      *int         `json:"color_value,omitempty"` // value channel embedded in a packed colour

	// white mode
	Brightness *int `json:"brightness,omitempty"`
	ColorTemp  *int `json:"temp,omitempty"`
}

var (
	errBothModes  = errors.New("state carries both colour and white fields")
	errPlugFields = errors.New("plug state carries bulb fields")
)

func (s State) hasColourFields() bool {
	return s.Color != nil || s.BrightnessValue != nil || s.ColorValue != nil
}

func (s State) hasWhiteFields() bool {
	return s.Brightness != nil || s.ColorTemp != nil
}

// Validate checks the mode-exclusivity invariant for the given kind.
func (s State) Validate(kind devices.Kind) error {
	if kind == devices.KindPlug {
		if s.Mode != "" || s.hasColourFields() || s.hasWhiteFields() {
			return errPlugFields
		}
		return nil
	}
	if s.hasColourFields() && s.hasWhiteFields() {
		return errBothModes
	}
	return nil
}

// EffectiveBrightness returns the brightness to apply in colour mode: the
// explicit value, or the colour's embedded value when the explicit one is
// missing or zero.
func (s State) EffectiveBrightness() (int, bool) {
	if s.BrightnessValue != nil && *s.BrightnessValue != 0 {
		return *s.BrightnessValue, true
	}
	if s.ColorValue != nil {
		return *s.ColorValue, true
	}
	if s.BrightnessValue != nil {
		return 0, true
	}
	return 0, false
}

// Kelvin returns the colour temperature in Kelvin, or 0 when unknown.
func (s State) Kelvin() int {
	if s.ColorTemp == nil {
		return 0
	}
	return RawToKelvin(*s.ColorTemp)
}

// Normalized returns a copy with every level passed through CoerceLevel.
func (s State) Normalized() State {
	out := s
	out.BrightnessValue = normalizePtr(s.BrightnessValue)
	out.ColorValue = normalizePtr(s.ColorValue)
	out.Brightness = normalizePtr(s.Brightness)
	return out
}

func normalizePtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := ClampLevel(*p)
	return &v
}

// KelvinToRaw converts Kelvin to the raw device unit (1e6 / K).
// Zero Kelvin yields 0.
func KelvinToRaw(kelvin int) int {
	if kelvin == 0 {
		return 0
	}
	return 1_000_000 / kelvin
}

// RawToKelvin converts a raw device temperature to Kelvin. Zero yields 0.
func RawToKelvin(raw int) int {
	if raw == 0 {
		return 0
	}
	return 1_000_000 / raw
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

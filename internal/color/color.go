// Package color converts between RGB, HSV and the hex colour encodings
// reported by Tuya bulb firmwares.
package color

import (
	"encoding/json"
	"fmt"
	"math"
)

// Color is a colour in HSV space.
// H is in degrees [0,360), S and V are in [0,1].
type Color struct {
	H float64
	S float64
	V float64
}

// New returns a Color with every component clamped to its range.
func New(h, s, v float64) Color {
	return Color{H: wrapHue(h), S: clamp01(s), V: clamp01(v)}
}

// FromRGB converts an RGB triplet to HSV.
func FromRGB(r, g, b uint8) Color {
	rf := float64(r) / 255
	gf := float64(g) / 255
	bf := float64(b) / 255

	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	delta := maxC - minC

	c := Color{V: maxC}
	if maxC == 0 || delta == 0 {
		return c
	}
	c.S = delta / maxC

	var h float64
	switch maxC {
	case rf:
		h = (gf - bf) / delta
	case gf:
		h = 2 + (bf-rf)/delta
	default:
		h = 4 + (rf-gf)/delta
	}
	c.H = wrapHue(h * 60)
	return c
}

// FromHSVPercent builds a Color from CLI style input: hue in degrees,
// saturation and value in percent.
func FromHSVPercent(h, s, v int) Color {
	return New(float64(h), float64(s)/100, float64(v)/100)
}

// FromLooseHSV accepts components in whichever scale a firmware used:
// hue either normalized (<= 1) or in degrees, saturation and value either
// normalized (<= 1) or on the 0-1000 scale.
func FromLooseHSV(h, s, v float64) Color {
	if h <= 1 {
		h *= 360
	}
	if s > 1 {
		s /= 1000
	}
	if v > 1 {
		v /= 1000
	}
	return New(h, s, v)
}

// RGB converts the colour to an RGB triplet, rounding each channel.
func (c Color) RGB() (r, g, b uint8) {
	h := wrapHue(c.H)
	s := clamp01(c.S)
	v := clamp01(c.V)

	if s == 0 {
		x := toByte(v)
		return x, x, x
	}

	hh := h / 60
	i := int(hh)
	ff := hh - float64(i)
	p := v * (1 - s)
	q := v * (1 - s*ff)
	t := v * (1 - s*(1-ff))

	var rr, gg, bb float64
	switch i {
	case 0:
		rr, gg, bb = v, t, p
	case 1:
		rr, gg, bb = q, v, p
	case 2:
		rr, gg, bb = p, v, t
	case 3:
		rr, gg, bb = p, q, v
	case 4:
		rr, gg, bb = t, p, v
	default:
		rr, gg, bb = v, p, q
	}
	return toByte(rr), toByte(gg), toByte(bb)
}

// Hex returns the colour as "#rrggbb".
func (c Color) Hex() string {
	return EncodeHex(c.RGB())
}

// PackedHex returns the 12 digit "hhhhssssvvvv" encoding.
func (c Color) PackedHex() string {
	h := int(math.Round(wrapHue(c.H)))
	if h >= 360 {
		h = 0
	}
	s := int(math.Round(clamp01(c.S) * 1000))
	v := int(math.Round(clamp01(c.V) * 1000))
	return fmt.Sprintf("%04x%04x%04x", h, s, v)
}

// Value returns the value channel on the 0-1000 scale.
func (c Color) Value() int {
	return int(math.Round(clamp01(c.V) * 1000))
}

// WithHue returns a copy with the hue replaced (degrees).
func (c Color) WithHue(h float64) Color {
	return New(h, c.S, c.V)
}

// WithSaturation returns a copy with the saturation replaced.
func (c Color) WithSaturation(s float64) Color {
	return New(c.H, s, c.V)
}

// WithValue returns a copy with the value replaced.
func (c Color) WithValue(v float64) Color {
	return New(c.H, c.S, v)
}

func (c Color) String() string {
	return c.Hex()
}

// MarshalJSON encodes the colour as "#rrggbb".
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// UnmarshalJSON accepts "#rrggbb", a packed "hhhhssssvvvv" string, or an
// object carrying h/s/v or r/g/b components.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		decoded, _, err := Decode(s)
		if err != nil {
			return err
		}
		*c = decoded
		return nil
	}

	var obj map[string]float64
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: %s", ErrDecode, string(data))
	}
	if hasAll(obj, "h", "s", "v") {
		*c = FromLooseHSV(obj["h"], obj["s"], obj["v"])
		return nil
	}
	if hasAll(obj, "r", "g", "b") {
		*c = FromRGB(clampByte(obj["r"]), clampByte(obj["g"]), clampByte(obj["b"]))
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDecode, string(data))
}

func hasAll(m map[string]float64, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}

func wrapHue(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

func toByte(x float64) uint8 {
	return clampByte(x * 255)
}

func clampByte(x float64) uint8 {
	x = math.Round(x)
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 255:
		return 255
	}
	return uint8(x)
}

package control

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tuyactl/internal/color"
	"github.com/dokzlo13/tuyactl/internal/devices"
	"github.com/dokzlo13/tuyactl/internal/dps"
	"github.com/dokzlo13/tuyactl/internal/reconcile"
	"github.com/dokzlo13/tuyactl/internal/state"
	"github.com/dokzlo13/tuyactl/internal/transport"
)

// Channel is one HSV component.
type Channel int

const (
	ChannelHue Channel = iota
	ChannelSaturation
	ChannelValue
)

// ParseChannel accepts h/hue, s/sat and v/val.
func ParseChannel(s string) (Channel, bool) {
	switch s {
	case "h", "hue":
		return ChannelHue, true
	case "s", "sat":
		return ChannelSaturation, true
	case "v", "val":
		return ChannelValue, true
	}
	return 0, false
}

func (ch Channel) String() string {
	switch ch {
	case ChannelHue:
		return "hue"
	case ChannelSaturation:
		return "saturation"
	default:
		return "value"
	}
}

// Reading is a device's raw status and the state derived from it.
type Reading struct {
	Device devices.DeviceConfig
	Raw    dps.Status
	State  state.State
	// Warning joins the fields that could not be decoded.
	Warning error
}

// Power turns a device on or off and returns its resolved name.
func (c *Controller) Power(ctx context.Context, raw string, on bool) (string, error) {
	command := "off"
	if on {
		command = "on"
	}
	cfg, err := c.run(ctx, raw, command, nil, func(_ devices.DeviceConfig, dev transport.Device) error {
		if on {
			return dev.TurnOn(ctx)
		}
		return dev.TurnOff(ctx)
	})
	return cfg.Name, err
}

// SetHSV sets an absolute colour: hue 0-360, saturation and value 0-100.
func (c *Controller) SetHSV(ctx context.Context, raw string, h, s, v int) (string, color.Color, error) {
	if err := checkRange("hue", h, 0, 360); err != nil {
		return "", color.Color{}, err
	}
	if err := checkRange("saturation", s, 0, 100); err != nil {
		return "", color.Color{}, err
	}
	if err := checkRange("value", v, 0, 100); err != nil {
		return "", color.Color{}, err
	}

	col := color.FromHSVPercent(h, s, v)
	args := map[string]any{"h": h, "s": s, "v": v}
	cfg, err := c.run(ctx, raw, "hsv", args, func(cfg devices.DeviceConfig, dev transport.Device) error {
		return setColour(ctx, cfg, dev, col)
	})
	return cfg.Name, col, err
}

// AdjustChannel replaces one HSV channel, reading the others from the device.
// Hue is in degrees, saturation and value in percent.
func (c *Controller) AdjustChannel(ctx context.Context, raw string, ch Channel, n int) (string, color.Color, error) {
	limit := 100
	if ch == ChannelHue {
		limit = 360
	}
	if err := checkRange(ch.String(), n, 0, limit); err != nil {
		return "", color.Color{}, err
	}

	var col color.Color
	args := map[string]any{"channel": ch.String(), "value": n}
	cfg, err := c.run(ctx, raw, "adjust", args, func(cfg devices.DeviceConfig, dev transport.Device) error {
		current, err := currentColour(ctx, dev)
		if err != nil {
			return err
		}
		switch ch {
		case ChannelHue:
			col = current.WithHue(float64(n))
		case ChannelSaturation:
			col = current.WithSaturation(float64(n) / 100)
		default:
			col = current.WithValue(float64(n) / 100)
		}
		log.Debug().Str("device", cfg.Name).Str("from", current.Hex()).Str("to", col.Hex()).Msg("Adjusting colour")
		return setColour(ctx, cfg, dev, col)
	})
	return cfg.Name, col, err
}

// SetTemperature sets the white colour temperature from Kelvin and returns
// the raw value sent (1e6 / K, 0 for 0 K).
func (c *Controller) SetTemperature(ctx context.Context, raw string, kelvin int) (string, int, error) {
	if kelvin < 0 {
		return "", 0, fmt.Errorf("%w: negative kelvin %d", ErrInvalidArgument, kelvin)
	}
	rawTemp := state.KelvinToRaw(kelvin)
	args := map[string]any{"kelvin": kelvin, "raw": rawTemp}
	cfg, err := c.run(ctx, raw, "temp", args, func(cfg devices.DeviceConfig, dev transport.Device) error {
		if !dev.Capabilities().Has(transport.CapColourTemp) {
			return transport.Unsupported(cfg.Name, transport.CapColourTemp)
		}
		return dev.SetColorTemperature(ctx, rawTemp)
	})
	return cfg.Name, rawTemp, err
}

// SetBrightness sets brightness from a 0-100 percentage and returns the
// device-native level sent.
func (c *Controller) SetBrightness(ctx context.Context, raw string, percent int) (string, int, error) {
	if err := checkRange("brightness", percent, 0, 100); err != nil {
		return "", 0, err
	}
	var native int
	args := map[string]any{"percent": percent}
	cfg, err := c.run(ctx, raw, "brightness", args, func(cfg devices.DeviceConfig, dev transport.Device) error {
		if !dev.Capabilities().Has(transport.CapBrightness) {
			return transport.Unsupported(cfg.Name, transport.CapBrightness)
		}
		native = reconcile.NativeBrightness(percent*state.MaxLevel/100, cfg.BrightnessRange())
		return dev.SetBrightness(ctx, native)
	})
	return cfg.Name, native, err
}

// Get reads a device and normalizes its status.
func (c *Controller) Get(ctx context.Context, raw string) (Reading, error) {
	var reading Reading
	cfg, err := c.run(ctx, raw, "get", nil, func(cfg devices.DeviceConfig, dev transport.Device) error {
		var err error
		reading, err = c.read(ctx, cfg, dev)
		return err
	})
	reading.Device = cfg
	return reading, err
}

func (c *Controller) read(ctx context.Context, cfg devices.DeviceConfig, dev transport.Device) (Reading, error) {
	status, err := dev.ReadStatus(ctx)
	if err != nil {
		return Reading{}, err
	}
	st, warn := state.Normalize(status, cfg.Kind)
	if warn != nil {
		log.Warn().Err(warn).Str("device", cfg.Name).Msg("Partially decoded status")
	}
	c.remember(cfg.Name, st)
	return Reading{Device: cfg, Raw: status, State: st, Warning: warn}, nil
}

func currentColour(ctx context.Context, dev transport.Device) (color.Color, error) {
	status, err := dev.ReadStatus(ctx)
	if err != nil {
		return color.Color{}, err
	}
	_, v, ok := status.Resolve(dps.FieldColour)
	if !ok {
		return color.Color{}, ErrNoColour
	}
	col, _, err := state.DecodeColour(v)
	if err != nil {
		return color.Color{}, fmt.Errorf("%w: %w", ErrNoColour, err)
	}
	return col, nil
}

func setColour(ctx context.Context, cfg devices.DeviceConfig, dev transport.Device, col color.Color) error {
	if !dev.Capabilities().Has(transport.CapColour) {
		return transport.Unsupported(cfg.Name, transport.CapColour)
	}
	r, g, b := col.RGB()
	return dev.SetColor(ctx, r, g, b)
}

// Package reconcile drives devices toward a canonical state.
package reconcile

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tuyactl/internal/devices"
	"github.com/dokzlo13/tuyactl/internal/state"
	"github.com/dokzlo13/tuyactl/internal/transport"
)

// Applier issues the commands that realize a canonical state on a device.
type Applier struct{}

// NewApplier creates a new state applier.
func NewApplier() *Applier {
	return &Applier{}
}

// Apply realizes st on dev. Commands the device has no capability for are
// skipped. The first failing command aborts the sequence for this device.
func (a *Applier) Apply(ctx context.Context, dev transport.Device, cfg devices.DeviceConfig, st state.State) error {
	caps := dev.Capabilities()
	logger := log.With().Str("device", cfg.Name).Logger()

	if st.Power != nil && caps.Has(transport.CapPower) {
		logger.Debug().Bool("on", *st.Power).Msg("Applying power")
		var err error
		if *st.Power {
			err = dev.TurnOn(ctx)
		} else {
			err = dev.TurnOff(ctx)
		}
		if err != nil {
			return err
		}
	}

	if cfg.Kind == devices.KindPlug {
		return nil
	}

	switch modeOf(st) {
	case state.ModeColour:
		if st.Color != nil && caps.Has(transport.CapColour) {
			r, g, b := st.Color.RGB()
			logger.Debug().Str("color", st.Color.Hex()).Msg("Applying colour")
			if err := dev.SetColor(ctx, r, g, b); err != nil {
				return err
			}
		}
		if level, ok := st.EffectiveBrightness(); ok && caps.Has(transport.CapBrightness) {
			if err := a.setBrightness(ctx, dev, cfg, level); err != nil {
				return err
			}
		}

	case state.ModeWhite:
		if st.Brightness != nil && caps.Has(transport.CapBrightness) {
			if err := a.setBrightness(ctx, dev, cfg, *st.Brightness); err != nil {
				return err
			}
		}
		if st.ColorTemp != nil && caps.Has(transport.CapColourTemp) {
			logger.Debug().Int("temp", *st.ColorTemp).Msg("Applying colour temperature")
			if err := dev.SetColorTemperature(ctx, *st.ColorTemp); err != nil {
				return err
			}
		}
	}

	return nil
}

func (a *Applier) setBrightness(ctx context.Context, dev transport.Device, cfg devices.DeviceConfig, level int) error {
	native := NativeBrightness(level, cfg.BrightnessRange())
	log.Debug().
		Str("device", cfg.Name).
		Int("level", level).
		Int("native", native).
		Msg("Applying brightness")
	return dev.SetBrightness(ctx, native)
}

// modeOf returns the state's mode, inferring it from the populated fields
// when the mode itself was not recorded.
func modeOf(st state.State) state.Mode {
	if st.Mode != "" {
		return st.Mode
	}
	if st.Brightness != nil || st.ColorTemp != nil {
		return state.ModeWhite
	}
	return state.ModeColour
}

// NativeBrightness converts a canonical 0-1000 level to a device range.
func NativeBrightness(level int, r devices.Range) int {
	level = state.ClampLevel(level)
	native := int(math.Round(float64(level) * float64(r.Max) / state.MaxLevel))
	if native < r.Min {
		native = r.Min
	}
	if native > r.Max {
		native = r.Max
	}
	return native
}

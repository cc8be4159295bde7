package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tuyactl/internal/devices"
	"github.com/dokzlo13/tuyactl/internal/preset"
	"github.com/dokzlo13/tuyactl/internal/reconcile"
)

// Snapshot reads every registered device. Devices that fail to answer are
// reported in the result and left out of the preset.
func (c *Controller) Snapshot(ctx context.Context) (preset.Preset, *reconcile.Result) {
	out := make(preset.Preset, c.registry.Len())

	res := c.batch.Run(ctx, c.registry.Names(), func(ctx context.Context, name string) error {
		cfg, _ := c.registry.Get(name)
		dev, err := c.dialer.Dial(ctx, cfg)
		if err != nil {
			return err
		}
		reading, err := c.read(ctx, cfg, dev)
		if err != nil {
			return err
		}
		out[name] = reading.State
		return nil
	})
	return out, res
}

// SavePreset snapshots all devices and writes the preset. The preset is
// written when at least one device answered or the registry is empty.
func (c *Controller) SavePreset(ctx context.Context, id string) (string, *reconcile.Result, error) {
	if err := preset.ValidateName(id); err != nil {
		return "", nil, err
	}
	p, res := c.Snapshot(ctx)
	if len(p) == 0 && c.registry.Len() > 0 {
		return "", res, fmt.Errorf("no device answered: %w", res.Err())
	}

	path, err := c.presets.Save(id, p)
	if err != nil {
		return "", res, err
	}
	log.Info().Str("preset", id).Str("path", path).Int("devices", len(p)).Str("batch", res.ID).Msg("Preset saved")
	return path, res, nil
}

// LoadPreset applies a stored preset. Entries naming devices that are not
// registered are skipped, as are plugs when plug application is disabled.
func (c *Controller) LoadPreset(ctx context.Context, id string) (*reconcile.Result, error) {
	p, err := c.presets.Load(id)
	if err != nil {
		return nil, err
	}

	res := c.batch.Run(ctx, p.Names(), func(ctx context.Context, name string) error {
		cfg, err := c.registry.Resolve(name)
		if errors.Is(err, devices.ErrUnknownDevice) {
			log.Info().Str("device", name).Str("preset", id).Msg("Skipping device not in registry")
			return reconcile.ErrSkipped
		}
		if err != nil {
			return err
		}
		if cfg.Kind == devices.KindPlug && !c.opts.ApplyPlugs {
			return reconcile.ErrSkipped
		}

		st := p[name]
		if verr := st.Validate(cfg.Kind); verr != nil {
			log.Warn().Err(verr).Str("device", cfg.Name).Msg("Preset entry inconsistent, applying anyway")
		}

		dev, err := c.dialer.Dial(ctx, cfg)
		if err == nil {
			err = c.applier.Apply(ctx, dev, cfg, st)
		}
		c.record(ctx, cfg.Name, "load_preset", map[string]any{"preset": id}, err)
		return err
	})
	return res, nil
}

// Broadcast switches every registered device on or off.
func (c *Controller) Broadcast(ctx context.Context, on bool) *reconcile.Result {
	command := "all_off"
	if on {
		command = "all_on"
	}
	return c.batch.Run(ctx, c.registry.Names(), func(ctx context.Context, name string) error {
		cfg, _ := c.registry.Get(name)
		dev, err := c.dialer.Dial(ctx, cfg)
		if err == nil {
			if on {
				err = dev.TurnOn(ctx)
			} else {
				err = dev.TurnOff(ctx)
			}
		}
		c.record(ctx, cfg.Name, command, nil, err)
		return err
	})
}

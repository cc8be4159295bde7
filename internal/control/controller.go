// Package control implements the user-facing device operations.
package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tuyactl/internal/devices"
	"github.com/dokzlo13/tuyactl/internal/ledger"
	"github.com/dokzlo13/tuyactl/internal/preset"
	"github.com/dokzlo13/tuyactl/internal/reconcile"
	"github.com/dokzlo13/tuyactl/internal/state"
	"github.com/dokzlo13/tuyactl/internal/transport"
)

var (
	// ErrInvalidArgument is returned for out-of-range command arguments.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoColour is returned when a channel adjustment cannot read the current colour.
	ErrNoColour = errors.New("unable to determine current colour")
)

// History receives one entry per executed device command.
type History interface {
	AppendWithSource(eventType ledger.EventType, device, source, batchID string, payload map[string]any) error
}

// StateCache remembers the last state read from each device.
type StateCache interface {
	Set(id string, value state.State) error
}

// Options tune the controller.
type Options struct {
	ApplyPlugs bool    // apply preset entries to plugs
	RateLimit  float64 // devices per second in multi-device actions, 0 = unlimited
	Source     string  // recorded in history, e.g. "cli" or "lua"
}

// Controller runs commands against the devices in a registry.
type Controller struct {
	registry *devices.Registry
	dialer   transport.Dialer
	presets  *preset.Store
	applier  *reconcile.Applier
	batch    *reconcile.Batch
	opts     Options

	history History
	cache   StateCache
}

// New creates a controller.
func New(registry *devices.Registry, dialer transport.Dialer, presets *preset.Store, opts Options) *Controller {
	return &Controller{
		registry: registry,
		dialer:   dialer,
		presets:  presets,
		applier:  reconcile.NewApplier(),
		batch:    reconcile.NewBatch(opts.RateLimit),
		opts:     opts,
	}
}

// SetHistory enables command history.
func (c *Controller) SetHistory(h History) {
	c.history = h
}

// SetStateCache enables the last-known state cache.
func (c *Controller) SetStateCache(cache StateCache) {
	c.cache = cache
}

// WithSource returns a controller sharing everything but the history source tag.
func (c *Controller) WithSource(source string) *Controller {
	cp := *c
	cp.opts.Source = source
	return &cp
}

// Registry returns the device registry.
func (c *Controller) Registry() *devices.Registry {
	return c.registry
}

// Presets returns the preset store.
func (c *Controller) Presets() *preset.Store {
	return c.presets
}

// open resolves a device name and dials it.
func (c *Controller) open(ctx context.Context, raw string) (devices.DeviceConfig, transport.Device, error) {
	cfg, err := c.registry.Resolve(raw)
	if err != nil {
		return cfg, nil, err
	}
	dev, err := c.dialer.Dial(ctx, cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, dev, nil
}

// run resolves, dials and executes fn on a single device, recording the outcome.
func (c *Controller) run(ctx context.Context, raw, command string, args map[string]any,
	fn func(cfg devices.DeviceConfig, dev transport.Device) error,
) (devices.DeviceConfig, error) {
	cfg, dev, err := c.open(ctx, raw)
	if err == nil {
		err = fn(cfg, dev)
	}
	if cfg.Name != "" {
		c.record(ctx, cfg.Name, command, args, err)
	}
	return cfg, err
}

func (c *Controller) record(ctx context.Context, device, command string, args map[string]any, err error) {
	if c.history == nil || errors.Is(err, reconcile.ErrSkipped) {
		return
	}

	payload := map[string]any{"command": command}
	for k, v := range args {
		payload[k] = v
	}
	eventType := ledger.EventCommandCompleted
	if err != nil {
		eventType = ledger.EventCommandFailed
		payload["error"] = err.Error()
	}

	if herr := c.history.AppendWithSource(eventType, device, c.opts.Source, reconcile.BatchID(ctx), payload); herr != nil {
		log.Warn().Err(herr).Str("device", device).Str("command", command).Msg("Failed to record command")
	}
}

func (c *Controller) remember(name string, st state.State) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(name, st); err != nil {
		log.Warn().Err(err).Str("device", name).Msg("Failed to cache device state")
	}
}

func checkRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s %d out of range %d-%d", ErrInvalidArgument, name, v, lo, hi)
	}
	return nil
}

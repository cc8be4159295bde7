package mqtt

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tuyactl/internal/color"
	"github.com/dokzlo13/tuyactl/internal/devices"
	"github.com/dokzlo13/tuyactl/internal/dps"
	"github.com/dokzlo13/tuyactl/internal/state"
	"github.com/dokzlo13/tuyactl/internal/transport"
)

const (
	modeColour = "colour"
	modeWhite  = "white"
)

// Dialer hands out device handles sharing one broker connection.
type Dialer struct {
	broker  Broker
	prefix  string
	timeout time.Duration
}

// NewDialer creates a dialer. An empty prefix means DefaultPrefix.
func NewDialer(broker Broker, prefix string, timeout time.Duration) *Dialer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dialer{broker: broker, prefix: prefix, timeout: timeout}
}

// Dial returns a handle for cfg. No traffic is sent until a command is issued.
func (d *Dialer) Dial(ctx context.Context, cfg devices.DeviceConfig) (transport.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, &transport.Error{Device: cfg.Name, Op: "dial", Err: err}
	}
	return &Device{
		cfg:     cfg,
		points:  cfg.DataPoints(),
		topics:  Topics{Prefix: d.prefix, Device: cfg.BridgeTopic()},
		broker:  d.broker,
		timeout: d.timeout,
		caps:    transport.CapabilitiesFor(cfg.Kind),
	}, nil
}

// Device is a bridge-backed device handle.
type Device struct {
	cfg     devices.DeviceConfig
	points  devices.DataPoints
	topics  Topics
	broker  Broker
	timeout time.Duration
	caps    transport.Capability

	// last mode and colour sent through this handle, "" / nil until known
	mode   string
	colour *color.Color
}

func (d *Device) Name() string                       { return d.cfg.Name }
func (d *Device) Capabilities() transport.Capability { return d.caps }

// ReadStatus asks the bridge for a state refresh and waits for the answer.
func (d *Device) ReadStatus(ctx context.Context) (dps.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	payloads := make(chan []byte, 1)
	topic := d.topics.State()
	err := d.broker.Subscribe(topic, func(_ string, payload []byte) {
		select {
		case payloads <- payload:
		default:
		}
	})
	if err != nil {
		return dps.Status{}, d.fail("read", err)
	}
	defer func() {
		if err := d.broker.Unsubscribe(topic); err != nil {
			log.Debug().Err(err).Str("topic", topic).Msg("Unsubscribe failed")
		}
	}()

	if err := d.broker.Publish(d.topics.Command(), []byte(getStates)); err != nil {
		return dps.Status{}, d.fail("read", err)
	}

	select {
	case payload := <-payloads:
		status, err := dps.ParseJSON(payload)
		if err != nil {
			return dps.Status{}, d.fail("read", err)
		}
		log.Debug().Str("device", d.cfg.Name).Stringer("dps", status).Msg("Status received")
		return status, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return dps.Status{}, d.fail("read", fmt.Errorf("%w: no state on %s after %v", ErrTimeout, topic, d.timeout))
		}
		return dps.Status{}, d.fail("read", ctx.Err())
	}
}

func (d *Device) TurnOn(ctx context.Context) error {
	return d.set(ctx, "on", d.points.Switch, "true")
}

func (d *Device) TurnOff(ctx context.Context) error {
	return d.set(ctx, "off", d.points.Switch, "false")
}

// SetColor switches to colour mode and sends the packed HSV form of r,g,b.
func (d *Device) SetColor(ctx context.Context, r, g, b uint8) error {
	if !d.caps.Has(transport.CapColour) {
		return transport.Unsupported(d.cfg.Name, transport.CapColour)
	}
	if err := d.set(ctx, "colour", d.points.Mode, modeColour); err != nil {
		return err
	}
	col := color.FromRGB(r, g, b)
	if err := d.set(ctx, "colour", d.points.Colour, col.PackedHex()); err != nil {
		return err
	}
	d.mode, d.colour = modeColour, &col
	return nil
}

// SetBrightness sends level in the device's native range. In colour mode the
// level replaces the value channel of the current colour; in white mode it
// goes to the brightness DP.
func (d *Device) SetBrightness(ctx context.Context, level int) error {
	if !d.caps.Has(transport.CapBrightness) {
		return transport.Unsupported(d.cfg.Name, transport.CapBrightness)
	}
	if d.mode == "" {
		d.learnMode(ctx)
	}
	if d.mode == modeColour && d.colour != nil {
		top := d.cfg.BrightnessRange().Max
		col := d.colour.WithValue(float64(level) / float64(top))
		if err := d.set(ctx, "brightness", d.points.Colour, col.PackedHex()); err != nil {
			return err
		}
		d.colour = &col
		return nil
	}
	return d.set(ctx, "brightness", d.points.Brightness, strconv.Itoa(level))
}

// learnMode reads the device to find its current mode and colour. On failure
// the mode stays unknown and brightness goes to the brightness DP.
func (d *Device) learnMode(ctx context.Context) {
	status, err := d.ReadStatus(ctx)
	if err != nil {
		log.Debug().Err(err).Str("device", d.cfg.Name).Msg("Mode unknown, using brightness DP")
		return
	}
	d.mode = modeColour
	if _, v, ok := status.Resolve(dps.FieldMode); ok {
		if s, ok := v.AsString(); ok && state.ParseMode(s) == state.ModeWhite {
			d.mode = modeWhite
		}
	}
	if d.mode != modeColour {
		return
	}
	if _, v, ok := status.Resolve(dps.FieldColour); ok {
		if col, _, err := state.DecodeColour(v); err == nil {
			d.colour = &col
		}
	}
}

// SetColorTemperature switches to white mode and sends the raw temperature.
func (d *Device) SetColorTemperature(ctx context.Context, raw int) error {
	if !d.caps.Has(transport.CapColourTemp) {
		return transport.Unsupported(d.cfg.Name, transport.CapColourTemp)
	}
	if err := d.set(ctx, "temp", d.points.Mode, modeWhite); err != nil {
		return err
	}
	d.mode, d.colour = modeWhite, nil
	return d.set(ctx, "temp", d.points.Temperature, strconv.Itoa(raw))
}

func (d *Device) set(ctx context.Context, op string, dp int, value string) error {
	if err := ctx.Err(); err != nil {
		return d.fail(op, err)
	}
	topic := d.topics.DPCommand(dp)
	log.Debug().Str("device", d.cfg.Name).Str("topic", topic).Str("value", value).Msg("Publishing command")
	if err := d.broker.Publish(topic, []byte(value)); err != nil {
		return d.fail(op, err)
	}
	return nil
}

func (d *Device) fail(op string, err error) error {
	return &transport.Error{Device: d.cfg.Name, Op: op, Err: err}
}

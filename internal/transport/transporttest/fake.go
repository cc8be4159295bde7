// Package transporttest provides an in-memory transport for tests.
package transporttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dokzlo13/tuyactl/internal/devices"
	"github.com/dokzlo13/tuyactl/internal/dps"
	"github.com/dokzlo13/tuyactl/internal/transport"
)

// Call is one recorded command.
type Call struct {
	Op   string
	Args []int
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Op, c.Args)
}

// Device records every command it receives.
type Device struct {
	DeviceName string
	Caps       transport.Capability
	Status     dps.Status
	StatusErr  error
	// FailOn makes the named op return a transport error.
	FailOn map[string]error
	// PanicOn makes the named op panic.
	PanicOn string

	mu    sync.Mutex
	calls []Call
}

// NewDevice returns a fake with the capabilities of kind.
func NewDevice(name string, kind devices.Kind, status map[string]any) *Device {
	return &Device{
		DeviceName: name,
		Caps:       transport.CapabilitiesFor(kind),
		Status:     dps.FromMap(status),
	}
}

func (d *Device) Name() string                       { return d.DeviceName }
func (d *Device) Capabilities() transport.Capability { return d.Caps }

func (d *Device) ReadStatus(ctx context.Context) (dps.Status, error) {
	if err := d.record("read"); err != nil {
		return dps.Status{}, err
	}
	if d.StatusErr != nil {
		return dps.Status{}, &transport.Error{Device: d.DeviceName, Op: "read", Err: d.StatusErr}
	}
	return d.Status, nil
}

func (d *Device) TurnOn(ctx context.Context) error  { return d.record("on") }
func (d *Device) TurnOff(ctx context.Context) error { return d.record("off") }

func (d *Device) SetColor(ctx context.Context, r, g, b uint8) error {
	return d.record("colour", int(r), int(g), int(b))
}

func (d *Device) SetBrightness(ctx context.Context, level int) error {
	return d.record("brightness", level)
}

func (d *Device) SetColorTemperature(ctx context.Context, raw int) error {
	return d.record("temp", raw)
}

func (d *Device) record(op string, args ...int) error {
	if d.PanicOn == op {
		panic(fmt.Sprintf("%s: simulated panic in %s", d.DeviceName, op))
	}
	if err, ok := d.FailOn[op]; ok {
		return &transport.Error{Device: d.DeviceName, Op: op, Err: err}
	}
	if op == "read" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Op: op, Args: args})
	return nil
}

// Calls returns the recorded commands.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Reset clears the recorded commands.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

// Dialer hands out registered fakes by device name.
type Dialer struct {
	Devices map[string]*Device
	DialErr map[string]error
	Dialed  []string
}

// NewDialer returns a dialer serving the given fakes.
func NewDialer(devs ...*Device) *Dialer {
	d := &Dialer{Devices: make(map[string]*Device)}
	for _, dev := range devs {
		d.Devices[dev.DeviceName] = dev
	}
	return d
}

func (d *Dialer) Dial(ctx context.Context, cfg devices.DeviceConfig) (transport.Device, error) {
	d.Dialed = append(d.Dialed, cfg.Name)
	if err, ok := d.DialErr[cfg.Name]; ok {
		return nil, &transport.Error{Device: cfg.Name, Op: "dial", Err: err}
	}
	dev, ok := d.Devices[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("no fake device %q", cfg.Name)
	}
	return dev, nil
}

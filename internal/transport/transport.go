// Package transport defines the device handle the core talks to.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dokzlo13/tuyactl/internal/devices"
	"github.com/dokzlo13/tuyactl/internal/dps"
)

// ErrUnsupported is returned when a command needs a capability the device lacks.
var ErrUnsupported = errors.New("unsupported capability")

// Capability is a set of device features.
type Capability uint8

const (
	CapPower Capability = 1 << iota
	CapColour
	CapBrightness
	CapColourTemp
)

// Has reports whether every capability in c is in the set.
func (s Capability) Has(c Capability) bool {
	return s&c == c
}

func (s Capability) String() string {
	var parts []string
	for _, c := range []struct {
		bit  Capability
		name string
	}{
		{CapPower, "power"},
		{CapColour, "colour"},
		{CapBrightness, "brightness"},
		{CapColourTemp, "colour_temp"},
	} {
		if s.Has(c.bit) {
			parts = append(parts, c.name)
		}
	}
	return strings.Join(parts, "|")
}

// CapabilitiesFor returns the capability set of a device kind.
func CapabilitiesFor(kind devices.Kind) Capability {
	if kind == devices.KindPlug {
		return CapPower
	}
	return CapPower | CapColour | CapBrightness | CapColourTemp
}

// Device is a handle to one physical device.
// Brightness is passed in the device's native range; temperature in raw units.
type Device interface {
	Name() string
	Capabilities() Capability
	ReadStatus(ctx context.Context) (dps.Status, error)
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	SetColor(ctx context.Context, r, g, b uint8) error
	SetBrightness(ctx context.Context, level int) error
	SetColorTemperature(ctx context.Context, raw int) error
}

// Dialer opens device handles.
type Dialer interface {
	Dial(ctx context.Context, cfg devices.DeviceConfig) (Device, error)
}

// Error is a network or protocol failure reported by a transport.
type Error struct {
	Device string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Device, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unsupported returns an ErrUnsupported error naming the device and capability.
func Unsupported(device string, c Capability) error {
	return fmt.Errorf("%w: %s has no %s control", ErrUnsupported, device, c)
}

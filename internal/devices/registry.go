// Package devices holds the static device registry.
package devices

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownDevice is returned when a name does not resolve to a device.
var ErrUnknownDevice = errors.New("unknown device")

// Kind is the device type.
type Kind string

const (
	KindBulb Kind = "bulb"
	KindPlug Kind = "plug"
)

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	return k == KindBulb || k == KindPlug
}

// Range is a closed integer interval.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// DataPoints are the DPS ids used when sending commands. Zero means default.
type DataPoints struct {
	Switch      int `yaml:"switch"`
	Mode        int `yaml:"mode"`
	Brightness  int `yaml:"brightness"`
	Temperature int `yaml:"temperature"`
	Colour      int `yaml:"colour"`
}

// DeviceConfig identifies one physical device.
type DeviceConfig struct {
	Name      string     `yaml:"-"`
	Kind      Kind       `yaml:"type"`
	GatewayID string     `yaml:"gwid"`
	Address   string     `yaml:"ip"`
	Key       string     `yaml:"key"`
	Version   string     `yaml:"version"`
	Topic     string     `yaml:"topic"`      // bridge topic, defaults to the normalized name
	DPS       DataPoints `yaml:"dps"`        // command DP overrides
	Bright    Range      `yaml:"brightness"` // native brightness range, defaults to 10-1000
}

// DataPoints returns the command DP ids with kind defaults filled in.
func (c DeviceConfig) DataPoints() DataPoints {
	d := DataPoints{Switch: 20, Mode: 21, Brightness: 25, Temperature: 26, Colour: 24}
	if c.Kind == KindPlug {
		d = DataPoints{Switch: 1}
	}
	if c.DPS.Switch != 0 {
		d.Switch = c.DPS.Switch
	}
	if c.DPS.Mode != 0 {
		d.Mode = c.DPS.Mode
	}
	if c.DPS.Brightness != 0 {
		d.Brightness = c.DPS.Brightness
	}
	if c.DPS.Temperature != 0 {
		d.Temperature = c.DPS.Temperature
	}
	if c.DPS.Colour != 0 {
		d.Colour = c.DPS.Colour
	}
	return d
}

// BrightnessRange returns the native brightness range.
func (c DeviceConfig) BrightnessRange() Range {
	r := c.Bright
	if r.Max <= 0 {
		r.Max = 1000
	}
	if r.Min <= 0 || r.Min > r.Max {
		r.Min = 10
		if r.Min > r.Max {
			r.Min = 0
		}
	}
	return r
}

// BridgeTopic returns the topic segment the bridge publishes this device under.
func (c DeviceConfig) BridgeTopic() string {
	if c.Topic != "" {
		return c.Topic
	}
	return strings.ReplaceAll(strings.ToLower(c.Name), " ", "_")
}

// Registry is the read-only set of configured devices.
type Registry struct {
	devices map[string]DeviceConfig
	names   []string
}

// NewRegistry validates the device map and builds a registry.
func NewRegistry(devices map[string]DeviceConfig) (*Registry, error) {
	r := &Registry{devices: make(map[string]DeviceConfig, len(devices))}
	seen := make(map[string]string, len(devices))

	for name, cfg := range devices {
		if name == "" {
			return nil, fmt.Errorf("device with empty name")
		}
		if cfg.Kind == "" {
			cfg.Kind = KindBulb
		}
		if !cfg.Kind.Valid() {
			return nil, fmt.Errorf("device %q: unsupported type %q", name, cfg.Kind)
		}
		folded := fold(name)
		if other, dup := seen[folded]; dup {
			return nil, fmt.Errorf("device names %q and %q collide", other, name)
		}
		seen[folded] = name

		cfg.Name = name
		r.devices[name] = cfg
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Resolve finds a device by case-insensitive name, treating '_' and space
// as equivalent.
func (r *Registry) Resolve(raw string) (DeviceConfig, error) {
	if cfg, ok := r.devices[raw]; ok {
		return cfg, nil
	}
	want := fold(raw)
	for _, name := range r.names {
		if fold(name) == want {
			return r.devices[name], nil
		}
	}
	return DeviceConfig{}, fmt.Errorf("%w: %s", ErrUnknownDevice, raw)
}

// Get returns the device with exactly this name.
func (r *Registry) Get(name string) (DeviceConfig, bool) {
	cfg, ok := r.devices[name]
	return cfg, ok
}

// Names returns all device names, sorted.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of devices.
func (r *Registry) Len() int {
	return len(r.names)
}

func fold(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", " "))
}

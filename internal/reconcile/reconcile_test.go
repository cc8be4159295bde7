package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/tuyactl/internal/color"
	"github.com/dokzlo13/tuyactl/internal/devices"
	"github.com/dokzlo13/tuyactl/internal/state"
	"github.com/dokzlo13/tuyactl/internal/transport"
	"github.com/dokzlo13/tuyactl/internal/transport/transporttest"
)

func colourPtr(c color.Color) *color.Color { return &c }

func TestApply(t *testing.T) {
	bulb := devices.DeviceConfig{Name: "Bulb", Kind: devices.KindBulb}
	plug := devices.DeviceConfig{Name: "Plug", Kind: devices.KindPlug}
	packed, embedded, err := color.Decode("00f003e80320")
	require.NoError(t, err)

	tests := []struct {
		name string
		cfg  devices.DeviceConfig
		st   state.State
		want []string
	}{
		{
			name: "colour mode",
			cfg:  bulb,
			st: state.State{
				Power: state.Bool(true), Mode: state.ModeColour,
				Color: colourPtr(color.FromRGB(0, 0, 255)), BrightnessValue: state.Int(500),
			},
			want: []string{"on[]", "colour[0 0 255]", "brightness[500]"},
		},
		{
			name: "zero brightness falls back to embedded value",
			cfg:  bulb,
			st: state.State{
				Mode: state.ModeColour, Color: &packed,
				BrightnessValue: state.Int(0), ColorValue: embedded,
			},
			want: []string{"colour[0 0 204]", "brightness[800]"},
		},
		{
			name: "white mode passes raw temperature",
			cfg:  bulb,
			st: state.State{
				Power: state.Bool(false), Mode: state.ModeWhite,
				Brightness: state.Int(1000), ColorTemp: state.Int(370),
			},
			want: []string{"off[]", "brightness[1000]", "temp[370]"},
		},
		{
			name: "mode inferred from white fields",
			cfg:  bulb,
			st:   state.State{ColorTemp: state.Int(250)},
			want: []string{"temp[250]"},
		},
		{
			name: "unknown power issues nothing",
			cfg:  bulb,
			st:   state.State{Mode: state.ModeColour},
			want: nil,
		},
		{
			name: "plug ignores bulb fields",
			cfg:  plug,
			st:   state.State{Power: state.Bool(false), Brightness: state.Int(5)},
			want: []string{"off[]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := transporttest.NewDevice(tt.cfg.Name, tt.cfg.Kind, nil)
			require.NoError(t, NewApplier().Apply(context.Background(), dev, tt.cfg, tt.st))

			var got []string
			for _, c := range dev.Calls() {
				got = append(got, c.String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_SkipsMissingCapabilities(t *testing.T) {
	cfg := devices.DeviceConfig{Name: "Dim", Kind: devices.KindBulb}
	dev := transporttest.NewDevice("Dim", devices.KindBulb, nil)
	dev.Caps = transport.CapPower | transport.CapColour

	st := state.State{Power: state.Bool(true), Mode: state.ModeColour,
		Color: colourPtr(color.FromRGB(255, 0, 0)), BrightnessValue: state.Int(300)}
	require.NoError(t, NewApplier().Apply(context.Background(), dev, cfg, st))

	require.Len(t, dev.Calls(), 2)
	assert.Equal(t, "colour", dev.Calls()[1].Op)
}

func TestApply_StopsOnTransportError(t *testing.T) {
	cfg := devices.DeviceConfig{Name: "Bulb", Kind: devices.KindBulb}
	dev := transporttest.NewDevice("Bulb", devices.KindBulb, nil)
	dev.FailOn = map[string]error{"on": errors.New("timeout")}

	err := NewApplier().Apply(context.Background(), dev, cfg, state.State{
		Power: state.Bool(true), Mode: state.ModeWhite, Brightness: state.Int(10),
	})
	var terr *transport.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "on", terr.Op)
	assert.Empty(t, dev.Calls())
}

func TestNativeBrightness(t *testing.T) {
	tests := []struct {
		level int
		r     devices.Range
		want  int
	}{
		{500, devices.Range{Min: 10, Max: 1000}, 500},
		{0, devices.Range{Min: 10, Max: 1000}, 10},
		{1000, devices.Range{Min: 25, Max: 255}, 255},
		{500, devices.Range{Min: 25, Max: 255}, 128},
		{20, devices.Range{Min: 25, Max: 255}, 25},
		{5000, devices.Range{Min: 0, Max: 1000}, 904},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NativeBrightness(tt.level, tt.r), "level %d range %v", tt.level, tt.r)
	}
}

func TestBatch_IsolatesFailures(t *testing.T) {
	names := []string{"a", "b", "c", "d"}
	var visited, ids []string

	res := NewBatch(0).Run(context.Background(), names, func(ctx context.Context, name string) error {
		visited = append(visited, name)
		ids = append(ids, BatchID(ctx))
		switch name {
		case "b":
			return errors.New("boom")
		case "c":
			panic("kaboom")
		case "d":
			return ErrSkipped
		}
		return nil
	})

	assert.Equal(t, names, visited)
	assert.Equal(t, []string{"a"}, res.Succeeded)
	assert.Equal(t, []string{"d"}, res.Skipped)
	require.Len(t, res.Failed, 2)
	assert.Contains(t, res.Failed["c"].Error(), "kaboom")
	assert.False(t, res.OK())
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, []string{res.ID, res.ID, res.ID, res.ID}, ids)
	assert.Empty(t, BatchID(context.Background()))

	err := res.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b: boom")
}

func TestBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	res := NewBatch(1).Run(ctx, []string{"a", "b"}, func(ctx context.Context, name string) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.Len(t, res.Failed, 2)
	assert.NoError(t, (&Result{}).Err())
}

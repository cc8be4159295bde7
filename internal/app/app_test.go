package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/tuyactl/internal/cli"
	"github.com/dokzlo13/tuyactl/internal/config"
	"github.com/dokzlo13/tuyactl/internal/devices"
	"github.com/dokzlo13/tuyactl/internal/ledger"
	"github.com/dokzlo13/tuyactl/internal/state"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Parse([]byte(`
database:
  path: ` + filepath.Join(dir, "db", "tuyactl.sqlite") + `
presets:
  dir: ` + filepath.Join(dir, "presets") + `
devices:
  Desk Lamp:
    type: bulb
  Kettle:
    type: plug
`))
	require.NoError(t, err)
	return cfg
}

func TestNew_DoesNotConnect(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"Desk Lamp", "Kettle"}, a.services.Registry.Names())
	assert.Nil(t, a.services.Devices.client)
}

func TestCLIEnv_LocalCommands(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	s := a.services
	require.NoError(t, s.Ledger.AppendWithSource(ledger.EventCommandCompleted, "Kettle", "cli", "", map[string]any{"command": "on"}))
	require.NoError(t, s.Ledger.AppendWithSource(ledger.EventCommandCompleted, "Desk Lamp", "lua", "", map[string]any{"command": "off"}))
	require.NoError(t, s.States.Set("Kettle", state.State{Power: state.Bool(true)}))

	var out, errOut bytes.Buffer
	env := a.CLIEnv(&out, &errOut)

	require.Equal(t, cli.ExitOK, cli.Run(context.Background(), []string{"history"}, env), errOut.String())
	assert.Contains(t, out.String(), "Kettle")
	assert.Contains(t, out.String(), "[cli]")
	assert.Contains(t, out.String(), "Desk Lamp")

	out.Reset()
	require.Equal(t, cli.ExitOK, cli.Run(context.Background(), []string{"history", "KETTLE"}, env), errOut.String())
	assert.Contains(t, out.String(), "Kettle")
	assert.NotContains(t, out.String(), "Desk Lamp")

	assert.Equal(t, cli.ExitFailure, cli.Run(context.Background(), []string{"history", "garage"}, env))
	assert.Contains(t, errOut.String(), "unknown device")

	out.Reset()
	require.Equal(t, cli.ExitOK, cli.Run(context.Background(), []string{"last", "kettle"}, env), errOut.String())
	assert.Contains(t, out.String(), `Kettle {"on":true}`)

	assert.Equal(t, cli.ExitFailure, cli.Run(context.Background(), []string{"last", "desk_lamp"}, env))
	assert.Contains(t, errOut.String(), "no cached state for desk_lamp")

	out.Reset()
	require.Equal(t, cli.ExitOK, cli.Run(context.Background(), []string{"presets"}, env))
	assert.Empty(t, out.String())

	require.NoError(t, a.ClearDeviceStates())
	items, err := s.States.List()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNewServices_DropsStatesOfRemovedDevices(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.services.States.Set("Kettle", state.State{Power: state.Bool(true)}))
	require.NoError(t, a.services.States.Set("Garage", state.State{Power: state.Bool(false)}))
	a.Close()

	a, err = New(cfg)
	require.NoError(t, err)
	defer a.Close()

	items, err := a.services.States.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Kettle", items[0].ID)
}

func TestNewServices_InvalidDevice(t *testing.T) {
	cfg := testConfig(t)
	cfg.Devices["Fan"] = devices.DeviceConfig{Kind: "fan"}

	_, err := NewServices(cfg)
	assert.Error(t, err)
}

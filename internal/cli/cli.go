// Package cli dispatches command-line invocations to the device controller.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dokzlo13/tuyactl/internal/control"
	"github.com/dokzlo13/tuyactl/internal/ledger"
	"github.com/dokzlo13/tuyactl/internal/lua"
	"github.com/dokzlo13/tuyactl/internal/preset"
	"github.com/dokzlo13/tuyactl/internal/state"
	"github.com/dokzlo13/tuyactl/internal/storage"
)

const (
	ExitOK      = 0
	ExitFailure = 1
)

const defaultHistoryLimit = 20

var errUsage = errors.New("usage")

// Env holds what commands need. Controller is called lazily so commands
// that only read local data never connect to the broker.
type Env struct {
	Out io.Writer
	Err io.Writer

	Controller func(ctx context.Context) (*control.Controller, error)
	Presets    *preset.Store

	// History returns the newest entries, for one device when device != "".
	History func(device string, limit int) ([]*ledger.Entry, error)
	// Batch returns the entries recorded by one multi-device action.
	Batch      func(id string) ([]*ledger.Entry, error)
	LastStates func() ([]storage.Item[state.State], error)
	// LastState returns nil when nothing is cached for the device.
	LastState func(device string) (*storage.Item[state.State], error)
}

// Usage writes the command summary.
func Usage(w io.Writer) {
	fmt.Fprint(w, `Usage:
  tuyactl [-c config.yaml] [-v] <command>

  <device> on|off
  <device> hsv <hue 0-360> <sat 0-100> <val 0-100>
  <device> h|hue <0-360>
  <device> s|sat <0-100>
  <device> v|val <0-100>
  <device> temp <kelvin>
  <device> bright|brightness <0-100>
  <device> get
  save_preset <name>
  load_preset <name>
  all_on | allon | all_off | alloff
  presets
  history [device] [n]
  last [device]
  run <script.lua>
  run -e <lua code>
`)
}

// Run executes one invocation and returns the process exit code.
func Run(ctx context.Context, args []string, env Env) int {
	err := dispatch(ctx, args, env)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errUsage):
		Usage(env.Err)
	default:
		fmt.Fprintf(env.Err, "Error: %v\n", err)
	}
	return ExitFailure
}

func dispatch(ctx context.Context, args []string, env Env) error {
	if len(args) == 0 {
		return errUsage
	}

	switch cmd := strings.ToLower(args[0]); cmd {
	case "help", "-h", "--help":
		Usage(env.Out)
		return nil
	case "save_preset":
		if len(args) != 2 {
			return errUsage
		}
		return savePreset(ctx, env, args[1])
	case "load_preset":
		if len(args) != 2 {
			return errUsage
		}
		return loadPreset(ctx, env, args[1])
	case "all_on", "allon", "all_off", "alloff":
		if len(args) != 1 {
			return errUsage
		}
		return broadcast(ctx, env, strings.Contains(cmd, "on"))
	case "presets":
		return listPresets(env)
	case "history":
		return history(env, args[1:])
	case "last":
		return last(env, args[1:])
	case "run":
		switch {
		case len(args) == 2 && args[1] != "-e":
			return runScript(ctx, env, args[1], "")
		case len(args) == 3 && args[1] == "-e":
			return runScript(ctx, env, "", args[2])
		}
		return errUsage
	}

	if len(args) < 2 {
		return errUsage
	}
	return deviceCommand(ctx, env, args[0], strings.ToLower(args[1]), args[2:])
}

func deviceCommand(ctx context.Context, env Env, device, action string, rest []string) error {
	nums, err := ints(rest)
	if err != nil {
		return err
	}

	ctrl, err := env.Controller(ctx)
	if err != nil {
		return err
	}

	switch action {
	case "on", "off":
		if len(nums) != 0 {
			return errUsage
		}
		name, err := ctrl.Power(ctx, device, action == "on")
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "%s %s\n", name, action)

	case "hsv":
		if len(nums) != 3 {
			return errUsage
		}
		name, _, err := ctrl.SetHSV(ctx, device, nums[0], nums[1], nums[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "%s HSV(%d,%d,%d)\n", name, nums[0], nums[1], nums[2])

	case "h", "hue", "s", "sat", "v", "val":
		if len(nums) != 1 {
			return errUsage
		}
		ch, _ := control.ParseChannel(action)
		name, col, err := ctrl.AdjustChannel(ctx, device, ch, nums[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "%s HSV(%d,%d,%d)\n", name, int(col.H), int(col.S*100+0.5), int(col.V*100+0.5))

	case "temp":
		if len(nums) != 1 {
			return errUsage
		}
		name, _, err := ctrl.SetTemperature(ctx, device, nums[0])
		if err != nil {
			return fmt.Errorf("failed to set color temperature on %s: %w", device, err)
		}
		fmt.Fprintf(env.Out, "%s %dK\n", name, nums[0])

	case "bright", "brightness":
		if len(nums) != 1 {
			return errUsage
		}
		name, _, err := ctrl.SetBrightness(ctx, device, nums[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "%s brightness %d%%\n", name, nums[0])

	case "get":
		if len(nums) != 0 {
			return errUsage
		}
		reading, err := ctrl.Get(ctx, device)
		if err != nil {
			return err
		}
		return printReading(env.Out, reading)

	default:
		return errUsage
	}
	return nil
}

func printReading(w io.Writer, r control.Reading) error {
	fmt.Fprintf(w, "%s %s\n", r.Device.Name, r.Raw)
	data, err := json.Marshal(r.State)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  state: %s\n", data)
	if k := r.State.Kelvin(); k != 0 {
		fmt.Fprintf(w, "  temperature: %dK\n", k)
	}
	if r.Warning != nil {
		fmt.Fprintf(w, "  undecoded: %v\n", r.Warning)
	}
	return nil
}

func savePreset(ctx context.Context, env Env, id string) error {
	ctrl, err := env.Controller(ctx)
	if err != nil {
		return err
	}
	path, res, err := ctrl.SavePreset(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Saved preset to %s\n", path)
	return res.Err()
}

func loadPreset(ctx context.Context, env Env, id string) error {
	ctrl, err := env.Controller(ctx)
	if err != nil {
		return err
	}
	res, err := ctrl.LoadPreset(ctx, id)
	if err != nil {
		return err
	}
	for _, name := range res.Skipped {
		fmt.Fprintf(env.Out, "%s skipped\n", name)
	}
	if env.Batch != nil {
		entries, err := env.Batch(res.ID)
		if err != nil {
			return err
		}
		printEntries(env.Out, entries)
	}
	fmt.Fprintf(env.Out, "Loaded preset %s: %d applied, %d skipped, %d failed\n",
		id, len(res.Succeeded), len(res.Skipped), len(res.Failed))
	return res.Err()
}

func broadcast(ctx context.Context, env Env, on bool) error {
	ctrl, err := env.Controller(ctx)
	if err != nil {
		return err
	}
	action := "turn_off"
	if on {
		action = "turn_on"
	}
	res := ctrl.Broadcast(ctx, on)
	for _, name := range res.Succeeded {
		fmt.Fprintf(env.Out, "%s %s\n", name, action)
	}
	return res.Err()
}

func listPresets(env Env) error {
	ids, err := env.Presets.List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(env.Out, id)
	}
	return nil
}

func history(env Env, args []string) error {
	if len(args) > 2 {
		return errUsage
	}
	device := ""
	limit := defaultHistoryLimit
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[len(args)-1]); err == nil {
			if n <= 0 {
				return errUsage
			}
			limit = n
			args = args[:len(args)-1]
		} else if len(args) == 2 {
			return errUsage
		}
	}
	if len(args) == 1 {
		device = args[0]
	}
	if env.History == nil {
		return errors.New("command history is not available")
	}

	entries, err := env.History(device, limit)
	if err != nil {
		return err
	}
	printEntries(env.Out, entries)
	return nil
}

func printEntries(w io.Writer, entries []*ledger.Entry) {
	for _, e := range entries {
		status := "ok"
		if e.EventType == ledger.EventCommandFailed {
			status = "failed"
		}
		line := fmt.Sprintf("%s  %-6s  %-16s  %s", e.Timestamp.Local().Format("2006-01-02 15:04:05"), status, e.Device, e.Command())
		if e.Source != "" {
			line += "  [" + e.Source + "]"
		}
		if msg, ok := e.Payload["error"].(string); ok {
			line += "  " + msg
		}
		fmt.Fprintln(w, line)
	}
}

func last(env Env, args []string) error {
	switch {
	case len(args) > 1:
		return errUsage
	case len(args) == 1:
		if env.LastState == nil {
			return errors.New("state cache is not available")
		}
		item, err := env.LastState(args[0])
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("no cached state for %s", args[0])
		}
		return printItem(env.Out, *item)
	}

	if env.LastStates == nil {
		return errors.New("state cache is not available")
	}
	items, err := env.LastStates()
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := printItem(env.Out, item); err != nil {
			return err
		}
	}
	return nil
}

func printItem(w io.Writer, item storage.Item[state.State]) error {
	data, err := json.Marshal(item.Value)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s (%s)\n", item.ID, data, item.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

// runScript executes the file at path, or src when path is empty.
func runScript(ctx context.Context, env Env, path, src string) error {
	ctrl, err := env.Controller(ctx)
	if err != nil {
		return err
	}
	rt := lua.NewRuntime(ctrl)
	defer rt.Close()
	if path == "" {
		return rt.RunString(ctx, src)
	}
	return rt.RunFile(ctx, path)
}

func ints(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, errUsage
		}
		out = append(out, n)
	}
	return out, nil
}

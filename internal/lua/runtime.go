// Package lua runs automation scripts against the configured devices.
package lua

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/tuyactl/internal/control"
	"github.com/dokzlo13/tuyactl/internal/lua/modules"
)

// Runtime owns a Lua VM with the tuya, log and utils modules preloaded.
// A Runtime is not safe for concurrent use.
type Runtime struct {
	L    *lua.LState
	ctrl *control.Controller
}

// NewRuntime creates a new Lua runtime. Commands issued by scripts are
// recorded with source "lua".
func NewRuntime(ctrl *control.Controller) *Runtime {
	r := &Runtime{
		L:    lua.NewState(),
		ctrl: ctrl.WithSource("lua"),
	}
	r.registerModules()
	return r
}

func (r *Runtime) registerModules() {
	r.L.PreloadModule("log", modules.NewLogModule().Loader)
	r.L.PreloadModule("utils", modules.NewUtilsModule().Loader)
	r.L.PreloadModule("tuya", modules.NewTuyaModule(r.ctrl).Loader)
}

// Close releases the Lua state.
func (r *Runtime) Close() {
	r.L.Close()
}

// RunFile executes a script file. Cancelling ctx interrupts the script.
func (r *Runtime) RunFile(ctx context.Context, path string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("lua script panicked: %v", rec)
		}
	}()

	r.L.SetContext(ctx)
	log.Info().Str("path", path).Msg("Running Lua script")
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}
	log.Debug().Str("path", path).Msg("Lua script finished")
	return nil
}

// RunString executes inline Lua source.
func (r *Runtime) RunString(ctx context.Context, src string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("lua chunk panicked: %v", rec)
		}
	}()

	r.L.SetContext(ctx)
	if err := r.L.DoString(src); err != nil {
		return fmt.Errorf("failed to execute Lua: %w", err)
	}
	return nil
}

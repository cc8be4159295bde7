package modules

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/tuyactl/internal/control"
	"github.com/dokzlo13/tuyactl/internal/state"
)

// TuyaModule exposes device control to Lua.
type TuyaModule struct {
	ctrl *control.Controller
}

// NewTuyaModule creates a new tuya module
func NewTuyaModule(ctrl *control.Controller) *TuyaModule {
	return &TuyaModule{ctrl: ctrl}
}

// Loader is the module loader for Lua
func (m *TuyaModule) Loader(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"devices":     m.devices,
		"on":          m.power(true),
		"off":         m.power(false),
		"hsv":         m.hsv,
		"adjust":      m.adjust,
		"bright":      m.bright,
		"temp":        m.temp,
		"state":       m.state,
		"presets":     m.presets,
		"save_preset": m.savePreset,
		"load_preset": m.loadPreset,
		"all":         m.all,
	})
	L.Push(mod)
	return 1
}

// devices() -> { {name=, type=}, ... }
func (m *TuyaModule) devices(L *lua.LState) int {
	reg := m.ctrl.Registry()
	tbl := L.NewTable()
	for i, name := range reg.Names() {
		cfg, _ := reg.Get(name)
		entry := L.NewTable()
		L.SetField(entry, "name", lua.LString(name))
		L.SetField(entry, "type", lua.LString(cfg.Kind))
		tbl.RawSetInt(i+1, entry)
	}
	L.Push(tbl)
	return 1
}

// on(name) / off(name)
func (m *TuyaModule) power(on bool) lua.LGFunction {
	return func(L *lua.LState) int {
		_, err := m.ctrl.Power(contextOf(L), L.CheckString(1), on)
		return pushResult(L, err)
	}
}

// hsv(name, h, s, v) with h in degrees, s and v in percent
func (m *TuyaModule) hsv(L *lua.LState) int {
	_, _, err := m.ctrl.SetHSV(contextOf(L), L.CheckString(1), L.CheckInt(2), L.CheckInt(3), L.CheckInt(4))
	return pushResult(L, err)
}

// adjust(name, "h"|"s"|"v", n)
func (m *TuyaModule) adjust(L *lua.LState) int {
	ch, ok := control.ParseChannel(L.CheckString(2))
	if !ok {
		L.ArgError(2, "expected h, s or v")
		return 0
	}
	_, _, err := m.ctrl.AdjustChannel(contextOf(L), L.CheckString(1), ch, L.CheckInt(3))
	return pushResult(L, err)
}

// bright(name, percent)
func (m *TuyaModule) bright(L *lua.LState) int {
	_, _, err := m.ctrl.SetBrightness(contextOf(L), L.CheckString(1), L.CheckInt(2))
	return pushResult(L, err)
}

// temp(name, kelvin)
func (m *TuyaModule) temp(L *lua.LState) int {
	_, _, err := m.ctrl.SetTemperature(contextOf(L), L.CheckString(1), L.CheckInt(2))
	return pushResult(L, err)
}

// state(name) -> table | nil, err
func (m *TuyaModule) state(L *lua.LState) int {
	reading, err := m.ctrl.Get(contextOf(L), L.CheckString(1))
	if err != nil {
		return pushResult(L, err)
	}

	tbl := StateToTable(L, reading.State)
	L.SetField(tbl, "name", lua.LString(reading.Device.Name))
	L.SetField(tbl, "raw", MapToLuaTable(L, reading.Raw.Map()))
	L.Push(tbl)
	return 1
}

// presets() -> { id, ... }
func (m *TuyaModule) presets(L *lua.LState) int {
	ids, err := m.ctrl.Presets().List()
	if err != nil {
		return pushResult(L, err)
	}
	L.Push(GoToLuaValue(L, ids))
	return 1
}

// save_preset(id) -> path | nil, err. Partial snapshots return path, err.
func (m *TuyaModule) savePreset(L *lua.LState) int {
	path, res, err := m.ctrl.SavePreset(contextOf(L), L.CheckString(1))
	if err != nil {
		return pushResult(L, err)
	}
	L.Push(lua.LString(path))
	if ferr := res.Err(); ferr != nil {
		L.Push(lua.LString(ferr.Error()))
		return 2
	}
	return 1
}

// load_preset(id) -> true | nil, err
func (m *TuyaModule) loadPreset(L *lua.LState) int {
	res, err := m.ctrl.LoadPreset(contextOf(L), L.CheckString(1))
	if err != nil {
		return pushResult(L, err)
	}
	return pushResult(L, res.Err())
}

// all(on) -> true | nil, err
func (m *TuyaModule) all(L *lua.LState) int {
	res := m.ctrl.Broadcast(contextOf(L), L.CheckBool(1))
	return pushResult(L, res.Err())
}

// StateToTable converts a canonical state to a Lua table. Unknown fields are nil.
func StateToTable(L *lua.LState, st state.State) *lua.LTable {
	tbl := L.NewTable()
	if st.Power != nil {
		L.SetField(tbl, "on", lua.LBool(*st.Power))
	}
	if st.Mode != "" {
		L.SetField(tbl, "mode", lua.LString(st.Mode))
	}
	if st.Color != nil {
		L.SetField(tbl, "color", lua.LString(st.Color.Hex()))
		L.SetField(tbl, "h", lua.LNumber(st.Color.H))
		L.SetField(tbl, "s", lua.LNumber(st.Color.S*100))
		L.SetField(tbl, "v", lua.LNumber(st.Color.V*100))
	}
	setInt := func(key string, p *int) {
		if p != nil {
			L.SetField(tbl, key, lua.LNumber(*p))
		}
	}
	setInt("value", st.BrightnessValue)
	setInt("color_value", st.ColorValue)
	setInt("brightness", st.Brightness)
	setInt("temp", st.ColorTemp)
	if st.ColorTemp != nil {
		L.SetField(tbl, "kelvin", lua.LNumber(st.Kelvin()))
	}
	return tbl
}

package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/tuyactl/internal/color"
	"github.com/dokzlo13/tuyactl/internal/devices"
	"github.com/dokzlo13/tuyactl/internal/dps"
)

func TestNormalize_ColourScenario(t *testing.T) {
	raw := dps.FromMap(map[string]any{"20": true, "21": "colour", "24": "#ff0000", "25": "80"})

	st, err := Normalize(raw, devices.KindBulb)
	require.NoError(t, err)

	require.NotNil(t, st.Power)
	assert.True(t, *st.Power)
	assert.Equal(t, ModeColour, st.Mode)
	require.NotNil(t, st.Color)
	assert.Equal(t, "#ff0000", st.Color.Hex())
	require.NotNil(t, st.BrightnessValue)
	assert.Equal(t, 80, *st.BrightnessValue)
	assert.Nil(t, st.ColorValue)
	assert.Nil(t, st.Brightness)
	assert.Nil(t, st.ColorTemp)
	assert.NoError(t, st.Validate(devices.KindBulb))
}

func TestNormalize_HexBrightness(t *testing.T) {
	raw := dps.FromMap(map[string]any{"20": true, "21": "colour", "24": "#ff0000", "25": "01f4"})

	st, err := Normalize(raw, devices.KindBulb)
	require.NoError(t, err)
	require.NotNil(t, st.BrightnessValue)
	assert.Equal(t, 500, *st.BrightnessValue)
}

func TestNormalize_BrightnessAliasPriority(t *testing.T) {
	raw := dps.FromMap(map[string]any{"25": "200", "bright": "50"})

	st, err := Normalize(raw, devices.KindBulb)
	require.NoError(t, err)
	require.NotNil(t, st.BrightnessValue)
	assert.Equal(t, 50, *st.BrightnessValue)
}

func TestNormalize_PackedColourBrightness(t *testing.T) {
	tests := []struct {
		name   string
		status map[string]any
		want   int
	}{
		{"separate key wins", map[string]any{"24": "00b401f401f4", "25": 300}, 300},
		{"zero key falls back to colour", map[string]any{"24": "00b401f401f4", "25": "0"}, 500},
		{"no key uses colour", map[string]any{"24": "00b401f401f4"}, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Normalize(dps.FromMap(tt.status), devices.KindBulb)
			require.NoError(t, err)
			require.NotNil(t, st.BrightnessValue)
			assert.Equal(t, tt.want, *st.BrightnessValue)
			require.NotNil(t, st.ColorValue)
			assert.Equal(t, 500, *st.ColorValue)
		})
	}
}

func TestNormalize_ModeDefaultsToColour(t *testing.T) {
	st, err := Normalize(dps.FromMap(map[string]any{"1": true}), devices.KindBulb)
	require.NoError(t, err)
	assert.Equal(t, ModeColour, st.Mode)
	assert.Nil(t, st.Color)
}

func TestNormalize_White(t *testing.T) {
	raw := dps.FromAnyMap(map[any]any{20: false, 21: "white", 25: 1000, 26: "500", "24": "ff0000"})

	st, err := Normalize(raw, devices.KindBulb)
	require.NoError(t, err)
	require.NotNil(t, st.Power)
	assert.False(t, *st.Power)
	assert.Equal(t, ModeWhite, st.Mode)
	assert.Equal(t, 1000, *st.Brightness)
	assert.Equal(t, 500, *st.ColorTemp)
	assert.Equal(t, 2000, st.Kelvin())
	assert.Nil(t, st.Color, "colour fields are not populated in white mode")
	assert.Nil(t, st.BrightnessValue)
	assert.NoError(t, st.Validate(devices.KindBulb))
}

func TestNormalize_Plug(t *testing.T) {
	st, err := Normalize(dps.FromMap(map[string]any{"1": false, "24": "ff0000"}), devices.KindPlug)
	require.NoError(t, err)
	require.NotNil(t, st.Power)
	assert.False(t, *st.Power)
	assert.Equal(t, State{Power: Bool(false)}, st)
	assert.NoError(t, st.Validate(devices.KindPlug))
}

func TestNormalize_MissingPowerIsUnknown(t *testing.T) {
	st, err := Normalize(dps.FromMap(map[string]any{}), devices.KindPlug)
	require.NoError(t, err)
	assert.Nil(t, st.Power)
}

func TestNormalize_UndecodableColourDegrades(t *testing.T) {
	raw := dps.FromMap(map[string]any{"20": true, "24": "zz", "25": 700})

	st, err := Normalize(raw, devices.KindBulb)
	require.Error(t, err)
	assert.ErrorIs(t, err, color.ErrDecode)

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, dps.FieldColour, fe.Field)

	assert.Nil(t, st.Color)
	require.NotNil(t, st.Power)
	assert.True(t, *st.Power)
	assert.Equal(t, 700, *st.BrightnessValue)
}

func TestNormalize_ColourObjects(t *testing.T) {
	st, err := Normalize(dps.FromMap(map[string]any{
		"colour": map[string]any{"h": 120.0, "s": 1000.0, "v": 1000.0},
	}), devices.KindBulb)
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", st.Color.Hex())
	assert.Nil(t, st.ColorValue)

	st, err = Normalize(dps.FromMap(map[string]any{
		"color": map[string]any{"r": 0, "g": 0, "b": "255"},
	}), devices.KindBulb)
	require.NoError(t, err)
	assert.Equal(t, "#0000ff", st.Color.Hex())
}

func TestCoerceLevel(t *testing.T) {
	tests := []struct {
		in   any
		want int
		ok   bool
	}{
		{80, 80, true},
		{"80", 80, true},
		{"01f4", 500, true},
		{"ff", 255, true},
		{1000, 1000, true},
		{4095, 1000, true},
		{4096 + 200, 200, true},
		{-5, 0, true},
		{12.6, 13, true},
		{"", 0, false},
		{"zz", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := CoerceLevel(dps.FromAny(tt.in))
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
	}
}

func TestEffectiveBrightness(t *testing.T) {
	tests := []struct {
		name   string
		st     State
		want   int
		wantOK bool
	}{
		{"explicit", State{BrightnessValue: Int(300), ColorValue: Int(900)}, 300, true},
		{"zero falls back", State{BrightnessValue: Int(0), ColorValue: Int(900)}, 900, true},
		{"zero without colour value", State{BrightnessValue: Int(0)}, 0, true},
		{"only colour value", State{ColorValue: Int(400)}, 400, true},
		{"nothing", State{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.st.EffectiveBrightness()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKelvinConversions(t *testing.T) {
	assert.Equal(t, 500, KelvinToRaw(2000))
	assert.Equal(t, 0, KelvinToRaw(0))
	assert.Equal(t, 2000, RawToKelvin(500))
	assert.Equal(t, 0, RawToKelvin(0))
}

func TestValidate(t *testing.T) {
	c := color.New(0, 1, 1)
	assert.Error(t, State{Color: &c, Brightness: Int(5)}.Validate(devices.KindBulb))
	assert.Error(t, State{Power: Bool(true), Mode: ModeWhite}.Validate(devices.KindPlug))
	assert.NoError(t, State{Power: Bool(true)}.Validate(devices.KindPlug))
}

func TestStateJSON_Lenient(t *testing.T) {
	var st State
	err := json.Unmarshal([]byte(`{"on": "off", "mode": "color", "color": "#0000ff", "value": "01f4", "extra": 1}`), &st)
	require.NoError(t, err)
	assert.False(t, *st.Power)
	assert.Equal(t, ModeColour, st.Mode)
	assert.Equal(t, "#0000ff", st.Color.Hex())
	assert.Equal(t, 500, *st.BrightnessValue)

	err = json.Unmarshal([]byte(`{"mode": "white", "brightness": 5000, "temp": "370"}`), &st)
	require.NoError(t, err)
	assert.Nil(t, st.Power)
	assert.Equal(t, ModeWhite, st.Mode)
	assert.Equal(t, 5000&0xFFF, *st.Brightness)
	assert.Equal(t, 370, *st.ColorTemp)

	// packed colours carry their own value channel
	err = json.Unmarshal([]byte(`{"mode": "colour", "color": "00f003e80320", "value": 0}`), &st)
	require.NoError(t, err)
	require.NotNil(t, st.ColorValue)
	assert.Equal(t, 800, *st.ColorValue)
	b, ok := st.EffectiveBrightness()
	assert.True(t, ok)
	assert.Equal(t, 800, b)

	err = json.Unmarshal([]byte(`{"color": "00f003e80320", "color_value": 500}`), &st)
	require.NoError(t, err)
	assert.Equal(t, 500, *st.ColorValue)

	err = json.Unmarshal([]byte(`{"color": {"h": 120, "s": 1000, "v": 1000}}`), &st)
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", st.Color.Hex())
	assert.Nil(t, st.ColorValue)

	assert.Error(t, json.Unmarshal([]byte(`{"value": "nope"}`), &st))
	assert.Error(t, json.Unmarshal([]byte(`{"color": "nope"}`), &st))
}

func TestStateJSON_RoundTrip(t *testing.T) {
	c := color.FromRGB(0, 0, 255)
	in := State{Power: Bool(true), Mode: ModeColour, Color: &c, BrightnessValue: Int(500)}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"on":true,"mode":"colour","color":"#0000ff","value":500}`, string(data))

	var out State
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.Normalized(), out.Normalized())
}

package dps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyAlternate(t *testing.T) {
	alt, ok := IntKey(24).Alternate()
	require.True(t, ok)
	assert.Equal(t, StringKey("24"), alt)

	alt, ok = StringKey("20").Alternate()
	require.True(t, ok)
	assert.Equal(t, IntKey(20), alt)

	_, ok = StringKey("switch").Alternate()
	assert.False(t, ok)

	// "020" would not round-trip through an int, so it has no alternate.
	_, ok = StringKey("020").Alternate()
	assert.False(t, ok)
}

func TestParseJSON(t *testing.T) {
	s, err := ParseJSON([]byte(`{"dps": {"20": true, "22": 500, "24": "00b401f403e8", "x": {"h": 1.5}}}`))
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())

	v, ok := s.Get(StringKey("20"))
	require.True(t, ok)
	b, ok := v.AsBool()
	assert.True(t, ok)
	assert.True(t, b)

	v, _ = s.Get(StringKey("22"))
	i, ok := v.AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(500), i)

	v, _ = s.Get(StringKey("x"))
	m, ok := v.AsMap()
	require.True(t, ok)
	f, ok := m["h"].AsFloat()
	assert.True(t, ok)
	assert.Equal(t, 1.5, f)

	_, err = ParseJSON([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestFind_ProbesBothSpellings(t *testing.T) {
	s := FromAnyMap(map[any]any{24: "ff0000", "20": true})

	k, _, ok := s.Find(StringKey("24"))
	require.True(t, ok)
	assert.Equal(t, IntKey(24), k)

	k, _, ok = s.Find(IntKey(20))
	require.True(t, ok)
	assert.Equal(t, StringKey("20"), k)

	_, _, ok = s.Find(IntKey(21))
	assert.False(t, ok)
}

func TestResolve_PriorityOrder(t *testing.T) {
	tests := []struct {
		name   string
		status map[string]any
		field  Field
		want   string
	}{
		{"bright beats 25", map[string]any{"25": "200", "bright": "50"}, FieldBrightness, "bright"},
		{"25 beats legacy 4", map[string]any{"4": 10, "25": 20}, FieldBrightness, "25"},
		{"value beats 25", map[string]any{"25": 20, "value": 30}, FieldBrightness, "value"},
		{"switch beats 20", map[string]any{"20": false, "switch": true}, FieldPower, "switch"},
		{"1 beats 20", map[string]any{"20": false, "1": true}, FieldPower, "1"},
		{"colour beats 24", map[string]any{"24": "x", "colour_data": "y"}, FieldColour, "colour_data"},
		{"temp beats legacy 3", map[string]any{"3": 1, "26": 2}, FieldTemperature, "26"},
		{"mode name beats 21", map[string]any{"21": "white", "mode": "colour"}, FieldMode, "mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, _, ok := FromMap(tt.status).Resolve(tt.field)
			require.True(t, ok)
			assert.Equal(t, tt.want, k.String())
		})
	}
}

func TestAliases_ReturnsCopy(t *testing.T) {
	a := Aliases(FieldPower)
	a[0] = StringKey("mutated")
	assert.Equal(t, StringKey("switch"), Aliases(FieldPower)[0])
}

func TestValueTruthy(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{1, true},
		{0, false},
		{"off", false},
		{"0", false},
		{"false", false},
		{"on", true},
	}
	for _, tt := range tests {
		got, ok := FromAny(tt.in).Truthy()
		assert.True(t, ok)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
	}

	_, ok := FromAny(nil).Truthy()
	assert.False(t, ok)
}

func TestStatusKeysAndString(t *testing.T) {
	s := FromMap(map[string]any{"24": "ff0000", "switch": true, "3": 100})
	keys := s.Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, "3", keys[0].String())
	assert.Equal(t, "24", keys[1].String())
	assert.Equal(t, "switch", keys[2].String())
	assert.Equal(t, `{"3": 100, "24": "ff0000", "switch": true}`, s.String())
}

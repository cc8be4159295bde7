package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/tuyactl/internal/color"
	"github.com/dokzlo13/tuyactl/internal/state"
)

func samplePreset() Preset {
	blue := color.FromRGB(0, 0, 255)
	return Preset{
		"Bulb": {
			Power: state.Bool(true), Mode: state.ModeColour,
			Color: &blue, BrightnessValue: state.Int(500),
		},
		"Lamp": {
			Power: state.Bool(true), Mode: state.ModeWhite,
			Brightness: state.Int(6000), ColorTemp: state.Int(370),
		},
		"Plug": {Power: state.Bool(false)},
	}
}

func TestSaveLoad_Idempotent(t *testing.T) {
	s := NewStore(t.TempDir())
	in := samplePreset()

	path, err := s.Save("evening", in)
	require.NoError(t, err)
	assert.Equal(t, "evening.json", filepath.Base(path))

	out, err := s.Load("evening")
	require.NoError(t, err)
	assert.Equal(t, in.Normalized(), out.Normalized())

	// 6000 is masked to 12 bits and clamped on save.
	assert.Equal(t, 1000, *out["Lamp"].Brightness)
}

func TestSave_Overwrites(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.Save("p", samplePreset())
	require.NoError(t, err)
	_, err = s.Save("p", Preset{"Only": {Power: state.Bool(true)}})
	require.NoError(t, err)

	out, err := s.Load("p")
	require.NoError(t, err)
	assert.Equal(t, []string{"Only"}, out.Names())

	_, err = os.Stat(s.Path("p") + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	_, err := s.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))
	_, err = s.Load("bad")
	assert.ErrorIs(t, err, ErrFormat)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "list.json"), []byte(`[1,2]`), 0o644))
	_, err = s.Load("list")
	assert.ErrorIs(t, err, ErrFormat)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "null.json"), []byte(`null`), 0o644))
	_, err = s.Load("null")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLoad_LegacyAndForwardCompatible(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	content := `{
		"Bulb": {"on": true, "mode": "colour", "color": "#0000ff", "value": "01f4", "future": {"x": 1}},
		"Plug": {"on": "off"},
		"Lamp": {"mode": "white"}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), []byte(content), 0o644))

	p, err := s.Load("old.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bulb", "Lamp", "Plug"}, p.Names())
	assert.Equal(t, 500, *p["Bulb"].BrightnessValue)
	assert.Equal(t, "#0000ff", p["Bulb"].Color.Hex())
	assert.False(t, *p["Plug"].Power)
	assert.Nil(t, p["Lamp"].Power)
	assert.Nil(t, p["Lamp"].Brightness)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	for _, id := range []string{"b", "a"} {
		_, err := s.Save(id, samplePreset())
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	ids, err = NewStore(filepath.Join(dir, "nope")).List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestInvalidNames(t *testing.T) {
	root := t.TempDir()
	s := NewStore(filepath.Join(root, "presets"))

	for _, id := range []string{"", " ", ".json", "../x", "a/b", `a\b`, "/abs/x", "..", "."} {
		_, err := s.Save(id, samplePreset())
		assert.ErrorIs(t, err, ErrInvalidName, "save %q", id)
		_, err = s.Load(id)
		assert.ErrorIs(t, err, ErrInvalidName, "load %q", id)
	}

	_, err := os.Stat(filepath.Join(root, "x.json"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, ValidateName("evening.v2"))
	assert.NoError(t, ValidateName("old.json"))
}

func TestPath(t *testing.T) {
	assert.Equal(t, "x.json", NewStore("").Path("x"))
	assert.Equal(t, filepath.Join("d", "x.json"), NewStore("d").Path("x.json"))
}

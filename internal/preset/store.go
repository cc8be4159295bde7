// Package preset saves and loads named snapshots of device states.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tuyactl/internal/state"
)

var (
	// ErrNotFound is returned when a preset file does not exist.
	ErrNotFound = errors.New("preset not found")
	// ErrFormat is returned when a preset file cannot be parsed.
	ErrFormat = errors.New("malformed preset")
	// ErrInvalidName is returned for empty names and names that are not a
	// single file name inside the store directory.
	ErrInvalidName = errors.New("invalid preset name")
)

const ext = ".json"

// Preset maps device names to their canonical state.
type Preset map[string]state.State

// Normalized returns a copy with every level passed through CoerceLevel.
func (p Preset) Normalized() Preset {
	out := make(Preset, len(p))
	for name, st := range p {
		out[name] = st.Normalized()
	}
	return out
}

// Names returns the device names in sorted order.
func (p Preset) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Store reads and writes presets as JSON files in a directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir ("" means the working directory).
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the file a preset identifier maps to.
func (s *Store) Path(id string) string {
	name := id
	if !strings.HasSuffix(name, ext) {
		name += ext
	}
	if s.dir == "" {
		return name
	}
	return filepath.Join(s.dir, name)
}

// ValidateName rejects ids that would resolve outside the store directory.
func ValidateName(id string) error {
	name := strings.TrimSuffix(id, ext)
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case strings.ContainsAny(id, `/\`), name == "." || name == "..", filepath.IsAbs(id):
		return fmt.Errorf("%w: %q", ErrInvalidName, id)
	}
	return nil
}

// Save writes p under id, replacing any existing preset of that name.
func (s *Store) Save(id string, p Preset) (string, error) {
	if err := ValidateName(id); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(p.Normalized(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal preset: %w", err)
	}

	path := s.Path(id)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create preset directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write preset: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write preset: %w", err)
	}

	log.Debug().Str("path", path).Int("devices", len(p)).Msg("Preset saved")
	return path, nil
}

// Load reads the preset stored under id.
func (s *Store) Load(id string) (Preset, error) {
	if err := ValidateName(id); err != nil {
		return nil, err
	}
	path := s.Path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read preset: %w", err)
	}

	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s: not an object", ErrFormat, path)
	}
	return p, nil
}

// List returns the identifiers of all presets in the store directory.
func (s *Store) List() ([]string, error) {
	dir := s.dir
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(ids)
	return ids, nil
}

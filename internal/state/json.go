package state

import (
	"encoding/json"
	"fmt"

	"github.com/dokzlo13/tuyactl/internal/color"
	"github.com/dokzlo13/tuyactl/internal/dps"
)

// stateJSON is the lenient on-disk form. Older presets stored levels as
// decimal or hex strings and power as "on"/"off".
type stateJSON struct {
	On         any             `json:"on"`
	Mode       string          `json:"mode"`
	Color      json.RawMessage `json:"color"`
	Value      any             `json:"value"`
	ColorValue any             `json:"color_value"`
	Brightness any             `json:"brightness"`
	Temp       any             `json:"temp"`
}

// UnmarshalJSON decodes a state, coercing numeric fields with CoerceLevel.
// Unknown fields are ignored.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out State
	if raw.On != nil {
		on, ok := dps.FromAny(raw.On).Truthy()
		if !ok {
			return fmt.Errorf("invalid power value %v", raw.On)
		}
		out.Power = Bool(on)
	}
	if raw.Mode != "" {
		out.Mode = ParseMode(raw.Mode)
	}

	var err error
	if out.BrightnessValue, err = levelField("value", raw.Value); err != nil {
		return err
	}
	if out.ColorValue, err = levelField("color_value", raw.ColorValue); err != nil {
		return err
	}
	var embedded *int
	if out.Color, embedded, err = colourField(raw.Color); err != nil {
		return err
	}
	if out.ColorValue == nil {
		out.ColorValue = embedded
	}
	if out.Brightness, err = levelField("brightness", raw.Brightness); err != nil {
		return err
	}
	if raw.Temp != nil {
		n, ok := CoerceRaw(dps.FromAny(raw.Temp))
		if !ok {
			return fmt.Errorf("invalid temp value %v", raw.Temp)
		}
		out.ColorTemp = Int(n)
	}

	*s = out
	return nil
}

func levelField(name string, v any) (*int, error) {
	if v == nil {
		return nil, nil
	}
	n, ok := CoerceLevel(dps.FromAny(v))
	if !ok {
		return nil, fmt.Errorf("invalid %s value %v", name, v)
	}
	return Int(n), nil
}

// colourField decodes the color field. A packed string also yields its
// embedded value channel.
func colourField(data json.RawMessage) (*color.Color, *int, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil, nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		c, embedded, err := color.Decode(str)
		if err != nil {
			return nil, nil, err
		}
		return &c, embedded, nil
	}
	var c color.Color
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, nil, err
	}
	return &c, nil, nil
}

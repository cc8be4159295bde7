package dps

// Field is a logical status field.
type Field uint8

const (
	FieldPower Field = iota
	FieldMode
	FieldColour
	FieldBrightness
	FieldTemperature
)

func (f Field) String() string {
	switch f {
	case FieldPower:
		return "power"
	case FieldMode:
		return "mode"
	case FieldColour:
		return "colour"
	case FieldBrightness:
		return "brightness"
	case FieldTemperature:
		return "temperature"
	}
	return "unknown"
}

// aliasTable lists the raw keys for each field in priority order. The first
// key present wins. Saved presets depend on this order; do not reorder.
var aliasTable = map[Field][]Key{
	FieldPower: {
		StringKey("switch"), StringKey("1"), IntKey(20),
	},
	FieldMode: {
		StringKey("mode"), IntKey(21),
	},
	FieldColour: {
		StringKey("colour"), StringKey("color"), StringKey("colour_data"),
		StringKey("color_data"), IntKey(24),
	},
	FieldBrightness: {
		StringKey("bright"), StringKey("brightness"), StringKey("value"),
		IntKey(25), IntKey(4), // 4: legacy firmwares
	},
	FieldTemperature: {
		StringKey("temp"), StringKey("colourtemp"), StringKey("color_temp"),
		IntKey(26), IntKey(3), // 3: legacy firmwares
	},
}

// Aliases returns the priority-ordered keys for f. The slice is a copy.
func Aliases(f Field) []Key {
	return append([]Key(nil), aliasTable[f]...)
}

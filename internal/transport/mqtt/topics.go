package mqtt

import (
	"fmt"
	"strings"
)

// DefaultPrefix is the base topic of the tuya-mqtt bridge.
const DefaultPrefix = "tuya"

const getStates = "get-states"

// Topics builds bridge topics for one device.
type Topics struct {
	Prefix string
	Device string
}

func (t Topics) base() string {
	prefix := strings.TrimSuffix(t.Prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "/" + t.Device
}

// State is where the bridge publishes the JSON of all DPS.
func (t Topics) State() string {
	return t.base() + "/dps/state"
}

// Command accepts device-level commands such as get-states.
func (t Topics) Command() string {
	return t.base() + "/command"
}

// DPCommand sets a single data point.
func (t Topics) DPCommand(dp int) string {
	return fmt.Sprintf("%s/dps/%d/command", t.base(), dp)
}

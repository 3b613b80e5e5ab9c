package model

// DeviceClassItem is one tier of a device class (basic, generic or specific).
type DeviceClassItem struct {
	Key   int
	Label string
}

// DeviceClass describes a node's Z-Wave device class.
type DeviceClass struct {
	Basic    DeviceClassItem
	Generic  DeviceClassItem
	Specific DeviceClassItem
}

// NewDeviceClass builds a DeviceClass from a raw snapshot, or nil when the
// snapshot is absent.
func NewDeviceClass(data map[string]any) *DeviceClass {
	if data == nil {
		return nil
	}
	item := func(key string) DeviceClassItem {
		m := getMap(data, key)
		return DeviceClassItem{Key: getInt(m, "key"), Label: getString(m, "label")}
	}
	return &DeviceClass{
		Basic:    item("basic"),
		Generic:  item("generic"),
		Specific: item("specific"),
	}
}

// DeviceConfig is the database entry describing a node's product. Backed by
// the raw snapshot; accessors cover the commonly used keys.
type DeviceConfig struct {
	data map[string]any
}

// NewDeviceConfig wraps a raw device config snapshot. A nil snapshot yields
// an empty config.
func NewDeviceConfig(data map[string]any) *DeviceConfig {
	if data == nil {
		data = map[string]any{}
	}
	return &DeviceConfig{data: data}
}

func (c *DeviceConfig) Data() map[string]any { return c.data }

func (c *DeviceConfig) Manufacturer() string { return getString(c.data, "manufacturer") }
func (c *DeviceConfig) Label() string        { return getString(c.data, "label") }
func (c *DeviceConfig) Description() string  { return getString(c.data, "description") }

// Devices lists the product type and product ID combinations the config
// covers.
func (c *DeviceConfig) Devices() []map[string]any {
	raw := getSlice(c.data, "devices")
	out := make([]map[string]any, 0, len(raw))
	for _, d := range raw {
		if m, ok := d.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// FirmwareVersionRange returns the firmware version range the config is
// valid for.
func (c *DeviceConfig) FirmwareVersionRange() map[string]any {
	return getMap(c.data, "firmwareVersion")
}

func (c *DeviceConfig) Associations() map[string]any     { return getMap(c.data, "associations") }
func (c *DeviceConfig) ParamInformation() map[string]any { return getMap(c.data, "paramInformation") }
func (c *DeviceConfig) Compat() map[string]any           { return getMap(c.data, "compat") }

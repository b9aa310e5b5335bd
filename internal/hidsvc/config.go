// Package hidsvc connects the split pipeline to Linux HID devices: a hidraw keyboard as the scan
// source of a half, and a uhid virtual keyboard as the host-facing output of a dongle.
package hidsvc

import (
	"fmt"

	"github.com/neuroplastio/neio-split/hidapi"
)

type InputConfig struct {
	// Path is a hidraw device path. The first boot keyboard is used when empty.
	Path string `json:"path"`
	// Exclusive detaches the kernel input devices of the keyboard while it is in use.
	Exclusive bool `json:"exclusive"`
	// LayerKeys maps key names or usages (e.g. "right-gui", "0xe7") to the layer they activate while held.
	// Layer keys are not reported to the host.
	LayerKeys map[string]uint32 `json:"layerKeys"`
}

type UhidConfig struct {
	Enabled   bool   `json:"enabled"`
	Name      string `json:"name"`
	VendorID  uint32 `json:"vendorId"`
	ProductID uint32 `json:"productId"`
}

func parseLayerKeys(keys map[string]uint32) (map[uint8]uint32, error) {
	parsed := make(map[uint8]uint32, len(keys))
	for usage, layer := range keys {
		key, err := hidapi.ParseKey(usage)
		if err != nil {
			return nil, fmt.Errorf("invalid layer key: %w", err)
		}
		parsed[uint8(key)] = layer
	}
	return parsed, nil
}

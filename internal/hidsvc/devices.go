package hidsvc

import (
	"fmt"
	"strings"

	"github.com/sstallion/go-hid"
)

const (
	usagePageGenericDesktop = 0x01
	usageKeyboard           = 0x06
)

type DeviceInfo struct {
	Path      string `json:"path"`
	VendorID  uint16 `json:"vendorId"`
	ProductID uint16 `json:"productId"`
	Interface int    `json:"interface"`
	Name      string `json:"name"`
	Keyboard  bool   `json:"keyboard"`
}

func ListDevices() ([]DeviceInfo, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize hidapi: %w", err)
	}
	var devices []DeviceInfo
	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		devices = append(devices, DeviceInfo{
			Path:      info.Path,
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			Interface: info.InterfaceNbr,
			Name:      generateName(info),
			Keyboard:  info.UsagePage == usagePageGenericDesktop && info.Usage == usageKeyboard,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate HID devices: %w", err)
	}
	return devices, nil
}

func findKeyboard() (DeviceInfo, error) {
	devices, err := ListDevices()
	if err != nil {
		return DeviceInfo{}, err
	}
	for _, dev := range devices {
		if dev.Keyboard {
			return dev, nil
		}
	}
	return DeviceInfo{}, fmt.Errorf("no keyboard found")
}

func generateName(device *hid.DeviceInfo) string {
	var parts []string
	if device.MfrStr != "" {
		parts = append(parts, device.MfrStr)
	}
	if device.ProductStr != "" {
		parts = append(parts, device.ProductStr)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%04x:%04x", device.VendorID, device.ProductID)
	}
	return strings.Join(parts, " ")
}

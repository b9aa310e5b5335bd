package hidapi

import (
	"fmt"
	"strings"
)

const (
	KeyboardReportID uint8 = 1
	MouseReportID    uint8 = 2

	// BootKeySlots is the number of key slots in a boot keyboard report.
	BootKeySlots = 6
	// KeyErrorRollOver fills every key slot when more keys are pressed than the report can carry.
	KeyErrorRollOver uint8 = 0x01
)

var (
	KeyboardLayout = Layout{8, 8, 8 * BootKeySlots}
	MouseLayout    = Layout{5, 3, 16, 16, 8, 8}
)

// Layouts of the reports described by Descriptor.
func Layouts() map[uint8]Layout {
	return map[uint8]Layout{
		KeyboardReportID: KeyboardLayout,
		MouseReportID:    MouseLayout,
	}
}

// Descriptor is the report descriptor of a combined boot-compatible keyboard and 5-button mouse
// with vertical and horizontal wheels.
var Descriptor = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop Ctrls)
	0x09, 0x06, // Usage (Keyboard)
	0xa1, 0x01, // Collection (Application)
	0x85, 0x01, //   Report ID (1)
	0x05, 0x07, //   Usage Page (Kbrd/Keypad)
	0x19, 0xe0, //   Usage Minimum (0xE0)
	0x29, 0xe7, //   Usage Maximum (0xE7)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x75, 0x01, //   Report Size (1)
	0x95, 0x08, //   Report Count (8)
	0x81, 0x02, //   Input (Data,Var,Abs)
	0x75, 0x08, //   Report Size (8)
	0x95, 0x01, //   Report Count (1)
	0x81, 0x01, //   Input (Const)
	0x75, 0x08, //   Report Size (8)
	0x95, 0x06, //   Report Count (6)
	0x15, 0x00, //   Logical Minimum (0)
	0x26, 0xff, 0x00, // Logical Maximum (255)
	0x19, 0x00, //   Usage Minimum (0x00)
	0x29, 0xff, //   Usage Maximum (0xFF)
	0x81, 0x00, //   Input (Data,Array,Abs)
	0xc0, // End Collection

	0x05, 0x01, // Usage Page (Generic Desktop Ctrls)
	0x09, 0x02, // Usage (Mouse)
	0xa1, 0x01, // Collection (Application)
	0x85, 0x02, //   Report ID (2)
	0x09, 0x01, //   Usage (Pointer)
	0xa1, 0x00, //   Collection (Physical)
	0x05, 0x09, //     Usage Page (Button)
	0x19, 0x01, //     Usage Minimum (0x01)
	0x29, 0x05, //     Usage Maximum (0x05)
	0x15, 0x00, //     Logical Minimum (0)
	0x25, 0x01, //     Logical Maximum (1)
	0x75, 0x01, //     Report Size (1)
	0x95, 0x05, //     Report Count (5)
	0x81, 0x02, //     Input (Data,Var,Abs)
	0x75, 0x03, //     Report Size (3)
	0x95, 0x01, //     Report Count (1)
	0x81, 0x01, //     Input (Const)
	0x05, 0x01, //     Usage Page (Generic Desktop Ctrls)
	0x09, 0x30, //     Usage (X)
	0x09, 0x31, //     Usage (Y)
	0x16, 0x01, 0x80, // Logical Minimum (-32767)
	0x26, 0xff, 0x7f, // Logical Maximum (32767)
	0x75, 0x10, //     Report Size (16)
	0x95, 0x02, //     Report Count (2)
	0x81, 0x06, //     Input (Data,Var,Rel)
	0x09, 0x38, //     Usage (Wheel)
	0x15, 0x81, //     Logical Minimum (-127)
	0x25, 0x7f, //     Logical Maximum (127)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x01, //     Report Count (1)
	0x81, 0x06, //     Input (Data,Var,Rel)
	0x05, 0x0c, //     Usage Page (Consumer)
	0x0a, 0x38, 0x02, // Usage (AC Pan)
	0x95, 0x01, //     Report Count (1)
	0x81, 0x06, //     Input (Data,Var,Rel)
	0xc0, //   End Collection
	0xc0, // End Collection
}

// KeyboardReport is the state of a boot keyboard: a modifier bitmap and the pressed key usages.
// Keys is nil when no key is pressed; decoded reports never carry an empty non-nil slice.
type KeyboardReport struct {
	Modifiers uint8
	Keys      []uint8
}

func (k KeyboardReport) String() string {
	keys := make([]string, len(k.Keys))
	for i, key := range k.Keys {
		keys[i] = Key(key).String()
	}
	return fmt.Sprintf("Keyboard{mods: %08b, keys: [%s]}", k.Modifiers, strings.Join(keys, " "))
}

func (k KeyboardReport) Report() Report {
	report := KeyboardLayout.NewReport(KeyboardReportID)
	report.Fields[0].SetUint8(0, k.Modifiers)
	keys := report.Fields[2]
	if len(k.Keys) > BootKeySlots {
		for i := 0; i < BootKeySlots; i++ {
			keys.SetUint8(i, KeyErrorRollOver)
		}
		return report
	}
	for i, key := range k.Keys {
		keys.SetUint8(i, key)
	}
	return report
}

// Bytes encodes the report as sent on the wire of the HID device, including the report ID.
func (k KeyboardReport) Bytes() []byte {
	return EncodeReport(k.Report()).Bytes()
}

func KeyboardReportFrom(report Report) (KeyboardReport, error) {
	// boot protocol keyboards send reports without an ID
	if (report.ID != KeyboardReportID && report.ID != 0) || len(report.Fields) != len(KeyboardLayout) {
		return KeyboardReport{}, fmt.Errorf("not a keyboard report: %s", report)
	}
	k := KeyboardReport{
		Modifiers: report.Fields[0].Uint8(0),
	}
	keys := report.Fields[2]
	for i := 0; i < BootKeySlots; i++ {
		key := keys.Uint8(i)
		if key == 0 {
			continue
		}
		k.Keys = append(k.Keys, key)
	}
	return k, nil
}

// MouseReport is a relative mouse movement with up to five buttons.
type MouseReport struct {
	Buttons uint8
	X, Y    int16
	Wheel   int8
	Pan     int8
}

func (m MouseReport) String() string {
	return fmt.Sprintf("Mouse{buttons: %05b, x: %d, y: %d, wheel: %d, pan: %d}", m.Buttons, m.X, m.Y, m.Wheel, m.Pan)
}

func (m MouseReport) Report() Report {
	report := MouseLayout.NewReport(MouseReportID)
	for bit := 0; bit < 5; bit++ {
		if m.Buttons&(1<<bit) != 0 {
			report.Fields[0].Set(bit)
		}
	}
	report.Fields[2].SetUint16(0, uint16(m.X))
	report.Fields[3].SetUint16(0, uint16(m.Y))
	report.Fields[4].SetUint8(0, uint8(m.Wheel))
	report.Fields[5].SetUint8(0, uint8(m.Pan))
	return report
}

func (m MouseReport) Bytes() []byte {
	return EncodeReport(m.Report()).Bytes()
}

func MouseReportFrom(report Report) (MouseReport, error) {
	if report.ID != MouseReportID || len(report.Fields) != len(MouseLayout) {
		return MouseReport{}, fmt.Errorf("not a mouse report: %s", report)
	}
	m := MouseReport{
		X:     int16(report.Fields[2].Uint16(0)),
		Y:     int16(report.Fields[3].Uint16(0)),
		Wheel: int8(report.Fields[4].Uint8(0)),
		Pan:   int8(report.Fields[5].Uint8(0)),
	}
	for bit := 0; bit < 5; bit++ {
		if report.Fields[0].IsSet(bit) {
			m.Buttons |= 1 << bit
		}
	}
	return m, nil
}

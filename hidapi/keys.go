package hidapi

import (
	"fmt"
	"strconv"

	"github.com/iancoleman/strcase"
)

// Key is a usage on the Keyboard/Keypad page.
type Key uint8

var (
	keyNames = map[Key]string{
		0x28: "Enter",
		0x29: "Escape",
		0x2a: "Backspace",
		0x2b: "Tab",
		0x2c: "Space",
		0x2d: "Minus",
		0x2e: "Equal",
		0x2f: "LeftBracket",
		0x30: "RightBracket",
		0x31: "Backslash",
		0x33: "Semicolon",
		0x34: "Quote",
		0x35: "Grave",
		0x36: "Comma",
		0x37: "Period",
		0x38: "Slash",
		0x39: "CapsLock",
		0x46: "PrintScreen",
		0x47: "ScrollLock",
		0x48: "Pause",
		0x49: "Insert",
		0x4a: "Home",
		0x4b: "PageUp",
		0x4c: "Delete",
		0x4d: "End",
		0x4e: "PageDown",
		0x4f: "Right",
		0x50: "Left",
		0x51: "Down",
		0x52: "Up",
		0x65: "Application",
		0xe0: "LeftCtrl",
		0xe1: "LeftShift",
		0xe2: "LeftAlt",
		0xe3: "LeftGui",
		0xe4: "RightCtrl",
		0xe5: "RightShift",
		0xe6: "RightAlt",
		0xe7: "RightGui",
	}
	keyCodes = map[string]Key{}
)

func init() {
	for i := 0; i < 26; i++ {
		keyNames[Key(0x04+i)] = string(rune('A' + i))
	}
	for i := 1; i <= 9; i++ {
		keyNames[Key(0x1d+i)] = strconv.Itoa(i)
	}
	keyNames[0x27] = "0"
	for i := 1; i <= 12; i++ {
		keyNames[Key(0x39+i)] = fmt.Sprintf("F%d", i)
	}
	for code, name := range keyNames {
		keyCodes[name] = code
	}
}

func (k Key) String() string {
	name, ok := keyNames[k]
	if !ok {
		return fmt.Sprintf("0x%02x", uint8(k))
	}
	return name
}

// ParseKey accepts a key name in any case style ("right-alt", "RightAlt", "space")
// or a numeric usage ("0xe6", "44").
func ParseKey(s string) (Key, error) {
	if code, ok := keyCodes[strcase.ToCamel(s)]; ok {
		return code, nil
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown key %q", s)
	}
	return Key(v), nil
}

package hidapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		input string
		key   Key
	}{
		{"space", 0x2c},
		{"right-alt", 0xe6},
		{"RightGui", 0xe7},
		{"a", 0x04},
		{"z", 0x1d},
		{"1", 0x1e},
		{"0", 0x27},
		{"f12", 0x45},
		{"0x65", 0x65},
		{"200", 200},
	}
	for _, test := range tests {
		key, err := ParseKey(test.input)
		require.NoError(t, err, test.input)
		assert.Equal(t, test.key, key, test.input)
	}

	_, err := ParseKey("0x100")
	assert.Error(t, err)
	_, err = ParseKey("hyper")
	assert.Error(t, err)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "Space", Key(0x2c).String())
	assert.Equal(t, "LeftShift", Key(0xe1).String())
	assert.Equal(t, "0xff", Key(0xff).String())
	assert.Equal(t, "Keyboard{mods: 00000010, keys: [A Enter]}", KeyboardReport{Modifiers: 0x02, Keys: []uint8{0x04, 0x28}}.String())
}

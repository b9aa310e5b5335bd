package hidsvc

import (
	"testing"

	"github.com/neuroplastio/neio-split/hidapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLayerKeys(t *testing.T) {
	keys, err := parseLayerKeys(map[string]uint32{"0xe7": 1, "44": 2, "application": 300})
	require.NoError(t, err)
	assert.Equal(t, map[uint8]uint32{0xe7: 1, 44: 2, 0x65: 300}, keys)

	_, err = parseLayerKeys(map[string]uint32{"0x100": 1})
	assert.Error(t, err)
	_, err = parseLayerKeys(map[string]uint32{"hyper": 1})
	assert.Error(t, err)
}

func TestLayerTracker(t *testing.T) {
	// right GUI and the application key are layer keys
	tracker := newLayerTracker(map[uint8]uint32{0xe7: 1, 0x65: 3})

	tests := []struct {
		name     string
		report   hidapi.KeyboardReport
		layer    uint32
		filtered hidapi.KeyboardReport
	}{
		{
			name:     "no layer key",
			report:   hidapi.KeyboardReport{Modifiers: 0x02, Keys: []uint8{0x04}},
			layer:    0,
			filtered: hidapi.KeyboardReport{Modifiers: 0x02, Keys: []uint8{0x04}},
		},
		{
			name:     "modifier layer key",
			report:   hidapi.KeyboardReport{Modifiers: 0x80 | 0x02, Keys: []uint8{0x04}},
			layer:    1,
			filtered: hidapi.KeyboardReport{Modifiers: 0x02, Keys: []uint8{0x04}},
		},
		{
			name:     "highest layer wins",
			report:   hidapi.KeyboardReport{Modifiers: 0x80, Keys: []uint8{0x65, 0x05}},
			layer:    3,
			filtered: hidapi.KeyboardReport{Keys: []uint8{0x05}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			layer, filtered := tracker.update(test.report)
			assert.Equal(t, test.layer, layer)
			assert.Equal(t, test.filtered, filtered)
		})
	}
}

func TestLayerTrackerChanged(t *testing.T) {
	tracker := newLayerTracker(nil)
	assert.True(t, tracker.changed(hidapi.KeyboardReport{}))
	assert.False(t, tracker.changed(hidapi.KeyboardReport{}))
	assert.True(t, tracker.changed(hidapi.KeyboardReport{Keys: []uint8{0x04}}))
	assert.False(t, tracker.changed(hidapi.KeyboardReport{Keys: []uint8{0x04}}))
	assert.True(t, tracker.changed(hidapi.KeyboardReport{Modifiers: 0x01, Keys: []uint8{0x04}}))

	// every rollover report is sent as the same bytes
	assert.True(t, tracker.changed(hidapi.KeyboardReport{Keys: []uint8{4, 5, 6, 7, 8, 9, 10}}))
	assert.False(t, tracker.changed(hidapi.KeyboardReport{Keys: []uint8{4, 5, 6, 7, 8, 9, 11}}))
}

package hidsvc

import (
	"github.com/neuroplastio/neio-split/hidapi"
)

// layerTracker derives the active layer from held layer keys, the highest held layer wins.
type layerTracker struct {
	keys map[uint8]uint32
	last *hidapi.Report
}

func newLayerTracker(keys map[uint8]uint32) *layerTracker {
	return &layerTracker{keys: keys}
}

// update consumes a raw keyboard report and returns the active layer and the report without layer keys.
func (t *layerTracker) update(report hidapi.KeyboardReport) (uint32, hidapi.KeyboardReport) {
	var layer uint32
	filtered := hidapi.KeyboardReport{Modifiers: report.Modifiers}
	for _, key := range report.Keys {
		if l, ok := t.keys[key]; ok {
			layer = max(layer, l)
			continue
		}
		filtered.Keys = append(filtered.Keys, key)
	}
	// modifiers are only present in the bitmap
	for bit := 0; bit < 8; bit++ {
		usage := uint8(0xe0 + bit)
		if report.Modifiers&(1<<bit) == 0 {
			continue
		}
		if l, ok := t.keys[usage]; ok {
			layer = max(layer, l)
			filtered.Modifiers &^= 1 << bit
		}
	}
	return layer, filtered
}

// changed reports whether the report encodes differently from the previously reported one.
func (t *layerTracker) changed(report hidapi.KeyboardReport) bool {
	encoded := report.Report()
	if t.last != nil && t.last.Equal(encoded) {
		return false
	}
	t.last = &encoded
	return true
}

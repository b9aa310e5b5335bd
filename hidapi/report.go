package hidapi

import (
	"fmt"
	"slices"

	"github.com/neuroplastio/neio-split/pkg/bits"
)

// Report is a HID report split into the fields of its layout.
type Report struct {
	ID     uint8
	Fields []bits.Bits
}

func (r Report) String() string {
	return fmt.Sprintf("Report{ID: %d, Fields: %s}", r.ID, r.Fields)
}

// Equal reports whether both reports would be sent as the same bytes.
func (r Report) Equal(other Report) bool {
	return r.ID == other.ID && slices.EqualFunc(r.Fields, other.Fields, bits.Bits.Equal)
}

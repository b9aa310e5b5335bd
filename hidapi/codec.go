package hidapi

import (
	"github.com/neuroplastio/neio-split/pkg/bits"
)

// Layout lists the bit size of every field of a report, in descriptor order.
type Layout []int

func (l Layout) Size() int {
	size := 0
	for _, field := range l {
		size += field
	}
	return size
}

func (l Layout) NewReport(id uint8) Report {
	report := Report{
		ID:     id,
		Fields: make([]bits.Bits, len(l)),
	}
	for i, size := range l {
		report.Fields[i] = bits.NewZeros(size)
	}
	return report
}

type ReportDecoder struct {
	layouts map[uint8]Layout
}

// NewReportDecoder creates a decoder for the given report layouts.
// Reports are expected to be prefixed with the report ID when more than one layout is known.
func NewReportDecoder(layouts map[uint8]Layout) *ReportDecoder {
	return &ReportDecoder{layouts: layouts}
}

func (r *ReportDecoder) Decode(data []byte) (Report, bool) {
	reportID := uint8(0)
	if len(r.layouts) > 1 {
		if len(data) == 0 {
			return Report{}, false
		}
		reportID = data[0]
		data = data[1:]
	}
	layout, ok := r.layouts[reportID]
	if !ok {
		return Report{}, false
	}
	scanner := bits.NewScanner(data)
	report := Report{
		ID:     reportID,
		Fields: make([]bits.Bits, len(layout)),
	}
	for i, size := range layout {
		field := scanner.Next(size)
		if field.Len() == 0 {
			return Report{}, false
		}
		report.Fields[i] = field
	}
	return report, true
}

// EncodeReport concatenates the report fields, prefixed with the report ID when it is not zero.
func EncodeReport(report Report) bits.Bits {
	size := 0
	for _, field := range report.Fields {
		size += field.Len()
	}
	allBits := bits.New(make([]byte, 0, size/8+2), 0)
	if report.ID != 0 {
		allBits = bits.New([]byte{report.ID}, 0)
	}
	for _, field := range report.Fields {
		allBits = bits.ConcatBits(allBits, field)
	}
	return allBits
}

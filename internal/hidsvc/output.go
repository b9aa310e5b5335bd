package hidsvc

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/neuroplastio/neio-split/hidapi"
	"github.com/neuroplastio/neio-split/splitapi"
	"github.com/psanford/uhid"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var ErrOutputClosed = errors.New("output device not open")

const (
	busUSB         = 0x03
	uhidReportSize = 4096
)

type uhidReportType uint8

const (
	uhidReportTypeFeature uhidReportType = 0
	uhidReportTypeOutput  uhidReportType = 1
	uhidReportTypeInput   uhidReportType = 2
)

type getReportRequest struct {
	RequestID  uint32
	ReportID   uint8
	ReportType uhidReportType
}

type getReportReply struct {
	EventType uhid.EventType
	RequestID uint32
	Error     uint16
	Size      uint16
	Data      [uhidReportSize]byte
}

// Output is a virtual boot keyboard and mouse that replays the reports forwarded by the halves
// to the host.
type Output struct {
	log  *zap.Logger
	dev  *uhid.Device
	open atomic.Bool
	// last input report per report ID, served to host GET_REPORT requests
	last  *xsync.MapOf[uint8, []byte]
	ready chan struct{}
}

var _ splitapi.ReportWriter = (*Output)(nil)

func NewOutput(log *zap.Logger, cfg UhidConfig) (*Output, error) {
	dev, err := uhid.NewDevice(cfg.Name, hidapi.Descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to create uhid device: %w", err)
	}
	dev.Data.Bus = busUSB
	dev.Data.VendorID = cfg.VendorID
	dev.Data.ProductID = cfg.ProductID
	return &Output{
		log:   log,
		dev:   dev,
		last:  xsync.NewMapOf[uint8, []byte](),
		ready: make(chan struct{}),
	}, nil
}

func (o *Output) Ready() <-chan struct{} {
	return o.ready
}

func (o *Output) Start(ctx context.Context) error {
	events, err := o.dev.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open uhid device: %w", err)
	}
	o.open.Store(true)
	defer o.open.Store(false)
	close(o.ready)
	o.log.Info("Virtual HID device created")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			o.handleEvent(event)
		}
	}
}

func (o *Output) handleEvent(event uhid.Event) {
	switch event.Type {
	case uhid.Output:
		// keyboard LED state set by the host
		o.log.Debug("Host output report", zap.Binary("data", event.Data))
	case uhid.GetReport:
		var req getReportRequest
		if err := binary.Read(bytes.NewReader(event.Data), binary.LittleEndian, &req); err != nil {
			o.log.Error("failed to read GetReport request", zap.Error(err))
			return
		}
		reply := getReportReply{
			EventType: uhid.GetReportReply,
			RequestID: req.RequestID,
		}
		data, ok := o.last.Load(req.ReportID)
		if req.ReportType != uhidReportTypeInput || !ok {
			reply.Error = 1
		} else {
			reply.Size = uint16(len(data))
			copy(reply.Data[:], data)
		}
		if err := o.dev.WriteEvent(reply); err != nil {
			o.log.Error("failed to write GetReport reply", zap.Error(err))
		}
	}
}

// WriteReport injects a report, including its report ID, as if the virtual device had produced it.
func (o *Output) WriteReport(data []byte) error {
	if !o.open.Load() {
		return ErrOutputClosed
	}
	if len(data) > 0 {
		o.last.Store(data[0], append([]byte(nil), data...))
	}
	return o.dev.InjectEvent(data)
}

func (o *Output) Close() error {
	return o.dev.Close()
}

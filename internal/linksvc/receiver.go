package linksvc

import (
	"context"

	"github.com/neuroplastio/neio-split/indicator"
	"github.com/neuroplastio/neio-split/pkg/wire"
	"github.com/neuroplastio/neio-split/splitapi"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type receiverOptions struct {
	indicators chan<- indicator.Command
	reports    splitapi.ReportWriter
}

type ReceiverOption func(*receiverOptions)

// WithIndicatorSink routes received indicator commands to the local indicator driver queue.
func WithIndicatorSink(ch chan<- indicator.Command) ReceiverOption {
	return func(o *receiverOptions) {
		o.indicators = ch
	}
}

// WithReportWriter routes received keyboard and mouse reports to the host.
func WithReportWriter(w splitapi.ReportWriter) ReceiverOption {
	return func(o *receiverOptions) {
		o.reports = w
	}
}

type ReceiverStats struct {
	Frames            uint64 `json:"frames"`
	Invalid           uint64 `json:"invalid"`
	Indicators        uint64 `json:"indicators"`
	IndicatorsDropped uint64 `json:"indicatorsDropped"`
	Reports           uint64 `json:"reports"`
	ReportErrors      uint64 `json:"reportErrors"`
}

// Receiver is the peer side of the dispatcher: it decodes frames and hands their content to
// the local indicator driver or the host. Like the sending side it never blocks on a full queue.
type Receiver struct {
	log     *zap.Logger
	options receiverOptions

	frames            atomic.Uint64
	invalid           atomic.Uint64
	indicators        atomic.Uint64
	indicatorsDropped atomic.Uint64
	reports           atomic.Uint64
	reportErrors      atomic.Uint64
}

var _ FrameHandler = (*Receiver)(nil)

func NewReceiver(log *zap.Logger, opts ...ReceiverOption) *Receiver {
	var options receiverOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Receiver{
		log:     log,
		options: options,
	}
}

func (r *Receiver) HandleFrame(ctx context.Context, frame Frame) {
	r.frames.Inc()
	msg, err := wire.Decode(frame.Payload)
	if err != nil {
		r.invalid.Inc()
		r.log.Debug("Dropped undecodable payload", zap.Uint8("channel", frame.Channel), zap.Error(err))
		return
	}
	switch {
	case frame.Channel == wire.ChannelIndicator && msg.Indicator != nil:
		r.handleIndicator(*msg.Indicator)
	case frame.Channel == wire.ChannelReports && msg.Keyboard != nil:
		r.writeReport(msg.Keyboard.Bytes())
	case frame.Channel == wire.ChannelReports && msg.Mouse != nil:
		r.writeReport(msg.Mouse.Bytes())
	default:
		r.invalid.Inc()
		r.log.Debug("Dropped message on unexpected channel", zap.Uint8("channel", frame.Channel), zap.Stringer("kind", msg.Kind))
	}
}

func (r *Receiver) handleIndicator(cmd indicator.Command) {
	r.indicators.Inc()
	if r.options.indicators == nil {
		return
	}
	select {
	case r.options.indicators <- cmd:
	default:
		r.indicatorsDropped.Inc()
		r.log.Debug("Dropped indicator command, local queue full", zap.Stringer("command", cmd))
	}
}

func (r *Receiver) writeReport(data []byte) {
	r.reports.Inc()
	if r.options.reports == nil {
		return
	}
	if err := r.options.reports.WriteReport(data); err != nil {
		r.reportErrors.Inc()
		r.log.Warn("failed to write report", zap.Error(err))
	}
}

func (r *Receiver) Stats() ReceiverStats {
	return ReceiverStats{
		Frames:            r.frames.Load(),
		Invalid:           r.invalid.Load(),
		Indicators:        r.indicators.Load(),
		IndicatorsDropped: r.indicatorsDropped.Load(),
		Reports:           r.reports.Load(),
		ReportErrors:      r.reportErrors.Load(),
	}
}

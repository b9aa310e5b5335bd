package dispatch

import (
	"context"

	"github.com/neuroplastio/neio-split/indicator"
	"github.com/neuroplastio/neio-split/pkg/wire"
	"github.com/neuroplastio/neio-split/splitapi"
	"go.uber.org/zap"
)

type localSink struct {
	log   *zap.Logger
	ch    chan<- indicator.Command
	stats *stats
}

// deliver never blocks. The driver converges on the latest command, so a full queue drops.
func (s *localSink) deliver(cmd indicator.Command) {
	select {
	case s.ch <- cmd:
		s.stats.localSent.Inc()
	default:
		s.stats.localDropped.Inc()
		s.log.Debug("Dropped indicator command, local queue full", zap.Stringer("command", cmd))
	}
}

type remoteSink struct {
	log   *zap.Logger
	link  splitapi.Link
	stats *stats
}

func (s *remoteSink) deliver(ctx context.Context, cmd indicator.Command) {
	payload, err := wire.EncodeIndicator(cmd)
	if err != nil {
		s.stats.encodeSkipped.Inc()
		s.log.Warn("Failed to encode indicator command", zap.Stringer("command", cmd), zap.Error(err))
		return
	}
	s.send(ctx, wire.ChannelIndicator, &payload, false)
}

// forwardReports sends every report of the tick as its own message.
// A report that does not fit the payload is skipped without affecting the others.
func (s *remoteSink) forwardReports(ctx context.Context, state *splitapi.State) {
	if state.Keyboard != nil {
		payload, err := wire.EncodeKeyboard(*state.Keyboard)
		if err != nil {
			s.stats.encodeSkipped.Inc()
			s.log.Debug("Skipped keyboard report", zap.Error(err))
		} else {
			s.send(ctx, wire.ChannelReports, &payload, true)
		}
	}
	if state.Mouse != nil {
		payload, err := wire.EncodeMouse(*state.Mouse)
		if err != nil {
			s.stats.encodeSkipped.Inc()
			s.log.Debug("Skipped mouse report", zap.Error(err))
		} else {
			s.send(ctx, wire.ChannelReports, &payload, false)
		}
	}
}

// send is fire-and-forget: link failures are the link's business.
func (s *remoteSink) send(ctx context.Context, channel uint8, payload *wire.Payload, urgent bool) {
	err := s.link.Send(ctx, channel, payload.Bytes(), urgent)
	if err != nil {
		s.stats.remoteFailed.Inc()
		s.log.Debug("Link did not accept payload", zap.Uint8("channel", channel), zap.Error(err))
		return
	}
	s.stats.remoteSent.Inc()
}

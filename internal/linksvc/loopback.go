package linksvc

import (
	"context"

	"github.com/neuroplastio/neio-split/splitapi"
	"go.uber.org/zap"
)

// Loopback is an in-process link used to run a half and its peer in a single process.
// Sent frames are queued and delivered to the handler when Flush is called.
type Loopback struct {
	log     *zap.Logger
	handler FrameHandler
	queue   chan []byte
}

var _ splitapi.Link = (*Loopback)(nil)

func NewLoopback(log *zap.Logger, handler FrameHandler, queueSize int) *Loopback {
	return &Loopback{
		log:     log,
		handler: handler,
		queue:   make(chan []byte, queueSize),
	}
}

func (l *Loopback) Send(ctx context.Context, channel uint8, payload []byte, urgent bool) error {
	frame, err := newFrame(channel, payload, urgent)
	if err != nil {
		return err
	}
	select {
	case l.queue <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

// Flush delivers the queued frames in order.
func (l *Loopback) Flush(ctx context.Context) {
	for {
		select {
		case b := <-l.queue:
			frame, err := DecodeFrame(b)
			if err != nil {
				l.log.Debug("Dropped invalid frame", zap.Error(err))
				continue
			}
			l.handler.HandleFrame(ctx, frame)
		default:
			return
		}
	}
}

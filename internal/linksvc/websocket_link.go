package linksvc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/neuroplastio/neio-split/splitapi"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// PeerHeader carries the name a half identifies itself with when connecting.
const PeerHeader = "X-Neio-Peer"

var defaultLinkOptions = linkOptions{
	queueSize:  16,
	minBackoff: 250 * time.Millisecond,
	maxBackoff: 10 * time.Second,
	dialer:     websocket.DefaultDialer,
}

type linkOptions struct {
	name       string
	queueSize  int
	minBackoff time.Duration
	maxBackoff time.Duration
	dialer     *websocket.Dialer
	handler    FrameHandler
}

type LinkOption func(*linkOptions)

func WithName(name string) LinkOption {
	return func(o *linkOptions) {
		o.name = name
	}
}

func WithQueueSize(n int) LinkOption {
	return func(o *linkOptions) {
		o.queueSize = n
	}
}

func WithBackoff(min, max time.Duration) LinkOption {
	return func(o *linkOptions) {
		o.minBackoff = min
		o.maxBackoff = max
	}
}

// WithHandler sets the handler of frames sent back by the peer.
func WithHandler(handler FrameHandler) LinkOption {
	return func(o *linkOptions) {
		o.handler = handler
	}
}

// WebsocketLink is the client side of the split link. It keeps reconnecting to the peer until
// its context is cancelled. Sends made while disconnected fail with ErrNotConnected.
type WebsocketLink struct {
	log     *zap.Logger
	url     string
	options linkOptions
	conn    *atomic.Pointer[conn]
	ready   chan struct{}
}

var _ splitapi.Link = (*WebsocketLink)(nil)

func NewWebsocketLink(log *zap.Logger, url string, opts ...LinkOption) *WebsocketLink {
	options := defaultLinkOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &WebsocketLink{
		log:     log,
		url:     url,
		options: options,
		conn:    atomic.NewPointer[conn](nil),
		ready:   make(chan struct{}),
	}
}

func (l *WebsocketLink) Ready() <-chan struct{} {
	return l.ready
}

func (l *WebsocketLink) Connected() bool {
	return l.conn.Load() != nil
}

func (l *WebsocketLink) Send(ctx context.Context, channel uint8, payload []byte, urgent bool) error {
	c := l.conn.Load()
	if c == nil {
		return ErrNotConnected
	}
	frame, err := newFrame(channel, payload, urgent)
	if err != nil {
		return err
	}
	return c.enqueue(frame, urgent)
}

func (l *WebsocketLink) Start(ctx context.Context) error {
	close(l.ready)
	l.log.Info("Link started", zap.String("peer", l.url))
	backoff := l.options.minBackoff
	for {
		err := l.connect(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			backoff = l.options.minBackoff
		} else {
			l.log.Warn("Link disconnected", zap.Duration("retryIn", backoff), zap.Error(err))
		}
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		backoff = min(backoff*2, l.options.maxBackoff)
	}
}

// connect returns nil only when an established connection was closed by the peer.
func (l *WebsocketLink) connect(ctx context.Context) error {
	header := http.Header{}
	if l.options.name != "" {
		header.Set(PeerHeader, l.options.name)
	}
	ws, _, err := l.options.dialer.DialContext(ctx, l.url, header)
	if err != nil {
		return fmt.Errorf("failed to dial peer: %w", err)
	}
	c := newConn(l.log, ws, l.options.queueSize)
	l.conn.Store(c)
	defer l.conn.Store(nil)
	l.log.Info("Link connected", zap.String("peer", l.url))
	err = c.run(ctx, l.options.handler)
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return err
}

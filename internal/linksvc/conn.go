package linksvc

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	pingInterval = 5 * time.Second
	readTimeout  = 3 * pingInterval
	writeTimeout = time.Second
)

// conn is one websocket connection with a bounded two-level send queue.
// Urgent frames are always written before normal ones.
type conn struct {
	log    *zap.Logger
	ws     *websocket.Conn
	urgent chan []byte
	normal chan []byte

	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64
}

func newConn(log *zap.Logger, ws *websocket.Conn, queueSize int) *conn {
	return &conn{
		log:    log,
		ws:     ws,
		urgent: make(chan []byte, queueSize),
		normal: make(chan []byte, queueSize),
		done:   make(chan struct{}),
	}
}

func (c *conn) enqueue(frame []byte, urgent bool) error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}
	queue := c.normal
	if urgent {
		queue = c.urgent
	}
	select {
	case queue <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// run blocks until the connection fails or the context is cancelled.
func (c *conn) run(ctx context.Context, handler FrameHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.close()
	go func() {
		<-ctx.Done()
		c.close()
	}()
	go c.writeLoop()
	return c.readLoop(ctx, handler)
}

func (c *conn) write(messageType int, data []byte) error {
	err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, data)
}

func (c *conn) writeLoop() {
	defer c.close()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		var frame []byte
		select {
		case frame = <-c.urgent:
		default:
			select {
			case <-c.done:
				return
			case frame = <-c.urgent:
			case frame = <-c.normal:
			case <-ticker.C:
				if err := c.write(websocket.PingMessage, nil); err != nil {
					c.log.Debug("failed to write ping", zap.Error(err))
					return
				}
				continue
			}
		}
		if err := c.write(websocket.BinaryMessage, frame); err != nil {
			c.log.Debug("failed to write frame", zap.Error(err))
			return
		}
	}
}

func (c *conn) readLoop(ctx context.Context, handler FrameHandler) error {
	extend := func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	}
	c.ws.SetPongHandler(extend)
	for {
		if err := extend(""); err != nil {
			return err
		}
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		frame, err := DecodeFrame(data)
		if err != nil {
			c.dropped.Inc()
			c.log.Debug("Dropped invalid frame", zap.Error(err))
			continue
		}
		if handler != nil {
			handler.HandleFrame(ctx, frame)
		}
	}
}

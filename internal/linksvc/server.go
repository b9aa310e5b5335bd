package linksvc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/neuroplastio/neio-split/splitapi"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// LinkPath is the HTTP path the server accepts link connections on.
const LinkPath = "/link"

type serverOptions struct {
	queueSize int
	peers     *PeerRegistry
}

type ServerOption func(*serverOptions)

func WithServerQueueSize(n int) ServerOption {
	return func(o *serverOptions) {
		o.queueSize = n
	}
}

// WithPeerRegistry records connecting halves.
func WithPeerRegistry(peers *PeerRegistry) ServerOption {
	return func(o *serverOptions) {
		o.peers = peers
	}
}

// Server accepts links from the other halves. Received frames go to the handler, Send broadcasts
// to every connected half.
type Server struct {
	log      *zap.Logger
	addr     string
	options  serverOptions
	handler  FrameHandler
	upgrader websocket.Upgrader

	conns    *xsync.MapOf[string, *conn]
	listener net.Listener
	ready    chan struct{}
}

var _ splitapi.Link = (*Server)(nil)

func NewServer(log *zap.Logger, addr string, handler FrameHandler, opts ...ServerOption) *Server {
	options := serverOptions{queueSize: defaultLinkOptions.queueSize}
	for _, opt := range opts {
		opt(&options)
	}
	return &Server{
		log:     log,
		addr:    addr,
		options: options,
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  MaxFrameSize,
			WriteBufferSize: MaxFrameSize,
		},
		conns: xsync.NewMapOf[string, *conn](),
		ready: make(chan struct{}),
	}
}

func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr is the listening address, only valid once the server is ready.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	mux := http.NewServeMux()
	mux.HandleFunc(LinkPath, s.serveLink)
	httpServer := &http.Server{
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()
	close(s.ready)
	s.log.Info("Link server started", zap.Stringer("addr", listener.Addr()))
	err = httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("link server failed: %w", err)
}

func (s *Server) Peers() []string {
	var ids []string
	s.conns.Range(func(id string, _ *conn) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

func (s *Server) Send(ctx context.Context, channel uint8, payload []byte, urgent bool) error {
	frame, err := newFrame(channel, payload, urgent)
	if err != nil {
		return err
	}
	sent := false
	s.conns.Range(func(id string, c *conn) bool {
		if enqueueErr := c.enqueue(frame, urgent); enqueueErr != nil {
			err = multierr.Append(err, fmt.Errorf("peer %s: %w", id, enqueueErr))
			return true
		}
		sent = true
		return true
	})
	if !sent && err == nil {
		return ErrNotConnected
	}
	return err
}

func (s *Server) serveLink(w http.ResponseWriter, r *http.Request) {
	peerID := r.Header.Get(PeerHeader)
	if peerID == "" {
		peerID = r.RemoteAddr
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("failed to upgrade link connection", zap.Error(err))
		return
	}
	ctx := r.Context()
	log := s.log.With(zap.String("peer", peerID))
	c := newConn(log, ws, s.options.queueSize)
	if old, loaded := s.conns.LoadAndStore(peerID, c); loaded {
		log.Info("Replacing previous connection")
		old.close()
	}
	s.peerConnected(ctx, peerID, r.RemoteAddr)
	log.Info("Peer connected", zap.String("remoteAddr", r.RemoteAddr))

	err = c.run(ctx, s.handler)

	removed := false
	s.conns.Compute(peerID, func(current *conn, loaded bool) (*conn, bool) {
		removed = loaded && current == c
		return current, !loaded || current == c
	})
	if !removed {
		// a newer connection of the same peer owns the record
		log.Info("Replaced connection closed", zap.NamedError("reason", err))
		return
	}
	s.peerDisconnected(ctx, peerID)
	log.Info("Peer disconnected", zap.NamedError("reason", err), zap.Uint64("droppedFrames", c.dropped.Load()))
}

func (s *Server) peerConnected(ctx context.Context, id, remoteAddr string) {
	if s.options.peers == nil {
		return
	}
	if _, err := s.options.peers.Connected(ctx, id, remoteAddr); err != nil {
		s.log.Error("failed to record peer", zap.String("peer", id), zap.Error(err))
	}
}

func (s *Server) peerDisconnected(ctx context.Context, id string) {
	if s.options.peers == nil {
		return
	}
	// the request context may already be done
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if _, err := s.options.peers.Disconnected(ctx, id); err != nil {
		s.log.Error("failed to record peer", zap.String("peer", id), zap.Error(err))
	}
}

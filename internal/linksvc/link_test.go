package linksvc

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/neuroplastio/neio-split/indicator"
	"github.com/neuroplastio/neio-split/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type frameRecorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *frameRecorder) HandleFrame(ctx context.Context, frame Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	frame.Payload = append([]byte(nil), frame.Payload...)
	r.frames = append(r.frames, frame)
}

func (r *frameRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func openDB(t *testing.T) *badger.DB {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestLoopback(t *testing.T) {
	indicators := make(chan indicator.Command, 4)
	receiver := NewReceiver(zaptest.NewLogger(t), WithIndicatorSink(indicators))
	loopback := NewLoopback(zaptest.NewLogger(t), receiver, 1)
	ctx := context.Background()

	payload, err := wire.EncodeIndicator(indicator.Start(indicator.Solid(0, 10, 0)))
	require.NoError(t, err)
	require.NoError(t, loopback.Send(ctx, wire.ChannelIndicator, payload.Bytes(), false))
	assert.ErrorIs(t, loopback.Send(ctx, wire.ChannelIndicator, payload.Bytes(), false), ErrQueueFull)

	loopback.Flush(ctx)
	assert.Equal(t, indicator.Start(indicator.Solid(0, 10, 0)), <-indicators)
}

func TestWebsocketLink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := zaptest.NewLogger(t)

	peerBus := NewPeerBus(log)
	require.NoError(t, peerBus.Start(ctx))
	events := peerBus.Subscribe(ctx, "left")
	peers := NewPeerRegistry(log, openDB(t), time.Now, peerBus)

	received := &frameRecorder{}
	server := NewServer(log.Named("server"), "127.0.0.1:0", received, WithPeerRegistry(peers))
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start(ctx)
	}()
	<-server.Ready()

	assert.ErrorIs(t, server.Send(ctx, wire.ChannelIndicator, nil, false), ErrNotConnected)

	echoed := &frameRecorder{}
	url := fmt.Sprintf("ws://%s%s", server.Addr(), LinkPath)
	linkCtx, linkCancel := context.WithCancel(ctx)
	link := NewWebsocketLink(log.Named("link"), url, WithName("left"), WithHandler(echoed), WithBackoff(10*time.Millisecond, 50*time.Millisecond))
	assert.ErrorIs(t, link.Send(ctx, wire.ChannelIndicator, nil, false), ErrNotConnected)
	linkDone := make(chan error, 1)
	go func() {
		linkDone <- link.Start(linkCtx)
	}()

	select {
	case msg := <-events:
		assert.Equal(t, PeerConnected, msg.Message.Type)
		assert.True(t, msg.Message.Peer.Connected)
	case <-time.After(5 * time.Second):
		t.Fatal("peer never connected")
	}
	require.Eventually(t, link.Connected, 5*time.Second, 5*time.Millisecond)

	payload, err := wire.EncodeIndicator(indicator.Start(indicator.Solid(0, 0, 10)))
	require.NoError(t, err)
	require.NoError(t, link.Send(ctx, wire.ChannelIndicator, payload.Bytes(), true))
	require.Eventually(t, func() bool { return received.len() == 1 }, 5*time.Second, 5*time.Millisecond)
	received.mu.Lock()
	assert.Equal(t, payload.Bytes(), received.frames[0].Payload)
	assert.True(t, received.frames[0].Urgent())
	received.mu.Unlock()

	assert.Equal(t, []string{"left"}, server.Peers())
	require.NoError(t, server.Send(ctx, wire.ChannelIndicator, payload.Bytes(), false))
	require.Eventually(t, func() bool { return echoed.len() == 1 }, 5*time.Second, 5*time.Millisecond)

	linkCancel()
	assert.NoError(t, <-linkDone)
	select {
	case msg := <-events:
		assert.Equal(t, PeerDisconnected, msg.Message.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("peer never disconnected")
	}

	peer, err := peers.Get("left")
	require.NoError(t, err)
	assert.False(t, peer.Connected)
	assert.Equal(t, 1, peer.Connections)
	list, err := peers.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	cancel()
	assert.NoError(t, <-serverDone)
}

func TestReconnectReplacesConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := zaptest.NewLogger(t)

	peerBus := NewPeerBus(log)
	require.NoError(t, peerBus.Start(ctx))
	events := peerBus.Subscribe(ctx, "left")
	peers := NewPeerRegistry(log, openDB(t), time.Now, peerBus)

	server := NewServer(log.Named("server"), "127.0.0.1:0", &frameRecorder{}, WithPeerRegistry(peers))
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start(ctx)
	}()
	<-server.Ready()
	url := fmt.Sprintf("ws://%s%s", server.Addr(), LinkPath)

	expectEvent := func(eventType PeerEventType) {
		select {
		case msg := <-events:
			require.Equal(t, eventType, msg.Message.Type)
		case <-time.After(5 * time.Second):
			t.Fatalf("no %s event", eventType)
		}
	}

	// the first link must not reconnect once it is replaced
	firstCtx, firstCancel := context.WithCancel(ctx)
	first := NewWebsocketLink(log.Named("first"), url, WithName("left"), WithBackoff(time.Minute, time.Minute))
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- first.Start(firstCtx)
	}()
	expectEvent(PeerConnected)
	require.Eventually(t, first.Connected, 5*time.Second, 5*time.Millisecond)

	secondCtx, secondCancel := context.WithCancel(ctx)
	second := NewWebsocketLink(log.Named("second"), url, WithName("left"), WithBackoff(10*time.Millisecond, 50*time.Millisecond))
	secondDone := make(chan error, 1)
	go func() {
		secondDone <- second.Start(secondCtx)
	}()
	expectEvent(PeerConnected)
	require.Eventually(t, second.Connected, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !first.Connected() }, 5*time.Second, 5*time.Millisecond)

	firstCancel()
	assert.NoError(t, <-firstDone)
	select {
	case msg := <-events:
		t.Fatalf("unexpected %s event while the second connection is live", msg.Message.Type)
	case <-time.After(200 * time.Millisecond):
	}

	assert.Equal(t, []string{"left"}, server.Peers())
	peer, err := peers.Get("left")
	require.NoError(t, err)
	assert.True(t, peer.Connected)
	assert.Equal(t, 2, peer.Connections)

	secondCancel()
	assert.NoError(t, <-secondDone)
	expectEvent(PeerDisconnected)
	peer, err = peers.Get("left")
	require.NoError(t, err)
	assert.False(t, peer.Connected)

	cancel()
	assert.NoError(t, <-serverDone)
}

func TestPeerRegistry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	peers := NewPeerRegistry(zaptest.NewLogger(t), openDB(t), func() time.Time { return now }, nil)
	ctx := context.Background()

	_, err := peers.Get("right")
	assert.ErrorIs(t, err, ErrPeerNotFound)

	first, err := peers.Connected(ctx, "right", "10.0.0.2:5000")
	require.NoError(t, err)
	assert.True(t, now.Equal(first.FirstSeenAt))

	now = now.Add(time.Hour)
	_, err = peers.Disconnected(ctx, "right")
	require.NoError(t, err)
	second, err := peers.Connected(ctx, "right", "10.0.0.3:5000")
	require.NoError(t, err)
	assert.True(t, first.FirstSeenAt.Equal(second.FirstSeenAt))
	assert.True(t, now.Equal(second.LastSeenAt))
	assert.Equal(t, 2, second.Connections)
	assert.Equal(t, "10.0.0.3:5000", second.RemoteAddr)
}

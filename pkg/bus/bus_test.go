package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func receive[K comparable, M any](t *testing.T, ch <-chan Message[K, M]) Message[K, M] {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return Message[K, M]{}
}

func TestPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewBus[string, int](zaptest.NewLogger(t))
	require.NoError(t, b.Start(ctx))
	<-b.Ready()

	all := b.Subscribe(ctx)
	left := b.CreateSubscriber("left")(ctx)

	b.Publish(ctx, "left", 1)
	assert.Equal(t, Message[string, int]{Key: "left", Message: 1}, receive(t, all))
	assert.Equal(t, Message[string, int]{Key: "left", Message: 1}, receive(t, left))

	b.CreatePublisher("right")(ctx, 2)
	assert.Equal(t, Message[string, int]{Key: "right", Message: 2}, receive(t, all))
	select {
	case msg := <-left:
		t.Fatalf("unexpected message %v", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestCancelledSubscriberDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewBus[string, int](zaptest.NewLogger(t))
	require.NoError(t, b.Start(ctx))

	subCtx, subCancel := context.WithCancel(ctx)
	b.Subscribe(subCtx, "key")
	subCancel()

	all := b.Subscribe(ctx)
	for i := 0; i < 5; i++ {
		b.Publish(ctx, "key", i)
		assert.Equal(t, i, receive(t, all).Message)
	}
}

func TestPublishWithoutWorker(t *testing.T) {
	b := NewBus[string, int](zaptest.NewLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	b.Publish(ctx, "key", 1)
	assert.Error(t, ctx.Err())
}

// Package bus is a small keyed publish/subscribe hub.
package bus

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

type Message[K comparable, M any] struct {
	Key     K
	Message M
}

type Publisher[M any] func(ctx context.Context, msg M)
type Subscriber[K comparable, M any] func(ctx context.Context) <-chan Message[K, M]

type subscription[K comparable, M any] struct {
	ctx context.Context
	ch  chan Message[K, M]
}

// Bus delivers every published message to the global subscribers and to the subscribers of its key,
// in publishing order. A slow subscriber slows down the whole bus.
type Bus[K comparable, M any] struct {
	log         *zap.Logger
	concurrency int
	ready       chan struct{}

	ch         chan Message[K, M]
	keySubs    *xsync.MapOf[K, map[*subscription[K, M]]struct{}]
	globalSubs *xsync.MapOf[*subscription[K, M], struct{}]
}

func NewBus[K comparable, M any](logger *zap.Logger) *Bus[K, M] {
	return &Bus[K, M]{
		log:         logger,
		ready:       make(chan struct{}),
		concurrency: 1,

		ch:         make(chan Message[K, M]),
		keySubs:    xsync.NewMapOf[K, map[*subscription[K, M]]struct{}](),
		globalSubs: xsync.NewMapOf[*subscription[K, M], struct{}](),
	}
}

func (b *Bus[K, M]) Start(ctx context.Context) error {
	if b.concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	for i := 0; i < b.concurrency; i++ {
		go b.worker(ctx)
	}
	close(b.ready)
	return nil
}

func (b *Bus[K, M]) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.ch:
			b.process(ctx, msg)
		}
	}
}

func (b *Bus[K, M]) Ready() <-chan struct{} {
	return b.ready
}

// Publish blocks until a worker picks the message up or ctx is done.
func (b *Bus[K, M]) Publish(ctx context.Context, key K, msg M) {
	select {
	case <-ctx.Done():
		b.log.Debug("Message not published", zap.Error(ctx.Err()))
	case b.ch <- Message[K, M]{key, msg}:
	}
}

func (b *Bus[K, M]) CreatePublisher(key K) Publisher[M] {
	return func(ctx context.Context, msg M) {
		b.Publish(ctx, key, msg)
	}
}

func (b *Bus[K, M]) CreateSubscriber(key ...K) Subscriber[K, M] {
	return func(ctx context.Context) <-chan Message[K, M] {
		return b.Subscribe(ctx, key...)
	}
}

func (b *Bus[K, M]) deliver(ctx context.Context, sub *subscription[K, M], msg Message[K, M]) bool {
	select {
	case <-ctx.Done():
		return false
	case <-sub.ctx.Done():
	case sub.ch <- msg:
	}
	return true
}

func (b *Bus[K, M]) process(ctx context.Context, msg Message[K, M]) {
	b.globalSubs.Range(func(sub *subscription[K, M], _ struct{}) bool {
		return b.deliver(ctx, sub, msg)
	})
	subs, ok := b.keySubs.Load(msg.Key)
	if !ok {
		return
	}
	for sub := range subs {
		if !b.deliver(ctx, sub, msg) {
			return
		}
	}
}

// Subscribe returns a channel of the messages published with one of the keys, or all of them when
// no key is given. The subscription ends with ctx; the channel is never closed.
func (b *Bus[K, M]) Subscribe(ctx context.Context, key ...K) <-chan Message[K, M] {
	sub := &subscription[K, M]{
		ctx: ctx,
		ch:  make(chan Message[K, M], 1),
	}
	if len(key) == 0 {
		b.globalSubs.Store(sub, struct{}{})
		go func() {
			<-ctx.Done()
			b.globalSubs.Delete(sub)
		}()
		return sub.ch
	}
	for _, k := range key {
		b.keySubs.Compute(k, func(val map[*subscription[K, M]]struct{}, ok bool) (map[*subscription[K, M]]struct{}, bool) {
			next := make(map[*subscription[K, M]]struct{}, len(val)+1)
			for s := range val {
				next[s] = struct{}{}
			}
			next[sub] = struct{}{}
			return next, false
		})
	}
	go func() {
		<-ctx.Done()
		for _, k := range key {
			b.keySubs.Compute(k, func(val map[*subscription[K, M]]struct{}, ok bool) (map[*subscription[K, M]]struct{}, bool) {
				next := make(map[*subscription[K, M]]struct{}, len(val))
				for s := range val {
					if s != sub {
						next[s] = struct{}{}
					}
				}
				return next, len(next) == 0
			})
		}
	}()
	return sub.ch
}

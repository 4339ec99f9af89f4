// Package bus fans keyed messages out to subscribers.
package bus

import (
	"context"
	"errors"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

type key interface {
	comparable
}

type message interface {
	any
}

type Message[K key, M message] struct {
	Key     K
	Message M
}

type Publisher[M message] func(ctx context.Context, msg M)
type Subscriber[K key, M message] func(ctx context.Context) <-chan Message[K, M]

// Bus delivers every published message to the subscribers of its key and to
// global subscribers, in publish order. Publish blocks until all subscribers
// received the message.
type Bus[K key, M message] struct {
	log        *zap.Logger
	bufferSize int
	ready      chan struct{}

	ch         chan Message[K, M]
	keySubs    *xsync.MapOf[K, map[chan Message[K, M]]struct{}]
	globalSubs *xsync.MapOf[chan Message[K, M], struct{}]
}

type Option func(*options)

type options struct {
	bufferSize int
}

// WithBufferSize sets the capacity of subscriber channels.
func WithBufferSize(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

func NewBus[K key, M message](logger *zap.Logger, opts ...Option) *Bus[K, M] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Bus[K, M]{
		log:        logger,
		bufferSize: o.bufferSize,
		ready:      make(chan struct{}),

		ch:         make(chan Message[K, M]),
		keySubs:    xsync.NewMapOf[K, map[chan Message[K, M]]struct{}](),
		globalSubs: xsync.NewMapOf[chan Message[K, M], struct{}](),
	}
}

func (b *Bus[K, M]) Start(ctx context.Context) error {
	if b.bufferSize < 0 {
		return errors.New("buffer size must not be negative")
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-b.ch:
				b.process(ctx, msg)
			}
		}
	}()
	close(b.ready)
	return nil
}

func (b *Bus[K, M]) Ready() <-chan struct{} {
	return b.ready
}

func (b *Bus[K, M]) Publish(ctx context.Context, key K, msg M) {
	select {
	case <-ctx.Done():
		return
	case b.ch <- Message[K, M]{key, msg}:
	}
}

// TryPublish hands msg to the bus only if the worker is idle.
func (b *Bus[K, M]) TryPublish(key K, msg M) bool {
	select {
	case b.ch <- Message[K, M]{key, msg}:
		return true
	default:
		return false
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

func (b *Bus[K, M]) process(ctx context.Context, msg Message[K, M]) {
	b.globalSubs.Range(func(sub chan Message[K, M], _ struct{}) bool {
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

func (b *Bus[K, M]) deliver(ctx context.Context, sub chan Message[K, M], msg Message[K, M]) (ok bool) {
	defer func() {
		// the subscription was closed while delivering
		if r := recover(); r != nil {
			b.log.Debug("Dropped message for a closed subscriber")
			ok = true
		}
	}()
	select {
	case <-ctx.Done():
		return false
	case sub <- msg:
	}
	return true
}

// Subscribe returns a channel receiving messages for the given keys, or for
// every key when none is given. The channel is closed when ctx is done.
func (b *Bus[K, M]) Subscribe(ctx context.Context, key ...K) <-chan Message[K, M] {
	ch := make(chan Message[K, M], b.bufferSize)
	if len(key) == 0 {
		b.globalSubs.Store(ch, struct{}{})
		go func() {
			<-ctx.Done()
			b.globalSubs.Delete(ch)
			close(ch)
		}()
		return ch
	}
	for _, k := range key {
		b.keySubs.Compute(k, func(val map[chan Message[K, M]]struct{}, ok bool) (map[chan Message[K, M]]struct{}, bool) {
			next := make(map[chan Message[K, M]]struct{}, len(val)+1)
			for sub := range val {
				next[sub] = struct{}{}
			}
			next[ch] = struct{}{}
			return next, false
		})
	}
	go func() {
		<-ctx.Done()
		for _, k := range key {
			b.keySubs.Compute(k, func(val map[chan Message[K, M]]struct{}, ok bool) (map[chan Message[K, M]]struct{}, bool) {
				next := make(map[chan Message[K, M]]struct{}, len(val))
				for sub := range val {
					if sub != ch {
						next[sub] = struct{}{}
					}
				}
				return next, len(next) == 0
			})
		}
		close(ch)
	}()
	return ch
}

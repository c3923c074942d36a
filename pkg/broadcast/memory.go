package broadcast

import (
	"context"
	"sync"
)

// Option configures a MemoryBroadcaster.
type Option func(*options)

type options struct {
	replayLast bool
}

// WithReplayLast makes new subscribers receive the most recent message
// right after subscribing.
func WithReplayLast() Option {
	return func(o *options) { o.replayLast = true }
}

// MemoryBroadcaster is an in-process Broadcaster. All methods are safe for
// concurrent use.
type MemoryBroadcaster[T any] struct {
	subscribers map[*subscriber[T]]struct{}
	bufferSize  int
	replayLast  bool
	last        *Message[T]
	closed      bool
	done        chan struct{}
	mu          sync.Mutex
}

// NewMemoryBroadcaster creates a broadcaster whose subscribers buffer up to
// bufferSize messages (minimum 1).
func NewMemoryBroadcaster[T any](bufferSize int, opts ...Option) *MemoryBroadcaster[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryBroadcaster[T]{
		subscribers: make(map[*subscriber[T]]struct{}),
		bufferSize:  max(bufferSize, 1),
		replayLast:  o.replayLast,
		done:        make(chan struct{}),
	}
}

// Subscribe registers a subscriber that lives until ctx is cancelled, the
// subscriber is closed, or the broadcaster is closed. Subscribing to a
// closed broadcaster returns an already closed subscriber.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newSubscriber[T](b.bufferSize)
	if b.closed {
		_ = sub.Close()
		return sub
	}

	b.subscribers[sub] = struct{}{}
	if b.replayLast && b.last != nil {
		sub.send(*b.last)
	}

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				b.unsubscribe(sub)
			case <-b.done:
			}
		}()
	}

	return sub
}

// Broadcast delivers msg to all subscribers without blocking. Closed
// subscribers are dropped from the set.
func (b *MemoryBroadcaster[T]) Broadcast(_ context.Context, msg Message[T]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	if b.replayLast {
		b.last = &msg
	}

	for sub := range b.subscribers {
		if !sub.send(msg) {
			delete(b.subscribers, sub)
		}
	}
	return nil
}

// SubscriberCount reports the number of active subscribers.
func (b *MemoryBroadcaster[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Close closes every subscriber. Further Broadcast calls are no-ops.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for sub := range b.subscribers {
		_ = sub.Close()
	}
	clear(b.subscribers)
	close(b.done)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBroadcaster[T]) unsubscribe(sub *subscriber[T]) {
	b.mu.Lock()
	delete(b.subscribers, sub)
	b.mu.Unlock()
	_ = sub.Close()
}

var _ Broadcaster[struct{}] = (*MemoryBroadcaster[struct{}])(nil)

package broadcast

import (
	"context"
	"sync"
)

// Message wraps data of type T.
type Message[T any] struct {
	Data T
}

// Subscriber receives messages from a Broadcaster.
type Subscriber[T any] interface {
	// Receive returns the channel messages are delivered on. It is closed
	// when the subscriber or the broadcaster is closed, or when the context
	// passed to Subscribe is cancelled.
	Receive(ctx context.Context) <-chan Message[T]

	// Close releases the subscription. It is idempotent.
	Close() error
}

// Broadcaster sends messages to every active subscriber.
type Broadcaster[T any] interface {
	Subscribe(ctx context.Context) Subscriber[T]
	Broadcast(ctx context.Context, msg Message[T]) error
	Close() error
}

type subscriber[T any] struct {
	ch     chan Message[T]
	closed bool
	mu     sync.Mutex
}

func newSubscriber[T any](bufferSize int) *subscriber[T] {
	return &subscriber[T]{ch: make(chan Message[T], bufferSize)}
}

func (s *subscriber[T]) Receive(context.Context) <-chan Message[T] {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

// send enqueues msg, evicting the oldest pending message when the buffer is
// full. Only one goroutine sends at a time, so after an eviction there is
// room for msg.
func (s *subscriber[T]) send(msg Message[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	for {
		select {
		case s.ch <- msg:
			return true
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

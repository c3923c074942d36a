package toolkit

import (
	"sync"

	"github.com/dmitrymomot/ency/pkg/identity"
)

// observer delivers notifications to fn on its own goroutine, in the order
// they were queued. Queueing never blocks the notifier.
type observer struct {
	fn     func(*identity.User)
	mu     sync.Mutex
	queue  []*identity.User
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newObserver(fn func(*identity.User)) *observer {
	o := &observer{
		fn:     fn,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *observer) push(u *identity.User) {
	o.mu.Lock()
	o.queue = append(o.queue, u)
	o.mu.Unlock()

	select {
	case o.signal <- struct{}{}:
	default:
	}
}

func (o *observer) stop() {
	o.once.Do(func() { close(o.done) })
}

func (o *observer) run() {
	for {
		select {
		case <-o.done:
			return
		case <-o.signal:
		}

		for {
			o.mu.Lock()
			if len(o.queue) == 0 {
				o.mu.Unlock()
				break
			}
			u := o.queue[0]
			o.queue = o.queue[1:]
			o.mu.Unlock()

			select {
			case <-o.done:
				return
			default:
			}
			o.fn(u)
		}
	}
}

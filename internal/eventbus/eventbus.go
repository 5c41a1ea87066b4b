// Package eventbus fans domain events out to in-process subscribers. Delivery
// never blocks the publisher: a subscriber whose buffer is full misses the
// event and the drop is counted.
package eventbus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 8

var dropped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "eventbus_dropped_events_total",
		Help: "Events not delivered because a subscriber buffer was full",
	},
	[]string{"bus"},
)

func init() {
	prometheus.MustRegister(dropped)
}

// Bus is a type-safe publish/subscribe bus for events of type T.
type Bus[T any] struct {
	name   string
	buffer int

	mu     sync.RWMutex
	subs   []chan T
	closed bool
}

// Option configures a Bus.
type Option func(*options)

type options struct {
	buffer int
}

// WithBuffer sets the subscriber channel capacity.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// New creates a bus. name labels the drop counter.
func New[T any](name string, opts ...Option) *Bus[T] {
	o := options{buffer: DefaultBuffer}
	for _, fn := range opts {
		fn(&o)
	}
	return &Bus[T]{name: name, buffer: o.buffer}
}

// Name returns the bus label.
func (b *Bus[T]) Name() string { return b.name }

// Publish sends e to every subscriber and returns how many received it.
func (b *Bus[T]) Publish(e T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	n := 0
	for _, ch := range b.subs {
		select {
		case ch <- e:
			n++
		default:
			dropped.WithLabelValues(b.name).Inc()
		}
	}
	return n
}

// Subscribe registers a subscriber. On a closed bus the returned channel is
// already closed.
func (b *Bus[T]) Subscribe() <-chan T {
	ch := make(chan T, b.buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus[T]) Unsubscribe(sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Subscribers returns the number of live subscribers.
func (b *Bus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes the bus and all subscriber channels. It is idempotent.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

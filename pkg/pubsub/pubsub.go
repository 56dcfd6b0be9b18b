// Package pubsub fans state updates out to multiple consumers. Each
// subscriber gets its own buffered channel; delivery is latest-wins, so a
// subscriber that falls behind misses intermediate updates instead of
// blocking the publisher. Consumers only act on the most recent state, so a
// stale update has no value.
package pubsub

import (
	"log/slog"
	"sync"
)

// subscriberBuffer is the per-subscriber channel capacity. One pending update
// per subscriber: a newer update replaces it.
const subscriberBuffer = 1

type Publisher[T any] struct {
	logger      *slog.Logger
	lock        sync.Mutex
	subscribers map[chan T]struct{}
}

func NewPublisher[T any](logger *slog.Logger) *Publisher[T] {
	return &Publisher[T]{
		logger:      logger,
		subscribers: make(map[chan T]struct{}),
	}
}

// Subscribe registers a subscriber and returns the channel its updates will
// be delivered on.
func (p *Publisher[T]) Subscribe() chan T {
	ch := make(chan T, subscriberBuffer)
	p.lock.Lock()
	defer p.lock.Unlock()
	p.subscribers[ch] = struct{}{}
	p.logger.Debug("subscriber registered", slog.Int("subscribers", len(p.subscribers)))
	return ch
}

// Unsubscribe deregisters a subscriber. The channel is not closed: a publish
// may still be in flight.
func (p *Publisher[T]) Unsubscribe(ch chan T) {
	p.lock.Lock()
	defer p.lock.Unlock()
	delete(p.subscribers, ch)
	p.logger.Debug("subscriber deregistered", slog.Int("subscribers", len(p.subscribers)))
}

// Publish delivers update to all subscribers without blocking. If a
// subscriber still holds an undelivered update, it is replaced.
func (p *Publisher[T]) Publish(update T) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for ch := range p.subscribers {
		select {
		case ch <- update:
			continue
		default:
		}
		select {
		case <-ch:
			p.logger.Debug("subscriber lagging; replacing pending update")
		default:
		}
		// the lock serializes senders, so after the drain the buffer has
		// room and this cannot block
		ch <- update
	}
}

// Subscribers returns the current number of subscribers
func (p *Publisher[T]) Subscribers() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.subscribers)
}

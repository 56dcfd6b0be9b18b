package pubsub

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher(t *testing.T) {
	p := NewPublisher[int](slog.New(slog.NewTextHandler(io.Discard, nil)))

	const clients = 10
	channels := make([]chan int, clients)
	for i := range channels {
		channels[i] = p.Subscribe()
	}
	assert.Equal(t, clients, p.Subscribers())

	p.Publish(123)
	for _, ch := range channels {
		assert.Equal(t, 123, <-ch)
	}

	for _, ch := range channels {
		p.Unsubscribe(ch)
	}
	assert.Zero(t, p.Subscribers())
}

func TestPublisher_LaggingSubscriber(t *testing.T) {
	p := NewPublisher[int](slog.New(slog.NewTextHandler(io.Discard, nil)))

	ch := p.Subscribe()

	// the subscriber never blocks the publisher; an unconsumed update is
	// replaced by the next one
	p.Publish(1)
	p.Publish(2)
	p.Publish(3)

	require.Equal(t, 3, <-ch)
	select {
	case update := <-ch:
		t.Fatalf("unexpected pending update: %d", update)
	default:
	}
}

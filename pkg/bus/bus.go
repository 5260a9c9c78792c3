package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBusClosed is returned when publishing to a closed EventBus.
var ErrBusClosed = errors.New("event bus closed")

// EventBus decouples the chat session from the UI loop: the session pushes
// updates and notices, the UI consumes them at its own pace.
type EventBus struct {
	updates chan Update
	notices chan Notice
	done    chan struct{}
	closed  atomic.Bool
}

func NewEventBus() *EventBus {
	return &EventBus{
		updates: make(chan Update, 100),
		notices: make(chan Notice, 100),
		done:    make(chan struct{}),
	}
}

func (eb *EventBus) PublishUpdate(ctx context.Context, u Update) error {
	if eb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case eb.updates <- u:
		return nil
	case <-eb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (eb *EventBus) ConsumeUpdate(ctx context.Context) (Update, bool) {
	select {
	case u, ok := <-eb.updates:
		return u, ok
	case <-eb.done:
		return Update{}, false
	case <-ctx.Done():
		return Update{}, false
	}
}

func (eb *EventBus) PublishNotice(ctx context.Context, n Notice) error {
	if eb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case eb.notices <- n:
		return nil
	case <-eb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (eb *EventBus) ConsumeNotice(ctx context.Context) (Notice, bool) {
	select {
	case n, ok := <-eb.notices:
		return n, ok
	case <-eb.done:
		return Notice{}, false
	case <-ctx.Done():
		return Notice{}, false
	}
}

func (eb *EventBus) Close() {
	if eb.closed.CompareAndSwap(false, true) {
		close(eb.done)
	}
}

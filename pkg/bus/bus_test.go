package bus

import (
	"context"
	"testing"
	"time"
)

func TestEventBus_PublishConsume(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	if err := eb.PublishUpdate(context.Background(), Update{RoomID: "r1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	u, ok := eb.ConsumeUpdate(context.Background())
	if !ok || u.RoomID != "r1" {
		t.Fatalf("consume: %+v, %v", u, ok)
	}

	if err := eb.PublishNotice(context.Background(), Notice{RoomID: "r1", Level: "info", Text: "hi"}); err != nil {
		t.Fatalf("publish notice: %v", err)
	}
	n, ok := eb.ConsumeNotice(context.Background())
	if !ok || n.Text != "hi" {
		t.Fatalf("consume notice: %+v, %v", n, ok)
	}
}

func TestEventBus_Closed(t *testing.T) {
	eb := NewEventBus()
	eb.Close()
	eb.Close() // idempotent

	if err := eb.PublishUpdate(context.Background(), Update{}); err != ErrBusClosed {
		t.Errorf("publish after close: %v", err)
	}
	if _, ok := eb.ConsumeUpdate(context.Background()); ok {
		t.Error("consume after close should report not ok")
	}
}

func TestEventBus_ContextCancel(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, ok := eb.ConsumeUpdate(ctx); ok {
		t.Error("consume should give up on context timeout")
	}
}

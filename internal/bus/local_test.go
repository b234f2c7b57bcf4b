package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/daily/internal/apperr"
)

func recv(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
		return Message{}
	}
}

func TestLocalSubscribeUnsubscribe(t *testing.T) {
	l := NewLocal(nil)
	defer l.Close()

	if l.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers")
	}
	unsub, err := l.Subscribe("a", func(Message) {})
	if err != nil {
		t.Fatal(err)
	}
	if l.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber")
	}
	unsub()
	unsub()
	if l.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after unsub")
	}
}

func TestLocalTopicRouting(t *testing.T) {
	l := NewLocal(nil)
	defer l.Close()

	onA := make(chan Message, 4)
	all := make(chan Message, 4)
	if _, err := l.Subscribe("a", func(m Message) { onA <- m }); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Subscribe(AllTopics, func(m Message) { all <- m }); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	_ = l.Publish(ctx, "b", []byte(`1`))
	_ = l.Publish(ctx, "a", []byte(`2`))

	if msg := recv(t, onA); msg.Topic != "a" || string(msg.Data) != "2" {
		t.Errorf("topic subscriber got %+v", msg)
	}
	if msg := recv(t, all); msg.Topic != "b" {
		t.Errorf("wildcard first = %q, want b", msg.Topic)
	}
	if msg := recv(t, all); msg.Topic != "a" {
		t.Errorf("wildcard second = %q, want a", msg.Topic)
	}
}

func TestLocalHandlerPanicDoesNotStopDelivery(t *testing.T) {
	l := NewLocal(nil)
	defer l.Close()

	got := make(chan Message, 2)
	_, _ = l.Subscribe("a", func(m Message) {
		if string(m.Data) == "boom" {
			panic("boom")
		}
		got <- m
	})

	ctx := context.Background()
	_ = l.Publish(ctx, "a", []byte("boom"))
	_ = l.Publish(ctx, "a", []byte("ok"))

	if msg := recv(t, got); string(msg.Data) != "ok" {
		t.Errorf("got %q", msg.Data)
	}
}

func TestLocalClosed(t *testing.T) {
	l := NewLocal(nil)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	_ = l.Close()

	if err := l.Publish(context.Background(), "a", nil); !errors.Is(err, apperr.ErrClosed) {
		t.Errorf("publish after close: %v", err)
	}
	if _, err := l.Subscribe("a", func(Message) {}); !errors.Is(err, apperr.ErrClosed) {
		t.Errorf("subscribe after close: %v", err)
	}
	if n := l.SubscriberCount(); n != 0 {
		t.Errorf("count after close = %d", n)
	}
}

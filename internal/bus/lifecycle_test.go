package bus

import (
	"context"
	"testing"
	"time"
)

func TestLifecycleEventBusPublishAndReceive(t *testing.T) {
	b := NewLifecycleEventBus()
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	b.Publish(LifecycleEvent{Type: EventSupervisorStarted})

	select {
	case ev := <-sub.Events:
		if ev.Type != EventSupervisorStarted {
			t.Fatalf("got type %q, want %q", ev.Type, EventSupervisorStarted)
		}
		if ev.At.IsZero() {
			t.Fatal("expected At to be stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestLifecycleEventBusMultipleSubscribers(t *testing.T) {
	b := NewLifecycleEventBus()
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()

	id := ResourceID{Type: "agent", Instance: "test:1"}
	b.Publish(LifecycleEvent{Type: EventResourceStarted, ResourceID: id, ResourceType: "agent"})

	for _, sub := range []*LifecycleSubscription{sub1, sub2} {
		select {
		case ev := <-sub.Events:
			if ev.Type != EventResourceStarted {
				t.Fatalf("got type %q, want %q", ev.Type, EventResourceStarted)
			}
			rid, ok := ev.ResourceIDRef()
			if !ok || rid != id {
				t.Fatalf("got resource id %v, ok=%v, want %v", rid, ok, id)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestLifecycleEventBusLagDropsOldest(t *testing.T) {
	b := NewLifecycleEventBusWithCapacity(2)
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	for i := 0; i < 5; i++ {
		b.Publish(LifecycleEvent{Type: EventResourceHeartbeat, ResourceID: ResourceID{Type: "agent", Instance: "a"}})
	}

	select {
	case <-sub.Lagged:
	case <-time.After(time.Second):
		t.Fatal("expected a lag notification after overflowing the buffer")
	}

	drained := 0
	for {
		select {
		case <-sub.Events:
			drained++
		default:
			if drained == 0 {
				t.Fatal("expected at least one buffered event to survive the overflow")
			}
			if drained > 2 {
				t.Fatalf("drained %d events, buffer capacity was 2", drained)
			}
			return
		}
	}
}

func TestLifecycleEventBusUnsubscribeStopsDelivery(t *testing.T) {
	b := NewLifecycleEventBus()
	sub := b.Subscribe()
	sub.Unsubscribe()

	b.Publish(LifecycleEvent{Type: EventSupervisorStopped})

	if got := b.SubscriberCount(); got != 0 {
		t.Fatalf("subscriber count = %d, want 0", got)
	}
}

func TestMessageBusPublishConsumeInbound(t *testing.T) {
	b := New()
	msg := InboundMessage{Channel: "telegram", SenderID: "123", Content: "hi"}
	b.PublishInbound(msg)

	got, ok := b.ConsumeInbound(context.Background())
	if !ok {
		t.Fatal("expected ConsumeInbound to succeed")
	}
	if got.Content != "hi" {
		t.Fatalf("got content %q, want %q", got.Content, "hi")
	}
}

func TestMessageBusBroadcast(t *testing.T) {
	b := New()
	received := make(chan Event, 1)
	b.Subscribe("test", func(ev Event) { received <- ev })

	b.Broadcast(Event{Name: "test.event"})

	select {
	case ev := <-received:
		if ev.Name != "test.event" {
			t.Fatalf("got name %q, want %q", ev.Name, "test.event")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}

	b.Unsubscribe("test")
	if got := b.SubscriberCount(); got != 0 {
		t.Fatalf("subscriber count = %d, want 0", got)
	}
}

package events

import (
	"sync"
	"testing"
)

func TestEventBusPublishesToSpecificAndGlobalListeners(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	defer bus.Close()

	var received []string
	bus.Subscribe(EventBufferPushed, func(e *Event) {
		received = append(received, "specific:"+string(e.Type))
	})
	bus.SubscribeAll(func(e *Event) {
		received = append(received, "global:"+string(e.Type))
	})

	bus.Publish(&Event{Type: EventBufferPushed, Data: BufferEventData{Size: 4}})

	want := []string{"specific:buffer.pushed", "global:buffer.pushed"}
	if len(received) != len(want) {
		t.Fatalf("expected %d deliveries, got %v", len(want), received)
	}
	for i := range want {
		if received[i] != want[i] {
			t.Errorf("delivery %d = %q, want %q", i, received[i], want[i])
		}
	}
}

func TestEventBusDeliversInPublishOrder(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	var order []EventType
	bus.SubscribeAll(func(e *Event) { order = append(order, e.Type) })

	bus.Publish(&Event{Type: EventHarnessCreated})
	bus.Publish(&Event{Type: EventCapsNegotiated})
	bus.Publish(&Event{Type: EventBufferPushed})
	bus.Publish(&Event{Type: EventHarnessClosed})

	want := []EventType{EventHarnessCreated, EventCapsNegotiated, EventBufferPushed, EventHarnessClosed}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestEventBusRecoversFromPanic(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	defer bus.Close()

	called := false
	bus.Subscribe(EventFlowFailed, func(*Event) {
		panic("listener panic")
	})
	bus.Subscribe(EventFlowFailed, func(*Event) {
		called = true
	})

	bus.Publish(&Event{Type: EventFlowFailed})

	if !called {
		t.Fatal("second listener was not invoked after panic")
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	count := 0
	unsubscribe := bus.Subscribe(EventPadLinked, func(*Event) { count++ })
	unsubscribeAll := bus.SubscribeAll(func(*Event) { count++ })

	bus.Publish(&Event{Type: EventPadLinked})
	unsubscribe()
	unsubscribeAll()
	bus.Publish(&Event{Type: EventPadLinked})

	if count != 2 {
		t.Fatalf("expected 2 deliveries before unsubscribe, got %d", count)
	}
}

func TestEventBusClearAndClose(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	count := 0
	bus.SubscribeAll(func(*Event) { count++ })

	bus.Clear()
	bus.Publish(&Event{Type: EventPadLinked})
	if count != 0 {
		t.Fatalf("expected no deliveries after Clear, got %d", count)
	}

	bus.SubscribeAll(func(*Event) { count++ })
	bus.Close()
	bus.Publish(&Event{Type: EventPadLinked})
	bus.Publish(nil)
	if count != 0 {
		t.Fatalf("expected no deliveries after Close, got %d", count)
	}
}

func TestEventBusConcurrentSubscribe(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	var mu sync.Mutex
	count := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.SubscribeAll(func(*Event) {
				mu.Lock()
				count++
				mu.Unlock()
			})
			bus.Publish(&Event{Type: EventBufferRecorded})
		}()
	}
	wg.Wait()

	bus.Publish(&Event{Type: EventBufferRecorded})
	mu.Lock()
	defer mu.Unlock()
	if count < 8 {
		t.Fatalf("expected at least 8 deliveries, got %d", count)
	}
}

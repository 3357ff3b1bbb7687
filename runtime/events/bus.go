// Package events provides a lightweight pub/sub event bus for harness observability.
package events

import "sync"

// Listener is a function that handles events.
type Listener func(*Event)

// subscription pairs a listener with the id used to remove it.
type subscription struct {
	id       uint64
	listener Listener
}

// EventBus manages event distribution to listeners.
//
// Delivery is synchronous: Publish returns after every listener has run, and
// listeners observe events in publish order. The harness drives elements from
// a single goroutine, so this keeps metrics and spans in step with the data.
type EventBus struct {
	mu              sync.RWMutex
	nextID          uint64
	listeners       map[EventType][]subscription
	globalListeners []subscription
	closed          bool
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners: make(map[EventType][]subscription),
	}
}

// Subscribe registers a listener for a specific event type.
// The returned function removes the listener.
func (eb *EventBus) Subscribe(eventType EventType, listener Listener) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	id := eb.nextID
	eb.listeners[eventType] = append(eb.listeners[eventType], subscription{id: id, listener: listener})
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		eb.listeners[eventType] = removeSubscription(eb.listeners[eventType], id)
	}
}

// SubscribeAll registers a listener for all event types.
// The returned function removes the listener.
func (eb *EventBus) SubscribeAll(listener Listener) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	id := eb.nextID
	eb.globalListeners = append(eb.globalListeners, subscription{id: id, listener: listener})
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		eb.globalListeners = removeSubscription(eb.globalListeners, id)
	}
}

// Publish delivers an event to type listeners first, then global listeners.
// A panicking listener does not stop delivery to the others.
func (eb *EventBus) Publish(event *Event) {
	if event == nil {
		return
	}

	eb.mu.RLock()
	if eb.closed {
		eb.mu.RUnlock()
		return
	}
	specific := append([]subscription(nil), eb.listeners[event.Type]...)
	global := append([]subscription(nil), eb.globalListeners...)
	eb.mu.RUnlock()

	for _, sub := range specific {
		safeInvoke(sub.listener, event)
	}
	for _, sub := range global {
		safeInvoke(sub.listener, event)
	}
}

// Clear removes all listeners (primarily for tests).
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners = make(map[EventType][]subscription)
	eb.globalListeners = nil
}

// Close drops all listeners; later publishes are ignored.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.closed = true
	eb.listeners = make(map[EventType][]subscription)
	eb.globalListeners = nil
}

func removeSubscription(subs []subscription, id uint64) []subscription {
	for i, sub := range subs {
		if sub.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

func safeInvoke(listener Listener, event *Event) {
	defer func() { _ = recover() }()
	listener(event)
}

package events

import (
	"context"
	"fmt"
	"sync"

	console "visitordesk/internal/utils/logger"
)

var log = console.New("EVENTS")

// Topics published inside the service.
const (
	TopicAuthState         = "auth.state"
	TopicVisitorsChanged   = "visitors.changed"
	TopicSessionState      = "session.state"
	TopicNotification      = "notifications.created"
	TopicNotificationChime = "notifications.chime"
)

const defaultBuffer = 64

type EventHandler func(interface{})

// Unsubscribe detaches a handler. Calling it more than once is a no-op.
type Unsubscribe func()

type Publisher interface {
	Emit(event string, data interface{})
}

type Subscriber interface {
	On(event string, handler EventHandler) Unsubscribe
}

type Bus interface {
	Publisher
	Subscriber
}

// EventBus delivers events to each handler on its own goroutine, in emit order.
// A handler that falls behind by more than the buffer loses events rather than
// blocking the emitter.
type EventBus struct {
	name     string
	buffer   int
	handlers map[string]map[int]*subscription
	next     int
	mu       sync.RWMutex
}

type subscription struct {
	event   string
	ch      chan interface{}
	done    chan struct{}
	once    sync.Once
	handler EventHandler
}

func NewEventBus(name string, buffer int) *EventBus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &EventBus{
		name:     name,
		buffer:   buffer,
		handlers: make(map[string]map[int]*subscription),
	}
}

// On registers a handler for an event
func (bus *EventBus) On(event string, handler EventHandler) Unsubscribe {
	sub := &subscription{
		event:   event,
		ch:      make(chan interface{}, bus.buffer),
		done:    make(chan struct{}),
		handler: handler,
	}

	bus.mu.Lock()
	id := bus.next
	bus.next++
	if bus.handlers[event] == nil {
		bus.handlers[event] = make(map[int]*subscription)
	}
	bus.handlers[event][id] = sub
	bus.mu.Unlock()

	go sub.run(bus.name)
	log.Debug("[%s] registered handler for event: %s", bus.name, event)

	return func() {
		sub.once.Do(func() {
			bus.mu.Lock()
			delete(bus.handlers[event], id)
			if len(bus.handlers[event]) == 0 {
				delete(bus.handlers, event)
			}
			bus.mu.Unlock()
			close(sub.done)
		})
	}
}

// Subscribe exposes an event as a channel that is closed when ctx ends.
func (bus *EventBus) Subscribe(ctx context.Context, event string) <-chan interface{} {
	out := make(chan interface{}, bus.buffer)
	var mu sync.Mutex
	closed := false

	unsub := bus.On(event, func(data interface{}) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- data:
		default:
		}
	})

	go func() {
		<-ctx.Done()
		unsub()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()
	return out
}

// Emit triggers an event with the given data
func (bus *EventBus) Emit(event string, data interface{}) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	subs, exists := bus.handlers[event]
	if !exists {
		return
	}

	for _, sub := range subs {
		select {
		case sub.ch <- data:
		default:
			log.Warn("[%s] handler for %s is behind, dropping event", bus.name, event)
		}
	}
}

// Subscribers reports how many handlers are attached to event.
func (bus *EventBus) Subscribers(event string) int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.handlers[event])
}

func (s *subscription) run(bus string) {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.ch:
			// Unsubscribe wins over anything still queued.
			select {
			case <-s.done:
				return
			default:
			}
			s.deliver(bus, data)
		}
	}
}

func (s *subscription) deliver(bus string, data interface{}) {
	defer func() {
		if r := recover(); r != nil {
			_ = log.Error("[%s] panic in handler for %s", fmt.Errorf("panic: %v", r), bus, s.event)
		}
	}()
	s.handler(data)
}

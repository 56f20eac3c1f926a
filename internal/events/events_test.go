package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	seen []interface{}
}

func (r *recorder) handle(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, v)
}

func (r *recorder) values() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interface{}(nil), r.seen...)
}

func TestEmitDeliversInOrder(t *testing.T) {
	bus := NewEventBus("test", 0)
	rec := &recorder{}
	bus.On("tick", rec.handle)

	for i := 0; i < 20; i++ {
		bus.Emit("tick", i)
	}

	require.Eventually(t, func() bool { return len(rec.values()) == 20 }, time.Second, 5*time.Millisecond)
	for i, v := range rec.values() {
		require.Equal(t, i, v)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewEventBus("test", 0)
	rec := &recorder{}
	unsub := bus.On("tick", rec.handle)

	bus.Emit("tick", 1)
	require.Eventually(t, func() bool { return len(rec.values()) == 1 }, time.Second, 5*time.Millisecond)

	unsub()
	unsub()
	require.Equal(t, 0, bus.Subscribers("tick"))

	bus.Emit("tick", 2)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, []interface{}{1}, rec.values())
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewEventBus("test", 0)
	rec := &recorder{}
	bus.On("tick", func(interface{}) { panic("boom") })
	bus.On("tick", rec.handle)

	bus.Emit("tick", "a")
	bus.Emit("tick", "b")

	require.Eventually(t, func() bool { return len(rec.values()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestSlowHandlerDropsInsteadOfBlocking(t *testing.T) {
	bus := NewEventBus("test", 1)
	release := make(chan struct{})
	bus.On("tick", func(interface{}) { <-release })
	defer close(release)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Emit("tick", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a slow handler")
	}
}

func TestSubscribeClosesWithContext(t *testing.T) {
	bus := NewEventBus("test", 0)
	ctx, cancel := context.WithCancel(context.Background())
	ch := bus.Subscribe(ctx, "tick")

	require.Eventually(t, func() bool { return bus.Subscribers("tick") == 1 }, time.Second, time.Millisecond)
	bus.Emit("tick", "x")
	require.Equal(t, "x", <-ch)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, bus.Subscribers("tick"))
}

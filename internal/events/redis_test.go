package events

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type ping struct {
	Seq  int    `json:"seq"`
	Note string `json:"note"`
}

func newTestBridge(t *testing.T) (*RedisBridge, *recorder) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	bridge := NewRedisBridge(NewEventBus("test", 0), client, "test:events")
	bridge.Bridge("ping", JSONDecoder[ping]())

	rec := &recorder{}
	bridge.On("ping", rec.handle)
	return bridge, rec
}

func TestDeliverDecodesRemoteMessages(t *testing.T) {
	bridge, rec := newTestBridge(t)
	remote := NewRedisBridge(NewEventBus("remote", 0), nil, "test:events")

	msg, err := remote.encode("ping", ping{Seq: 7, Note: "hello"})
	require.NoError(t, err)

	bridge.deliver(msg)

	require.Eventually(t, func() bool { return len(rec.values()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, ping{Seq: 7, Note: "hello"}, rec.values()[0])
}

func TestDeliverSkipsOwnAndUnknownMessages(t *testing.T) {
	bridge, rec := newTestBridge(t)

	own, err := bridge.encode("ping", ping{Seq: 1})
	require.NoError(t, err)
	bridge.deliver(own)

	remote := NewRedisBridge(NewEventBus("remote", 0), nil, "test:events")
	other, err := remote.encode("pong", ping{Seq: 2})
	require.NoError(t, err)
	bridge.deliver(other)

	bridge.deliver("{not json")

	time.Sleep(20 * time.Millisecond)
	require.Empty(t, rec.values())
}

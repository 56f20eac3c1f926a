package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decoder turns a bridged payload back into the value local handlers expect.
type Decoder func(payload []byte) (interface{}, error)

// JSONDecoder decodes payloads into a fresh T.
func JSONDecoder[T any]() Decoder {
	return func(payload []byte) (interface{}, error) {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

type envelope struct {
	Origin  string          `json:"origin"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sentAt"`
}

// RedisBridge is a Bus whose registered topics are mirrored to every instance
// sharing the same Redis channel. Unregistered topics stay local.
type RedisBridge struct {
	local    *EventBus
	client   *redis.Client
	channel  string
	origin   string
	decoders map[string]Decoder
	mu       sync.RWMutex
}

func NewRedisBridge(local *EventBus, client *redis.Client, channel string) *RedisBridge {
	return &RedisBridge{
		local:    local,
		client:   client,
		channel:  channel,
		origin:   uuid.New().String(),
		decoders: make(map[string]Decoder),
	}
}

// Bridge marks topic as shared across instances.
func (b *RedisBridge) Bridge(topic string, decode Decoder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decoders[topic] = decode
}

func (b *RedisBridge) On(event string, handler EventHandler) Unsubscribe {
	return b.local.On(event, handler)
}

func (b *RedisBridge) Emit(event string, data interface{}) {
	b.local.Emit(event, data)

	if !b.bridged(event) {
		return
	}
	msg, err := b.encode(event, data)
	if err != nil {
		_ = log.Error("failed to encode %s for redis", err, event)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, msg).Err(); err != nil {
		_ = log.Error("failed to publish %s to redis", err, event)
	}
}

// Run relays messages from other instances until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return log.Error("failed to subscribe to %s", err, b.channel)
	}
	log.Success("Bridging events over redis channel %s", b.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.deliver(msg.Payload)
		}
	}
}

func (b *RedisBridge) bridged(topic string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.decoders[topic]
	return ok
}

func (b *RedisBridge) encode(topic string, data interface{}) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(envelope{
		Origin:  b.origin,
		Topic:   topic,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// deliver emits a remote message locally. Messages this instance published were
// already delivered by Emit and are skipped.
func (b *RedisBridge) deliver(raw string) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		log.Warn("dropping malformed bridge message: %v", err)
		return
	}
	if env.Origin == b.origin {
		return
	}

	b.mu.RLock()
	decode, ok := b.decoders[env.Topic]
	b.mu.RUnlock()
	if !ok {
		log.Debug("ignoring unbridged topic %s", env.Topic)
		return
	}

	data, err := decode(env.Payload)
	if err != nil {
		_ = log.Error("failed to decode %s payload", err, env.Topic)
		return
	}
	b.local.Emit(env.Topic, data)
}

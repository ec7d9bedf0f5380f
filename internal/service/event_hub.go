package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/models"
)

type eventForwarder interface {
	Forward(ctx context.Context, event models.Event) error
}

type eventSubscriber struct {
	ch     chan models.Event
	filter map[models.EventType]struct{}
}

func (s *eventSubscriber) wants(t models.EventType) bool {
	if len(s.filter) == 0 {
		return true
	}
	_, ok := s.filter[t]
	return ok
}

// EventHub fans workflow events out to in-process subscribers without blocking publishers.
type EventHub struct {
	mu         sync.RWMutex
	subs       map[uint64]*eventSubscriber
	nextID     uint64
	buffer     int
	instanceID string
	forwarder  eventForwarder
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewEventHub constructs a hub whose subscribers buffer up to buffer events.
func NewEventHub(buffer int, metrics *MetricsService, logger *zap.Logger) *EventHub {
	if buffer <= 0 {
		buffer = 32
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHub{
		subs:       make(map[uint64]*eventSubscriber),
		buffer:     buffer,
		instanceID: uuid.NewString(),
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// InstanceID identifies events published by this process.
func (h *EventHub) InstanceID() string {
	return h.instanceID
}

// SetForwarder relays every locally published event to other instances.
func (h *EventHub) SetForwarder(f eventForwarder) {
	h.mu.Lock()
	h.forwarder = f
	h.mu.Unlock()
}

// Subscribe registers a subscriber for the given types (all types when none given).
// The returned cancel func must be called to release the subscription.
func (h *EventHub) Subscribe(types ...models.EventType) (<-chan models.Event, func()) {
	sub := &eventSubscriber{ch: make(chan models.Event, h.buffer)}
	if len(types) > 0 {
		sub.filter = make(map[models.EventType]struct{}, len(types))
		for _, t := range types {
			sub.filter[t] = struct{}{}
		}
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Subscribers reports the number of live subscriptions.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers event locally and forwards it to other instances.
func (h *EventHub) Publish(ctx context.Context, event models.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = h.now().UTC()
	}
	event.Origin = h.instanceID
	h.deliver(event)

	h.mu.RLock()
	forwarder := h.forwarder
	h.mu.RUnlock()
	if forwarder != nil {
		if err := forwarder.Forward(context.WithoutCancel(ctx), event); err != nil {
			h.logger.Warn("failed to forward event", zap.String("type", string(event.Type)), zap.Error(err))
		}
	}
}

func (h *EventHub) deliver(event models.Event) {
	h.metrics.EventPublished(event.Type)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.metrics.EventDropped()
		}
	}
}

// RedisEventBridge carries hub events between API instances over a Redis channel.
type RedisEventBridge struct {
	client  *redis.Client
	channel string
	hub     *EventHub
	logger  *zap.Logger
}

// NewRedisEventBridge constructs a bridge and registers it as the hub forwarder.
func NewRedisEventBridge(client *redis.Client, channel string, hub *EventHub, logger *zap.Logger) *RedisEventBridge {
	if channel == "" {
		channel = "scholarship:events"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &RedisEventBridge{client: client, channel: channel, hub: hub, logger: logger}
	hub.SetForwarder(b)
	return b
}

// Forward publishes event on the shared channel.
func (b *RedisEventBridge) Forward(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Run relays events published by other instances into the local hub until ctx is done.
func (b *RedisEventBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	b.logger.Info("event bridge subscribed", zap.String("channel", b.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("discarding malformed event", zap.Error(err))
				continue
			}
			if event.Origin == b.hub.InstanceID() {
				continue
			}
			b.hub.deliver(event)
		}
	}
}

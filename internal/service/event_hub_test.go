package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scholarship-api/internal/models"
)

type forwarderStub struct {
	events []models.Event
	err    error
}

func (f *forwarderStub) Forward(ctx context.Context, event models.Event) error {
	f.events = append(f.events, event)
	return f.err
}

func TestEventHubDeliversToFilteredSubscribers(t *testing.T) {
	hub := NewEventHub(4, nil, nil)
	all, cancelAll := hub.Subscribe()
	defer cancelAll()
	funds, cancelFunds := hub.Subscribe(models.EventFundsDisbursed)
	defer cancelFunds()

	id := int64(1)
	hub.Publish(context.Background(), models.Event{Type: models.EventApplicationSubmitted, ApplicationID: &id, Actor: "0xabc"})
	hub.Publish(context.Background(), models.Event{Type: models.EventFundsDisbursed, ApplicationID: &id, Actor: "0xdef"})

	first := <-all
	assert.Equal(t, models.EventApplicationSubmitted, first.Type)
	assert.Equal(t, hub.InstanceID(), first.Origin)
	assert.False(t, first.OccurredAt.IsZero())
	second := <-all
	assert.Equal(t, models.EventFundsDisbursed, second.Type)

	select {
	case got := <-funds:
		assert.Equal(t, models.EventFundsDisbursed, got.Type)
	case <-time.After(time.Second):
		t.Fatal("filtered subscriber did not receive event")
	}
	assert.Len(t, funds, 0)
}

func TestEventHubNeverBlocksOnSlowSubscriber(t *testing.T) {
	metrics := NewMetricsService()
	hub := NewEventHub(1, metrics, nil)
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(context.Background(), models.Event{Type: models.EventPoolDeposited})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Equal(t, uint64(9), metrics.Snapshot().EventsDropped)
}

func TestEventHubCancelClosesChannel(t *testing.T) {
	hub := NewEventHub(1, nil, nil)
	ch, cancel := hub.Subscribe()
	require.Equal(t, 1, hub.Subscribers())
	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers())
}

func TestEventHubForwardFailureIsNotFatal(t *testing.T) {
	hub := NewEventHub(1, nil, nil)
	fwd := &forwarderStub{err: errors.New("redis down")}
	hub.SetForwarder(fwd)
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(context.Background(), models.Event{Type: models.EventRoleChanged, Subject: "0xabc"})
	require.Len(t, fwd.events, 1)
	got := <-ch
	assert.Equal(t, "0xabc", got.Subject)
}

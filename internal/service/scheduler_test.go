package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(nil, time.Second)
	err := s.Add("broken", "not a cron spec", func(ctx context.Context) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, s.Entries())
}

func TestSchedulerRunsTasks(t *testing.T) {
	s := NewScheduler(nil, time.Second)
	fired := make(chan struct{}, 4)
	require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) error {
		fired <- struct{}{}
		return errors.New("logged and ignored")
	}))
	assert.Contains(t, s.Entries(), "tick")

	s.Start()
	defer s.Stop()

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("task never fired")
	}
}

func TestSchedulerRunUsesTimeout(t *testing.T) {
	s := NewScheduler(nil, 10*time.Millisecond)
	var deadline bool
	s.run("probe", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, deadline)
}

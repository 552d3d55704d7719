package realtime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func TestBridge_RefetchOnEvent(t *testing.T) {
	hub := NewHub()
	bridge := NewBridge(hub, 0)

	var calls atomic.Int32
	sub := bridge.Watch(context.Background(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	defer sub.Release()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, waitFor, time.Millisecond)

	hub.Broadcast(Event{Op: OpInsert, ReportID: "r1"})
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)

	hub.Broadcast(Event{Op: OpDelete})
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, time.Millisecond)
}

func TestBridge_CoalescesBurstDuringRefetch(t *testing.T) {
	hub := NewHub()
	bridge := NewBridge(hub, 0)

	started := make(chan struct{}, 10)
	unblock := make(chan struct{})
	var calls atomic.Int32

	sub := bridge.Watch(context.Background(), func(ctx context.Context) error {
		n := calls.Add(1)
		started <- struct{}{}
		if n == 1 {
			<-unblock
		}
		return nil
	})
	defer sub.Release()

	hub.Broadcast(Event{Op: OpUpdate})
	<-started

	// Burst while the first refetch is still running.
	for i := 0; i < 50; i++ {
		hub.Broadcast(Event{Op: OpUpdate})
	}
	// Give the reader time to drain the burst into the single pending kick.
	time.Sleep(20 * time.Millisecond)
	close(unblock)

	<-started
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load(), "burst should collapse into one follow-up refetch")
}

func TestBridge_DebounceCollapsesBurst(t *testing.T) {
	hub := NewHub()
	bridge := NewBridge(hub, 30*time.Millisecond)

	var calls atomic.Int32
	sub := bridge.Watch(context.Background(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	defer sub.Release()

	for i := 0; i < 10; i++ {
		hub.Broadcast(Event{Op: OpInsert})
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, waitFor, time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestBridge_TriggerRunsInitialFetch(t *testing.T) {
	hub := NewHub()
	bridge := NewBridge(hub, 0)

	var calls atomic.Int32
	sub := bridge.Watch(context.Background(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	defer sub.Release()

	sub.Trigger()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)
}

func TestBridge_ReleaseUnsubscribes(t *testing.T) {
	hub := NewHub()
	bridge := NewBridge(hub, 0)

	var calls atomic.Int32
	sub := bridge.Watch(context.Background(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, waitFor, time.Millisecond)

	sub.Release()
	sub.Release()

	assert.Equal(t, 0, hub.Clients())
	hub.Broadcast(Event{Op: OpUpdate})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestBridge_ContextCancelEndsSubscription(t *testing.T) {
	hub := NewHub()
	bridge := NewBridge(hub, 0)

	ctx, cancel := context.WithCancel(context.Background())
	sub := bridge.Watch(ctx, func(ctx context.Context) error { return nil })

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(waitFor):
		t.Fatal("subscription did not stop after context cancellation")
	}
	assert.Equal(t, 0, hub.Clients())
}

func TestBridge_SubscriberGoneEndsSubscription(t *testing.T) {
	hub := NewHub()
	bridge := NewBridge(hub, 0)

	sub := bridge.Watch(context.Background(), func(ctx context.Context) error {
		return ErrSubscriberGone
	})
	sub.Trigger()

	select {
	case <-sub.Done():
	case <-time.After(waitFor):
		t.Fatal("subscription did not stop after subscriber went away")
	}
}

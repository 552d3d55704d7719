package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/metrics"
)

// ErrSubscriberGone is returned by a RefetchFunc when its consumer has gone
// away; the subscription then ends on its own.
var ErrSubscriberGone = errors.New("subscriber gone")

// RefetchFunc re-derives the consumer's view, e.g. by re-running its list
// query with the active filter.
type RefetchFunc func(ctx context.Context) error

// Bridge connects a Feed to refetch callbacks.
type Bridge struct {
	feed     Feed
	debounce time.Duration
}

func NewBridge(feed Feed, debounce time.Duration) *Bridge {
	return &Bridge{feed: feed, debounce: debounce}
}

// Subscription is an owned handle for one active view. Release must be
// called when the view goes away.
type Subscription struct {
	cancel context.CancelFunc
	kick   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// Watch subscribes to the feed and runs refetch after change events. Events
// that arrive while a refetch is pending or running collapse into a single
// follow-up refetch, and one always starts after the last event.
func (b *Bridge) Watch(ctx context.Context, refetch RefetchFunc) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	events, unsubscribe := b.feed.Subscribe()

	s := &Subscription{
		cancel: cancel,
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	metrics.RealtimeSubscriptions.Inc()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					cancel()
					return
				}
				s.Trigger()
			}
		}
	}()

	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.kick:
			}

			if b.debounce > 0 {
				t := time.NewTimer(b.debounce)
				select {
				case <-ctx.Done():
					t.Stop()
					return
				case <-t.C:
				}
				// Anything that arrived while waiting is covered by the
				// refetch below.
				select {
				case <-s.kick:
				default:
				}
			}

			metrics.RealtimeRefetches.Inc()
			if err := refetch(ctx); err != nil {
				if errors.Is(err, ErrSubscriberGone) {
					cancel()
					return
				}
				if ctx.Err() == nil {
					slog.Warn("realtime refetch failed", "error", err)
				}
			}
		}
	}()

	go func() {
		wg.Wait()
		unsubscribe()
		metrics.RealtimeSubscriptions.Dec()
		close(s.done)
	}()

	return s
}

// Trigger schedules a refetch without waiting for a change event, e.g. the
// initial load of a freshly opened view.
func (s *Subscription) Trigger() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Done is closed once the subscription has fully shut down.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Release tears the subscription down and waits for its goroutines.
func (s *Subscription) Release() {
	s.once.Do(s.cancel)
	<-s.done
}

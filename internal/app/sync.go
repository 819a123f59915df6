package app

import (
	"context"
	"sync"
	"time"

	"github.com/electrophobia/epterm/internal/observability"
	"github.com/electrophobia/epterm/internal/realtime"
	"github.com/electrophobia/epterm/internal/state"
)

const maxBackoff = 5 * time.Minute

// Follow keeps page in sync with the backend. It refreshes once, then again on
// every change event of kind. With interval > 0 it also polls, backing off while
// fetches keep failing. onUpdate runs on the follower goroutine after each
// refresh. Following ends when ctx ends, the page closes or stop is called.
func Follow[T any](ctx context.Context, bridge *realtime.Bridge, kind string, page *state.Page[T], interval time.Duration, onUpdate func(state.ListSnapshot[T])) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	log := observability.WithFields("component", "sync", "kind", kind)

	trigger := make(chan struct{}, 1)
	unwatch := func() {}
	if bridge != nil {
		unwatch = bridge.Watch(kind, func(event string) {
			log.Debug("change event", "event", event)
			select {
			case trigger <- struct{}{}:
			default:
			}
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer unwatch()
		for {
			if err := page.Refresh(); err != nil && ctx.Err() == nil && !page.Closed() {
				log.Warn("refresh failed", "err", err)
			}
			if ctx.Err() != nil || page.Closed() {
				return
			}
			snap := page.Snapshot()
			if onUpdate != nil {
				onUpdate(snap)
			}

			var tick <-chan time.Time
			var timer *time.Timer
			if interval > 0 {
				timer = time.NewTimer(calculateBackoff(snap.ConsecutiveFailures, interval))
				tick = timer.C
			}
			select {
			case <-ctx.Done():
			case <-page.Done():
			case <-trigger:
			case <-tick:
			}
			if timer != nil {
				timer.Stop()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// calculateBackoff doubles the poll interval per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

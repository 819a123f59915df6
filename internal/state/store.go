package state

import (
	"fmt"
	"sync"
	"time"
)

// Ticket identifies one fetch. Only the newest ticket may write.
type Ticket uint64

// ListSnapshot is what a list view renders.
type ListSnapshot[T any] struct {
	Items               []T
	Loading             bool
	Err                 error
	LastUpdated         time.Time
	ConsecutiveFailures int
}

// Failed reports whether the latest fetch ended in an error.
func (s ListSnapshot[T]) Failed() bool {
	return s.Err != nil
}

// List holds the state of one page's collection fetch.
type List[T any] struct {
	mu       sync.RWMutex
	latest   Ticket
	snapshot ListSnapshot[T]
}

// Begin marks a fetch as started and returns its ticket.
func (l *List[T]) Begin() Ticket {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.latest++
	l.snapshot.Loading = true
	return l.latest
}

// Finish applies a fetch result when t is still the newest ticket and reports
// whether it did. A failed fetch leaves an empty list behind.
func (l *List[T]) Finish(t Ticket, items []T, err error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t != l.latest {
		return false
	}

	l.snapshot.Loading = false
	l.snapshot.LastUpdated = time.Now()
	if err != nil {
		l.snapshot.Items = []T{}
		l.snapshot.Err = err
		l.snapshot.ConsecutiveFailures++
		return true
	}
	l.snapshot.Items = clone(items)
	l.snapshot.Err = nil
	l.snapshot.ConsecutiveFailures = 0
	return true
}

// Snapshot returns a copy of the current state.
func (l *List[T]) Snapshot() ListSnapshot[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := l.snapshot
	snap.Items = clone(l.snapshot.Items)
	if l.snapshot.Err != nil {
		snap.Err = fmt.Errorf("%w", l.snapshot.Err)
	}
	return snap
}

// ItemSnapshot is what a detail view renders.
type ItemSnapshot[T any] struct {
	Item    *T
	Loading bool
	Err     error
}

// NotFound reports a finished fetch that returned no record.
func (s ItemSnapshot[T]) NotFound() bool {
	return !s.Loading && s.Err == nil && s.Item == nil
}

// Item holds the state of one detail fetch.
type Item[T any] struct {
	mu       sync.RWMutex
	latest   Ticket
	snapshot ItemSnapshot[T]
}

// Begin marks a fetch as started and returns its ticket.
func (i *Item[T]) Begin() Ticket {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.latest++
	i.snapshot.Loading = true
	return i.latest
}

// Finish applies the result of the fetch holding t, if it is still the newest.
func (i *Item[T]) Finish(t Ticket, item *T, err error) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if t != i.latest {
		return false
	}
	i.snapshot.Loading = false
	i.snapshot.Err = err
	i.snapshot.Item = nil
	if err == nil && item != nil {
		v := *item
		i.snapshot.Item = &v
	}
	return true
}

// Snapshot returns a copy of the current state.
func (i *Item[T]) Snapshot() ItemSnapshot[T] {
	i.mu.RLock()
	defer i.mu.RUnlock()
	snap := i.snapshot
	if i.snapshot.Item != nil {
		v := *i.snapshot.Item
		snap.Item = &v
	}
	return snap
}

func clone[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}

package state

import (
	"context"
	"errors"
)

// Page is a List bound to the fetch that fills it and to the lifetime of the
// view showing it. Close cancels any fetch still in flight.
type Page[T any] struct {
	List[T]
	fetch  func(context.Context) ([]T, error)
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPage returns a page whose fetches run under a child of parent.
func NewPage[T any](parent context.Context, fetch func(context.Context) ([]T, error)) *Page[T] {
	ctx, cancel := context.WithCancel(parent)
	return &Page[T]{fetch: fetch, ctx: ctx, cancel: cancel}
}

// Refresh runs the fetch and records its result. A fetch cancelled by Close
// leaves the state untouched.
func (p *Page[T]) Refresh() error {
	ticket := p.Begin()
	items, err := p.fetch(p.ctx)
	if err != nil && errors.Is(p.ctx.Err(), context.Canceled) {
		return err
	}
	p.Finish(ticket, items, err)
	return err
}

// Close ends the page's lifetime.
func (p *Page[T]) Close() {
	p.cancel()
}

// Done is closed when the page is closed or its parent context ends.
func (p *Page[T]) Done() <-chan struct{} {
	return p.ctx.Done()
}

// Closed reports whether Close was called.
func (p *Page[T]) Closed() bool {
	return p.ctx.Err() != nil
}

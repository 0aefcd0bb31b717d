package iotcore

import (
	"context"

	"github.com/ajitpratap0/iotcore/pkg/connector/core"
)

// page is one response of a cursor-based list call
type page[T any] struct {
	items []T
	next  *string
}

// pageFetcher performs one list call. token is nil on the first call.
type pageFetcher[T any] func(ctx context.Context, token *string) (page[T], error)

// rowProjector turns one listed item into a row
type rowProjector[T any] func(ctx context.Context, item T) (core.Row, error)

// pageIterator drains a cursor-based list API lazily. A page is only
// requested once every item of the previous page has been consumed, so a
// caller that stops pulling stops backend calls.
type pageIterator[T any] struct {
	fetch   pageFetcher[T]
	project rowProjector[T]
	onRow   func()

	items   []T
	pos     int
	token   *string
	started bool
	done    bool

	row core.Row
	err error
}

func newPageIterator[T any](fetch pageFetcher[T], project rowProjector[T], onRow func()) *pageIterator[T] {
	return &pageIterator[T]{fetch: fetch, project: project, onRow: onRow}
}

func (it *pageIterator[T]) Next(ctx context.Context) bool {
	if it.done {
		return false
	}

	for it.pos >= len(it.items) {
		if it.started && !hasMorePages(it.token) {
			it.finish(nil)
			return false
		}
		if err := ctx.Err(); err != nil {
			it.finish(err)
			return false
		}

		p, err := it.fetch(ctx, it.token)
		it.started = true
		if err != nil {
			it.finish(err)
			return false
		}
		it.items, it.pos, it.token = p.items, 0, p.next
	}

	item := it.items[it.pos]
	it.pos++

	row, err := it.project(ctx, item)
	if err != nil {
		it.finish(err)
		return false
	}

	it.row = row
	if it.onRow != nil {
		it.onRow()
	}
	return true
}

func (it *pageIterator[T]) Row() core.Row {
	return it.row
}

func (it *pageIterator[T]) Err() error {
	return it.err
}

func (it *pageIterator[T]) Close() error {
	it.finish(nil)
	return nil
}

func (it *pageIterator[T]) finish(err error) {
	it.done = true
	it.row = nil
	it.items = nil
	if err != nil && it.err == nil {
		it.err = err
	}
}

// hasMorePages reports whether a continuation token asks for another page
func hasMorePages(token *string) bool {
	return token != nil && *token != ""
}

// drain runs fetch until the cursor is exhausted and returns every item
func drain[T any](ctx context.Context, fetch pageFetcher[T]) ([]T, error) {
	all := make([]T, 0)
	var token *string
	for {
		p, err := fetch(ctx, token)
		if err != nil {
			return nil, err
		}
		all = append(all, p.items...)
		if !hasMorePages(p.next) {
			return all, nil
		}
		token = p.next
	}
}

package internal

import (
	"context"
	"errors"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// ErrIteratorDone is returned by Next once every item has been consumed.
var ErrIteratorDone = errors.New("no more items available")

// PageFunc fetches one page and returns its items and the next_token.
type PageFunc[T any] func(ctx context.Context, page types.Pagination) ([]T, string, error)

// PageIterator buffers pages fetched through a PageFunc and hands out items
// one at a time, following next_token until the API stops returning one.
type PageIterator[T any] struct {
	ctx       context.Context
	fetch     PageFunc[T]
	limit     int
	min       int
	max       int
	buffer    []T
	bufferIdx int
	next      string
	hasMore   bool
	err       error
}

// NewPageIterator creates a new iterator. limit is clamped to [min, max].
func NewPageIterator[T any](ctx context.Context, limit, min, max int, fetch PageFunc[T]) *PageIterator[T] {
	it := &PageIterator[T]{
		ctx:     ctx,
		fetch:   fetch,
		min:     min,
		max:     max,
		hasMore: true,
	}
	it.SetLimit(limit)
	return it
}

// SetLimit changes the page size, clamped to the endpoint bounds.
func (it *PageIterator[T]) SetLimit(limit int) {
	if limit > it.max {
		limit = it.max
	}
	if limit < it.min {
		limit = it.min
	}
	it.limit = limit
}

// Limit returns the current page size.
func (it *PageIterator[T]) Limit() int {
	return it.limit
}

// HasNext returns true if there may be more items.
func (it *PageIterator[T]) HasNext() bool {
	if it.err != nil {
		return false
	}
	return it.bufferIdx < len(it.buffer) || it.hasMore
}

// Next returns the next item, fetching a new page when the buffer is drained.
func (it *PageIterator[T]) Next() (T, error) {
	var zero T
	if it.err != nil {
		return zero, it.err
	}

	for it.bufferIdx >= len(it.buffer) {
		if !it.hasMore {
			return zero, ErrIteratorDone
		}

		items, next, err := it.fetch(it.ctx, types.Pagination{MaxResults: it.limit, PaginationToken: it.next})
		if err != nil {
			it.err = err
			return zero, err
		}

		it.buffer = items
		it.bufferIdx = 0
		it.next = next
		if next == "" {
			it.hasMore = false
		}
	}

	item := it.buffer[it.bufferIdx]
	it.bufferIdx++
	return item, nil
}

// Err returns the error that stopped the iteration, if any.
func (it *PageIterator[T]) Err() error {
	return it.err
}

// Reset restarts the iteration from the first page.
func (it *PageIterator[T]) Reset() {
	it.buffer = nil
	it.bufferIdx = 0
	it.next = ""
	it.hasMore = true
	it.err = nil
}

// ThreadIterator traverses a conversation tree.
type ThreadIterator struct {
	queue      []threadEntry
	visited    map[string]bool
	depthFirst bool
	filterFunc func(*types.Tweet) bool
	maxDepth   int
}

type threadEntry struct {
	node  *types.ThreadNode
	depth int
}

// ThreadIteratorOptions provides options for thread iteration.
type ThreadIteratorOptions struct {
	DepthFirst bool
	// FilterFunc skips non-matching tweets; their replies are still visited.
	FilterFunc func(*types.Tweet) bool
	// MaxDepth limits how deep replies are followed. Zero means unlimited.
	MaxDepth int
}

// NewThreadIterator creates a new iterator over the given roots.
func NewThreadIterator(roots []*types.ThreadNode, opts *ThreadIteratorOptions) *ThreadIterator {
	if opts == nil {
		opts = &ThreadIteratorOptions{DepthFirst: true}
	}

	it := &ThreadIterator{
		visited:    make(map[string]bool),
		depthFirst: opts.DepthFirst,
		filterFunc: opts.FilterFunc,
		maxDepth:   opts.MaxDepth,
	}
	it.push(roots, 0)
	return it
}

// push schedules nodes so that they come out in their original order.
func (it *ThreadIterator) push(nodes []*types.ThreadNode, depth int) {
	if !it.depthFirst {
		for _, n := range nodes {
			it.queue = append(it.queue, threadEntry{node: n, depth: depth})
		}
		return
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		it.queue = append(it.queue, threadEntry{node: nodes[i], depth: depth})
	}
}

func (it *ThreadIterator) pop() threadEntry {
	if it.depthFirst {
		e := it.queue[len(it.queue)-1]
		it.queue = it.queue[:len(it.queue)-1]
		return e
	}
	e := it.queue[0]
	it.queue = it.queue[1:]
	return e
}

// HasNext returns true if there are more nodes to visit. A filter may still
// cause Next to return ErrIteratorDone.
func (it *ThreadIterator) HasNext() bool {
	return len(it.queue) > 0
}

// Next returns the next tweet and its depth in the thread.
func (it *ThreadIterator) Next() (*types.Tweet, int, error) {
	for len(it.queue) > 0 {
		e := it.pop()
		if e.node == nil || e.node.Tweet == nil || it.visited[e.node.Tweet.ID] {
			continue
		}
		it.visited[e.node.Tweet.ID] = true

		if it.maxDepth == 0 || e.depth < it.maxDepth {
			it.push(e.node.Replies, e.depth+1)
		}

		if it.filterFunc != nil && !it.filterFunc(e.node.Tweet) {
			continue
		}
		return e.node.Tweet, e.depth, nil
	}
	return nil, 0, ErrIteratorDone
}

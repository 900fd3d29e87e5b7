package gotweet

import (
	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// ThreadIterator traverses a conversation tree one tweet at a time.
type ThreadIterator = internal.ThreadIterator

// ThreadIteratorOptions controls traversal order, depth and filtering.
type ThreadIteratorOptions = internal.ThreadIteratorOptions

// Thread is a conversation linked into reply trees. It offers Flatten,
// Filter, Find, GetByID, GetByAuthor, GetTopLevel, GetDepth, Count and Walk.
type Thread struct {
	*internal.Thread
}

// BuildThread links tweets into reply trees by their replied_to reference.
// Tweets whose parent is not part of the set become roots.
func BuildThread(tweets []*types.Tweet) *Thread {
	return &Thread{Thread: internal.BuildThread(tweets)}
}

// Iter returns an iterator over the thread. A nil opts walks depth-first
// without limits.
func (t *Thread) Iter(opts *ThreadIteratorOptions) *ThreadIterator {
	return internal.NewThreadIterator(t.Roots, opts)
}

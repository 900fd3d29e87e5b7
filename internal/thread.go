package internal

import (
	"sort"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// Thread provides utility methods for working with a conversation tree.
type Thread struct {
	Roots []*types.ThreadNode
}

// BuildThread links tweets into reply trees using their replied_to reference.
// Tweets whose parent is not in the set become roots. Siblings are ordered by
// id, which follows posting order for snowflake ids.
func BuildThread(tweets []*types.Tweet) *Thread {
	nodes := make(map[string]*types.ThreadNode, len(tweets))
	order := make([]*types.ThreadNode, 0, len(tweets))
	for _, t := range tweets {
		if t == nil || t.ID == "" {
			continue
		}
		if _, dup := nodes[t.ID]; dup {
			continue
		}
		n := &types.ThreadNode{Tweet: t}
		nodes[t.ID] = n
		order = append(order, n)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return lessID(order[i].Tweet.ID, order[j].Tweet.ID)
	})

	thread := &Thread{}
	parents := make(map[*types.ThreadNode]*types.ThreadNode, len(order))
	for _, n := range order {
		parentID := n.Tweet.ReferencedID(types.RefRepliedTo)
		parent, ok := nodes[parentID]
		if !ok || createsCycle(parents, parent, n) {
			thread.Roots = append(thread.Roots, n)
			continue
		}
		parents[n] = parent
		parent.Replies = append(parent.Replies, n)
	}
	return thread
}

// createsCycle reports whether n is parent or one of its ancestors.
func createsCycle(parents map[*types.ThreadNode]*types.ThreadNode, parent, n *types.ThreadNode) bool {
	for p := parent; p != nil; p = parents[p] {
		if p == n {
			return true
		}
	}
	return false
}

// lessID compares numeric ids without parsing them.
func lessID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// NewThread wraps existing root nodes.
func NewThread(roots []*types.ThreadNode) *Thread {
	return &Thread{Roots: roots}
}

// Flatten returns every tweet in the thread in depth-first order.
func (th *Thread) Flatten() []*types.Tweet {
	var result []*types.Tweet
	th.Walk(func(t *types.Tweet, _ int) {
		result = append(result, t)
	})
	return result
}

// Filter returns tweets that match the given filter function.
func (th *Thread) Filter(filterFunc func(*types.Tweet) bool) []*types.Tweet {
	var result []*types.Tweet
	th.Walk(func(t *types.Tweet, _ int) {
		if filterFunc(t) {
			result = append(result, t)
		}
	})
	return result
}

// Find returns the first tweet, depth-first, that matches the condition.
func (th *Thread) Find(condition func(*types.Tweet) bool) *types.Tweet {
	return findNode(th.Roots, condition)
}

func findNode(nodes []*types.ThreadNode, condition func(*types.Tweet) bool) *types.Tweet {
	for _, n := range nodes {
		if n == nil || n.Tweet == nil {
			continue
		}
		if condition(n.Tweet) {
			return n.Tweet
		}
		if found := findNode(n.Replies, condition); found != nil {
			return found
		}
	}
	return nil
}

// GetByID returns a tweet by its ID.
func (th *Thread) GetByID(id string) *types.Tweet {
	return th.Find(func(t *types.Tweet) bool {
		return t.ID == id
	})
}

// GetByAuthor returns all tweets written by the given user id.
func (th *Thread) GetByAuthor(authorID string) []*types.Tweet {
	return th.Filter(func(t *types.Tweet) bool {
		return t.AuthorID == authorID
	})
}

// GetTopLevel returns the root tweets.
func (th *Thread) GetTopLevel() []*types.Tweet {
	result := make([]*types.Tweet, 0, len(th.Roots))
	for _, n := range th.Roots {
		if n != nil && n.Tweet != nil {
			result = append(result, n.Tweet)
		}
	}
	return result
}

// GetDepth returns the maximum reply depth. A thread of only roots has depth 0.
func (th *Thread) GetDepth() int {
	maxDepth := 0
	th.Walk(func(_ *types.Tweet, depth int) {
		if depth > maxDepth {
			maxDepth = depth
		}
	})
	return maxDepth
}

// Count returns the total number of tweets in the thread.
func (th *Thread) Count() int {
	n := 0
	th.Walk(func(*types.Tweet, int) { n++ })
	return n
}

// Walk applies fn to each tweet depth-first together with its depth.
func (th *Thread) Walk(fn func(*types.Tweet, int)) {
	walkNodes(th.Roots, 0, fn)
}

func walkNodes(nodes []*types.ThreadNode, depth int, fn func(*types.Tweet, int)) {
	for _, n := range nodes {
		if n == nil || n.Tweet == nil {
			continue
		}
		fn(n.Tweet, depth)
		walkNodes(n.Replies, depth+1, fn)
	}
}

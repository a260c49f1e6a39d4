package topics

import (
	"errors"
	"strings"
	"sync"
)

var ErrNilHandler = errors.New("memtopics: subscriber handler cannot be nil")

type memTopics struct {
	// Subscription tree
	sroot *rnode
}

var _ TopicsProvider = (*memTopics)(nil)

// NewMemProvider returns a new instance of the memTopics, an in-memory
// implementation of TopicsProvider. The trie is guarded per node, not by
// a provider-wide lock, so operations on disjoint subtrees do not
// contend.
func NewMemProvider() TopicsProvider {
	return &memTopics{
		sroot: newRNode(-1),
	}
}

// rnode represents all patterns sharing the segment prefix that leads to
// it. level is the number of segments consumed from the root (root is
// -1). A handler lives here iff some pattern terminates exactly at this
// node; present is the explicit occupancy flag, handler value is never
// compared.
type rnode struct {
	mu sync.RWMutex

	level   int
	handler OnPublishFunc
	present bool

	// Next topic level, keyed by segment text including the literal "+".
	rnodes map[string]*rnode
}

func newRNode(level int) *rnode {
	return &rnode{
		level:  level,
		rnodes: make(map[string]*rnode),
	}
}

// child returns the child for the given segment, inserting a new node if
// absent. Get-or-insert is atomic per node so two racing subscribes never
// create duplicate children for the same segment.
func (n *rnode) child(level string) *rnode {
	n.mu.Lock()
	c, ok := n.rnodes[level]
	if !ok {
		c = newRNode(n.level + 1)
		n.rnodes[level] = c
	}
	n.mu.Unlock()
	return c
}

func (m *memTopics) Subscribe(pattern string, handler OnPublishFunc) error {
	if handler == nil {
		return ErrNilHandler
	}

	// Iterative walk, creating the path level by level. Splitting ""
	// yields a single empty segment, so the empty pattern registers one
	// level below the root like any other single-segment pattern.
	n := m.sroot
	for _, level := range strings.Split(pattern, SEP) {
		n = n.child(level)
	}

	n.mu.Lock()
	n.handler = handler
	n.present = true
	n.mu.Unlock()
	return nil
}

func (m *memTopics) Unsubscribe(pattern string) bool {
	n := m.sroot
	for _, level := range strings.Split(pattern, SEP) {
		n.mu.RLock()
		c, ok := n.rnodes[level]
		n.mu.RUnlock()
		if !ok {
			// Never registered; nothing to remove and no nodes created.
			return false
		}
		n = c
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.present {
		return false
	}
	n.handler = nil
	n.present = false
	// Emptied nodes are left in place. Pattern sets are small and mostly
	// static, so the trie is kept for the life of the provider.
	return true
}

func (m *memTopics) Match(topic string) *Matches {
	return &Matches{
		query: strings.Split(topic, SEP),
		stack: []*rnode{m.sroot},
	}
}

func (m *memTopics) Subscribers(topic string, handlers *[]OnPublishFunc) {
	*handlers = (*handlers)[0:0]
	it := m.Match(topic)
	for {
		h, ok := it.Next()
		if !ok {
			return
		}
		*handlers = append(*handlers, h)
	}
}

func (m *memTopics) Close() error {
	m.sroot = nil
	return nil
}

// Matches is a single-use iterator over the handlers whose patterns
// match one concrete topic. Each Match call produces a fresh traversal;
// a traversal racing with Subscribe/Unsubscribe may or may not observe
// the mutation.
type Matches struct {
	query []string
	stack []*rnode
}

// Next returns the next matching handler. The traversal is an explicit
// LIFO stack walk, so when a level has both a wildcard child and an
// exact-match child, the exact-match branch is visited first. The order
// is deterministic but callers must not read priority into it.
func (it *Matches) Next() (OnPublishFunc, bool) {
	for len(it.stack) > 0 {
		n := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		n.mu.RLock()
		handler, present := n.handler, n.present

		// A pattern matches only if it consumed the whole query; a
		// handler sitting above the query's last level belongs to a
		// shorter pattern and is skipped.
		present = present && n.level+1 == len(it.query)

		// The query is exhausted at this node's child level; stop
		// descending. Stack depth is bounded by the query length and the
		// tree has no cycles, so the walk terminates.
		if next := n.level + 1; next < len(it.query) {
			level := it.query[next]
			// Wildcard pushed before the exact match so the exact match
			// pops first. A query level that is literally "+" is its own
			// wildcard; push it once.
			if c, ok := n.rnodes[SWC]; ok {
				it.stack = append(it.stack, c)
			}
			if level != SWC {
				if c, ok := n.rnodes[level]; ok {
					it.stack = append(it.stack, c)
				}
			}
		}
		n.mu.RUnlock()

		if present {
			return handler, true
		}
	}
	return nil, false
}

package topics

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// tag returns a handler that records its own name when invoked, since
// function values cannot be compared directly.
func tag(name string, got *[]string) OnPublishFunc {
	return func(topic string, payload []byte) error {
		*got = append(*got, name)
		return nil
	}
}

func TestMemTopicsExactMatch(t *testing.T) {
	p := NewMemProvider()

	var got []string
	require.NoError(t, p.Subscribe("key1/chat/", tag("chat", &got)))

	require.Equal(t, []string{"chat"}, collectInto(t, p, "key1/chat/", &got))
	require.Empty(t, collectInto(t, p, "key1/chat", &got))
	require.Empty(t, collectInto(t, p, "key1/other/", &got))
}

// collectInto resets got, runs every matched handler and returns the
// recorded names.
func collectInto(t *testing.T, p TopicsProvider, topic string, got *[]string) []string {
	t.Helper()

	*got = (*got)[:0]
	var handlers []OnPublishFunc
	p.Subscribers(topic, &handlers)
	for _, h := range handlers {
		require.NoError(t, h(topic, nil))
	}
	return *got
}

func TestMemTopicsSingleLevelWildcard(t *testing.T) {
	p := NewMemProvider()

	var got []string
	require.NoError(t, p.Subscribe("a/+/c", tag("wild", &got)))

	require.Equal(t, []string{"wild"}, collectInto(t, p, "a/b/c", &got))
	require.Equal(t, []string{"wild"}, collectInto(t, p, "a/x/c", &got))

	// A wildcard level matches exactly one segment, never zero or many.
	require.Empty(t, collectInto(t, p, "a/c", &got))
	require.Empty(t, collectInto(t, p, "a/b/b/c", &got))
}

func TestMemTopicsSegmentCountMustMatch(t *testing.T) {
	p := NewMemProvider()

	var got []string
	require.NoError(t, p.Subscribe("a", tag("short", &got)))
	require.NoError(t, p.Subscribe("a/b/c", tag("long", &got)))

	// A pattern is never a prefix match: it has to consume every level
	// of the topic, and vice versa.
	require.Empty(t, collectInto(t, p, "a/b", &got))
	require.Equal(t, []string{"short"}, collectInto(t, p, "a", &got))
	require.Equal(t, []string{"long"}, collectInto(t, p, "a/b/c", &got))
}

func TestMemTopicsResubscribeReplaces(t *testing.T) {
	p := NewMemProvider()

	var got []string
	require.NoError(t, p.Subscribe("a/b", tag("first", &got)))
	require.NoError(t, p.Subscribe("a/b", tag("second", &got)))

	require.Equal(t, []string{"second"}, collectInto(t, p, "a/b", &got))
}

func TestMemTopicsUnsubscribe(t *testing.T) {
	p := NewMemProvider()

	var got []string
	require.NoError(t, p.Subscribe("a/b", tag("h", &got)))

	require.True(t, p.Unsubscribe("a/b"))
	require.Empty(t, collectInto(t, p, "a/b", &got))

	// Second removal and never-registered patterns report not found.
	require.False(t, p.Unsubscribe("a/b"))
	require.False(t, p.Unsubscribe("never/registered"))

	// The path survives removal, so re-registering still works.
	require.NoError(t, p.Subscribe("a/b", tag("again", &got)))
	require.Equal(t, []string{"again"}, collectInto(t, p, "a/b", &got))
}

func TestMemTopicsEmptyPattern(t *testing.T) {
	p := NewMemProvider()

	var got []string
	require.NoError(t, p.Subscribe("", tag("empty", &got)))

	require.Equal(t, []string{"empty"}, collectInto(t, p, "", &got))
	require.Empty(t, collectInto(t, p, "a", &got))
}

func TestMemTopicsNilHandler(t *testing.T) {
	p := NewMemProvider()
	require.Equal(t, ErrNilHandler, p.Subscribe("a/b", nil))
}

func TestMemTopicsExactBeforeWildcard(t *testing.T) {
	p := NewMemProvider()

	var got []string
	require.NoError(t, p.Subscribe("a/+", tag("wild", &got)))
	require.NoError(t, p.Subscribe("a/b", tag("exact", &got)))

	// Both patterns match; with the LIFO traversal the exact branch is
	// visited first. The order is a traversal artifact, not a priority
	// contract, but it is deterministic.
	require.Equal(t, []string{"exact", "wild"}, collectInto(t, p, "a/b", &got))
}

func TestMemTopicsWildcardQueryLevel(t *testing.T) {
	p := NewMemProvider()

	var got []string
	require.NoError(t, p.Subscribe("a/+", tag("wild", &got)))

	// A concrete topic whose level is literally "+" must match the
	// wildcard child once, not twice.
	require.Equal(t, []string{"wild"}, collectInto(t, p, "a/+", &got))
}

func TestMemTopicsMatchIdempotent(t *testing.T) {
	p := NewMemProvider()

	var got []string
	require.NoError(t, p.Subscribe("a/+/c", tag("one", &got)))
	require.NoError(t, p.Subscribe("a/b/c", tag("two", &got)))

	first := append([]string(nil), collectInto(t, p, "a/b/c", &got)...)
	second := append([]string(nil), collectInto(t, p, "a/b/c", &got)...)
	require.Equal(t, first, second)
	require.Len(t, first, 2)
}

func TestMemTopicsLazyIterator(t *testing.T) {
	p := NewMemProvider()

	var got []string
	require.NoError(t, p.Subscribe("a/b", tag("h", &got)))

	it := p.Match("a/b")
	h, ok := it.Next()
	require.True(t, ok)
	require.NoError(t, h("a/b", nil))
	require.Equal(t, []string{"h"}, got)

	// The iterator is single use: once drained it stays drained.
	_, ok = it.Next()
	require.False(t, ok)
	_, ok = it.Next()
	require.False(t, ok)
}

func TestMemTopicsConcurrent(t *testing.T) {
	p := NewMemProvider()

	const n = 64

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pattern := fmt.Sprintf("key/room%d/+", i)
			err := p.Subscribe(pattern, func(topic string, payload []byte) error { return nil })
			require.NoError(t, err)
		}(i)
	}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			it := p.Match(fmt.Sprintf("key/room%d/user", i))
			for {
				if _, ok := it.Next(); !ok {
					return
				}
			}
		}(i)
	}
	wg.Wait()

	// Every registered handler stays independently retrievable.
	var handlers []OnPublishFunc
	for i := 0; i < n; i++ {
		p.Subscribers(fmt.Sprintf("key/room%d/user", i), &handlers)
		require.Len(t, handlers, 1, "room%d", i)
	}
}

func TestManagerRegistry(t *testing.T) {
	Register("mem-test", NewMemProvider())
	defer Unregister("mem-test")

	mgr, err := NewManager("mem-test")
	require.NoError(t, err)

	var got []string
	require.NoError(t, mgr.Subscribe("a/b", tag("h", &got)))

	var handlers []OnPublishFunc
	mgr.Subscribers("a/b", &handlers)
	require.Len(t, handlers, 1)

	require.True(t, mgr.Unsubscribe("a/b"))
	require.NoError(t, mgr.Close())

	_, err = NewManager("no-such-provider")
	require.Error(t, err)
}

// Package topics deals with si-rtm topic names, topic patterns and the
// handlers registered against them.
// - A topic is a / separated string; / splits it into "topic levels".
// - + is a single level wildcard. It must occupy an entire topic level
//   and it matches exactly one name at that level, never zero or many.
// - No multi-level wildcard is supported.
package topics

import (
	"fmt"

	"gitee.com/Ljolan/si-rtm/logger"
)

const (
	// SWC is the single level wildcard
	SWC = "+"

	// SEP is the topic level separator
	SEP = "/"
)

// OnPublishFunc handles one inbound message delivered to a pattern that
// matched the message topic.
type OnPublishFunc func(topic string, payload []byte) error

// TopicsProvider maintains pattern to handler associations and answers
// reverse lookups: given a concrete topic, every registered pattern that
// matches it.
type TopicsProvider interface {
	// Subscribe associates handler with pattern, replacing any handler
	// already registered for the exact same pattern.
	Subscribe(pattern string, handler OnPublishFunc) error

	// Unsubscribe removes the handler registered for pattern. It reports
	// false if no handler was registered for that exact pattern.
	Unsubscribe(pattern string) bool

	// Match walks the trie against a concrete topic and returns a fresh,
	// single-use iterator over the handlers of every matching pattern.
	Match(topic string) *Matches

	// Subscribers materializes Match into the supplied slice, resetting
	// it first.
	Subscribers(topic string, handlers *[]OnPublishFunc)

	Close() error
}

var providers = make(map[string]TopicsProvider)

var Default = "default"

// Register makes a TopicsProvider available under the given name. An
// empty name registers the default provider.
func Register(name string, provider TopicsProvider) {
	if provider == nil {
		panic("topics: Register provider is nil")
	}
	if name == "" {
		name = Default
	}
	if _, dup := providers[name]; dup {
		panic("topics: Register called twice for provider " + name)
	}

	providers[name] = provider
	logger.Logger.Infof("Register TopicsProvider '%s' success, %T", name, provider)
}

func Unregister(name string) {
	if name == "" {
		name = Default
	}
	delete(providers, name)
}

// Manager fronts a named provider.
type Manager struct {
	p TopicsProvider
}

func NewManager(providerName string) (*Manager, error) {
	if providerName == "" {
		providerName = Default
	}
	p, ok := providers[providerName]
	if !ok {
		return nil, fmt.Errorf("topics: unknown provider %q", providerName)
	}

	return &Manager{p: p}, nil
}

func (m *Manager) Subscribe(pattern string, handler OnPublishFunc) error {
	return m.p.Subscribe(pattern, handler)
}

func (m *Manager) Unsubscribe(pattern string) bool {
	return m.p.Unsubscribe(pattern)
}

func (m *Manager) Match(topic string) *Matches {
	return m.p.Match(topic)
}

func (m *Manager) Subscribers(topic string, handlers *[]OnPublishFunc) {
	m.p.Subscribers(topic, handlers)
}

func (m *Manager) Close() error {
	return m.p.Close()
}

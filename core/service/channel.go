package service

import "strings"

// ChannelOption is one name=value pair appended to a formatted channel
// as a query suffix. Order is preserved.
type ChannelOption struct {
	Name  string
	Value string
}

// FormatChannel builds the fully qualified wire topic for a key and
// channel: "<key>/<channel-path>/", plus "?name=value&..." when options
// are given. An empty channel is invalid input, not a fault.
func FormatChannel(key, channel string, opts ...ChannelOption) (string, error) {
	if channel == "" {
		return "", ErrInvalidChannel
	}

	var b strings.Builder
	b.WriteString(key)
	if !strings.HasPrefix(channel, "/") {
		b.WriteString("/")
	}
	b.WriteString(channel)
	if !strings.HasSuffix(channel, "/") {
		b.WriteString("/")
	}

	for i, opt := range opts {
		if i == 0 {
			b.WriteString("?")
		} else {
			b.WriteString("&")
		}
		b.WriteString(opt.Name)
		b.WriteString("=")
		b.WriteString(opt.Value)
	}

	return b.String(), nil
}

// TrimChannelOptions strips the query suffix from a raw wire topic. The
// matcher only ever sees the key and channel path portion.
func TrimChannelOptions(topic string) string {
	if i := strings.IndexByte(topic, '?'); i >= 0 {
		return topic[:i]
	}
	return topic
}

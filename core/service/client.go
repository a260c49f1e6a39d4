package service

import (
	"strconv"
	"time"

	"github.com/bsm/ratelimit"
	"github.com/panjf2000/ants/v2"
	"github.com/valyala/fastrand"

	"gitee.com/Ljolan/si-rtm/config"
	"gitee.com/Ljolan/si-rtm/core/topics"
	"gitee.com/Ljolan/si-rtm/core/transport"
	"gitee.com/Ljolan/si-rtm/logger"
)

// Client is the pub/sub adapter between application code and the
// messaging service. It formats channels with access keys, drives the
// transport, and routes inbound messages to the handlers whose patterns
// match.
type Client struct {
	cfg   config.Client
	trans transport.Transport

	clientId  string
	topicsMgr *topics.Manager

	// Optional goroutine pool for inbound dispatch; nil dispatches
	// inline on the transport's receive loop.
	pool *ants.Pool

	// Optional cap on outbound publishes; nil is unlimited.
	limiter *ratelimit.RateLimiter
}

// NewClient builds a client over the given transport. A nil transport
// gets a TCPTransport configured from cfg.
func NewClient(cfg config.Client, trans transport.Transport) *Client {
	if trans == nil {
		trans = &transport.TCPTransport{
			BrokerUrl:      cfg.BrokerUrl,
			KeepAlive:      cfg.KeepAlive,
			ConnectTimeout: cfg.ConnectTimeout,
			AutoIdPrefix:   cfg.AutoIdPrefix,
		}
	}

	c := &Client{
		cfg:   cfg,
		trans: trans,
	}
	if cfg.PublishRate > 0 {
		c.limiter = ratelimit.New(cfg.PublishRate, time.Second)
	}
	return c
}

// Connect opens the session and wires the dispatch callback. Each client
// owns one matcher trie, registered for the life of the session under
// the client identifier.
func (c *Client) Connect() (*transport.ConnectResult, error) {
	c.clientId = c.cfg.ClientId
	if c.clientId == "" {
		prefix := c.cfg.AutoIdPrefix
		if prefix == "" {
			prefix = config.AutoIdPrefix
		}
		c.clientId = prefix + strconv.FormatUint(uint64(fastrand.Uint32()), 10)
	}

	topics.Register(c.clientId, topics.NewMemProvider())
	mgr, err := topics.NewManager(c.clientId)
	if err != nil {
		topics.Unregister(c.clientId)
		return nil, err
	}
	c.topicsMgr = mgr

	if c.cfg.DispatchPoolSize > 0 {
		c.pool, err = ants.NewPool(c.cfg.DispatchPoolSize,
			ants.WithPanicHandler(func(r interface{}) {
				logger.Logger.Errorf("(%s) dispatch pool panic: %v", c.clientId, r)
			}),
			ants.WithNonblocking(true))
		if err != nil {
			topics.Unregister(c.clientId)
			return nil, err
		}
	}

	c.trans.OnMessage(c.dispatch)

	result, err := c.trans.Connect(c.clientId)
	if err != nil {
		c.teardown()
		return nil, err
	}
	return result, nil
}

// Disconnect closes the session and releases the matcher and the
// dispatch pool.
func (c *Client) Disconnect() error {
	err := c.trans.Disconnect()
	c.teardown()
	return err
}

func (c *Client) teardown() {
	if c.pool != nil {
		c.pool.Release()
		c.pool = nil
	}
	if c.topicsMgr != nil {
		c.topicsMgr.Close()
		c.topicsMgr = nil
	}
	if c.clientId != "" {
		topics.Unregister(c.clientId)
	}
}

// Register formats the channel under key, installs handler in the
// matcher (replacing any handler already registered for the same
// pattern) and subscribes on the transport. The channel may contain "+"
// wildcard levels.
func (c *Client) Register(key, channel string, handler topics.OnPublishFunc) (uint16, error) {
	key, err := c.pickKey(key)
	if err != nil {
		return 0, err
	}
	wire, err := FormatChannel(key, channel)
	if err != nil {
		return 0, err
	}

	if err := c.topicsMgr.Subscribe(wire, handler); err != nil {
		return 0, err
	}
	return c.trans.Subscribe([]string{wire}, []byte{0})
}

// Unregister removes the handler for the exact pattern and unsubscribes
// on the transport. A pattern that was never registered is not an error;
// the transport unsubscribe is still sent.
func (c *Client) Unregister(key, channel string) (uint16, error) {
	key, err := c.pickKey(key)
	if err != nil {
		return 0, err
	}
	wire, err := FormatChannel(key, channel)
	if err != nil {
		return 0, err
	}

	if !c.topicsMgr.Unsubscribe(wire) {
		logger.Logger.Debugf("(%s) unregister %q: no handler registered", c.clientId, wire)
	}
	return c.trans.Unsubscribe([]string{wire})
}

// Publish sends payload to the channel under key. Options are appended
// to the wire topic as a query suffix.
func (c *Client) Publish(key, channel string, payload []byte, opts ...ChannelOption) (uint16, error) {
	key, err := c.pickKey(key)
	if err != nil {
		return 0, err
	}
	wire, err := FormatChannel(key, channel, opts...)
	if err != nil {
		return 0, err
	}

	if c.limiter != nil && c.limiter.Limit() {
		return 0, ErrPublishLimit
	}
	return c.trans.Publish(wire, payload)
}

func (c *Client) pickKey(key string) (string, error) {
	if key != "" {
		return key, nil
	}
	if c.cfg.DefaultKey != "" {
		return c.cfg.DefaultKey, nil
	}
	return "", ErrMissingKey
}

// dispatch is the transport's inbound callback: match the topic against
// the trie and invoke every handler, isolating individual failures.
func (c *Client) dispatch(topic string, payload []byte) {
	if c.pool != nil {
		if err := c.pool.Submit(func() { c.deliver(topic, payload) }); err == nil {
			return
		}
		// Pool saturated or closed; fall through to inline delivery so
		// the message is not dropped.
	}
	c.deliver(topic, payload)
}

func (c *Client) deliver(topic string, payload []byte) {
	mgr := c.topicsMgr
	if mgr == nil {
		return
	}

	it := mgr.Match(TrimChannelOptions(topic))
	for {
		handler, ok := it.Next()
		if !ok {
			return
		}
		c.invoke(handler, topic, payload)
	}
}

// invoke runs one handler. A panic or returned error is logged and
// contained so the remaining matched handlers still run.
func (c *Client) invoke(handler topics.OnPublishFunc, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger.Errorf("(%s) handler panic on %q: %v", c.clientId, topic, r)
		}
	}()

	if err := handler(topic, payload); err != nil {
		logger.Logger.Errorf("(%s) handler error on %q: %v", c.clientId, topic, err)
	}
}

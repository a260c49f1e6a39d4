package transport

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fastrand"
	"go.uber.org/atomic"

	"gitee.com/Ljolan/si-rtm/core/message"
	"gitee.com/Ljolan/si-rtm/logger"
)

const minKeepAlive = 30

// TCPTransport speaks the wire protocol over a plain TCP connection.
// The zero value is not usable; set BrokerUrl before Connect.
type TCPTransport struct {
	// BrokerUrl is the service endpoint, e.g. "tcp://127.0.0.1:1883".
	BrokerUrl string

	// The number of seconds to keep the connection live if there's no
	// data. If not set then default to 5 mins.
	KeepAlive int

	// The number of seconds to wait for the connect acknowledgement
	// before disconnecting. If not set then default to 2 seconds.
	ConnectTimeout int

	// AutoIdPrefix prefixes generated client identifiers when Connect is
	// called with an empty one.
	AutoIdPrefix string

	onMessage OnMessageFunc

	conn    net.Conn
	r       *bufio.Reader
	writeMu sync.Mutex

	pkid atomic.Uint32

	done chan struct{}
	wg   sync.WaitGroup
}

var _ Transport = (*TCPTransport)(nil)

func (t *TCPTransport) OnMessage(fn OnMessageFunc) {
	t.onMessage = fn
}

func (t *TCPTransport) checkConfiguration() {
	if t.KeepAlive == 0 {
		t.KeepAlive = 300
	}
	if t.ConnectTimeout == 0 {
		t.ConnectTimeout = 2
	}
	if t.AutoIdPrefix == "" {
		t.AutoIdPrefix = "auto-"
	}
}

// Connect dials the service and performs the connect handshake. An empty
// clientId is replaced with a generated "auto-" identifier.
func (t *TCPTransport) Connect(clientId string) (*ConnectResult, error) {
	t.checkConfiguration()

	u, err := url.Parse(t.BrokerUrl)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "tcp" {
		return nil, ErrInvalidConnectionType
	}

	if clientId == "" {
		clientId = t.AutoIdPrefix + strconv.FormatUint(uint64(fastrand.Uint32()), 10)
	}

	keepAlive := t.KeepAlive
	if keepAlive < minKeepAlive {
		keepAlive = minKeepAlive
	}

	conn, err := net.Dial(u.Scheme, u.Host)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			conn.Close()
		}
	}()

	req := message.NewConnectMessage()
	req.SetClientId([]byte(clientId))
	req.SetCleanSession(true)
	req.SetKeepAlive(uint16(keepAlive))
	if err = writeMessage(conn, req); err != nil {
		return nil, err
	}

	// One reader for the life of the connection so no buffered bytes are
	// lost between the handshake and the receive loop.
	r := bufio.NewReader(conn)

	conn.SetReadDeadline(time.Now().Add(time.Second * time.Duration(t.ConnectTimeout)))
	resp, err := readConnack(r)
	if err != nil {
		return nil, err
	}
	conn.SetReadDeadline(time.Time{})

	if resp.ReturnCode() != message.ConnectionAccepted {
		err = resp.ReturnCode()
		return nil, err
	}

	t.conn = conn
	t.r = r
	t.done = make(chan struct{})

	t.wg.Add(2)
	go t.receiver()
	go t.pinger(time.Duration(keepAlive) * time.Second)

	logger.Logger.Infof("(%s) connected to %s", clientId, t.BrokerUrl)
	return &ConnectResult{
		SessionPresent: resp.SessionPresent(),
		ReturnCode:     resp.ReturnCode(),
	}, nil
}

func (t *TCPTransport) Disconnect() error {
	if t.conn == nil {
		return ErrNotConnected
	}

	// Best effort: the connection is going away either way.
	_ = t.write(message.NewDisconnectMessage())

	close(t.done)
	err := t.conn.Close()
	t.wg.Wait()
	t.conn = nil
	return err
}

func (t *TCPTransport) Subscribe(topics []string, qos []byte) (uint16, error) {
	if t.conn == nil {
		return 0, ErrNotConnected
	}
	if len(topics) != len(qos) {
		return 0, fmt.Errorf("transport: %d topics for %d qos values", len(topics), len(qos))
	}

	msg := message.NewSubscribeMessage()
	msg.SetPacketId(t.nextPacketId())
	for i, topic := range topics {
		if err := msg.AddTopic([]byte(topic), qos[i]); err != nil {
			return 0, err
		}
	}

	if err := t.write(msg); err != nil {
		return 0, err
	}
	return msg.PacketId(), nil
}

func (t *TCPTransport) Unsubscribe(topics []string) (uint16, error) {
	if t.conn == nil {
		return 0, ErrNotConnected
	}

	msg := message.NewUnsubscribeMessage()
	msg.SetPacketId(t.nextPacketId())
	for _, topic := range topics {
		msg.AddTopic([]byte(topic))
	}

	if err := t.write(msg); err != nil {
		return 0, err
	}
	return msg.PacketId(), nil
}

func (t *TCPTransport) Publish(topic string, payload []byte) (uint16, error) {
	if t.conn == nil {
		return 0, ErrNotConnected
	}

	msg := message.NewPublishMessage()
	msg.SetTopic([]byte(topic))
	msg.SetPayload(payload)
	id := t.nextPacketId()
	msg.SetPacketId(id)

	if err := t.write(msg); err != nil {
		return 0, err
	}
	return id, nil
}

// nextPacketId never hands out 0, which the wire format reserves.
func (t *TCPTransport) nextPacketId() uint16 {
	for {
		if id := uint16(t.pkid.Inc()); id != 0 {
			return id
		}
	}
}

func (t *TCPTransport) write(msg message.Message) error {
	buf := make([]byte, msg.Len())
	n, err := msg.Encode(buf)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	_, err = t.conn.Write(buf[:n])
	t.writeMu.Unlock()
	return err
}

// receiver reads packets off the connection until it is closed and hands
// inbound publishes to the registered callback.
func (t *TCPTransport) receiver() {
	defer t.wg.Done()

	for {
		msg, err := readMessage(t.r)
		if err != nil {
			select {
			case <-t.done:
			default:
				if err != io.EOF {
					logger.Logger.Errorf("transport/receiver: %v", err)
				}
			}
			return
		}

		switch m := msg.(type) {
		case *message.PublishMessage:
			if t.onMessage != nil {
				t.onMessage(string(m.Topic()), m.Payload())
			}
		case *message.PingrespMessage:
			logger.Logger.Debugf("transport/receiver: pingresp")
		default:
			logger.Logger.Debugf("transport/receiver: %s", msg.Name())
		}
	}
}

func (t *TCPTransport) pinger(interval time.Duration) {
	defer t.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			if err := t.write(message.NewPingreqMessage()); err != nil {
				logger.Logger.Errorf("transport/pinger: %v", err)
				return
			}
		}
	}
}

// writeMessage encodes msg and writes it to w in one call.
func writeMessage(w io.Writer, msg message.Message) error {
	buf := make([]byte, msg.Len())
	n, err := msg.Encode(buf)
	if err != nil {
		return err
	}
	_, err = w.Write(buf[:n])
	return err
}

// readMessage reads exactly one packet: the fixed header byte, the
// variable length remaining-length field, then the body.
func readMessage(r *bufio.Reader) (message.Message, error) {
	first, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	// Remaining length is at most 4 bytes, 7 bits each.
	remlen := 0
	lenbuf := make([]byte, 0, 4)
	for i := 0; ; i++ {
		if i == 4 {
			return nil, message.InvalidMessage
		}
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		lenbuf = append(lenbuf, b)
		remlen |= int(b&0x7f) << uint(7*i)
		if b&0x80 == 0 {
			break
		}
	}

	buf := make([]byte, 0, 1+len(lenbuf)+remlen)
	buf = append(buf, first)
	buf = append(buf, lenbuf...)
	body := make([]byte, remlen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	buf = append(buf, body...)

	msg, err := message.MessageType(first >> 4).New()
	if err != nil {
		return nil, err
	}
	if _, err := msg.Decode(buf); err != nil {
		return nil, err
	}
	return msg, nil
}

func readConnack(r *bufio.Reader) (*message.ConnackMessage, error) {
	msg, err := readMessage(r)
	if err != nil {
		return nil, err
	}
	resp, ok := msg.(*message.ConnackMessage)
	if !ok {
		return nil, fmt.Errorf("transport: expected CONNACK, got %s", msg.Name())
	}
	return resp, nil
}

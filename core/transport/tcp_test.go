package transport

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitee.com/Ljolan/si-rtm/core/message"
)

// fakeBroker accepts one connection and answers the connect handshake,
// then hands the connection to script.
func fakeBroker(t *testing.T, rc message.ConnackReturnCode, script func(conn net.Conn, r *bufio.Reader)) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		msg, err := readMessage(r)
		if err != nil {
			return
		}
		if _, ok := msg.(*message.ConnectMessage); !ok {
			return
		}

		resp := message.NewConnackMessage()
		resp.SetReturnCode(rc)
		if err := writeMessage(conn, resp); err != nil {
			return
		}

		if script != nil {
			script(conn, r)
		} else {
			// Hold the connection open until the client goes away.
			for {
				if _, err := readMessage(r); err != nil {
					return
				}
			}
		}
	}()

	return "tcp://" + ln.Addr().String()
}

func TestTCPTransportConnectDisconnect(t *testing.T) {
	url := fakeBroker(t, message.ConnectionAccepted, nil)

	trans := &TCPTransport{BrokerUrl: url, ConnectTimeout: 2}
	result, err := trans.Connect("test-client")
	require.NoError(t, err)
	require.Equal(t, message.ConnectionAccepted, result.ReturnCode)

	require.NoError(t, trans.Disconnect())
}

func TestTCPTransportConnectRefused(t *testing.T) {
	url := fakeBroker(t, message.ErrNotAuthorized, nil)

	trans := &TCPTransport{BrokerUrl: url, ConnectTimeout: 2}
	_, err := trans.Connect("test-client")
	require.Equal(t, message.ErrNotAuthorized, err)
}

func TestTCPTransportInvalidScheme(t *testing.T) {
	trans := &TCPTransport{BrokerUrl: "http://127.0.0.1:1883"}
	_, err := trans.Connect("test-client")
	require.Equal(t, ErrInvalidConnectionType, err)
}

func TestTCPTransportNotConnected(t *testing.T) {
	trans := &TCPTransport{BrokerUrl: "tcp://127.0.0.1:1883"}

	_, err := trans.Publish("a/b", nil)
	require.Equal(t, ErrNotConnected, err)
	_, err = trans.Subscribe([]string{"a/b"}, []byte{0})
	require.Equal(t, ErrNotConnected, err)
	_, err = trans.Unsubscribe([]string{"a/b"})
	require.Equal(t, ErrNotConnected, err)
	require.Equal(t, ErrNotConnected, trans.Disconnect())
}

func TestTCPTransportSubscribeAndInbound(t *testing.T) {
	subscribed := make(chan string, 1)

	url := fakeBroker(t, message.ConnectionAccepted, func(conn net.Conn, r *bufio.Reader) {
		msg, err := readMessage(r)
		if err != nil {
			return
		}
		sub, ok := msg.(*message.SubscribeMessage)
		if !ok {
			return
		}
		subscribed <- string(sub.Topics()[0])

		ack := message.NewSubackMessage()
		ack.SetPacketId(sub.PacketId())
		ack.AddReturnCodes([]byte{0})
		if err := writeMessage(conn, ack); err != nil {
			return
		}

		pub := message.NewPublishMessage()
		pub.SetTopic([]byte("key1/chat/"))
		pub.SetPayload([]byte("hello"))
		if err := writeMessage(conn, pub); err != nil {
			return
		}

		for {
			if _, err := readMessage(r); err != nil {
				return
			}
		}
	})

	inbound := make(chan string, 1)
	trans := &TCPTransport{BrokerUrl: url, ConnectTimeout: 2}
	trans.OnMessage(func(topic string, payload []byte) {
		inbound <- topic + "=" + string(payload)
	})

	_, err := trans.Connect("test-client")
	require.NoError(t, err)
	defer trans.Disconnect()

	id, err := trans.Subscribe([]string{"key1/chat/"}, []byte{0})
	require.NoError(t, err)
	require.NotZero(t, id)

	select {
	case topic := <-subscribed:
		require.Equal(t, "key1/chat/", topic)
	case <-time.After(2 * time.Second):
		t.Fatal("broker never saw the subscribe")
	}

	select {
	case got := <-inbound:
		require.Equal(t, "key1/chat/=hello", got)
	case <-time.After(2 * time.Second):
		t.Fatal("inbound message never delivered")
	}
}

func TestTCPTransportPublish(t *testing.T) {
	published := make(chan string, 1)

	url := fakeBroker(t, message.ConnectionAccepted, func(conn net.Conn, r *bufio.Reader) {
		for {
			msg, err := readMessage(r)
			if err != nil {
				return
			}
			if pub, ok := msg.(*message.PublishMessage); ok {
				published <- string(pub.Topic()) + "=" + string(pub.Payload())
			}
		}
	})

	trans := &TCPTransport{BrokerUrl: url, ConnectTimeout: 2}
	_, err := trans.Connect("test-client")
	require.NoError(t, err)
	defer trans.Disconnect()

	id, err := trans.Publish("key1/chat/?last=1", []byte("hi"))
	require.NoError(t, err)
	require.NotZero(t, id)

	select {
	case got := <-published:
		require.Equal(t, "key1/chat/?last=1=hi", got)
	case <-time.After(2 * time.Second):
		t.Fatal("broker never saw the publish")
	}
}

func TestTCPTransportAutoClientId(t *testing.T) {
	url := fakeBroker(t, message.ConnectionAccepted, nil)

	// An empty client id is replaced with a generated "auto-" one; the
	// handshake must still go through.
	trans := &TCPTransport{BrokerUrl: url, ConnectTimeout: 2}
	_, err := trans.Connect("")
	require.NoError(t, err)
	require.NoError(t, trans.Disconnect())
}

func TestNextPacketIdSkipsZero(t *testing.T) {
	trans := &TCPTransport{}
	seen := make(map[uint16]bool)
	for i := 0; i < 1000; i++ {
		id := trans.nextPacketId()
		require.NotZero(t, id)
		require.False(t, seen[id])
		seen[id] = true
	}
}

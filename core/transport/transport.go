// Package transport carries si-rtm control packets between the client
// and the messaging service. The Transport contract is deliberately
// narrow: the session protocol (handshake, keepalive, acknowledgement
// numbering) stays behind it.
package transport

import (
	"errors"

	"gitee.com/Ljolan/si-rtm/core/message"
)

var (
	ErrInvalidConnectionType = errors.New("transport: invalid connection type")

	ErrNotConnected = errors.New("transport: not connected")
)

// OnMessageFunc receives one inbound message. It is invoked from the
// transport's receive loop, so implementations hand slow work off
// themselves.
type OnMessageFunc func(topic string, payload []byte)

// ConnectResult reports the outcome of the connect handshake.
type ConnectResult struct {
	SessionPresent bool
	ReturnCode     message.ConnackReturnCode
}

// Transport is the session layer the client adapter drives. Request ids
// returned by Subscribe, Unsubscribe and Publish identify the operation
// within the session.
type Transport interface {
	// Connect opens the session under the given client identifier.
	Connect(clientId string) (*ConnectResult, error)

	// Disconnect announces the shutdown to the service and closes the
	// session.
	Disconnect() error

	Subscribe(topics []string, qos []byte) (uint16, error)

	Unsubscribe(topics []string) (uint16, error)

	Publish(topic string, payload []byte) (uint16, error)

	// OnMessage registers the inbound delivery callback. It must be set
	// before Connect.
	OnMessage(fn OnMessageFunc)
}

// Package message implements the subset of the MQTT 3.1.1 control
// packets that the si-rtm client exchanges with the service: connect
// handshake, subscribe/unsubscribe, publish, keepalive and disconnect.
package message

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	InvalidMessage = errors.New("message: invalid message")

	ErrBufferTooSmall = errors.New("message: insufficient buffer size")
)

const maxRemainingLength int32 = 268435455 // 256 MB, bytes 0xFF, 0xFF, 0xFF, 0x7F

// MessageType is the MQTT control packet type, stored in the upper four
// bits of the first fixed header byte.
type MessageType byte

const (
	RESERVED MessageType = iota
	CONNECT
	CONNACK
	PUBLISH
	PUBACK
	PUBREC
	PUBREL
	PUBCOMP
	SUBSCRIBE
	SUBACK
	UNSUBSCRIBE
	UNSUBACK
	PINGREQ
	PINGRESP
	DISCONNECT
	RESERVED2
)

// Message is an MQTT control packet that can size, encode and decode
// itself.
type Message interface {
	// Name returns a string representation of the message type, e.g.
	// "PUBLISH" or "SUBSCRIBE".
	Name() string

	Type() MessageType

	// Len returns the number of bytes Encode needs.
	Len() int

	// Encode writes the packet into dst and returns the number of bytes
	// written.
	Encode(dst []byte) (int, error)

	// Decode reads the packet from src and returns the number of bytes
	// consumed.
	Decode(src []byte) (int, error)
}

func (t MessageType) Name() string {
	switch t {
	case CONNECT:
		return "CONNECT"
	case CONNACK:
		return "CONNACK"
	case PUBLISH:
		return "PUBLISH"
	case PUBACK:
		return "PUBACK"
	case PUBREC:
		return "PUBREC"
	case PUBREL:
		return "PUBREL"
	case PUBCOMP:
		return "PUBCOMP"
	case SUBSCRIBE:
		return "SUBSCRIBE"
	case SUBACK:
		return "SUBACK"
	case UNSUBSCRIBE:
		return "UNSUBSCRIBE"
	case UNSUBACK:
		return "UNSUBACK"
	case PINGREQ:
		return "PINGREQ"
	case PINGRESP:
		return "PINGRESP"
	case DISCONNECT:
		return "DISCONNECT"
	}
	return "UNKNOWN"
}

// DefaultFlags returns the fixed header flags mandated for the message
// type. PUBLISH flags carry QoS/dup/retain and have no fixed value.
func (t MessageType) DefaultFlags() byte {
	switch t {
	case SUBSCRIBE, UNSUBSCRIBE, PUBREL:
		return 2
	default:
		return 0
	}
}

func (t MessageType) Valid() bool {
	return t > RESERVED && t < RESERVED2
}

// New returns an empty message of the given type, ready for Decode.
func (t MessageType) New() (Message, error) {
	switch t {
	case CONNECT:
		return NewConnectMessage(), nil
	case CONNACK:
		return NewConnackMessage(), nil
	case PUBLISH:
		return NewPublishMessage(), nil
	case SUBSCRIBE:
		return NewSubscribeMessage(), nil
	case SUBACK:
		return NewSubackMessage(), nil
	case UNSUBSCRIBE:
		return NewUnsubscribeMessage(), nil
	case UNSUBACK:
		return NewUnsubackMessage(), nil
	case PINGREQ:
		return NewPingreqMessage(), nil
	case PINGRESP:
		return NewPingrespMessage(), nil
	case DISCONNECT:
		return NewDisconnectMessage(), nil
	}
	return nil, fmt.Errorf("message: invalid message type %d", t)
}

func ValidQos(qos byte) bool {
	return qos <= 2
}

// readLPBytes reads a 2-byte length prefixed byte slice.
func readLPBytes(src []byte) ([]byte, int, error) {
	if len(src) < 2 {
		return nil, 0, ErrBufferTooSmall
	}
	n := int(binary.BigEndian.Uint16(src))
	if len(src) < 2+n {
		return nil, 2, ErrBufferTooSmall
	}
	return src[2 : 2+n], 2 + n, nil
}

// writeLPBytes writes a 2-byte length prefixed byte slice.
func writeLPBytes(dst, b []byte) (int, error) {
	if len(b) > 65535 {
		return 0, fmt.Errorf("message: length %d greater than max %d", len(b), 65535)
	}
	if len(dst) < 2+len(b) {
		return 0, ErrBufferTooSmall
	}
	binary.BigEndian.PutUint16(dst, uint16(len(b)))
	return 2 + copy(dst[2:], b), nil
}

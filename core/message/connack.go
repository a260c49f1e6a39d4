package message

import "fmt"

// ConnackReturnCode is the second byte of the CONNACK variable header.
type ConnackReturnCode byte

const (
	ConnectionAccepted ConnackReturnCode = iota
	ErrInvalidProtocolVersion
	ErrIdentifierRejected
	ErrServerUnavailable
	ErrBadUsernameOrPassword
	ErrNotAuthorized
)

func (rc ConnackReturnCode) Error() string {
	switch rc {
	case ConnectionAccepted:
		return "connection accepted"
	case ErrInvalidProtocolVersion:
		return "connection refused: unacceptable protocol version"
	case ErrIdentifierRejected:
		return "connection refused: identifier rejected"
	case ErrServerUnavailable:
		return "connection refused: server unavailable"
	case ErrBadUsernameOrPassword:
		return "connection refused: bad user name or password"
	case ErrNotAuthorized:
		return "connection refused: not authorized"
	}
	return "unknown connack return code"
}

// ConnackMessage is the service's acknowledgement of a CONNECT.
type ConnackMessage struct {
	header

	sessionPresent bool
	returnCode     ConnackReturnCode
}

var _ Message = (*ConnackMessage)(nil)

func NewConnackMessage() *ConnackMessage {
	msg := &ConnackMessage{}
	msg.setType(CONNACK)
	return msg
}

func (m *ConnackMessage) String() string {
	return fmt.Sprintf("%s, SessionPresent=%v, ReturnCode=%d", m.header, m.sessionPresent, m.returnCode)
}

func (m *ConnackMessage) SessionPresent() bool { return m.sessionPresent }
func (m *ConnackMessage) SetSessionPresent(v bool) { m.sessionPresent = v }

func (m *ConnackMessage) ReturnCode() ConnackReturnCode { return m.returnCode }
func (m *ConnackMessage) SetReturnCode(v ConnackReturnCode) { m.returnCode = v }

func (m *ConnackMessage) Len() int {
	m.header.remlen = 2
	return m.header.msglen() + 2
}

func (m *ConnackMessage) Encode(dst []byte) (int, error) {
	total, err := m.header.encode(dst, 2)
	if err != nil {
		return total, err
	}

	if m.sessionPresent {
		dst[total] = 1
	} else {
		dst[total] = 0
	}
	total++
	dst[total] = byte(m.returnCode)
	total++

	return total, nil
}

func (m *ConnackMessage) Decode(src []byte) (int, error) {
	total, err := m.header.decode(src)
	if err != nil {
		return total, err
	}
	if m.remlen != 2 {
		return total, InvalidMessage
	}

	if src[total]&0xfe != 0 {
		return total, InvalidMessage
	}
	m.sessionPresent = src[total] == 1
	total++

	if src[total] > byte(ErrNotAuthorized) {
		return total, InvalidMessage
	}
	m.returnCode = ConnackReturnCode(src[total])
	total++

	return total, nil
}

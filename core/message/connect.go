package message

import (
	"encoding/binary"
	"fmt"
)

// ConnectMessage is the first packet sent from the client to the service
// after the network connection is established. Will messages are not
// part of the client subset.
type ConnectMessage struct {
	header

	cleanSession bool
	keepAlive    uint16

	clientId []byte
	username []byte
	password []byte
}

var _ Message = (*ConnectMessage)(nil)

func NewConnectMessage() *ConnectMessage {
	msg := &ConnectMessage{}
	msg.setType(CONNECT)
	return msg
}

func (m *ConnectMessage) String() string {
	return fmt.Sprintf("%s, ClientId=%q, KeepAlive=%d, CleanSession=%v",
		m.header, m.clientId, m.keepAlive, m.cleanSession)
}

func (m *ConnectMessage) ClientId() []byte { return m.clientId }
func (m *ConnectMessage) SetClientId(v []byte) { m.clientId = v }

func (m *ConnectMessage) KeepAlive() uint16 { return m.keepAlive }
func (m *ConnectMessage) SetKeepAlive(v uint16) { m.keepAlive = v }

func (m *ConnectMessage) CleanSession() bool { return m.cleanSession }
func (m *ConnectMessage) SetCleanSession(v bool) { m.cleanSession = v }

func (m *ConnectMessage) Username() []byte { return m.username }
func (m *ConnectMessage) SetUsername(v []byte) { m.username = v }

func (m *ConnectMessage) Password() []byte { return m.password }
func (m *ConnectMessage) SetPassword(v []byte) { m.password = v }

func (m *ConnectMessage) connectFlags() byte {
	var flags byte
	if len(m.username) > 0 {
		flags |= 0x80
	}
	if len(m.password) > 0 {
		flags |= 0x40
	}
	if m.cleanSession {
		flags |= 0x02
	}
	return flags
}

func (m *ConnectMessage) remlen() int {
	// protocol name "MQTT", level, connect flags, keepalive, client id
	total := 2 + 4 + 1 + 1 + 2 + 2 + len(m.clientId)
	if len(m.username) > 0 {
		total += 2 + len(m.username)
	}
	if len(m.password) > 0 {
		total += 2 + len(m.password)
	}
	return total
}

func (m *ConnectMessage) Len() int {
	m.header.remlen = int32(m.remlen())
	return m.header.msglen() + m.remlen()
}

func (m *ConnectMessage) Encode(dst []byte) (int, error) {
	total, err := m.header.encode(dst, int32(m.remlen()))
	if err != nil {
		return total, err
	}

	n, err := writeLPBytes(dst[total:], []byte("MQTT"))
	total += n
	if err != nil {
		return total, err
	}

	dst[total] = 4 // protocol level
	total++
	dst[total] = m.connectFlags()
	total++
	binary.BigEndian.PutUint16(dst[total:], m.keepAlive)
	total += 2

	n, err = writeLPBytes(dst[total:], m.clientId)
	total += n
	if err != nil {
		return total, err
	}

	if len(m.username) > 0 {
		n, err = writeLPBytes(dst[total:], m.username)
		total += n
		if err != nil {
			return total, err
		}
	}
	if len(m.password) > 0 {
		n, err = writeLPBytes(dst[total:], m.password)
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func (m *ConnectMessage) Decode(src []byte) (int, error) {
	total, err := m.header.decode(src)
	if err != nil {
		return total, err
	}

	name, n, err := readLPBytes(src[total:])
	total += n
	if err != nil {
		return total, err
	}
	if string(name) != "MQTT" {
		return total, fmt.Errorf("connect/Decode: invalid protocol name %q", name)
	}

	if len(src[total:]) < 4 {
		return total, ErrBufferTooSmall
	}
	if src[total] != 4 {
		return total, fmt.Errorf("connect/Decode: invalid protocol level %d", src[total])
	}
	total++

	flags := src[total]
	total++
	m.cleanSession = flags&0x02 != 0

	m.keepAlive = binary.BigEndian.Uint16(src[total:])
	total += 2

	m.clientId, n, err = readLPBytes(src[total:])
	total += n
	if err != nil {
		return total, err
	}

	if flags&0x80 != 0 {
		m.username, n, err = readLPBytes(src[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	if flags&0x40 != 0 {
		m.password, n, err = readLPBytes(src[total:])
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

package message

import (
	"encoding/binary"
	"fmt"
)

// UnsubackMessage acknowledges an UNSUBSCRIBE.
type UnsubackMessage struct {
	header
}

var _ Message = (*UnsubackMessage)(nil)

func NewUnsubackMessage() *UnsubackMessage {
	msg := &UnsubackMessage{}
	msg.setType(UNSUBACK)
	return msg
}

func (m *UnsubackMessage) String() string {
	return fmt.Sprintf("%s", m.header)
}

func (m *UnsubackMessage) Len() int {
	m.header.remlen = 2
	return m.header.msglen() + 2
}

func (m *UnsubackMessage) Encode(dst []byte) (int, error) {
	total, err := m.header.encode(dst, 2)
	if err != nil {
		return total, err
	}

	binary.BigEndian.PutUint16(dst[total:], m.packetId)
	total += 2
	return total, nil
}

func (m *UnsubackMessage) Decode(src []byte) (int, error) {
	total, err := m.header.decode(src)
	if err != nil {
		return total, err
	}
	if m.remlen != 2 {
		return total, InvalidMessage
	}

	m.packetId = binary.BigEndian.Uint16(src[total:])
	total += 2
	return total, nil
}

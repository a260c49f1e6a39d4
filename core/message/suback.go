package message

import (
	"encoding/binary"
	"fmt"
)

// QosFailure in a SUBACK return code means the service rejected that
// subscription.
const QosFailure byte = 0x80

// SubackMessage acknowledges a SUBSCRIBE with one return code per
// requested topic, in request order.
type SubackMessage struct {
	header

	returnCodes []byte
}

var _ Message = (*SubackMessage)(nil)

func NewSubackMessage() *SubackMessage {
	msg := &SubackMessage{}
	msg.setType(SUBACK)
	return msg
}

func (m *SubackMessage) String() string {
	return fmt.Sprintf("%s, Return Codes=%v", m.header, m.returnCodes)
}

func (m *SubackMessage) ReturnCodes() []byte { return m.returnCodes }

func (m *SubackMessage) AddReturnCodes(codes []byte) error {
	for _, c := range codes {
		if !ValidQos(c) && c != QosFailure {
			return fmt.Errorf("suback/AddReturnCodes: invalid return code %d", c)
		}
	}
	m.returnCodes = append(m.returnCodes, codes...)
	return nil
}

func (m *SubackMessage) remlen() int {
	return 2 + len(m.returnCodes)
}

func (m *SubackMessage) Len() int {
	m.header.remlen = int32(m.remlen())
	return m.header.msglen() + m.remlen()
}

func (m *SubackMessage) Encode(dst []byte) (int, error) {
	total, err := m.header.encode(dst, int32(m.remlen()))
	if err != nil {
		return total, err
	}

	binary.BigEndian.PutUint16(dst[total:], m.packetId)
	total += 2

	total += copy(dst[total:], m.returnCodes)
	return total, nil
}

func (m *SubackMessage) Decode(src []byte) (int, error) {
	total, err := m.header.decode(src)
	if err != nil {
		return total, err
	}
	end := total + int(m.header.remlen)

	if len(src[total:]) < 2 {
		return total, ErrBufferTooSmall
	}
	m.packetId = binary.BigEndian.Uint16(src[total:])
	total += 2

	if end < total {
		return total, InvalidMessage
	}
	m.returnCodes = src[total:end]
	total = end

	for _, c := range m.returnCodes {
		if !ValidQos(c) && c != QosFailure {
			return total, InvalidMessage
		}
	}
	return total, nil
}

package message

import (
	"encoding/binary"
	"fmt"
)

// UnsubscribeMessage asks the service to stop delivering messages for
// the listed topics.
type UnsubscribeMessage struct {
	header

	topics [][]byte
}

var _ Message = (*UnsubscribeMessage)(nil)

func NewUnsubscribeMessage() *UnsubscribeMessage {
	msg := &UnsubscribeMessage{}
	msg.setType(UNSUBSCRIBE)
	return msg
}

func (m *UnsubscribeMessage) String() string {
	return fmt.Sprintf("%s, Topics=%q", m.header, m.topics)
}

func (m *UnsubscribeMessage) Topics() [][]byte { return m.topics }

func (m *UnsubscribeMessage) AddTopic(topic []byte) {
	m.topics = append(m.topics, topic)
}

func (m *UnsubscribeMessage) remlen() int {
	total := 2
	for _, t := range m.topics {
		total += 2 + len(t)
	}
	return total
}

func (m *UnsubscribeMessage) Len() int {
	m.header.remlen = int32(m.remlen())
	return m.header.msglen() + m.remlen()
}

func (m *UnsubscribeMessage) Encode(dst []byte) (int, error) {
	if len(m.topics) == 0 {
		return 0, fmt.Errorf("unsubscribe/Encode: empty topic list")
	}

	total, err := m.header.encode(dst, int32(m.remlen()))
	if err != nil {
		return total, err
	}

	binary.BigEndian.PutUint16(dst[total:], m.packetId)
	total += 2

	for _, t := range m.topics {
		n, err := writeLPBytes(dst[total:], t)
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func (m *UnsubscribeMessage) Decode(src []byte) (int, error) {
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

	m.topics = nil
	for total < end {
		t, n, err := readLPBytes(src[total:])
		total += n
		if err != nil {
			return total, err
		}
		m.topics = append(m.topics, t)
	}

	if len(m.topics) == 0 {
		return total, InvalidMessage
	}
	return total, nil
}

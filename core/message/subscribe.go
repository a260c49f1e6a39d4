package message

import (
	"encoding/binary"
	"fmt"
)

// SubscribeMessage asks the service to deliver messages published to
// each of the listed topics at up to the requested QoS.
type SubscribeMessage struct {
	header

	topics [][]byte
	qos    []byte
}

var _ Message = (*SubscribeMessage)(nil)

func NewSubscribeMessage() *SubscribeMessage {
	msg := &SubscribeMessage{}
	msg.setType(SUBSCRIBE)
	return msg
}

func (m *SubscribeMessage) String() string {
	return fmt.Sprintf("%s, Topics=%q, QoS=%v", m.header, m.topics, m.qos)
}

func (m *SubscribeMessage) Topics() [][]byte { return m.topics }
func (m *SubscribeMessage) Qos() []byte { return m.qos }

func (m *SubscribeMessage) AddTopic(topic []byte, qos byte) error {
	if !ValidQos(qos) {
		return fmt.Errorf("subscribe/AddTopic: invalid QoS %d", qos)
	}
	m.topics = append(m.topics, topic)
	m.qos = append(m.qos, qos)
	return nil
}

func (m *SubscribeMessage) remlen() int {
	total := 2
	for _, t := range m.topics {
		total += 2 + len(t) + 1
	}
	return total
}

func (m *SubscribeMessage) Len() int {
	m.header.remlen = int32(m.remlen())
	return m.header.msglen() + m.remlen()
}

func (m *SubscribeMessage) Encode(dst []byte) (int, error) {
	if len(m.topics) == 0 {
		return 0, fmt.Errorf("subscribe/Encode: empty topic list")
	}

	total, err := m.header.encode(dst, int32(m.remlen()))
	if err != nil {
		return total, err
	}

	binary.BigEndian.PutUint16(dst[total:], m.packetId)
	total += 2

	for i, t := range m.topics {
		n, err := writeLPBytes(dst[total:], t)
		total += n
		if err != nil {
			return total, err
		}
		dst[total] = m.qos[i]
		total++
	}

	return total, nil
}

func (m *SubscribeMessage) Decode(src []byte) (int, error) {
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
	m.qos = nil
	for total < end {
		t, n, err := readLPBytes(src[total:])
		total += n
		if err != nil {
			return total, err
		}
		if total >= end {
			return total, InvalidMessage
		}
		if !ValidQos(src[total]) {
			return total, InvalidMessage
		}
		m.topics = append(m.topics, t)
		m.qos = append(m.qos, src[total])
		total++
	}

	if len(m.topics) == 0 {
		return total, InvalidMessage
	}
	return total, nil
}

package message

import (
	"encoding/binary"
	"fmt"
)

// PublishMessage carries an application payload for one topic, in either
// direction.
type PublishMessage struct {
	header

	topic   []byte
	payload []byte
}

var _ Message = (*PublishMessage)(nil)

func NewPublishMessage() *PublishMessage {
	msg := &PublishMessage{}
	msg.setType(PUBLISH)
	return msg
}

func (m *PublishMessage) String() string {
	return fmt.Sprintf("%s, Topic=%q, QoS=%d, Payload=%d bytes",
		m.header, m.topic, m.QoS(), len(m.payload))
}

func (m *PublishMessage) Topic() []byte { return m.topic }
func (m *PublishMessage) SetTopic(v []byte) { m.topic = v }

func (m *PublishMessage) Payload() []byte { return m.payload }
func (m *PublishMessage) SetPayload(v []byte) { m.payload = v }

func (m *PublishMessage) QoS() byte {
	return (m.mtypeflags >> 1) & 0x3
}

func (m *PublishMessage) SetQoS(qos byte) error {
	if !ValidQos(qos) {
		return fmt.Errorf("publish/SetQoS: invalid QoS %d", qos)
	}
	m.mtypeflags = m.mtypeflags&0xf9 | qos<<1
	return nil
}

func (m *PublishMessage) Dup() bool {
	return m.mtypeflags&0x8 != 0
}

func (m *PublishMessage) SetDup(v bool) {
	if v {
		m.mtypeflags |= 0x8
	} else {
		m.mtypeflags &= 0xf7
	}
}

func (m *PublishMessage) Retain() bool {
	return m.mtypeflags&0x1 != 0
}

func (m *PublishMessage) SetRetain(v bool) {
	if v {
		m.mtypeflags |= 0x1
	} else {
		m.mtypeflags &= 0xfe
	}
}

func (m *PublishMessage) remlen() int {
	total := 2 + len(m.topic) + len(m.payload)
	if m.QoS() > 0 {
		total += 2
	}
	return total
}

func (m *PublishMessage) Len() int {
	m.header.remlen = int32(m.remlen())
	return m.header.msglen() + m.remlen()
}

func (m *PublishMessage) Encode(dst []byte) (int, error) {
	if len(m.topic) == 0 {
		return 0, fmt.Errorf("publish/Encode: empty topic name")
	}

	total, err := m.header.encode(dst, int32(m.remlen()))
	if err != nil {
		return total, err
	}

	n, err := writeLPBytes(dst[total:], m.topic)
	total += n
	if err != nil {
		return total, err
	}

	if m.QoS() > 0 {
		binary.BigEndian.PutUint16(dst[total:], m.packetId)
		total += 2
	}

	total += copy(dst[total:], m.payload)
	return total, nil
}

func (m *PublishMessage) Decode(src []byte) (int, error) {
	total, err := m.header.decode(src)
	if err != nil {
		return total, err
	}
	end := total + int(m.header.remlen)

	var n int
	m.topic, n, err = readLPBytes(src[total:])
	total += n
	if err != nil {
		return total, err
	}

	if m.QoS() > 0 {
		if len(src[total:]) < 2 {
			return total, ErrBufferTooSmall
		}
		m.packetId = binary.BigEndian.Uint16(src[total:])
		total += 2
	}

	if end < total {
		return total, InvalidMessage
	}
	m.payload = src[total:end]
	total = end

	return total, nil
}

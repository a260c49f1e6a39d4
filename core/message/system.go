package message

// nakedMessage is a control packet that is nothing but its fixed header:
// PINGREQ, PINGRESP and DISCONNECT.
type nakedMessage struct {
	header
}

func (m *nakedMessage) String() string {
	return m.header.String()
}

func (m *nakedMessage) Len() int {
	m.header.remlen = 0
	return m.header.msglen()
}

func (m *nakedMessage) Encode(dst []byte) (int, error) {
	return m.header.encode(dst, 0)
}

func (m *nakedMessage) Decode(src []byte) (int, error) {
	total, err := m.header.decode(src)
	if err != nil {
		return total, err
	}
	if m.remlen != 0 {
		return total, InvalidMessage
	}
	return total, nil
}

// PingreqMessage is the client-side keepalive probe.
type PingreqMessage struct {
	nakedMessage
}

var _ Message = (*PingreqMessage)(nil)

func NewPingreqMessage() *PingreqMessage {
	msg := &PingreqMessage{}
	msg.setType(PINGREQ)
	return msg
}

// PingrespMessage is the service's answer to a PINGREQ.
type PingrespMessage struct {
	nakedMessage
}

var _ Message = (*PingrespMessage)(nil)

func NewPingrespMessage() *PingrespMessage {
	msg := &PingrespMessage{}
	msg.setType(PINGRESP)
	return msg
}

// DisconnectMessage is the final packet the client sends before closing
// the connection.
type DisconnectMessage struct {
	nakedMessage
}

var _ Message = (*DisconnectMessage)(nil)

func NewDisconnectMessage() *DisconnectMessage {
	msg := &DisconnectMessage{}
	msg.setType(DISCONNECT)
	return msg
}

package message

import (
	"encoding/binary"
	"fmt"
)

// header is the fixed header shared by every control packet: one byte of
// type (bits 7-4) and flags (bits 3-0), then the remaining length as a
// variable length integer. Packet types that carry a packet identifier
// keep it here as well.
type header struct {
	mtypeflags byte
	remlen     int32
	packetId   uint16
}

func (h header) String() string {
	return fmt.Sprintf("Type=%q, Flags=%04b, Remaining Length=%d, Packet Id=%d",
		h.Type().Name(), h.Flags(), h.remlen, h.packetId)
}

func (h *header) Name() string {
	return h.Type().Name()
}

func (h *header) Type() MessageType {
	return MessageType(h.mtypeflags >> 4)
}

// setType sets the message type together with its mandated flags.
func (h *header) setType(mtype MessageType) {
	h.mtypeflags = byte(mtype)<<4 | (mtype.DefaultFlags() & 0xf)
}

func (h *header) Flags() byte {
	return h.mtypeflags & 0x0f
}

func (h *header) RemainingLength() int32 {
	return h.remlen
}

// PacketId returns the packet identifier, 0 for packet types that do not
// carry one.
func (h *header) PacketId() uint16 {
	return h.packetId
}

func (h *header) SetPacketId(v uint16) {
	h.packetId = v
}

func (h *header) msglen() int {
	// message type and flag byte
	total := 1

	if h.remlen <= 127 {
		total += 1
	} else if h.remlen <= 16383 {
		total += 2
	} else if h.remlen <= 2097151 {
		total += 3
	} else {
		total += 4
	}

	return total
}

func (h *header) encode(dst []byte, remlen int32) (int, error) {
	if remlen > maxRemainingLength || remlen < 0 {
		return 0, fmt.Errorf("header/encode: remaining length (%d) out of bound (max %d, min 0)", remlen, maxRemainingLength)
	}
	h.remlen = remlen

	if len(dst) < h.msglen() {
		return 0, ErrBufferTooSmall
	}
	if !h.Type().Valid() {
		return 0, fmt.Errorf("header/encode: invalid message type %d", h.Type())
	}

	total := 0
	dst[total] = h.mtypeflags
	total++

	total += binary.PutUvarint(dst[total:], uint64(remlen))
	return total, nil
}

func (h *header) decode(src []byte) (int, error) {
	if len(src) < 2 {
		return 0, ErrBufferTooSmall
	}

	total := 0
	h.mtypeflags = src[total]
	total++

	if !h.Type().Valid() {
		return total, InvalidMessage
	}
	if h.Type() != PUBLISH && h.Flags() != h.Type().DefaultFlags() {
		return total, InvalidMessage
	}
	// PUBLISH flags are DUP(3) QoS(2-1) RETAIN(0); only the QoS needs
	// validating here.
	if h.Type() == PUBLISH && !ValidQos((h.Flags()>>1)&0x3) {
		return total, InvalidMessage
	}

	remlen, m := binary.Uvarint(src[total:])
	if m <= 0 {
		return total, InvalidMessage
	}
	total += m
	h.remlen = int32(remlen)

	if h.remlen > maxRemainingLength {
		return total, InvalidMessage
	}
	if int(h.remlen) > len(src[total:]) {
		return total, ErrBufferTooSmall
	}

	return total, nil
}

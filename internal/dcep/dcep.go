// Copyright 2019 Lanikai Labs. All rights reserved.

// Package dcep encodes and decodes the Data Channel Establishment
// Protocol messages carried on an SCTP stream before a data channel is
// usable (spec §4.5, RFC 8832).
package dcep

import (
	"encoding/binary"
	"fmt"
)

// MessageType is the first octet of every DCEP message.
type MessageType byte

const (
	MessageTypeAck  MessageType = 0x02
	MessageTypeOpen MessageType = 0x03
)

// ChannelType is the reliability/ordering mode requested by an Open
// message (spec §3 "DataChannelInit").
type ChannelType byte

const (
	ChannelTypeReliable                       ChannelType = 0x00
	ChannelTypeReliableUnordered              ChannelType = 0x80
	ChannelTypePartialReliableRexmit          ChannelType = 0x01
	ChannelTypePartialReliableRexmitUnordered ChannelType = 0x81
	ChannelTypePartialReliableTimed           ChannelType = 0x02
	ChannelTypePartialReliableTimedUnordered  ChannelType = 0x82
)

const openHeaderLen = 12

// Open is a decoded DATA_CHANNEL_OPEN message (spec §4.5).
type Open struct {
	ChannelType          ChannelType
	Priority             uint16
	ReliabilityParameter uint32
	Label                string
	Protocol             string
}

// Ordered reports whether this channel type preserves message order.
func (o Open) Ordered() bool {
	switch o.ChannelType {
	case ChannelTypeReliableUnordered, ChannelTypePartialReliableRexmitUnordered, ChannelTypePartialReliableTimedUnordered:
		return false
	default:
		return true
	}
}

// MaxRetransmits reports the channel's max-retransmits parameter and
// whether the channel type carries one (spec §3 "maxRetransmits").
func (o Open) MaxRetransmits() (uint32, bool) {
	switch o.ChannelType {
	case ChannelTypePartialReliableRexmit, ChannelTypePartialReliableRexmitUnordered:
		return o.ReliabilityParameter, true
	default:
		return 0, false
	}
}

// MaxPacketLifeTime reports the channel's max-packet-life-time parameter
// in milliseconds and whether the channel type carries one.
func (o Open) MaxPacketLifeTime() (uint32, bool) {
	switch o.ChannelType {
	case ChannelTypePartialReliableTimed, ChannelTypePartialReliableTimedUnordered:
		return o.ReliabilityParameter, true
	default:
		return 0, false
	}
}

// Marshal encodes an Open message for transmission on PPID
// WebRTC-DCEP (spec §4.5).
func (o Open) Marshal() ([]byte, error) {
	if len(o.Label) > 0xFFFF || len(o.Protocol) > 0xFFFF {
		return nil, fmt.Errorf("dcep: label/protocol exceeds 65535 bytes")
	}

	buf := make([]byte, openHeaderLen+len(o.Label)+len(o.Protocol))
	buf[0] = byte(MessageTypeOpen)
	buf[1] = byte(o.ChannelType)
	binary.BigEndian.PutUint16(buf[2:4], o.Priority)
	binary.BigEndian.PutUint32(buf[4:8], o.ReliabilityParameter)
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(o.Label)))
	binary.BigEndian.PutUint16(buf[10:12], uint16(len(o.Protocol)))
	copy(buf[openHeaderLen:], o.Label)
	copy(buf[openHeaderLen+len(o.Label):], o.Protocol)
	return buf, nil
}

// UnmarshalOpen decodes a DATA_CHANNEL_OPEN message body (spec §4.5).
// buf must include the leading message-type octet.
func UnmarshalOpen(buf []byte) (Open, error) {
	var o Open
	if len(buf) < openHeaderLen {
		return o, fmt.Errorf("dcep: open message too short: %d bytes", len(buf))
	}
	if MessageType(buf[0]) != MessageTypeOpen {
		return o, fmt.Errorf("dcep: not an open message: type %#x", buf[0])
	}

	o.ChannelType = ChannelType(buf[1])
	o.Priority = binary.BigEndian.Uint16(buf[2:4])
	o.ReliabilityParameter = binary.BigEndian.Uint32(buf[4:8])
	labelLen := int(binary.BigEndian.Uint16(buf[8:10]))
	protoLen := int(binary.BigEndian.Uint16(buf[10:12]))

	want := openHeaderLen + labelLen + protoLen
	if len(buf) < want {
		return o, fmt.Errorf("dcep: open message truncated: have %d want %d", len(buf), want)
	}

	o.Label = string(buf[openHeaderLen : openHeaderLen+labelLen])
	o.Protocol = string(buf[openHeaderLen+labelLen : want])
	return o, nil
}

// MarshalAck encodes a DATA_CHANNEL_ACK message (spec §4.5: sent by the
// stream opener's peer once the open has been processed).
func MarshalAck() []byte {
	return []byte{byte(MessageTypeAck)}
}

// IsAck reports whether buf is a DATA_CHANNEL_ACK message.
func IsAck(buf []byte) bool {
	return len(buf) == 1 && MessageType(buf[0]) == MessageTypeAck
}

// StreamIdentifier allocates SCTP stream identifiers following the
// even/odd parity rule of spec §4.5/§6: the DTLS client uses even
// identifiers, the DTLS server uses odd ones, so the two sides never
// collide without coordination.
type StreamIdentifier struct {
	next   uint16
	client bool
}

// NewStreamIdentifier constructs an allocator for one side of the
// association. client selects the even-numbered half of the space.
func NewStreamIdentifier(client bool) *StreamIdentifier {
	s := &StreamIdentifier{client: client}
	if !client {
		s.next = 1
	}
	return s
}

// Next returns the next available stream identifier for a
// locally-initiated data channel and advances the allocator.
func (s *StreamIdentifier) Next() uint16 {
	id := s.next
	s.next += 2
	return id
}

// Copyright (c) 2019 Lanikai Labs. All rights reserved.

package rtcpeer

import (
	"fmt"
	"sync"

	"github.com/lanikai/rtcpeer/internal/registry"
)

// DataChannelState mirrors registry.State under the public name used by
// spec §3's DataChannel data model ("ready-state").
type DataChannelState = registry.State

const (
	DataChannelConnecting = registry.StateConnecting
	DataChannelOpen       = registry.StateOpen
	DataChannelClosing    = registry.StateClosing
	DataChannelClosed     = registry.StateClosed
)

// DataChannelInit configures a DataChannel at creation time (spec §6
// createDataChannel). At most one of MaxPacketLifeTime and
// MaxRetransmits may be set (spec §3).
type DataChannelInit struct {
	Ordered           bool
	MaxPacketLifeTime *uint32
	MaxRetransmits    *uint32
	Protocol          string
	Negotiated        bool
	ID                *uint16
}

// DataChannel is the public handle for a single application data channel
// (spec §3 "DataChannel").
type DataChannel struct {
	pc    *PeerConnection
	entry *registry.Entry

	mu        sync.Mutex
	onOpen    func()
	onMessage func([]byte)
	onClose   func()
	onError   func(error)
}

// Label returns the channel's label, chosen at creation.
func (c *DataChannel) Label() string { return c.entry.Label }

// Protocol returns the subprotocol negotiated for the channel.
func (c *DataChannel) Protocol() string { return c.entry.Protocol }

// Ordered reports whether the channel preserves message order.
func (c *DataChannel) Ordered() bool { return c.entry.Ordered }

// ReadyState reports the channel's current lifecycle state.
func (c *DataChannel) ReadyState() DataChannelState {
	if e, ok := c.pc.registry.Get(c.entry.StreamID); ok {
		return e.State
	}
	return DataChannelClosed
}

// OnOpen registers a callback fired once the channel transitions to
// open (spec §4.5's DCEP-ACK handling).
func (c *DataChannel) OnOpen(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onOpen = f
}

// OnMessage registers a callback fired for every inbound payload chunk.
func (c *DataChannel) OnMessage(f func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = f
}

// OnClose registers a callback fired once the channel is fully closed.
func (c *DataChannel) OnClose(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = f
}

// OnError registers a callback fired on send/transport errors specific
// to this channel.
func (c *DataChannel) OnError(f func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = f
}

// Send transmits data as a binary message. Fails synchronously if data
// exceeds the negotiated maximum message size (spec §4.4, §8) or if the
// channel is not open.
func (c *DataChannel) Send(data []byte) error {
	return c.pc.sendDataChannelMessage(c, data, false)
}

// SendText transmits s as a UTF-8 string message, including the
// empty-string special case (PPID=56, single 0x00 byte; spec §4.5, §8).
func (c *DataChannel) SendText(s string) error {
	return c.pc.sendDataChannelMessage(c, []byte(s), true)
}

// Close tears down the channel. Subsequent sends fail (spec §4.5 "Close").
func (c *DataChannel) Close() error {
	return c.pc.closeDataChannel(c)
}

func (c *DataChannel) fireOpen() {
	c.mu.Lock()
	f := c.onOpen
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

func (c *DataChannel) fireMessage(b []byte) {
	c.mu.Lock()
	f := c.onMessage
	c.mu.Unlock()
	if f != nil {
		f(b)
	}
}

func (c *DataChannel) fireClose() {
	c.mu.Lock()
	f := c.onClose
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

func (c *DataChannel) fireError(err error) {
	c.mu.Lock()
	f := c.onError
	c.mu.Unlock()
	if f != nil {
		f(err)
	}
}

func validateDataChannelInit(init DataChannelInit) error {
	if init.MaxPacketLifeTime != nil && init.MaxRetransmits != nil {
		return errBothReliabilityParams
	}
	return nil
}

func (init DataChannelInit) channelTypeLabel() string {
	switch {
	case init.MaxRetransmits != nil:
		return fmt.Sprintf("partial-reliable-rexmit(%d)", *init.MaxRetransmits)
	case init.MaxPacketLifeTime != nil:
		return fmt.Sprintf("partial-reliable-timed(%dms)", *init.MaxPacketLifeTime)
	default:
		return "reliable"
	}
}

// Copyright 2019 Lanikai Labs. All rights reserved.

package rtcpeer

import "testing"

func TestValidateDataChannelInit(t *testing.T) {
	maxRetransmits := uint32(3)
	maxPacketLifeTime := uint32(500)

	if err := validateDataChannelInit(DataChannelInit{}); err != nil {
		t.Errorf("empty init should be valid, got %v", err)
	}
	if err := validateDataChannelInit(DataChannelInit{MaxRetransmits: &maxRetransmits}); err != nil {
		t.Errorf("maxRetransmits alone should be valid, got %v", err)
	}
	if err := validateDataChannelInit(DataChannelInit{MaxPacketLifeTime: &maxPacketLifeTime}); err != nil {
		t.Errorf("maxPacketLifeTime alone should be valid, got %v", err)
	}

	err := validateDataChannelInit(DataChannelInit{
		MaxRetransmits:    &maxRetransmits,
		MaxPacketLifeTime: &maxPacketLifeTime,
	})
	if err != errBothReliabilityParams {
		t.Errorf("both reliability params set: got %v, want errBothReliabilityParams", err)
	}
}

func TestChannelTypeLabel(t *testing.T) {
	maxRetransmits := uint32(3)
	maxPacketLifeTime := uint32(500)

	cases := []struct {
		name string
		init DataChannelInit
		want string
	}{
		{"reliable", DataChannelInit{}, "reliable"},
		{"rexmit", DataChannelInit{MaxRetransmits: &maxRetransmits}, "partial-reliable-rexmit(3)"},
		{"timed", DataChannelInit{MaxPacketLifeTime: &maxPacketLifeTime}, "partial-reliable-timed(500ms)"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.init.channelTypeLabel(); got != c.want {
				t.Errorf("channelTypeLabel() = %q, want %q", got, c.want)
			}
		})
	}
}

package dcep

import "testing"

func TestOpenRoundTrip(t *testing.T) {
	cases := []Open{
		{ChannelType: ChannelTypeReliable, Priority: 0, Label: "chat", Protocol: ""},
		{ChannelType: ChannelTypeReliableUnordered, Priority: 128, Label: "", Protocol: "file-transfer"},
		{ChannelType: ChannelTypePartialReliableRexmit, ReliabilityParameter: 5, Label: "lossy"},
		{ChannelType: ChannelTypePartialReliableTimed, ReliabilityParameter: 3000, Label: "timed"},
	}

	for _, want := range cases {
		buf, err := want.Marshal()
		if err != nil {
			t.Fatalf("Marshal(%+v): %v", want, err)
		}
		got, err := UnmarshalOpen(buf)
		if err != nil {
			t.Fatalf("UnmarshalOpen: %v", err)
		}
		if got != want {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestOpenOrdered(t *testing.T) {
	tests := []struct {
		ct   ChannelType
		want bool
	}{
		{ChannelTypeReliable, true},
		{ChannelTypeReliableUnordered, false},
		{ChannelTypePartialReliableRexmit, true},
		{ChannelTypePartialReliableRexmitUnordered, false},
		{ChannelTypePartialReliableTimed, true},
		{ChannelTypePartialReliableTimedUnordered, false},
	}
	for _, tt := range tests {
		o := Open{ChannelType: tt.ct}
		if got := o.Ordered(); got != tt.want {
			t.Errorf("ChannelType(%#x).Ordered() = %v, want %v", tt.ct, got, tt.want)
		}
	}
}

func TestOpenReliabilityParameters(t *testing.T) {
	o := Open{ChannelType: ChannelTypePartialReliableRexmit, ReliabilityParameter: 7}
	if max, ok := o.MaxRetransmits(); !ok || max != 7 {
		t.Errorf("MaxRetransmits() = (%d, %v), want (7, true)", max, ok)
	}
	if _, ok := o.MaxPacketLifeTime(); ok {
		t.Errorf("MaxPacketLifeTime() ok = true for a rexmit channel")
	}

	o = Open{ChannelType: ChannelTypePartialReliableTimed, ReliabilityParameter: 1500}
	if ms, ok := o.MaxPacketLifeTime(); !ok || ms != 1500 {
		t.Errorf("MaxPacketLifeTime() = (%d, %v), want (1500, true)", ms, ok)
	}
	if _, ok := o.MaxRetransmits(); ok {
		t.Errorf("MaxRetransmits() ok = true for a timed channel")
	}
}

func TestUnmarshalOpenErrors(t *testing.T) {
	if _, err := UnmarshalOpen(nil); err == nil {
		t.Error("expected error decoding empty buffer")
	}
	if _, err := UnmarshalOpen([]byte{byte(MessageTypeAck), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}); err == nil {
		t.Error("expected error decoding non-open message type")
	}

	truncated := []byte{byte(MessageTypeOpen), 0x00, 0, 0, 0, 0, 0, 0, 0, 4, 0, 0, 'h', 'i'}
	if _, err := UnmarshalOpen(truncated); err == nil {
		t.Error("expected error decoding truncated label")
	}
}

func TestAck(t *testing.T) {
	buf := MarshalAck()
	if !IsAck(buf) {
		t.Errorf("IsAck(MarshalAck()) = false")
	}
	if IsAck([]byte{byte(MessageTypeOpen)}) {
		t.Errorf("IsAck(open) = true")
	}
}

func TestStreamIdentifierParity(t *testing.T) {
	client := NewStreamIdentifier(true)
	for i, want := range []uint16{0, 2, 4, 6} {
		if got := client.Next(); got != want {
			t.Errorf("client.Next() #%d = %d, want %d", i, got, want)
		}
	}

	server := NewStreamIdentifier(false)
	for i, want := range []uint16{1, 3, 5, 7} {
		if got := server.Next(); got != want {
			t.Errorf("server.Next() #%d = %d, want %d", i, got, want)
		}
	}
}

package demux

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
		want PacketType
	}{
		{"empty", nil, Unknown},
		{"stun-request", []byte{0x00, 0x01, 0x00, 0x00}, STUN},
		{"stun-indication", []byte{0x01, 0x01, 0x00, 0x00}, STUN},
		{"dtls-handshake", []byte{22, 0xfe, 0xfd, 0, 0}, DTLS},
		{"dtls-upper-bound", append([]byte{63}, make([]byte, 3)...), DTLS},
		{"rtp-too-short", []byte{128, 0, 0}, Unknown},
		{"rtp", append([]byte{128}, make([]byte, 20)...), RTP},
		{"rtcp-sender-report", append([]byte{0x80, 200}, make([]byte, 20)...), RTP},
		{"garbage", []byte{255, 1, 2}, Unknown},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Classify(c.buf); got != c.want {
				t.Errorf("Classify(%v) = %v, want %v", c.buf, got, c.want)
			}
		})
	}
}

func TestPacketTypeString(t *testing.T) {
	cases := map[PacketType]string{
		STUN:    "stun",
		DTLS:    "dtls",
		RTP:     "rtp",
		Unknown: "unknown",
	}
	for pt, want := range cases {
		if got := pt.String(); got != want {
			t.Errorf("PacketType(%d).String() = %q, want %q", pt, got, want)
		}
	}
}

package sdp

import "testing"

func TestParseOrigin(t *testing.T) {
	o, err := parseOrigin("- 1234567890 2 IN IP4 0.0.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if o.Username != "-" {
		t.Errorf("Username = %q, want %q", o.Username, "-")
	}
	if o.SessionId != "1234567890" {
		t.Errorf("SessionId = %q, want %q", o.SessionId, "1234567890")
	}
	if o.SessionVersion != 2 {
		t.Errorf("SessionVersion = %d, want 2", o.SessionVersion)
	}
	if o.NetworkType != "IN" || o.AddressType != "IP4" || o.Address != "0.0.0.0" {
		t.Errorf("unexpected network/address fields: %+v", o)
	}
}

func TestWriteOrigin(t *testing.T) {
	o, _ := parseOrigin("- 1234567890 2 IN IP4 0.0.0.0")
	if got, want := o.String(), "- 1234567890 2 IN IP4 0.0.0.0"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

// bundledOfferSDP is a minimal offer with one audio section and one
// application (data channel) section under a single BUNDLE group, shaped
// the way this module's own negotiator builds offers.
const bundledOfferSDP = `v=0
o=- 1234567890 2 IN IP4 0.0.0.0
s=-
t=0 0
a=group:BUNDLE audio0 data0
m=audio 9 UDP/TLS/RTP/SAVPF 111
c=IN IP4 0.0.0.0
a=ice-ufrag:f1a2
a=ice-pwd:5f6e7d8c9b0a1f2e3d4c5b6a7f8e9d0c
a=fingerprint:sha-256 AB:CD:EF:01:23:45:67:89:AB:CD:EF:01:23:45:67:89:AB:CD:EF:01:23:45:67:89:AB:CD:EF:01:23:45:67:89
a=setup:actpass
a=mid:audio0
a=sendrecv
a=rtcp-mux
a=rtpmap:111 opus/48000/2
m=application 9 UDP/DTLS/SCTP webrtc-datachannel
c=IN IP4 0.0.0.0
a=ice-ufrag:f1a2
a=ice-pwd:5f6e7d8c9b0a1f2e3d4c5b6a7f8e9d0c
a=fingerprint:sha-256 AB:CD:EF:01:23:45:67:89:AB:CD:EF:01:23:45:67:89:AB:CD:EF:01:23:45:67:89:AB:CD:EF:01:23:45:67:89
a=setup:actpass
a=mid:data0
a=sctp-port:5000
a=max-message-size:262144
`

func TestParseSessionBundleAndApplicationSection(t *testing.T) {
	s, err := ParseSession(bundledOfferSDP)
	if err != nil {
		t.Fatal(err)
	}

	if got := s.GetAttr("group"); got != "BUNDLE audio0 data0" {
		t.Errorf(`session GetAttr("group") = %q, want "BUNDLE audio0 data0"`, got)
	}

	if len(s.Media) != 2 {
		t.Fatalf("len(s.Media) = %d, want 2", len(s.Media))
	}

	audio, app := s.Media[0], s.Media[1]

	if audio.Type != "audio" || audio.Proto != "UDP/TLS/RTP/SAVPF" {
		t.Errorf("audio section: type=%q proto=%q", audio.Type, audio.Proto)
	}
	if got := audio.GetAttr("mid"); got != "audio0" {
		t.Errorf(`audio GetAttr("mid") = %q, want "audio0"`, got)
	}
	foundRtcpMux := false
	for _, a := range audio.Attributes {
		if a.Key == "rtcp-mux" {
			foundRtcpMux = true
		}
	}
	if !foundRtcpMux {
		t.Errorf("audio section missing a=rtcp-mux")
	}

	if app.Type != "application" || app.Proto != "UDP/DTLS/SCTP" {
		t.Errorf("application section: type=%q proto=%q, want application/UDP/DTLS/SCTP", app.Type, app.Proto)
	}
	if len(app.Format) != 1 || app.Format[0] != "webrtc-datachannel" {
		t.Errorf("application Format = %v, want [webrtc-datachannel]", app.Format)
	}
	if got := app.GetAttr("mid"); got != "data0" {
		t.Errorf(`application GetAttr("mid") = %q, want "data0"`, got)
	}
	if got := app.GetAttr("sctp-port"); got != "5000" {
		t.Errorf(`application GetAttr("sctp-port") = %q, want "5000"`, got)
	}
	if got := app.GetAttr("max-message-size"); got != "262144" {
		t.Errorf(`application GetAttr("max-message-size") = %q, want "262144"`, got)
	}

	for _, m := range []*Media{&audio, &app} {
		if got := m.GetAttr("setup"); got != "actpass" {
			t.Errorf("%s GetAttr(setup) = %q, want actpass", m.Type, got)
		}
		if got := m.GetAttr("fingerprint"); got == "" {
			t.Errorf("%s GetAttr(fingerprint) is empty", m.Type)
		}
	}
}

func TestMediaAttrsReturnsAllOccurrences(t *testing.T) {
	m := Media{
		Attributes: []Attribute{
			{Key: "candidate", Value: "1 1 udp 2130706431 10.0.0.1 5000 typ host"},
			{Key: "candidate", Value: "2 1 udp 1694498815 203.0.113.1 5000 typ srflx"},
			{Key: "mid", Value: "audio0"},
		},
	}

	candidates := m.Attrs("candidate")
	if len(candidates) != 2 {
		t.Fatalf("len(candidates) = %d, want 2", len(candidates))
	}
	if candidates[0] == candidates[1] {
		t.Errorf("expected two distinct candidate lines, got duplicates")
	}
}

func TestWriteSessionRoundTripsApplicationSection(t *testing.T) {
	s, err := ParseSession(bundledOfferSDP)
	if err != nil {
		t.Fatal(err)
	}

	out, err := ParseSession(s.String())
	if err != nil {
		t.Fatalf("re-parsing written session: %v", err)
	}
	if len(out.Media) != 2 {
		t.Fatalf("round-tripped Media count = %d, want 2", len(out.Media))
	}
	if out.Media[1].GetAttr("sctp-port") != "5000" {
		t.Errorf("round-tripped sctp-port = %q, want 5000", out.Media[1].GetAttr("sctp-port"))
	}
}

func TestWriteSession(t *testing.T) {
	s := Session{
		Version: 0,
		Origin: Origin{
			Username:       "-",
			SessionId:      "123",
			SessionVersion: 9,
			NetworkType:    "IN",
			AddressType:    "IP4",
			Address:        "0.0.0.0",
		},
		Name: "-",
	}

	want := "v=0\r\no=- 123 9 IN IP4 0.0.0.0\r\ns=-\r\n"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestNewSessionID(t *testing.T) {
	id, err := NewSessionID()
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Errorf("NewSessionID() = 0, want a nonzero sess-id")
	}
}

// Copyright 2019 Lanikai Labs. All rights reserved.

package rtcpeer

import "testing"

func TestNextConnectionStateIceProgression(t *testing.T) {
	cases := []struct {
		name     string
		current  ConnectionState
		iceState ICEConnectionState
		want     ConnectionState
	}{
		{"new stays new on checking", ConnectionStateNew, ICEConnectionStateChecking, ConnectionStateNew},
		{"new to connecting on connected", ConnectionStateNew, ICEConnectionStateConnected, ConnectionStateConnecting},
		{"new to connecting on completed", ConnectionStateNew, ICEConnectionStateCompleted, ConnectionStateConnecting},
		{"connected to disconnected", ConnectionStateConnected, ICEConnectionStateDisconnected, ConnectionStateDisconnected},
		{"disconnected recovers to connected", ConnectionStateDisconnected, ICEConnectionStateConnected, ConnectionStateConnected},
		{"connecting to failed", ConnectionStateConnecting, ICEConnectionStateFailed, ConnectionStateFailed},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := nextConnectionState(c.current, "ice", c.iceState)
			if got != c.want {
				t.Errorf("nextConnectionState(%v, ice, %v) = %v, want %v", c.current, c.iceState, got, c.want)
			}
		})
	}
}

func TestNextConnectionStateDtlsAndClose(t *testing.T) {
	if got := nextConnectionState(ConnectionStateConnecting, "dtls-complete", ICEConnectionStateConnected); got != ConnectionStateConnected {
		t.Errorf("dtls-complete from connecting = %v, want connected", got)
	}
	if got := nextConnectionState(ConnectionStateConnecting, "dtls-failure", ICEConnectionStateConnected); got != ConnectionStateFailed {
		t.Errorf("dtls-failure from connecting = %v, want failed", got)
	}
	if got := nextConnectionState(ConnectionStateConnected, "fingerprint-mismatch", ICEConnectionStateConnected); got != ConnectionStateFailed {
		t.Errorf("fingerprint-mismatch from connected = %v, want failed", got)
	}
	if got := nextConnectionState(ConnectionStateConnected, "close", ICEConnectionStateConnected); got != ConnectionStateClosed {
		t.Errorf("close = %v, want closed", got)
	}
}

func TestNextConnectionStateClosedIsAbsorbing(t *testing.T) {
	if got := nextConnectionState(ConnectionStateClosed, "ice", ICEConnectionStateConnected); got != ConnectionStateClosed {
		t.Errorf("closed + ice event = %v, want closed", got)
	}
	if got := nextConnectionState(ConnectionStateClosed, "dtls-complete", ICEConnectionStateNew); got != ConnectionStateClosed {
		t.Errorf("closed + dtls-complete = %v, want closed", got)
	}
}

func TestSignalingStateString(t *testing.T) {
	cases := map[SignalingState]string{
		SignalingStateStable:          "stable",
		SignalingStateHaveLocalOffer:  "have-local-offer",
		SignalingStateHaveRemoteOffer: "have-remote-offer",
		SignalingStateClosed:          "closed",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("SignalingState(%d).String() = %q, want %q", s, got, want)
		}
	}
}

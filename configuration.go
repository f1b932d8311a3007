// Copyright 2019 Lanikai Labs. All rights reserved.

package rtcpeer

import (
	"time"

	"github.com/lanikai/rtcpeer/internal/logging"
)

// ICETransportPolicy restricts which candidate types the ICE Transport
// gathers and nominates (spec §4.2 "Policy").
type ICETransportPolicy int

const (
	ICETransportPolicyAll ICETransportPolicy = iota
	ICETransportPolicyRelay
)

// ICEServer describes a STUN/TURN server, translated into a pion/ice URL
// by the ICE transport wrapper. Named and shaped the way 1ureka-roj1 and
// bamgate-bamgate configure pion/webrtc's own ICEServer list.
type ICEServer struct {
	URLs       []string
	Username   string
	Credential string
}

// Configuration is supplied to New and is immutable for the
// PeerConnection's lifetime (spec §3).
type Configuration struct {
	ICEServers         []ICEServer
	ICETransportPolicy ICETransportPolicy

	// Certificates, if non-empty, are used instead of generating a fresh
	// certificate per PeerConnection (spec §3 "Certificate").
	Certificates []*Certificate

	// FeedbackProfile selects UDP/TLS/RTP/SAVPF over UDP/TLS/RTP/SAVP in
	// offers this peer creates (spec §4.6 step 3).
	FeedbackProfile bool

	// ICEGatherTimeout bounds how long createOffer/createAnswer wait for
	// ICE gathering to start (or, if requested, complete) before giving up
	// and building the SDP with whatever candidates are available
	// (spec §5 "Suspension points").
	ICEGatherTimeout time.Duration

	// SCTPAssociateTimeout bounds SCTP association bring-up (spec §4.4).
	SCTPAssociateTimeout time.Duration

	// Logger is the injected logging sink (spec §9 "Global logger"). If
	// nil, a default logger writing to stderr is used.
	Logger *logging.Logger
}

const (
	defaultICEGatherTimeout     = 1 * time.Second
	defaultSCTPAssociateTimeout = 2 * time.Second
	defaultMaxMessageSize       = 262144
	defaultSCTPPort             = 5000
)

// withDefaults returns a copy of c with zero-valued fields replaced by
// their documented defaults.
func (c Configuration) withDefaults() Configuration {
	if c.ICEGatherTimeout == 0 {
		c.ICEGatherTimeout = defaultICEGatherTimeout
	}
	if c.SCTPAssociateTimeout == 0 {
		c.SCTPAssociateTimeout = defaultSCTPAssociateTimeout
	}
	if c.Logger == nil {
		c.Logger = logging.DefaultLogger.WithTag("rtcpeer")
	}
	return c
}

func (c Configuration) validate() error {
	if c.ICETransportPolicy == ICETransportPolicyRelay && len(c.ICEServers) == 0 {
		return errNoICEServersForRelay
	}
	return nil
}

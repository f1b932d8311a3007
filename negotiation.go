// Copyright (c) 2019 Lanikai Labs. All rights reserved.

package rtcpeer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lanikai/rtcpeer/internal/sdp"
)

const (
	sdpUsername = "rtcpeer"

	transportProfileSAVP  = "UDP/TLS/RTP/SAVP"
	transportProfileSAVPF = "UDP/TLS/RTP/SAVPF"
	dataChannelTransport  = "UDP/DTLS/SCTP"
	dataChannelTransportLegacy = "DTLS/SCTP"
)

// SessionDescription is the tagged-union value exchanged by
// createOffer/createAnswer/setLocalDescription/setRemoteDescription
// (spec §3, §6).
type SessionDescription struct {
	Type SessionDescriptionType
	SDP  string
}

// CreateOfferOptions configures createOffer (spec §6).
type CreateOfferOptions struct {
	ExcludeIceCandidates        bool
	WaitForIceGatheringComplete bool
}

// CreateAnswerOptions configures createAnswer (spec §6). Currently
// carries no fields distinct from CreateOfferOptions's gathering knobs,
// kept as a separate type to match the public API shape of §6.
type CreateAnswerOptions struct {
	ExcludeIceCandidates bool
}

// IceCandidateInit is the input to addIceCandidate (spec §6). An empty
// Candidate denotes end-of-candidates for Mid.
type IceCandidateInit struct {
	Candidate string
	Mid       string
}

// waitForIceGathering blocks until gathering has at least started (or,
// if complete is true, finished), bounded by the configured timeout
// (spec §5 "Suspension points", §4.6 step 1).
func (pc *PeerConnection) waitForIceGathering(complete bool) {
	deadline := time.Now().Add(pc.config.ICEGatherTimeout)
	for time.Now().Before(deadline) {
		pc.mu.Lock()
		state := pc.iceGatheringState
		pc.mu.Unlock()

		if complete {
			if state == ICEGatheringStateComplete {
				return
			}
		} else if state != ICEGatheringStateNew {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// CreateOffer builds a local SDP offer (spec §4.6 "createOffer").
func (pc *PeerConnection) CreateOffer(opts CreateOfferOptions) (SessionDescription, error) {
	pc.waitForIceGathering(opts.WaitForIceGatheringComplete)

	pc.mu.Lock()
	defer pc.mu.Unlock()

	ufrag, pwd, err := pc.ice.LocalCredentials()
	if err != nil {
		return SessionDescription{}, err
	}

	session := pc.buildBaseSession()

	var mids []string
	for _, t := range pc.localTracks {
		mids = append(mids, t.mid)
		session.Media = append(session.Media, pc.buildMediaSection(t, ufrag, pwd, len(session.Media) == 0, !opts.ExcludeIceCandidates))
	}

	needsDataChannel := len(pc.dataChannels) > 0 || pc.registry.HasPending() || (pc.remoteDescription != nil && hasApplicationSection(pc.remoteDescription))
	if needsDataChannel {
		mid := fmt.Sprintf("%d", pc.nextMid)
		pc.nextMid++
		mids = append(mids, mid)
		session.Media = append(session.Media, pc.buildDataChannelSection(mid, ufrag, pwd, len(session.Media) == 0, !opts.ExcludeIceCandidates))
	}

	session.Attributes = append(session.Attributes, sdp.Attribute{Key: "group", Value: "BUNDLE " + strings.Join(mids, " ")})

	pc.localDescription = &session
	return SessionDescription{Type: SDPTypeOffer, SDP: session.String()}, nil
}

// CreateAnswer builds a local SDP answer, requiring a remote description
// to already be set (spec §4.6 "createAnswer").
func (pc *PeerConnection) CreateAnswer(opts CreateAnswerOptions) (SessionDescription, error) {
	pc.mu.Lock()
	remote := pc.remoteDescription
	pc.mu.Unlock()
	if remote == nil {
		return SessionDescription{}, errNoRemoteDescription
	}

	pc.waitForIceGathering(false)

	pc.mu.Lock()
	defer pc.mu.Unlock()

	ufrag, pwd, err := pc.ice.LocalCredentials()
	if err != nil {
		return SessionDescription{}, err
	}

	session := pc.buildBaseSession()
	var mids []string

	for i, remoteMedia := range remote.Media {
		mid := remoteMedia.GetAttr("mid")
		mids = append(mids, mid)

		if remoteMedia.Type == "application" {
			session.Media = append(session.Media, pc.buildDataChannelSection(mid, ufrag, pwd, i == 0, !opts.ExcludeIceCandidates))
			continue
		}

		t := pc.findOrCreateTrackForMid(mid, remoteMedia.Type)
		media := pc.buildMediaSection(t, ufrag, pwd, i == 0, !opts.ExcludeIceCandidates)
		media.Format = intersectFormats(media.Format, remoteMedia.Format)
		session.Media = append(session.Media, media)
	}

	session.Attributes = append(session.Attributes, sdp.Attribute{Key: "group", Value: "BUNDLE " + strings.Join(mids, " ")})

	pc.localDescription = &session
	return SessionDescription{Type: SDPTypeAnswer, SDP: session.String()}, nil
}

func intersectFormats(local, remote []string) []string {
	remoteSet := make(map[string]bool, len(remote))
	for _, f := range remote {
		remoteSet[f] = true
	}
	var out []string
	for _, f := range local {
		if remoteSet[f] {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return remote
	}
	return out
}

func hasApplicationSection(s *sdp.Session) bool {
	for _, m := range s.Media {
		if m.Type == "application" {
			return true
		}
	}
	return false
}

func (pc *PeerConnection) findOrCreateTrackForMid(mid, kind string) *trackEntry {
	for _, t := range pc.localTracks {
		if t.mid == mid {
			return t
		}
	}
	t := &trackEntry{id: mid, kind: kind, mid: mid, direction: DirectionSendRecv}
	pc.localTracks = append(pc.localTracks, t)
	return t
}

func (pc *PeerConnection) buildBaseSession() sdp.Session {
	return sdp.Session{
		Version: 0,
		Origin: sdp.Origin{
			Username:       sdpUsername,
			SessionId:      strconv.FormatUint(pc.sessionID, 10),
			SessionVersion: 2,
			NetworkType:    "IN",
			AddressType:    "IP4",
			Address:        "127.0.0.1",
		},
		Name: "-",
		Time: []sdp.Time{{}},
	}
}

func (pc *PeerConnection) transportProfile() string {
	if pc.config.FeedbackProfile {
		return transportProfileSAVPF
	}
	return transportProfileSAVP
}

func (pc *PeerConnection) setupAttribute() string {
	switch pc.iceRole {
	case ICERoleActive:
		return "active"
	case ICERolePassive:
		return "passive"
	default:
		return "actpass"
	}
}

func (pc *PeerConnection) buildMediaSection(t *trackEntry, ufrag, pwd string, attachCandidates, includeCandidates bool) sdp.Media {
	m := sdp.Media{
		Type:   t.kind,
		Port:   9,
		Proto:  pc.transportProfile(),
		Format: []string{"0"},
		Connection: &sdp.Connection{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     "0.0.0.0",
		},
		Attributes: []sdp.Attribute{
			{Key: "mid", Value: t.mid},
			{Key: "rtcp", Value: "9 IN IP4 0.0.0.0"},
			{Key: "ice-ufrag", Value: ufrag},
			{Key: "ice-pwd", Value: pwd},
			{Key: "ice-options", Value: "ice2,trickle"},
			{Key: "fingerprint", Value: "sha-256 " + strings.ToUpper(pc.certificate.Fingerprint)},
			{Key: "setup", Value: pc.setupAttribute()},
			{Key: t.direction.String(), Value: ""},
			{Key: "rtcp-mux", Value: ""},
		},
	}
	if attachCandidates && includeCandidates {
		pc.attachCandidates(&m)
	}
	return m
}

func (pc *PeerConnection) buildDataChannelSection(mid, ufrag, pwd string, attachCandidates, includeCandidates bool) sdp.Media {
	maxMessageSize := defaultMaxMessageSize
	if pc.sctp != nil {
		maxMessageSize = pc.sctp.MaxMessageSize()
	}

	m := sdp.Media{
		Type:   "application",
		Port:   9,
		Proto:  dataChannelTransport,
		Format: []string{"webrtc-datachannel"},
		Connection: &sdp.Connection{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     "0.0.0.0",
		},
		Attributes: []sdp.Attribute{
			{Key: "mid", Value: mid},
			{Key: "ice-ufrag", Value: ufrag},
			{Key: "ice-pwd", Value: pwd},
			{Key: "ice-options", Value: "ice2,trickle"},
			{Key: "fingerprint", Value: "sha-256 " + strings.ToUpper(pc.certificate.Fingerprint)},
			{Key: "setup", Value: pc.setupAttribute()},
			{Key: "sctp-port", Value: strconv.Itoa(int(pc.sctpPort))},
			{Key: "max-message-size", Value: strconv.Itoa(maxMessageSize)},
		},
	}
	if attachCandidates && includeCandidates {
		pc.attachCandidates(&m)
	}
	return m
}

// attachCandidates attaches every currently-gathered local candidate to
// m (spec §4.6 step 3: "attached to the first media section only").
func (pc *PeerConnection) attachCandidates(m *sdp.Media) {
	for _, c := range pc.localCandidates {
		m.Attributes = append(m.Attributes, sdp.Attribute{Key: "candidate", Value: c.String()})
	}
}

// SetLocalDescription installs desc as the local description and
// advances signaling-state per spec §4.6.
func (pc *PeerConnection) SetLocalDescription(desc SessionDescription) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	switch {
	case pc.signalingState == SignalingStateStable && desc.Type == SDPTypeOffer:
		pc.signalingState = SignalingStateHaveLocalOffer
		pc.iceRole = ICERoleActpass
		pc.ice.SetIsControlling(true)
	case pc.signalingState == SignalingStateHaveRemoteOffer && desc.Type == SDPTypeAnswer:
		pc.signalingState = SignalingStateStable
	default:
		return fmt.Errorf("rtcpeer: setLocalDescription: invalid in signaling-state %s", pc.signalingState)
	}

	session, err := sdp.ParseSession(desc.SDP)
	if err != nil {
		return fmt.Errorf("rtcpeer: setLocalDescription: %w", err)
	}
	pc.localDescription = &session
	pc.renegotiationRequired = false

	signalingState := pc.signalingState
	go pc.observers.emit(EventSignalingStateChange, signalingState)
	return nil
}

// SetRemoteDescription parses and installs the remote description,
// folding credentials/fingerprint across media sections and feeding
// candidates into the ICE Transport (spec §4.6 "setRemoteDescription").
func (pc *PeerConnection) SetRemoteDescription(desc SessionDescription) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.signalingState == SignalingStateHaveLocalOffer && desc.Type == SDPTypeOffer {
		return ErrWrongSdpTypeOfferAfterOffer
	}

	session, err := sdp.ParseSession(desc.SDP)
	if err != nil {
		return fmt.Errorf("rtcpeer: setRemoteDescription: %w", err)
	}

	var ufrag, pwd, fingerprint, fingerprintAlg, setup string
	iceLite := false
	for _, m := range session.Media {
		if v := m.GetAttr("ice-ufrag"); v != "" && ufrag == "" {
			ufrag = v
		}
		if v := m.GetAttr("ice-pwd"); v != "" && pwd == "" {
			pwd = v
		}
		if v := m.GetAttr("setup"); v != "" && setup == "" {
			setup = v
		}
		if v := m.GetAttr("fingerprint"); v != "" && fingerprint == "" {
			fields := strings.Fields(v)
			if len(fields) == 2 {
				fingerprintAlg, fingerprint = fields[0], fields[1]
			}
		}
	}
	if ufrag == "" {
		ufrag = session.GetAttr("ice-ufrag")
	}
	if pwd == "" {
		pwd = session.GetAttr("ice-pwd")
	}
	if len(session.Attrs("ice-lite")) > 0 {
		iceLite = true
	}

	if fingerprint == "" {
		return ErrDtlsFingerprintMissing
	}
	if strings.ToLower(fingerprintAlg) != "sha-256" {
		return ErrDtlsFingerprintDigestNotSupported
	}

	for _, m := range session.Media {
		if m.Type != "application" {
			continue
		}
		switch m.Proto {
		case dataChannelTransport, dataChannelTransportLegacy:
		default:
			return ErrDataChannelTransportNotSupported
		}
		if v := m.GetAttr("sctp-port"); v != "" {
			if port, err := strconv.Atoi(v); err == nil {
				pc.sctpPort = uint16(port)
				if pc.sctp != nil {
					pc.sctp.SetRemotePort(pc.sctpPort)
				}
			}
		}
		if v := m.GetAttr("max-message-size"); v != "" {
			if size, err := strconv.Atoi(v); err == nil && pc.sctp != nil {
				pc.sctp.NegotiateMaxMessageSize(size)
			}
		}
	}

	switch {
	case pc.signalingState == SignalingStateStable && desc.Type == SDPTypeOffer:
		pc.signalingState = SignalingStateHaveRemoteOffer
	case pc.signalingState == SignalingStateHaveLocalOffer && desc.Type == SDPTypeAnswer:
		pc.signalingState = SignalingStateStable
	default:
		return fmt.Errorf("rtcpeer: setRemoteDescription: invalid in signaling-state %s", pc.signalingState)
	}

	if iceLite {
		pc.ice.SetIsControlling(true)
	} else if desc.Type == SDPTypeAnswer {
		if setup == "passive" {
			pc.iceRole = ICERoleActive
		} else {
			pc.iceRole = ICERolePassive
		}
	}

	pc.remoteFingerprintAlgorithm = fingerprintAlg
	pc.remoteFingerprint = fingerprint
	pc.remoteDescription = &session
	pc.renegotiationRequired = false

	pc.ice.SetRemoteCredentials(ufrag, pwd)
	for _, m := range session.Media {
		for _, raw := range m.Attrs("candidate") {
			c, err := sdp.ParseCandidate(raw)
			if err != nil {
				pc.log.Warn("parse remote candidate: %v", err)
				continue
			}
			if err := pc.ice.AddRemoteCandidate(c); err != nil {
				pc.log.Warn("add remote candidate: %v", err)
			}
		}
	}

	signalingState := pc.signalingState
	go pc.observers.emit(EventSignalingStateChange, signalingState)

	for _, c := range pc.localCandidates {
		if c.Type != sdp.CandidateTypeHost {
			go pc.observers.emit(EventICECandidate, c)
		}
	}

	return nil
}

// AddIceCandidate incorporates a trickled remote candidate (spec §4.6,
// §6). An empty Candidate signals end-of-candidates for Mid.
func (pc *PeerConnection) AddIceCandidate(init IceCandidateInit) error {
	if init.Candidate == "" {
		return nil
	}
	c, err := sdp.ParseCandidate(strings.TrimPrefix(init.Candidate, "candidate:"))
	if err != nil {
		return fmt.Errorf("rtcpeer: addIceCandidate: %w", err)
	}
	return pc.ice.AddRemoteCandidate(c)
}

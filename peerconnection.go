// Copyright (c) 2019 Lanikai Labs. All rights reserved.

// Package rtcpeer implements the core RTCPeerConnection state machine:
// SDP offer/answer negotiation, ICE connectivity, the DTLS handshake and
// fingerprint verification, SCTP association bring-up, data channel
// lifecycle, and the UDP packet demultiplexer that ties them together
// on a single socket.
package rtcpeer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/ice/v4"
	"github.com/pion/sctp"

	"github.com/lanikai/rtcpeer/internal/dcep"
	"github.com/lanikai/rtcpeer/internal/demux"
	"github.com/lanikai/rtcpeer/internal/dtlsdriver"
	"github.com/lanikai/rtcpeer/internal/icetransport"
	"github.com/lanikai/rtcpeer/internal/logging"
	"github.com/lanikai/rtcpeer/internal/mediabridge"
	"github.com/lanikai/rtcpeer/internal/registry"
	"github.com/lanikai/rtcpeer/internal/sctpdriver"
	"github.com/lanikai/rtcpeer/internal/sdp"
)

// MediaDirection is a media section's offered/answered direction
// (spec §3 "MediaSection").
type MediaDirection int

const (
	DirectionSendRecv MediaDirection = iota
	DirectionSendOnly
	DirectionRecvOnly
	DirectionInactive
)

func (d MediaDirection) String() string {
	switch d {
	case DirectionSendOnly:
		return "sendonly"
	case DirectionRecvOnly:
		return "recvonly"
	case DirectionInactive:
		return "inactive"
	default:
		return "sendrecv"
	}
}

// trackEntry is the bookkeeping kept per local media track (spec §6
// addTrack/removeTrack). Media payloads themselves are out of scope;
// only what negotiation needs is modeled.
type trackEntry struct {
	id        string
	kind      string // "audio" or "video"
	mid       string
	direction MediaDirection
}

// PeerConnection is the root aggregate of spec §3 and the Peer Connection
// Orchestrator of spec §4.7: it owns lifecycle, fans out observer events,
// and coordinates the ICE/DTLS/SCTP collaborators.
type PeerConnection struct {
	mu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	config    Configuration
	sessionID uint64

	log *logging.Logger

	signalingState  SignalingState
	connectionState ConnectionState
	iceRole         ICERole

	localDescription  *sdp.Session
	remoteDescription *sdp.Session

	localTracks []*trackEntry
	nextMid     int

	certificate                *Certificate
	remoteFingerprintAlgorithm string
	remoteFingerprint          string

	ice                *icetransport.Transport
	iceConnectionState ICEConnectionState
	iceGatheringState  ICEGatheringState
	localCandidates    []sdp.Candidate

	mux  *demux.Mux
	dtls *dtlsdriver.Driver

	sctp         *sctpdriver.Driver
	sctpPort     uint16
	streamIDs    *dcep.StreamIdentifier
	registry     *registry.Registry
	dataChannels map[uint16]*DataChannel
	streams      map[uint16]*sctp.Stream

	bridge *mediabridge.Bridge

	observers *observerRegistry
	debounce  *debounceTask

	renegotiationRequired bool
	closed                bool
}

// New constructs a PeerConnection. ICE candidate gathering is kicked off
// immediately in the background (spec §5 "ICE gathering task").
func New(ctx context.Context, config Configuration) (*PeerConnection, error) {
	config = config.withDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	cert := firstOrNil(config.Certificates)
	if cert == nil {
		var err error
		cert, err = GenerateCertificate()
		if err != nil {
			return nil, fmt.Errorf("rtcpeer: generate certificate: %w", err)
		}
	}

	sessionID, err := sdp.NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("rtcpeer: generate session id: %w", err)
	}

	pcCtx, cancel := context.WithCancel(ctx)

	pc := &PeerConnection{
		ctx:          pcCtx,
		cancel:       cancel,
		config:       config,
		sessionID:    sessionID,
		log:          config.Logger,
		certificate:  cert,
		sctpPort:     sctpdriver.DefaultPort,
		registry:     registry.New(),
		dataChannels: make(map[uint16]*DataChannel),
		streams:      make(map[uint16]*sctp.Stream),
		observers:    newObserverRegistry(),
	}
	pc.debounce = newDebounceTask(pc)

	iceServers := make([]icetransport.Server, len(config.ICEServers))
	for i, s := range config.ICEServers {
		iceServers[i] = icetransport.Server{URLs: s.URLs, Username: s.Username, Credential: s.Credential}
	}
	policy := icetransport.PolicyAll
	if config.ICETransportPolicy == ICETransportPolicyRelay {
		policy = icetransport.PolicyRelay
	}

	transport, err := icetransport.New(icetransport.Config{
		Servers: iceServers,
		Policy:  policy,
		Logger:  config.Logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("rtcpeer: create ice transport: %w", err)
	}
	pc.ice = transport
	pc.wireICE()

	if err := pc.ice.StartGathering(); err != nil {
		cancel()
		return nil, fmt.Errorf("rtcpeer: start ice gathering: %w", err)
	}

	return pc, nil
}

func firstOrNil(certs []*Certificate) *Certificate {
	if len(certs) == 0 {
		return nil
	}
	return certs[0]
}

// wireICE installs the ICE Transport's event callbacks (spec §4.2, §4.7).
func (pc *PeerConnection) wireICE() {
	pc.ice.OnGatheringStateChange = func(s icetransport.GatheringState) {
		pc.mu.Lock()
		pc.iceGatheringState = ICEGatheringState(s)
		pc.mu.Unlock()
		pc.observers.emit(EventICEGatheringStateChange, pc.iceGatheringState)
	}

	pc.ice.OnLocalCandidate = func(c ice.Candidate) {
		sdpCandidate, err := sdp.ParseCandidate(c.Marshal())
		if err != nil {
			pc.log.Warn("parse local candidate: %v", err)
			return
		}
		pc.mu.Lock()
		pc.localCandidates = append(pc.localCandidates, sdpCandidate)
		pc.mu.Unlock()
		pc.observers.emit(EventICECandidate, sdpCandidate)
	}

	pc.ice.OnLocalCandidateError = func(err error) {
		pc.observers.emit(EventICECandidateError, err)
	}

	pc.ice.OnStateChange = func(s ice.ConnectionState) {
		iceState := iceConnectionStateFromPion(s)

		pc.mu.Lock()
		pc.iceConnectionState = iceState
		pc.connectionState = nextConnectionState(pc.connectionState, "ice", iceState)
		nominated := iceState == ICEConnectionStateConnected || iceState == ICEConnectionStateCompleted
		alreadyStarted := pc.dtls != nil
		connState := pc.connectionState
		pc.mu.Unlock()

		pc.observers.emit(EventICEConnectionStateChange, iceState)
		pc.observers.emit(EventConnectionStateChange, connState)

		if nominated && !alreadyStarted {
			go pc.startTransports()
		}
	}
}

func iceConnectionStateFromPion(s ice.ConnectionState) ICEConnectionState {
	switch s {
	case ice.ConnectionStateChecking:
		return ICEConnectionStateChecking
	case ice.ConnectionStateConnected:
		return ICEConnectionStateConnected
	case ice.ConnectionStateCompleted:
		return ICEConnectionStateCompleted
	case ice.ConnectionStateDisconnected:
		return ICEConnectionStateDisconnected
	case ice.ConnectionStateFailed:
		return ICEConnectionStateFailed
	case ice.ConnectionStateClosed:
		return ICEConnectionStateClosed
	default:
		return ICEConnectionStateNew
	}
}

// startTransports runs the DTLS handshake followed by SCTP association
// bring-up once ICE has nominated a candidate pair (spec §4.3, §4.4).
// Runs on its own goroutine; all further state mutation it triggers goes
// back through the locked helpers below.
func (pc *PeerConnection) startTransports() {
	conn, err := pc.ice.Connect(pc.ctx)
	if err != nil {
		pc.log.Warn("ice connect: %v", err)
		pc.failConnection("dtls-failure")
		return
	}

	pc.mu.Lock()
	pc.mux = demux.NewMux(conn, 8192)
	dtlsEndpoint := pc.mux.NewEndpoint(demux.DTLS)
	rtpEndpoint := pc.mux.NewEndpoint(demux.RTP)

	role := dtlsdriver.RoleClient
	if pc.iceRole == ICERolePassive {
		role = dtlsdriver.RoleServer
	}

	driver := dtlsdriver.New(dtlsdriver.Config{
		Role:                       role,
		Certificate:                pc.certificate.tlsCertificate(),
		ExtendedMasterSecret:       true,
		Logger:                     pc.log,
		RemoteFingerprintAlgorithm: pc.remoteFingerprintAlgorithm,
		RemoteFingerprint:          pc.remoteFingerprint,
	})
	pc.dtls = driver
	pc.mu.Unlock()

	handshakeCtx, cancel := context.WithTimeout(pc.ctx, dtlsdriver.HandshakeTimeout)
	defer cancel()

	if err := driver.Handshake(handshakeCtx, dtlsEndpoint); err != nil {
		pc.log.Warn("dtls handshake: %v", err)
		if errors.Is(err, dtlsdriver.ErrFingerprintMismatch) {
			pc.failConnection("fingerprint-mismatch")
		} else {
			pc.failConnection("dtls-failure")
		}
		return
	}

	keys, err := driver.ExportSRTPKeys()
	if err != nil {
		pc.log.Warn("export srtp keys: %v", err)
		pc.failConnection("dtls-failure")
		return
	}

	bridge, err := mediabridge.New(mediabridge.Keys{
		LocalKey: keys.LocalKey, LocalSalt: keys.LocalSalt,
		RemoteKey: keys.RemoteKey, RemoteSalt: keys.RemoteSalt,
	})
	if err != nil {
		pc.log.Warn("build media bridge: %v", err)
	} else {
		pc.mu.Lock()
		pc.bridge = bridge
		pc.mu.Unlock()
		go pc.rtpReceiveLoop(rtpEndpoint)
	}

	pc.mu.Lock()
	pc.connectionState = nextConnectionState(pc.connectionState, "dtls-complete", pc.iceConnectionState)
	connState := pc.connectionState
	active := pc.registry.HasPending()
	pc.mu.Unlock()
	pc.observers.emit(EventConnectionStateChange, connState)

	sctpDriver := sctpdriver.New(sctpdriver.Config{
		AssociateTimeout: pc.config.SCTPAssociateTimeout,
		Logger:           pc.log,
	})
	sctpDriver.OnIncomingStream = pc.handleIncomingStream
	pc.mu.Lock()
	pc.sctp = sctpDriver
	pc.streamIDs = dcep.NewStreamIdentifier(role == dtlsdriver.RoleClient)
	sctpDriver.SetRemotePort(pc.sctpPort)
	if pc.remoteDescription != nil {
		for i := range pc.remoteDescription.Media {
			m := &pc.remoteDescription.Media[i]
			var size int
			if m.Type != "application" {
				continue
			}
			if _, err := fmt.Sscanf(m.GetAttr("max-message-size"), "%d", &size); err == nil {
				sctpDriver.NegotiateMaxMessageSize(size)
			}
		}
	}
	pc.mu.Unlock()

	assocCtx, assocCancel := context.WithTimeout(pc.ctx, pc.config.SCTPAssociateTimeout)
	defer assocCancel()
	if err := sctpDriver.Associate(assocCtx, driver.Conn(), active); err != nil {
		pc.log.Warn("sctp associate: %v", err)
		return
	}

	pc.flushPendingDataChannels()
}

func (pc *PeerConnection) rtpReceiveLoop(endpoint *demux.Endpoint) {
	buf := make([]byte, 2048)
	for {
		n, err := endpoint.Read(buf)
		if err != nil {
			return
		}
		pkt := append([]byte{}, buf[:n]...)
		if isRTCPPacket(pkt) {
			if err := pc.bridge.HandleRTCP(pkt); err != nil {
				pc.log.Warn("handle rtcp: %v", err)
			}
		} else if err := pc.bridge.HandleRTP(pkt); err != nil {
			pc.log.Warn("handle rtp: %v", err)
		}
	}
}

// isRTCPPacket distinguishes RTCP from RTP within the SRTP-classified
// range by payload type (RFC 5761 §4: RTCP packet types 192-223).
func isRTCPPacket(buf []byte) bool {
	return len(buf) > 1 && buf[1] >= 192 && buf[1] <= 223
}

func (pc *PeerConnection) failConnection(ev string) {
	pc.mu.Lock()
	pc.connectionState = nextConnectionState(pc.connectionState, ev, pc.iceConnectionState)
	connState := pc.connectionState
	pc.mu.Unlock()
	pc.observers.emit(EventConnectionStateChange, connState)
}

// handleIncomingStream bridges a remotely-opened SCTP stream into the
// Data Channel Registry (spec §4.5 "Inbound dispatch").
func (pc *PeerConnection) handleIncomingStream(stream *sctp.Stream) {
	buf := make([]byte, 64*1024)
	n, err := stream.Read(buf)
	if err != nil {
		pc.log.Warn("read dcep open: %v", err)
		return
	}

	open, err := dcep.UnmarshalOpen(buf[:n])
	if err != nil {
		pc.log.Warn("parse dcep open: %v", err)
		return
	}

	entry := &registry.Entry{
		StreamID: uint16(stream.StreamIdentifier()),
		Label:    open.Label,
		Protocol: open.Protocol,
		Ordered:  open.Ordered(),
	}
	if v, ok := open.MaxRetransmits(); ok {
		entry.MaxRetransmits = &v
	}
	if v, ok := open.MaxPacketLifeTime(); ok {
		entry.MaxPacketLifeTime = &v
	}
	pc.registry.AddActive(entry)

	if _, err := stream.Write(dcep.MarshalAck()); err != nil {
		pc.log.Warn("send dcep ack: %v", err)
	}

	dc := &DataChannel{pc: pc, entry: entry}
	pc.mu.Lock()
	pc.dataChannels[entry.StreamID] = dc
	pc.streams[entry.StreamID] = stream
	pc.mu.Unlock()

	pc.observers.emit(EventDataChannel, dc)
	go pc.dataChannelReadLoop(dc, stream)
}

func (pc *PeerConnection) dataChannelReadLoop(dc *DataChannel, stream *sctp.Stream) {
	buf := make([]byte, 64*1024)
	for {
		n, err := stream.Read(buf)
		if err != nil {
			pc.registry.SetState(dc.entry.StreamID, registry.StateClosed)
			dc.fireClose()
			return
		}
		if dcep.IsAck(buf[:n]) {
			pc.registry.SetState(dc.entry.StreamID, registry.StateOpen)
			dc.fireOpen()
			continue
		}
		dc.fireMessage(append([]byte{}, buf[:n]...))
	}
}

// flushPendingDataChannels activates every channel created before the
// SCTP association was up, opening its stream and sending DCEP-OPEN
// (spec §4.4 "The Orchestrator listens for connected to flush pending
// channels", §4.5).
func (pc *PeerConnection) flushPendingDataChannels() {
	moved := pc.registry.ActivateAll(func() uint16 { return pc.streamIDs.Next() })
	for _, entry := range moved {
		pc.openDataChannelStream(entry)
	}
}

func (pc *PeerConnection) openDataChannelStream(entry *registry.Entry) {
	stream, err := pc.sctp.OpenStream(entry.StreamID, sctp.PayloadTypeWebRTCDCEP)
	if err != nil {
		pc.log.Warn("open stream for %q: %v", entry.Label, err)
		return
	}

	open := dcep.Open{Label: entry.Label, Protocol: entry.Protocol}
	switch {
	case entry.MaxRetransmits != nil:
		open.ChannelType = dcep.ChannelTypePartialReliableRexmit
		open.ReliabilityParameter = *entry.MaxRetransmits
	case entry.MaxPacketLifeTime != nil:
		open.ChannelType = dcep.ChannelTypePartialReliableTimed
		open.ReliabilityParameter = *entry.MaxPacketLifeTime
	default:
		open.ChannelType = dcep.ChannelTypeReliable
	}
	if !entry.Ordered {
		open.ChannelType |= 0x80
	}

	raw, err := open.Marshal()
	if err != nil {
		pc.log.Warn("marshal dcep open: %v", err)
		return
	}
	if _, err := stream.Write(raw); err != nil {
		pc.log.Warn("write dcep open: %v", err)
		return
	}

	pc.mu.Lock()
	dc := pc.dataChannels[entry.StreamID]
	pc.streams[entry.StreamID] = stream
	pc.mu.Unlock()
	if dc != nil {
		go pc.dataChannelReadLoop(dc, stream)
	}
}

// CreateDataChannel registers a new DataChannel. If the SCTP association
// is not yet connected, the channel is queued pending and the call
// returns immediately without blocking (spec §5, §6, §8).
func (pc *PeerConnection) CreateDataChannel(label string, init DataChannelInit) (*DataChannel, error) {
	if err := validateDataChannelInit(init); err != nil {
		return nil, err
	}
	if len(label) > 0xFFFF {
		return nil, errDataChannelLabelTooLong
	}

	entry := &registry.Entry{
		Label:             label,
		Protocol:          init.Protocol,
		Ordered:           init.Ordered,
		Negotiated:        init.Negotiated,
		MaxRetransmits:    init.MaxRetransmits,
		MaxPacketLifeTime: init.MaxPacketLifeTime,
	}
	if init.Negotiated && init.ID != nil {
		entry.StreamID = *init.ID
	}

	dc := &DataChannel{pc: pc, entry: entry}

	pc.mu.Lock()
	sctpDriver := pc.sctp
	pc.mu.Unlock()

	pc.registry.AddPending(entry)

	if init.Negotiated {
		pc.mu.Lock()
		pc.dataChannels[entry.StreamID] = dc
		pc.mu.Unlock()
	} else {
		pc.requestRenegotiation()
	}

	if sctpDriver != nil && sctpDriver.State() == sctpdriver.StateConnected {
		moved := pc.registry.ActivateAll(func() uint16 { return pc.streamIDs.Next() })
		for _, e := range moved {
			pc.mu.Lock()
			pc.dataChannels[e.StreamID] = dc
			pc.mu.Unlock()
			pc.openDataChannelStream(e)
		}
	}

	return dc, nil
}

func (pc *PeerConnection) sendDataChannelMessage(dc *DataChannel, data []byte, text bool) error {
	pc.mu.Lock()
	sctpDriver := pc.sctp
	pc.mu.Unlock()

	if sctpDriver == nil || sctpDriver.State() != sctpdriver.StateConnected {
		return errSCTPUnavailable
	}
	if len(data) > sctpDriver.MaxMessageSize() {
		return errMessageTooLarge
	}

	ppid := sctp.PayloadTypeWebRTCBinary
	if text {
		ppid = sctp.PayloadTypeWebRTCString
	}
	if len(data) == 0 {
		if text {
			ppid = sctp.PayloadTypeWebRTCStringEmpty
		} else {
			ppid = sctp.PayloadTypeWebRTCBinaryEmpty
		}
		data = []byte{0}
	}
	pc.mu.Lock()
	stream, ok := pc.streams[dc.entry.StreamID]
	pc.mu.Unlock()
	if !ok {
		return fmt.Errorf("rtcpeer: send: %w", errSCTPUnavailable)
	}

	_, err := stream.WriteSCTP(data, ppid)
	return err
}

func (pc *PeerConnection) closeDataChannel(dc *DataChannel) error {
	pc.registry.SetState(dc.entry.StreamID, registry.StateClosing)
	pc.registry.Remove(dc.entry.StreamID)

	pc.mu.Lock()
	delete(pc.dataChannels, dc.entry.StreamID)
	stream, ok := pc.streams[dc.entry.StreamID]
	delete(pc.streams, dc.entry.StreamID)
	pc.mu.Unlock()

	if ok {
		stream.Close()
	}
	dc.fireClose()
	return nil
}

// AddTrack registers a local media track, scheduling renegotiation
// (spec §6 addTrack). Codec handling itself is out of scope; only the
// bookkeeping negotiation needs is modeled.
func (pc *PeerConnection) AddTrack(kind, id string) error {
	pc.mu.Lock()
	mid := fmt.Sprintf("%d", pc.nextMid)
	pc.nextMid++
	pc.localTracks = append(pc.localTracks, &trackEntry{id: id, kind: kind, mid: mid, direction: DirectionSendRecv})
	pc.mu.Unlock()

	pc.requestRenegotiation()
	return nil
}

// RemoveTrack unregisters a previously added local track by id.
func (pc *PeerConnection) RemoveTrack(id string) error {
	pc.mu.Lock()
	for i, t := range pc.localTracks {
		if t.id == id {
			pc.localTracks = append(pc.localTracks[:i], pc.localTracks[i+1:]...)
			break
		}
	}
	pc.mu.Unlock()

	pc.requestRenegotiation()
	return nil
}

// requestRenegotiation schedules onnegotiationneeded after 100ms of
// quiescence (spec §4.7 "Renegotiation debouncing").
func (pc *PeerConnection) requestRenegotiation() {
	pc.mu.Lock()
	pc.renegotiationRequired = true
	suppressed := pc.signalingState != SignalingStateStable
	pc.mu.Unlock()

	if !suppressed {
		pc.debounce.schedule()
	}
}

// RestartIce marks renegotiation as required and schedules
// onnegotiationneeded (spec §6 restartIce). It does not regenerate the
// local ICE credentials: later offers keep the same ufrag/pwd.
func (pc *PeerConnection) RestartIce() error {
	pc.mu.Lock()
	if pc.closed {
		pc.mu.Unlock()
		return errClosed
	}
	pc.mu.Unlock()

	pc.requestRenegotiation()
	return nil
}

// Subscribe registers an observer callback (spec §6 "Observers", §9).
func (pc *PeerConnection) Subscribe(kind EventKind, callback func(interface{})) SubscriptionHandle {
	return pc.observers.Subscribe(kind, callback)
}

// Unsubscribe removes a previously registered observer callback.
func (pc *PeerConnection) Unsubscribe(handle SubscriptionHandle) {
	pc.observers.Unsubscribe(handle)
}

// SignalingState reports the current signaling state.
func (pc *PeerConnection) SignalingState() SignalingState {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.signalingState
}

// ConnectionState reports the current connection state.
func (pc *PeerConnection) ConnectionState() ConnectionState {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.connectionState
}

// Close tears down the PeerConnection. Idempotent: the first call runs
// teardown, subsequent calls are no-ops (spec §4.7 "Close idempotency").
func (pc *PeerConnection) Close() error {
	pc.mu.Lock()
	if pc.closed {
		pc.mu.Unlock()
		return nil
	}
	pc.closed = true
	pc.signalingState = SignalingStateClosed
	pc.connectionState = ConnectionStateClosed
	mux := pc.mux
	dtls := pc.dtls
	sctpDriver := pc.sctp
	iceTransport := pc.ice
	pc.mu.Unlock()

	pc.debounce.cancel()
	pc.cancel()

	for _, dc := range pc.registry.Active() {
		pc.registry.SetState(dc.StreamID, registry.StateClosed)
	}

	if sctpDriver != nil {
		sctpDriver.Close()
	}
	if dtls != nil {
		dtls.Close()
	}
	if mux != nil {
		mux.Close()
	}
	if iceTransport != nil {
		iceTransport.Close()
	}

	pc.observers.emit(EventConnectionStateChange, ConnectionStateClosed)
	pc.observers.clear()
	return nil
}

// DefaultNegotiationDebounce is the quiescence window of spec §4.7.
const DefaultNegotiationDebounce = 100 * time.Millisecond

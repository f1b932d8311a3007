// Copyright 2019 Lanikai Labs. All rights reserved.

// Package icetransport is the ICE Transport collaborator of spec §4.2. It
// owns the single UDP socket (via the adopted pion/ice/v4 Agent), drives
// connectivity checks, and exposes a net.Conn bound to the nominated
// remote endpoint, backed by a real ICE implementation rather than a
// hand-rolled RFC 8445 engine.
package icetransport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pion/ice/v4"

	"github.com/lanikai/rtcpeer/internal/logging"
	"github.com/lanikai/rtcpeer/internal/sdp"
)

// Policy mirrors spec §4.2's "Policy": iff relay-only, the agent only
// surfaces/uses relay candidates.
type Policy int

const (
	PolicyAll Policy = iota
	PolicyRelay
)

// Server describes a STUN/TURN server to feed into the ICE agent.
type Server struct {
	URLs       []string
	Username   string
	Credential string
}

// Config configures a new Transport.
type Config struct {
	Servers []Server
	Policy  Policy
	Logger  *logging.Logger
}

// Transport wraps a pion/ice Agent with the event surface spec §4.2
// requires of the ICE Transport collaborator.
type Transport struct {
	agent  *ice.Agent
	logger *logging.Logger

	localUfrag, localPwd   string
	remoteUfrag, remotePwd string

	isControlling bool

	gatheringState GatheringState

	// Event callbacks. Set before calling StartGathering/Connect; invoked
	// from whichever goroutine the underlying agent uses, same as every
	// other observer callback in this module (spec §5).
	OnStateChange          func(ice.ConnectionState)
	OnLocalCandidate       func(ice.Candidate)
	OnLocalCandidateError  func(err error)
	OnGatheringStateChange func(GatheringState)
	OnNominated            func(local, remote ice.Candidate)

	seenRemote map[string]bool
}

// GatheringState mirrors spec §4.2's gathering states; pion/ice signals
// completion by invoking OnCandidate with a nil candidate, which this
// wrapper translates into GatheringStateComplete.
type GatheringState int

const (
	GatheringStateNew GatheringState = iota
	GatheringStateGathering
	GatheringStateComplete
)

// New constructs a Transport. The agent does not gather candidates or
// start connectivity checks until StartGathering/Connect are called.
func New(cfg Config) (*Transport, error) {
	var urls []*ice.URL
	for _, s := range cfg.Servers {
		for _, raw := range s.URLs {
			u, err := ice.ParseURL(raw)
			if err != nil {
				return nil, fmt.Errorf("icetransport: parse ICE server URL %q: %w", raw, err)
			}
			u.Username = s.Username
			u.Password = s.Credential
			urls = append(urls, u)
		}
	}

	agentConfig := &ice.AgentConfig{
		Urls: urls,
	}
	if cfg.Logger != nil {
		agentConfig.LoggerFactory = cfg.Logger.LoggerFactory()
	}
	if cfg.Policy == PolicyRelay {
		agentConfig.CandidateTypes = []ice.CandidateType{ice.CandidateTypeRelay}
	}

	agent, err := ice.NewAgent(agentConfig)
	if err != nil {
		return nil, fmt.Errorf("icetransport: create agent: %w", err)
	}

	t := &Transport{
		agent:      agent,
		logger:     cfg.Logger,
		seenRemote: make(map[string]bool),
	}

	if err := agent.OnConnectionStateChange(func(s ice.ConnectionState) {
		if t.OnStateChange != nil {
			t.OnStateChange(s)
		}
	}); err != nil {
		return nil, err
	}

	if err := agent.OnCandidate(func(c ice.Candidate) {
		if c == nil {
			t.gatheringState = GatheringStateComplete
			if t.OnGatheringStateChange != nil {
				t.OnGatheringStateChange(GatheringStateComplete)
			}
			return
		}
		if t.OnLocalCandidate != nil {
			t.OnLocalCandidate(c)
		}
	}); err != nil {
		return nil, err
	}

	if err := agent.OnSelectedCandidatePairChange(func(local, remote ice.Candidate) {
		if t.OnNominated != nil {
			t.OnNominated(local, remote)
		}
	}); err != nil {
		return nil, err
	}

	return t, nil
}

// StartGathering begins local candidate discovery off the hot path
// (spec §4.2). Non-blocking: candidates arrive via OnLocalCandidate.
func (t *Transport) StartGathering() error {
	t.gatheringState = GatheringStateGathering
	if t.OnGatheringStateChange != nil {
		t.OnGatheringStateChange(GatheringStateGathering)
	}
	go func() {
		if err := t.agent.GatherCandidates(); err != nil && t.OnLocalCandidateError != nil {
			t.OnLocalCandidateError(err)
		}
	}()
	return nil
}

// GatheringState reports the current gathering state.
func (t *Transport) GatheringState() GatheringState {
	return t.gatheringState
}

// SetRemoteCredentials installs the peer's ICE ufrag/pwd (spec §4.2).
func (t *Transport) SetRemoteCredentials(ufrag, pwd string) {
	t.remoteUfrag, t.remotePwd = ufrag, pwd
}

// LocalCredentials returns this agent's local ufrag/pwd, generated the
// first time they are requested.
func (t *Transport) LocalCredentials() (ufrag, pwd string, err error) {
	if t.localUfrag == "" {
		t.localUfrag, t.localPwd, err = t.agent.GetLocalUserCredentials()
		if err != nil {
			return "", "", fmt.Errorf("icetransport: local credentials: %w", err)
		}
	}
	return t.localUfrag, t.localPwd, nil
}

// SetIsControlling configures the agent's role per JSEP rules (spec §4.6):
// the offerer is ICE-controlling.
func (t *Transport) SetIsControlling(controlling bool) {
	t.isControlling = controlling
}

// AddRemoteCandidate incorporates a trickled candidate. Duplicate
// candidates, keyed by (address, port, component) per spec §3, are
// silently ignored (SPEC_FULL §C.4).
func (t *Transport) AddRemoteCandidate(c sdp.Candidate) error {
	key := c.Key()
	if t.seenRemote[key] {
		return nil
	}
	t.seenRemote[key] = true

	iceCandidate, err := ice.UnmarshalCandidate(c.String())
	if err != nil {
		return fmt.Errorf("icetransport: unmarshal candidate: %w", err)
	}
	return t.agent.AddRemoteCandidate(iceCandidate)
}

// Connect drives connectivity checks and blocks until a candidate pair is
// nominated, returning a net.Conn bound to that pair (spec §4.2's "send
// path bound to the chosen remote endpoint"). Re-binding on a later
// connected event after a temporary disconnect (spec §4.2 "Recovery") is
// handled transparently by the returned ice.Conn.
func (t *Transport) Connect(ctx context.Context) (net.Conn, error) {
	ufrag, pwd, err := t.LocalCredentials()
	if err != nil {
		return nil, err
	}
	_ = ufrag
	_ = pwd

	if t.isControlling {
		return t.agent.Dial(ctx, t.remoteUfrag, t.remotePwd)
	}
	return t.agent.Accept(ctx, t.remoteUfrag, t.remotePwd)
}

// Close tears down the agent and its UDP socket.
func (t *Transport) Close() error {
	return t.agent.Close()
}

// DefaultConnectTimeout bounds how long Connect's caller should wait
// before giving up on ICE establishment.
const DefaultConnectTimeout = 30 * time.Second

// Copyright 2019 Lanikai Labs. All rights reserved.

package rtcpeer

// SignalingState is the signaling-state component of the PeerConnection
// aggregate (spec §3), advanced only by the transitions in §4.6.
type SignalingState int

const (
	SignalingStateStable SignalingState = iota
	SignalingStateHaveLocalOffer
	SignalingStateHaveRemoteOffer
	SignalingStateClosed
)

func (s SignalingState) String() string {
	switch s {
	case SignalingStateStable:
		return "stable"
	case SignalingStateHaveLocalOffer:
		return "have-local-offer"
	case SignalingStateHaveRemoteOffer:
		return "have-remote-offer"
	case SignalingStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionState is the connection-state component of the PeerConnection
// aggregate (spec §3), advanced only by the DFA in §4.7.
type ConnectionState int

const (
	ConnectionStateNew ConnectionState = iota
	ConnectionStateConnecting
	ConnectionStateConnected
	ConnectionStateDisconnected
	ConnectionStateFailed
	ConnectionStateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateNew:
		return "new"
	case ConnectionStateConnecting:
		return "connecting"
	case ConnectionStateConnected:
		return "connected"
	case ConnectionStateDisconnected:
		return "disconnected"
	case ConnectionStateFailed:
		return "failed"
	case ConnectionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ICEConnectionState mirrors the states an ICE Transport reports (spec §4.2).
type ICEConnectionState int

const (
	ICEConnectionStateNew ICEConnectionState = iota
	ICEConnectionStateChecking
	ICEConnectionStateConnected
	ICEConnectionStateCompleted
	ICEConnectionStateDisconnected
	ICEConnectionStateFailed
	ICEConnectionStateClosed
)

func (s ICEConnectionState) String() string {
	switch s {
	case ICEConnectionStateNew:
		return "new"
	case ICEConnectionStateChecking:
		return "checking"
	case ICEConnectionStateConnected:
		return "connected"
	case ICEConnectionStateCompleted:
		return "completed"
	case ICEConnectionStateDisconnected:
		return "disconnected"
	case ICEConnectionStateFailed:
		return "failed"
	case ICEConnectionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ICEGatheringState mirrors spec §4.2's gathering states.
type ICEGatheringState int

const (
	ICEGatheringStateNew ICEGatheringState = iota
	ICEGatheringStateGathering
	ICEGatheringStateComplete
)

func (s ICEGatheringState) String() string {
	switch s {
	case ICEGatheringStateNew:
		return "new"
	case ICEGatheringStateGathering:
		return "gathering"
	case ICEGatheringStateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ICERole is the DTLS/ICE role tri-state from spec §3.
type ICERole int

const (
	ICERoleActpass ICERole = iota
	ICERoleActive
	ICERolePassive
)

func (r ICERole) String() string {
	switch r {
	case ICERoleActpass:
		return "actpass"
	case ICERoleActive:
		return "active"
	case ICERolePassive:
		return "passive"
	default:
		return "unknown"
	}
}

// SessionDescriptionType is the tagged-union discriminant of
// SessionDescription (spec §3).
type SessionDescriptionType int

const (
	SDPTypeOffer SessionDescriptionType = iota
	SDPTypeAnswer
	SDPTypePranswer
	SDPTypeRollback
)

func (t SessionDescriptionType) String() string {
	switch t {
	case SDPTypeOffer:
		return "offer"
	case SDPTypeAnswer:
		return "answer"
	case SDPTypePranswer:
		return "pranswer"
	case SDPTypeRollback:
		return "rollback"
	default:
		return "unknown"
	}
}

// nextConnectionState implements the DFA of spec §4.7. ev names the event
// that just occurred; iceState is only consulted for ev == "ice".
func nextConnectionState(current ConnectionState, ev string, iceState ICEConnectionState) ConnectionState {
	if current == ConnectionStateClosed {
		// Closed is absorbing.
		return ConnectionStateClosed
	}
	if ev == "close" {
		return ConnectionStateClosed
	}

	switch ev {
	case "ice":
		switch current {
		case ConnectionStateNew:
			if iceState == ICEConnectionStateConnected || iceState == ICEConnectionStateCompleted {
				return ConnectionStateConnecting
			}
			return ConnectionStateNew
		case ConnectionStateConnecting, ConnectionStateConnected, ConnectionStateDisconnected:
			switch iceState {
			case ICEConnectionStateFailed:
				return ConnectionStateFailed
			case ICEConnectionStateDisconnected:
				if current == ConnectionStateConnected {
					return ConnectionStateDisconnected
				}
			case ICEConnectionStateConnected, ICEConnectionStateCompleted:
				if current == ConnectionStateDisconnected {
					return ConnectionStateConnected
				}
			}
		}
	case "dtls-complete":
		if current == ConnectionStateConnecting {
			return ConnectionStateConnected
		}
	case "dtls-failure", "fingerprint-mismatch":
		if current == ConnectionStateConnecting || current == ConnectionStateConnected {
			return ConnectionStateFailed
		}
	}
	return current
}

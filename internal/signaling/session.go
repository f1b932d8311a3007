// Copyright 2019 Lanikai Labs. All rights reserved.

package signaling

import "context"

// Session is one browser's signaling exchange with this process: an SDP
// offer/answer pair plus trickled ICE candidates, carried over whatever
// Client delivered it.
type Session struct {
	// Context is canceled when the underlying transport (e.g. the
	// websocket) closes.
	Context context.Context

	// Offer receives each remote SDP offer. The local websocket transport
	// never closes it.
	Offer <-chan string

	// RemoteCandidates receives trickled remote ICE candidate lines (SDP
	// "a=candidate:" body text) paired with their media stream
	// identification tag. Closed when the remote signals end-of-candidates.
	RemoteCandidates <-chan RemoteCandidate

	// SendAnswer delivers the local SDP answer to the browser.
	SendAnswer func(sdp string) error

	// SendLocalCandidate delivers one locally-gathered ICE candidate to
	// the browser as it is produced (trickle ICE, spec §4.2/§6).
	SendLocalCandidate func(candidate, mid string) error
}

// RemoteCandidate pairs a trickled candidate line with its mid.
type RemoteCandidate struct {
	Candidate string
	Mid       string
}

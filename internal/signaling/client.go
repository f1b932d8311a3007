// Copyright 2019 Lanikai Labs. All rights reserved.

// Package signaling is a reference SDP/ICE-candidate exchange transport
// for the demo CLI. Spec §1 scopes the signaling channel itself out of
// the core (offers/answers/candidates are handed to the Orchestrator as
// plain strings by whatever transport the application chooses); this
// package is one such transport, useful for exercising the module end to
// end but not part of the negotiated surface.
package signaling

// SessionHandler is invoked once per incoming browser connection.
type SessionHandler func(*Session)

// A signaling Client connects to the signaling server and waits for a
// remote peer to initiate a session.
type Client interface {
	// Listen connects to the signaling server and handles incoming
	// sessions. Blocks until an error occurs or Shutdown is called.
	Listen() error

	// Shutdown interrupts the signaling client.
	Shutdown() error
}

// NewClient constructs a signaling Client. Defaults to the local
// websocket transport in local.go; replaceable for tests.
var NewClient func(handler SessionHandler) (Client, error) = newLocalWebSignaler

// Copyright 2019 Lanikai Labs. All rights reserved.

// Package sctpdriver wraps the adopted pion/sctp engine with the SCTP
// Driver responsibilities of spec §4.4: association bring-up over the
// already-established DTLS transport, with a bounded timeout, and a
// bridge from SCTP stream events to the Data Channel Registry.
package sctpdriver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pion/sctp"

	"github.com/lanikai/rtcpeer/internal/logging"
)

// State mirrors spec §4.4's SCTP transport state.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateConnected
)

// DefaultMaxMessageSize is the advertised default from spec §4.4.
const DefaultMaxMessageSize = 262144

// DefaultPort is the default SCTP port both sides assume absent an
// explicit "a=sctp-port" (spec §4.4).
const DefaultPort uint16 = 5000

// Driver mediates SCTP association bring-up and exposes the resulting
// *sctp.Association to the Data Channel Registry for stream open/accept.
type Driver struct {
	logger         *logging.Logger
	assocTimeout   time.Duration
	maxMessageSize int

	state        State
	association  *sctp.Association
	remotePort   uint16

	// OnStateChange fires whenever State transitions (spec §4.4: "The
	// Orchestrator listens for connected to flush pending channels").
	OnStateChange func(State)

	// OnIncomingStream fires for every SCTP stream the remote peer opens
	// (a new, remotely-initiated data channel; spec §4.5).
	OnIncomingStream func(*sctp.Stream)
}

// Config configures a Driver.
type Config struct {
	AssociateTimeout time.Duration
	MaxMessageSize   int
	Logger           *logging.Logger
}

// New constructs a Driver. RemotePort defaults to DefaultPort until
// SetRemotePort is called with a value advertised in the remote SDP
// (spec §4.4).
func New(cfg Config) *Driver {
	if cfg.AssociateTimeout == 0 {
		cfg.AssociateTimeout = 2 * time.Second
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Driver{
		logger:         cfg.Logger,
		assocTimeout:   cfg.AssociateTimeout,
		maxMessageSize: cfg.MaxMessageSize,
		remotePort:     DefaultPort,
		state:          StateClosed,
	}
}

// SetRemotePort records the destination SCTP port advertised in the
// peer's SDP (spec §4.4). The value is only stored: Associate does not
// pass it to the SCTP engine.
func (d *Driver) SetRemotePort(port uint16) {
	d.remotePort = port
}

// MaxMessageSize returns the effective send-size boundary (spec §4.4, §8),
// which SPEC_FULL §C.6 defines as the minimum of local and remote
// advertised values once both are known.
func (d *Driver) MaxMessageSize() int {
	return d.maxMessageSize
}

// NegotiateMaxMessageSize narrows the effective limit to the smaller of
// the current value and a remote-advertised one.
func (d *Driver) NegotiateMaxMessageSize(remote int) {
	if remote > 0 && remote < d.maxMessageSize {
		d.maxMessageSize = remote
	}
}

func (d *Driver) setState(s State) {
	d.state = s
	if d.OnStateChange != nil {
		d.OnStateChange(s)
	}
}

// State reports the current association state.
func (d *Driver) State() State { return d.state }

// Associate starts the SCTP association over conn (the established DTLS
// transport). active selects whether this side sends the initiating
// association request (at least one pending DataChannel exists) or
// waits passively for the remote's INIT (spec §4.4). Associate returns
// once the association is up or the bounded timeout elapses.
func (d *Driver) Associate(ctx context.Context, conn net.Conn, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, d.assocTimeout)
	defer cancel()

	d.setState(StateConnecting)

	sctpConfig := sctp.Config{
		NetConn: conn,
	}
	if d.logger != nil {
		sctpConfig.LoggerFactory = d.logger.LoggerFactory()
	}

	type result struct {
		assoc *sctp.Association
		err   error
	}
	done := make(chan result, 1)

	go func() {
		var assoc *sctp.Association
		var err error
		if active {
			assoc, err = sctp.Client(sctpConfig)
		} else {
			assoc, err = sctp.Server(sctpConfig)
		}
		done <- result{assoc, err}
	}()

	select {
	case <-ctx.Done():
		d.setState(StateClosed)
		return fmt.Errorf("SCTP association timed out after %dms", d.assocTimeout.Milliseconds())
	case r := <-done:
		if r.err != nil {
			d.setState(StateClosed)
			return fmt.Errorf("sctpdriver: associate: %w", r.err)
		}
		d.association = r.assoc
		d.setState(StateConnected)
		go d.acceptLoop()
		return nil
	}
}

func (d *Driver) acceptLoop() {
	for {
		stream, err := d.association.AcceptStream()
		if err != nil {
			// Association closed; stop accepting.
			return
		}
		if d.OnIncomingStream != nil {
			d.OnIncomingStream(stream)
		}
	}
}

// OpenStream opens an outbound SCTP stream for a locally-created data
// channel (spec §4.5).
func (d *Driver) OpenStream(streamID uint16, ppi sctp.PayloadProtocolIdentifier) (*sctp.Stream, error) {
	if d.association == nil {
		return nil, fmt.Errorf("sctpdriver: association not established")
	}
	return d.association.OpenStream(streamID, ppi)
}

// Close tears down the association (spec §4.4, §7 "Transport errors").
func (d *Driver) Close() error {
	if d.association == nil {
		d.setState(StateClosed)
		return nil
	}
	err := d.association.Close()
	d.setState(StateClosed)
	return err
}

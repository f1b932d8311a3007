// Copyright 2019 Lanikai Labs. All rights reserved.

package rtcpeer

import "errors"

// Sentinel errors returned by the public API. Follows the same convention
// as the original package-level var block: unexported errors.New values,
// wrapped with fmt.Errorf("...: %w", err) at call sites when additional
// context is needed.
var (
	errClosed                  = errors.New("peer connection is closed")
	errNoRemoteDescription     = errors.New("no remote description set")
	errNoICEServersForRelay    = errors.New("relay-only transport policy requires at least one ICE server")
	errDataChannelLabelTooLong = errors.New("data channel label exceeds 65535 bytes")
	errMessageTooLarge         = errors.New("message exceeds negotiated max-message-size")
	errSCTPUnavailable         = errors.New("sctp transport is not connected")
	errBothReliabilityParams   = errors.New("at most one of maxPacketLifeTime and maxRetransmits may be set")
)

// SetRemoteDescriptionError is the error-code enum returned by
// setRemoteDescription (spec §6, §7). It is a defined string type so
// callers can switch on or compare it directly, unlike the bare sentinel
// errors used elsewhere in this package.
type SetRemoteDescriptionError string

const (
	// ErrOK is never actually returned; setRemoteDescription returns a nil
	// error on success. It is listed here only because spec §6 enumerates
	// it alongside the failure codes.
	ErrOK SetRemoteDescriptionError = "OK"

	ErrWrongSdpTypeOfferAfterOffer       SetRemoteDescriptionError = "WrongSdpTypeOfferAfterOffer"
	ErrDataChannelTransportNotSupported  SetRemoteDescriptionError = "DataChannelTransportNotSupported"
	ErrDtlsFingerprintMissing            SetRemoteDescriptionError = "DtlsFingerprintMissing"
	ErrDtlsFingerprintDigestNotSupported SetRemoteDescriptionError = "DtlsFingerprintDigestNotSupported"
)

func (e SetRemoteDescriptionError) Error() string {
	return "setRemoteDescription: " + string(e)
}

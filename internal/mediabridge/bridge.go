// Copyright 2019 Lanikai Labs. All rights reserved.

// Package mediabridge is the minimal seam between the packet demultiplexer
// and the adopted SRTP/RTP/RTCP libraries. Per spec §4.1, RTP-classified
// packets are decrypted with the keys the DTLS Driver exported and handed
// to "the RTP stack" — this package is that boundary. Codecs, jitter
// buffers, and media rendering are explicitly out of scope (spec §1
// Non-goals); a Bridge only produces decrypted RTP/RTCP packets for a
// caller-supplied sink.
package mediabridge

import (
	"fmt"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/srtp/v3"
)

// Keys is the local/remote SRTP key material, shaped identically to
// dtlsdriver.SRTPKeys so a Bridge can be built directly from a completed
// DTLS handshake without either package importing the other.
type Keys struct {
	LocalKey, LocalSalt   []byte
	RemoteKey, RemoteSalt []byte
}

// Bridge decrypts inbound SRTP/SRTCP and encrypts outbound RTP/RTCP using
// the keys exported from the DTLS handshake (spec §4.1, §4.3).
type Bridge struct {
	profile srtp.ProtectionProfile

	decryptCtx *srtp.Context // keyed with RemoteKey/RemoteSalt
	encryptCtx *srtp.Context // keyed with LocalKey/LocalSalt

	// OnRTP fires for every successfully decrypted RTP packet.
	OnRTP func(*rtp.Packet)

	// OnRTCP fires for every successfully decrypted RTCP packet (or
	// compound packet, unpacked into its constituent reports).
	OnRTCP func([]rtcp.Packet)
}

// New constructs a Bridge from completed handshake keys. profile is
// fixed at AES-128 CM / HMAC-SHA1-80, the only profile spec §4.3
// requires DTLS-SRTP keying to support.
func New(keys Keys) (*Bridge, error) {
	profile := srtp.ProtectionProfileAes128CmHmacSha1_80

	decryptCtx, err := srtp.CreateContext(keys.RemoteKey, keys.RemoteSalt, profile)
	if err != nil {
		return nil, fmt.Errorf("mediabridge: decrypt context: %w", err)
	}
	encryptCtx, err := srtp.CreateContext(keys.LocalKey, keys.LocalSalt, profile)
	if err != nil {
		return nil, fmt.Errorf("mediabridge: encrypt context: %w", err)
	}

	return &Bridge{
		profile:    profile,
		decryptCtx: decryptCtx,
		encryptCtx: encryptCtx,
	}, nil
}

// HandleRTP decrypts an SRTP packet classified by the demultiplexer and
// invokes OnRTP with the plaintext packet.
func (b *Bridge) HandleRTP(buf []byte) error {
	var header rtp.Header
	if _, err := header.Unmarshal(buf); err != nil {
		return fmt.Errorf("mediabridge: parse RTP header: %w", err)
	}

	plain, err := b.decryptCtx.DecryptRTP(nil, buf, &header)
	if err != nil {
		return fmt.Errorf("mediabridge: decrypt RTP: %w", err)
	}

	if b.OnRTP != nil {
		b.OnRTP(&rtp.Packet{Header: header, Payload: plain[header.MarshalSize():]})
	}
	return nil
}

// HandleRTCP decrypts an SRTCP compound packet and invokes OnRTCP with
// its unpacked reports.
func (b *Bridge) HandleRTCP(buf []byte) error {
	plain, err := b.decryptCtx.DecryptRTCP(nil, buf, nil)
	if err != nil {
		return fmt.Errorf("mediabridge: decrypt RTCP: %w", err)
	}

	packets, err := rtcp.Unmarshal(plain)
	if err != nil {
		return fmt.Errorf("mediabridge: unmarshal RTCP: %w", err)
	}

	if b.OnRTCP != nil {
		b.OnRTCP(packets)
	}
	return nil
}

// EncryptRTP protects an outbound RTP packet for transmission over the
// nominated ICE candidate pair.
func (b *Bridge) EncryptRTP(pkt *rtp.Packet) ([]byte, error) {
	raw, err := pkt.Marshal()
	if err != nil {
		return nil, fmt.Errorf("mediabridge: marshal RTP: %w", err)
	}
	return b.encryptCtx.EncryptRTP(nil, raw, &pkt.Header)
}

// EncryptRTCP protects an outbound RTCP packet.
func (b *Bridge) EncryptRTCP(packets []rtcp.Packet) ([]byte, error) {
	raw, err := rtcp.Marshal(packets)
	if err != nil {
		return nil, fmt.Errorf("mediabridge: marshal RTCP: %w", err)
	}
	return b.encryptCtx.EncryptRTCP(nil, raw)
}

// Portions of this file are:
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Copyright 2019 Lanikai Labs. All rights reserved.

package rtcpeer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// HashAlgorithm identifies the digest algorithm used to compute a
// Certificate's fingerprint, matching the "a=fingerprint" token (spec §6).
type HashAlgorithm string

const (
	HashAlgorithmSHA256 HashAlgorithm = "sha-256"
)

// Certificate is an asymmetric key pair plus a self-signed X.509
// certificate, with a precomputed fingerprint (spec §3). Created once per
// PeerConnection unless supplied via Configuration.Certificates.
type Certificate struct {
	PrivateKey  *ecdsa.PrivateKey
	Leaf        *x509.Certificate
	Algorithm   HashAlgorithm
	Fingerprint string // lowercase hex octet pairs, colon separated
}

// GenerateCertificate creates a fresh WebRTC-compatible certificate:
//   - ECDSA over the P-256 curve
//   - randomly generated serial number
//   - "WebRTC" as the subject common name
//   - valid for 30 days from now (matches common browser defaults)
func GenerateCertificate() (*Certificate, error) {
	notBefore := time.Now()
	notAfter := notBefore.Add(30 * 24 * time.Hour)

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, fmt.Errorf("generate serial number: %w", err)
	}

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ecdsa key: %w", err)
	}

	template := &x509.Certificate{
		SignatureAlgorithm: x509.ECDSAWithSHA256,
		SerialNumber:       serialNumber,
		Subject:            pkix.Name{CommonName: "WebRTC"},
		NotBefore:          notBefore,
		NotAfter:           notAfter,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}

	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}

	fp := fingerprintDER(der)

	return &Certificate{
		PrivateKey:  priv,
		Leaf:        leaf,
		Algorithm:   HashAlgorithmSHA256,
		Fingerprint: fp,
	}, nil
}

// tlsCertificate adapts this Certificate to the shape pion/dtls expects
// for its own Config.Certificates (spec §4.3 "new(role, certificate,
// private_key, ...)").
func (c *Certificate) tlsCertificate() tls.Certificate {
	return tls.Certificate{
		Certificate: [][]byte{c.Leaf.Raw},
		PrivateKey:  c.PrivateKey,
		Leaf:        c.Leaf,
	}
}

// fingerprintDER computes the colon-separated, lowercase hex SHA-256
// digest of a DER-encoded certificate, matching the format exchanged in
// SDP "a=fingerprint" lines (spec §6).
func fingerprintDER(der []byte) string {
	sum := sha256.Sum256(der)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}


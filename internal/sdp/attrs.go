package sdp

import (
	pionsdp "github.com/pion/sdp/v3"
)

// Attrs returns every value associated with key, in document order. Unlike
// GetAttr (which caches only the last occurrence, sufficient for
// single-valued attributes like "mid" or "setup"), Attrs is used for
// repeatable attributes such as "candidate" and "ssrc".
func (m *Media) Attrs(key string) []string {
	var values []string
	for _, a := range m.Attributes {
		if a.Key == key {
			values = append(values, a.Value)
		}
	}
	return values
}

// Attrs is the session-level analogue of Media.Attrs.
func (s *Session) Attrs(key string) []string {
	var values []string
	for _, a := range s.Attributes {
		if a.Key == key {
			values = append(values, a.Value)
		}
	}
	return values
}

// NewSessionID generates a session identifier suitable for the SDP origin
// line's sess-id field, delegating to pion/sdp/v3's generator (which draws
// from crypto/rand and returns a value that fits the signed 64-bit range
// the RFC 4566 grammar expects) rather than hand-rolling one.
func NewSessionID() (uint64, error) {
	return pionsdp.NewSessionID()
}

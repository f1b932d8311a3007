package sdp

import (
	"fmt"
	"strconv"
	"strings"
)

// CandidateType enumerates the ICE candidate types of spec §3.
type CandidateType string

const (
	CandidateTypeHost  CandidateType = "host"
	CandidateTypeSrflx CandidateType = "srflx"
	CandidateTypePrflx CandidateType = "prflx"
	CandidateTypeRelay CandidateType = "relay"
)

// Candidate is the structured form of an "a=candidate" SDP attribute
// (spec §3 "IceCandidate"). Its unique key within a session is
// (Address, Port, Component).
type Candidate struct {
	Foundation string
	Component  int
	Protocol   string // always "udp" per spec scope
	Priority   uint32
	Address    string
	Port       int
	Type       CandidateType

	RelatedAddress string // optional
	RelatedPort    int    // optional, 0 if unset

	UsernameFragment string // optional
}

// Key returns the (address, port, component) tuple used for de-duplicating
// trickled candidates (spec §3, SPEC_FULL §C.4).
func (c Candidate) Key() string {
	return fmt.Sprintf("%s:%d/%d", c.Address, c.Port, c.Component)
}

// String renders the candidate as the body of an "a=candidate:" line
// (without the leading "a=candidate:" itself), per spec §6.
func (c Candidate) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d %s %d %s %d typ %s",
		c.Foundation, c.Component, c.Protocol, c.Priority, c.Address, c.Port, c.Type)
	if c.RelatedAddress != "" {
		fmt.Fprintf(&b, " raddr %s rport %d", c.RelatedAddress, c.RelatedPort)
	}
	if c.UsernameFragment != "" {
		fmt.Fprintf(&b, " ufrag %s", c.UsernameFragment)
	}
	return b.String()
}

// ParseCandidate parses the body of an "a=candidate:" attribute (the text
// after the "candidate:" prefix has already been stripped by the caller,
// as it is when read from Media.GetAttr("candidate")).
func ParseCandidate(s string) (c Candidate, err error) {
	fields := strings.Fields(s)
	if len(fields) < 6 {
		return c, fmt.Errorf("sdp: malformed candidate %q", s)
	}

	c.Foundation = fields[0]
	if c.Component, err = strconv.Atoi(fields[1]); err != nil {
		return c, fmt.Errorf("sdp: candidate component: %w", err)
	}
	c.Protocol = strings.ToLower(fields[2])
	priority, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return c, fmt.Errorf("sdp: candidate priority: %w", err)
	}
	c.Priority = uint32(priority)
	c.Address = fields[4]
	if c.Port, err = strconv.Atoi(fields[5]); err != nil {
		return c, fmt.Errorf("sdp: candidate port: %w", err)
	}

	kv := fields[6:]
	for i := 0; i+1 < len(kv); i += 2 {
		switch kv[i] {
		case "typ":
			c.Type = CandidateType(kv[i+1])
		case "raddr":
			c.RelatedAddress = kv[i+1]
		case "rport":
			c.RelatedPort, _ = strconv.Atoi(kv[i+1])
		case "ufrag":
			c.UsernameFragment = kv[i+1]
		}
	}

	if c.Type == "" {
		return c, fmt.Errorf("sdp: candidate missing typ: %q", s)
	}
	return c, nil
}

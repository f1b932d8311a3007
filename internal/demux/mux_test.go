package demux

import (
	"bytes"
	"reflect"
	"testing"
)

func TestDispatch(t *testing.T) {
	m := &Mux{
		endpoints: make(map[PacketType]*Endpoint),
	}
	e := m.NewEndpoint(RTP)

	if e.nused != 0 {
		t.Errorf("Expected endpoint to have 0 used buffers: %d", e.nused)
	}

	// Dispatch one RTP packet to the endpoint.
	pkt := append([]byte{128}, make([]byte, 20)...)
	ret := m.dispatch(pkt)

	if e.nused != 1 {
		t.Errorf("Expected endpoint to have 1 used buffer after dispatch: %d", e.nused)
	}
	if !identical(e.bufs[0], pkt) {
		t.Errorf("Expected endpoint to have taken ownership of packet buffer: %p != %p", &e.bufs[0], &pkt)
	}
	if identical(ret, pkt) {
		t.Errorf("Expected dispatch to receive a different buffer")
	}

	// Read the packet out of the endpoint.
	buf := make([]byte, 32)
	n, err := e.Read(buf)

	if err != nil {
		t.Error(err)
	}
	if !bytes.Equal(buf[:n], pkt) {
		t.Errorf("Read: unexpected value: %q != %q", buf[:n], pkt)
	}
	if e.nused != 0 {
		t.Errorf("Expected endpoint to have 0 used buffers after Read: %d", e.nused)
	}
}

func TestDispatchNoEndpointForType(t *testing.T) {
	m := &Mux{
		endpoints: make(map[PacketType]*Endpoint),
	}
	m.NewEndpoint(DTLS)

	// An RTP packet with no registered RTP endpoint is dropped (returned
	// unchanged, not delivered anywhere).
	pkt := append([]byte{128}, make([]byte, 20)...)
	ret := m.dispatch(pkt)

	if !identical(ret, pkt) {
		t.Errorf("Expected dispatch to hand back the same buffer when no endpoint matches")
	}
}

func TestRemoveEndpointOnlyRemovesCurrentRegistrant(t *testing.T) {
	m := &Mux{
		endpoints: make(map[PacketType]*Endpoint),
	}
	first := m.NewEndpoint(DTLS)
	second := m.NewEndpoint(DTLS) // replaces first in the map

	m.RemoveEndpoint(first)
	if _, ok := m.endpoints[DTLS]; !ok {
		t.Errorf("RemoveEndpoint on a stale endpoint must not evict the current registrant")
	}

	m.RemoveEndpoint(second)
	if _, ok := m.endpoints[DTLS]; ok {
		t.Errorf("RemoveEndpoint did not remove the current registrant")
	}
}

// Checks if two byte slices refer to the exact same memory region.
func identical(b1, b2 []byte) bool {
	return len(b1) == len(b2) &&
		reflect.ValueOf(b1).Pointer() == reflect.ValueOf(b2).Pointer()
}

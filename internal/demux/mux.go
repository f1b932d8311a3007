// Package demux is the Packet Demultiplexer collaborator (spec §4.1): it
// owns the single UDP connection nominated by ICE and routes every inbound
// datagram to the Endpoint registered for its PacketType (STUN, DTLS, or
// RTP/RTCP), per RFC 7983's leading-byte classification.
package demux

import (
	"fmt"
	"net"
	"sync"
)

// Number of packets to buffer for each endpoint before the reader falls
// behind and starts dropping the oldest one.
const numBufferPackets = 32

// Mux demultiplexes datagrams read from a single net.Conn (the ICE
// transport's nominated candidate pair) to at most one Endpoint per
// PacketType. It takes ownership of conn and is responsible for closing it.
type Mux struct {
	lock       sync.Mutex
	nextConn   net.Conn
	endpoints  map[PacketType]*Endpoint
	bufferSize int
}

// NewMux creates a Mux reading from conn and starts its receive loop.
func NewMux(conn net.Conn, bufferSize int) *Mux {
	m := &Mux{
		nextConn:   conn,
		endpoints:  make(map[PacketType]*Endpoint),
		bufferSize: bufferSize,
	}

	go m.readLoop()

	return m
}

// NewEndpoint registers an Endpoint to receive every datagram classified as
// pt. Registering a second Endpoint for the same PacketType replaces the
// first.
func (m *Mux) NewEndpoint(pt PacketType) *Endpoint {
	e := createEndpoint(m, pt, numBufferPackets, m.bufferSize)

	m.lock.Lock()
	m.endpoints[pt] = e
	m.lock.Unlock()

	return e
}

// RemoveEndpoint unregisters an endpoint, if it is still the one registered
// for its PacketType.
func (m *Mux) RemoveEndpoint(e *Endpoint) {
	m.lock.Lock()
	if m.endpoints[e.packetType] == e {
		delete(m.endpoints, e.packetType)
	}
	m.lock.Unlock()
}

// Close closes the Mux, every registered Endpoint, and the underlying
// connection.
func (m *Mux) Close() error {
	m.lock.Lock()
	for pt, e := range m.endpoints {
		e.close()
		delete(m.endpoints, pt)
	}
	m.lock.Unlock()

	return m.nextConn.Close()
}

// readLoop reads continually from the underlying connection and dispatches
// each datagram to the endpoint registered for its classified PacketType.
// Terminates on read error, e.g. when the underlying connection is closed.
func (m *Mux) readLoop() {
	defer m.Close()

	buf := make([]byte, m.bufferSize)
	for {
		n, err := m.nextConn.Read(buf)
		if err != nil {
			return
		}

		// Dispatching to the endpoint is done with a "give a penny, take a
		// penny" approach: the datagram buffer is delivered to the endpoint
		// in exchange for one of its unused buffers.
		buf = m.dispatch(buf[:n])

		// Resize the buffer to its full capacity, since it may have been
		// shrunk when it was originally dispatched to the endpoint.
		buf = buf[0:cap(buf)]
	}
}

func (m *Mux) dispatch(buf []byte) []byte {
	if len(buf) == 0 {
		return buf
	}

	pt := Classify(buf)

	m.lock.Lock()
	endpoint := m.endpoints[pt]
	m.lock.Unlock()

	if endpoint == nil {
		fmt.Printf("demux: no endpoint registered for %s packet (leading byte %d)\n", pt, buf[0])
		return buf
	}

	return endpoint.deliver(buf)
}

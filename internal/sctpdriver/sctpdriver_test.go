// Copyright 2019 Lanikai Labs. All rights reserved.

package sctpdriver

import "testing"

func TestNewDefaults(t *testing.T) {
	d := New(Config{})
	if d.State() != StateClosed {
		t.Errorf("new driver state = %v, want StateClosed", d.State())
	}
	if d.MaxMessageSize() != DefaultMaxMessageSize {
		t.Errorf("MaxMessageSize() = %d, want %d", d.MaxMessageSize(), DefaultMaxMessageSize)
	}
	if d.remotePort != DefaultPort {
		t.Errorf("remotePort = %d, want %d", d.remotePort, DefaultPort)
	}
}

func TestNegotiateMaxMessageSize(t *testing.T) {
	d := New(Config{MaxMessageSize: 1000})

	d.NegotiateMaxMessageSize(2000)
	if d.MaxMessageSize() != 1000 {
		t.Errorf("a larger remote value should not raise the limit: got %d", d.MaxMessageSize())
	}

	d.NegotiateMaxMessageSize(500)
	if d.MaxMessageSize() != 500 {
		t.Errorf("a smaller remote value should lower the limit: got %d", d.MaxMessageSize())
	}

	d.NegotiateMaxMessageSize(0)
	if d.MaxMessageSize() != 500 {
		t.Errorf("a zero remote value should be ignored: got %d", d.MaxMessageSize())
	}
}

func TestSetRemotePort(t *testing.T) {
	d := New(Config{})
	d.SetRemotePort(6000)
	if d.remotePort != 6000 {
		t.Errorf("remotePort = %d, want 6000", d.remotePort)
	}
}

func TestOpenStreamWithoutAssociation(t *testing.T) {
	d := New(Config{})
	if _, err := d.OpenStream(0, 0); err == nil {
		t.Error("expected error opening a stream before association")
	}
}

func TestCloseWithoutAssociation(t *testing.T) {
	d := New(Config{})
	if err := d.Close(); err != nil {
		t.Errorf("Close() on an un-associated driver should be a no-op, got %v", err)
	}
	if d.State() != StateClosed {
		t.Errorf("state after Close() = %v, want StateClosed", d.State())
	}
}

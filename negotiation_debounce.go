// Copyright (c) 2019 Lanikai Labs. All rights reserved.

package rtcpeer

import (
	"sync"
	"time"
)

// debounceTask implements the renegotiation debounce task of spec §4.7
// and §5: repeated calls to schedule within DefaultNegotiationDebounce
// of each other collapse into a single onnegotiationneeded firing once
// the window goes quiet.
type debounceTask struct {
	pc *PeerConnection

	mu    sync.Mutex
	timer *time.Timer
}

func newDebounceTask(pc *PeerConnection) *debounceTask {
	return &debounceTask{pc: pc}
}

// schedule (re)arms the quiescence timer. Called every time renegotiation
// is requested while the PeerConnection is in the stable signaling state.
func (d *debounceTask) schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(DefaultNegotiationDebounce, d.fire)
}

// cancel stops any pending timer without firing it, used on Close (spec
// §4.7 "Close idempotency").
func (d *debounceTask) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// fire re-validates the suppression condition before emitting: the timer
// was armed while signaling-state was stable, but a setLocalDescription or
// setRemoteDescription call in the interim may have moved it away from
// stable by the time the 100ms window elapses (spec §4.7 "suppressed when
// signaling-state != stable"), in which case the event must not fire.
func (d *debounceTask) fire() {
	d.pc.mu.Lock()
	required := d.pc.renegotiationRequired
	closed := d.pc.closed
	stable := d.pc.signalingState == SignalingStateStable
	d.pc.mu.Unlock()

	if closed || !required || !stable {
		return
	}
	d.pc.observers.emit(EventNegotiationNeeded, nil)
}

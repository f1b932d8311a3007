// Copyright 2019 Lanikai Labs. All rights reserved.

package rtcpeer

import "sync"

// EventKind names one of the observer events a PeerConnection emits
// (spec §6 "Observers", §9 "Observer-based eventing").
type EventKind int

const (
	EventICECandidate EventKind = iota
	EventICECandidateError
	EventICEConnectionStateChange
	EventICEGatheringStateChange
	EventConnectionStateChange
	EventSignalingStateChange
	EventNegotiationNeeded
	EventDataChannel
)

// SubscriptionHandle identifies a registered callback so it can be
// unsubscribed later.
type SubscriptionHandle uint64

// observerRegistry is a sequence of callbacks per event kind, invoked in
// registration order and cleared on close. Modeled as "subscribe(kind,
// callback) -> handle" / "unsubscribe(handle)" rather than class-based
// `+=`/`-=` event handlers (spec §9).
type observerRegistry struct {
	mu        sync.Mutex
	nextID    SubscriptionHandle
	callbacks map[EventKind]map[SubscriptionHandle]func(interface{})
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{
		callbacks: make(map[EventKind]map[SubscriptionHandle]func(interface{})),
	}
}

// Subscribe registers callback for events of kind and returns a handle
// usable with Unsubscribe.
func (r *observerRegistry) Subscribe(kind EventKind, callback func(interface{})) SubscriptionHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	if r.callbacks[kind] == nil {
		r.callbacks[kind] = make(map[SubscriptionHandle]func(interface{}))
	}
	r.callbacks[kind][id] = callback
	return id
}

// Unsubscribe removes a previously registered callback. It is a no-op if
// handle is unknown (already unsubscribed, or never registered).
func (r *observerRegistry) Unsubscribe(handle SubscriptionHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for kind := range r.callbacks {
		delete(r.callbacks[kind], handle)
	}
}

// emit invokes every callback registered for kind, in registration order,
// synchronously on the calling goroutine (spec §5: "Implementers MUST NOT
// block observer callbacks" is a contract on the callback implementation,
// not on emit itself).
func (r *observerRegistry) emit(kind EventKind, payload interface{}) {
	r.mu.Lock()
	// Snapshot so a callback that subscribes/unsubscribes doesn't race the
	// iteration, and so emit doesn't hold the lock while calling out.
	snapshot := make([]func(interface{}), 0, len(r.callbacks[kind]))
	ids := make([]SubscriptionHandle, 0, len(r.callbacks[kind]))
	for id := range r.callbacks[kind] {
		ids = append(ids, id)
	}
	for i := SubscriptionHandle(1); i <= r.nextID; i++ {
		if cb, ok := r.callbacks[kind][i]; ok {
			snapshot = append(snapshot, cb)
		}
	}
	_ = ids
	r.mu.Unlock()

	for _, cb := range snapshot {
		cb(payload)
	}
}

// clear removes every registered callback (invoked by PeerConnection.Close).
func (r *observerRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = make(map[EventKind]map[SubscriptionHandle]func(interface{}))
}

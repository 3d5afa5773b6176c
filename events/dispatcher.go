// Package events implements the listener registry the socket layer dispatches
// timer state transitions and server errors through.
package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event names the closed set of occurrences a connection reports.
type Event string

const (
	// Connect fires once the channel is established. No payload.
	Connect Event = "connect"
	// ConnectError fires when establishing the channel fails. Payload is the
	// dial error.
	ConnectError Event = "connect_error"
	// Disconnect fires when the channel drops. No payload.
	Disconnect Event = "disconnect"
	// StateUpdate fires after a new *timer.Timer snapshot has replaced the
	// previous one. Payload is the new snapshot.
	StateUpdate Event = "state_update"
	// Error fires when the server reports a structured API error. Payload is
	// the *api.Error.
	Error Event = "error"
)

// Handler is a listener callback. The payload type depends on the event; see
// the Event constants.
type Handler func(payload any)

// Subscription identifies one registration so it can be removed later. Go
// functions are not comparable, so removal goes through this opaque handle
// rather than the function value.
type Subscription struct {
	event Event
	id    uuid.UUID
}

type entry struct {
	id uuid.UUID
	fn Handler
}

// Dispatcher maps event names to ordered listener lists. Registering the
// same function twice yields two invocations per fire; dedup is the caller's
// business. The zero value is ready to use.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[Event][]entry
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[Event][]entry)}
}

// On appends fn to the listener list for event and returns a handle for Off.
// Safe to call at any time, including from inside a firing listener.
func (d *Dispatcher) On(event Event, fn Handler) Subscription {
	sub := Subscription{event: event, id: uuid.New()}
	d.mu.Lock()
	if d.listeners == nil {
		d.listeners = make(map[Event][]entry)
	}
	d.listeners[event] = append(d.listeners[event], entry{id: sub.id, fn: fn})
	d.mu.Unlock()
	return sub
}

// Off removes the registration sub refers to. Unknown or already-removed
// handles are a no-op. A removal during an in-flight Fire does not affect
// that delivery; Fire iterates a snapshot of the list.
func (d *Dispatcher) Off(sub Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.listeners[sub.event]
	for i, e := range list {
		if e.id == sub.id {
			d.listeners[sub.event] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// RemoveAll drops every listener for event, cancelling interest in it.
func (d *Dispatcher) RemoveAll(event Event) {
	d.mu.Lock()
	delete(d.listeners, event)
	d.mu.Unlock()
}

// Fire invokes every listener registered for event at the moment of the
// call, in registration order, each with payload. A panicking listener is
// recovered and logged so the rest still run. Fire returns once all
// listeners for this call have completed; it does not serialize against
// other Fire calls.
func (d *Dispatcher) Fire(event Event, payload any) {
	d.mu.RLock()
	snapshot := make([]entry, len(d.listeners[event]))
	copy(snapshot, d.listeners[event])
	d.mu.RUnlock()

	for _, e := range snapshot {
		invoke(event, e.fn, payload)
	}
}

func invoke(event Event, fn Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("event", string(event)).
				Interface("panic", r).
				Msg("listener panicked")
		}
	}()
	fn(payload)
}

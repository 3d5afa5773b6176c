package socket

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blitztime/go-wrapper/api"
	"github.com/blitztime/go-wrapper/events"
	"github.com/blitztime/go-wrapper/timer"
)

// ErrObserver is returned when an observer connection tries to issue a
// command. Commands require a token.
var ErrObserver = errors.New("socket: observer connections cannot send commands")

// StartTimer asks the server to start the clock.
func (c *Conn) StartTimer() error { return c.send("start_timer", nil) }

// EndTurn hands the turn to the other side.
func (c *Conn) EndTurn() error { return c.send("end_turn", nil) }

// OpponentTimedOut reports that the other side's clock has expired. The
// server verifies and declares the end state; the client never ends a timer
// on its own authority.
func (c *Conn) OpponentTimedOut() error { return c.send("opponent_timed_out", nil) }

type addTimeData struct {
	Seconds float64 `json:"seconds"`
}

// AddTime grants the opponent extra bank time.
func (c *Conn) AddTime(d time.Duration) error {
	return c.send("add_time", addTimeData{Seconds: d.Seconds()})
}

// send enqueues a fire-and-forget command frame. Rejections come back
// asynchronously over the error event, not as a return value here.
func (c *Conn) send(event string, data any) error {
	if c.cfg.Credentials.Observer() {
		return ErrObserver
	}

	f := frame{Event: event}
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("socket: encoding %s: %w", event, err)
		}
		f.Data = encoded
	}
	message, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("socket: encoding %s: %w", event, err)
	}

	select {
	case <-c.done:
		return errors.New("socket: connection closed")
	case c.out <- message:
		return nil
	}
}

// OnStateUpdate registers fn for each new snapshot.
func (c *Conn) OnStateUpdate(fn func(*timer.Timer)) events.Subscription {
	return c.dispatcher.On(events.StateUpdate, func(payload any) {
		if snap, ok := payload.(*timer.Timer); ok {
			fn(snap)
		}
	})
}

// OnError registers fn for server-reported errors. Malformed snapshots also
// arrive here, as a *timer.MalformedSnapshotError.
func (c *Conn) OnError(fn func(error)) events.Subscription {
	return c.dispatcher.On(events.Error, func(payload any) {
		if err, ok := payload.(error); ok {
			fn(err)
		}
	})
}

// OnAPIError registers fn for structured server rejections only.
func (c *Conn) OnAPIError(fn func(*api.Error)) events.Subscription {
	return c.dispatcher.On(events.Error, func(payload any) {
		if apiErr, ok := payload.(*api.Error); ok {
			fn(apiErr)
		}
	})
}

// OnDisconnect registers fn for channel loss.
func (c *Conn) OnDisconnect(fn func()) events.Subscription {
	return c.dispatcher.On(events.Disconnect, func(any) { fn() })
}

// Off removes a registration made through any of the On helpers.
func (c *Conn) Off(sub events.Subscription) { c.dispatcher.Off(sub) }

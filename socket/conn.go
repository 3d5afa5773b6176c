// Package socket maintains the persistent event channel to a timer: it
// dials the websocket endpoint, keeps the last server snapshot, and fans
// inbound events out through an events.Dispatcher.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/blitztime/go-wrapper/api"
	"github.com/blitztime/go-wrapper/events"
	"github.com/blitztime/go-wrapper/timer"
)

// ErrNoSnapshot is returned by derived-time queries before the first
// state_update has arrived.
var ErrNoSnapshot = errors.New("socket: no snapshot received yet")

// ErrNoSide is returned when querying a seat nobody has joined.
var ErrNoSide = errors.New("socket: side not joined")

// Config controls one connection.
type Config struct {
	// URL is the websocket endpoint, e.g. "wss://example.com/socket". The
	// timer id from Credentials is appended as the path.
	URL         string
	Credentials api.Credentials

	// Dispatcher receives this connection's events. Optional; supplying one
	// lets callers register listeners before dialing, so connect and
	// connect_error are observable.
	Dispatcher *events.Dispatcher

	PingInterval time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration

	// Clock supplies "now" for derived-time queries and drives the ping
	// ticker. Nil means the real clock.
	Clock clockwork.Clock

	Dialer *websocket.Dialer
}

func (c *Config) applyDefaults() {
	if c.PingInterval == 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 90 * time.Second
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Dispatcher == nil {
		c.Dispatcher = events.NewDispatcher()
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
}

// frame is the wire shape in both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Conn is one live connection to a timer.
type Conn struct {
	cfg        Config
	ws         *websocket.Conn
	clock      clockwork.Clock
	dispatcher *events.Dispatcher

	snapshot atomic.Pointer[timer.Timer]

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the timer named by cfg.Credentials. On failure the
// configured dispatcher gets a connect_error event and the error is
// returned; on success a connect event fires and the read/write pumps start.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	cfg.applyDefaults()

	header := http.Header{}
	if !cfg.Credentials.Observer() {
		header.Set("Authorization", "Bearer "+cfg.Credentials.Token)
	}

	url := fmt.Sprintf("%s/%d", cfg.URL, cfg.Credentials.Timer)
	ws, resp, err := cfg.Dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		cfg.Dispatcher.Fire(events.ConnectError, err)
		return nil, fmt.Errorf("socket: dialing %s: %w", url, err)
	}

	c := &Conn{
		cfg:        cfg,
		ws:         ws,
		clock:      cfg.Clock,
		dispatcher: cfg.Dispatcher,
		out:        make(chan []byte, 16),
		done:       make(chan struct{}),
	}

	go c.readPump()
	go c.writePump()

	log.Info().
		Int("timer", cfg.Credentials.Timer).
		Bool("observer", cfg.Credentials.Observer()).
		Msg("connected")
	c.dispatcher.Fire(events.Connect, nil)
	return c, nil
}

// Close tears the connection down. Idempotent. A disconnect event fires once
// the read pump exits.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// Dispatcher exposes the event registry for listener management.
func (c *Conn) Dispatcher() *events.Dispatcher { return c.dispatcher }

// Snapshot returns the last timer state received, nil before the first
// state_update. The returned value is immutable; each update swaps in a
// whole new snapshot.
func (c *Conn) Snapshot() *timer.Timer { return c.snapshot.Load() }

// side resolves a seat on the current snapshot for the derived-time helpers.
func (c *Conn) side(s timer.Side) (*timer.ClockSide, error) {
	snap := c.snapshot.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	side := snap.Side(s)
	if side == nil {
		return nil, ErrNoSide
	}
	return side, nil
}

// Remaining is the bank time left for a side at this instant. Negative means
// the side has overrun.
func (c *Conn) Remaining(s timer.Side) (time.Duration, error) {
	side, err := c.side(s)
	if err != nil {
		return 0, err
	}
	return side.Remaining(c.clock.Now())
}

// TurnRemaining is the time left in the side's per-turn allowance at this
// instant.
func (c *Conn) TurnRemaining(s timer.Side) (time.Duration, error) {
	side, err := c.side(s)
	if err != nil {
		return 0, err
	}
	return side.TurnRemaining(c.clock.Now())
}

// TimeoutAt is the instant the side runs out of time absent further turns.
func (c *Conn) TimeoutAt(s timer.Side) (time.Time, error) {
	side, err := c.side(s)
	if err != nil {
		return time.Time{}, err
	}
	return side.TimeoutAt()
}

// readPump owns the websocket reader. Each inbound event is dispatched on
// its own goroutine so slow listeners never stall the transport; snapshots
// are stored before listeners see them.
func (c *Conn) readPump() {
	defer func() {
		c.Close()
		c.dispatcher.Fire(events.Disconnect, nil)
	}()

	c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Msg("unexpected close")
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		c.handleFrame(message)
	}
}

func (c *Conn) handleFrame(message []byte) {
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		log.Warn().Err(err).Msg("unreadable frame")
		return
	}

	switch events.Event(f.Event) {
	case events.StateUpdate:
		snap, err := timer.Parse(f.Data)
		if err != nil {
			// Protocol drift between client and server; surfaced, never
			// silently defaulted.
			log.Error().Err(err).Msg("malformed snapshot")
			go c.dispatcher.Fire(events.Error, err)
			return
		}
		c.snapshot.Store(snap)
		go c.dispatcher.Fire(events.StateUpdate, snap)

	case events.Error:
		go c.dispatcher.Fire(events.Error, api.ParseError(f.Data))

	default:
		log.Debug().Str("event", f.Event).Msg("unhandled event")
	}
}

// writePump owns the websocket writer: queued commands plus keepalive pings.
func (c *Conn) writePump() {
	ticker := c.clock.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Msg("write failed")
				c.Close()
				return
			}
		case <-ticker.Chan():
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Msg("ping failed")
				c.Close()
				return
			}
		}
	}
}

package timer

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Side identifies one of the two seats on a timer.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// Never is the sentinel TimeoutAt returns for a timer that has not started:
// the largest instant time.Time can represent.
var Never = time.Unix(math.MaxInt64-62135596801, 999999999)

// MalformedSnapshotError reports an inbound timer payload whose shape
// violates the protocol: a required field missing or of the wrong type. It is
// always surfaced to the caller, never papered over with defaults, because it
// means the client and server disagree about the wire format.
type MalformedSnapshotError struct {
	Field  string
	Reason string
}

func (e *MalformedSnapshotError) Error() string {
	return fmt.Sprintf("timer: malformed snapshot: field %q: %s", e.Field, e.Reason)
}

// Timer is one server-declared snapshot of a timer instance. It is built
// wholesale from each inbound payload and never mutated afterwards; live
// clock values are derived from it plus the caller's "now".
type Timer struct {
	ID         int
	TurnNumber int

	// TurnStartedAt is nil until the first turn begins.
	TurnStartedAt *time.Time
	StartedAt     *time.Time

	HasEnded    bool
	EndReporter *Side
	Observers   int
	Managed     bool
	Settings    []StageSettings

	// Home and Away are nil while nobody has joined that seat.
	Home *ClockSide
	Away *ClockSide
}

// TurnPair groups each player's single move into one stage-resolution unit:
// floor(TurnNumber / 2), floored at zero.
func (t *Timer) TurnPair() int {
	if t.TurnNumber < 0 {
		return 0
	}
	return t.TurnNumber / 2
}

// Stage resolves the StageSettings governing the current turn pair. Fails
// with ErrInvalidConfiguration when the schedule lacks a zero-start stage.
func (t *Timer) Stage() (StageSettings, error) {
	return resolveStage(t.Settings, t.TurnPair())
}

// Side returns the requested seat, nil if unoccupied.
func (t *Timer) Side(side Side) *ClockSide {
	if side == SideAway {
		return t.Away
	}
	return t.Home
}

type timerWire struct {
	ID            *int              `json:"id"`
	TurnNumber    *int              `json:"turn_number"`
	TurnStartedAt *float64          `json:"turn_started_at"`
	StartedAt     *float64          `json:"started_at"`
	HasEnded      *bool             `json:"has_ended"`
	EndReporter   *string           `json:"end_reporter"`
	Observers     *int              `json:"observers"`
	Managed       *bool             `json:"managed"`
	Settings      *[]StageSettings  `json:"settings"`
	Home          *json.RawMessage  `json:"home"`
	Away          *json.RawMessage  `json:"away"`
}

// UnmarshalJSON builds the snapshot from the server's payload, converting
// epoch-second numbers to instants and wiring each side back to its owner.
func (t *Timer) UnmarshalJSON(data []byte) error {
	var w timerWire
	if err := json.Unmarshal(data, &w); err != nil {
		return &MalformedSnapshotError{Field: "timer", Reason: err.Error()}
	}
	switch {
	case w.ID == nil:
		return &MalformedSnapshotError{Field: "id", Reason: "missing"}
	case w.TurnNumber == nil:
		return &MalformedSnapshotError{Field: "turn_number", Reason: "missing"}
	case w.HasEnded == nil:
		return &MalformedSnapshotError{Field: "has_ended", Reason: "missing"}
	case w.Observers == nil:
		return &MalformedSnapshotError{Field: "observers", Reason: "missing"}
	case w.Managed == nil:
		return &MalformedSnapshotError{Field: "managed", Reason: "missing"}
	case w.Settings == nil:
		return &MalformedSnapshotError{Field: "settings", Reason: "missing"}
	}

	t.ID = *w.ID
	t.TurnNumber = *w.TurnNumber
	t.TurnStartedAt = epochToTime(w.TurnStartedAt)
	t.StartedAt = epochToTime(w.StartedAt)
	t.HasEnded = *w.HasEnded
	t.Observers = *w.Observers
	t.Managed = *w.Managed
	t.Settings = *w.Settings

	t.EndReporter = nil
	if w.EndReporter != nil {
		side := Side(*w.EndReporter)
		if side != SideHome && side != SideAway {
			return &MalformedSnapshotError{Field: "end_reporter", Reason: fmt.Sprintf("unknown side %q", *w.EndReporter)}
		}
		t.EndReporter = &side
	}

	var err error
	if t.Home, err = parseSide(w.Home, "home", t); err != nil {
		return err
	}
	if t.Away, err = parseSide(w.Away, "away", t); err != nil {
		return err
	}
	return nil
}

// Parse decodes one inbound snapshot payload into a fresh Timer.
func Parse(data []byte) (*Timer, error) {
	t := &Timer{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, err
	}
	return t, nil
}

func parseSide(raw *json.RawMessage, field string, owner *Timer) (*ClockSide, error) {
	if raw == nil || string(*raw) == "null" {
		return nil, nil
	}
	var w sideWire
	if err := json.Unmarshal(*raw, &w); err != nil {
		return nil, &MalformedSnapshotError{Field: field, Reason: err.Error()}
	}
	switch {
	case w.IsTurn == nil:
		return nil, &MalformedSnapshotError{Field: field + ".is_turn", Reason: "missing"}
	case w.TotalTime == nil:
		return nil, &MalformedSnapshotError{Field: field + ".total_time", Reason: "missing"}
	case w.Connected == nil:
		return nil, &MalformedSnapshotError{Field: field + ".connected", Reason: "missing"}
	}
	return &ClockSide{
		IsTurn:            *w.IsTurn,
		TotalTimeLastTurn: secondsToDuration(*w.TotalTime),
		Connected:         *w.Connected,
		timer:             owner,
	}, nil
}

func epochToTime(seconds *float64) *time.Time {
	if seconds == nil {
		return nil
	}
	sec, frac := math.Modf(*seconds)
	ts := time.Unix(int64(sec), int64(frac*float64(time.Second)))
	return &ts
}

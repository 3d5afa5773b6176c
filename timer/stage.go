package timer

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidConfiguration indicates a stage schedule with no stage covering
// the current turn pair, i.e. the schedule is missing a zero-start stage.
// Further clock computation for the snapshot is meaningless once this occurs.
var ErrInvalidConfiguration = errors.New("timer: stage schedule has no stage for the current turn")

// StageSettings is one stage of a multi-stage time control, e.g. the
// "60s/turn from turn 10" part of "30s/turn for 10 turns, then 60s/turn".
type StageSettings struct {
	// StartTurn is the first turn pair (zero-indexed) this stage applies to.
	// Every schedule must contain a stage with StartTurn 0.
	StartTurn int

	// FixedTimePerTurn is a delay-style allowance: the bank is untouched
	// until a turn runs longer than this.
	FixedTimePerTurn time.Duration

	// IncrementPerTurn is a Fischer-style increment added to the bank after
	// each turn. The server applies it; the client only carries it.
	IncrementPerTurn time.Duration

	// InitialTime is the bank each side holds before the timer starts.
	InitialTime time.Duration
}

// stageWire is the server's JSON shape for a stage. The misspelled
// "incremement" key matches the wire format and must stay.
type stageWire struct {
	StartTurn        *int     `json:"start_turn"`
	SecondsFixed     *float64 `json:"seconds_fixed_per_turn"`
	SecondsIncrement *float64 `json:"seconds_incremement_per_turn"`
	InitialSeconds   *float64 `json:"initial_seconds"`
}

func (s *StageSettings) UnmarshalJSON(data []byte) error {
	var w stageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return &MalformedSnapshotError{Field: "settings", Reason: err.Error()}
	}
	switch {
	case w.StartTurn == nil:
		return &MalformedSnapshotError{Field: "settings.start_turn", Reason: "missing"}
	case w.SecondsFixed == nil:
		return &MalformedSnapshotError{Field: "settings.seconds_fixed_per_turn", Reason: "missing"}
	case w.SecondsIncrement == nil:
		return &MalformedSnapshotError{Field: "settings.seconds_incremement_per_turn", Reason: "missing"}
	case w.InitialSeconds == nil:
		return &MalformedSnapshotError{Field: "settings.initial_seconds", Reason: "missing"}
	}
	s.StartTurn = *w.StartTurn
	s.FixedTimePerTurn = secondsToDuration(*w.SecondsFixed)
	s.IncrementPerTurn = secondsToDuration(*w.SecondsIncrement)
	s.InitialTime = secondsToDuration(*w.InitialSeconds)
	return nil
}

func (s StageSettings) MarshalJSON() ([]byte, error) {
	startTurn := s.StartTurn
	fixed := durationToSeconds(s.FixedTimePerTurn)
	increment := durationToSeconds(s.IncrementPerTurn)
	initial := durationToSeconds(s.InitialTime)
	return json.Marshal(stageWire{
		StartTurn:        &startTurn,
		SecondsFixed:     &fixed,
		SecondsIncrement: &increment,
		InitialSeconds:   &initial,
	})
}

// resolveStage returns the stage governing the given turn pair: the stage
// with the largest StartTurn that is <= turnPair. The schedule may be stored
// in any order, so this scans for the best match rather than assuming sorted
// input. Stages sharing a StartTurn are unspecified; the last best match wins.
func resolveStage(settings []StageSettings, turnPair int) (StageSettings, error) {
	best := -1
	for i, stage := range settings {
		if stage.StartTurn > turnPair {
			continue
		}
		if best == -1 || stage.StartTurn >= settings[best].StartTurn {
			best = i
		}
	}
	if best == -1 {
		return StageSettings{}, ErrInvalidConfiguration
	}
	return settings[best], nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func durationToSeconds(d time.Duration) float64 {
	return d.Seconds()
}

package timer

import "time"

// ClockSide is one player's seat on a timer snapshot. The derived quantities
// below are pure functions of (side, owning snapshot, now); nothing ticks in
// the background and nothing is cached, so callers get a live value from any
// wall-clock instant they supply.
type ClockSide struct {
	IsTurn bool

	// TotalTimeLastTurn is the bank as of the start of the current turn.
	TotalTimeLastTurn time.Duration

	Connected bool

	// Non-owning back-reference; the snapshot owns both sides.
	timer *Timer
}

type sideWire struct {
	IsTurn    *bool    `json:"is_turn"`
	TotalTime *float64 `json:"total_time"`
	Connected *bool    `json:"connected"`
}

// Timer returns the snapshot this side belongs to.
func (s *ClockSide) Timer() *Timer { return s.timer }

// Remaining computes the bank time left at now. The result is deliberately
// not clamped: a negative value means the side has overrun by that much,
// which is the signal callers use to detect a timeout.
func (s *ClockSide) Remaining(now time.Time) (time.Duration, error) {
	stage, err := s.timer.Stage()
	if err != nil {
		return 0, err
	}
	if s.timer.TurnStartedAt == nil {
		return stage.InitialTime, nil
	}
	if !s.IsTurn {
		return s.TotalTimeLastTurn, nil
	}
	overage := now.Sub(*s.timer.TurnStartedAt) - stage.FixedTimePerTurn
	if overage <= 0 {
		return s.TotalTimeLastTurn, nil
	}
	return s.TotalTimeLastTurn - overage, nil
}

// TurnRemaining computes the time left in the current turn's fixed
// allowance, independent of the bank. Unlike Remaining this is clamped at
// zero: it measures a window, not an overrun.
func (s *ClockSide) TurnRemaining(now time.Time) (time.Duration, error) {
	stage, err := s.timer.Stage()
	if err != nil {
		return 0, err
	}
	if s.timer.TurnStartedAt == nil || !s.IsTurn {
		return stage.FixedTimePerTurn, nil
	}
	remaining := stage.FixedTimePerTurn - now.Sub(*s.timer.TurnStartedAt)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// TimeoutAt returns the instant this side runs out of time assuming no
// further turn changes: turn start plus bank plus the fixed allowance.
// Before the timer starts it returns Never. Advisory only; the server is
// authoritative on end state.
func (s *ClockSide) TimeoutAt() (time.Time, error) {
	stage, err := s.timer.Stage()
	if err != nil {
		return time.Time{}, err
	}
	if s.timer.TurnStartedAt == nil {
		return Never, nil
	}
	return s.timer.TurnStartedAt.Add(s.TotalTimeLastTurn + stage.FixedTimePerTurn), nil
}

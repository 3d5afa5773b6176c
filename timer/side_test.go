package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds a running timer: one stage, away to move, turn started at
// the returned instant.
func fixture(stage StageSettings, awayBank time.Duration) (*Timer, time.Time) {
	turnStart := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := &Timer{
		ID:            1,
		TurnNumber:    1,
		TurnStartedAt: &turnStart,
		Settings:      []StageSettings{stage},
	}
	tm.Home = &ClockSide{IsTurn: false, TotalTimeLastTurn: 100 * time.Second, timer: tm}
	tm.Away = &ClockSide{IsTurn: true, TotalTimeLastTurn: awayBank, timer: tm}
	return tm, turnStart
}

func TestRemainingBeforeStartIsInitialTime(t *testing.T) {
	tm := &Timer{
		Settings: []StageSettings{{StartTurn: 0, FixedTimePerTurn: 10 * time.Second, InitialTime: 5 * time.Minute}},
	}
	tm.Home = &ClockSide{timer: tm}

	remaining, err := tm.Home.Remaining(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, remaining)

	turnRemaining, err := tm.Home.TurnRemaining(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, turnRemaining)

	timeout, err := tm.Home.TimeoutAt()
	require.NoError(t, err)
	assert.Equal(t, Never, timeout)
}

func TestRemainingInactiveSideIsFrozen(t *testing.T) {
	tm, turnStart := fixture(StageSettings{FixedTimePerTurn: 5 * time.Second}, 200*time.Second)

	for _, elapsed := range []time.Duration{0, time.Second, time.Hour} {
		remaining, err := tm.Home.Remaining(turnStart.Add(elapsed))
		require.NoError(t, err)
		assert.Equal(t, 100*time.Second, remaining, "elapsed %v", elapsed)
	}
}

func TestRemainingActiveSideWithinFixedAllowance(t *testing.T) {
	tm, turnStart := fixture(StageSettings{FixedTimePerTurn: 5 * time.Second}, 200*time.Second)

	remaining, err := tm.Away.Remaining(turnStart.Add(5 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 200*time.Second, remaining)
}

func TestRemainingActiveSideDrawsFromBankAfterAllowance(t *testing.T) {
	tm, turnStart := fixture(StageSettings{FixedTimePerTurn: 5 * time.Second}, 200*time.Second)

	remaining, err := tm.Away.Remaining(turnStart.Add(12 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 193*time.Second, remaining)
}

func TestRemainingGoesNegativeOnOverrun(t *testing.T) {
	tm, turnStart := fixture(StageSettings{FixedTimePerTurn: 5 * time.Second}, 10*time.Second)

	remaining, err := tm.Away.Remaining(turnStart.Add(25 * time.Second))
	require.NoError(t, err)
	// 25s elapsed, 5s free, 10s banked: 10s over. Not clamped; the caller
	// reads the overrun magnitude from the sign.
	assert.Equal(t, -10*time.Second, remaining)
}

func TestTurnRemainingClampsAtZero(t *testing.T) {
	tm, turnStart := fixture(StageSettings{FixedTimePerTurn: 30 * time.Second}, 200*time.Second)

	remaining, err := tm.Away.TurnRemaining(turnStart.Add(10 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, remaining)

	remaining, err = tm.Away.TurnRemaining(turnStart.Add(2 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), remaining)

	// Full allowance for the side not to move.
	remaining, err = tm.Home.TurnRemaining(turnStart.Add(2 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, remaining)
}

func TestTimeoutAtIsTurnStartPlusBankPlusAllowance(t *testing.T) {
	tm, turnStart := fixture(StageSettings{FixedTimePerTurn: 5 * time.Second}, 200*time.Second)

	timeout, err := tm.Away.TimeoutAt()
	require.NoError(t, err)
	assert.Equal(t, turnStart.Add(205*time.Second), timeout)
}

// The worked scenario: no per-turn allowance, 300s bank, 10s into the turn.
func TestFischerStyleScenario(t *testing.T) {
	tm, turnStart := fixture(StageSettings{
		StartTurn:        0,
		FixedTimePerTurn: 0,
		IncrementPerTurn: 30 * time.Second,
		InitialTime:      300 * time.Second,
	}, 300*time.Second)
	now := turnStart.Add(10 * time.Second)

	remaining, err := tm.Away.Remaining(now)
	require.NoError(t, err)
	assert.Equal(t, 290*time.Second, remaining)

	turnRemaining, err := tm.Away.TurnRemaining(now)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), turnRemaining)

	timeout, err := tm.Away.TimeoutAt()
	require.NoError(t, err)
	assert.Equal(t, turnStart.Add(300*time.Second), timeout)
}

func TestDerivedQueriesSurfaceInvalidConfiguration(t *testing.T) {
	turnStart := time.Now()
	tm := &Timer{
		TurnNumber:    0,
		TurnStartedAt: &turnStart,
		Settings:      []StageSettings{{StartTurn: 8}},
	}
	side := &ClockSide{IsTurn: true, timer: tm}

	_, err := side.Remaining(time.Now())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = side.TurnRemaining(time.Now())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = side.TimeoutAt()
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

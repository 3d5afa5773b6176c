package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotJSON = `{
	"id": 41,
	"turn_number": 7,
	"turn_started_at": 1700000000.25,
	"started_at": 1699999000,
	"has_ended": false,
	"end_reporter": null,
	"observers": 3,
	"managed": true,
	"settings": [
		{"start_turn": 0, "seconds_fixed_per_turn": 30, "seconds_incremement_per_turn": 0, "initial_seconds": 300},
		{"start_turn": 10, "seconds_fixed_per_turn": 60, "seconds_incremement_per_turn": 0, "initial_seconds": 0}
	],
	"home": {"is_turn": false, "total_time": 240, "connected": true},
	"away": {"is_turn": true, "total_time": 180.5, "connected": false}
}`

func TestParseSnapshot(t *testing.T) {
	tm, err := Parse([]byte(snapshotJSON))
	require.NoError(t, err)

	assert.Equal(t, 41, tm.ID)
	assert.Equal(t, 7, tm.TurnNumber)
	assert.Equal(t, 3, tm.TurnPair())
	require.NotNil(t, tm.TurnStartedAt)
	assert.Equal(t, time.Unix(1700000000, 250000000).UTC(), tm.TurnStartedAt.UTC())
	require.NotNil(t, tm.StartedAt)
	assert.Equal(t, time.Unix(1699999000, 0).UTC(), tm.StartedAt.UTC())
	assert.False(t, tm.HasEnded)
	assert.Nil(t, tm.EndReporter)
	assert.Equal(t, 3, tm.Observers)
	assert.True(t, tm.Managed)
	require.Len(t, tm.Settings, 2)
	assert.Equal(t, 30*time.Second, tm.Settings[0].FixedTimePerTurn)

	require.NotNil(t, tm.Home)
	assert.False(t, tm.Home.IsTurn)
	assert.Equal(t, 240*time.Second, tm.Home.TotalTimeLastTurn)
	assert.True(t, tm.Home.Connected)

	require.NotNil(t, tm.Away)
	assert.True(t, tm.Away.IsTurn)
	assert.Equal(t, 180500*time.Millisecond, tm.Away.TotalTimeLastTurn)

	// Sides point back at their owner.
	assert.Same(t, tm, tm.Home.Timer())
	assert.Same(t, tm, tm.Away.Timer())
	assert.Same(t, tm.Away, tm.Side(SideAway))
}

func TestParseSnapshotNullInstantsAndSides(t *testing.T) {
	tm, err := Parse([]byte(`{
		"id": 1, "turn_number": 0,
		"turn_started_at": null, "started_at": null,
		"has_ended": false, "end_reporter": null,
		"observers": 0, "managed": false,
		"settings": [{"start_turn": 0, "seconds_fixed_per_turn": 0, "seconds_incremement_per_turn": 0, "initial_seconds": 60}],
		"home": null, "away": null
	}`))
	require.NoError(t, err)
	assert.Nil(t, tm.TurnStartedAt)
	assert.Nil(t, tm.StartedAt)
	assert.Nil(t, tm.Home)
	assert.Nil(t, tm.Away)
}

func TestParseSnapshotEndReporter(t *testing.T) {
	tm, err := Parse([]byte(`{
		"id": 1, "turn_number": 12,
		"turn_started_at": null, "started_at": 1700000000,
		"has_ended": true, "end_reporter": "away",
		"observers": 0, "managed": false,
		"settings": [{"start_turn": 0, "seconds_fixed_per_turn": 0, "seconds_incremement_per_turn": 0, "initial_seconds": 60}],
		"home": null, "away": null
	}`))
	require.NoError(t, err)
	assert.True(t, tm.HasEnded)
	require.NotNil(t, tm.EndReporter)
	assert.Equal(t, SideAway, *tm.EndReporter)
}

func TestParseSnapshotMalformed(t *testing.T) {
	cases := []struct {
		name      string
		json      string
		wantField string
	}{
		{
			name:      "missing id",
			json:      `{"turn_number": 0, "has_ended": false, "observers": 0, "managed": false, "settings": []}`,
			wantField: "id",
		},
		{
			name:      "missing settings",
			json:      `{"id": 1, "turn_number": 0, "has_ended": false, "observers": 0, "managed": false}`,
			wantField: "settings",
		},
		{
			name:      "wrong type",
			json:      `{"id": "not-a-number"}`,
			wantField: "timer",
		},
		{
			name:      "unknown end reporter",
			json:      `{"id": 1, "turn_number": 0, "has_ended": true, "end_reporter": "north", "observers": 0, "managed": false, "settings": []}`,
			wantField: "end_reporter",
		},
		{
			name: "side missing total_time",
			json: `{"id": 1, "turn_number": 0, "has_ended": false, "observers": 0, "managed": false, "settings": [],
				"home": {"is_turn": true, "connected": true}}`,
			wantField: "home.total_time",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.json))
			var malformed *MalformedSnapshotError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tc.wantField, malformed.Field)
		})
	}
}

func TestNeverIsAfterAnyRealisticInstant(t *testing.T) {
	assert.True(t, Never.After(time.Now().AddDate(10000, 0, 0)))
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/gameengine/engine"
)

func finishedSnapshot(winner string) engine.Snapshot {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	return engine.Snapshot{
		RoomID:   "room-1",
		GameType: "tictactoe",
		Status:   engine.StatusFinished,
		Winner:   winner,
		Reason:   engine.ReasonCompleted,
		Players: []engine.Player{
			{ID: "A", Name: "Ann"},
			{ID: "B", Name: "Bob"},
			{ID: "C", Name: "Cat", IsObserver: true},
		},
		History:    make([]engine.MoveRecord, 5),
		StartedAt:  &started,
		FinishedAt: &finished,
	}
}

func TestNewGameRecord(t *testing.T) {
	rec := NewGameRecord(finishedSnapshot("A"), 10, map[string]int64{"A": 1010, "B": 990})

	assert.Equal(t, "room-1", rec.RoomID)
	assert.Equal(t, 5, rec.Moves)
	assert.Equal(t, 90*time.Second, rec.Duration())
	require.Len(t, rec.Players, 2, "observers are not part of the record")
	assert.Equal(t, PlayerInfo{ID: "A", Name: "Ann", Outcome: OutcomeWin, Balance: 1010}, rec.Players[0])
	assert.Equal(t, OutcomeLose, rec.Players[1].Outcome)

	assert.Equal(t, 90, FromGameRecord(rec).Duration)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeDraw, Outcome(engine.Draw, "A"))
	assert.Equal(t, OutcomeNone, Outcome("", "A"))
	assert.Equal(t, OutcomeWin, Outcome("A", "A"))
	assert.Equal(t, OutcomeLose, Outcome("B", "A"))
}

func TestNewRoomRecord(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC)
	snap := finishedSnapshot("")
	snap.Status = engine.StatusInProgress
	snap.Settings = engine.Settings{MinPlayers: 2, MaxPlayers: 2}

	rec := NewRoomRecord(snap, 25, now)
	assert.Equal(t, RoomInProgress, rec.Status)
	assert.Equal(t, 2, rec.Settings.MaxPlayers)
	assert.Equal(t, int64(25), rec.Stake)
	assert.Equal(t, now, rec.UpdatedAt)
	assert.Len(t, rec.Players, 2)
}

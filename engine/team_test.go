package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamConfigValidation(t *testing.T) {
	_, err := New("r", "fake", &fakeGame{}, Options{
		Settings: Settings{MinPlayers: 2, MaxPlayers: 3},
		Strategy: TurnBased(),
		Teams:    &TeamConfig{Count: 2, Size: 2},
	})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = New("r", "fake", &fakeGame{}, Options{
		Settings: Settings{MinPlayers: 2, MaxPlayers: 3},
		Strategy: TurnBased(),
		Teams:    &TeamConfig{Count: 0, Size: 2},
	})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestPlayersFillTeamsEvenly(t *testing.T) {
	cfg := &TeamConfig{Count: 2, Size: 2, Names: []string{"Sharks"}}
	f := newFixture(t, &fakeGame{}, TurnBased(), Settings{MinPlayers: 2, MaxPlayers: 5}, cfg, 0)

	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, f.session.AddPlayer(Player{ID: id}))
	}
	snap := f.session.Snapshot()
	require.Len(t, snap.Teams, 2)
	assert.Equal(t, "Sharks", snap.Teams[0].Name)
	assert.Equal(t, "Blue", snap.Teams[1].Name)
	assert.Equal(t, []string{"A", "C"}, snap.Teams[0].Members)
	assert.Equal(t, []string{"B"}, snap.Teams[1].Members)

	team, ok := f.session.TeamOf("B")
	require.True(t, ok)
	assert.Equal(t, "team-2", team.ID)

	assert.Len(t, f.rec.find(EventTeamAssigned), 3)

	// not every team is full yet
	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, f.session.SetReady(id, true))
	}
	assert.ErrorIs(t, f.session.StartGame(), ErrTeamsNotFull)

	require.NoError(t, f.session.AddPlayer(Player{ID: "D", Ready: true}))
	assert.Equal(t, StatusInProgress, f.session.Status())
}

func TestTeamsFull(t *testing.T) {
	cfg := &TeamConfig{Count: 2, Size: 1}
	f := newFixture(t, &fakeGame{}, TurnBased(), Settings{MinPlayers: 1, MaxPlayers: 3}, cfg)

	require.NoError(t, f.session.AddPlayer(Player{ID: "A"}))
	require.NoError(t, f.session.AddPlayer(Player{ID: "B"}))
	assert.ErrorIs(t, f.session.AddPlayer(Player{ID: "C"}), ErrTeamsFull)

	require.NoError(t, f.session.RemovePlayer("A"))
	require.NoError(t, f.session.AddPlayer(Player{ID: "C"}))
	team, _ := f.session.TeamOf("C")
	assert.Equal(t, "team-1", team.ID)
}

func TestTeamScoresAndRanking(t *testing.T) {
	cfg := &TeamConfig{Count: 3, Size: 1}
	f := newFixture(t, &fakeGame{}, TurnBased(), Settings{MinPlayers: 1, MaxPlayers: 3}, cfg)
	require.NoError(t, f.session.AddPlayer(Player{ID: "A"}))

	require.NoError(t, f.session.AddTeamScore("team-2", 5))
	assert.Equal(t, "team-2", f.session.WinningTeam())

	require.NoError(t, f.session.SetTeamScore("team-3", 5))
	assert.Empty(t, f.session.WinningTeam(), "a tie has no winner")

	ranking := f.session.TeamRanking()
	require.Len(t, ranking, 3)
	assert.Equal(t, []string{"team-2", "team-3", "team-1"}, []string{ranking[0].ID, ranking[1].ID, ranking[2].ID})

	scores := f.rec.find(EventScoreChanged)
	require.Len(t, scores, 2)
	assert.Equal(t, ScorePayload{TeamID: "team-3", Score: 5, Delta: 5}, scores[1].Data)

	assert.ErrorIs(t, f.session.AddTeamScore("team-9", 1), ErrUnknownTeam)
}

func TestNextTeamRotates(t *testing.T) {
	cfg := &TeamConfig{Count: 2, Size: 1}
	f := newFixture(t, &fakeGame{}, TurnBased(), Settings{MinPlayers: 1, MaxPlayers: 2}, cfg)
	require.NoError(t, f.session.AddPlayer(Player{ID: "A"}))

	assert.Equal(t, "team-1", f.session.Snapshot().CurrentTeam)
	team, err := f.session.NextTeam()
	require.NoError(t, err)
	assert.Equal(t, "team-2", team.ID)
	team, err = f.session.NextTeam()
	require.NoError(t, err)
	assert.Equal(t, "team-1", team.ID)
	assert.Len(t, f.rec.find(EventTeamTurnChanged), 2)
}

func TestTeamsAppearWithFirstPlayer(t *testing.T) {
	cfg := &TeamConfig{Count: 2, Size: 1}
	f := newFixture(t, &fakeGame{}, TurnBased(), Settings{MinPlayers: 1, MaxPlayers: 2}, cfg)

	assert.Nil(t, f.session.Snapshot().Teams)
	assert.Empty(t, f.session.TeamRanking())
	assert.ErrorIs(t, f.session.AddTeamScore("team-1", 1), ErrUnknownTeam)
	_, err := f.session.NextTeam()
	assert.ErrorIs(t, err, ErrNoTeams)

	require.NoError(t, f.session.AddPlayer(Player{ID: "A"}))
	snap := f.session.Snapshot()
	require.Len(t, snap.Teams, 2)
	assert.Equal(t, []string{"A"}, snap.Teams[0].Members)
	assert.Empty(t, snap.Teams[1].Members)
	require.NoError(t, f.session.AddTeamScore("team-1", 1))

	// teams outlive their members
	require.NoError(t, f.session.RemovePlayer("A"))
	assert.Len(t, f.session.TeamRanking(), 2)
}

func TestTeamOperationsWithoutTeams(t *testing.T) {
	f := newFixture(t, &fakeGame{}, TurnBased(), twoPlayers(0), nil)

	_, err := f.session.NextTeam()
	assert.ErrorIs(t, err, ErrNoTeams)
	assert.ErrorIs(t, f.session.AddTeamScore("team-1", 1), ErrNoTeams)
	assert.Empty(t, f.session.WinningTeam())
	assert.Nil(t, f.session.TeamRanking())
	assert.Nil(t, f.session.Snapshot().Teams)
}

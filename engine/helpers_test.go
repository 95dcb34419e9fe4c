package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wfunc/gameengine/random"
	"github.com/wfunc/gameengine/timer"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeGame accepts string moves and rejects "bad". The game ends after
// endAfter recorded moves when endAfter is positive.
type fakeGame struct {
	endAfter int
	winner   string
	defaults bool
	inactive map[string]bool
	executed []string
	setup    int
}

func (g *fakeGame) ExecuteMove(c *Context, playerID string, move Move) error {
	m, ok := move.(string)
	if !ok || m == "bad" {
		return errors.New("bad move")
	}
	g.executed = append(g.executed, playerID+":"+m)
	return nil
}

func (g *fakeGame) CheckGameEnd(c *Context) bool {
	return g.endAfter > 0 && len(c.History()) >= g.endAfter
}

func (g *fakeGame) DetermineWinner(c *Context) string { return g.winner }

func (g *fakeGame) Setup(c *Context) { g.setup++ }

func (g *fakeGame) DefaultMove(c *Context, playerID string) (Move, bool) {
	if !g.defaults {
		return nil, false
	}
	return "pass", true
}

func (g *fakeGame) IsActive(c *Context, playerID string) bool {
	return !g.inactive[playerID]
}

type privateGame struct {
	*fakeGame
}

func (g privateGame) StateFor(c *Context, viewer string) any {
	return "hand-of-" + viewer
}

func (g privateGame) PublicState(c *Context) any {
	return "table"
}

type recorder struct {
	mu     sync.Mutex
	events []Event
	snaps  []Snapshot
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnGameEvent: func(e Event) {
			r.mu.Lock()
			r.events = append(r.events, e)
			r.mu.Unlock()
		},
		OnStateChange: func(s Snapshot) {
			r.mu.Lock()
			r.snaps = append(r.snaps, s)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) find(typ EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) stateChanges() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.snaps = nil
	r.mu.Unlock()
}

type fixture struct {
	session *Session
	clock   *timer.Manual
	rec     *recorder
}

func newFixture(t *testing.T, game Game, strategy Strategy, settings Settings, teams *TeamConfig, rnd ...int) *fixture {
	t.Helper()
	f := &fixture{clock: timer.NewManual(t0), rec: &recorder{}}
	s, err := New("room-1", "fake", game, Options{
		Settings:  settings,
		Strategy:  strategy,
		Teams:     teams,
		Handlers:  f.rec.handlers(),
		Scheduler: f.clock,
		Random:    random.NewSequence(rnd...),
		Logger:    zap.NewNop().Sugar(),
	})
	require.NoError(t, err)
	f.session = s
	t.Cleanup(s.Cleanup)
	return f
}

// join adds ready players in order.
func (f *fixture) join(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, f.session.AddPlayer(Player{ID: id, Name: "player " + id, Ready: true}))
	}
}

func twoPlayers(limit time.Duration) Settings {
	return Settings{MinPlayers: 2, MaxPlayers: 2, TimeLimit: limit}
}

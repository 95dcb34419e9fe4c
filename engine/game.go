package engine

import (
	"time"

	"github.com/wfunc/gameengine/random"
)

// Game is the rules of one concrete game. The engine calls these hooks at
// fixed points of every strategy; the session lock is held for the
// duration of each call.
//
// ExecuteMove must validate before mutating: an error means the game state
// is unchanged.
type Game interface {
	ExecuteMove(c *Context, playerID string, move Move) error
	CheckGameEnd(c *Context) bool
	// DetermineWinner returns a participant id, Draw, or "" for none.
	DetermineWinner(c *Context) string
}

// Initializer sets up game state when the session starts.
type Initializer interface {
	Setup(c *Context)
}

// DefaultMover supplies the move applied for a participant who ran out of
// time. ok=false means no action.
type DefaultMover interface {
	DefaultMove(c *Context, playerID string) (move Move, ok bool)
}

// ActivityChecker marks participants that no longer act, e.g. eliminated
// or folded players. Inactive participants are skipped by turn order and
// are not waited on by rounds.
type ActivityChecker interface {
	IsActive(c *Context, playerID string) bool
}

// MoveValidator checks a realtime move before it is queued.
type MoveValidator interface {
	ValidateMove(c *Context, playerID string, move Move) error
}

// MoveOrderer fixes the order in which a round's moves execute. Without it
// the order is random.
type MoveOrderer interface {
	OrderMoves(c *Context, moves []PendingMove) []PendingMove
}

// ImmediateMover lets a realtime game execute moves as they arrive instead
// of collecting a round.
type ImmediateMover interface {
	ExecutesImmediately() bool
}

// PublicStater exposes game state visible to everyone.
type PublicStater interface {
	PublicState(c *Context) any
}

// PrivateStater declares per-viewer state. When a game implements it,
// transports must request one view per participant.
type PrivateStater interface {
	StateFor(c *Context, viewer string) any
}

// Context is the game's window onto its session. It is only valid during
// the hook call that received it.
type Context struct {
	s *Session
}

func (c *Context) RoomID() string     { return c.s.roomID }
func (c *Context) GameType() string   { return c.s.gameType }
func (c *Context) Settings() Settings { return c.s.settings }
func (c *Context) Now() time.Time     { return c.s.sched.Now() }

// Random is the session's random source.
func (c *Context) Random() random.Random { return c.s.rnd }

// Players returns a copy of the roster, observers included.
func (c *Context) Players() []Player {
	out := make([]Player, 0, len(c.s.players))
	for _, p := range c.s.players {
		out = append(out, p.clone())
	}
	return out
}

// Participants returns the non-observer players in roster order.
func (c *Context) Participants() []Player {
	out := make([]Player, 0, len(c.s.players))
	for _, p := range c.s.players {
		if !p.IsObserver {
			out = append(out, p.clone())
		}
	}
	return out
}

func (c *Context) Player(id string) (Player, bool) {
	if p := c.s.player(id); p != nil {
		return p.clone(), true
	}
	return Player{}, false
}

// History returns a copy of the move history.
func (c *Context) History() []MoveRecord {
	return append([]MoveRecord(nil), c.s.history...)
}

// CurrentPlayer is the participant whose turn it is, or "" outside a
// turn-based game.
func (c *Context) CurrentPlayer() string {
	if t, ok := c.s.strategy.(*turnStrategy); ok {
		return t.currentID(c.s)
	}
	return ""
}

// Round is the current round number, or 0 outside a realtime game.
func (c *Context) Round() int {
	if r, ok := c.s.strategy.(*roundStrategy); ok {
		return r.round
	}
	return 0
}

// Pending is the move playerID has submitted in the round in play. Games
// only see it here until the round resolves.
func (c *Context) Pending(playerID string) (Move, bool) {
	r, ok := c.s.strategy.(*roundStrategy)
	if !ok {
		return nil, false
	}
	pm, ok := r.pending[playerID]
	if !ok {
		return nil, false
	}
	return pm.Move, true
}

// Teams is the team overlay, or nil when the session has none.
func (c *Context) Teams() *Teams {
	return c.s.teams
}

package games

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/room"
)

const RPSType = "rps"

const (
	Rock     = "rock"
	Paper    = "paper"
	Scissors = "scissors"
)

var throws = []string{Rock, Paper, Scissors}

var beats = map[string]string{Rock: Scissors, Paper: Rock, Scissors: Paper}

// RPSRound is one resolved round. Winner is "" on a tie.
type RPSRound struct {
	Number int               `json:"number"`
	Throws map[string]string `json:"throws"`
	Winner string            `json:"winner,omitempty"`
}

// RPSView is a viewer's state. Of the round in play a viewer only sees
// their own throw, as Pending.
type RPSView struct {
	Scores   map[string]int `json:"scores"`
	Rounds   []RPSRound     `json:"rounds"`
	Viewer   string         `json:"viewer,omitempty"`
	Wins     int            `json:"wins,omitempty"`
	Pending  string         `json:"pending,omitempty"`
	Needed   int            `json:"needed"`
	Finished bool           `json:"finished"`
}

// RPS is best-of rock-paper-scissors for two players. A round is scored
// once both throws have executed.
type RPS struct {
	WinsNeeded int
	MaxRounds  int

	scores map[string]int
	throws map[string]string
	rounds []RPSRound
}

func NewRPS() engine.Game {
	return &RPS{WinsNeeded: 2, MaxRounds: 5}
}

func (g *RPS) Setup(c *engine.Context) {
	g.scores = make(map[string]int)
	g.throws = make(map[string]string)
	g.rounds = nil
	for _, p := range c.Participants() {
		g.scores[p.ID] = 0
	}
}

func throwOf(move engine.Move) (string, error) {
	var t string
	switch m := move.(type) {
	case string:
		t = m
	case json.RawMessage:
		mv, err := DecodeRPSMove(m)
		if err != nil {
			return "", err
		}
		t = mv.(string)
	default:
		return "", fmt.Errorf("unexpected move %T", move)
	}
	if _, ok := beats[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownThrow, t)
	}
	return t, nil
}

// DecodeRPSMove parses {"throw": "rock"}.
func DecodeRPSMove(raw []byte) (engine.Move, error) {
	var m struct {
		Throw string `json:"throw"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode move: %w", err)
	}
	return m.Throw, nil
}

func (g *RPS) ValidateMove(c *engine.Context, playerID string, move engine.Move) error {
	_, err := throwOf(move)
	return err
}

func (g *RPS) ExecuteMove(c *engine.Context, playerID string, move engine.Move) error {
	t, err := throwOf(move)
	if err != nil {
		return err
	}
	g.throws[playerID] = t
	if len(g.throws) == len(g.scores) {
		g.score(c.Round())
	}
	return nil
}

func (g *RPS) score(number int) {
	round := RPSRound{Number: number, Throws: g.throws}
	ids := make([]string, 0, len(g.throws))
	for id := range g.throws {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 2 {
		a, b := ids[0], ids[1]
		switch {
		case beats[g.throws[a]] == g.throws[b]:
			round.Winner = a
		case beats[g.throws[b]] == g.throws[a]:
			round.Winner = b
		}
	}
	if round.Winner != "" {
		g.scores[round.Winner]++
	}
	g.rounds = append(g.rounds, round)
	g.throws = make(map[string]string)
}

func (g *RPS) CheckGameEnd(c *engine.Context) bool {
	for _, s := range g.scores {
		if s >= g.WinsNeeded {
			return true
		}
	}
	return len(g.rounds) >= g.MaxRounds
}

// DetermineWinner is the higher score, or a draw when level.
func (g *RPS) DetermineWinner(c *engine.Context) string {
	best, winner := -1, ""
	for id, s := range g.scores {
		switch {
		case s > best:
			best, winner = s, id
		case s == best:
			winner = engine.Draw
		}
	}
	return winner
}

// DefaultMove throws at random.
func (g *RPS) DefaultMove(c *engine.Context, playerID string) (engine.Move, bool) {
	return throws[c.Random().Intn(len(throws))], true
}

func (g *RPS) view(c *engine.Context) RPSView {
	v := RPSView{
		Scores: make(map[string]int, len(g.scores)),
		Rounds: make([]RPSRound, len(g.rounds)),
		Needed: g.WinsNeeded,
	}
	for id, s := range g.scores {
		v.Scores[id] = s
	}
	for i, r := range g.rounds {
		t := make(map[string]string, len(r.Throws))
		for id, th := range r.Throws {
			t[id] = th
		}
		r.Throws = t
		v.Rounds[i] = r
	}
	v.Finished = g.CheckGameEnd(c)
	return v
}

func (g *RPS) PublicState(c *engine.Context) any {
	return g.view(c)
}

func (g *RPS) StateFor(c *engine.Context, viewer string) any {
	v := g.view(c)
	v.Viewer = viewer
	v.Wins = g.scores[viewer]
	if move, ok := c.Pending(viewer); ok {
		if t, err := throwOf(move); err == nil {
			v.Pending = t
		}
	}
	return v
}

// RPSDefinition registers rock-paper-scissors with 15s rounds.
func RPSDefinition() room.Definition {
	return room.Definition{
		GameType: RPSType,
		NewGame:  NewRPS,
		Strategy: engine.Realtime,
		Settings: engine.Settings{
			MinPlayers: 2,
			MaxPlayers: 2,
			TimeLimit:  15 * time.Second,
		},
		DecodeMove: DecodeRPSMove,
	}
}

// Catalog returns a catalog holding every bundled game. Non-zero limits
// replace the games' own turn and round clocks.
func Catalog(turnLimit, roundLimit time.Duration) *room.Catalog {
	ttt, rps := TicTacToeDefinition(), RPSDefinition()
	if turnLimit > 0 {
		ttt.Settings.TimeLimit = turnLimit
	}
	if roundLimit > 0 {
		rps.Settings.TimeLimit = roundLimit
	}
	c := room.NewCatalog()
	c.MustRegister(ttt)
	c.MustRegister(rps)
	return c
}

package games

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/room"
)

const TicTacToeType = "tictactoe"

var (
	ErrBadCell      = errors.New("cell out of range")
	ErrCellTaken    = errors.New("cell already taken")
	ErrUnknownThrow = errors.New("unknown throw")
)

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// TicTacToeMove places the mover's mark on Cell, 0..8 row by row.
type TicTacToeMove struct {
	Cell int `json:"cell"`
}

// TicTacToeState is what every viewer sees.
type TicTacToeState struct {
	Board [9]string         `json:"board"` // "X", "O" or ""
	Marks map[string]string `json:"marks"` // player id -> mark
}

// TicTacToe is the classic 3x3 game. The first participant plays X.
type TicTacToe struct {
	board [9]string // player ids
	marks map[string]string
}

func NewTicTacToe() engine.Game {
	return &TicTacToe{}
}

func (g *TicTacToe) Setup(c *engine.Context) {
	g.board = [9]string{}
	g.marks = make(map[string]string, 2)
	for i, p := range c.Participants() {
		if i > 1 {
			break
		}
		g.marks[p.ID] = [2]string{"X", "O"}[i]
	}
}

func (g *TicTacToe) ExecuteMove(c *engine.Context, playerID string, move engine.Move) error {
	cell, err := cellOf(move)
	if err != nil {
		return err
	}
	if cell < 0 || cell >= len(g.board) {
		return fmt.Errorf("%w: %d", ErrBadCell, cell)
	}
	if g.board[cell] != "" {
		return fmt.Errorf("%w: %d", ErrCellTaken, cell)
	}
	g.board[cell] = playerID
	return nil
}

func cellOf(move engine.Move) (int, error) {
	switch m := move.(type) {
	case TicTacToeMove:
		return m.Cell, nil
	case *TicTacToeMove:
		return m.Cell, nil
	case int:
		return m, nil
	case json.RawMessage:
		mv, err := DecodeTicTacToeMove(m)
		if err != nil {
			return 0, err
		}
		return mv.(TicTacToeMove).Cell, nil
	}
	return 0, fmt.Errorf("unexpected move %T", move)
}

// DecodeTicTacToeMove parses {"cell": n}.
func DecodeTicTacToeMove(raw []byte) (engine.Move, error) {
	var m TicTacToeMove
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode move: %w", err)
	}
	return m, nil
}

func (g *TicTacToe) line() string {
	for _, l := range lines {
		a := g.board[l[0]]
		if a != "" && a == g.board[l[1]] && a == g.board[l[2]] {
			return a
		}
	}
	return ""
}

func (g *TicTacToe) full() bool {
	for _, cell := range g.board {
		if cell == "" {
			return false
		}
	}
	return true
}

func (g *TicTacToe) CheckGameEnd(c *engine.Context) bool {
	return g.line() != "" || g.full()
}

func (g *TicTacToe) DetermineWinner(c *engine.Context) string {
	if w := g.line(); w != "" {
		return w
	}
	if g.full() {
		return engine.Draw
	}
	return ""
}

// DefaultMove takes the first free cell.
func (g *TicTacToe) DefaultMove(c *engine.Context, playerID string) (engine.Move, bool) {
	for i, cell := range g.board {
		if cell == "" {
			return TicTacToeMove{Cell: i}, true
		}
	}
	return nil, false
}

func (g *TicTacToe) PublicState(c *engine.Context) any {
	st := TicTacToeState{Marks: make(map[string]string, len(g.marks))}
	for id, mark := range g.marks {
		st.Marks[id] = mark
	}
	for i, id := range g.board {
		st.Board[i] = g.marks[id]
	}
	return st
}

// TicTacToeDefinition registers tic-tac-toe with a 30s turn clock.
func TicTacToeDefinition() room.Definition {
	return room.Definition{
		GameType: TicTacToeType,
		NewGame:  NewTicTacToe,
		Strategy: engine.TurnBased,
		Settings: engine.Settings{
			MinPlayers: 2,
			MaxPlayers: 2,
			TimeLimit:  30 * time.Second,
		},
		DecodeMove: DecodeTicTacToeMove,
	}
}

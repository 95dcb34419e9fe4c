package engine

import (
	"fmt"
	"time"
)

// Status is the lifecycle phase of a session.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Draw is the winner value of a game that ended level. An empty winner
// means there is none, e.g. an aborted game.
const Draw = "draw"

// FinishReason says why a game ended.
type FinishReason string

const (
	ReasonCompleted FinishReason = "completed"
	ReasonAborted   FinishReason = "aborted"
	ReasonTimeout   FinishReason = "timeout"
	ReasonEnded     FinishReason = "ended"
)

type Player struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Avatar     string            `json:"avatar,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Ready      bool              `json:"ready"`
	IsObserver bool              `json:"isObserver"`
	JoinedAt   time.Time         `json:"joinedAt"`
}

func (p Player) clone() Player {
	if p.Attributes != nil {
		attrs := make(map[string]string, len(p.Attributes))
		for k, v := range p.Attributes {
			attrs[k] = v
		}
		p.Attributes = attrs
	}
	return p
}

// Move is an opaque payload interpreted by the concrete game.
type Move any

// MoveRecord is one entry of the append-only move history.
type MoveRecord struct {
	PlayerID  string    `json:"playerId"`
	Move      Move      `json:"move"`
	Timestamp time.Time `json:"timestamp"`
}

// PendingMove is a move submitted but not yet resolved in a round.
type PendingMove struct {
	PlayerID    string
	Move        Move
	SubmittedAt time.Time
}

// Settings are fixed at construction. TimeLimit is per turn or per round
// depending on the strategy; zero disables the timer. GameTimeLimit bounds
// a whole realtime game.
type Settings struct {
	MaxPlayers    int           `json:"maxPlayers"`
	MinPlayers    int           `json:"minPlayers"`
	TimeLimit     time.Duration `json:"timeLimit"`
	GameTimeLimit time.Duration `json:"gameTimeLimit,omitempty"`
	Difficulty    string        `json:"difficulty,omitempty"`
}

func (s Settings) Validate() error {
	if s.MinPlayers < 1 {
		return fmt.Errorf("%w: minPlayers must be at least 1", ErrInvalidSettings)
	}
	if s.MaxPlayers < s.MinPlayers {
		return fmt.Errorf("%w: maxPlayers %d below minPlayers %d", ErrInvalidSettings, s.MaxPlayers, s.MinPlayers)
	}
	if s.TimeLimit < 0 || s.GameTimeLimit < 0 {
		return fmt.Errorf("%w: negative time limit", ErrInvalidSettings)
	}
	return nil
}

type TurnInfo struct {
	PlayerID  string     `json:"playerId"`
	Index     int        `json:"index"`
	StartedAt time.Time  `json:"startedAt"`
	Deadline  *time.Time `json:"deadline,omitempty"`
}

// RoundInfo lists who has submitted, never what they submitted.
type RoundInfo struct {
	Number       int        `json:"number"`
	Submitted    []string   `json:"submitted"`
	StartedAt    time.Time  `json:"startedAt"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	GameDeadline *time.Time `json:"gameDeadline,omitempty"`
}

// Snapshot is the observable state of a session at one point in time.
// It shares no memory with the session.
type Snapshot struct {
	RoomID      string       `json:"roomId"`
	GameType    string       `json:"gameType"`
	Status      Status       `json:"status"`
	Players     []Player     `json:"players"`
	Winner      string       `json:"winner,omitempty"`
	Reason      FinishReason `json:"reason,omitempty"`
	Settings    Settings     `json:"settings"`
	History     []MoveRecord `json:"history"`
	Turn        *TurnInfo    `json:"turn,omitempty"`
	Round       *RoundInfo   `json:"round,omitempty"`
	Teams       []Team       `json:"teams,omitempty"`
	CurrentTeam string       `json:"currentTeam,omitempty"`
	State       any          `json:"state,omitempty"`
	Viewer      string       `json:"viewer,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	StartedAt   *time.Time   `json:"startedAt,omitempty"`
	FinishedAt  *time.Time   `json:"finishedAt,omitempty"`
	LastMoveAt  *time.Time   `json:"lastMoveAt,omitempty"`
}

// Participants returns the non-observer players of the snapshot.
func (s Snapshot) Participants() []Player {
	out := make([]Player, 0, len(s.Players))
	for _, p := range s.Players {
		if !p.IsObserver {
			out = append(out, p)
		}
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

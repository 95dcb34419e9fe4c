package engine

import (
	"context"
	"time"
)

// EventType identifies the type of event
type EventType string

const (
	// Roster events
	EventPlayerJoined   EventType = "player_joined"
	EventObserverJoined EventType = "observer_joined"
	EventPlayerLeft     EventType = "player_left"
	EventPlayerReady    EventType = "player_ready"

	// Lifecycle events
	EventGameStarted  EventType = "game_started"
	EventGameFinished EventType = "game_finished"
	EventGameTimeout  EventType = "game_timeout"

	// Turn events
	EventTurnChanged EventType = "turn_changed"
	EventTurnTimeout EventType = "turn_timeout"
	EventMoveMade    EventType = "move_made"

	// Round events
	EventMoveSubmitted  EventType = "move_submitted"
	EventRoundStarted   EventType = "round_started"
	EventRoundCompleted EventType = "round_completed"
	EventRoundTimeout   EventType = "round_timeout"

	// Team events
	EventTeamAssigned    EventType = "team_assigned"
	EventScoreChanged    EventType = "score_changed"
	EventTeamTurnChanged EventType = "team_turn_changed"
)

// Event records one externally observable transition.
type Event struct {
	Type      EventType `json:"type"`
	PlayerID  string    `json:"playerId,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Observer bool   `json:"observer"`
}

type ReadyPayload struct {
	Ready bool `json:"ready"`
}

type GameStartedPayload struct {
	Players []string `json:"players"`
}

type GameFinishedPayload struct {
	Winner string       `json:"winner,omitempty"`
	Reason FinishReason `json:"reason"`
}

type TurnPayload struct {
	PlayerID string `json:"playerId"`
	Index    int    `json:"index"`
}

type RoundPayload struct {
	Round int `json:"round"`
}

type RoundCompletedPayload struct {
	Round int          `json:"round"`
	Moves []MoveRecord `json:"moves"`
}

type TeamAssignedPayload struct {
	TeamID string `json:"teamId"`
}

type ScorePayload struct {
	TeamID string `json:"teamId"`
	Score  int    `json:"score"`
	Delta  int    `json:"delta"`
}

type TeamTurnPayload struct {
	TeamID string `json:"teamId"`
}

// Handlers receive what a session emits. Delivery happens after the
// session lock is released, in the order the causing operations ran, so
// handlers may read the session. Mutations made from a handler are queued
// behind the delivery in progress.
//
// OnStateChange always gets the shared snapshot. For games with private
// state OnPlayerView then gets each player's view, taken at the same
// moment as the snapshot.
type Handlers struct {
	OnStateChange func(Snapshot)
	OnGameEvent   func(Event)
	OnPlayerView  func(playerID string, view Snapshot)
}

// Result is handed to settlement when a game ends.
type Result struct {
	RoomID       string
	GameType     string
	Winner       string
	Reason       FinishReason
	Participants []string
	Stake        int64
}

// Settlement awards or refunds stakes once a game ends and returns each
// participant's resulting balance. Failures are surfaced, never retried.
type Settlement interface {
	Settle(ctx context.Context, result Result) (map[string]int64, error)
}

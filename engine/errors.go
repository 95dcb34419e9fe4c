package engine

import "errors"

// Precondition failures. Transports translate these into short,
// user-facing messages; none of them leaves the session modified.
var (
	ErrInvalidSettings  = errors.New("invalid session settings")
	ErrSessionClosed    = errors.New("session is closed")
	ErrPlayerExists     = errors.New("player is already in the session")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrRoomFull         = errors.New("room is full")
	ErrNotWaiting       = errors.New("session is not waiting for players")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrPlayersNotReady  = errors.New("not every player is ready")
	ErrNotInProgress    = errors.New("game is not in progress")
	ErrGameFinished     = errors.New("game has already finished")
	ErrNotParticipant   = errors.New("player is not a participant")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrPlayerInactive   = errors.New("player is not active this round")
	ErrAlreadyMoved     = errors.New("move already submitted this round")
	ErrNotRealtime      = errors.New("session does not play in rounds")
	ErrNoTeams          = errors.New("session has no teams")
	ErrTeamsFull        = errors.New("all teams are full")
	ErrTeamsNotFull     = errors.New("not every team is full")
	ErrUnknownTeam      = errors.New("unknown team")
)

// ErrIllegalMove wraps every rule violation reported by a game. It is never
// used for turn-order violations, which are ErrNotYourTurn.
var ErrIllegalMove = errors.New("illegal move")

package network

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/room"
)

// Request errors raised at the transport edge.
var (
	ErrBadRequest = errors.New("malformed request")
	ErrNotInRoom  = errors.New("not in a room")
)

// ErrorMessage is the body of a MsgTypeError push.
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorMapping struct {
	target  error
	code    codes.Code
	message string
}

// Checked in order; ErrIllegalMove comes before anything a game error
// might also wrap.
var errorMappings = []errorMapping{
	{engine.ErrIllegalMove, codes.InvalidArgument, "That move is not allowed."},
	{ErrBadRequest, codes.InvalidArgument, "Malformed request."},
	{ErrNotInRoom, codes.FailedPrecondition, "Join a room first."},
	{engine.ErrNotYourTurn, codes.FailedPrecondition, "It is not your turn."},
	{engine.ErrAlreadyMoved, codes.FailedPrecondition, "You already moved this round."},
	{engine.ErrPlayerInactive, codes.FailedPrecondition, "You are out of this round."},
	{engine.ErrNotParticipant, codes.PermissionDenied, "Observers cannot move."},
	{engine.ErrNotInProgress, codes.FailedPrecondition, "The game is not running."},
	{engine.ErrGameFinished, codes.FailedPrecondition, "The game is over."},
	{engine.ErrNotWaiting, codes.FailedPrecondition, "The game has already started."},
	{engine.ErrNotEnoughPlayers, codes.FailedPrecondition, "Waiting for more players."},
	{engine.ErrPlayersNotReady, codes.FailedPrecondition, "Not everyone is ready."},
	{engine.ErrTeamsNotFull, codes.FailedPrecondition, "Teams are not full yet."},
	{engine.ErrNotRealtime, codes.FailedPrecondition, "This game does not play in rounds."},
	{engine.ErrNoTeams, codes.FailedPrecondition, "This game has no teams."},
	{engine.ErrRoomFull, codes.ResourceExhausted, "The room is full."},
	{engine.ErrTeamsFull, codes.ResourceExhausted, "All teams are full."},
	{engine.ErrPlayerExists, codes.AlreadyExists, "You are already in this room."},
	{room.ErrRoomExists, codes.AlreadyExists, "That room already exists."},
	{engine.ErrPlayerNotFound, codes.NotFound, "You are not in this room."},
	{engine.ErrUnknownTeam, codes.NotFound, "No such team."},
	{room.ErrRoomNotFound, codes.NotFound, "Room not found."},
	{room.ErrUnknownGame, codes.NotFound, "Unknown game."},
	{engine.ErrInvalidSettings, codes.InvalidArgument, "Invalid room settings."},
	{room.ErrSessionEnded, codes.Unavailable, "The session has ended."},
	{engine.ErrSessionClosed, codes.Unavailable, "The session has ended."},
}

func lookup(err error) (errorMapping, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m, true
		}
	}
	return errorMapping{}, false
}

// Code maps an engine or registry error onto a gRPC status code.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if m, ok := lookup(err); ok {
		return m.code
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Internal
}

// Status converts err into a gRPC status carrying the user-facing message.
func Status(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if m, ok := lookup(err); ok {
		return status.New(m.code, m.message)
	}
	if s, ok := status.FromError(err); ok {
		return s
	}
	return status.New(codes.Internal, "Something went wrong.")
}

// ErrorPayload is the short message sent to the player whose request
// failed.
func ErrorPayload(err error) ErrorMessage {
	s := Status(err)
	return ErrorMessage{Code: s.Code().String(), Message: s.Message()}
}

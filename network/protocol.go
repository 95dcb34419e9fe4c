package network

import "encoding/json"

// Message ids. Requests are client to server, pushes server to client.
const (
	MsgTypeHeartbeat = 1
	MsgTypeError     = 2
	MsgTypeLogin     = 3

	MsgTypeCreateRoom    = 101
	MsgTypeJoinRoom      = 102
	MsgTypeLeaveRoom     = 103
	MsgTypeReady         = 104
	MsgTypeStartGame     = 105
	MsgTypeGameAction    = 201
	MsgTypeForceRoundEnd = 202

	MsgTypeRoomState  = 301
	MsgTypeGameEvent  = 302
	MsgTypeSettlement = 303
	MsgTypeRoomJoined = 304
)

// LoginRequest binds a connection to a player identity so a reconnecting
// client gets its seat back. An empty PlayerID keeps the connection id.
type LoginRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// CreateRoomRequest opens a room. RoomID is generated when empty.
type CreateRoomRequest struct {
	RoomID   string `json:"room_id,omitempty"`
	GameType string `json:"game_type"`
	Name     string `json:"name"`
}

type JoinRoomRequest struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
}

type ReadyRequest struct {
	Ready bool `json:"ready"`
}

// GameActionRequest carries a move for the player's current room. The move
// is decoded by the game.
type GameActionRequest struct {
	Move json.RawMessage `json:"move"`
}

type RoomJoined struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
	Observer bool   `json:"observer"`
}

// SettlementResult is pushed to a room once stakes are settled.
type SettlementResult struct {
	RoomID   string           `json:"room_id"`
	Winner   string           `json:"winner"`
	Balances map[string]int64 `json:"balances,omitempty"`
	Error    *ErrorMessage    `json:"error,omitempty"`
}

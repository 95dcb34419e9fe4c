// models/models.go
package models

import (
	"time"

	"github.com/wfunc/gameengine/engine"
)

// 房间记录状态
const (
	RoomWaiting    = "waiting"
	RoomInProgress = "in_progress"
	RoomFinished   = "finished"
	RoomAbandoned  = "abandoned"
)

// Outcomes recorded per participant.
const (
	OutcomeWin  = "win"
	OutcomeLose = "lose"
	OutcomeDraw = "draw"
	OutcomeNone = "none"
)

// RoomRecord is the durable description of a room, enough to rebuild its
// session after a restart. It holds no game state or history.
type RoomRecord struct {
	RoomID    string          `json:"room_id"`
	GameType  string          `json:"game_type"`
	Status    string          `json:"status"`
	Players   []PlayerInfo    `json:"players"`
	Settings  engine.Settings `json:"settings"`
	Stake     int64           `json:"stake"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PlayerInfo 玩家信息（用于房间和游戏记录）
type PlayerInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar,omitempty"`
	Outcome string `json:"outcome,omitempty"` // win/lose/draw/none
	Balance int64  `json:"balance,omitempty"`
}

// GameRecord 游戏记录模型
type GameRecord struct {
	RoomID     string       `json:"room_id"`
	GameType   string       `json:"game_type"`
	Winner     string       `json:"winner"`
	Reason     string       `json:"reason"`
	Players    []PlayerInfo `json:"players"`
	Moves      int          `json:"moves"`
	Stake      int64        `json:"stake"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Duration 游戏时长
func (r GameRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// NewGameRecord builds the record of a finished session. Balances come
// from settlement and may be nil.
func NewGameRecord(snap engine.Snapshot, stake int64, balances map[string]int64) GameRecord {
	rec := GameRecord{
		RoomID:   snap.RoomID,
		GameType: snap.GameType,
		Winner:   snap.Winner,
		Reason:   string(snap.Reason),
		Moves:    len(snap.History),
		Stake:    stake,
	}
	if snap.StartedAt != nil {
		rec.StartedAt = *snap.StartedAt
	}
	if snap.FinishedAt != nil {
		rec.FinishedAt = *snap.FinishedAt
	}
	for _, p := range snap.Participants() {
		rec.Players = append(rec.Players, PlayerInfo{
			ID:      p.ID,
			Name:    p.Name,
			Avatar:  p.Avatar,
			Outcome: Outcome(snap.Winner, p.ID),
			Balance: balances[p.ID],
		})
	}
	return rec
}

// Outcome classifies one participant against the game's winner value.
func Outcome(winner, playerID string) string {
	switch winner {
	case "":
		return OutcomeNone
	case engine.Draw:
		return OutcomeDraw
	case playerID:
		return OutcomeWin
	}
	return OutcomeLose
}

// NewRoomRecord describes a session's room as it is now.
func NewRoomRecord(snap engine.Snapshot, stake int64, now time.Time) RoomRecord {
	rec := RoomRecord{
		RoomID:    snap.RoomID,
		GameType:  snap.GameType,
		Status:    string(snap.Status),
		Settings:  snap.Settings,
		Stake:     stake,
		CreatedAt: snap.CreatedAt,
		UpdatedAt: now,
	}
	for _, p := range snap.Participants() {
		rec.Players = append(rec.Players, PlayerInfo{ID: p.ID, Name: p.Name, Avatar: p.Avatar})
	}
	return rec
}

// models/gorm_models.go
package models

import (
	"gorm.io/gorm"

	"github.com/wfunc/gameengine/engine"
)

// GormAccount 玩家账户
type GormAccount struct {
	gorm.Model
	PlayerID string `gorm:"uniqueIndex;not null"`
	Name     string
	Coins    int64 `gorm:"default:1000"`
	Wins     int   `gorm:"default:0"`
	Losses   int   `gorm:"default:0"`
	Draws    int   `gorm:"default:0"`
}

func (GormAccount) TableName() string { return "accounts" }

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	RoomID   string       `gorm:"index;not null"`
	GameType string       `gorm:"not null"`
	Winner   string       `gorm:"index"`
	Reason   string       `gorm:"not null"`
	Players  []PlayerInfo `gorm:"serializer:json;type:jsonb;not null"`
	Moves    int          `gorm:"default:0"`
	Stake    int64        `gorm:"default:0"`
	Duration int          `gorm:"default:0"` // 游戏时长(秒)
}

func (GormGameRecord) TableName() string { return "game_records" }

// GormRoom 房间模型
type GormRoom struct {
	gorm.Model
	RoomID   string          `gorm:"uniqueIndex;not null"`
	GameType string          `gorm:"not null"`
	Status   string          `gorm:"index;not null"`
	Players  []PlayerInfo    `gorm:"serializer:json;type:jsonb"`
	Settings engine.Settings `gorm:"serializer:json;type:jsonb"`
	Stake    int64           `gorm:"default:0"`
}

func (GormRoom) TableName() string { return "rooms" }

func (r GormRoom) Record() RoomRecord {
	return RoomRecord{
		RoomID:    r.RoomID,
		GameType:  r.GameType,
		Status:    r.Status,
		Players:   r.Players,
		Settings:  r.Settings,
		Stake:     r.Stake,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func FromGameRecord(rec GameRecord) GormGameRecord {
	return GormGameRecord{
		RoomID:   rec.RoomID,
		GameType: rec.GameType,
		Winner:   rec.Winner,
		Reason:   rec.Reason,
		Players:  rec.Players,
		Moves:    rec.Moves,
		Stake:    rec.Stake,
		Duration: int(rec.Duration().Seconds()),
	}
}
